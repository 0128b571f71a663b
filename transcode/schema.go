package transcode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMissing is returned when no schema document is available and no
// fallback container field name was configured. Assembly cannot proceed
// without at least one of the two.
var ErrSchemaMissing = errors.New("transcode: schema missing")

// Kind discriminates the variants of a SchemaNode.
type Kind int

const (
	// KindScalar is any leaf type (string, number, boolean, enum...).
	KindScalar Kind = iota
	// KindObject is an object with named properties.
	KindObject
	// KindArray is an array with a single item shape.
	KindArray
	// KindReference is a $ref into the document's definitions.
	KindReference
	// KindUnion is an anyOf over references.
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindReference:
		return "reference"
	case KindUnion:
		return "union"
	default:
		return "scalar"
	}
}

// SchemaNode is a tagged-variant view of one node in a JSON-Schema-like
// document. Only the structural shape needed for field routing is retained;
// validation keywords are deliberately ignored.
type SchemaNode struct {
	Kind Kind

	// Name is the definition name this node was parsed under, when known.
	Name string

	// Ref is the referenced definition name (KindReference only).
	Ref string

	// Properties and Order describe KindObject nodes. Order preserves the
	// property iteration order of the source document, which decides ties
	// such as multiple array-typed root properties.
	Properties map[string]*SchemaNode
	Order      []string

	// Items is the item shape of KindArray nodes.
	Items *SchemaNode

	// Branches holds the anyOf members of KindUnion nodes.
	Branches []*SchemaNode
}

// Document is a parsed schema with its definitions map. References resolve
// against Defs; a reference that cannot be resolved degrades that branch of
// any later analysis rather than failing the whole document.
type Document struct {
	Root *SchemaNode
	Defs map[string]*SchemaNode
}

// ParseDocument parses a JSON-Schema-like document. Definitions are read from
// both "definitions" and "$defs". The parse is tolerant: unknown keywords are
// ignored and malformed sub-structures become scalar nodes.
func ParseDocument(data []byte) (*Document, error) {
	raw, err := decodeRaw(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("transcode: parse schema: %w", err)
	}
	if raw == nil || raw.kind != rawObject {
		return nil, fmt.Errorf("transcode: parse schema: root is not an object")
	}

	doc := &Document{Defs: map[string]*SchemaNode{}}
	for _, section := range []string{"definitions", "$defs"} {
		defs, ok := raw.obj[section]
		if !ok || defs.kind != rawObject {
			continue
		}
		for _, name := range defs.keys {
			node := buildNode(defs.obj[name])
			node.Name = name
			doc.Defs[name] = node
		}
	}
	doc.Root = buildNode(raw)
	return doc, nil
}

// Resolve follows reference nodes until a concrete node is reached. It
// returns nil when the chain cannot be resolved inside the document, which
// callers treat as a degraded (empty) branch.
func (d *Document) Resolve(node *SchemaNode) *SchemaNode {
	seen := map[string]bool{}
	for node != nil && node.Kind == KindReference {
		if d == nil || seen[node.Ref] {
			return nil
		}
		seen[node.Ref] = true
		node = d.Defs[node.Ref]
	}
	return node
}

// buildNode classifies one raw schema value into a SchemaNode.
func buildNode(raw *rawValue) *SchemaNode {
	if raw == nil || raw.kind != rawObject {
		return &SchemaNode{Kind: KindScalar}
	}

	if ref, ok := raw.obj["$ref"]; ok && ref.kind == rawString {
		if name := refName(ref.str); name != "" {
			return &SchemaNode{Kind: KindReference, Ref: name}
		}
		// External or otherwise unusable ref: treat as scalar.
		return &SchemaNode{Kind: KindScalar}
	}

	if anyOf, ok := raw.obj["anyOf"]; ok && anyOf.kind == rawArray {
		node := &SchemaNode{Kind: KindUnion}
		for _, member := range anyOf.arr {
			node.Branches = append(node.Branches, buildNode(member))
		}
		return node
	}

	typ := ""
	if t, ok := raw.obj["type"]; ok && t.kind == rawString {
		typ = t.str
	}

	if items, ok := raw.obj["items"]; ok || typ == "array" {
		node := &SchemaNode{Kind: KindArray}
		if ok {
			node.Items = buildNode(items)
		}
		return node
	}

	if props, ok := raw.obj["properties"]; ok && props.kind == rawObject {
		node := &SchemaNode{Kind: KindObject, Properties: make(map[string]*SchemaNode, len(props.keys))}
		for _, name := range props.keys {
			node.Properties[name] = buildNode(props.obj[name])
			node.Order = append(node.Order, name)
		}
		return node
	}
	if typ == "object" {
		return &SchemaNode{Kind: KindObject}
	}

	return &SchemaNode{Kind: KindScalar}
}

// refName extracts the definition name from a local reference such as
// "#/definitions/Store", "#/$defs/Store" or "#/defs/Store". Non-local
// references yield "".
func refName(ref string) string {
	for _, prefix := range []string{"#/definitions/", "#/$defs/", "#/defs/"} {
		if rest, ok := strings.CutPrefix(ref, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return rest
		}
	}
	return ""
}

// rawValue is a minimal order-preserving JSON tree. encoding/json maps lose
// key order, and property order is load-bearing here.
type rawKind int

const (
	rawNull rawKind = iota
	rawObject
	rawArray
	rawString
	rawOther
)

type rawValue struct {
	kind rawKind
	obj  map[string]*rawValue
	keys []string
	arr  []*rawValue
	str  string
}

func decodeRaw(dec *json.Decoder) (*rawValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeRawToken(dec, tok)
}

func decodeRawToken(dec *json.Decoder, tok json.Token) (*rawValue, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := &rawValue{kind: rawObject, obj: map[string]*rawValue{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeRaw(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := v.obj[key]; !dup {
					v.keys = append(v.keys, key)
				}
				v.obj[key] = val
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return v, nil
		case '[':
			v := &rawValue{kind: rawArray}
			for dec.More() {
				item, err := decodeRaw(dec)
				if err != nil {
					return nil, err
				}
				v.arr = append(v.arr, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return v, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return &rawValue{kind: rawString, str: t}, nil
	case nil:
		return &rawValue{kind: rawNull}, nil
	default:
		return &rawValue{kind: rawOther}, nil
	}
}
