package transcode

import (
	"regexp"
	"sort"
	"strings"
)

// PatternKind identifies the reconstruction action a Pattern carries.
type PatternKind int

const (
	// PatternFlattenedUnion matches "array_N_unionField_unionProperty" keys
	// and routes them through the union's branch table.
	PatternFlattenedUnion PatternKind = iota
	// PatternFlattenedDirect matches "array_N_field" keys inside a
	// union-bearing array item, ahead of the generic direct matcher.
	PatternFlattenedDirect
	// PatternNestedArrayDirect matches "parent_N_nested_M_field" keys for a
	// known direct field of the nested array's item.
	PatternNestedArrayDirect
	// PatternNestedArrayGeneric is the catch-all for any further nested
	// array depth under a known nested array name.
	PatternNestedArrayGeneric
	// PatternSimpleNested matches "array_N_obj_field" keys and groups the
	// value under the named sub-object.
	PatternSimpleNested
	// PatternReferenceNested matches "array_N_refField_prop" keys for a
	// $ref-typed object property.
	PatternReferenceNested
	// PatternDirect matches plain "array_N_field" keys at the array's own
	// level. Always last.
	PatternDirect
)

func (k PatternKind) String() string {
	switch k {
	case PatternFlattenedUnion:
		return "flattened_union"
	case PatternFlattenedDirect:
		return "flattened_direct"
	case PatternNestedArrayDirect:
		return "nested_array_direct"
	case PatternNestedArrayGeneric:
		return "nested_array_generic"
	case PatternSimpleNested:
		return "simple_nested"
	case PatternReferenceNested:
		return "reference_nested"
	default:
		return "direct"
	}
}

// Pattern is one compiled field-name matcher plus the metadata needed to
// place a matched value inside a reconstructed item. Patterns are immutable
// once compiled.
type Pattern struct {
	Kind PatternKind

	// ArrayField is the hierarchy key whose items this pattern targets.
	ArrayField string

	// Nested is the bare nested-array property name for the nested-array
	// kinds (ArrayField without its parent prefix).
	Nested string

	// Group is the sub-object name values are grouped under for the
	// simple-nested and reference-nested kinds, or the union field name for
	// flattened-union.
	Group string

	// Field is the fixed destination field name, empty when the destination
	// is captured from the key itself.
	Field string

	re         *regexp.Regexp
	restGroup  int // submatch index of the trailing capture, 0 if none
	innerGroup int // submatch index of the nested array index, 0 if none

	branchTokens map[string]string // lowercased member name -> canonical name
	memberFields map[string]bool   // union of member property names
}

// MatchString reports whether the pattern claims the given flat key.
func (p *Pattern) MatchString(key string) bool { return p.re.MatchString(key) }

// GeneratePatterns compiles the hierarchy into an ordered matcher list.
// Deeper array entries are emitted before shallower ones, and within one
// entry matchers follow a fixed priority (unions first, generic direct
// matchers last), so that a specific key is never claimed by an overly
// general pattern. Field names are regexp-escaped before compilation, so
// names containing matcher-special characters keep their literal meaning.
//
// Matchers that fail to compile are skipped; callers detect the fully
// degraded case by an empty result against a non-empty hierarchy and fall
// back to legacy prefix matching.
func GeneratePatterns(h FieldHierarchy) []Pattern {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if h[keys[i]].depth != h[keys[j]].depth {
			return h[keys[i]].depth > h[keys[j]].depth
		}
		return keys[i] < keys[j]
	})

	var patterns []Pattern
	for _, key := range keys {
		patterns = append(patterns, entryPatterns(h, key)...)
	}
	return patterns
}

func entryPatterns(h FieldHierarchy, key string) []Pattern {
	entry := h[key]
	if entry.keyPrefix == "" {
		// Hand-built hierarchies may omit the prefix; derive it from the key.
		entry.keyPrefix = regexp.QuoteMeta(key)
		entry.depth = 1
	}
	prefix := "^" + entry.keyPrefix + `_(\d+)_`
	depth := entry.depth

	nestedNames := sortedNestedNames(entry.NestedObjects)

	var out []Pattern
	add := func(p Pattern, expr string) {
		re, err := regexp.Compile(expr)
		if err != nil {
			return
		}
		p.re = re
		if p.ArrayField == "" {
			p.ArrayField = key
		}
		out = append(out, p)
	}

	// (1) Flattened union keys, e.g. "bike_sales_0_bike_mountainbike_price".
	// The optional trailing capture also claims the bare discriminator key
	// ("bike_sales_0_bike") so branch-selector values route through the same
	// branch table.
	hasUnion := false
	for _, name := range nestedNames {
		ns := entry.NestedObjects[name]
		if ns.Kind != NestedUnion {
			continue
		}
		hasUnion = true
		tokens := make(map[string]string, len(ns.Branches))
		for _, branch := range ns.Branches {
			tokens[strings.ToLower(branch)] = branch
		}
		members := make(map[string]bool, len(ns.Fields))
		for _, f := range ns.Fields {
			members[f] = true
		}
		add(Pattern{
			Kind:         PatternFlattenedUnion,
			Group:        name,
			restGroup:    depth + 1,
			branchTokens: tokens,
			memberFields: members,
		}, prefix+regexp.QuoteMeta(name)+`(?:_(.+))?$`)
	}

	// (2) Direct fields inside a union-bearing item, ahead of anything that
	// could claim them more loosely.
	if hasUnion {
		for _, f := range entry.DirectFields {
			add(Pattern{Kind: PatternFlattenedDirect, Field: f}, prefix+regexp.QuoteMeta(f)+`$`)
		}
	}

	// (3) Known direct fields of nested array items.
	for _, a := range entry.ArrayFields {
		childKey := key + "_" + a
		child := h[childKey]
		for _, g := range child.DirectFields {
			add(Pattern{
				Kind:       PatternNestedArrayDirect,
				ArrayField: childKey,
				Nested:     a,
				Field:      g,
				innerGroup: depth + 1,
			}, prefix+regexp.QuoteMeta(a)+`_(\d+)_`+regexp.QuoteMeta(g)+`$`)
		}
	}

	// (4) Generic catch-all for deeper nesting under a known nested array.
	for _, a := range entry.ArrayFields {
		add(Pattern{
			Kind:       PatternNestedArrayGeneric,
			ArrayField: key + "_" + a,
			Nested:     a,
			innerGroup: depth + 1,
			restGroup:  depth + 2,
		}, prefix+regexp.QuoteMeta(a)+`_(\d+)_(.+)$`)
	}

	// (5) Simple nested-object fields.
	for _, name := range nestedNames {
		ns := entry.NestedObjects[name]
		if ns.Kind != NestedSimple {
			continue
		}
		for _, f := range ns.Fields {
			add(Pattern{Kind: PatternSimpleNested, Group: name, Field: f},
				prefix+regexp.QuoteMeta(name)+`_`+regexp.QuoteMeta(f)+`$`)
		}
	}

	// (6) Reference-field properties.
	for _, name := range nestedNames {
		ns := entry.NestedObjects[name]
		if ns.Kind != NestedReference {
			continue
		}
		for _, f := range ns.Fields {
			add(Pattern{Kind: PatternReferenceNested, Group: name, Field: f},
				prefix+regexp.QuoteMeta(name)+`_`+regexp.QuoteMeta(f)+`$`)
		}
	}

	// (7) Plain direct fields, last.
	for _, f := range entry.DirectFields {
		add(Pattern{Kind: PatternDirect, Field: f}, prefix+regexp.QuoteMeta(f)+`$`)
	}

	return out
}

func sortedNestedNames(m map[string]NestedStructure) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// patternAt exists for tests poking at priority ordering.
func patternAt(patterns []Pattern, kind PatternKind, arrayField string) *Pattern {
	for i := range patterns {
		if patterns[i].Kind == kind && patterns[i].ArrayField == arrayField {
			return &patterns[i]
		}
	}
	return nil
}
