package transcode

import (
	"regexp"
	"slices"
	"sort"
)

// maxArrayDepth bounds hierarchy recursion for pathological (cyclic or very
// deep) schemas. Keys below this depth are still captured at assembly time by
// the generic nested-array pattern.
const maxArrayDepth = 4

// legacyDefaultPrefixes is the placeholder prefix pair used when a schema
// declares no array-typed properties at all.
var legacyDefaultPrefixes = []string{"items", "entries"}

// FieldHierarchy maps an array field name to the structure of that array's
// items. The container field is keyed by its own name; a nested array is
// keyed "{parent}_{nested}" so that sibling arrays with the same name under
// different parents stay distinct.
type FieldHierarchy map[string]ArrayItemStructure

// ArrayItemStructure describes the item shape of one array field.
type ArrayItemStructure struct {
	// DirectFields are scalar properties assigned at the item's own level.
	DirectFields []string

	// NestedObjects are object-shaped properties, keyed by property name.
	NestedObjects map[string]NestedStructure

	// ArrayFields are the names of array-typed properties inside the item.
	ArrayFields []string

	// keyPrefix is the regexp fragment matching the underscore path leading
	// to one item of this array, e.g. `stores` or `stores_(\d+)_bike_sales`.
	keyPrefix string
	depth     int
}

// NestedKind discriminates NestedStructure variants.
type NestedKind int

const (
	// NestedSimple is an inline object; Fields lists its property names.
	NestedSimple NestedKind = iota
	// NestedUnion is an anyOf over references; Fields is the union of all
	// member property names and Branches the member definition names.
	NestedUnion
	// NestedReference is a plain $ref to another object definition.
	NestedReference
)

// NestedStructure describes one object-shaped property of an array item.
type NestedStructure struct {
	Kind     NestedKind
	RefName  string   // referenced definition name (NestedReference)
	Fields   []string // property names grouped under this object
	Branches []string // union member definition names, in anyOf order (NestedUnion)
}

// ContainerField returns the name of the first array-typed property of the
// document's root object, in source property order. The second return is
// false when the root declares no array property.
//
// When a schema declares multiple array-typed root properties the first one
// encountered wins; this mirrors the behavior of the form renderer that
// produces the flat key space.
func (d *Document) ContainerField() (string, bool) {
	if d == nil {
		return "", false
	}
	root := d.Resolve(d.Root)
	if root == nil || root.Kind != KindObject {
		return "", false
	}
	for _, name := range root.Order {
		if root.Properties[name].Kind == KindArray {
			return name, true
		}
	}
	return "", false
}

// ArrayFieldNames collects every array-typed property name across the root
// object and all definitions. The result is used only as a legacy fallback
// prefix list when dynamic patterns cannot be derived. When the schema
// declares no arrays at all, a fixed placeholder pair is returned so legacy
// matching still has something to strip.
func (d *Document) ArrayFieldNames() []string {
	if d == nil {
		return slices.Clone(legacyDefaultPrefixes)
	}

	var names []string
	collect := func(node *SchemaNode) {
		node = d.Resolve(node)
		if node == nil || node.Kind != KindObject {
			return
		}
		for _, pname := range node.Order {
			if node.Properties[pname].Kind == KindArray {
				if !slices.Contains(names, pname) {
					names = append(names, pname)
				}
			}
		}
	}

	collect(d.Root)
	defNames := make([]string, 0, len(d.Defs))
	for name := range d.Defs {
		defNames = append(defNames, name)
	}
	sort.Strings(defNames)
	for _, name := range defNames {
		collect(d.Defs[name])
	}

	if len(names) == 0 {
		return slices.Clone(legacyDefaultPrefixes)
	}
	return names
}

// Hierarchy walks every array-typed root property, resolves its item
// reference and classifies the item's properties into direct fields, nested
// objects (simple, union or reference) and nested arrays, recursing into the
// latter. Malformed or unresolvable branches degrade to empty structures
// rather than aborting the analysis.
func (d *Document) Hierarchy() FieldHierarchy {
	h := FieldHierarchy{}
	if d == nil {
		return h
	}
	root := d.Resolve(d.Root)
	if root == nil || root.Kind != KindObject {
		return h
	}
	for _, name := range root.Order {
		prop := root.Properties[name]
		if prop.Kind == KindArray {
			d.addArrayEntry(h, name, regexp.QuoteMeta(name), 1, prop)
		}
	}
	return h
}

func (d *Document) addArrayEntry(h FieldHierarchy, key, prefix string, depth int, arr *SchemaNode) {
	if _, exists := h[key]; exists || depth > maxArrayDepth {
		return
	}
	entry := ArrayItemStructure{
		NestedObjects: map[string]NestedStructure{},
		keyPrefix:     prefix,
		depth:         depth,
	}
	h[key] = entry

	item := d.Resolve(arr.Items)
	if item == nil || item.Kind != KindObject {
		// Unresolvable item shape: keep the (empty) entry, degrade quietly.
		return
	}

	for _, pname := range item.Order {
		prop := item.Properties[pname]
		switch prop.Kind {
		case KindArray:
			entry.ArrayFields = append(entry.ArrayFields, pname)
			childKey := key + "_" + pname
			childPrefix := prefix + `_(\d+)_` + regexp.QuoteMeta(pname)
			d.addArrayEntry(h, childKey, childPrefix, depth+1, prop)
		case KindUnion:
			entry.NestedObjects[pname] = d.unionStructure(prop)
		case KindReference:
			if resolved := d.Resolve(prop); resolved != nil && resolved.Kind == KindObject {
				entry.NestedObjects[pname] = NestedStructure{
					Kind:    NestedReference,
					RefName: prop.Ref,
					Fields:  slices.Clone(resolved.Order),
				}
			} else {
				entry.NestedObjects[pname] = NestedStructure{Kind: NestedReference, RefName: prop.Ref}
			}
		case KindObject:
			entry.NestedObjects[pname] = NestedStructure{Kind: NestedSimple, Fields: slices.Clone(prop.Order)}
		default:
			entry.DirectFields = append(entry.DirectFields, pname)
		}
	}

	h[key] = entry
}

// unionStructure collects the union of all resolvable member property names.
// Members that fail to resolve are skipped, not fatal.
func (d *Document) unionStructure(node *SchemaNode) NestedStructure {
	ns := NestedStructure{Kind: NestedUnion}
	for _, branch := range node.Branches {
		name := ""
		if branch.Kind == KindReference {
			name = branch.Ref
		}
		resolved := d.Resolve(branch)
		if resolved == nil || resolved.Kind != KindObject {
			continue
		}
		if name == "" {
			name = resolved.Name
		}
		if name != "" && !slices.Contains(ns.Branches, name) {
			ns.Branches = append(ns.Branches, name)
		}
		for _, f := range resolved.Order {
			if !slices.Contains(ns.Fields, f) {
				ns.Fields = append(ns.Fields, f)
			}
		}
	}
	return ns
}
