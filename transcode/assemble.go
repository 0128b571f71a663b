package transcode

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// AssembleRequest carries one transcoding call's inputs. Schema, Hierarchy
// and Patterns are alternatives on a gradient of precomputation: a raw
// Schema is analyzed and compiled on the fly, while a caller that caches per
// schema revision can pass Hierarchy and Patterns directly. ContainerField
// overrides schema-derived container detection when set.
type AssembleRequest struct {
	Snapshot map[string]any

	Schema         *Document
	Hierarchy      FieldHierarchy
	Patterns       []Pattern
	ContainerField string

	Workflow   string
	RevisionID string
	Identifier string
}

type nestedGroup struct {
	outer, inner int
	fields       map[string]any
}

// Assemble reconstructs the nested container array from the flat snapshot
// and wraps it into the backend envelope. The snapshot is never mutated; all
// returned structures are newly built.
//
// With no schema, no precomputed hierarchy and no fallback container field,
// Assemble fails with ErrSchemaMissing rather than guessing.
func (t *Transcoder) Assemble(req AssembleRequest) (*Envelope, error) {
	container := req.ContainerField
	if container == "" && req.Schema != nil {
		if name, ok := req.Schema.ContainerField(); ok {
			container = name
		}
	}
	if container == "" {
		container = t.fallbackContainer
	}
	if container == "" {
		if req.Schema == nil {
			return nil, ErrSchemaMissing
		}
		return nil, fmt.Errorf("transcode: schema has no array-typed root property: %w", ErrSchemaMissing)
	}

	hierarchy := req.Hierarchy
	if hierarchy == nil && req.Schema != nil {
		hierarchy = req.Schema.Hierarchy()
	}

	patterns := req.Patterns
	if patterns == nil && len(hierarchy) > 0 {
		patterns = GeneratePatterns(hierarchy)
	}
	if len(patterns) == 0 && len(hierarchy) > 0 {
		t.log.Warn("pattern generation yielded no matchers, falling back to legacy prefix matching",
			slog.String("container", container))
	}

	var legacyNames []string
	if req.Schema != nil {
		legacyNames = req.Schema.ArrayFieldNames()
	} else {
		legacyNames = append([]string{container}, legacyDefaultPrefixes...)
	}
	legacy := compileLegacyMatchers(legacyNames)

	branchTable, discFields := t.unionVocabulary(hierarchy)

	// Group indexed keys by (array field, index). Nested-array keys carry
	// both the outer and inner index and are routed to their own groups.
	containerEntry := hierarchy[container]
	nestedNames := append([]string(nil), containerEntry.ArrayFields...)
	sort.Strings(nestedNames)

	nestedRes := make(map[string]*regexp.Regexp, len(nestedNames))
	for _, a := range nestedNames {
		re, err := regexp.Compile(`^` + regexp.QuoteMeta(container) + `_(\d+)_` + regexp.QuoteMeta(a) + `_(\d+)_(.+)$`)
		if err != nil {
			continue
		}
		nestedRes[a] = re
	}
	containerRe := regexp.MustCompile(`^` + regexp.QuoteMeta(container) + `_(\d+)_(.+)$`)

	consumed := map[string]bool{}
	containerGroups := map[int]map[string]any{}
	nestedGroups := map[string][]nestedGroup{}

	keys := make([]string, 0, len(req.Snapshot))
	for key := range req.Snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

scan:
	for _, key := range keys {
		value := req.Snapshot[key]
		for _, a := range nestedNames {
			re := nestedRes[a]
			if re == nil {
				continue
			}
			m := re.FindStringSubmatch(key)
			if m == nil {
				continue
			}
			outer, okOuter := indexSubmatch(m, 1)
			inner, okInner := indexSubmatch(m, 2)
			if !okOuter || !okInner {
				continue scan // malformed index: leave for passthrough
			}
			nestedGroups[a] = addNestedField(nestedGroups[a], outer, inner, key, value)
			consumed[key] = true
			continue scan
		}
		if m := containerRe.FindStringSubmatch(key); m != nil {
			idx, ok := indexSubmatch(m, 1)
			if !ok {
				continue
			}
			group := containerGroups[idx]
			if group == nil {
				group = map[string]any{}
				containerGroups[idx] = group
			}
			group[key] = value
			consumed[key] = true
		}
	}

	// Reconstruct container items, growing the array with placeholders so
	// sparse indices land where the form put them.
	var arr []any
	for _, idx := range sortedIndices(containerGroups) {
		arr = growItems(arr, idx)
		arr[idx] = t.reconstructItem(container, containerGroups[idx], patterns, legacy, branchTable, discFields)
	}

	// Merge nested-array items into their owning container items.
	for _, a := range nestedNames {
		groups := nestedGroups[a]
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].outer != groups[j].outer {
				return groups[i].outer < groups[j].outer
			}
			return groups[i].inner < groups[j].inner
		})
		scope := container + "_" + a
		for _, g := range groups {
			arr = growItems(arr, g.outer)
			parent, ok := arr[g.outer].(map[string]any)
			if !ok {
				parent = map[string]any{}
				arr[g.outer] = parent
			}
			list, _ := parent[a].([]any)
			list = growItems(list, g.inner)
			item := t.reconstructItem(scope, g.fields, patterns, legacy, branchTable, discFields)
			if existing, ok := list[g.inner].(map[string]any); ok && len(existing) > 0 {
				mergeItem(existing, item)
			} else {
				list[g.inner] = item
			}
			parent[a] = list
		}
	}

	t.repairDoubleNesting(arr, container)

	// Everything not consumed stays in the user prompt, minus the raw
	// container field itself and transient union-selector keys.
	userPrompt := map[string]any{}
	for key, value := range req.Snapshot {
		if consumed[key] || key == container || isSelectorKey(key, discFields) {
			continue
		}
		userPrompt[key] = value
	}

	userPrompt["revision_id"] = req.RevisionID
	identifier := req.Identifier
	if identifier == "" {
		identifier = NewCorrelationID()
	}
	userPrompt["identifier"] = identifier
	userPrompt[container] = arr

	flow := req.Workflow
	if flow == "" {
		flow = UnknownWorkflow
	}

	return &Envelope{UserPrompt: userPrompt, ConversationFlow: flow}, nil
}

// repairDoubleNesting fixes container items that themselves contain a
// property named after the container field, which happens when the schema
// and the rendered form disagree by one nesting level. The property is
// removed and, when it held a non-empty array, the first element's fields
// are folded into the outer item. Later elements are discarded; the repair
// is deliberately lossy and logged.
func (t *Transcoder) repairDoubleNesting(arr []any, container string) {
	for i, el := range arr {
		item, ok := el.(map[string]any)
		if !ok {
			continue
		}
		inner, present := item[container]
		if !present {
			continue
		}
		delete(item, container)
		t.log.Debug("repaired double-nested container item",
			slog.String("container", container), slog.Int("index", i))
		list, ok := inner.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if first, ok := list[0].(map[string]any); ok {
			for k, v := range first {
				if _, exists := item[k]; !exists {
					item[k] = v
				}
			}
		}
	}
}

// unionVocabulary derives the discriminator vocabulary from the hierarchy:
// the set of union field names (plus the configured default) and the global
// lowercased-token to canonical-branch-name table.
func (t *Transcoder) unionVocabulary(h FieldHierarchy) (map[string]string, map[string]bool) {
	branchTable := map[string]string{}
	discFields := map[string]bool{t.discriminator: true}
	for _, entry := range h {
		for name, ns := range entry.NestedObjects {
			if ns.Kind != NestedUnion {
				continue
			}
			discFields[name] = true
			for _, branch := range ns.Branches {
				branchTable[strings.ToLower(branch)] = branch
			}
		}
	}
	return branchTable, discFields
}

// isSelectorKey reports whether a leftover key is a transient union-selector
// field (its final underscore segment names a discriminator).
func isSelectorKey(key string, discFields map[string]bool) bool {
	for field := range discFields {
		if key == field || strings.HasSuffix(key, "_"+field) {
			return true
		}
	}
	return false
}

func addNestedField(groups []nestedGroup, outer, inner int, key string, value any) []nestedGroup {
	for i := range groups {
		if groups[i].outer == outer && groups[i].inner == inner {
			groups[i].fields[key] = value
			return groups
		}
	}
	return append(groups, nestedGroup{outer: outer, inner: inner, fields: map[string]any{key: value}})
}

func growItems(list []any, idx int) []any {
	for len(list) <= idx {
		list = append(list, map[string]any{})
	}
	return list
}

func sortedIndices(groups map[int]map[string]any) []int {
	out := make([]int, 0, len(groups))
	for idx := range groups {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// mergeItem folds src into dst recursively: maps merge key-wise, slices
// merge index-wise, and scalar conflicts resolve in favor of src.
func mergeItem(dst, src map[string]any) {
	for k, sv := range src {
		if dm, ok := dst[k].(map[string]any); ok {
			if sm, ok := sv.(map[string]any); ok {
				mergeItem(dm, sm)
				continue
			}
		}
		if dl, ok := dst[k].([]any); ok {
			if sl, ok := sv.([]any); ok {
				dst[k] = mergeLists(dl, sl)
				continue
			}
		}
		dst[k] = sv
	}
}

func mergeLists(dst, src []any) []any {
	dst = growItems(dst, len(src)-1)
	for i, sv := range src {
		if dm, ok := dst[i].(map[string]any); ok {
			if sm, ok := sv.(map[string]any); ok {
				mergeItem(dm, sm)
				continue
			}
		}
		dst[i] = sv
	}
	return dst
}
