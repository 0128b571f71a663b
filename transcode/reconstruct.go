package transcode

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxItemIndex caps parsed array indices. A form will never legitimately
// post thousands of rows; anything above this is treated as unmatched input
// rather than an instruction to allocate.
const maxItemIndex = 4096

type legacyMatcher struct {
	name string
	re   *regexp.Regexp
}

func compileLegacyMatchers(names []string) []legacyMatcher {
	out := make([]legacyMatcher, 0, len(names))
	for _, name := range names {
		re, err := regexp.Compile(`^` + regexp.QuoteMeta(name) + `_(\d+)_(.+)$`)
		if err != nil {
			continue
		}
		out = append(out, legacyMatcher{name: name, re: re})
	}
	return out
}

// reconstructItem transforms the flat key/value pairs belonging to one array
// item into a structured object. scope names the hierarchy entry the item
// belongs to; patterns are tried in order, then legacy prefix stripping, and
// finally the key is assigned unchanged at the top level (a diagnostic, never
// a failure). Grouped sub-object assignments are merged in last, and any
// discriminator-named field is mapped through the branch table.
func (t *Transcoder) reconstructItem(scope string, raw map[string]any, patterns []Pattern, legacy []legacyMatcher, branchTable map[string]string, discFields map[string]bool) map[string]any {
	item := map[string]any{}
	grouped := map[string]map[string]any{}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]

		claimed := false
		for i := range patterns {
			p := &patterns[i]
			m := p.re.FindStringSubmatch(key)
			if m == nil {
				continue
			}
			t.applyPattern(scope, p, m, value, item, grouped)
			claimed = true
			break
		}
		if claimed {
			continue
		}

		if rest, ok := stripLegacyPrefix(key, legacy); ok {
			item[rest] = value
			continue
		}

		t.log.Debug("form key matched no pattern, assigning as-is",
			slog.String("scope", scope), slog.String("key", key))
		item[key] = value
	}

	for name, sub := range grouped {
		item[name] = sub
	}

	for field := range discFields {
		if token, ok := item[field].(string); ok {
			if canonical, known := branchTable[strings.ToLower(token)]; known {
				item[field] = canonical
			}
		}
	}

	return item
}

func (t *Transcoder) applyPattern(scope string, p *Pattern, m []string, value any, item map[string]any, grouped map[string]map[string]any) {
	switch p.Kind {
	case PatternFlattenedUnion:
		rest := submatch(m, p.restGroup)
		if rest == "" {
			// Bare discriminator key: the value selects the branch.
			item[p.Group] = mapBranchValue(value, p.branchTokens)
			return
		}
		if token, remainder, ok := splitBranchToken(rest, p.branchTokens); ok {
			item[p.Group] = p.branchTokens[token]
			if remainder != "" {
				item[remainder] = value
			}
			return
		}
		if !p.memberFields[rest] {
			t.log.Debug("union key property not declared by any member",
				slog.String("scope", scope), slog.String("union", p.Group), slog.String("property", rest))
		}
		item[rest] = value

	case PatternFlattenedDirect, PatternDirect:
		item[p.Field] = value

	case PatternNestedArrayDirect:
		if p.ArrayField == scope {
			item[p.Field] = value
			return
		}
		if idx, ok := indexSubmatch(m, p.innerGroup); ok {
			setNestedField(item, p.Nested, idx, p.Field, value)
		}

	case PatternNestedArrayGeneric:
		field := submatch(m, p.restGroup)
		if p.ArrayField == scope {
			item[field] = value
			return
		}
		if idx, ok := indexSubmatch(m, p.innerGroup); ok {
			setNestedField(item, p.Nested, idx, field, value)
		}

	case PatternSimpleNested, PatternReferenceNested:
		sub := grouped[p.Group]
		if sub == nil {
			sub = map[string]any{}
			grouped[p.Group] = sub
		}
		sub[p.Field] = value
	}
}

func stripLegacyPrefix(key string, legacy []legacyMatcher) (string, bool) {
	for _, lm := range legacy {
		if m := lm.re.FindStringSubmatch(key); m != nil {
			return m[2], true
		}
	}
	return "", false
}

// splitBranchToken finds the union branch token prefixing rest, preferring
// the longest token so that branch names sharing a prefix resolve correctly.
func splitBranchToken(rest string, tokens map[string]string) (token, remainder string, ok bool) {
	lower := strings.ToLower(rest)
	for t := range tokens {
		if lower == t && len(t) > len(token) {
			token, remainder, ok = t, "", true
		}
		if strings.HasPrefix(lower, t+"_") && len(t) > len(token) {
			token, remainder, ok = t, rest[len(t)+1:], true
		}
	}
	return token, remainder, ok
}

// mapBranchValue maps a raw discriminator value through the branch table.
// Unrecognized tokens pass through unchanged.
func mapBranchValue(value any, tokens map[string]string) any {
	if s, ok := value.(string); ok {
		if canonical, known := tokens[strings.ToLower(s)]; known {
			return canonical
		}
	}
	return value
}

// setNestedField assigns field=value into item[name][idx], growing the slice
// with empty placeholder objects as needed.
func setNestedField(item map[string]any, name string, idx int, field string, value any) {
	list, _ := item[name].([]any)
	for len(list) <= idx {
		list = append(list, map[string]any{})
	}
	entry, ok := list[idx].(map[string]any)
	if !ok {
		entry = map[string]any{}
		list[idx] = entry
	}
	entry[field] = value
	item[name] = list
}

func submatch(m []string, group int) string {
	if group <= 0 || group >= len(m) {
		return ""
	}
	return m[group]
}

func indexSubmatch(m []string, group int) (int, bool) {
	raw := submatch(m, group)
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx > maxItemIndex {
		return 0, false
	}
	return idx, true
}
