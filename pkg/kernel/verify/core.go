package verify

import "sort"

// Core projection helpers. A core projection copies the raw document minus
// the ephemeral group and re-sorts every array with a documented order, so
// hashing is insensitive to presentation-order differences.

func stripEphemeral(doc map[string]any) map[string]any {
	core := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "ephemeral" {
			continue
		}
		core[k] = v
	}
	return core
}

// sortedCopy returns the items sorted by less without disturbing the input.
func sortedCopy(items []any, less func(a, b map[string]any) bool) []any {
	out := append([]any{}, items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].(map[string]any)
		b, bok := out[j].(map[string]any)
		if !aok || !bok {
			return false
		}
		return less(a, b)
	})
	return out
}

func byStringKey(key string) func(a, b map[string]any) bool {
	return func(a, b map[string]any) bool {
		as, _ := a[key].(string)
		bs, _ := b[key].(string)
		return as < bs
	}
}

func byIntKey(key string) func(a, b map[string]any) bool {
	return func(a, b map[string]any) bool {
		ai, _ := num(a[key])
		bi, _ := num(b[key])
		return ai < bi
	}
}

// byQuestionOrder is the documented question order: priority descending,
// then id ascending.
func byQuestionOrder(a, b map[string]any) bool {
	ap, _ := num(a["priority"])
	bp, _ := num(b["priority"])
	if ap != bp {
		return ap > bp
	}
	ai, _ := a["id"].(string)
	bi, _ := b["id"].(string)
	return ai < bi
}

// resortField replaces doc[field] with a sorted copy when it is an array.
func resortField(doc map[string]any, field string, less func(a, b map[string]any) bool) {
	if items, ok := doc[field].([]any); ok {
		doc[field] = sortedCopy(items, less)
	}
}

// inOrder reports whether items already follow less (non-strictly).
func inOrder(items []any, less func(a, b map[string]any) bool) bool {
	for i := 1; i < len(items); i++ {
		a, aok := items[i-1].(map[string]any)
		b, bok := items[i].(map[string]any)
		if !aok || !bok {
			continue
		}
		if less(b, a) {
			return false
		}
	}
	return true
}
