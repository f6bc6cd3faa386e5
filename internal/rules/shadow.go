package rules

import "ruleomatic/internal/types"

// ResolveShadowing marks every rule whose name (case-insensitive) is used
// again later in rules as shadowed. The last occurrence of a name stays
// active. Rules without a name never shadow each other. rules must be in
// load order; only the Shadowed flag is modified.
func ResolveShadowing(rules []types.EnrichedRule) {
	last := make(map[string]int, len(rules))
	for i := range rules {
		if key, ok := rules[i].NameKey(); ok {
			last[key] = i
		}
	}
	for i := range rules {
		key, ok := rules[i].NameKey()
		rules[i].Shadowed = ok && last[key] != i
	}
}

// ActiveRule returns the unshadowed rule for name, if any.
func ActiveRule(rules []types.EnrichedRule, name string) (types.EnrichedRule, bool) {
	want := types.EnrichedRule{Data: types.Rule{Name: &name}}
	wantKey, _ := want.NameKey()
	for _, r := range rules {
		if key, ok := r.NameKey(); ok && key == wantKey && !r.Shadowed {
			return r, true
		}
	}
	return types.EnrichedRule{}, false
}
