package rules

import (
	"fmt"
	"sort"
	"strings"

	"ruleomatic/internal/types"
)

// Loader produces rules in load order.
type Loader interface {
	LoadAll() ([]types.EnrichedRule, error)
}

// Service answers rule queries. It holds no rule state: every query reloads
// from the loader, so edits on disk are picked up on the next query.
type Service struct {
	loader Loader
}

// NewService creates a Service backed by loader.
func NewService(loader Loader) *Service {
	return &Service{loader: loader}
}

// All loads and resolves every rule, sorted by category then name.
func (s *Service) All() ([]types.EnrichedRule, error) {
	return s.Search("")
}

// Search loads the rules, resolves shadowing, keeps those matching query and
// sorts them by category then name. An empty query matches everything.
func (s *Service) Search(query string) ([]types.EnrichedRule, error) {
	loaded, err := s.loader.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	ResolveShadowing(loaded)

	result := Filter(loaded, query)
	SortRules(result)
	return result, nil
}

// Variants returns every loaded rule whose name matches name
// case-insensitively, in load order, with shadowing resolved.
func (s *Service) Variants(name string) ([]types.EnrichedRule, error) {
	loaded, err := s.loader.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	ResolveShadowing(loaded)

	want := strings.ToLower(name)
	var out []types.EnrichedRule
	for _, r := range loaded {
		if key, ok := r.NameKey(); ok && key == want {
			out = append(out, r)
		}
	}
	return out, nil
}

// Filter returns the rules where query occurs case-insensitively in any
// searchable field or in the context comment. rules is not modified.
func Filter(rules []types.EnrichedRule, query string) []types.EnrichedRule {
	out := make([]types.EnrichedRule, 0, len(rules))
	if query == "" {
		return append(out, rules...)
	}

	needle := strings.ToLower(query)
	for _, r := range rules {
		if matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r types.EnrichedRule, needle string) bool {
	for _, field := range r.Data.SearchFields() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return r.ContextComment != nil && strings.Contains(strings.ToLower(*r.ContextComment), needle)
}

// SortRules orders rules by lowercased category, then lowercased name.
// Equal keys keep their load order.
func SortRules(rules []types.EnrichedRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		ci, cj := strings.ToLower(rules[i].Category()), strings.ToLower(rules[j].Category())
		if ci != cj {
			return ci < cj
		}
		return strings.ToLower(rules[i].Data.NameOr("")) < strings.ToLower(rules[j].Data.NameOr(""))
	})
}
