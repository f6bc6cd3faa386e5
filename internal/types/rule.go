// Package types holds the data model shared by the rule loader, the process
// snapshot and the reconciliation engine. It has no dependencies beyond the
// standard library so every other package can import it.
package types

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Rule is one declarative ananicy rule as it appears on a single line of a
// .rules file. Every field is optional; unknown JSON fields are ignored.
type Rule struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	Nice        *int    `json:"nice,omitempty"`
	LatencyNice *int    `json:"latency_nice,omitempty"`
	Sched       *string `json:"sched,omitempty"`
	RTPrio      *int    `json:"rtprio,omitempty"`
	IOClass     *string `json:"ioclass,omitempty"`
	OOMScoreAdj *int    `json:"oom_score_adj,omitempty"`
	Cgroup      *string `json:"cgroup,omitempty"`
}

// NameOr returns the rule name, or fallback when the rule has none.
func (r Rule) NameOr(fallback string) string {
	if r.Name == nil {
		return fallback
	}
	return *r.Name
}

// IsEmpty reports whether no field is set. Such rules are legal but inert.
func (r Rule) IsEmpty() bool {
	return r.Name == nil && r.Type == nil && r.Nice == nil && r.LatencyNice == nil &&
		r.Sched == nil && r.RTPrio == nil && r.IOClass == nil && r.OOMScoreAdj == nil &&
		r.Cgroup == nil
}

// SearchFields returns the textual forms of every field that participates in
// substring search, in a fixed order. Missing fields are skipped.
func (r Rule) SearchFields() []string {
	var out []string
	for _, s := range []*string{r.Name, r.Type, r.Sched, r.IOClass, r.Cgroup} {
		if s != nil {
			out = append(out, *s)
		}
	}
	for _, n := range []*int{r.Nice, r.LatencyNice, r.RTPrio, r.OOMScoreAdj} {
		if n != nil {
			out = append(out, strconv.Itoa(*n))
		}
	}
	return out
}

// EnrichedRule is a Rule plus where it came from and whether a later rule
// with the same name overrides it.
type EnrichedRule struct {
	Data           Rule    `json:"data"`
	ContextComment *string `json:"context_comment,omitempty"`
	SourceFile     string  `json:"source_file"`
	Shadowed       bool    `json:"shadowed"`
}

// Category is the name of the directory that contains the rule file, e.g.
// "00-default" for /etc/ananicy.d/00-default/games.rules.
func (e EnrichedRule) Category() string {
	dir := filepath.Dir(e.SourceFile)
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "root"
	}
	return base
}

// NameKey is the case-insensitive identity used for shadowing and process
// matching. ok is false when the rule has no name.
func (e EnrichedRule) NameKey() (key string, ok bool) {
	if e.Data.Name == nil {
		return "", false
	}
	return strings.ToLower(*e.Data.Name), true
}

// Ptr returns a pointer to v. It keeps rule literals in tests readable.
func Ptr[T any](v T) *T {
	return &v
}
