// Package reconcile compares a rule's desired attributes with the live
// attributes of a running process and classifies each comparison.
package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"ruleomatic/internal/types"
)

// Verdict is the outcome of comparing one attribute.
type Verdict int

const (
	// OK means the rule sets the attribute and the process matches.
	OK Verdict = iota
	// Mismatch means the rule sets the attribute and the process differs.
	Mismatch
	// InfoOnly means the rule has no target but the process has a value.
	InfoOnly
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case Mismatch:
		return "mismatch"
	case InfoOnly:
		return "info"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Attribute labels, in report order.
const (
	AttrNice        = "Nice"
	AttrLatencyNice = "LatNice"
	AttrSched       = "Sched"
	AttrIOClass     = "IO"
	AttrOOM         = "OOM"
	AttrCgroup      = "Cgroup"
)

// Attributes lists every attribute Reconcile can report on, in order.
var Attributes = []string{AttrNice, AttrLatencyNice, AttrSched, AttrIOClass, AttrOOM, AttrCgroup}

// Check is the verdict for one attribute. Want is empty for InfoOnly.
// Want and Have are display strings; cgroup paths are already shortened.
type Check struct {
	Attribute string  `json:"attribute"`
	Verdict   Verdict `json:"verdict"`
	Want      string  `json:"want,omitempty"`
	Have      string  `json:"have"`
}

// String renders the check as it appears in a status line, e.g. "Nice ok",
// "Nice 5! (want 0)" or "Nice: 5".
func (c Check) String() string {
	switch c.Verdict {
	case OK:
		return c.Attribute + " ok"
	case Mismatch:
		return fmt.Sprintf("%s %s! (want %s)", c.Attribute, c.Have, c.Want)
	default:
		return fmt.Sprintf("%s: %s", c.Attribute, c.Have)
	}
}

// MarshalText lets JSON output carry the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Result is the reconciliation of one rule against the live process table.
type Result struct {
	Rule    types.EnrichedRule `json:"rule"`
	Process *types.ProcessInfo `json:"process,omitempty"`
	Checks  []Check            `json:"checks,omitempty"`
}

// Active reports whether a matching process was found.
func (r Result) Active() bool {
	return r.Process != nil
}

// Mismatches counts the checks with a Mismatch verdict.
func (r Result) Mismatches() int {
	n := 0
	for _, c := range r.Checks {
		if c.Verdict == Mismatch {
			n++
		}
	}
	return n
}

// StatusLine joins the checks with " | ".
func (r Result) StatusLine() string {
	parts := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " | ")
}

// Reconcile compares rule against the first process in procs. procs is
// expected to hold the processes whose name matches the rule; with no
// process the result carries no checks.
func Reconcile(rule types.EnrichedRule, procs []types.ProcessInfo) Result {
	res := Result{Rule: rule}
	if len(procs) == 0 {
		return res
	}
	proc := procs[0]
	res.Process = &proc
	res.Checks = Compare(rule.Data, proc)
	return res
}

// Compare produces one Check per attribute that is set on the rule or on
// the process, in Attributes order.
func Compare(rule types.Rule, proc types.ProcessInfo) []Check {
	var checks []Check
	add := func(c *Check) {
		if c != nil {
			checks = append(checks, *c)
		}
	}

	add(compare(AttrNice, rule.Nice, proc.Nice, intEqual, strconv.Itoa))
	add(compare(AttrLatencyNice, rule.LatencyNice, proc.LatencyNice, intEqual, strconv.Itoa))
	add(compare(AttrSched, rule.Sched, proc.SchedPolicy, strings.EqualFold, identity))
	add(compare(AttrIOClass, rule.IOClass, proc.IOClass, strings.EqualFold, identity))
	add(compare(AttrOOM, rule.OOMScoreAdj, proc.OOMScoreAdj, intEqual, strconv.Itoa))
	add(compare(AttrCgroup, rule.Cgroup, proc.Cgroup, strings.EqualFold, ShortenCgroup))
	return checks
}

// compare classifies one attribute. equal decides OK versus Mismatch and
// format renders values for display. It returns nil when neither side has
// a value.
func compare[T any](attr string, want, have *T, equal func(a, b T) bool, format func(T) string) *Check {
	switch {
	case want != nil && have != nil:
		c := &Check{Attribute: attr, Want: format(*want), Have: format(*have)}
		if equal(*want, *have) {
			c.Verdict = OK
		} else {
			c.Verdict = Mismatch
		}
		return c
	case have != nil:
		return &Check{Attribute: attr, Verdict: InfoOnly, Have: format(*have)}
	default:
		return nil
	}
}

func intEqual(a, b int) bool { return a == b }

func identity(s string) string { return s }

// userSlicePrefix marks the per-user hierarchy that grows deep enough to
// need shortening.
const userSlicePrefix = "/user.slice"

// ShortenCgroup abbreviates deep per-user cgroup paths to their last two
// segments, e.g. "/user.slice/user-1000.slice/user@1000.service/app.slice/x.scope"
// becomes ".../app.slice/x.scope". Other paths are returned unchanged. It is
// for display only.
func ShortenCgroup(path string) string {
	if path == "/" {
		return path
	}
	parts := strings.Split(path, "/")
	if len(parts) > 4 && strings.HasPrefix(path, userSlicePrefix) {
		return ".../" + strings.Join(parts[len(parts)-2:], "/")
	}
	return path
}
