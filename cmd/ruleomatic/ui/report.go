package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ruleomatic/internal/reconcile"
)

// RenderCheck styles one check by verdict.
func (s Styles) RenderCheck(c reconcile.Check) string {
	switch c.Verdict {
	case reconcile.OK:
		return s.OK.Render(c.String())
	case reconcile.Mismatch:
		return s.Mismatch.Render(c.String())
	default:
		return s.Muted.Render(c.String())
	}
}

// RenderStatus joins the styled checks of res with " | ".
func (s Styles) RenderStatus(res reconcile.Result) string {
	parts := make([]string, 0, len(res.Checks))
	for _, c := range res.Checks {
		parts = append(parts, s.RenderCheck(c))
	}
	return strings.Join(parts, " | ")
}

// WriteReport prints the search report for results, one block per rule.
func WriteReport(w io.Writer, results []reconcile.Result, s Styles) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, s.Nice.Render("No rules found."))
		return err
	}

	var b strings.Builder
	b.WriteString(s.OK.Render(fmt.Sprintf("Found %d rules.", len(results))))
	b.WriteString("\n\n")

	for _, res := range results {
		writeRule(&b, res, s)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRule(b *strings.Builder, res reconcile.Result, s Styles) {
	rule := res.Rule
	data := rule.Data
	name := data.NameOr("unknown")

	display := s.Name.Render(name)
	if res.Active() {
		display = s.Active.Render(fmt.Sprintf("%s [ACTIVE] (PID: %d)", name, res.Process.PID))
	}
	fmt.Fprintf(b, "[%s] Name: %s", s.Category.Render(rule.Category()), display)
	if rule.Shadowed {
		b.WriteString(" " + s.Shadowed.Render("(Shadowed)"))
	}

	field := func(label, value string) {
		fmt.Fprintf(b, " | %s: %s", label, value)
	}
	if data.Type != nil {
		field("Type", s.Value.Render(*data.Type))
	}
	if data.Nice != nil {
		field("Nice", s.Nice.Render(strconv.Itoa(*data.Nice)))
	}
	if data.LatencyNice != nil {
		field("Latency", s.Latency.Render(strconv.Itoa(*data.LatencyNice)))
	}
	if data.Sched != nil {
		field("Sched", *data.Sched)
	}
	if data.IOClass != nil {
		field("IO", *data.IOClass)
	}
	if data.RTPrio != nil {
		field("Static priority", strconv.Itoa(*data.RTPrio))
	}
	if data.OOMScoreAdj != nil {
		field("Out of memory killer score", strconv.Itoa(*data.OOMScoreAdj))
	}
	if data.Cgroup != nil {
		field("Cgroup", reconcile.ShortenCgroup(*data.Cgroup))
	}
	b.WriteString("\n")

	if len(res.Checks) > 0 {
		fmt.Fprintf(b, "  ↳ Status: %s\n", s.RenderStatus(res))
	}

	fmt.Fprintf(b, "  File: %s\n", s.Muted.Render(rule.SourceFile))

	if rule.ContextComment != nil {
		b.WriteString("  Info:\n")
		for _, line := range strings.Split(*rule.ContextComment, "\n") {
			fmt.Fprintf(b, "    %s\n", s.Italic.Render(line))
		}
	}
	b.WriteString("\n")
}
