package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"ruleomatic/internal/reconcile"
	"ruleomatic/internal/types"
)

// Dossier describes everything known about one rule name: every loaded
// variant in load order and the live comparison for each running process.
type Dossier struct {
	Name     string
	Variants []types.EnrichedRule
	Results  []reconcile.Result
}

// Markdown renders the dossier as Markdown.
func (d Dossier) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Name)

	if len(d.Variants) == 0 {
		b.WriteString("No rule with this name is loaded.\n")
		return b.String()
	}

	b.WriteString("## Rules\n\n")
	for _, v := range d.Variants {
		state := "active"
		if v.Shadowed {
			state = "shadowed"
		}
		fmt.Fprintf(&b, "### %s (%s)\n\n", v.Category(), state)
		fmt.Fprintf(&b, "`%s`\n\n", v.SourceFile)
		writeFieldTable(&b, v.Data)
		if v.ContextComment != nil {
			for _, line := range strings.Split(*v.ContextComment, "\n") {
				fmt.Fprintf(&b, "> %s\n", strings.TrimSpace(strings.TrimPrefix(line, "#")))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Processes\n\n")
	if len(d.Results) == 0 {
		b.WriteString("Not running.\n")
		return b.String()
	}
	for _, res := range d.Results {
		if res.Process == nil {
			continue
		}
		fmt.Fprintf(&b, "### PID %d (%s)\n\n", res.Process.PID, res.Process.Name)
		if len(res.Checks) == 0 {
			b.WriteString("No attributes could be read.\n\n")
			continue
		}
		b.WriteString("| Attribute | Verdict | Live | Wanted |\n|---|---|---|---|\n")
		for _, c := range res.Checks {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.Attribute, c.Verdict, orDash(c.Have), orDash(c.Want))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeFieldTable(b *strings.Builder, r types.Rule) {
	rows := [][2]string{}
	str := func(label string, v *string) {
		if v != nil {
			rows = append(rows, [2]string{label, *v})
		}
	}
	num := func(label string, v *int) {
		if v != nil {
			rows = append(rows, [2]string{label, strconv.Itoa(*v)})
		}
	}
	str("type", r.Type)
	num("nice", r.Nice)
	num("latency_nice", r.LatencyNice)
	str("sched", r.Sched)
	num("rtprio", r.RTPrio)
	str("ioclass", r.IOClass)
	num("oom_score_adj", r.OOMScoreAdj)
	str("cgroup", r.Cgroup)

	if len(rows) == 0 {
		b.WriteString("No attributes set.\n\n")
		return
	}
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", row[0], row[1])
	}
	b.WriteString("\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderMarkdown renders md for a terminal of the given width.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
