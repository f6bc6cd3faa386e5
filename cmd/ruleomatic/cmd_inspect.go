package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ruleomatic/cmd/ruleomatic/ui"
	"ruleomatic/internal/reconcile"
	"ruleomatic/internal/rules"
	"ruleomatic/internal/types"
)

var inspectPlain bool

// inspectCmd shows every rule for one process name
var inspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Show every rule for a process name and how each running process compares",
	Long: `Lists every rule named <name> across all rule directories in load order,
marking the one that wins and the ones it shadows, then compares the winning
rule with every running process of that name.

Example:
  ruleomatic inspect firefox
  ruleomatic inspect --plain pipewire | less`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectPlain, "plain", false, "Print Markdown without terminal rendering")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	name := args[0]

	variants, err := newRuleService().Variants(name)
	if err != nil {
		return err
	}

	dossier := ui.Dossier{Name: name, Variants: variants}
	if active, ok := rules.ActiveRule(variants, name); ok {
		procs, err := takeSnapshot(ctx).Processes(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to read processes for %s: %w", name, err)
		}
		for _, p := range procs {
			dossier.Results = append(dossier.Results, reconcile.Reconcile(active, []types.ProcessInfo{p}))
		}
	}

	return writeMarkdown(cmd.OutOrStdout(), dossier.Markdown())
}

func writeMarkdown(w io.Writer, md string) error {
	if inspectPlain || !isTerminal(w) {
		_, err := io.WriteString(w, md)
		return err
	}
	rendered, err := ui.RenderMarkdown(md, terminalWidth(w))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}
