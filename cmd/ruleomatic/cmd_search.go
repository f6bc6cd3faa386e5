package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"ruleomatic/cmd/ruleomatic/ui"
	"ruleomatic/internal/metrics"
	"ruleomatic/internal/reconcile"
	"ruleomatic/internal/rules"
	"ruleomatic/internal/types"
)

var (
	searchJSON     bool
	searchTextfile string
)

// searchCmd prints the rules matching a query
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search rules and compare them with running processes",
	Long: `Searches every rule directory for rules whose name, type, scheduler,
IO class, cgroup, numeric values or comment contain the query
(case-insensitive). Without a query every rule is listed.

For each rule with a running process the live attributes are compared with
the rule: "ok" when they match, "!" with the wanted value when they differ.

Example:
  ruleomatic search firefox
  ruleomatic search --json bg_cpuio
  ruleomatic search --textfile /var/lib/node_exporter/ruleomatic.prom`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	searchCmd.Flags().StringVar(&searchTextfile, "textfile", "", "Also write Prometheus metrics to this file")
}

// reportingLoader keeps the report of the last load so the metrics see
// the same rules the search resolved.
type reportingLoader struct {
	repo *rules.Repository
	last *rules.LoadReport
}

func (l *reportingLoader) LoadAll() ([]types.EnrichedRule, error) {
	report, err := l.repo.Load()
	if err != nil {
		return nil, err
	}
	l.last = report
	return report.Rules, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	query := strings.TrimSpace(strings.Join(args, " "))

	loader := &reportingLoader{repo: rules.NewRepository(cfg.RulePaths)}
	found, err := rules.NewService(loader).Search(query)
	if err != nil {
		return err
	}

	snap := takeSnapshot(ctx)
	results, err := reconcile.ForRules(ctx, snap, found)
	if err != nil {
		return err
	}

	if searchTextfile != "" {
		rec := metrics.NewRecorder()
		rec.ObserveLoad(loader.last)
		rec.ObserveProcesses(snap.Len())
		rec.ObserveResults(results)
		if err := rec.WriteTextfile(searchTextfile); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return ui.WriteReport(out, results, outputStyles(out))
}
