// Package metrics exposes rule and verdict counts as Prometheus metrics,
// written out in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ruleomatic/internal/reconcile"
	"ruleomatic/internal/rules"
)

// Recorder owns a private registry so one process can build several
// independent reports.
type Recorder struct {
	Registry *prometheus.Registry

	RulesLoaded     prometheus.Gauge
	RulesShadowed   prometheus.Gauge
	RulesActive     prometheus.Gauge
	FilesFailed     prometheus.Counter
	LinesSkipped    prometheus.Counter
	ProcessesSeen   prometheus.Gauge
	Verdicts        *prometheus.GaugeVec
	RulesMismatched prometheus.Gauge
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,

		RulesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ruleomatic_rules_loaded",
			Help: "Number of rules loaded from all rule directories.",
		}),
		RulesShadowed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ruleomatic_rules_shadowed",
			Help: "Number of loaded rules overridden by a later rule with the same name.",
		}),
		RulesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ruleomatic_rules_active",
			Help: "Number of reported rules with at least one running process.",
		}),
		FilesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ruleomatic_rule_files_failed_total",
			Help: "Total number of rule files that could not be read.",
		}),
		LinesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ruleomatic_rule_lines_skipped_total",
			Help: "Total number of malformed rule lines skipped.",
		}),
		ProcessesSeen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ruleomatic_processes_scanned",
			Help: "Number of processes in the last process table scan.",
		}),
		Verdicts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ruleomatic_verdicts",
			Help: "Attribute comparisons in the last report, labelled by attribute and verdict.",
		}, []string{"attribute", "verdict"}),
		RulesMismatched: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ruleomatic_rules_mismatched",
			Help: "Number of reported rules whose running process differs in at least one attribute.",
		}),
	}
}

// ObserveLoad records the outcome of a rule load. Shadowing must already be
// resolved on report.Rules.
func (r *Recorder) ObserveLoad(report *rules.LoadReport) {
	r.RulesLoaded.Set(float64(len(report.Rules)))

	shadowed := 0
	for _, rule := range report.Rules {
		if rule.Shadowed {
			shadowed++
		}
	}
	r.RulesShadowed.Set(float64(shadowed))
	r.FilesFailed.Add(float64(len(report.FailedFiles)))
	r.LinesSkipped.Add(float64(report.SkippedLines))
}

// ObserveProcesses records the size of the process table.
func (r *Recorder) ObserveProcesses(n int) {
	r.ProcessesSeen.Set(float64(n))
}

// ObserveResults replaces the verdict gauges with the counts in results.
// Every attribute and verdict pair is exported, zero when absent.
func (r *Recorder) ObserveResults(results []reconcile.Result) {
	r.Verdicts.Reset()
	for _, attr := range reconcile.Attributes {
		for _, v := range []reconcile.Verdict{reconcile.OK, reconcile.Mismatch, reconcile.InfoOnly} {
			r.Verdicts.WithLabelValues(attr, v.String()).Set(0)
		}
	}

	active, mismatched := 0, 0
	for _, res := range results {
		if !res.Active() {
			continue
		}
		active++
		if res.Mismatches() > 0 {
			mismatched++
		}
		for _, c := range res.Checks {
			r.Verdicts.WithLabelValues(c.Attribute, c.Verdict.String()).Inc()
		}
	}
	r.RulesActive.Set(float64(active))
	r.RulesMismatched.Set(float64(mismatched))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
