package reconcile

import (
	"context"
	"fmt"

	"ruleomatic/internal/types"
)

// ProcessSource yields the live processes with a given name.
// *process.Snapshot satisfies it.
type ProcessSource interface {
	IsActive(name string) bool
	Processes(ctx context.Context, name string) ([]types.ProcessInfo, error)
}

// ForRule reconciles rule against the processes src reports for its name.
// Nameless rules and rules with no running process yield a Result without
// checks.
func ForRule(ctx context.Context, src ProcessSource, rule types.EnrichedRule) (Result, error) {
	name, ok := rule.NameKey()
	if !ok || !src.IsActive(name) {
		return Result{Rule: rule}, nil
	}
	procs, err := src.Processes(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read processes for %s: %w", name, err)
	}
	return Reconcile(rule, procs), nil
}

// ForRules reconciles every rule in order.
func ForRules(ctx context.Context, src ProcessSource, rules []types.EnrichedRule) ([]Result, error) {
	out := make([]Result, 0, len(rules))
	for _, r := range rules {
		res, err := ForRule(ctx, src, r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
