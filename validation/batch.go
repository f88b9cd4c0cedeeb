package validation

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// UnitFunc validates one change set by name and returns its diagnostics.
// Each invocation must be independent: no shared mutable state, no baseline
// mutation. The batch runner calls units concurrently.
type UnitFunc func(ctx context.Context, name string) []Diagnostic

// BatchOptions configures a batch validation run.
type BatchOptions struct {
	// Concurrency bounds the worker pool. Zero or negative means NumCPU.
	Concurrency int
}

// BatchReport aggregates per-change-set diagnostics. Results are keyed by
// change-set name, never by completion order, so the report is identical
// regardless of scheduling.
type BatchReport struct {
	Results map[string][]Diagnostic `json:"results"`
	Passed  int                     `json:"passed"`
	Failed  int                     `json:"failed"`
}

// Names returns the change-set names in sorted order. All rendering iterates
// this, which is what makes batch output deterministic.
func (r *BatchReport) Names() []string {
	names := make([]string, 0, len(r.Results))
	for name := range r.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pass reports whether no change set had a failing diagnostic.
func (r *BatchReport) Pass() bool {
	return r.Failed == 0
}

// ValidateAll runs unit over every named change set on a bounded worker pool
// and merges the results by name. Cancellation is honored between units:
// already-computed results are still reported alongside ctx.Err().
func ValidateAll(ctx context.Context, names []string, unit UnitFunc, opts BatchOptions) (*BatchReport, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	report := &BatchReport{Results: make(map[string][]Diagnostic, len(names))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, name := range names {
		name := name
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			diags := unit(gctx, name)
			mu.Lock()
			report.Results[name] = diags
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	for _, diags := range report.Results {
		if HasFailures(diags) {
			report.Failed++
		} else {
			report.Passed++
		}
	}

	return report, ctx.Err()
}
