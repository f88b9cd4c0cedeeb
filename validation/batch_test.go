package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func fakeUnit(ctx context.Context, name string) []Diagnostic {
	// Change sets whose name ends in "-bad" fail with one diagnostic.
	if len(name) > 4 && name[len(name)-4:] == "-bad" {
		return []Diagnostic{{
			Kind:     KindMissingScenario,
			Severity: SeverityError,
			Message:  "requirement has no scenarios",
		}}
	}
	return nil
}

func TestValidateAll_Counts(t *testing.T) {
	names := []string{"add-auth", "add-rate-limit-bad", "update-search", "drop-legacy-bad"}

	report, err := ValidateAll(context.Background(), names, fakeUnit, BatchOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Passed != 2 || report.Failed != 2 {
		t.Errorf("passed=%d failed=%d, want 2/2", report.Passed, report.Failed)
	}
	if report.Pass() {
		t.Error("report with failures must not pass")
	}
	if len(report.Results) != len(names) {
		t.Errorf("results has %d entries, want %d", len(report.Results), len(names))
	}
}

func TestValidateAll_DeterministicAcrossConcurrency(t *testing.T) {
	var names []string
	for i := 0; i < 40; i++ {
		suffix := ""
		if i%3 == 0 {
			suffix = "-bad"
		}
		names = append(names, fmt.Sprintf("change-%02d%s", i, suffix))
	}

	slowUnit := func(ctx context.Context, name string) []Diagnostic {
		time.Sleep(time.Millisecond) // encourage out-of-order completion
		return fakeUnit(ctx, name)
	}

	serial, err := ValidateAll(context.Background(), names, slowUnit, BatchOptions{Concurrency: 1})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := ValidateAll(context.Background(), names, slowUnit, BatchOptions{Concurrency: 8})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(serial.Names(), parallel.Names()) {
		t.Error("name ordering differs across concurrency levels")
	}

	serialJSON := mustRenderJSON(t, serial)
	parallelJSON := mustRenderJSON(t, parallel)
	if serialJSON != parallelJSON {
		t.Errorf("report content differs across concurrency levels:\nserial:   %s\nparallel: %s", serialJSON, parallelJSON)
	}
}

// mustRenderJSON renders a report the way the CLI does: results iterated in
// sorted name order.
func mustRenderJSON(t *testing.T, r *BatchReport) string {
	t.Helper()
	type entry struct {
		Name  string       `json:"name"`
		Diags []Diagnostic `json:"diagnostics"`
	}
	var out struct {
		Entries []entry `json:"entries"`
		Passed  int     `json:"passed"`
		Failed  int     `json:"failed"`
	}
	for _, name := range r.Names() {
		out.Entries = append(out.Entries, entry{Name: name, Diags: r.Results[name]})
	}
	out.Passed = r.Passed
	out.Failed = r.Failed

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestValidateAll_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var names []string
	for i := 0; i < 100; i++ {
		names = append(names, fmt.Sprintf("change-%03d", i))
	}

	done := 0
	unit := func(ctx context.Context, name string) []Diagnostic {
		done++
		if done == 5 {
			cancel()
		}
		return nil
	}

	report, err := ValidateAll(ctx, names, unit, BatchOptions{Concurrency: 1})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(report.Results) == 0 {
		t.Error("partial results must still be reported after cancellation")
	}
	if len(report.Results) == len(names) {
		t.Error("cancellation should have stopped the run early")
	}
}

func TestValidateAll_DefaultConcurrency(t *testing.T) {
	report, err := ValidateAll(context.Background(), []string{"only"}, fakeUnit, BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed != 1 {
		t.Errorf("passed = %d, want 1", report.Passed)
	}
}
