package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgov/validation"
)

func newValidateCmd(app *App) *cobra.Command {
	var (
		all         bool
		strict      bool
		jsonOut     bool
		concurrency int
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "validate [change]",
		Short: "Validate change set deltas against the baseline",
		Long: `Validates a change set's delta documents: structure, normative language,
scenario coverage, and baseline references. With --all, validates every
change set concurrently. Exits 1 when any error-severity diagnostic is found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("specify either a change name or --all")
			}

			opts := validation.Options{Strict: strict || app.Config.Validation.Strict}
			if concurrency == 0 {
				concurrency = app.Config.Validation.Concurrency
			}

			runOnce := func() error {
				if all {
					return validateAll(cmd, app, opts, concurrency, jsonOut)
				}
				return validateOne(cmd, app, args[0], opts, jsonOut)
			}

			if !watch {
				return runOnce()
			}

			report := func() {
				if err := runOnce(); err != nil {
					var exitErr *ExitError
					if !asExitError(err, &exitErr) {
						app.Logger.Error("validation run failed", "error", err)
					}
				}
			}
			report()
			err := app.Manager.WatchChanges(cmd.Context(), app.Logger,
				app.Config.Validation.WatchDebounce, report)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Validate every change set")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat formatting warnings as errors")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output diagnostics as JSON")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Batch worker count (0 = number of CPUs)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Revalidate on change set file modifications")
	return cmd
}

func validateOne(cmd *cobra.Command, app *App, slug string, opts validation.Options, jsonOut bool) error {
	diags, err := app.Manager.ValidateChange(slug, opts)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(diags); err != nil {
			return err
		}
	} else {
		renderDiagnostics(cmd.OutOrStdout(), slug, diags)
	}

	if validation.HasFailures(diags) {
		return &ExitError{Code: 1, Err: fmt.Errorf("change %q failed validation", slug)}
	}
	return nil
}

func validateAll(cmd *cobra.Command, app *App, opts validation.Options, concurrency int, jsonOut bool) error {
	report, err := app.Manager.ValidateAll(cmd.Context(), opts, validation.BatchOptions{Concurrency: concurrency})
	if report == nil {
		return err
	}

	// Completed results are still rendered when the run was cancelled.
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	} else {
		for _, name := range report.Names() {
			renderDiagnostics(cmd.OutOrStdout(), name, report.Results[name])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed\n", report.Passed, report.Failed)
	}

	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d change set(s) failed validation", report.Failed)}
	}
	return nil
}
