package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgov/workflow"
)

func newApplyCmd(app *App) *cobra.Command {
	var (
		dryRun  bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "apply <change>",
		Short: "Apply a change set's deltas to the baseline store",
		Long: `Validates and resolves every delta in the change set, then writes the
merged baselines atomically. A timestamped backup of each touched baseline
is kept beside it. Exits 1 on validation or resolution failure and 2 when
a baseline write fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applier := workflow.NewApplier(app.Manager, app.Logger)
			summary, err := applier.Apply(cmd.Context(), args[0], dryRun)
			if err != nil {
				var applyErr *workflow.ApplyError
				if errors.As(err, &applyErr) {
					if !jsonOut {
						renderDiagnostics(cmd.OutOrStdout(), args[0], applyErr.Diagnostics)
					}
					code := 1
					if applyErr.Kind == workflow.ApplyWriteFailed {
						code = 2
					}
					return &ExitError{Code: code, Err: applyErr}
				}
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			w := cmd.OutOrStdout()
			verb := "Applied"
			if summary.DryRun {
				verb = "Would apply"
			}
			fmt.Fprintf(w, "%s change %s\n", verb, summary.Change)
			for _, c := range summary.Capabilities {
				fmt.Fprintf(w, "  %s: +%d added, %d modified, -%d removed, %d renamed (%d -> %d requirements)\n",
					c.Capability, c.Added, c.Modified, c.Removed, c.Renamed,
					c.RequirementsBefore, c.RequirementsAfter)
			}
			for _, a := range summary.Audit {
				fmt.Fprintf(w, "  removed %s/%s: %s\n", a.Capability, a.Requirement, a.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and report without writing")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the apply summary as JSON")
	return cmd
}
