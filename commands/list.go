package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List change sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := app.Manager.ListChanges()
			if err != nil {
				return fmt.Errorf("list changes: %w", err)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(changes)
			}

			if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No change sets found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tSTATUS\tUPDATED\tDESCRIPTION")
			for _, c := range changes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					c.Slug, c.Status, c.UpdatedAt.Format("2006-01-02"), c.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
