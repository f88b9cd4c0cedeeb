package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgov/workflow"
)

func newArchiveCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "archive <change>",
		Short: "Archive an applied change set",
		Long: `Moves an applied change set into the archive, dated by application day.
The copy is verified file by file before the source is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archiver := workflow.NewArchiverWithRoot(app.Manager, app.Logger, app.Config.Archive.Root)
			dest, err := archiver.Archive(args[0], date)
			if err != nil {
				var archiveErr *workflow.ArchiveError
				if errors.As(err, &archiveErr) {
					return &ExitError{Code: 1, Err: archiveErr}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s to %s\n", args[0], dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Archive date (YYYY-MM-DD, defaults to today)")
	return cmd
}
