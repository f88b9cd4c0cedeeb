package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the specification store",
		Long:  "Creates the store directory layout (specs, changes, archive) under the repository root.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Manager.EnsureDirectories(); err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized specification store at %s\n", app.Manager.RootPath())
			return nil
		},
	}
}
