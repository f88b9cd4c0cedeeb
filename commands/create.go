package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCreateCmd(app *App) *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create a new change set",
		Long: `Scaffolds a change set directory under changes/ with a slug derived
from the description. Delta documents go under the change set's specs/ tree.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")
			change, err := app.Manager.CreateChange(description, author)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created change %s\n", change.Slug)
			fmt.Fprintf(cmd.OutOrStdout(), "Add deltas under %s\n",
				app.Manager.ChangePath(change.Slug))
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Change author")
	return cmd
}
