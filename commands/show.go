package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgov/spec"
	"github.com/c360studio/specgov/workflow"
)

func newShowCmd(app *App) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <change>",
		Short: "Show a change set and a summary of its deltas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			change, err := app.Manager.LoadChange(slug)
			if err != nil {
				return err
			}
			deltas, err := app.Manager.DeltaFiles(slug)
			if err != nil {
				return fmt.Errorf("list deltas: %w", err)
			}

			summaries := make([]deltaSummary, 0, len(deltas))
			for _, d := range deltas {
				summaries = append(summaries, summarizeDelta(d))
			}

			if jsonOut {
				out := struct {
					*workflow.Change
					Deltas []deltaSummary `json:"deltas"`
				}{change, summaries}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Change:      %s\n", change.Slug)
			fmt.Fprintf(w, "Status:      %s\n", change.Status)
			if change.Description != "" {
				fmt.Fprintf(w, "Description: %s\n", change.Description)
			}
			if change.Author != "" {
				fmt.Fprintf(w, "Author:      %s\n", change.Author)
			}
			fmt.Fprintf(w, "Created:     %s\n", change.CreatedAt.Format("2006-01-02 15:04"))
			if len(summaries) == 0 {
				fmt.Fprintln(w, "Deltas:      none")
				return nil
			}
			fmt.Fprintln(w, "Deltas:")
			for _, s := range summaries {
				fmt.Fprintf(w, "  %s: %s\n", s.Capability, s.Summary)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

type deltaSummary struct {
	Capability string `json:"capability"`
	Path       string `json:"path"`
	Summary    string `json:"summary"`
}

func summarizeDelta(d workflow.DeltaFile) deltaSummary {
	s := deltaSummary{Capability: d.Capability, Path: d.Path}

	data, err := os.ReadFile(d.Path)
	if err != nil {
		s.Summary = fmt.Sprintf("unreadable: %v", err)
		return s
	}
	doc, err := spec.ParseChange(string(data))
	if err != nil {
		var parseErr *spec.ParseError
		if errors.As(err, &parseErr) && doc != nil {
			s.Summary = fmt.Sprintf("%s (%d structural issue(s))",
				spec.DescribeOps(doc), len(parseErr.Issues))
			return s
		}
		s.Summary = fmt.Sprintf("unparseable: %v", err)
		return s
	}
	s.Summary = spec.DescribeOps(doc)
	return s
}
