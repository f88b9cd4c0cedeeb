// Package commands provides the specgov CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgov/config"
	"github.com/c360studio/specgov/workflow"
)

// App carries the shared runtime state for all subcommands.
// It is populated by the root command's PersistentPreRunE.
type App struct {
	Config  *config.Config
	Manager *workflow.Manager
	Logger  *slog.Logger
}

// ExitError wraps a command failure with a process exit code.
// The main package maps it onto os.Exit.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Root builds the specgov root command with all subcommands attached.
func Root(version string) *cobra.Command {
	app := &App{}

	var (
		configPath string
		repoPath   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "specgov",
		Short: "Specification governance engine",
		Long: `Specgov manages capability specifications as governed markdown documents.

Change sets describe requirement deltas (added, modified, removed, renamed)
against baseline specs. Specgov validates deltas, applies them atomically
to the baseline store, and archives applied change sets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			slog.SetDefault(logger)

			loader := config.NewLoader(logger)
			cfg, err := loader.Load(configPath)
			if err != nil {
				return err
			}
			if repoPath != "" {
				abs, err := filepath.Abs(repoPath)
				if err != nil {
					return fmt.Errorf("resolve repo path: %w", err)
				}
				cfg.Store.Repo = abs
			}

			app.Config = cfg
			app.Logger = logger
			app.Manager = workflow.NewManagerWithRoot(cfg.Store.Repo, cfg.Store.Dir)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&repoPath, "repo", "", "Repository path to operate on")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newInitCmd(app),
		newCreateCmd(app),
		newListCmd(app),
		newShowCmd(app),
		newValidateCmd(app),
		newApplyCmd(app),
		newArchiveCmd(app),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "specgov version %s\n", version)
			},
		},
	)

	return cmd
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
