package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// UserConfigDir is the directory under the user config root
	UserConfigDir = "specgov"
	// UserConfigFile is the user-level config file name
	UserConfigFile = "config.yaml"
	// ProjectConfigFile is the project-level config file name
	ProjectConfigFile = "specgov.yaml"
)

// Loader handles layered configuration loading
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// defaults, then the user config file, then the project config file.
// An explicit path, if non-empty, replaces the project layer.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	// Layer 1: user config
	userPath, err := userConfigPath()
	if err != nil {
		l.logger.Debug("could not determine user config path", "error", err)
	} else if fileReadable(userPath) {
		userConfig, err := LoadFromFile(userPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load user config %s: %w", userPath, err)
		}
		config.Merge(userConfig)
		l.logger.Debug("loaded user config", "path", userPath)
	}

	// Layer 2: project config
	projectPath := explicitPath
	if projectPath == "" {
		projectPath = findProjectConfig()
	}
	if projectPath != "" {
		if !fileReadable(projectPath) {
			if explicitPath != "" {
				return nil, fmt.Errorf("config file not found: %s", explicitPath)
			}
		} else {
			projectConfig, err := LoadFromFile(projectPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load project config %s: %w", projectPath, err)
			}
			config.Merge(projectConfig)
			l.logger.Debug("loaded project config", "path", projectPath)
		}
	}

	if config.Store.Repo == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		config.Store.Repo = cwd
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// EnsureUserConfig writes a default user config file if none exists
func (l *Loader) EnsureUserConfig() (string, error) {
	path, err := userConfigPath()
	if err != nil {
		return "", err
	}

	if fileReadable(path) {
		return path, nil
	}

	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("created default user config", "path", path)
	return path, nil
}

// userConfigPath returns the user-level config file path
func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", UserConfigDir, UserConfigFile), nil
}

// findProjectConfig walks up from the working directory looking for a
// project config file. Returns "" when none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if fileReadable(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileReadable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
