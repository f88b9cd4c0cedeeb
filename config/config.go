// Package config provides configuration loading and management for specgov.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete specgov configuration
type Config struct {
	Store      StoreConfig    `yaml:"store"`
	Validation ValidateConfig `yaml:"validation"`
	Archive    ArchiveConfig  `yaml:"archive"`
}

// StoreConfig configures the baseline store location
type StoreConfig struct {
	// Repo is the repository root path (defaults to the current directory)
	Repo string `yaml:"repo"`
	// Dir is the store directory name under the repo root (default: .specgov)
	Dir string `yaml:"dir"`
}

// ValidateConfig configures validation behavior
type ValidateConfig struct {
	// Strict treats formatting warnings as failing diagnostics
	Strict bool `yaml:"strict"`
	// Concurrency bounds the batch validation worker pool (0 = NumCPU)
	Concurrency int `yaml:"concurrency"`
	// WatchDebounce is the settle time before a watched revalidation runs
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// ArchiveConfig configures archive behavior
type ArchiveConfig struct {
	// Root overrides the archive location (default: <store>/archive)
	Root string `yaml:"root"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Repo: "", // Current directory
			Dir:  ".specgov",
		},
		Validation: ValidateConfig{
			Strict:        false,
			Concurrency:   0, // NumCPU
			WatchDebounce: 300 * time.Millisecond,
		},
		Archive: ArchiveConfig{
			Root: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	if filepath.IsAbs(c.Store.Dir) {
		return fmt.Errorf("store.dir must be relative to the repo root")
	}
	if c.Validation.Concurrency < 0 {
		return fmt.Errorf("validate.concurrency must not be negative")
	}
	if c.Validation.WatchDebounce < 0 {
		return fmt.Errorf("validate.watch_debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Store
	if other.Store.Repo != "" {
		c.Store.Repo = other.Store.Repo
	}
	if other.Store.Dir != "" {
		c.Store.Dir = other.Store.Dir
	}

	// Validate
	if other.Validation.Strict {
		c.Validation.Strict = true
	}
	if other.Validation.Concurrency != 0 {
		c.Validation.Concurrency = other.Validation.Concurrency
	}
	if other.Validation.WatchDebounce != 0 {
		c.Validation.WatchDebounce = other.Validation.WatchDebounce
	}

	// Archive
	if other.Archive.Root != "" {
		c.Archive.Root = other.Archive.Root
	}
}
