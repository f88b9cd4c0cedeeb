package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Store.Dir != ".specgov" {
		t.Errorf("expected store dir .specgov, got %s", config.Store.Dir)
	}
	if config.Validation.Strict {
		t.Error("expected strict to default to false")
	}
	if config.Validation.Concurrency != 0 {
		t.Errorf("expected concurrency 0, got %d", config.Validation.Concurrency)
	}
	if config.Validation.WatchDebounce != 300*time.Millisecond {
		t.Errorf("expected debounce 300ms, got %s", config.Validation.WatchDebounce)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty store dir",
			mutate:  func(c *Config) { c.Store.Dir = "" },
			wantErr: true,
		},
		{
			name:    "absolute store dir",
			mutate:  func(c *Config) { c.Store.Dir = "/var/specgov" },
			wantErr: true,
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.Validation.Concurrency = -1 },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.Validation.WatchDebounce = -time.Second },
			wantErr: true,
		},
		{
			name:    "explicit concurrency",
			mutate:  func(c *Config) { c.Validation.Concurrency = 8 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	config := DefaultConfig()
	config.Store.Dir = ".governance"
	config.Validation.Strict = true
	config.Validation.Concurrency = 4

	if err := config.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if loaded.Store.Dir != ".governance" {
		t.Errorf("expected store dir .governance, got %s", loaded.Store.Dir)
	}
	if !loaded.Validation.Strict {
		t.Error("expected strict true after round trip")
	}
	if loaded.Validation.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", loaded.Validation.Concurrency)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{
		Store:    StoreConfig{Dir: ".custom"},
		Validation: ValidateConfig{Strict: true, Concurrency: 2},
		Archive:  ArchiveConfig{Root: "/mnt/archive"},
	}

	base.Merge(overlay)

	if base.Store.Dir != ".custom" {
		t.Errorf("expected merged dir .custom, got %s", base.Store.Dir)
	}
	if !base.Validation.Strict {
		t.Error("expected merged strict true")
	}
	if base.Validation.Concurrency != 2 {
		t.Errorf("expected merged concurrency 2, got %d", base.Validation.Concurrency)
	}
	if base.Archive.Root != "/mnt/archive" {
		t.Errorf("expected merged archive root, got %s", base.Archive.Root)
	}
	// Zero values in the overlay leave the base untouched.
	if base.Validation.WatchDebounce != 300*time.Millisecond {
		t.Errorf("expected debounce preserved, got %s", base.Validation.WatchDebounce)
	}
}

func TestMergeNil(t *testing.T) {
	base := DefaultConfig()
	base.Merge(nil)
	if base.Store.Dir != ".specgov" {
		t.Error("merge with nil should be a no-op")
	}
}

func TestLoaderExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "specgov.yaml")

	project := DefaultConfig()
	project.Validation.Strict = true
	if err := project.SaveToFile(path); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	config, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !config.Validation.Strict {
		t.Error("expected strict from explicit config")
	}
	if config.Store.Repo == "" {
		t.Error("expected repo to default to working directory")
	}
}

func TestLoaderExplicitPathMissing(t *testing.T) {
	loader := NewLoader(nil)
	if _, err := loader.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
