// Package workflow provides the on-disk change-set store: the .specgov
// directory layout, change-set metadata, and the apply and archive
// operations that move deltas through their lifecycle.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Directory constants for the .specgov structure.
const (
	RootDir      = ".specgov"
	SpecsDir     = "specs"
	ChangesDir   = "changes"
	ArchiveDir   = "archive"
	SpecFile     = "spec.md"
	MetadataFile = "metadata.json"
	ProposalFile = "proposal.md"
	TasksFile    = "tasks.md"

	// AppliedMarkerFile is written into a change directory on successful
	// apply. The archiver refuses to archive without it.
	AppliedMarkerFile = ".applied"

	// ApplyLogFile is the audit log under the store root. Each apply appends
	// one JSON line, including removal reasons and migrations.
	ApplyLogFile = "apply-log.jsonl"
)

// Manager provides file operations for the specgov store.
type Manager struct {
	repoRoot string
	rootDir  string
}

// NewManager creates a manager for the given repository root using the
// default .specgov directory name.
func NewManager(repoRoot string) *Manager {
	return &Manager{repoRoot: repoRoot, rootDir: RootDir}
}

// NewManagerWithRoot creates a manager with a custom store directory name.
func NewManagerWithRoot(repoRoot, rootDir string) *Manager {
	if rootDir == "" {
		rootDir = RootDir
	}
	return &Manager{repoRoot: repoRoot, rootDir: rootDir}
}

// RootPath returns the full path to the store directory.
func (m *Manager) RootPath() string {
	return filepath.Join(m.repoRoot, m.rootDir)
}

// SpecsPath returns the path to the baseline specs directory.
func (m *Manager) SpecsPath() string {
	return filepath.Join(m.RootPath(), SpecsDir)
}

// ChangesPath returns the path to the active changes directory.
func (m *Manager) ChangesPath() string {
	return filepath.Join(m.RootPath(), ChangesDir)
}

// ArchivePath returns the path to the archive directory.
func (m *Manager) ArchivePath() string {
	return filepath.Join(m.RootPath(), ArchiveDir)
}

// ChangePath returns the path to a specific change directory.
func (m *Manager) ChangePath(slug string) string {
	return filepath.Join(m.ChangesPath(), slug)
}

// BaselinePath returns the path to a capability's baseline spec file.
func (m *Manager) BaselinePath(capability string) string {
	return filepath.Join(m.SpecsPath(), capability, SpecFile)
}

// ApplyLogPath returns the path to the apply audit log.
func (m *Manager) ApplyLogPath() string {
	return filepath.Join(m.RootPath(), ApplyLogFile)
}

// EnsureDirectories creates the store directory structure if missing.
func (m *Manager) EnsureDirectories() error {
	dirs := []string{
		m.RootPath(),
		m.SpecsPath(),
		m.ChangesPath(),
		m.ArchivePath(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DeltaFile is one capability delta document inside a change set.
type DeltaFile struct {
	// Capability is the capability the delta targets, taken from the
	// directory name under the change's specs/ tree.
	Capability string

	// Path is the absolute path to the delta spec file.
	Path string
}

// DeltaFiles returns the capability delta documents of a change set, sorted
// by capability name. Layout: <change>/specs/<capability>/spec.md.
func (m *Manager) DeltaFiles(slug string) ([]DeltaFile, error) {
	pattern := filepath.Join(m.ChangePath(slug), SpecsDir, "**", SpecFile)

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob delta specs: %w", err)
	}

	var files []DeltaFile
	for _, match := range matches {
		files = append(files, DeltaFile{
			Capability: filepath.Base(filepath.Dir(match)),
			Path:       match,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Capability < files[j].Capability })
	return files, nil
}

// ListChangeNames returns the names of all active change directories, sorted.
func (m *Manager) ListChangeNames() ([]string, error) {
	entries, err := os.ReadDir(m.ChangesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read changes directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashesRe  = regexp.MustCompile(`-+`)
)

// Slugify converts a description to a directory-friendly slug.
func Slugify(description string) string {
	slug := strings.ToLower(description)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = slugInvalidRe.ReplaceAllString(slug, "")
	slug = slugDashesRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
