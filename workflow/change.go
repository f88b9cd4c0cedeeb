package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status represents the current state of a change set.
type Status string

const (
	// StatusDraft indicates the change has been created but not validated.
	StatusDraft Status = "draft"
	// StatusValidated indicates the change passed strict validation.
	StatusValidated Status = "validated"
	// StatusApplied indicates the change has been merged into its baselines.
	StatusApplied Status = "applied"
	// StatusArchived indicates the change has been moved to the archive.
	StatusArchived Status = "archived"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusValidated, StatusApplied, StatusArchived:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status can transition to target.
// Apply runs validation itself, so draft may go straight to applied.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusValidated || target == StatusApplied
	case StatusValidated:
		return target == StatusApplied || target == StatusDraft
	case StatusApplied:
		return target == StatusArchived
	default:
		return false
	}
}

// ChangeFiles reports which companion files exist for a change. The engine
// never parses proposal or task text; it only passes the paths through.
type ChangeFiles struct {
	HasProposal bool `json:"has_proposal"`
	HasTasks    bool `json:"has_tasks"`
}

// Change is the metadata record of one change set.
type Change struct {
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      Status      `json:"status"`
	Author      string      `json:"author,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Files       ChangeFiles `json:"files"`
}

// CreateChange creates a new change directory with initial metadata.
func (m *Manager) CreateChange(description, author string) (*Change, error) {
	if err := m.EnsureDirectories(); err != nil {
		return nil, err
	}

	slug := Slugify(description)
	if slug == "" {
		return nil, fmt.Errorf("description must produce a valid slug")
	}

	changePath := m.ChangePath(slug)
	if _, err := os.Stat(changePath); err == nil {
		return nil, fmt.Errorf("change '%s' already exists", slug)
	}

	if err := os.MkdirAll(filepath.Join(changePath, SpecsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create change directory: %w", err)
	}

	now := time.Now()
	change := &Change{
		Slug:        slug,
		Title:       description,
		Description: description,
		Status:      StatusDraft,
		Author:      author,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.SaveChangeMetadata(change); err != nil {
		os.RemoveAll(changePath)
		return nil, err
	}
	return change, nil
}

// SaveChangeMetadata saves the change metadata to metadata.json.
func (m *Manager) SaveChangeMetadata(change *Change) error {
	metadataPath := filepath.Join(m.ChangePath(change.Slug), MetadataFile)

	data, err := json.MarshalIndent(change, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// LoadChange loads a change from its directory. A missing metadata file is
// tolerated: deltas can be dropped into a directory by hand, so the change
// is synthesized with draft status.
func (m *Manager) LoadChange(slug string) (*Change, error) {
	changePath := m.ChangePath(slug)
	if info, err := os.Stat(changePath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("change '%s' not found", slug)
	}

	change := &Change{Slug: slug, Title: slug, Status: StatusDraft}

	data, err := os.ReadFile(filepath.Join(changePath, MetadataFile))
	if err == nil {
		if err := json.Unmarshal(data, change); err != nil {
			return nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		change.Slug = slug
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	change.Files.HasProposal = fileExists(filepath.Join(changePath, ProposalFile))
	change.Files.HasTasks = fileExists(filepath.Join(changePath, TasksFile))

	return change, nil
}

// ListChanges returns all active changes, sorted by slug.
func (m *Manager) ListChanges() ([]*Change, error) {
	names, err := m.ListChangeNames()
	if err != nil {
		return nil, err
	}

	var changes []*Change
	for _, name := range names {
		change, err := m.LoadChange(name)
		if err != nil {
			continue
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// UpdateChangeStatus transitions a change to a new status and persists it.
func (m *Manager) UpdateChangeStatus(slug string, status Status) error {
	change, err := m.LoadChange(slug)
	if err != nil {
		return err
	}
	if change.Status == status {
		return nil
	}
	if !change.Status.CanTransitionTo(status) {
		return fmt.Errorf("cannot transition from %s to %s", change.Status, status)
	}

	change.Status = status
	change.UpdatedAt = time.Now()
	return m.SaveChangeMetadata(change)
}

// IsApplied reports whether the change carries the applied marker.
func (m *Manager) IsApplied(slug string) bool {
	return fileExists(filepath.Join(m.ChangePath(slug), AppliedMarkerFile))
}
