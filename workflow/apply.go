package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/specgov/resolve"
	"github.com/c360studio/specgov/spec"
	"github.com/c360studio/specgov/validation"
)

// renameFile is the atomic-replace step, indirected for failure testing.
var renameFile = os.Rename

// backupStamp is the layout of backup-file timestamps (UTC).
const backupStamp = "20060102-150405"

// ApplyErrorKind classifies an apply failure for exit-code mapping.
type ApplyErrorKind string

const (
	// ApplyValidationFailed means strict validation produced failing
	// diagnostics. Nothing was written.
	ApplyValidationFailed ApplyErrorKind = "ValidationFailed"
	// ApplyResolutionFailed means the delta could not be merged. Nothing was
	// written.
	ApplyResolutionFailed ApplyErrorKind = "ResolutionFailed"
	// ApplyWriteFailed means the final write failed. The original baseline
	// is untouched and the backup remains.
	ApplyWriteFailed ApplyErrorKind = "WriteFailed"
)

// ApplyError is the typed failure of one apply operation.
type ApplyError struct {
	Kind        ApplyErrorKind
	Capability  string
	Diagnostics []validation.Diagnostic
	Err         error
}

// Error implements error.
func (e *ApplyError) Error() string {
	switch {
	case e.Err != nil && e.Capability != "":
		return fmt.Sprintf("apply %s (%s): %v", e.Kind, e.Capability, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("apply %s: %v", e.Kind, e.Err)
	case e.Capability != "":
		return fmt.Sprintf("apply %s (%s): %d diagnostics", e.Kind, e.Capability, len(e.Diagnostics))
	default:
		return fmt.Sprintf("apply %s: %d diagnostics", e.Kind, len(e.Diagnostics))
	}
}

// Unwrap exposes the underlying error, if any.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// CapabilityResult summarizes the merge outcome for one capability.
type CapabilityResult struct {
	Capability         string `json:"capability"`
	Added              int    `json:"added"`
	Modified           int    `json:"modified"`
	Removed            int    `json:"removed"`
	Renamed            int    `json:"renamed"`
	RequirementsBefore int    `json:"requirements_before"`
	RequirementsAfter  int    `json:"requirements_after"`
}

// AuditEntry records a removal's reason and migration. Removed requirements
// leave no trace in the merged baseline, so this is where the reason lives.
type AuditEntry struct {
	Capability  string `json:"capability"`
	Requirement string `json:"requirement"`
	Reason      string `json:"reason"`
	Migration   string `json:"migration,omitempty"`
}

// ApplySummary reports one apply operation.
type ApplySummary struct {
	ID           string             `json:"id"`
	Change       string             `json:"change"`
	DryRun       bool               `json:"dry_run"`
	AppliedAt    time.Time          `json:"applied_at"`
	Capabilities []CapabilityResult `json:"capabilities"`
	Audit        []AuditEntry       `json:"audit,omitempty"`
}

// Applier orchestrates parse, validate, resolve, and the atomic baseline
// write for one change set.
type Applier struct {
	mgr    *Manager
	logger *slog.Logger
}

// NewApplier creates an applier over the given store.
func NewApplier(mgr *Manager, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{mgr: mgr, logger: logger}
}

// Apply validates, resolves, and merges every capability delta of a change
// set into its baseline. With dryRun the merge is computed but nothing
// touches disk. Validation runs in strict mode: any failing diagnostic
// aborts before a single byte is written.
func (a *Applier) Apply(ctx context.Context, slug string, dryRun bool) (*ApplySummary, error) {
	change, err := a.mgr.LoadChange(slug)
	if err != nil {
		return nil, err
	}
	if change.Status == StatusArchived {
		return nil, fmt.Errorf("change '%s' is archived", slug)
	}

	deltas, err := a.mgr.DeltaFiles(slug)
	if err != nil {
		return nil, err
	}
	if len(deltas) == 0 {
		return nil, &ApplyError{Kind: ApplyValidationFailed, Diagnostics: []validation.Diagnostic{{
			Kind:     validation.KindNoDeltaOperation,
			Severity: validation.SeverityError,
			Message:  "change set contains no delta spec files",
		}}}
	}

	summary := &ApplySummary{
		ID:        uuid.New().String(),
		Change:    slug,
		DryRun:    dryRun,
		AppliedAt: time.Now().UTC(),
	}

	type pendingWrite struct {
		capability string
		merged     *spec.CapabilityDocument
	}
	var writes []pendingWrite

	for _, delta := range deltas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, parseDiags := a.mgr.parseDelta(delta)
		if validation.HasFailures(parseDiags) {
			return nil, &ApplyError{Kind: ApplyValidationFailed, Capability: delta.Capability, Diagnostics: parseDiags}
		}

		baseline, err := a.mgr.LoadBaseline(delta.Capability)
		if err != nil {
			return nil, &ApplyError{Kind: ApplyValidationFailed, Capability: delta.Capability, Err: err}
		}

		diags := validation.Validate(doc, baseline, validation.Options{Strict: true})
		if validation.HasFailures(diags) {
			return nil, &ApplyError{Kind: ApplyValidationFailed, Capability: delta.Capability, Diagnostics: diags}
		}

		merged, resolveDiags := resolve.Resolve(baseline, doc)
		if merged == nil {
			return nil, &ApplyError{Kind: ApplyResolutionFailed, Capability: delta.Capability, Diagnostics: resolveDiags}
		}

		counts := doc.CountByOp()
		summary.Capabilities = append(summary.Capabilities, CapabilityResult{
			Capability:         delta.Capability,
			Added:              counts[spec.OpAdded],
			Modified:           counts[spec.OpModified],
			Removed:            counts[spec.OpRemoved],
			Renamed:            counts[spec.OpRenamed],
			RequirementsBefore: len(baseline.Requirements),
			RequirementsAfter:  len(merged.Requirements),
		})
		for _, section := range doc.Sections {
			if section.Op != spec.OpRemoved {
				continue
			}
			for _, rem := range section.Removals {
				summary.Audit = append(summary.Audit, AuditEntry{
					Capability:  delta.Capability,
					Requirement: rem.Name,
					Reason:      rem.Reason,
					Migration:   rem.Migration,
				})
			}
		}

		writes = append(writes, pendingWrite{capability: delta.Capability, merged: merged})
	}

	if dryRun {
		a.logger.Info("dry run complete", "change", slug, "capabilities", len(writes))
		return summary, nil
	}

	for _, w := range writes {
		if err := a.writeBaseline(w.capability, w.merged, summary.AppliedAt); err != nil {
			return nil, err
		}
	}

	if err := a.writeAppliedMarker(slug, summary); err != nil {
		a.logger.Warn("failed to write applied marker", "change", slug, "error", err)
	}
	if err := a.appendAuditLog(summary); err != nil {
		a.logger.Warn("failed to append audit log", "change", slug, "error", err)
	}
	if err := a.mgr.UpdateChangeStatus(slug, StatusApplied); err != nil {
		a.logger.Warn("failed to update change status", "change", slug, "error", err)
	}

	a.logger.Info("change applied", "change", slug, "summary_id", summary.ID,
		"capabilities", len(summary.Capabilities))
	return summary, nil
}

// writeBaseline backs up the existing baseline file, then atomically
// replaces it with the merged document (write-temp-then-rename). A failed
// rename leaves the original untouched and the backup in place.
func (a *Applier) writeBaseline(capability string, merged *spec.CapabilityDocument, stamp time.Time) error {
	path := a.mgr.BaselinePath(capability)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: err}
	}

	// CreateTemp makes the file 0600; the baseline keeps its existing mode.
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()

		backup := fmt.Sprintf("%s.%s.bak", path, stamp.Format(backupStamp))
		if err := copyFile(path, backup); err != nil {
			return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: fmt.Errorf("backup: %w", err)}
		}
		a.logger.Debug("baseline backed up", "capability", capability, "backup", backup)
	}

	tmp, err := os.CreateTemp(dir, SpecFile+".tmp-*")
	if err != nil {
		return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: err}
	}
	tmpPath := tmp.Name()

	rendered := spec.Render(merged)
	if _, err := tmp.WriteString(rendered); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: err}
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: err}
	}

	if err := renameFile(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &ApplyError{Kind: ApplyWriteFailed, Capability: capability, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

func (a *Applier) writeAppliedMarker(slug string, summary *ApplySummary) error {
	marker := struct {
		SummaryID string    `json:"summary_id"`
		AppliedAt time.Time `json:"applied_at"`
	}{SummaryID: summary.ID, AppliedAt: summary.AppliedAt}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.mgr.ChangePath(slug), AppliedMarkerFile), data, 0644)
}

// appendAuditLog appends the summary as one JSON line. Removal reasons and
// migrations survive only here.
func (a *Applier) appendAuditLog(summary *ApplySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(a.mgr.ApplyLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// copyFile copies src to dst, creating or truncating dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}
