package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/c360studio/specgov/spec"
	"github.com/c360studio/specgov/validation"
)

// LoadBaseline reads and parses a capability's baseline document. A missing
// baseline file yields an empty document, so an ADDED-only delta can
// bootstrap a brand-new capability.
func (m *Manager) LoadBaseline(capability string) (*spec.CapabilityDocument, error) {
	data, err := os.ReadFile(m.BaselinePath(capability))
	if err != nil {
		if os.IsNotExist(err) {
			return &spec.CapabilityDocument{Capability: capability}, nil
		}
		return nil, fmt.Errorf("read baseline for %s: %w", capability, err)
	}

	doc, err := spec.ParseCapability(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse baseline for %s: %w", capability, err)
	}
	doc.Capability = capability
	return doc, nil
}

// ValidateChange validates every capability delta in a change set and
// returns the combined diagnostics. Structural parse failures and load
// failures are reported as diagnostics rather than aborting, so one pass
// surfaces everything wrong with the change.
func (m *Manager) ValidateChange(slug string, opts validation.Options) ([]validation.Diagnostic, error) {
	if _, err := m.LoadChange(slug); err != nil {
		return nil, err
	}

	deltas, err := m.DeltaFiles(slug)
	if err != nil {
		return nil, err
	}

	if len(deltas) == 0 {
		return []validation.Diagnostic{{
			Kind:     validation.KindNoDeltaOperation,
			Severity: validation.SeverityError,
			Message:  "change set contains no delta spec files",
		}}, nil
	}

	var diags []validation.Diagnostic
	for _, delta := range deltas {
		doc, parseDiags := m.parseDelta(delta)
		diags = append(diags, parseDiags...)
		if doc == nil {
			continue
		}

		baseline, err := m.LoadBaseline(delta.Capability)
		if err != nil {
			diags = append(diags, ioDiagnostic(delta.Capability, err))
			continue
		}

		diags = append(diags, validation.Validate(doc, baseline, opts)...)
	}

	return diags, nil
}

// ValidateAll validates every active change set on a bounded worker pool.
// Each change set is validated in isolation; load errors surface as
// diagnostics under the owning change-set name.
func (m *Manager) ValidateAll(ctx context.Context, opts validation.Options, batch validation.BatchOptions) (*validation.BatchReport, error) {
	names, err := m.ListChangeNames()
	if err != nil {
		return nil, err
	}

	unit := func(ctx context.Context, name string) []validation.Diagnostic {
		diags, err := m.ValidateChange(name, opts)
		if err != nil {
			return []validation.Diagnostic{ioDiagnostic("", err)}
		}
		return diags
	}

	return validation.ValidateAll(ctx, names, unit, batch)
}

// parseDelta reads and parses one delta file. Structural issues become
// diagnostics keyed by their parse-error kind; the document (possibly
// partial) is returned alongside so content rules still run.
func (m *Manager) parseDelta(delta DeltaFile) (*spec.ChangeDocument, []validation.Diagnostic) {
	data, err := os.ReadFile(delta.Path)
	if err != nil {
		return nil, []validation.Diagnostic{ioDiagnostic(delta.Capability, err)}
	}

	doc, err := spec.ParseChange(string(data))
	if doc != nil {
		doc.Capability = delta.Capability
	}
	if err == nil {
		return doc, nil
	}

	var perr *spec.ParseError
	if !errors.As(err, &perr) {
		return doc, []validation.Diagnostic{ioDiagnostic(delta.Capability, err)}
	}

	diags := make([]validation.Diagnostic, 0, len(perr.Issues))
	for _, issue := range perr.Issues {
		msg := issue.Message
		if issue.Line > 0 {
			msg = fmt.Sprintf("%s (line %d)", msg, issue.Line)
		}
		diags = append(diags, validation.Diagnostic{
			Kind:        validation.Kind(issue.Kind),
			Severity:    validation.SeverityError,
			Capability:  delta.Capability,
			Requirement: issue.Context,
			Message:     msg,
		})
	}
	return doc, diags
}

func ioDiagnostic(capability string, err error) validation.Diagnostic {
	return validation.Diagnostic{
		Kind:       "Internal",
		Severity:   validation.SeverityError,
		Capability: capability,
		Message:    err.Error(),
	}
}
