// Package resolve computes the merged capability document that results from
// applying a change delta to a baseline. Resolution is all-or-nothing: any
// unresolved reference or operation conflict fails the whole merge and the
// baseline is untouched.
package resolve

import (
	"fmt"
	"sort"

	"github.com/c360studio/specgov/spec"
	"github.com/c360studio/specgov/validation"
)

// Resolve merges doc into a working copy of baseline and returns the result.
// On failure it returns nil and the diagnostics; no partial merge ever
// escapes. Reference rules are re-checked here even though the validator
// already ran them, so a caller that skips validation still cannot corrupt a
// baseline.
//
// RENAMED sections are applied strictly before ADDED, MODIFIED, and REMOVED
// sections regardless of their order in the source document, so a MODIFIED
// entry for a renamed requirement must reference the new name.
func Resolve(baseline *spec.CapabilityDocument, doc *spec.ChangeDocument) (*spec.CapabilityDocument, []validation.Diagnostic) {
	diags := detectConflicts(doc)
	diags = append(diags, validation.CheckReferences(doc, baseline)...)
	if len(diags) > 0 {
		return nil, diags
	}

	merged := baseline.Clone()

	// Renames first: re-key in place, content preserved.
	for _, section := range doc.Sections {
		if section.Op != spec.OpRenamed {
			continue
		}
		for _, rn := range section.Renames {
			if req := merged.Find(rn.From); req != nil {
				req.Name = rn.To
			}
		}
	}

	for _, section := range doc.Sections {
		switch section.Op {
		case spec.OpAdded:
			// Appended after all pre-existing requirements, in delta order.
			for _, req := range section.Requirements {
				merged.Requirements = append(merged.Requirements, req.Clone())
			}
		case spec.OpModified:
			// Wholesale replacement: the delta carries complete text.
			for _, req := range section.Requirements {
				if existing := merged.Find(req.Name); existing != nil {
					*existing = req.Clone()
				}
			}
		case spec.OpRemoved:
			// Reason and migration are not stored in the merged document;
			// the applier surfaces them in its audit log.
			for _, rem := range section.Removals {
				deleteRequirement(merged, rem.Name)
			}
		}
	}

	return merged, nil
}

// target is one delta operation aimed at a requirement name.
type target struct {
	op   spec.Op
	side string // "from"/"to" for renames, "" otherwise
}

// detectConflicts reports every requirement name targeted by more than one
// delta operation. The one sanctioned combination is a rename whose new name
// is then modified (rename-then-modify); everything else is a conflict the
// resolver refuses to guess a precedence for.
func detectConflicts(doc *spec.ChangeDocument) []validation.Diagnostic {
	targets := make(map[string][]target)

	record := func(name string, t target) {
		key := spec.NormalizeName(name)
		targets[key] = append(targets[key], t)
	}

	for _, section := range doc.Sections {
		switch section.Op {
		case spec.OpAdded, spec.OpModified:
			for _, req := range section.Requirements {
				record(req.Name, target{op: section.Op})
			}
		case spec.OpRemoved:
			for _, rem := range section.Removals {
				record(rem.Name, target{op: section.Op})
			}
		case spec.OpRenamed:
			for _, rn := range section.Renames {
				record(rn.From, target{op: section.Op, side: "from"})
				record(rn.To, target{op: section.Op, side: "to"})
			}
		}
	}

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags []validation.Diagnostic
	for _, name := range names {
		ts := targets[name]
		if len(ts) < 2 {
			continue
		}
		if len(ts) == 2 && isRenameThenModify(ts[0], ts[1]) {
			continue
		}
		ops := make([]string, len(ts))
		for i, t := range ts {
			ops[i] = string(t.op)
			if t.side != "" {
				ops[i] += "(" + t.side + ")"
			}
		}
		diags = append(diags, validation.Diagnostic{
			Kind:        validation.KindConflictingOperations,
			Severity:    validation.SeverityError,
			Capability:  doc.Capability,
			Requirement: name,
			Message:     fmt.Sprintf("requirement %q is targeted by conflicting operations: %v", name, ops),
		})
	}
	return diags
}

func isRenameThenModify(a, b target) bool {
	renTo := func(t target) bool { return t.op == spec.OpRenamed && t.side == "to" }
	mod := func(t target) bool { return t.op == spec.OpModified }
	return (renTo(a) && mod(b)) || (mod(a) && renTo(b))
}

// deleteRequirement removes the entry with the given normalized name,
// preserving the order of the rest.
func deleteRequirement(doc *spec.CapabilityDocument, name string) {
	want := spec.NormalizeName(name)
	for i := range doc.Requirements {
		if spec.NormalizeName(doc.Requirements[i].Name) == want {
			doc.Requirements = append(doc.Requirements[:i], doc.Requirements[i+1:]...)
			return
		}
	}
}
