// Package validation applies structural and semantic rules to parsed change
// deltas and aggregates the results into typed diagnostics. It never stops at
// the first problem: one pass surfaces everything wrong with a document.
package validation

import (
	"fmt"
	"regexp"

	"github.com/c360studio/specgov/spec"
)

// misleveledScenarioRe matches a Scenario heading at any level other than H4.
// Such headings survive inside requirement or scenario bodies because the
// parser only lifts H4 scenario headings out.
var misleveledScenarioRe = regexp.MustCompile(`(?m)^(#{1,3}|#{5,6})\s+Scenario:`)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindNoDeltaOperation means the change document has no delta sections.
	KindNoDeltaOperation Kind = "NoDeltaOperation"
	// KindMissingNormativeLanguage means a requirement body lacks SHALL/MUST.
	KindMissingNormativeLanguage Kind = "MissingNormativeLanguage"
	// KindMissingScenario means a requirement has zero scenarios.
	KindMissingScenario Kind = "MissingScenario"
	// KindMalformedScenarioHeading means a scenario heading is at the wrong
	// level or carries no descriptive text.
	KindMalformedScenarioHeading Kind = "MalformedScenarioHeading"
	// KindUnresolvedReference means a MODIFIED, REMOVED, or RENAMED entry
	// names a requirement absent from the baseline.
	KindUnresolvedReference Kind = "UnresolvedReference"
	// KindDuplicateAddition means an ADDED entry names a requirement that
	// already exists in the baseline.
	KindDuplicateAddition Kind = "DuplicateAddition"
	// KindMissingRemovalReason means a REMOVED entry carries an empty reason.
	KindMissingRemovalReason Kind = "MissingRemovalReason"
	// KindConflictingOperations means two delta sections target the same
	// requirement name. Reported by the resolver.
	KindConflictingOperations Kind = "ConflictingOperations"
	// KindFormatting marks a diagnostic produced by an external formatting
	// linter and merged into the validation output.
	KindFormatting Kind = "Formatting"
)

// Severity grades a diagnostic.
type Severity string

const (
	// SeverityWarning is advisory; it never fails a run on its own.
	SeverityWarning Severity = "warning"
	// SeverityError fails the run.
	SeverityError Severity = "error"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	Capability  string   `json:"capability,omitempty"`
	Requirement string   `json:"requirement,omitempty"`
	Scenario    string   `json:"scenario,omitempty"`
	Message     string   `json:"message"`
}

func (d Diagnostic) String() string {
	loc := d.Capability
	if d.Requirement != "" {
		if loc != "" {
			loc += "/"
		}
		loc += d.Requirement
	}
	if d.Scenario != "" {
		loc += "#" + d.Scenario
	}
	if loc != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", d.Severity, d.Kind, d.Message, loc)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Kind, d.Message)
}

// Options configures a validation pass.
type Options struct {
	// Strict escalates formatting warnings to errors.
	Strict bool

	// Formatting carries diagnostics produced by an external formatting
	// linter. They are merged into the output under the strict-mode
	// escalation rule; this engine never produces them itself.
	Formatting []Diagnostic
}

// Validate applies every rule to the change document and returns all
// diagnostics found. baseline may be nil, in which case reference rules are
// skipped. Neither input is mutated; calling twice on unchanged inputs
// returns identical results.
func Validate(doc *spec.ChangeDocument, baseline *spec.CapabilityDocument, opts Options) []Diagnostic {
	var diags []Diagnostic
	capability := doc.Capability

	if len(doc.Sections) == 0 {
		diags = append(diags, Diagnostic{
			Kind:       KindNoDeltaOperation,
			Severity:   SeverityError,
			Capability: capability,
			Message:    "change document contains no ADDED, MODIFIED, REMOVED, or RENAMED section",
		})
	}

	for _, section := range doc.Sections {
		switch section.Op {
		case spec.OpAdded, spec.OpModified:
			for _, req := range section.Requirements {
				diags = append(diags, checkRequirement(capability, req)...)
			}
		case spec.OpRemoved:
			for _, rem := range section.Removals {
				if rem.Reason == "" {
					diags = append(diags, Diagnostic{
						Kind:        KindMissingRemovalReason,
						Severity:    SeverityError,
						Capability:  capability,
						Requirement: rem.Name,
						Message:     "REMOVED entry carries no reason",
					})
				}
			}
		}
	}

	if baseline != nil {
		diags = append(diags, CheckReferences(doc, baseline)...)
	}

	diags = append(diags, mergeFormatting(opts)...)

	return diags
}

// checkRequirement applies the per-requirement content rules.
func checkRequirement(capability string, req spec.Requirement) []Diagnostic {
	var diags []Diagnostic

	if !spec.HasNormativeLanguage(req.Body) {
		diags = append(diags, Diagnostic{
			Kind:        KindMissingNormativeLanguage,
			Severity:    SeverityError,
			Capability:  capability,
			Requirement: req.Name,
			Message:     "requirement body contains no SHALL or MUST statement",
		})
	}

	if len(req.Scenarios) == 0 {
		diags = append(diags, Diagnostic{
			Kind:        KindMissingScenario,
			Severity:    SeverityError,
			Capability:  capability,
			Requirement: req.Name,
			Message:     "requirement has no scenarios",
		})
	}

	if misleveledScenarioRe.MatchString(req.Body) {
		diags = append(diags, Diagnostic{
			Kind:        KindMalformedScenarioHeading,
			Severity:    SeverityError,
			Capability:  capability,
			Requirement: req.Name,
			Message:     "scenario heading is not at H4 (#### Scenario: ...)",
		})
	}

	for _, scen := range req.Scenarios {
		if scen.Name == "" {
			diags = append(diags, Diagnostic{
				Kind:        KindMalformedScenarioHeading,
				Severity:    SeverityError,
				Capability:  capability,
				Requirement: req.Name,
				Message:     "scenario heading has no descriptive text after Scenario:",
			})
		}
		if misleveledScenarioRe.MatchString(scen.Body) {
			diags = append(diags, Diagnostic{
				Kind:        KindMalformedScenarioHeading,
				Severity:    SeverityError,
				Capability:  capability,
				Requirement: req.Name,
				Scenario:    scen.Name,
				Message:     "scenario heading is not at H4 (#### Scenario: ...)",
			})
		}
	}

	return diags
}

// CheckReferences applies the baseline-dependent rules: UnresolvedReference
// for MODIFIED/REMOVED/RENAMED(FROM) entries and DuplicateAddition for ADDED
// entries. The resolver re-runs these before merging.
func CheckReferences(doc *spec.ChangeDocument, baseline *spec.CapabilityDocument) []Diagnostic {
	var diags []Diagnostic
	capability := doc.Capability

	// Rename targets are visible to MODIFIED entries: the resolver applies
	// renames first, so an entry keyed by a rename's TO side resolves.
	// FROM sides and removals vacate their names within the same delta.
	renamedTo := make(map[string]bool)
	vacated := make(map[string]bool)
	for _, section := range doc.Sections {
		switch section.Op {
		case spec.OpRenamed:
			for _, rn := range section.Renames {
				renamedTo[spec.NormalizeName(rn.To)] = true
				vacated[spec.NormalizeName(rn.From)] = true
			}
		case spec.OpRemoved:
			for _, rem := range section.Removals {
				vacated[spec.NormalizeName(rem.Name)] = true
			}
		}
	}

	unresolved := func(op spec.Op, name string) Diagnostic {
		return Diagnostic{
			Kind:        KindUnresolvedReference,
			Severity:    SeverityError,
			Capability:  capability,
			Requirement: name,
			Message:     fmt.Sprintf("%s entry references requirement %q not present in baseline", op, spec.NormalizeName(name)),
		}
	}

	for _, section := range doc.Sections {
		switch section.Op {
		case spec.OpAdded:
			for _, req := range section.Requirements {
				if baseline.Contains(req.Name) {
					diags = append(diags, Diagnostic{
						Kind:        KindDuplicateAddition,
						Severity:    SeverityError,
						Capability:  capability,
						Requirement: req.Name,
						Message:     fmt.Sprintf("ADDED entry %q already exists in baseline", spec.NormalizeName(req.Name)),
					})
				}
			}
		case spec.OpModified:
			for _, req := range section.Requirements {
				if !baseline.Contains(req.Name) && !renamedTo[spec.NormalizeName(req.Name)] {
					diags = append(diags, unresolved(section.Op, req.Name))
				}
			}
		case spec.OpRemoved:
			for _, rem := range section.Removals {
				if !baseline.Contains(rem.Name) {
					diags = append(diags, unresolved(section.Op, rem.Name))
				}
			}
		case spec.OpRenamed:
			for _, rn := range section.Renames {
				if !baseline.Contains(rn.From) {
					diags = append(diags, unresolved(section.Op, rn.From))
				}
				// A rename may not land on a name the baseline still holds
				// after this delta; two requirements would share it.
				to := spec.NormalizeName(rn.To)
				if baseline.Contains(rn.To) && !vacated[to] {
					diags = append(diags, Diagnostic{
						Kind:        KindConflictingOperations,
						Severity:    SeverityError,
						Capability:  capability,
						Requirement: rn.To,
						Message:     fmt.Sprintf("RENAMED target %q already exists in baseline", to),
					})
				}
			}
		}
	}

	return diags
}

// mergeFormatting applies the strict-mode escalation rule to external
// formatting diagnostics.
func mergeFormatting(opts Options) []Diagnostic {
	if len(opts.Formatting) == 0 {
		return nil
	}
	out := make([]Diagnostic, 0, len(opts.Formatting))
	for _, d := range opts.Formatting {
		d.Kind = KindFormatting
		if d.Severity == "" {
			d.Severity = SeverityWarning
		}
		if opts.Strict && d.Severity == SeverityWarning {
			d.Severity = SeverityError
		}
		out = append(out, d)
	}
	return out
}

// HasFailures reports whether any diagnostic is failing. Errors always fail;
// warnings never do (strict mode already escalated what it wanted to).
func HasFailures(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
