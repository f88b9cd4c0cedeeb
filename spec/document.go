// Package spec provides the document model and markdown parser for
// capability specifications and their change deltas.
//
// A capability specification is an ordered collection of named requirements,
// each carrying normative text and one or more scenarios. A change delta
// describes how a proposal wants to alter a capability baseline through
// ADDED, MODIFIED, REMOVED, and RENAMED sections.
package spec

import (
	"strings"
)

// CapabilityDocument is the root entity for one capability baseline.
// Requirements are ordered; lookup is keyed by normalized name.
type CapabilityDocument struct {
	// Capability is the capability name this document governs.
	Capability string `json:"capability,omitempty"`

	// Title is the document title from frontmatter or the first H1 heading.
	Title string `json:"title,omitempty"`

	// Preamble is prose between the title and the first requirement heading.
	// Preserved verbatim so a render/parse cycle does not lose it.
	Preamble string `json:"preamble,omitempty"`

	// Requirements are the ordered requirements.
	Requirements []Requirement `json:"requirements"`

	// Frontmatter contains any YAML frontmatter, passed through opaquely.
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Requirement is a named normative statement plus its scenarios.
type Requirement struct {
	// Name is the requirement identifier (from a "### Requirement:" heading).
	Name string `json:"name"`

	// Body is the free text between the requirement heading and the first
	// scenario heading.
	Body string `json:"body"`

	// Scenarios are the ordered scenarios attached to this requirement.
	Scenarios []Scenario `json:"scenarios"`
}

// Scenario is a concrete example situation attached to a requirement.
type Scenario struct {
	// Name is the scenario identifier (from a "#### Scenario:" heading).
	Name string `json:"name"`

	// Body is the raw scenario text following the heading.
	Body string `json:"body"`

	// Clauses are condition/outcome pairs extracted from bold GIVEN/WHEN/THEN
	// labels. Extraction is best-effort; only heading structure is validated.
	Clauses []Clause `json:"clauses,omitempty"`
}

// Clause is one labeled step of a scenario.
type Clause struct {
	// Keyword is the step label: GIVEN, WHEN, THEN, or AND.
	Keyword string `json:"keyword"`

	// Text is the step text after the label.
	Text string `json:"text"`
}

// NormalizeName collapses internal whitespace runs to single spaces and trims
// the ends. Requirement name comparison is case-sensitive but
// whitespace-insensitive, so every lookup goes through this.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// HasNormativeLanguage reports whether text contains a SHALL or MUST token.
// The match is case-sensitive: lowercase "shall" is prose, not a norm.
func HasNormativeLanguage(text string) bool {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:!?*`()\"'")
		if tok == "SHALL" || tok == "MUST" {
			return true
		}
	}
	return false
}

// Find returns the requirement with the given normalized name, or nil.
func (d *CapabilityDocument) Find(name string) *Requirement {
	want := NormalizeName(name)
	for i := range d.Requirements {
		if NormalizeName(d.Requirements[i].Name) == want {
			return &d.Requirements[i]
		}
	}
	return nil
}

// Contains reports whether a requirement with the given normalized name exists.
func (d *CapabilityDocument) Contains(name string) bool {
	return d.Find(name) != nil
}

// Names returns requirement names in document order.
func (d *CapabilityDocument) Names() []string {
	names := make([]string, len(d.Requirements))
	for i, r := range d.Requirements {
		names[i] = r.Name
	}
	return names
}

// Clone returns a deep copy. The delta resolver merges into a clone so a
// failed resolution never leaves a half-mutated baseline in memory.
func (d *CapabilityDocument) Clone() *CapabilityDocument {
	out := &CapabilityDocument{
		Capability: d.Capability,
		Title:      d.Title,
		Preamble:   d.Preamble,
	}
	if d.Frontmatter != nil {
		out.Frontmatter = make(map[string]any, len(d.Frontmatter))
		for k, v := range d.Frontmatter {
			out.Frontmatter[k] = v
		}
	}
	out.Requirements = make([]Requirement, len(d.Requirements))
	for i, r := range d.Requirements {
		out.Requirements[i] = r.Clone()
	}
	return out
}

// Clone returns a deep copy of the requirement.
func (r Requirement) Clone() Requirement {
	out := Requirement{Name: r.Name, Body: r.Body}
	out.Scenarios = make([]Scenario, len(r.Scenarios))
	for i, s := range r.Scenarios {
		out.Scenarios[i] = Scenario{Name: s.Name, Body: s.Body}
		out.Scenarios[i].Clauses = append([]Clause(nil), s.Clauses...)
	}
	return out
}
