package spec

// Op identifies one of the four delta operation types.
type Op string

const (
	// OpAdded introduces new requirements.
	OpAdded Op = "added"
	// OpModified replaces existing requirements wholesale.
	OpModified Op = "modified"
	// OpRemoved deletes an existing requirement.
	OpRemoved Op = "removed"
	// OpRenamed re-keys an existing requirement, content unchanged.
	OpRenamed Op = "renamed"
)

// String returns the string representation of the operation.
func (o Op) String() string {
	return string(o)
}

// IsValid reports whether the operation is one of the four known types.
func (o Op) IsValid() bool {
	switch o {
	case OpAdded, OpModified, OpRemoved, OpRenamed:
		return true
	}
	return false
}

// DeltaSection is one typed section of a change delta. Exactly the fields
// for its Op are populated:
//
//	OpAdded, OpModified: Requirements (complete replacement text, never a patch)
//	OpRemoved:           Removals
//	OpRenamed:           Renames
type DeltaSection struct {
	Op Op `json:"op"`

	// Requirements carries the full requirement blocks for ADDED and
	// MODIFIED sections.
	Requirements []Requirement `json:"requirements,omitempty"`

	// Removals carries the entries of a REMOVED section.
	Removals []Removal `json:"removals,omitempty"`

	// Renames carries the FROM/TO pairs of a RENAMED section.
	Renames []Rename `json:"renames,omitempty"`
}

// Removal is one entry of a REMOVED section.
type Removal struct {
	// Name is the requirement being removed.
	Name string `json:"name"`

	// Reason explains why the requirement is removed. Required.
	Reason string `json:"reason"`

	// Migration describes how consumers should migrate. Optional.
	Migration string `json:"migration,omitempty"`
}

// Rename is one FROM/TO pair of a RENAMED section.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChangeDocument is a parsed change delta for one capability: an ordered
// sequence of delta sections. An empty sequence is invalid (the validator
// reports NoDeltaOperation).
type ChangeDocument struct {
	// Capability is the capability this delta targets.
	Capability string `json:"capability,omitempty"`

	// Title is the document title, if any.
	Title string `json:"title,omitempty"`

	// Sections are the delta sections in source order.
	Sections []DeltaSection `json:"sections"`

	// Frontmatter contains any YAML frontmatter, passed through opaquely.
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Ops returns the operation of every section in source order.
func (c *ChangeDocument) Ops() []Op {
	ops := make([]Op, len(c.Sections))
	for i, s := range c.Sections {
		ops[i] = s.Op
	}
	return ops
}

// CountByOp returns how many individual entries the document carries per
// operation type (requirements for added/modified, removals, renames).
func (c *ChangeDocument) CountByOp() map[Op]int {
	counts := make(map[Op]int)
	for _, s := range c.Sections {
		switch s.Op {
		case OpAdded, OpModified:
			counts[s.Op] += len(s.Requirements)
		case OpRemoved:
			counts[s.Op] += len(s.Removals)
		case OpRenamed:
			counts[s.Op] += len(s.Renames)
		}
	}
	return counts
}
