package spec

import (
	"fmt"
	"strings"
)

// ParseErrorKind classifies a structural parse failure.
type ParseErrorKind string

const (
	// KindMalformedRename means a RENAMED entry is missing its FROM or TO line.
	KindMalformedRename ParseErrorKind = "MalformedRename"

	// KindMissingReason means a REMOVED entry has no Reason label.
	KindMissingReason ParseErrorKind = "MissingReason"

	// KindMalformedHeading means a Requirement or Scenario heading carries no
	// name text.
	KindMalformedHeading ParseErrorKind = "MalformedHeading"

	// KindDuplicateRequirement means two requirements in the same document
	// share a normalized name.
	KindDuplicateRequirement ParseErrorKind = "DuplicateRequirement"
)

// ParseIssue is one structural problem found while parsing.
type ParseIssue struct {
	Kind    ParseErrorKind `json:"kind"`
	Line    int            `json:"line,omitempty"`
	Context string         `json:"context,omitempty"`
	Message string         `json:"message"`
}

func (i ParseIssue) String() string {
	if i.Context != "" {
		return fmt.Sprintf("%s (%s): %s", i.Kind, i.Context, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// ParseError aggregates every structural issue found in one document.
// The parser never stops at the first problem; a single parse surfaces
// everything wrong with the file.
type ParseError struct {
	Issues []ParseIssue
}

// Error implements error.
func (e *ParseError) Error() string {
	if len(e.Issues) == 1 {
		return "parse: " + e.Issues[0].String()
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("parse: %d issues: %s", len(e.Issues), strings.Join(parts, "; "))
}

// Has reports whether the error contains an issue of the given kind.
func (e *ParseError) Has(kind ParseErrorKind) bool {
	for _, issue := range e.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

// add appends an issue and returns the receiver, allocating on first use.
func (e *ParseError) add(kind ParseErrorKind, line int, context, format string, args ...any) {
	e.Issues = append(e.Issues, ParseIssue{
		Kind:    kind,
		Line:    line,
		Context: context,
		Message: fmt.Sprintf(format, args...),
	})
}

// orNil returns nil when no issues were collected, so callers can write
// `return doc, perr.orNil()`.
func (e *ParseError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
