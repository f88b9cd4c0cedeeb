package spec

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Heading grammar. Levels are fixed: delta sections at H2, requirements at
// H3, scenarios at H4. The four delta headers are literal and case-sensitive.
var (
	deltaSectionPattern = regexp.MustCompile(`(?m)^##\s+(ADDED|MODIFIED|REMOVED|RENAMED)\s+Requirements\s*$`)
	reqHeaderPattern    = regexp.MustCompile(`(?m)^###\s+Requirement:(.*)$`)
	scenarioPattern     = regexp.MustCompile(`(?m)^####\s+Scenario:(.*)$`)
	renameFromPattern   = regexp.MustCompile(`(?m)^[-*]\s*FROM:\s*(.+)$`)
	renameToPattern     = regexp.MustCompile(`(?m)^[-*]\s*TO:\s*(.+)$`)
	reasonPattern       = regexp.MustCompile(`(?m)^\*\*Reason\*\*:?\s*`)
	migrationPattern    = regexp.MustCompile(`(?m)^\*\*Migration\*\*:?\s*`)
	clausePattern       = regexp.MustCompile(`(?m)^[-*]\s*\*\*(GIVEN|WHEN|THEN|AND)\*\*\s*(.+)$`)
	titlePattern        = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	labelOrHeadingStop  = regexp.MustCompile(`(?m)^(?:\*\*[A-Za-z]+\*\*:?|#{2,4}\s)`)
)

// FileKind distinguishes the two document kinds Parse can return.
type FileKind string

const (
	// FileKindCapability is a baseline capability specification.
	FileKindCapability FileKind = "capability"
	// FileKindDelta is a change delta document.
	FileKindDelta FileKind = "delta"
)

// ParsedFile is the result of Parse: exactly one of Capability or Change is
// non-nil, indicated by Kind.
type ParsedFile struct {
	Kind       FileKind
	Capability *CapabilityDocument
	Change     *ChangeDocument
}

// Parse parses markdown text as either a capability baseline or a change
// delta, depending on whether any delta section header is present. It is a
// pure function over its input and accumulates every structural issue into a
// single *ParseError rather than stopping at the first.
func Parse(text string) (*ParsedFile, error) {
	if IsDelta(text) {
		change, err := ParseChange(text)
		if change == nil {
			return nil, err
		}
		return &ParsedFile{Kind: FileKindDelta, Change: change}, err
	}
	doc, err := ParseCapability(text)
	if doc == nil {
		return nil, err
	}
	return &ParsedFile{Kind: FileKindCapability, Capability: doc}, err
}

// IsDelta reports whether the text contains at least one delta section header.
func IsDelta(text string) bool {
	_, body := splitFrontmatter(text)
	return deltaSectionPattern.MatchString(body)
}

// ParseCapability parses a baseline capability document. Every
// "### Requirement:" heading becomes a requirement; prose between the title
// and the first requirement is preserved as the preamble.
func ParseCapability(text string) (*CapabilityDocument, error) {
	perr := &ParseError{}
	frontmatter, body := splitFrontmatter(text)

	doc := &CapabilityDocument{Frontmatter: frontmatter}
	if title, ok := frontmatter["title"].(string); ok {
		doc.Title = title
	}

	firstReq := len(body)
	if loc := reqHeaderPattern.FindStringIndex(body); loc != nil {
		firstReq = loc[0]
	}

	head := body[:firstReq]
	if m := titlePattern.FindStringSubmatchIndex(head); m != nil {
		if doc.Title == "" {
			doc.Title = strings.TrimSpace(head[m[2]:m[3]])
		}
		doc.Preamble = strings.TrimSpace(head[m[1]:])
	} else {
		doc.Preamble = strings.TrimSpace(head)
	}

	doc.Requirements = parseRequirements(body[firstReq:], firstReq, body, perr)

	seen := make(map[string]bool)
	for _, r := range doc.Requirements {
		key := NormalizeName(r.Name)
		if seen[key] {
			perr.add(KindDuplicateRequirement, 0, r.Name,
				"requirement %q appears more than once", key)
		}
		seen[key] = true
	}

	return doc, perr.orNil()
}

// ParseChange parses a change delta document. Delta sections are recognized
// by the four literal headers; any other H2 text is prose and skipped.
func ParseChange(text string) (*ChangeDocument, error) {
	perr := &ParseError{}
	frontmatter, body := splitFrontmatter(text)

	doc := &ChangeDocument{Frontmatter: frontmatter}
	if title, ok := frontmatter["title"].(string); ok {
		doc.Title = title
	} else if m := titlePattern.FindStringSubmatch(body); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}

	matches := deltaSectionPattern.FindAllStringSubmatchIndex(body, -1)
	for i, match := range matches {
		op := opForHeader(body[match[2]:match[3]])

		sectionStart := match[1]
		sectionEnd := len(body)
		if i < len(matches)-1 {
			sectionEnd = matches[i+1][0]
		}
		section := body[sectionStart:sectionEnd]

		ds := DeltaSection{Op: op}
		switch op {
		case OpAdded, OpModified:
			ds.Requirements = parseRequirements(section, sectionStart, body, perr)
		case OpRemoved:
			ds.Removals = parseRemovals(section, sectionStart, body, perr)
		case OpRenamed:
			ds.Renames = parseRenames(section, sectionStart, body, perr)
		}
		doc.Sections = append(doc.Sections, ds)
	}

	return doc, perr.orNil()
}

func opForHeader(header string) Op {
	switch header {
	case "ADDED":
		return OpAdded
	case "MODIFIED":
		return OpModified
	case "REMOVED":
		return OpRemoved
	case "RENAMED":
		return OpRenamed
	}
	// Unreachable: the pattern only matches the four literals.
	return Op(strings.ToLower(header))
}

// parseRequirements extracts requirement blocks from a region of the
// document. offset is the region's byte offset in full, used for line
// numbers in parse issues.
func parseRequirements(region string, offset int, full string, perr *ParseError) []Requirement {
	var requirements []Requirement

	matches := reqHeaderPattern.FindAllStringSubmatchIndex(region, -1)
	for i, match := range matches {
		name := strings.TrimSpace(region[match[2]:match[3]])
		if name == "" {
			perr.add(KindMalformedHeading, lineAt(full, offset+match[0]), "",
				"requirement heading has no name")
		}

		bodyStart := match[1]
		bodyEnd := len(region)
		if i < len(matches)-1 {
			bodyEnd = matches[i+1][0]
		}

		requirements = append(requirements, parseRequirementBlock(name, region[bodyStart:bodyEnd]))
	}

	return requirements
}

// parseRequirementBlock splits a requirement region into body text and
// scenario records.
func parseRequirementBlock(name, block string) Requirement {
	req := Requirement{Name: name}

	scenarios := scenarioPattern.FindAllStringSubmatchIndex(block, -1)
	if len(scenarios) == 0 {
		req.Body = strings.TrimSpace(block)
		return req
	}

	req.Body = strings.TrimSpace(block[:scenarios[0][0]])

	for i, match := range scenarios {
		scenName := strings.TrimSpace(block[match[2]:match[3]])
		bodyStart := match[1]
		bodyEnd := len(block)
		if i < len(scenarios)-1 {
			bodyEnd = scenarios[i+1][0]
		}
		scenBody := strings.TrimSpace(block[bodyStart:bodyEnd])

		req.Scenarios = append(req.Scenarios, Scenario{
			Name:    scenName,
			Body:    scenBody,
			Clauses: parseClauses(scenBody),
		})
	}

	return req
}

// parseClauses extracts bold GIVEN/WHEN/THEN/AND bullet steps.
func parseClauses(body string) []Clause {
	var clauses []Clause
	for _, m := range clausePattern.FindAllStringSubmatch(body, -1) {
		clauses = append(clauses, Clause{
			Keyword: m[1],
			Text:    strings.TrimSpace(m[2]),
		})
	}
	return clauses
}

// parseRemovals extracts REMOVED entries. Each requires a Reason label; a
// missing Reason is a structural error but the entry is still recorded so
// validation can re-surface it on programmatically built documents.
func parseRemovals(region string, offset int, full string, perr *ParseError) []Removal {
	var removals []Removal

	matches := reqHeaderPattern.FindAllStringSubmatchIndex(region, -1)
	for i, match := range matches {
		name := strings.TrimSpace(region[match[2]:match[3]])
		line := lineAt(full, offset+match[0])
		if name == "" {
			perr.add(KindMalformedHeading, line, "", "requirement heading has no name")
		}

		bodyStart := match[1]
		bodyEnd := len(region)
		if i < len(matches)-1 {
			bodyEnd = matches[i+1][0]
		}
		block := region[bodyStart:bodyEnd]

		removal := Removal{
			Name:      name,
			Reason:    labelText(block, reasonPattern),
			Migration: labelText(block, migrationPattern),
		}
		if removal.Reason == "" {
			perr.add(KindMissingReason, line, name,
				"REMOVED entry must carry a **Reason** label")
		}
		removals = append(removals, removal)
	}

	if len(matches) == 0 {
		perr.add(KindMalformedHeading, lineAt(full, offset), "",
			"REMOVED section contains no Requirement heading")
	}

	return removals
}

// labelText returns the text following a bold label, up to the next label or
// heading. Continuation lines are joined with single spaces.
func labelText(block string, label *regexp.Regexp) string {
	loc := label.FindStringIndex(block)
	if loc == nil {
		return ""
	}
	rest := block[loc[1]:]
	if stop := labelOrHeadingStop.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return strings.Join(strings.Fields(rest), " ")
}

// parseRenames extracts FROM/TO pairs. Both lines accept a raw name or a
// quoted "### Requirement:" heading reference; prefix and backticks are
// stripped so authors can paste the heading verbatim.
func parseRenames(region string, offset int, full string, perr *ParseError) []Rename {
	froms := renameFromPattern.FindAllStringSubmatchIndex(region, -1)
	tos := renameToPattern.FindAllStringSubmatchIndex(region, -1)

	if len(froms) == 0 && len(tos) == 0 {
		perr.add(KindMalformedRename, lineAt(full, offset), "",
			"RENAMED section contains no FROM/TO pair")
		return nil
	}
	if len(froms) != len(tos) {
		perr.add(KindMalformedRename, lineAt(full, offset), "",
			"RENAMED section has %d FROM lines but %d TO lines", len(froms), len(tos))
		return nil
	}

	var renames []Rename
	for i := range froms {
		// TO must follow its FROM; interleaved pairs keep document order.
		if tos[i][0] < froms[i][0] {
			perr.add(KindMalformedRename, lineAt(full, offset+tos[i][0]), "",
				"TO line appears before its FROM line")
			return nil
		}
		renames = append(renames, Rename{
			From: cleanHeadingRef(region[froms[i][2]:froms[i][3]]),
			To:   cleanHeadingRef(region[tos[i][2]:tos[i][3]]),
		})
	}
	return renames
}

// cleanHeadingRef strips backticks and an optional "### Requirement:" prefix
// from a FROM/TO value.
func cleanHeadingRef(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")
	s = strings.TrimPrefix(s, "###")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Requirement:")
	return strings.TrimSpace(s)
}

// splitFrontmatter separates optional YAML frontmatter from the body.
// Malformed frontmatter is treated as body text rather than an error.
func splitFrontmatter(text string) (map[string]any, string) {
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return nil, text
	}

	start := strings.Index(text, "\n") + 1
	closeIdx := strings.Index(text[start:], "\n---")
	if closeIdx == -1 {
		return nil, text
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(text[start:start+closeIdx]), &frontmatter); err != nil {
		return nil, text
	}

	body := text[start+closeIdx+len("\n---"):]
	body = strings.TrimLeft(body, "\r\n")
	return frontmatter, body
}

// lineAt returns the 1-based line number of a byte offset.
func lineAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return 1 + strings.Count(text[:offset], "\n")
}

// DescribeOps returns a short human summary like "2 added, 1 removed".
func DescribeOps(c *ChangeDocument) string {
	counts := c.CountByOp()
	var parts []string
	for _, op := range []Op{OpAdded, OpModified, OpRemoved, OpRenamed} {
		if n := counts[op]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, op))
		}
	}
	if len(parts) == 0 {
		return "no operations"
	}
	return strings.Join(parts, ", ")
}
