package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Render serializes a capability document back to markdown in the canonical
// layout the parser recognizes. Parsing the rendered output yields the same
// requirements and scenarios, which is what the change applier relies on when
// it rewrites a baseline file.
func Render(doc *CapabilityDocument) string {
	var b strings.Builder

	if len(doc.Frontmatter) > 0 {
		if data, err := yaml.Marshal(doc.Frontmatter); err == nil {
			b.WriteString("---\n")
			b.Write(data)
			b.WriteString("---\n\n")
		}
	}

	fmTitle, _ := doc.Frontmatter["title"].(string)
	if doc.Title != "" && doc.Title != fmTitle {
		b.WriteString("# ")
		b.WriteString(doc.Title)
		b.WriteString("\n\n")
	}

	if doc.Preamble != "" {
		b.WriteString(doc.Preamble)
		b.WriteString("\n\n")
	}

	for i, req := range doc.Requirements {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### Requirement: ")
		b.WriteString(req.Name)
		b.WriteString("\n\n")
		if req.Body != "" {
			b.WriteString(req.Body)
			b.WriteString("\n\n")
		}
		for _, scen := range req.Scenarios {
			b.WriteString("#### Scenario: ")
			b.WriteString(scen.Name)
			b.WriteString("\n\n")
			if scen.Body != "" {
				b.WriteString(scen.Body)
				b.WriteString("\n\n")
			}
		}
	}

	out := strings.TrimRight(b.String(), "\n") + "\n"
	return out
}
