package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParsedCategory is one checklist category as produced by the generator,
// before persistence assigns ids and display orders.
type ParsedCategory struct {
	Name        string
	Description string
	Questions   []string
}

const ChecklistSystemPrompt = "You are an expert auditor. Generate comprehensive audit checklists in JSON format."

// BuildChecklistPrompt renders the generation prompt for one audit.
func BuildChecklistPrompt(a *Audit) string {
	var sb strings.Builder
	sb.WriteString("Generate a comprehensive audit checklist for the following company:\n")
	fmt.Fprintf(&sb, "- Company: %s\n", a.CompanyName)
	fmt.Fprintf(&sb, "- Industry: %s\n", a.Industry)
	fmt.Fprintf(&sb, "- Standard: %s\n", a.Standard)
	fmt.Fprintf(&sb, "- Size: %s\n", a.CompanySize)
	fmt.Fprintf(&sb, "- Country: %s\n", a.Country)
	sb.WriteString(`
Create 5-7 categories with 5-8 questions each. Return as JSON with this structure:
{
  "categories": [
    {
      "name": "Category Name",
      "description": "Category description",
      "questions": [
        "Question 1 text",
        "Question 2 text"
      ]
    }
  ]
}
`)
	fmt.Fprintf(&sb, "\nFocus on %s compliance requirements for the %s industry.\n", a.Standard, a.Industry)
	return sb.String()
}

// ParseChecklist converts a raw model response into categories. It accepts
// either the JSON form ({"categories": [...]}) or the line convention
// ("Category N: Name" headers with "-"/"*" bullet questions). A nil return
// means nothing usable was found and the caller should use the fallback.
func ParseChecklist(raw string) []ParsedCategory {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if cats, ok := parseChecklistJSON(raw); ok {
		return cats
	}
	return parseChecklistText(raw)
}

func parseChecklistJSON(raw string) ([]ParsedCategory, bool) {
	var doc struct {
		Categories []struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Questions   []string `json:"questions"`
		} `json:"categories"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}
	out := make([]ParsedCategory, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		questions := make([]string, 0, len(c.Questions))
		for _, q := range c.Questions {
			if q = strings.TrimSpace(q); q != "" {
				questions = append(questions, q)
			}
		}
		out = append(out, ParsedCategory{Name: name, Description: strings.TrimSpace(c.Description), Questions: questions})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// parseChecklistText handles the line-oriented convention. Questions that
// appear before the first category header are dropped; there is no implicit
// "uncategorized" bucket.
func parseChecklistText(raw string) []ParsedCategory {
	var out []ParsedCategory
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if name, ok := categoryHeader(line); ok {
			out = append(out, ParsedCategory{Name: name})
			continue
		}
		if q, ok := bulletQuestion(line); ok && len(out) > 0 {
			cur := &out[len(out)-1]
			cur.Questions = append(cur.Questions, q)
		}
		// anything else is ignored
	}
	return out
}

func categoryHeader(line string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(line), "category") {
		return "", false
	}
	name := line
	if i := strings.Index(line, ":"); i >= 0 {
		name = strings.TrimSpace(line[i+1:])
	}
	if name == "" {
		name = line
	}
	return name, true
}

func bulletQuestion(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			q := strings.TrimSpace(strings.TrimPrefix(line, marker))
			return q, q != ""
		}
	}
	return "", false
}

func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimPrefix(raw, "json")
	if i := strings.LastIndex(raw, "```"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// FallbackChecklist is used whenever the model response is missing or
// unparseable. Checklist generation always succeeds with some content.
func FallbackChecklist() []ParsedCategory {
	return []ParsedCategory{{
		Name:        "Documentation Review",
		Description: "Review of company documentation and policies",
		Questions: []string{
			"Are all required policies documented and up to date?",
			"Is there evidence of regular policy reviews?",
			"Are procedures clearly defined and accessible?",
			"Is document control process implemented?",
			"Are records maintained according to standards?",
		},
	}}
}
