package catalog

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup that the CMS leaves in catalog fields.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a sanitizer that removes every HTML tag.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text returns s without tags or entities, whitespace collapsed.
func (s *Sanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	out := html.UnescapeString(s.policy.Sanitize(in))
	return strings.Join(strings.Fields(out), " ")
}

// Clean sanitizes every field and drops items left with nothing to index.
func (s *Sanitizer) Clean(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		cleaned := Item{
			ID:          strings.TrimSpace(it.ID),
			Title:       s.Text(it.Title),
			Author:      s.Text(it.Author),
			Category:    s.Text(it.Category),
			Description: s.Text(it.Description),
		}
		for _, kw := range it.Keywords {
			if k := s.Text(kw); k != "" {
				cleaned.Keywords = append(cleaned.Keywords, k)
			}
		}
		if cleaned.Indexable() {
			out = append(out, cleaned)
		}
	}
	return out
}
