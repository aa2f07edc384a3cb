package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// PlainTextSanitizer strips all markup from free-form text.
type PlainTextSanitizer struct {
	policy *bluemonday.Policy
	limit  int
}

// NewPlainTextSanitizer returns a sanitizer that also truncates output to limit runes when limit > 0.
func NewPlainTextSanitizer(limit int) *PlainTextSanitizer {
	return &PlainTextSanitizer{policy: bluemonday.StrictPolicy(), limit: limit}
}

// Sanitize removes tags, collapses whitespace and unescapes entities introduced by the policy.
func (s *PlainTextSanitizer) Sanitize(input string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(input))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if s.limit > 0 {
		if runes := []rune(cleaned); len(runes) > s.limit {
			cleaned = strings.TrimSpace(string(runes[:s.limit]))
		}
	}
	return cleaned
}
