// Package sanitize cleans free text entered by agents and public callers
// before it is stored on a lead.
package sanitize

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&amp;", "&",
)

// Text strips markup and collapses runs of whitespace.
// Tags hidden behind entities are removed on a second pass.
func Text(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// TextPtr applies Text to an optional field. A value that is empty after
// cleaning becomes nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := Text(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
