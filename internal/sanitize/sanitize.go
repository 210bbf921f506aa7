// Package sanitize neutralizes markup and terminal control sequences in
// untrusted text before it is embedded in a rendered card.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer makes untrusted text safe for structural embedding.
type Sanitizer interface {
	Sanitize(text string) string
}

// ansiRe matches CSI and OSC escape sequences.
var ansiRe = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[ -/]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\))`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Text strips all HTML, decodes entities, removes escape sequences and
// control characters, and collapses whitespace.
type Text struct {
	policy *bluemonday.Policy
}

// New returns a Text sanitizer backed by bluemonday's strict policy.
func New() *Text {
	return &Text{policy: bluemonday.StrictPolicy()}
}

// Sanitize implements Sanitizer.
func (s *Text) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = stripControl(ansiRe.ReplaceAllString(text, ""))
	text = s.policy.Sanitize(text)
	// StrictPolicy re-escapes entities; the terminal wants plain text, and
	// decoded numeric entities can reintroduce control characters.
	text = stripControl(html.UnescapeString(text))
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

// URL returns ref if it is an http(s) or data:image URL with no markup or
// control characters, and "" otherwise.
func URL(ref string) string {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "data:image/"):
	default:
		return ""
	}
	if strings.ContainsAny(ref, "<>\"' ") {
		return ""
	}
	for _, r := range ref {
		if unicode.IsControl(r) {
			return ""
		}
	}
	return ref
}
