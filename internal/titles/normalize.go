// Package titles cleans raw repack listing titles into search and display friendly names.
package titles

import (
	"regexp"
	"strings"
)

// maxPasses bounds the rewrite loop; every changing pass shortens the title or
// removes a connector, so real titles settle in two or three passes.
const maxPasses = 8

var rules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// version tokens: v1.0, 2.3.1, v1.2.3.4
	{regexp.MustCompile(`(?i)\s+v?\d+\.\d+(?:\.\d+)?(?:\.\d+)?`), ""},
	// repack / brand noise
	{regexp.MustCompile(`(?i)\s*-?\s*\b(?:repacks?|fitgirl)\b\s*`), " "},
	// (qualifiers) and [qualifiers]
	{regexp.MustCompile(`\s*[\(\[].*?[\)\]]`), ""},
	// edition and quality adjectives
	{regexp.MustCompile(`(?i)\s+(?:edition|complete|goty|deluxe|ultimate|enhanced|definitive|remastered|remake|hd|director(?:'s|s)?\s+cut)\b`), ""},
	// connectors
	{regexp.MustCompile(`\s*[+&]\s*`), " "},
	{regexp.MustCompile(`\s+`), " "},
}

// Normalize strips version tags, repack noise, bracketed qualifiers, edition
// adjectives and connector symbols from a listing title. The rules are applied
// until the title stops changing, so Normalize(Normalize(t)) == Normalize(t).
func Normalize(title string) string {
	current := strings.TrimSpace(title)
	for i := 0; i < maxPasses; i++ {
		next := apply(current)
		if next == current {
			return next
		}
		current = next
	}
	return current
}

func apply(title string) string {
	out := title
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return strings.TrimSpace(out)
}

// Key returns the lowercased normalized title used for match scoring.
func Key(title string) string {
	return strings.ToLower(Normalize(title))
}
