// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s_-]+`)
	separators   = regexp.MustCompile(`[-\s_]+`)
	validSlug    = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Make lowercases s, folds accented letters to ASCII, drops anything that is
// not a letter, digit, hyphen or underscore, and joins words with hyphens.
// The result is truncated to maxLen bytes when maxLen is positive.
func Make(s string, maxLen int) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		folded = s
	}

	out := strings.ToLower(folded)
	out = invalidChars.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	out = separators.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-_")

	if maxLen > 0 && len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-_")
	}
	return out
}

// Valid reports whether s consists only of letters, digits, hyphens and
// underscores.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}
