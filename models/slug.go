package models

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators   = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts a product name into a URL slug: ASCII-folded, lowercase,
// with runs of whitespace and hyphens collapsed into a single hyphen.
func Slugify(name string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	s := slugInvalidChars.ReplaceAllString(strings.ToLower(folded), "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	return truncate(s, maxSlugLength)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
