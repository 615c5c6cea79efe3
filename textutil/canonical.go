// Package textutil holds the text canonicalization used to merge and compare
// submitted answers. Canonical forms are merge keys only; display casing is
// kept separately by the caller.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Canonicalize normalizes text into a merge key: trim, case-fold, accent-fold
// and collapse internal whitespace. "  Café  Racer " and "cafe racer" share a key.
func Canonicalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return folded
}

// Display trims a raw submission and uppercases its first rune so every
// revealed answer shares one casing convention.
func Display(s string) string {
	s = strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
