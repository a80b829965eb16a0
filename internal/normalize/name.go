package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalName folds a company name into the form used for cross-provider
// comparison and dedup: diacritics stripped, runs of whitespace collapsed to
// a single space, uppercased. "Société Générale" and "SOCIETE  GENERALE"
// canonicalize identically. The display name on records is never touched;
// this form exists only to compare.
func CanonicalName(name string) string {
	// The transformer chain keeps state across writes, so build one per
	// call rather than sharing.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}

// SameName reports whether two names canonicalize to the same form.
func SameName(a, b string) bool {
	return CanonicalName(a) == CanonicalName(b)
}
