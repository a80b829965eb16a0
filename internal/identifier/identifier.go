// Package identifier validates and classifies company identifiers against
// national formats before any network call is made. A provider must never be
// invoked with an identifier that cannot possibly exist; quota is too
// expensive to spend on doomed requests.
//
// Everything here is pure: no I/O, no clock, no configuration.
package identifier

import (
	"fmt"
	"strconv"
	"strings"

	"corpatlas/contracts/company"
)

// Classification is the result of classifying a raw identifier.
type Classification struct {
	Type        company.IdentifierType
	CountryCode string
	// Normalized is the compact canonical form: separators stripped,
	// letters uppercased. This is the form adapters receive and records
	// carry.
	Normalized string
}

type rule struct {
	typ   company.IdentifierType
	match func(s string) bool
}

// Rule order within a country matters only for readability; formats within
// one country are mutually exclusive by construction.
var countryRules = map[string][]rule{
	"FR": {
		{company.IdentifierSIREN, isSIREN},
		{company.IdentifierSIRET, isSIRET},
		{company.IdentifierRNA, isRNA},
		{company.IdentifierVAT, isFrenchVAT},
	},
	"GB": {
		{company.IdentifierCRN, isCRN},
		{company.IdentifierVAT, isBritishVAT},
	},
	"US": {
		{company.IdentifierEIN, isEIN},
	},
}

// countryOrder keeps multi-country classification deterministic.
var countryOrder = []string{"FR", "GB", "US"}

// Classify determines the identifier type of raw. With a country code it
// checks only that country's formats; without one it tries every country and
// refuses to guess when more than one matches.
func Classify(raw, countryCode string) (Classification, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return Classification{}, fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}

	if countryCode != "" {
		cc := strings.ToUpper(countryCode)
		rules, ok := countryRules[cc]
		if !ok {
			return Classification{}, fmt.Errorf("%w: no identifier formats registered for country %s", ErrInvalidIdentifier, cc)
		}
		for _, r := range rules {
			if r.match(normalized) {
				return Classification{Type: r.typ, CountryCode: cc, Normalized: normalized}, nil
			}
		}
		return Classification{}, fmt.Errorf("%w: %q does not match any %s format", ErrInvalidIdentifier, raw, cc)
	}

	var matches []Classification
	for _, cc := range countryOrder {
		for _, r := range countryRules[cc] {
			if r.match(normalized) {
				matches = append(matches, Classification{Type: r.typ, CountryCode: cc, Normalized: normalized})
			}
		}
	}
	switch len(matches) {
	case 0:
		return Classification{}, fmt.Errorf("%w: %q does not match any known format", ErrInvalidIdentifier, raw)
	case 1:
		return matches[0], nil
	default:
		candidates := make([]Candidate, len(matches))
		for i, m := range matches {
			candidates[i] = Candidate{CountryCode: m.CountryCode, Type: m.Type}
		}
		return Classification{}, &AmbiguousError{Identifier: raw, Candidates: candidates}
	}
}

// Normalize strips the separators people paste along with identifiers
// (spaces, dots, hyphens) and uppercases letters. "552 100 554" and
// "55-2100554" both normalize to "552100554".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', '\t', '.', '-':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// FormatSIREN renders a normalized SIREN in the conventional spaced form
// used by French registries ("552100554" -> "552 100 554"). Input that is
// not a 9-digit string is returned unchanged.
func FormatSIREN(siren string) string {
	if len(siren) != 9 || !allDigits(siren) {
		return siren
	}
	return siren[0:3] + " " + siren[3:6] + " " + siren[6:9]
}

// isSIREN: 9 digits carrying a valid Luhn checksum.
func isSIREN(s string) bool {
	return len(s) == 9 && allDigits(s) && luhnValid(s)
}

// isSIRET: 14 digits (SIREN + 5-digit establishment sequence), the whole of
// which carries a valid Luhn checksum.
func isSIRET(s string) bool {
	return len(s) == 14 && allDigits(s) && luhnValid(s)
}

// isRNA: French association register, W followed by 8 digits.
func isRNA(s string) bool {
	return len(s) == 9 && s[0] == 'W' && allDigits(s[1:])
}

// isFrenchVAT: FR + 2-character key + SIREN. When the key is numeric it must
// equal (12 + 3*(siren mod 97)) mod 97; legacy alphanumeric keys are accepted
// structurally.
func isFrenchVAT(s string) bool {
	if len(s) != 13 || !strings.HasPrefix(s, "FR") {
		return false
	}
	key, siren := s[2:4], s[4:13]
	if !allDigits(siren) || !luhnValid(siren) {
		return false
	}
	if !isKeyChar(key[0]) || !isKeyChar(key[1]) {
		return false
	}
	if allDigits(key) {
		sirenNum, err := strconv.Atoi(siren)
		if err != nil {
			return false
		}
		want := (12 + 3*(sirenNum%97)) % 97
		got, _ := strconv.Atoi(key)
		return got == want
	}
	return true
}

// isCRN: Companies House number, 8 digits or a 2-letter jurisdiction prefix
// (SC, NI, OC, ...) followed by 6 digits.
func isCRN(s string) bool {
	if len(s) != 8 {
		return false
	}
	if allDigits(s) {
		return true
	}
	return isUpperAlpha(s[0]) && isUpperAlpha(s[1]) && allDigits(s[2:])
}

// isBritishVAT: GB + 9 or 12 digits.
func isBritishVAT(s string) bool {
	if !strings.HasPrefix(s, "GB") {
		return false
	}
	rest := s[2:]
	return (len(rest) == 9 || len(rest) == 12) && allDigits(rest)
}

// isEIN: US employer identification number, 9 digits. The conventional
// NN-NNNNNNN hyphen is gone by the time Normalize has run.
func isEIN(s string) bool {
	return len(s) == 9 && allDigits(s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isUpperAlpha(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isKeyChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
}

// luhnValid implements the Luhn checksum as applied by INSEE: doubling every
// second digit from the right, summing the digits of the products, and
// requiring the total to be a multiple of ten.
func luhnValid(s string) bool {
	total := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		total += d
		double = !double
	}
	return total%10 == 0
}
