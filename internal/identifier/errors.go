package identifier

import (
	"errors"
	"fmt"
	"strings"

	"corpatlas/contracts/company"
)

// ErrInvalidIdentifier means the input matched no known national format.
// It is a validation failure: no provider call is attempted for it.
var ErrInvalidIdentifier = errors.New("identifier: no known format matched")

// Candidate is one (country, type) pair an ambiguous identifier could be.
type Candidate struct {
	CountryCode string                 `json:"country_code"`
	Type        company.IdentifierType `json:"type"`
}

// AmbiguousError is returned when an identifier matches the format of more
// than one country and no country code was supplied. Guessing is forbidden;
// the caller must disambiguate.
type AmbiguousError struct {
	Identifier string
	Candidates []Candidate
}

func (e *AmbiguousError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = fmt.Sprintf("%s/%s", c.CountryCode, c.Type)
	}
	return fmt.Sprintf("identifier: %q is ambiguous between %s; supply a country code",
		e.Identifier, strings.Join(parts, ", "))
}
