// Package normalize maps raw provider payloads into canonical company
// records. Everything here is pure: no I/O, no retries, no clock. Field
// mapping is explicit per provider; the only conversions are the ones a
// mapper declares (a fixed date layout, a decimal format). A payload
// missing a required identity field fails normalization rather than
// producing a partial record.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/identifier"
)

// Error reports why a payload could not be normalized. It carries every
// issue found, not only the first, so a malformed upstream response is
// diagnosable from one log line.
type Error struct {
	Provider string
	Issues   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize: provider %s: %s", e.Provider, strings.Join(e.Issues, "; "))
}

// Category places normalization failures in the dispatch taxonomy: a record
// this mapper cannot shape is this provider's problem, and the next
// candidate still gets its chance.
func (e *Error) Category() catalog.Category { return catalog.CategoryNormalization }

// Builder accumulates canonical record fields and enforces the record
// invariants at Build time. Setters are forgiving about raw input (they
// trim, parse, validate) and record issues instead of failing fast, so a
// mapper reads as a flat sequence of field assignments.
type Builder struct {
	rec    company.Record
	issues []string
}

// NewBuilder starts a record attributed to the given provider and country.
func NewBuilder(provider, countryCode string) *Builder {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	return &Builder{
		rec: company.Record{
			CountryCode:      cc,
			Status:           company.StatusUnknown,
			Identifiers:      make(map[company.IdentifierType]string),
			Addresses:        []company.Address{},
			Subsidiaries:     []company.Subsidiary{},
			Documents:        []company.Document{},
			Officers:         []company.Officer{},
			BeneficialOwners: []company.BeneficialOwner{},
			Events:           []company.Event{},
			Source: company.Provenance{
				Provider:    provider,
				CountryCode: cc,
			},
		},
	}
}

// Name sets the company name, trimmed.
func (b *Builder) Name(name string) *Builder {
	b.rec.Name = strings.TrimSpace(name)
	return b
}

// LegalForm sets the legal form label as published by the source.
func (b *Builder) LegalForm(form string) *Builder {
	b.rec.LegalForm = strings.TrimSpace(form)
	return b
}

// Status sets the lifecycle status directly.
func (b *Builder) Status(s company.Status) *Builder {
	b.rec.Status = s
	return b
}

// StatusFromActive maps a boolean "administratively active" flag, the shape
// most registries publish, onto the canonical status enum.
func (b *Builder) StatusFromActive(active bool) *Builder {
	if active {
		b.rec.Status = company.StatusActive
	} else {
		b.rec.Status = company.StatusCeased
	}
	return b
}

// RegisteredOn sets the incorporation date.
func (b *Builder) RegisteredOn(d company.Date) *Builder {
	b.rec.RegisteredOn = &d
	return b
}

// RegisteredOnString parses the incorporation date with the mapper's
// declared layout. Empty input is "unknown", not an issue.
func (b *Builder) RegisteredOnString(layout, value string) *Builder {
	if strings.TrimSpace(value) == "" {
		return b
	}
	d, err := ParseDate(layout, value)
	if err != nil {
		b.issuef("registered_on: %v", err)
		return b
	}
	b.rec.RegisteredOn = &d
	return b
}

// ShareCapital sets the share capital.
func (b *Builder) ShareCapital(d decimal.Decimal) *Builder {
	b.rec.ShareCapital = &d
	return b
}

// ShareCapitalString parses a published capital amount. Empty is unknown.
func (b *Builder) ShareCapitalString(value string) *Builder {
	if strings.TrimSpace(value) == "" {
		return b
	}
	d, err := ParseAmount(value)
	if err != nil {
		b.issuef("share_capital: %v", err)
		return b
	}
	b.rec.ShareCapital = &d
	return b
}

// Identifier records an identifier after validating it against the record
// country's format for that type. Validation happens before acceptance,
// never after: a record never leaves the builder carrying an identifier
// that could not exist.
func (b *Builder) Identifier(t company.IdentifierType, raw string) *Builder {
	if strings.TrimSpace(raw) == "" {
		return b
	}
	cls, err := identifier.Classify(raw, b.rec.CountryCode)
	if err != nil {
		b.issuef("identifier %s %q: %v", t, raw, err)
		return b
	}
	if cls.Type != t {
		b.issuef("identifier %q classifies as %s, mapper declared %s", raw, cls.Type, t)
		return b
	}
	b.rec.Identifiers[t] = cls.Normalized
	return b
}

// Address appends an address.
func (b *Builder) Address(a company.Address) *Builder {
	if a.CountryCode == "" {
		a.CountryCode = b.rec.CountryCode
	}
	b.rec.Addresses = append(b.rec.Addresses, a)
	return b
}

// Subsidiary appends a subsidiary link.
func (b *Builder) Subsidiary(s company.Subsidiary) *Builder {
	b.rec.Subsidiaries = append(b.rec.Subsidiaries, s)
	return b
}

// Document appends a document reference. Documents without a URL or blob
// reference are dropped as an issue: the canonical shape promises callers a
// way to reach the document.
func (b *Builder) Document(d company.Document) *Builder {
	if d.URL == "" {
		b.issuef("document %q (%s) has no source URL", d.Title, d.Type)
		return b
	}
	b.rec.Documents = append(b.rec.Documents, d)
	return b
}

// Officer appends an officer.
func (b *Builder) Officer(o company.Officer) *Builder {
	b.rec.Officers = append(b.rec.Officers, o)
	return b
}

// BeneficialOwner appends an ultimate beneficial owner.
func (b *Builder) BeneficialOwner(o company.BeneficialOwner) *Builder {
	b.rec.BeneficialOwners = append(b.rec.BeneficialOwners, o)
	return b
}

// Event appends a registry event.
func (b *Builder) Event(e company.Event) *Builder {
	b.rec.Events = append(b.rec.Events, e)
	return b
}

// FetchedAt stamps the provenance. Adapters pass their fetch time; the demo
// provider passes a derived constant so identical queries produce identical
// records.
func (b *Builder) FetchedAt(t time.Time) *Builder {
	b.rec.Source.FetchedAt = t
	return b
}

// Build validates the accumulated record and returns it. Every collection
// is non-nil on success: an empty slice means "queried, nothing found".
func (b *Builder) Build() (*company.Record, error) {
	if b.rec.Name == "" {
		b.issues = append(b.issues, "missing required field name")
	}
	if b.rec.CountryCode == "" {
		b.issues = append(b.issues, "missing required field country_code")
	} else if !company.ValidCountryCode(b.rec.CountryCode) {
		b.issuef("country_code %q is not ISO 3166-1 alpha-2", b.rec.CountryCode)
	}
	if len(b.issues) > 0 {
		return nil, &Error{Provider: b.rec.Source.Provider, Issues: b.issues}
	}
	rec := b.rec
	return &rec, nil
}

func (b *Builder) issuef(format string, args ...any) {
	b.issues = append(b.issues, fmt.Sprintf(format, args...))
}

// ParseDate parses a date with the layout a mapper declared for its source.
func ParseDate(layout, value string) (company.Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return company.Date{}, fmt.Errorf("cannot parse %q as %s", value, layout)
	}
	return company.DateOf(t), nil
}

// ParseAmount parses a monetary amount the way registries publish them:
// "1 234 567,89" (French convention) or "1234567.89". Currency symbols are
// not handled; sources that attach them declare their own stripping.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		// Registries use plain, no-break and narrow no-break spaces as
		// thousands separators.
		switch r {
		case ' ', '\u00a0', '\u2009', '\u202f':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	// A comma with no dot is a decimal separator, not thousands.
	if strings.Contains(cleaned, ",") && !strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot parse amount %q", value)
	}
	return d, nil
}
