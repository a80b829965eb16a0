// Package company defines the canonical company record: the one normalized
// shape every data-source adapter must map its native response into, and the
// only shape handed back to callers. Native provider payloads never cross
// this boundary.
package company

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// IdentifierType tags a company identifier scheme. Values are lowercase and
// stable; they are used as JSON map keys and as cache key components.
type IdentifierType string

const (
	// IdentifierSIREN is the French 9-digit legal-unit number.
	IdentifierSIREN IdentifierType = "siren"
	// IdentifierSIRET is the French 14-digit establishment number
	// (SIREN plus a 5-digit internal sequence).
	IdentifierSIRET IdentifierType = "siret"
	// IdentifierRNA is the French association register number (W + 8 digits).
	IdentifierRNA IdentifierType = "rna"
	// IdentifierVAT is an EU VAT number including its country prefix.
	IdentifierVAT IdentifierType = "vat"
	// IdentifierCRN is the UK Companies House registration number.
	IdentifierCRN IdentifierType = "crn"
	// IdentifierEIN is the US employer identification number.
	IdentifierEIN IdentifierType = "ein"
)

// Status is the coarse lifecycle state of a company as reported by a source.
type Status string

const (
	StatusActive  Status = "active"
	StatusCeased  Status = "ceased"
	StatusUnknown Status = "unknown"
)

// AddressRole distinguishes the addresses a registry may hold for one company.
type AddressRole string

const (
	AddressHeadquarters     AddressRole = "headquarters"
	AddressBranch           AddressRole = "branch"
	AddressRegisteredOffice AddressRole = "registered_office"
	AddressHistorical       AddressRole = "historical"
)

// Address is one postal address with an optional validity range. Historical
// addresses carry ValidTo; current ones leave it nil.
type Address struct {
	Role        AddressRole `json:"role"`
	Street      string      `json:"street,omitempty"`
	City        string      `json:"city,omitempty"`
	PostalCode  string      `json:"postal_code,omitempty"`
	CountryCode string      `json:"country_code,omitempty"`
	ValidFrom   *Date       `json:"valid_from,omitempty"`
	ValidTo     *Date       `json:"valid_to,omitempty"`
}

// Subsidiary links a parent company to a child entity it holds.
type Subsidiary struct {
	Identifier       string           `json:"identifier"`
	IdentifierType   IdentifierType   `json:"identifier_type,omitempty"`
	Name             string           `json:"name,omitempty"`
	OwnershipPercent *decimal.Decimal `json:"ownership_percent,omitempty"`
	Role             string           `json:"role,omitempty"`
}

// Document is a filing or publication attached to a company (annual accounts,
// legal announcements, incorporation acts).
type Document struct {
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	IssuedOn Date   `json:"issued_on"`
	URL      string `json:"url"`
	Source   string `json:"source,omitempty"`
}

// DocumentKey identifies a document across sources. Two providers returning
// the same filing produce equal keys, which is how aggregated results are
// deduplicated.
type DocumentKey struct {
	Type     string
	IssuedOn Date
	URL      string
}

// Key returns the cross-source identity of the document.
func (d Document) Key() DocumentKey {
	return DocumentKey{Type: d.Type, IssuedOn: d.IssuedOn, URL: d.URL}
}

// Officer is a person or entity holding a formal role in the company.
type Officer struct {
	Name             string           `json:"name"`
	Role             string           `json:"role,omitempty"`
	AppointedOn      *Date            `json:"appointed_on,omitempty"`
	OwnershipPercent *decimal.Decimal `json:"ownership_percent,omitempty"`
}

// BeneficialOwner is a natural person exercising ultimate control. The
// ownership share is optional because several registers publish control
// without percentages.
type BeneficialOwner struct {
	Name             string           `json:"name"`
	Role             string           `json:"role,omitempty"`
	OwnershipPercent *decimal.Decimal `json:"ownership_percent,omitempty"`
	Since            *Date            `json:"since,omitempty"`
}

// Event is a dated registry occurrence: incorporation, collective procedure,
// capital change, radiation. Sources that publish legal announcements
// (BODACC and the like) surface them through this shape.
type Event struct {
	Type       string `json:"type"`
	OccurredOn Date   `json:"occurred_on"`
	Title      string `json:"title,omitempty"`
	Details    string `json:"details,omitempty"`
	Source     string `json:"source,omitempty"`
}

// EventKey identifies an event across sources, mirroring DocumentKey.
type EventKey struct {
	Type       string
	OccurredOn Date
	Title      string
}

// Key returns the cross-source identity of the event.
func (e Event) Key() EventKey {
	return EventKey{Type: e.Type, OccurredOn: e.OccurredOn, Title: e.Title}
}

// Provenance records which provider produced a record and when.
type Provenance struct {
	Provider    string    `json:"provider"`
	CountryCode string    `json:"country_code,omitempty"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
}

// Record is the canonical company record.
//
// Invariants:
//   - Name and CountryCode are always set on a valid record.
//   - CountryCode is an ISO 3166-1 alpha-2 code.
//   - Identifier values conform to their type's national format before the
//     record is accepted, never after.
//   - Once normalization completes, the collection fields are non-nil: an
//     empty slice means "queried, nothing found", a nil slice is not a valid
//     state.
type Record struct {
	Name             string                    `json:"name"`
	CountryCode      string                    `json:"country_code"`
	LegalForm        string                    `json:"legal_form,omitempty"`
	Status           Status                    `json:"status,omitempty"`
	RegisteredOn     *Date                     `json:"registered_on,omitempty"`
	ShareCapital     *decimal.Decimal          `json:"share_capital,omitempty"`
	Identifiers      map[IdentifierType]string `json:"identifiers"`
	Addresses        []Address                 `json:"addresses"`
	Subsidiaries     []Subsidiary              `json:"subsidiaries"`
	Documents        []Document                `json:"documents"`
	Officers         []Officer                 `json:"officers"`
	BeneficialOwners []BeneficialOwner         `json:"beneficial_owners"`
	Events           []Event                   `json:"events"`
	Source           Provenance                `json:"raw_source"`
}

// ErrMissingName and ErrMissingCountry are the required-field violations a
// record can carry; normalization maps them to its own failure type.
var (
	ErrMissingName    = errors.New("company: record name is required")
	ErrMissingCountry = errors.New("company: record country_code is required")
)

// Validate checks the required-identity invariants. It does not validate
// identifier formats; that is the normalizer's job, with country context.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(r.CountryCode) == "" {
		return ErrMissingCountry
	}
	if !ValidCountryCode(r.CountryCode) {
		return fmt.Errorf("company: %q is not an ISO 3166-1 alpha-2 country code", r.CountryCode)
	}
	return nil
}

// ValidCountryCode reports whether code is a known ISO 3166-1 alpha-2
// country code. Case-sensitive: canonical records carry uppercase codes.
func ValidCountryCode(code string) bool {
	if len(code) != 2 || code != strings.ToUpper(code) {
		return false
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return false
	}
	return region.IsCountry()
}

// Clone returns a deep copy. Caches hand out clones so callers can mutate
// results without corrupting shared state. Nil and empty collections stay
// distinct, keeping the "queried, nothing found" signal intact.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Identifiers = maps.Clone(r.Identifiers)
	out.Addresses = slices.Clone(r.Addresses)
	out.Subsidiaries = slices.Clone(r.Subsidiaries)
	out.Documents = slices.Clone(r.Documents)
	out.Officers = slices.Clone(r.Officers)
	out.BeneficialOwners = slices.Clone(r.BeneficialOwners)
	out.Events = slices.Clone(r.Events)
	return &out
}
