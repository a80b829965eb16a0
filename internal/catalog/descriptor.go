// Package catalog holds the provider registry: static descriptors for every
// known data source, the shared Adapter interface they implement, and the
// normalized failure taxonomy. The registry is built once at startup and is
// immutable afterwards; adapter instances are constructed lazily and
// memoized per configuration.
package catalog

import (
	"slices"
	"strings"
)

// Capability is a named operation an adapter may or may not support.
// Resolution filters on capabilities so the dispatcher never reaches an
// adapter that would answer with unsupported_operation.
type Capability string

const (
	CapSearchByName       Capability = "search_by_name"
	CapSearchByReference  Capability = "search_by_reference"
	CapGetDocuments       Capability = "get_documents"
	CapGetAddresses       Capability = "get_addresses"
	CapGetSubsidiaries    Capability = "get_subsidiaries"
	CapGetOfficers        Capability = "get_officers"
	CapGetBeneficialOwner Capability = "get_beneficial_owners"
	CapGetEvents          Capability = "get_events"
)

// AllCapabilities lists every capability in a stable order, for status
// listings and validation of query parameters.
var AllCapabilities = []Capability{
	CapSearchByName,
	CapSearchByReference,
	CapGetDocuments,
	CapGetAddresses,
	CapGetSubsidiaries,
	CapGetOfficers,
	CapGetBeneficialOwner,
	CapGetEvents,
}

// ParseCapability maps a wire string to a known capability.
func ParseCapability(s string) (Capability, bool) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	return c, slices.Contains(AllCapabilities, c)
}

// CapabilitySet is the fixed, enumerable set of operations an adapter
// declares at registration time. Declared once, never mutated.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the listed capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the capability is declared.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the declared capabilities in the canonical order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for _, c := range AllCapabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Descriptor is the static metadata for one provider. Constructed once at
// registration, immutable thereafter; never mutated during a request.
type Descriptor struct {
	// Name is the unique registry key, lowercase ("insee", "pappers").
	Name string

	// DisplayName is the human-facing label shown in status listings.
	DisplayName string

	// Continent and CountryCode key resolution geographically.
	// CountryCode is ISO 3166-1 alpha-2, uppercase.
	Continent   string
	CountryCode string

	// Capabilities enumerates the operations this provider implements.
	Capabilities CapabilitySet

	// RequiredConfig lists the environment keys that must be present for
	// the provider to operate (e.g. INSEE_API_KEY). A provider with a
	// missing required key is excluded from resolution entirely.
	RequiredConfig []string

	// OptionalConfig lists recognized but optional keys (base URL
	// overrides, tuning). They participate in the config fingerprint.
	OptionalConfig []string

	// Priority orders candidates during resolution; lower runs first.
	// Convention: official registries < aggregators < scrapers.
	Priority int

	// DocsURL and SiteURL point at the upstream service, surfaced in the
	// provider status listing.
	DocsURL string
	SiteURL string
}

// Label returns the display name, falling back to a title-cased Name.
func (d Descriptor) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return strings.ToUpper(d.Name[:1]) + d.Name[1:]
}

// ConfigKeys returns required plus optional keys, required first.
func (d Descriptor) ConfigKeys() []string {
	keys := make([]string, 0, len(d.RequiredConfig)+len(d.OptionalConfig))
	keys = append(keys, d.RequiredConfig...)
	keys = append(keys, d.OptionalConfig...)
	return keys
}
