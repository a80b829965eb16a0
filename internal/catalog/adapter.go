package catalog

import (
	"context"

	"corpatlas/contracts/company"
)

// Identifier is a validated company identifier handed to adapters. By the
// time an adapter sees one, the value is normalized and its format has been
// checked against the country's rules; adapters never re-validate.
type Identifier struct {
	Type        company.IdentifierType
	Value       string
	CountryCode string
}

// SearchFilters narrows a name search. Adapters apply the filters their
// source supports and ignore the rest.
type SearchFilters struct {
	// Limit caps the number of results; zero means the adapter default.
	Limit int

	// ActiveOnly restricts results to companies not marked ceased.
	ActiveOnly bool

	// PostalCode restricts results geographically where the source can.
	PostalCode string
}

// Adapter is the fixed operation surface every data source exposes,
// regardless of how the upstream is shaped. List operations return an empty
// slice when the source has no data; every failure is a *Error carrying a
// taxonomy category. Operations outside the declared capability set answer
// with CategoryUnsupported, but the registry filters those out before
// dispatch ever reaches them.
type Adapter interface {
	// Descriptor returns the static metadata this adapter registered with.
	Descriptor() Descriptor

	// SearchByName finds companies matching a free-text query. Partial
	// records are acceptable: a search hit carries at least name, country
	// and the primary identifier.
	SearchByName(ctx context.Context, query string, filters SearchFilters) ([]company.Record, error)

	// LookupByIdentifier fetches the full record for one company.
	// Fails with CategoryNotFound when the source has no match.
	LookupByIdentifier(ctx context.Context, ident Identifier) (*company.Record, error)

	Documents(ctx context.Context, ident Identifier) ([]company.Document, error)
	Addresses(ctx context.Context, ident Identifier) ([]company.Address, error)
	Subsidiaries(ctx context.Context, ident Identifier) ([]company.Subsidiary, error)
	Officers(ctx context.Context, ident Identifier) ([]company.Officer, error)
	BeneficialOwners(ctx context.Context, ident Identifier) ([]company.BeneficialOwner, error)
	Events(ctx context.Context, ident Identifier) ([]company.Event, error)
}

// Settings is the configuration slice a factory receives: only the keys the
// descriptor declared, captured from the startup environment snapshot.
type Settings struct {
	values map[string]string
}

// NewSettings builds settings from explicit key/value pairs. Tests and the
// registry use it; adapters only read.
func NewSettings(values map[string]string) Settings {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Settings{values: copied}
}

// Get returns the value for key, or "" when unset.
func (s Settings) Get(key string) string {
	return s.values[key]
}

// GetDefault returns the value for key, or def when unset.
func (s Settings) GetDefault(key, def string) string {
	if v, ok := s.values[key]; ok && v != "" {
		return v
	}
	return def
}

// Has reports whether key is present and non-empty.
func (s Settings) Has(key string) bool {
	return s.values[key] != ""
}

// Factory constructs an adapter from its settings. Construction must not
// perform I/O; the first network call happens inside an operation with a
// caller-supplied context.
type Factory func(settings Settings) (Adapter, error)

// Registration pairs a descriptor with the factory that builds its adapter.
type Registration struct {
	Descriptor Descriptor
	Factory    Factory
}
