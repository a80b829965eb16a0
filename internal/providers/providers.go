// Package providers hosts the adapter implementations behind the catalog
// registry. Each upstream source lives in its own subpackage (france/insee,
// france/pappers, uk/companieshouse, ...) and exports a Registration that the
// server wires into the registry at startup. The shared HTTP plumbing lives
// in httpx; this package only carries the pieces every adapter embeds.
package providers

import (
	"context"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
)

// Unsupported answers every operation with an unsupported_operation error.
// Adapters embed it and override only the operations their descriptor
// declares, so an undeclared method never silently returns empty data. The
// registry filters on declared capabilities before dispatch, which makes
// these answers a programming-error signal rather than a runtime path.
type Unsupported struct {
	Provider string
}

func (u Unsupported) unsupported(op string) *catalog.Error {
	return catalog.Errorf(catalog.CategoryUnsupported, u.Provider, "%s is not implemented by this provider", op)
}

func (u Unsupported) SearchByName(context.Context, string, catalog.SearchFilters) ([]company.Record, error) {
	return nil, u.unsupported("search_by_name")
}

func (u Unsupported) LookupByIdentifier(context.Context, catalog.Identifier) (*company.Record, error) {
	return nil, u.unsupported("search_by_reference")
}

func (u Unsupported) Documents(context.Context, catalog.Identifier) ([]company.Document, error) {
	return nil, u.unsupported("get_documents")
}

func (u Unsupported) Addresses(context.Context, catalog.Identifier) ([]company.Address, error) {
	return nil, u.unsupported("get_addresses")
}

func (u Unsupported) Subsidiaries(context.Context, catalog.Identifier) ([]company.Subsidiary, error) {
	return nil, u.unsupported("get_subsidiaries")
}

func (u Unsupported) Officers(context.Context, catalog.Identifier) ([]company.Officer, error) {
	return nil, u.unsupported("get_officers")
}

func (u Unsupported) BeneficialOwners(context.Context, catalog.Identifier) ([]company.BeneficialOwner, error) {
	return nil, u.unsupported("get_beneficial_owners")
}

func (u Unsupported) Events(context.Context, catalog.Identifier) ([]company.Event, error) {
	return nil, u.unsupported("get_events")
}
