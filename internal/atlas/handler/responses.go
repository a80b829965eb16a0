package handler

import (
	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/dispatch"
)

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Results []company.Record `json:"results"`
	Count   int              `json:"count"`
}

// DocumentsResponse is the body of the aggregating documents endpoint.
// Failures list the sources that could not contribute; the documents are
// still a valid partial answer.
type DocumentsResponse struct {
	Documents []company.Document `json:"documents"`
	Failures  []dispatch.Attempt `json:"failures,omitempty"`
}

// EventsResponse is the body of the aggregating events endpoint.
type EventsResponse struct {
	Events   []company.Event    `json:"events"`
	Failures []dispatch.Attempt `json:"failures,omitempty"`
}

// AddressesResponse is the body of GET /v1/companies/{identifier}/addresses.
type AddressesResponse struct {
	Addresses []company.Address `json:"addresses"`
}

// SubsidiariesResponse is the body of GET /v1/companies/{identifier}/subsidiaries.
type SubsidiariesResponse struct {
	Subsidiaries []company.Subsidiary `json:"subsidiaries"`
}

// OfficersResponse is the body of GET /v1/companies/{identifier}/officers.
type OfficersResponse struct {
	Officers []company.Officer `json:"officers"`
}

// BeneficialOwnersResponse is the body of GET /v1/companies/{identifier}/beneficial-owners.
type BeneficialOwnersResponse struct {
	BeneficialOwners []company.BeneficialOwner `json:"beneficial_owners"`
}

// ProvidersResponse is the body of GET /v1/providers.
type ProvidersResponse struct {
	Providers []catalog.Status `json:"providers"`
	Count     int              `json:"count"`
}

// orEmpty keeps "queried, nothing found" rendering as [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
