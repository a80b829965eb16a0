// Package insee adapts the Sirene V3 API published by INSEE, the French
// national statistics institute. Sirene is the authoritative register for
// SIREN and SIRET numbers, which makes this the highest-priority French
// provider for reference lookups.
package insee

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/providers"
	"corpatlas/internal/providers/httpx"
)

const (
	name = "insee"

	keyAPIKey  = "INSEE_API_KEY"
	keyBaseURL = "INSEE_BASE_URL"

	defaultBaseURL = "https://api.insee.fr/entreprises/sirene/V3"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "INSEE Sirene",
		Continent:   "europe",
		CountryCode: "FR",
		Capabilities: catalog.NewCapabilitySet(
			catalog.CapSearchByName,
			catalog.CapSearchByReference,
			catalog.CapGetAddresses,
			catalog.CapGetDocuments,
		),
		RequiredConfig: []string{keyAPIKey},
		OptionalConfig: []string{keyBaseURL},
		Priority:       1,
		DocsURL:        "https://www.sirene.fr/static-resources/documentation/sommaire_311.html",
		SiteURL:        "https://www.insee.fr",
	}
}

// Registration describes the provider for the catalog.
func Registration() catalog.Registration {
	return catalog.Registration{Descriptor: descriptor(), Factory: newAdapter}
}

type adapter struct {
	providers.Unsupported
	api *httpx.Client
}

func newAdapter(settings catalog.Settings) (catalog.Adapter, error) {
	// The public Sirene plan allows 30 requests per minute.
	api, err := httpx.New(httpx.Config{
		Provider:  name,
		BaseURL:   settings.GetDefault(keyBaseURL, defaultBaseURL),
		RateLimit: rate.Every(2 * time.Second),
		Burst:     10,
		Decorate:  httpx.APIKeyHeader("X-INSEE-Api-Key-Integration", settings.Get(keyAPIKey)),
	})
	if err != nil {
		return nil, err
	}
	return &adapter{Unsupported: providers.Unsupported{Provider: name}, api: api}, nil
}

func (a *adapter) Descriptor() catalog.Descriptor { return descriptor() }

func (a *adapter) LookupByIdentifier(ctx context.Context, ident catalog.Identifier) (*company.Record, error) {
	if ident.Type == company.IdentifierSIRET {
		var resp establishmentResponse
		if err := a.api.GetJSON(ctx, "/siret/"+ident.Value, nil, &resp); err != nil {
			return nil, err
		}
		return mapEstablishment(&resp.Etablissement, time.Now())
	}

	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}
	var resp unitResponse
	if err := a.api.GetJSON(ctx, "/siren/"+siren, nil, &resp); err != nil {
		return nil, err
	}
	return mapUnit(&resp.UniteLegale, time.Now())
}

func (a *adapter) SearchByName(ctx context.Context, query string, filters catalog.SearchFilters) ([]company.Record, error) {
	q := fmt.Sprintf("denominationUniteLegale:%q", query)
	if filters.ActiveOnly {
		q += " AND periode(etatAdministratifUniteLegale:A)"
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{
		"q":      {q},
		"nombre": {strconv.Itoa(limit)},
	}
	var resp searchResponse
	if err := a.api.GetJSON(ctx, "/siren", params, &resp); err != nil {
		// The Sirene search endpoint answers 404 for an empty result set.
		if catalog.IsCategory(err, catalog.CategoryNotFound) {
			return []company.Record{}, nil
		}
		return nil, err
	}

	now := time.Now()
	records := make([]company.Record, 0, len(resp.UnitesLegales))
	for i := range resp.UnitesLegales {
		rec, err := mapUnit(&resp.UnitesLegales[i], now)
		if err != nil {
			// Units without a usable name (hidden sole traders) are
			// skipped; a search result is allowed to be partial.
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (a *adapter) Addresses(ctx context.Context, ident catalog.Identifier) ([]company.Address, error) {
	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":      {"siren:" + siren},
		"nombre": {strconv.Itoa(maxSearchLimit)},
	}
	var resp establishmentsResponse
	if err := a.api.GetJSON(ctx, "/siret", params, &resp); err != nil {
		if catalog.IsCategory(err, catalog.CategoryNotFound) {
			return []company.Address{}, nil
		}
		return nil, err
	}

	addresses := make([]company.Address, 0, len(resp.Etablissements))
	for i := range resp.Etablissements {
		addresses = append(addresses, resp.Etablissements[i].address())
	}
	return addresses, nil
}

// Documents returns the Sirene registration notice. INSEE publishes no
// filings, but the avis de situation is the standard proof of registration
// French counterparties ask for.
func (a *adapter) Documents(ctx context.Context, ident catalog.Identifier) ([]company.Document, error) {
	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}
	var resp unitResponse
	if err := a.api.GetJSON(ctx, "/siren/"+siren, nil, &resp); err != nil {
		return nil, err
	}

	unit := resp.UniteLegale
	issued, err := normalizeDate(unit.DateCreation)
	if err != nil {
		return nil, catalog.Errorf(catalog.CategoryNormalization, name, "registration date %q does not parse", unit.DateCreation)
	}
	return []company.Document{{
		Type:     "registration",
		Title:    "Avis de situation Sirene",
		IssuedOn: issued,
		URL:      "https://api-avis-situation-sirene.insee.fr/identification/pdf/" + unit.Siren + unit.current().NicSiege,
		Source:   name,
	}}, nil
}

// sirenOf extracts the SIREN from any French identifier shape the classifier
// hands us. A French VAT number embeds the SIREN after the 2-character key.
func sirenOf(ident catalog.Identifier) (string, error) {
	switch ident.Type {
	case company.IdentifierSIREN:
		return ident.Value, nil
	case company.IdentifierSIRET:
		return ident.Value[:9], nil
	case company.IdentifierVAT:
		return ident.Value[4:], nil
	}
	return "", catalog.Errorf(catalog.CategoryNotFound, name, "Sirene does not index %s identifiers", ident.Type)
}
