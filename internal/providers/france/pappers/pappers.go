// Package pappers adapts the Pappers v2 API, a paid French aggregator that
// consolidates Sirene, RNE and BODACC data behind a single endpoint. It is
// the broadest French source: one /entreprise call carries officers,
// beneficial owners, filings and legal announcements, so every list
// operation extracts its slice from that payload.
package pappers

import (
	"context"
	"net/http"
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
	name = "pappers"

	keyAPIKey  = "PAPPERS_API_KEY"
	keyBaseURL = "PAPPERS_BASE_URL"

	defaultBaseURL = "https://api.pappers.fr/v2"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "Pappers",
		Continent:   "europe",
		CountryCode: "FR",
		Capabilities: catalog.NewCapabilitySet(
			catalog.CapSearchByName,
			catalog.CapSearchByReference,
			catalog.CapGetDocuments,
			catalog.CapGetAddresses,
			catalog.CapGetSubsidiaries,
			catalog.CapGetOfficers,
			catalog.CapGetBeneficialOwner,
			catalog.CapGetEvents,
		),
		RequiredConfig: []string{keyAPIKey},
		OptionalConfig: []string{keyBaseURL},
		Priority:       10,
		DocsURL:        "https://www.pappers.fr/api/documentation",
		SiteURL:        "https://www.pappers.fr",
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
	api, err := httpx.New(httpx.Config{
		Provider:  name,
		BaseURL:   settings.GetDefault(keyBaseURL, defaultBaseURL),
		RateLimit: rate.Limit(10),
		Burst:     10,
		Decorate:  apiToken(settings.Get(keyAPIKey)),
	})
	if err != nil {
		return nil, err
	}
	return &adapter{Unsupported: providers.Unsupported{Provider: name}, api: api}, nil
}

// apiToken attaches the Pappers credential, which travels as a query
// parameter rather than a header.
func apiToken(token string) func(*http.Request) error {
	return func(req *http.Request) error {
		q := req.URL.Query()
		q.Set("api_token", token)
		req.URL.RawQuery = q.Encode()
		return nil
	}
}

func (a *adapter) Descriptor() catalog.Descriptor { return descriptor() }

func (a *adapter) LookupByIdentifier(ctx context.Context, ident catalog.Identifier) (*company.Record, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return mapEnterprise(e, time.Now())
}

func (a *adapter) SearchByName(ctx context.Context, query string, filters catalog.SearchFilters) ([]company.Record, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{
		"q":        {query},
		"par_page": {strconv.Itoa(limit)},
	}
	if filters.ActiveOnly {
		params.Set("entreprise_cessee", "false")
	}
	if filters.PostalCode != "" {
		params.Set("code_postal", filters.PostalCode)
	}

	var resp searchResponse
	if err := a.api.GetJSON(ctx, "/recherche", params, &resp); err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]company.Record, 0, len(resp.Resultats))
	for i := range resp.Resultats {
		rec, err := mapSearchHit(&resp.Resultats[i], now)
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (a *adapter) Documents(ctx context.Context, ident catalog.Identifier) ([]company.Document, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return e.documents(), nil
}

func (a *adapter) Addresses(ctx context.Context, ident catalog.Identifier) ([]company.Address, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return e.addresses(), nil
}

func (a *adapter) Subsidiaries(ctx context.Context, ident catalog.Identifier) ([]company.Subsidiary, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return e.subsidiaries(), nil
}

func (a *adapter) Officers(ctx context.Context, ident catalog.Identifier) ([]company.Officer, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return e.officers(), nil
}

func (a *adapter) BeneficialOwners(ctx context.Context, ident catalog.Identifier) ([]company.BeneficialOwner, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return e.beneficialOwners(), nil
}

func (a *adapter) Events(ctx context.Context, ident catalog.Identifier) ([]company.Event, error) {
	e, err := a.fetch(ctx, ident)
	if err != nil {
		return nil, err
	}
	return e.events(), nil
}

func (a *adapter) fetch(ctx context.Context, ident catalog.Identifier) (*enterprise, error) {
	params := url.Values{}
	switch ident.Type {
	case company.IdentifierSIREN:
		params.Set("siren", ident.Value)
	case company.IdentifierSIRET:
		params.Set("siret", ident.Value)
	case company.IdentifierVAT:
		params.Set("siren", ident.Value[4:])
	default:
		return nil, catalog.Errorf(catalog.CategoryNotFound, name, "Pappers does not index %s identifiers", ident.Type)
	}

	var e enterprise
	if err := a.api.GetJSON(ctx, "/entreprise", params, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
