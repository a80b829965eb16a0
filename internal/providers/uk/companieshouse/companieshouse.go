// Package companieshouse adapts the Companies House public data API, the
// official register for companies incorporated in the United Kingdom. The
// API key travels as the basic-auth username with an empty password, which
// is Companies House's own convention.
package companieshouse

import (
	"context"
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
	name = "companies_house"

	keyAPIKey  = "COMPANIES_HOUSE_API_KEY"
	keyBaseURL = "COMPANIES_HOUSE_BASE_URL"

	defaultBaseURL = "https://api.company-information.service.gov.uk"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "Companies House",
		Continent:   "europe",
		CountryCode: "GB",
		Capabilities: catalog.NewCapabilitySet(
			catalog.CapSearchByName,
			catalog.CapSearchByReference,
			catalog.CapGetDocuments,
			catalog.CapGetAddresses,
			catalog.CapGetOfficers,
			catalog.CapGetBeneficialOwner,
		),
		RequiredConfig: []string{keyAPIKey},
		OptionalConfig: []string{keyBaseURL},
		Priority:       1,
		DocsURL:        "https://developer.company-information.service.gov.uk/",
		SiteURL:        "https://find-and-update.company-information.service.gov.uk",
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
	// Companies House allows 600 requests per 5 minutes.
	api, err := httpx.New(httpx.Config{
		Provider:  name,
		BaseURL:   settings.GetDefault(keyBaseURL, defaultBaseURL),
		RateLimit: rate.Limit(2),
		Burst:     20,
		Decorate:  httpx.BasicAuth(settings.Get(keyAPIKey), ""),
	})
	if err != nil {
		return nil, err
	}
	return &adapter{Unsupported: providers.Unsupported{Provider: name}, api: api}, nil
}

func (a *adapter) Descriptor() catalog.Descriptor { return descriptor() }

func (a *adapter) LookupByIdentifier(ctx context.Context, ident catalog.Identifier) (*company.Record, error) {
	number, err := companyNumber(ident)
	if err != nil {
		return nil, err
	}
	var p profile
	if err := a.api.GetJSON(ctx, "/company/"+number, nil, &p); err != nil {
		return nil, err
	}
	return mapProfile(&p, time.Now())
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
		"q":              {query},
		"items_per_page": {strconv.Itoa(limit)},
	}
	var resp searchResponse
	if err := a.api.GetJSON(ctx, "/search/companies", params, &resp); err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]company.Record, 0, len(resp.Items))
	for i := range resp.Items {
		item := &resp.Items[i]
		// The search endpoint cannot filter by status server side.
		if filters.ActiveOnly && item.CompanyStatus != "active" {
			continue
		}
		rec, err := mapSearchItem(item, now)
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (a *adapter) Documents(ctx context.Context, ident catalog.Identifier) ([]company.Document, error) {
	number, err := companyNumber(ident)
	if err != nil {
		return nil, err
	}
	var resp filingHistory
	if err := a.api.GetJSON(ctx, "/company/"+number+"/filing-history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.documents(), nil
}

func (a *adapter) Addresses(ctx context.Context, ident catalog.Identifier) ([]company.Address, error) {
	number, err := companyNumber(ident)
	if err != nil {
		return nil, err
	}
	var addr registeredOffice
	if err := a.api.GetJSON(ctx, "/company/"+number+"/registered-office-address", nil, &addr); err != nil {
		return nil, err
	}
	return []company.Address{addr.canonical()}, nil
}

func (a *adapter) Officers(ctx context.Context, ident catalog.Identifier) ([]company.Officer, error) {
	number, err := companyNumber(ident)
	if err != nil {
		return nil, err
	}
	var resp officerList
	if err := a.api.GetJSON(ctx, "/company/"+number+"/officers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.officers(), nil
}

func (a *adapter) BeneficialOwners(ctx context.Context, ident catalog.Identifier) ([]company.BeneficialOwner, error) {
	number, err := companyNumber(ident)
	if err != nil {
		return nil, err
	}
	var resp pscList
	if err := a.api.GetJSON(ctx, "/company/"+number+"/persons-with-significant-control", nil, &resp); err != nil {
		return nil, err
	}
	return resp.owners(), nil
}

func companyNumber(ident catalog.Identifier) (string, error) {
	if ident.Type != company.IdentifierCRN {
		return "", catalog.Errorf(catalog.CategoryNotFound, name, "Companies House indexes companies by registration number, not %s", ident.Type)
	}
	return ident.Value, nil
}
