// Package bodacc adapts the BODACC open-data feed (Bulletin officiel des
// annonces civiles et commerciales) published through the DILA opendatasoft
// portal. The bulletin carries legal announcements only, so this provider
// serves documents and events and nothing else. No credential is required,
// which makes it the one French source that works out of the box.
package bodacc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/normalize"
	"corpatlas/internal/providers"
	"corpatlas/internal/providers/httpx"
)

const (
	name = "bodacc"

	keyBaseURL = "BODACC_BASE_URL"

	defaultBaseURL = "https://bodacc-datadila.opendatasoft.com"
	dataset        = "annonces-commerciales"
	maxRows        = 100

	dateLayout = "2006-01-02"
)

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "BODACC",
		Continent:   "europe",
		CountryCode: "FR",
		Capabilities: catalog.NewCapabilitySet(
			catalog.CapGetDocuments,
			catalog.CapGetEvents,
		),
		OptionalConfig: []string{keyBaseURL},
		Priority:       11,
		DocsURL:        "https://www.data.gouv.fr/fr/datasets/bodacc/",
		SiteURL:        "https://www.bodacc.fr",
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
		RateLimit: rate.Limit(5),
		Burst:     5,
	})
	if err != nil {
		return nil, err
	}
	return &adapter{Unsupported: providers.Unsupported{Provider: name}, api: api}, nil
}

func (a *adapter) Descriptor() catalog.Descriptor { return descriptor() }

func (a *adapter) Documents(ctx context.Context, ident catalog.Identifier) ([]company.Document, error) {
	records, err := a.announcements(ctx, ident)
	if err != nil {
		return nil, err
	}

	docs := make([]company.Document, 0, len(records))
	for _, rec := range records {
		f := rec.Fields
		if f.URLComplete == "" {
			// An announcement without a bulletin link cannot be cited
			// as a document; it still surfaces as an event.
			continue
		}
		docs = append(docs, company.Document{
			Type:     "legal_announcement",
			Title:    fmt.Sprintf("%s n°%d", f.FamilleAvisLib, f.NumeroAnnonce),
			IssuedOn: dateOrZero(f.DateParution),
			URL:      f.URLComplete,
			Source:   name,
		})
	}
	return docs, nil
}

func (a *adapter) Events(ctx context.Context, ident catalog.Identifier) ([]company.Event, error) {
	records, err := a.announcements(ctx, ident)
	if err != nil {
		return nil, err
	}

	events := make([]company.Event, 0, len(records))
	for _, rec := range records {
		f := rec.Fields
		events = append(events, company.Event{
			Type:       eventType(f.FamilleAvisLib),
			OccurredOn: dateOrZero(f.DateParution),
			Title:      f.FamilleAvisLib,
			Details:    f.Tribunal,
			Source:     name,
		})
	}
	return events, nil
}

func (a *adapter) announcements(ctx context.Context, ident catalog.Identifier) ([]record, error) {
	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"dataset": {dataset},
		"q":       {"registre:" + siren},
		"rows":    {fmt.Sprint(maxRows)},
		"sort":    {"dateparution"},
	}
	var resp searchResponse
	if err := a.api.GetJSON(ctx, "/api/records/1.0/search/", params, &resp); err != nil {
		return nil, err
	}
	if resp.NHits == 0 {
		return nil, catalog.Errorf(catalog.CategoryNotFound, name, "no announcement published for %s", siren)
	}
	return resp.Records, nil
}

func sirenOf(ident catalog.Identifier) (string, error) {
	switch ident.Type {
	case company.IdentifierSIREN:
		return ident.Value, nil
	case company.IdentifierSIRET:
		return ident.Value[:9], nil
	case company.IdentifierVAT:
		return ident.Value[4:], nil
	}
	return "", catalog.Errorf(catalog.CategoryNotFound, name, "BODACC indexes announcements by SIREN only")
}

// Opendatasoft search payload for the annonces-commerciales dataset.

type searchResponse struct {
	NHits   int      `json:"nhits"`
	Records []record `json:"records"`
}

type record struct {
	RecordID string `json:"recordid"`
	Fields   fields `json:"fields"`
}

type fields struct {
	DateParution   string `json:"dateparution"`
	FamilleAvisLib string `json:"familleavis_lib"`
	TypeAvisLib    string `json:"typeavis_lib"`
	NumeroAnnonce  int    `json:"numeroannonce"`
	Tribunal       string `json:"tribunal"`
	URLComplete    string `json:"url_complete"`
}

func eventType(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

func dateOrZero(value string) company.Date {
	d, err := normalize.ParseDate(dateLayout, value)
	if err != nil {
		return company.Date{}
	}
	return d
}
