// Package societecom scrapes societe.com company pages. It is the last-rank
// French source: no API, no credential, HTML that can shift under us, so it
// only backs up the name search and reference lookup when every API-backed
// provider has failed. The scraper is deliberately polite, one request per
// second.
package societecom

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/normalize"
	"corpatlas/internal/providers"
	"corpatlas/internal/providers/httpx"
)

const (
	name = "societecom"

	keyBaseURL = "SOCIETECOM_BASE_URL"

	defaultBaseURL = "https://www.societe.com"

	dateLayout = "02-01-2006"
)

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "societe.com",
		Continent:   "europe",
		CountryCode: "FR",
		Capabilities: catalog.NewCapabilitySet(
			catalog.CapSearchByName,
			catalog.CapSearchByReference,
		),
		OptionalConfig: []string{keyBaseURL},
		Priority:       30,
		DocsURL:        "https://www.societe.com/cgi-bin/api",
		SiteURL:        "https://www.societe.com",
	}
}

// Registration describes the provider for the catalog.
func Registration() catalog.Registration {
	return catalog.Registration{Descriptor: descriptor(), Factory: newAdapter}
}

type adapter struct {
	providers.Unsupported
	site *httpx.Client
}

func newAdapter(settings catalog.Settings) (catalog.Adapter, error) {
	site, err := httpx.New(httpx.Config{
		Provider:  name,
		BaseURL:   settings.GetDefault(keyBaseURL, defaultBaseURL),
		RateLimit: rate.Every(time.Second),
		Burst:     1,
	})
	if err != nil {
		return nil, err
	}
	return &adapter{Unsupported: providers.Unsupported{Provider: name}, site: site}, nil
}

func (a *adapter) Descriptor() catalog.Descriptor { return descriptor() }

func (a *adapter) LookupByIdentifier(ctx context.Context, ident catalog.Identifier) (*company.Record, error) {
	siren, err := sirenOf(ident)
	if err != nil {
		return nil, err
	}
	doc, err := a.site.GetDocument(ctx, "/societe/"+siren+".html", nil)
	if err != nil {
		return nil, err
	}
	return mapCompanyPage(doc, time.Now())
}

func (a *adapter) SearchByName(ctx context.Context, query string, filters catalog.SearchFilters) ([]company.Record, error) {
	doc, err := a.site.GetDocument(ctx, "/cgi-bin/search", url.Values{"champs": {query}})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var records []company.Record
	doc.Find("#result-list .result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if filters.Limit > 0 && len(records) >= filters.Limit {
			return false
		}
		rec, err := mapSearchHit(sel, now)
		if err != nil {
			return true
		}
		records = append(records, *rec)
		return true
	})
	if records == nil {
		records = []company.Record{}
	}
	return records, nil
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
	return "", catalog.Errorf(catalog.CategoryNotFound, name, "societe.com pages are keyed by SIREN")
}

// mapSearchHit reads one result block. The markup carries the display name
// in the link, the spaced SIREN beside it and a "75009 PARIS" style
// location line.
func mapSearchHit(sel *goquery.Selection, fetchedAt time.Time) (*company.Record, error) {
	b := normalize.NewBuilder(name, "FR").
		Name(clean(sel.Find("a.deno").Text())).
		Identifier(company.IdentifierSIREN, clean(sel.Find("span.numero").Text())).
		FetchedAt(fetchedAt)

	if postal, city, ok := splitLocation(clean(sel.Find("span.localisation").Text())); ok {
		b.Address(company.Address{
			Role:       company.AddressHeadquarters,
			City:       city,
			PostalCode: postal,
		})
	}
	return b.Build()
}

// mapCompanyPage reads the legal facts table of a company page. Every row is
// a label/value pair; labels are matched verbatim because scraping already
// binds us to this exact markup.
func mapCompanyPage(doc *goquery.Document, fetchedAt time.Time) (*company.Record, error) {
	b := normalize.NewBuilder(name, "FR").
		Name(clean(doc.Find("h1#identite-deno").Text())).
		FetchedAt(fetchedAt)

	doc.Find("table#rensjur tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := clean(cells.Eq(0).Text())
		value := clean(cells.Eq(1).Text())
		if value == "" {
			return
		}

		switch label {
		case "SIREN":
			b.Identifier(company.IdentifierSIREN, value)
		case "SIRET (siège)":
			b.Identifier(company.IdentifierSIRET, value)
		case "TVA intracommunautaire":
			b.Identifier(company.IdentifierVAT, value)
		case "Forme juridique":
			b.LegalForm(value)
		case "Immatriculation RCS":
			b.RegisteredOnString(dateLayout, value)
		case "Capital social":
			b.ShareCapitalString(strings.TrimSuffix(value, "€"))
		case "Statut":
			b.StatusFromActive(value == "En activité")
		case "Adresse":
			b.Address(splitAddress(value))
		}
	})
	return b.Build()
}

// splitLocation parses "75009 PARIS" into its postal code and city.
func splitLocation(s string) (postal, city string, ok bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 || !isPostalCode(fields[0]) {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

// splitAddress parses a one-line address, "29 BD HAUSSMANN 75009 PARIS":
// everything before the postal code is the street, everything after is the
// city. Without a recognizable postal code the whole line stays the street.
func splitAddress(s string) company.Address {
	addr := company.Address{Role: company.AddressHeadquarters, CountryCode: "FR"}
	fields := strings.Fields(s)
	for i, f := range fields {
		if isPostalCode(f) {
			addr.Street = strings.Join(fields[:i], " ")
			addr.PostalCode = f
			addr.City = strings.Join(fields[i+1:], " ")
			return addr
		}
	}
	addr.Street = clean(s)
	return addr
}

func isPostalCode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// clean collapses the whitespace runs HTML extraction leaves behind.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
