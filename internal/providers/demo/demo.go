// Package demo is a self-contained provider that fabricates plausible US
// company data instead of calling an upstream. It exists so the full stack
// can be exercised end to end with zero credentials and zero network: every
// response is a pure function of the request, so repeated calls, cache hits
// and aggregation dedup all behave exactly as they would against a stable
// real source.
package demo

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
	"corpatlas/internal/normalize"
)

const (
	name = "demo"

	defaultSearchLimit = 5
	maxSearchLimit     = 10
)

// fetchedAt is fixed so that two fetches of the same company produce
// byte-identical records. A wall-clock timestamp would make every response
// unique and defeat idempotence checks downstream.
var fetchedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var legalForms = []string{
	"Corporation",
	"Limited liability company",
	"Limited partnership",
	"Sole proprietorship",
}

var officerRoles = []string{
	"chief executive officer",
	"chief financial officer",
	"secretary",
	"director",
}

func descriptor() catalog.Descriptor {
	return catalog.Descriptor{
		Name:        name,
		DisplayName: "Demo Registry",
		Continent:   "america",
		CountryCode: "US",
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
		Priority: 1,
		SiteURL:  "https://demo.corpatlas.dev",
	}
}

// Registration describes the provider for the catalog.
func Registration() catalog.Registration {
	return catalog.Registration{Descriptor: descriptor(), Factory: newAdapter}
}

type adapter struct{}

func newAdapter(catalog.Settings) (catalog.Adapter, error) {
	return adapter{}, nil
}

func (adapter) Descriptor() catalog.Descriptor { return descriptor() }

func (adapter) LookupByIdentifier(_ context.Context, ident catalog.Identifier) (*company.Record, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	return record(ein)
}

func (adapter) SearchByName(_ context.Context, query string, filters catalog.SearchFilters) ([]company.Record, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	f := fakerFor("search", query)
	hits := f.Number(2, maxSearchLimit)
	if hits > limit {
		hits = limit
	}

	records := make([]company.Record, 0, hits)
	for i := 0; len(records) < hits && i < maxSearchLimit; i++ {
		rec, err := record(einFor(query, i))
		if err != nil {
			return nil, err
		}
		if filters.ActiveOnly && rec.Status != company.StatusActive {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (adapter) Documents(_ context.Context, ident catalog.Identifier) ([]company.Document, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	f := fakerFor("documents", ein)
	years := f.Number(1, 3)
	docs := make([]company.Document, 0, years)
	for y := 0; y < years; y++ {
		year := 2023 - y
		docs = append(docs, company.Document{
			Type:     "annual_report",
			Title:    fmt.Sprintf("Annual report %d", year),
			IssuedOn: company.NewDate(year+1, time.March, 15),
			URL:      fmt.Sprintf("https://demo.corpatlas.dev/filings/%s/%d.pdf", ein, year),
			Source:   name,
		})
	}
	return docs, nil
}

func (adapter) Addresses(_ context.Context, ident catalog.Identifier) ([]company.Address, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	f := fakerFor("addresses", ein)
	addrs := []company.Address{headquarters(f)}
	if f.Bool() {
		addrs = append(addrs, company.Address{
			Role:        company.AddressBranch,
			Street:      f.Street(),
			City:        f.City(),
			PostalCode:  f.Zip(),
			CountryCode: "US",
		})
	}
	return addrs, nil
}

func (adapter) Subsidiaries(_ context.Context, ident catalog.Identifier) ([]company.Subsidiary, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	f := fakerFor("subsidiaries", ein)
	n := f.Number(0, 3)
	subs := make([]company.Subsidiary, 0, n)
	for i := 0; i < n; i++ {
		pct := decimal.NewFromInt(int64(f.Number(10, 100)))
		subs = append(subs, company.Subsidiary{
			Identifier:       einFor("subsidiary-"+ein, i),
			IdentifierType:   company.IdentifierEIN,
			Name:             f.Company(),
			OwnershipPercent: &pct,
		})
	}
	return subs, nil
}

func (adapter) Officers(_ context.Context, ident catalog.Identifier) ([]company.Officer, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	f := fakerFor("officers", ein)
	n := f.Number(2, 4)
	officers := make([]company.Officer, 0, n)
	for i := 0; i < n; i++ {
		appointed := company.NewDate(2000+f.Number(0, 23), time.Month(f.Number(1, 12)), f.Number(1, 28))
		officers = append(officers, company.Officer{
			Name:        f.Name(),
			Role:        officerRoles[i%len(officerRoles)],
			AppointedOn: &appointed,
		})
	}
	return officers, nil
}

func (adapter) BeneficialOwners(_ context.Context, ident catalog.Identifier) ([]company.BeneficialOwner, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	f := fakerFor("owners", ein)
	n := f.Number(1, 2)
	owners := make([]company.BeneficialOwner, 0, n)
	// Shares are drawn from disjoint bands so two owners never sum past 100.
	bands := [][2]int{{26, 60}, {5, 25}}
	for i := 0; i < n; i++ {
		pct := decimal.NewFromInt(int64(f.Number(bands[i][0], bands[i][1])))
		since := company.NewDate(2010+f.Number(0, 13), time.Month(f.Number(1, 12)), f.Number(1, 28))
		owners = append(owners, company.BeneficialOwner{
			Name:             f.Name(),
			Role:             "ultimate beneficial owner",
			OwnershipPercent: &pct,
			Since:            &since,
		})
	}
	return owners, nil
}

func (adapter) Events(_ context.Context, ident catalog.Identifier) ([]company.Event, error) {
	ein, err := einOf(ident)
	if err != nil {
		return nil, err
	}
	rec, err := record(ein)
	if err != nil {
		return nil, err
	}
	events := []company.Event{{
		Type:       "incorporation",
		OccurredOn: *rec.RegisteredOn,
		Title:      "Incorporation",
		Source:     name,
	}}
	f := fakerFor("events", ein)
	if f.Bool() {
		events = append(events, company.Event{
			Type:       "capital_increase",
			OccurredOn: company.NewDate(2015+f.Number(0, 8), time.Month(f.Number(1, 12)), f.Number(1, 28)),
			Title:      "Capital increase",
			Source:     name,
		})
	}
	return events, nil
}

// record fabricates the full company behind one EIN. All draws come from a
// faker seeded by the EIN alone, in a fixed order; reordering the calls
// below would silently change every downstream fixture.
func record(ein string) (*company.Record, error) {
	f := fakerFor("company", ein)

	status := company.StatusActive
	if f.Number(1, 10) == 10 {
		status = company.StatusCeased
	}
	registered := company.NewDate(1950+f.Number(0, 70), time.Month(f.Number(1, 12)), f.Number(1, 28))
	capital := decimal.NewFromInt(int64(f.Number(5, 5000)) * 1000)

	return normalize.NewBuilder(name, "US").
		Name(f.Company()).
		LegalForm(legalForms[f.Number(0, len(legalForms)-1)]).
		Status(status).
		RegisteredOn(registered).
		ShareCapital(capital).
		Identifier(company.IdentifierEIN, ein).
		Address(headquarters(fakerFor("addresses", ein))).
		FetchedAt(fetchedAt).
		Build()
}

// headquarters is shared between record and Addresses so a lookup and an
// address listing agree on where the company sits.
func headquarters(f *gofakeit.Faker) company.Address {
	return company.Address{
		Role:        company.AddressHeadquarters,
		Street:      f.Street(),
		City:        f.City(),
		PostalCode:  f.Zip(),
		CountryCode: "US",
	}
}

func einOf(ident catalog.Identifier) (string, error) {
	if ident.Type != company.IdentifierEIN {
		return "", catalog.Errorf(catalog.CategoryNotFound, name, "the demo registry only knows employer identification numbers, not %s", ident.Type)
	}
	return ident.Value, nil
}

// einFor derives the i-th EIN associated with a key, so search results and
// subsidiary links point at companies the registry can then look up.
func einFor(key string, i int) string {
	return fmt.Sprintf("%09d", seed("ein", fmt.Sprintf("%s#%d", key, i))%1_000_000_000)
}

func fakerFor(scope, key string) *gofakeit.Faker {
	return gofakeit.New(seed(scope, key))
}

// seed hashes a scope and key into a deterministic faker seed. The scope
// keeps the draw streams of different operations independent: officers and
// documents for the same EIN must not mirror each other.
func seed(scope, key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return int64(h.Sum64() & (1<<63 - 1))
}
