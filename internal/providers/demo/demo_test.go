package demo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
)

// =============================================================================
// Demo Provider Test Suite
// =============================================================================
// Justification for unit tests: the demo registry is the one provider the
// end-to-end suite runs against, so its contract is determinism itself. The
// tests pin that repeated calls are byte-identical, that search hits can be
// looked up again to the same record, and that every fabricated record still
// satisfies the canonical validation the real sources are held to.

type DemoSuite struct {
	suite.Suite

	adapter catalog.Adapter
}

func TestDemoSuite(t *testing.T) {
	suite.Run(t, new(DemoSuite))
}

func (s *DemoSuite) SetupTest() {
	a, err := Registration().Factory(catalog.NewSettings(nil))
	s.Require().NoError(err)
	s.adapter = a
}

func einIdent(value string) catalog.Identifier {
	return catalog.Identifier{Type: company.IdentifierEIN, Value: value, CountryCode: "US"}
}

func (s *DemoSuite) TestLookupIsDeterministic() {
	first, err := s.adapter.LookupByIdentifier(context.Background(), einIdent("123456789"))
	s.Require().NoError(err)
	second, err := s.adapter.LookupByIdentifier(context.Background(), einIdent("123456789"))
	s.Require().NoError(err)

	s.Equal(first, second, "the same EIN must always fabricate the same company")
	s.True(first.Source.FetchedAt.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		"a pinned fetch time keeps repeated responses byte-identical")
}

func (s *DemoSuite) TestDistinctCompaniesDiffer() {
	a, err := s.adapter.LookupByIdentifier(context.Background(), einIdent("123456789"))
	s.Require().NoError(err)
	b, err := s.adapter.LookupByIdentifier(context.Background(), einIdent("987654321"))
	s.Require().NoError(err)

	s.NotEqual(a, b)
	s.Equal("123456789", a.Identifiers[company.IdentifierEIN])
	s.Equal("987654321", b.Identifiers[company.IdentifierEIN])
}

func (s *DemoSuite) TestRecordsSatisfyCanonicalInvariants() {
	rec, err := s.adapter.LookupByIdentifier(context.Background(), einIdent("271828182"))
	s.Require().NoError(err)

	s.NoError(rec.Validate())
	s.Equal("US", rec.CountryCode)
	s.NotEmpty(rec.Name)
	s.NotEmpty(rec.LegalForm)
	s.NotNil(rec.RegisteredOn)
	s.NotNil(rec.ShareCapital)
	s.Require().Len(rec.Addresses, 1)
	s.Equal(company.AddressHeadquarters, rec.Addresses[0].Role)
	s.NotNil(rec.Documents, "collections must be non-nil after normalization")
}

func (s *DemoSuite) TestLookupRejectsForeignIdentifiers() {
	_, err := s.adapter.LookupByIdentifier(context.Background(), catalog.Identifier{
		Type: company.IdentifierSIREN, Value: "552120222", CountryCode: "FR",
	})
	s.True(catalog.IsCategory(err, catalog.CategoryNotFound))
}

func (s *DemoSuite) TestSearchHitsCanBeLookedUpAgain() {
	hits, err := s.adapter.SearchByName(context.Background(), "acme", catalog.SearchFilters{})
	s.Require().NoError(err)
	s.Require().NotEmpty(hits)

	ein := hits[0].Identifiers[company.IdentifierEIN]
	s.Require().NotEmpty(ein)

	rec, err := s.adapter.LookupByIdentifier(context.Background(), einIdent(ein))
	s.Require().NoError(err)
	s.Equal(&hits[0], rec, "a search hit and its lookup must describe the same company")
}

func (s *DemoSuite) TestSearchIsDeterministicPerQuery() {
	first, err := s.adapter.SearchByName(context.Background(), "globex", catalog.SearchFilters{})
	s.Require().NoError(err)
	second, err := s.adapter.SearchByName(context.Background(), "globex", catalog.SearchFilters{})
	s.Require().NoError(err)
	s.Equal(first, second)

	other, err := s.adapter.SearchByName(context.Background(), "initech", catalog.SearchFilters{})
	s.Require().NoError(err)
	s.NotEqual(first, other, "different queries must not alias to the same companies")
}

func (s *DemoSuite) TestSearchHonorsLimit() {
	hits, err := s.adapter.SearchByName(context.Background(), "acme", catalog.SearchFilters{Limit: 1})
	s.Require().NoError(err)
	s.Len(hits, 1)
}

func (s *DemoSuite) TestSearchActiveOnlyNeverReturnsCeased() {
	for _, query := range []string{"acme", "globex", "initech", "umbrella", "stark"} {
		hits, err := s.adapter.SearchByName(context.Background(), query, catalog.SearchFilters{ActiveOnly: true})
		s.Require().NoError(err)
		for _, hit := range hits {
			s.Equal(company.StatusActive, hit.Status)
		}
	}
}

func (s *DemoSuite) TestListOperationsAreDeterministic() {
	ctx := context.Background()
	ident := einIdent("314159265")

	docsA, err := s.adapter.Documents(ctx, ident)
	s.Require().NoError(err)
	docsB, err := s.adapter.Documents(ctx, ident)
	s.Require().NoError(err)
	s.Equal(docsA, docsB)
	s.Require().NotEmpty(docsA)
	s.Equal("annual_report", docsA[0].Type)
	s.Contains(docsA[0].URL, "314159265")

	officersA, err := s.adapter.Officers(ctx, ident)
	s.Require().NoError(err)
	officersB, err := s.adapter.Officers(ctx, ident)
	s.Require().NoError(err)
	s.Equal(officersA, officersB)
	s.GreaterOrEqual(len(officersA), 2)

	ownersA, err := s.adapter.BeneficialOwners(ctx, ident)
	s.Require().NoError(err)
	s.Require().NotEmpty(ownersA)
	s.Require().NotNil(ownersA[0].OwnershipPercent)
	s.True(ownersA[0].OwnershipPercent.GreaterThan(decimal.Zero))
}

func (s *DemoSuite) TestEventsIncludeIncorporation() {
	rec, err := s.adapter.LookupByIdentifier(context.Background(), einIdent("161803398"))
	s.Require().NoError(err)

	events, err := s.adapter.Events(context.Background(), einIdent("161803398"))
	s.Require().NoError(err)
	s.Require().NotEmpty(events)
	s.Equal("incorporation", events[0].Type)
	s.Equal(*rec.RegisteredOn, events[0].OccurredOn,
		"the incorporation event must match the record's registration date")
}

func (s *DemoSuite) TestSubsidiariesPointAtResolvableCompanies() {
	subs, err := s.adapter.Subsidiaries(context.Background(), einIdent("123456789"))
	s.Require().NoError(err)

	for _, sub := range subs {
		s.Equal(company.IdentifierEIN, sub.IdentifierType)
		rec, err := s.adapter.LookupByIdentifier(context.Background(), einIdent(sub.Identifier))
		s.Require().NoError(err)
		s.NoError(rec.Validate())
	}
}

func (s *DemoSuite) TestDescriptorCoversEveryCapability() {
	d := Registration().Descriptor
	s.Equal("demo", d.Name)
	s.Equal("US", d.CountryCode)
	s.Equal(1, d.Priority)
	s.Empty(d.RequiredConfig, "the demo registry must run with zero configuration")
	s.Len(d.Capabilities.List(), 8)
}
