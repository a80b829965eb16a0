package societecom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
)

// =============================================================================
// societe.com Scraper Test Suite
// =============================================================================
// Justification for unit tests: scraped markup is the least stable input in
// the whole provider set. Frozen HTML fixtures pin the selectors, the French
// number and date formats, and the rule that an unparseable page is a
// normalization failure rather than a record with garbage in it.

type SocieteComSuite struct {
	suite.Suite
}

func TestSocieteComSuite(t *testing.T) {
	suite.Run(t, new(SocieteComSuite))
}

const companyPage = `<!DOCTYPE html>
<html><body>
<h1 id="identite-deno">SOCIETE GENERALE</h1>
<table id="rensjur">
<tr><td>SIREN</td><td>552 120 222</td></tr>
<tr><td>SIRET (siège)</td><td>552 120 222 00021</td></tr>
<tr><td>TVA intracommunautaire</td><td>FR27552120222</td></tr>
<tr><td>Forme juridique</td><td>SA à conseil d'administration</td></tr>
<tr><td>Immatriculation RCS</td><td>04-05-1864</td></tr>
<tr><td>Capital social</td><td>1 066 714 367,50 €</td></tr>
<tr><td>Statut</td><td>En activité</td></tr>
<tr><td>Adresse</td><td>29 BD HAUSSMANN 75009 PARIS</td></tr>
</table>
</body></html>`

const searchPage = `<!DOCTYPE html>
<html><body>
<div id="result-list">
  <div class="result">
    <a class="deno" href="/societe/552120222.html">SOCIETE GENERALE</a>
    <span class="numero">552 120 222</span>
    <span class="localisation">75009 PARIS</span>
  </div>
  <div class="result">
    <a class="deno" href="/societe/542051180.html">TOTALENERGIES SE</a>
    <span class="numero">542 051 180</span>
    <span class="localisation">92400 COURBEVOIE</span>
  </div>
</div>
</body></html>`

func (s *SocieteComSuite) newAdapter(handler http.HandlerFunc) catalog.Adapter {
	srv := httptest.NewServer(handler)
	s.T().Cleanup(srv.Close)

	a, err := Registration().Factory(catalog.NewSettings(map[string]string{
		keyBaseURL: srv.URL,
	}))
	s.Require().NoError(err)
	return a
}

func sirenIdent(value string) catalog.Identifier {
	return catalog.Identifier{Type: company.IdentifierSIREN, Value: value, CountryCode: "FR"}
}

func (s *SocieteComSuite) TestLookupScrapesCompanyPage() {
	a := s.newAdapter(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/societe/552120222.html", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, companyPage)
	})

	rec, err := a.LookupByIdentifier(context.Background(), sirenIdent("552120222"))

	s.Require().NoError(err)
	s.Equal("SOCIETE GENERALE", rec.Name)
	s.Equal("552120222", rec.Identifiers[company.IdentifierSIREN])
	s.Equal("55212022200021", rec.Identifiers[company.IdentifierSIRET])
	s.Equal("FR27552120222", rec.Identifiers[company.IdentifierVAT])
	s.Equal("SA à conseil d'administration", rec.LegalForm)
	s.Equal(company.StatusActive, rec.Status)
	s.Require().NotNil(rec.RegisteredOn)
	s.Equal("1864-05-04", rec.RegisteredOn.String(), "DD-MM-YYYY markup becomes a canonical date")
	s.Require().NotNil(rec.ShareCapital)
	s.True(rec.ShareCapital.Equal(decimal.RequireFromString("1066714367.50")), "got %s", rec.ShareCapital)

	s.Require().Len(rec.Addresses, 1)
	s.Equal("29 BD HAUSSMANN", rec.Addresses[0].Street)
	s.Equal("75009", rec.Addresses[0].PostalCode)
	s.Equal("PARIS", rec.Addresses[0].City)
}

func (s *SocieteComSuite) TestLookupCeasedCompany() {
	a := s.newAdapter(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1 id="identite-deno">ANCIENNE MAISON</h1>
			<table id="rensjur">
			<tr><td>SIREN</td><td>542 051 180</td></tr>
			<tr><td>Statut</td><td>Radiée du RCS</td></tr>
			</table>
		</body></html>`)
	})

	rec, err := a.LookupByIdentifier(context.Background(), sirenIdent("542051180"))

	s.Require().NoError(err)
	s.Equal(company.StatusCeased, rec.Status)
}

func (s *SocieteComSuite) TestLookupUnparseablePageFailsNormalization() {
	a := s.newAdapter(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Page en maintenance</p></body></html>`)
	})

	_, err := a.LookupByIdentifier(context.Background(), sirenIdent("552120222"))

	s.True(catalog.IsCategory(err, catalog.CategoryNormalization), "got %v", err)
}

func (s *SocieteComSuite) TestSearchParsesResultList() {
	var gotQuery string
	a := s.newAdapter(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/cgi-bin/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("champs")
		fmt.Fprint(w, searchPage)
	})

	records, err := a.SearchByName(context.Background(), "generale", catalog.SearchFilters{})

	s.Require().NoError(err)
	s.Equal("generale", gotQuery)
	s.Require().Len(records, 2)
	s.Equal("SOCIETE GENERALE", records[0].Name)
	s.Equal("552120222", records[0].Identifiers[company.IdentifierSIREN])
	s.Equal("PARIS", records[0].Addresses[0].City)
	s.Equal("75009", records[0].Addresses[0].PostalCode)
	s.Equal("TOTALENERGIES SE", records[1].Name)
}

func (s *SocieteComSuite) TestSearchHonorsLimit() {
	a := s.newAdapter(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage)
	})

	records, err := a.SearchByName(context.Background(), "generale", catalog.SearchFilters{Limit: 1})

	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *SocieteComSuite) TestSearchWithoutResultsIsEmpty() {
	a := s.newAdapter(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="result-list"></div></body></html>`)
	})

	records, err := a.SearchByName(context.Background(), "zzz", catalog.SearchFilters{})

	s.Require().NoError(err)
	s.NotNil(records)
	s.Empty(records)
}

func (s *SocieteComSuite) TestDescriptorIsLastRank() {
	d := Registration().Descriptor
	s.Empty(d.RequiredConfig)
	s.Equal(30, d.Priority, "scrapers run only when the APIs are exhausted")
	s.Equal([]catalog.Capability{catalog.CapSearchByName, catalog.CapSearchByReference}, d.Capabilities.List())
}
