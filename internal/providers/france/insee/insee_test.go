package insee

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
)

// =============================================================================
// INSEE Sirene Adapter Test Suite
// =============================================================================
// Justification for unit tests: the mapper turns Sirene's period-based
// payloads into canonical records, deriving the siege SIRET and the VAT
// number along the way. Fixtures pin the field mapping, the name fallback
// chain, and the 404-means-absence convention of the search endpoint.

type INSEESuite struct {
	suite.Suite
}

func TestINSEESuite(t *testing.T) {
	suite.Run(t, new(INSEESuite))
}

const sgUnit = `{
	"siren": "552120222",
	"dateCreationUniteLegale": "1864-05-04",
	"periodesUniteLegale": [
		{
			"dateFin": null,
			"denominationUniteLegale": "SOCIETE GENERALE",
			"etatAdministratifUniteLegale": "A",
			"categorieJuridiqueUniteLegale": "5599",
			"nicSiegeUniteLegale": "00021"
		}
	]
}`

func (s *INSEESuite) newServer(handler http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(handler)
	s.T().Cleanup(srv.Close)
	return srv
}

func (s *INSEESuite) newAdapter(baseURL string) catalog.Adapter {
	a, err := Registration().Factory(catalog.NewSettings(map[string]string{
		keyAPIKey:  "test-key",
		keyBaseURL: baseURL,
	}))
	s.Require().NoError(err)
	return a
}

func sirenIdent(value string) catalog.Identifier {
	return catalog.Identifier{Type: company.IdentifierSIREN, Value: value, CountryCode: "FR"}
}

// =============================================================================
// Lookups
// =============================================================================

func (s *INSEESuite) TestLookupBySiren() {
	var gotKey string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-INSEE-Api-Key-Integration")
		s.Equal("/siren/552120222", r.URL.Path)
		fmt.Fprintf(w, `{"uniteLegale": %s}`, sgUnit)
	})

	rec, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), sirenIdent("552120222"))

	s.Require().NoError(err)
	s.Equal("test-key", gotKey)
	s.Equal("SOCIETE GENERALE", rec.Name)
	s.Equal("FR", rec.CountryCode)
	s.Equal("SA à conseil d'administration", rec.LegalForm)
	s.Equal(company.StatusActive, rec.Status)
	s.Require().NotNil(rec.RegisteredOn)
	s.Equal("1864-05-04", rec.RegisteredOn.String())
	s.Equal("552120222", rec.Identifiers[company.IdentifierSIREN])
	s.Equal("55212022200021", rec.Identifiers[company.IdentifierSIRET])
	s.Equal("FR27552120222", rec.Identifiers[company.IdentifierVAT])
	s.Equal(name, rec.Source.Provider)
	s.False(rec.Source.FetchedAt.IsZero())
}

func (s *INSEESuite) TestLookupBySiretCarriesEstablishmentAddress() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/siret/55212022200013", r.URL.Path)
		fmt.Fprintf(w, `{"etablissement": {
			"siret": "55212022200013",
			"siren": "552120222",
			"etablissementSiege": false,
			"dateCreationEtablissement": "1998-03-02",
			"adresseEtablissement": {
				"numeroVoieEtablissement": "17",
				"typeVoieEtablissement": "COURS",
				"libelleVoieEtablissement": "VALMY",
				"codePostalEtablissement": "92800",
				"libelleCommuneEtablissement": "PUTEAUX"
			},
			"uniteLegale": %s
		}}`, sgUnit)
	})

	rec, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), catalog.Identifier{
		Type:        company.IdentifierSIRET,
		Value:       "55212022200013",
		CountryCode: "FR",
	})

	s.Require().NoError(err)
	s.Equal("SOCIETE GENERALE", rec.Name)
	s.Equal("55212022200013", rec.Identifiers[company.IdentifierSIRET], "the looked-up SIRET wins over the siege one")
	s.Require().Len(rec.Addresses, 1)
	addr := rec.Addresses[0]
	s.Equal(company.AddressBranch, addr.Role)
	s.Equal("17 COURS VALMY", addr.Street)
	s.Equal("PUTEAUX", addr.City)
	s.Equal("92800", addr.PostalCode)
	s.Equal("FR", addr.CountryCode)
}

func (s *INSEESuite) TestLookupByVATDerivesSiren() {
	var gotPath string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprintf(w, `{"uniteLegale": %s}`, sgUnit)
	})

	_, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), catalog.Identifier{
		Type:        company.IdentifierVAT,
		Value:       "FR27552120222",
		CountryCode: "FR",
	})

	s.Require().NoError(err)
	s.Equal("/siren/552120222", gotPath)
}

func (s *INSEESuite) TestLookupUnknownSirenIsNotFound() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"header":{"statut":404,"message":"aucun élément trouvé"}}`, http.StatusNotFound)
	})

	_, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), sirenIdent("552120222"))

	s.True(catalog.IsCategory(err, catalog.CategoryNotFound))
}

func (s *INSEESuite) TestLookupUnsupportedIdentifierType() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		s.Fail("no request expected for an RNA lookup")
	})

	_, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), catalog.Identifier{
		Type:        company.IdentifierRNA,
		Value:       "W12345678",
		CountryCode: "FR",
	})

	s.True(catalog.IsCategory(err, catalog.CategoryNotFound))
}

// =============================================================================
// Search
// =============================================================================

func (s *INSEESuite) TestSearchByNameMapsHits() {
	var gotQuery string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/siren", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		s.Equal("20", r.URL.Query().Get("nombre"))
		fmt.Fprintf(w, `{"unitesLegales": [
			%s,
			{
				"siren": "542051180",
				"dateCreationUniteLegale": "1924-03-28",
				"periodesUniteLegale": [
					{"dateFin": null, "denominationUniteLegale": "TOTALENERGIES SE", "etatAdministratifUniteLegale": "A", "categorieJuridiqueUniteLegale": "5800"}
				]
			},
			{"siren": "000000000", "periodesUniteLegale": [{"dateFin": null}]}
		]}`, sgUnit)
	})

	records, err := s.newAdapter(srv.URL).SearchByName(context.Background(), "societe generale", catalog.SearchFilters{})

	s.Require().NoError(err)
	s.Equal(`denominationUniteLegale:"societe generale"`, gotQuery)
	s.Require().Len(records, 2, "the nameless unit is skipped")
	s.Equal("SOCIETE GENERALE", records[0].Name)
	s.Equal("TOTALENERGIES SE", records[1].Name)
	s.Equal("5800", records[1].LegalForm, "unknown legal category codes pass through")
	s.Equal("FR59542051180", records[1].Identifiers[company.IdentifierVAT])
}

func (s *INSEESuite) TestSearchActiveOnlyAddsStateClause() {
	var gotQuery string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"unitesLegales": []}`)
	})

	_, err := s.newAdapter(srv.URL).SearchByName(context.Background(), "acme", catalog.SearchFilters{ActiveOnly: true, Limit: 5})

	s.Require().NoError(err)
	s.Contains(gotQuery, `denominationUniteLegale:"acme"`)
	s.Contains(gotQuery, "periode(etatAdministratifUniteLegale:A)")
}

func (s *INSEESuite) TestSearchNoMatchIsEmptyNotError() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"header":{"statut":404}}`, http.StatusNotFound)
	})

	records, err := s.newAdapter(srv.URL).SearchByName(context.Background(), "no such company", catalog.SearchFilters{})

	s.Require().NoError(err)
	s.NotNil(records)
	s.Empty(records)
}

// =============================================================================
// Addresses and documents
// =============================================================================

func (s *INSEESuite) TestAddressesMapsEstablishmentRoles() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/siret", r.URL.Path)
		s.Equal("siren:552120222", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"etablissements": [
			{
				"siret": "55212022200021",
				"etablissementSiege": true,
				"dateCreationEtablissement": "1864-05-04",
				"adresseEtablissement": {
					"numeroVoieEtablissement": "29",
					"typeVoieEtablissement": "BOULEVARD",
					"libelleVoieEtablissement": "HAUSSMANN",
					"codePostalEtablissement": "75009",
					"libelleCommuneEtablissement": "PARIS"
				}
			},
			{
				"siret": "55212022200013",
				"etablissementSiege": false,
				"periodesEtablissement": [{"dateFin": null, "etatAdministratifEtablissement": "F"}],
				"adresseEtablissement": {
					"libelleCommuneEtablissement": "PUTEAUX",
					"codePostalEtablissement": "92800"
				}
			}
		]}`)
	})

	addresses, err := s.newAdapter(srv.URL).Addresses(context.Background(), sirenIdent("552120222"))

	s.Require().NoError(err)
	s.Require().Len(addresses, 2)
	s.Equal(company.AddressHeadquarters, addresses[0].Role)
	s.Equal("29 BOULEVARD HAUSSMANN", addresses[0].Street)
	s.Require().NotNil(addresses[0].ValidFrom)
	s.Equal("1864-05-04", addresses[0].ValidFrom.String())
	s.Equal(company.AddressHistorical, addresses[1].Role, "a closed establishment is a historical address")
}

func (s *INSEESuite) TestDocumentsReturnsRegistrationNotice() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"uniteLegale": %s}`, sgUnit)
	})

	docs, err := s.newAdapter(srv.URL).Documents(context.Background(), sirenIdent("552120222"))

	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal("registration", docs[0].Type)
	s.Equal("Avis de situation Sirene", docs[0].Title)
	s.Equal("1864-05-04", docs[0].IssuedOn.String())
	s.Contains(docs[0].URL, "55212022200021")
	s.Equal(name, docs[0].Source)
}

// =============================================================================
// Mapper details
// =============================================================================

func (s *INSEESuite) TestDisplayNameFallsBackToCivilName() {
	unit := legalUnit{
		Siren:        "552120222",
		DateCreation: "2001-07-09",
		Prenom:       "JEAN",
		Periodes: []unitPeriod{
			{Nom: "DUPONT", Etat: "A", CategorieJuridique: "1000"},
		},
	}

	rec, err := mapUnit(&unit, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	s.Require().NoError(err)
	s.Equal("JEAN DUPONT", rec.Name)
	s.Equal("Entrepreneur individuel", rec.LegalForm)
}

func (s *INSEESuite) TestDescriptorDeclaresConfigAndCaps() {
	d := Registration().Descriptor
	s.Equal("insee", d.Name)
	s.Equal("FR", d.CountryCode)
	s.Equal([]string{keyAPIKey}, d.RequiredConfig)
	s.True(d.Capabilities.Has(catalog.CapSearchByReference))
	s.True(d.Capabilities.Has(catalog.CapGetAddresses))
	s.False(d.Capabilities.Has(catalog.CapGetOfficers))
	s.Equal(1, d.Priority)
}
