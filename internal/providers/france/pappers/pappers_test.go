package pappers

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
// Pappers Adapter Test Suite
// =============================================================================
// Justification for unit tests: Pappers returns the whole dossier in one
// payload and every list operation extracts from it, so the mapper is the
// risk surface: decimal amounts, officer name resolution for natural versus
// legal persons, and the siege/branch address split all live here.

type PappersSuite struct {
	suite.Suite
}

func TestPappersSuite(t *testing.T) {
	suite.Run(t, new(PappersSuite))
}

const sgDossier = `{
	"siren": "552120222",
	"nom_entreprise": "SOCIETE GENERALE",
	"forme_juridique": "SA à conseil d'administration",
	"date_creation": "1864-05-04",
	"entreprise_cessee": false,
	"capital": 1066714367.5,
	"numero_tva_intracommunautaire": "FR27552120222",
	"siege": {
		"siret": "55212022200021",
		"adresse_ligne_1": "29 BOULEVARD HAUSSMANN",
		"code_postal": "75009",
		"ville": "PARIS"
	},
	"etablissements": [
		{"siret": "55212022200021", "adresse_ligne_1": "29 BOULEVARD HAUSSMANN", "code_postal": "75009", "ville": "PARIS"},
		{"siret": "55212022200013", "adresse_ligne_1": "17 COURS VALMY", "code_postal": "92800", "ville": "PUTEAUX"}
	],
	"dirigeants": [
		{"nom": "KRUPA", "prenom": "SLAWOMIR", "fonction": "Directeur général", "date_prise_de_poste": "2023-05-23", "personne_morale": false},
		{"personne_morale": true, "denomination": "ERNST & YOUNG AUDIT", "fonction": "Commissaire aux comptes titulaire"}
	],
	"beneficiaires_effectifs": [
		{"nom": "MARTIN", "prenom": "CLAIRE", "pourcentage_parts": 25.5, "date_greffe": "2021-06-30"}
	],
	"publications_bodacc": [
		{"type": "Procédure collective", "date": "2023-05-30", "numero_parution": "20230103", "contenu": "Jugement d'ouverture"}
	],
	"comptes": [
		{"annee": 2023, "date_depot": "2024-06-28", "url": "https://api.pappers.example/document/comptes/552120222/2023"}
	],
	"derniers_statuts": {"date_depot": "2023-06-12", "url": "https://api.pappers.example/document/statuts/552120222"},
	"participations": [
		{"siren": "351058151", "denomination": "BOURSORAMA", "pourcentage": 100}
	]
}`

func (s *PappersSuite) newServer(handler http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(handler)
	s.T().Cleanup(srv.Close)
	return srv
}

func (s *PappersSuite) newAdapter(baseURL string) catalog.Adapter {
	a, err := Registration().Factory(catalog.NewSettings(map[string]string{
		keyAPIKey:  "secret-token",
		keyBaseURL: baseURL,
	}))
	s.Require().NoError(err)
	return a
}

func sirenIdent(value string) catalog.Identifier {
	return catalog.Identifier{Type: company.IdentifierSIREN, Value: value, CountryCode: "FR"}
}

func (s *PappersSuite) TestLookupMapsFullDossier() {
	var gotToken, gotSiren string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/entreprise", r.URL.Path)
		gotToken = r.URL.Query().Get("api_token")
		gotSiren = r.URL.Query().Get("siren")
		fmt.Fprint(w, sgDossier)
	})

	rec, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), sirenIdent("552120222"))

	s.Require().NoError(err)
	s.Equal("secret-token", gotToken)
	s.Equal("552120222", gotSiren)

	s.Equal("SOCIETE GENERALE", rec.Name)
	s.Equal(company.StatusActive, rec.Status)
	s.Require().NotNil(rec.ShareCapital)
	s.True(rec.ShareCapital.Equal(decimal.RequireFromString("1066714367.5")), "got %s", rec.ShareCapital)
	s.Equal("FR27552120222", rec.Identifiers[company.IdentifierVAT])
	s.Equal("55212022200021", rec.Identifiers[company.IdentifierSIRET])

	s.Require().Len(rec.Addresses, 2, "siege plus one branch, duplicate establishment skipped")
	s.Equal(company.AddressHeadquarters, rec.Addresses[0].Role)
	s.Equal(company.AddressBranch, rec.Addresses[1].Role)
	s.Equal("PUTEAUX", rec.Addresses[1].City)

	s.Require().Len(rec.Officers, 2)
	s.Equal("SLAWOMIR KRUPA", rec.Officers[0].Name)
	s.Equal("Directeur général", rec.Officers[0].Role)
	s.Require().NotNil(rec.Officers[0].AppointedOn)
	s.Equal("2023-05-23", rec.Officers[0].AppointedOn.String())
	s.Equal("ERNST & YOUNG AUDIT", rec.Officers[1].Name, "legal persons use their denomination")

	s.Require().Len(rec.BeneficialOwners, 1)
	s.Equal("CLAIRE MARTIN", rec.BeneficialOwners[0].Name)
	s.Require().NotNil(rec.BeneficialOwners[0].OwnershipPercent)
	s.True(rec.BeneficialOwners[0].OwnershipPercent.Equal(decimal.RequireFromString("25.5")))

	s.Require().Len(rec.Events, 1)
	s.Equal("procédure_collective", rec.Events[0].Type)
	s.Equal("Procédure collective", rec.Events[0].Title)

	s.Require().Len(rec.Documents, 2)
	s.Equal("annual_accounts", rec.Documents[0].Type)
	s.Equal("Comptes annuels 2023", rec.Documents[0].Title)
	s.Equal("articles_of_association", rec.Documents[1].Type)

	s.Require().Len(rec.Subsidiaries, 1)
	s.Equal("351058151", rec.Subsidiaries[0].Identifier)
	s.Equal("BOURSORAMA", rec.Subsidiaries[0].Name)
	s.Require().NotNil(rec.Subsidiaries[0].OwnershipPercent)
	s.True(rec.Subsidiaries[0].OwnershipPercent.Equal(decimal.NewFromInt(100)))
}

func (s *PappersSuite) TestLookupBySiretUsesSiretParam() {
	var gotSiret string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		gotSiret = r.URL.Query().Get("siret")
		fmt.Fprint(w, sgDossier)
	})

	_, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), catalog.Identifier{
		Type:        company.IdentifierSIRET,
		Value:       "55212022200021",
		CountryCode: "FR",
	})

	s.Require().NoError(err)
	s.Equal("55212022200021", gotSiret)
}

func (s *PappersSuite) TestLookupByVATDerivesSiren() {
	var gotSiren string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		gotSiren = r.URL.Query().Get("siren")
		fmt.Fprint(w, sgDossier)
	})

	_, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), catalog.Identifier{
		Type:        company.IdentifierVAT,
		Value:       "FR27552120222",
		CountryCode: "FR",
	})

	s.Require().NoError(err)
	s.Equal("552120222", gotSiren)
}

func (s *PappersSuite) TestLookupRNAIsNotFound() {
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

func (s *PappersSuite) TestSearchForwardsFilters() {
	var got map[string]string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/recherche", r.URL.Path)
		got = map[string]string{
			"q":                 r.URL.Query().Get("q"),
			"par_page":          r.URL.Query().Get("par_page"),
			"entreprise_cessee": r.URL.Query().Get("entreprise_cessee"),
			"code_postal":       r.URL.Query().Get("code_postal"),
		}
		fmt.Fprint(w, `{"total": 1, "resultats": [
			{
				"siren": "552120222",
				"nom_entreprise": "SOCIETE GENERALE",
				"forme_juridique": "SA à conseil d'administration",
				"date_creation": "1864-05-04",
				"entreprise_cessee": false,
				"siege": {"siret": "55212022200021", "ville": "PARIS", "code_postal": "75009"}
			}
		]}`)
	})

	records, err := s.newAdapter(srv.URL).SearchByName(context.Background(), "societe generale", catalog.SearchFilters{
		Limit:      10,
		ActiveOnly: true,
		PostalCode: "75009",
	})

	s.Require().NoError(err)
	s.Equal("societe generale", got["q"])
	s.Equal("10", got["par_page"])
	s.Equal("false", got["entreprise_cessee"])
	s.Equal("75009", got["code_postal"])
	s.Require().Len(records, 1)
	s.Equal("SOCIETE GENERALE", records[0].Name)
	s.Equal("PARIS", records[0].Addresses[0].City)
}

func (s *PappersSuite) TestSearchLimitIsCapped() {
	var gotPage string
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("par_page")
		fmt.Fprint(w, `{"total": 0, "resultats": []}`)
	})

	_, err := s.newAdapter(srv.URL).SearchByName(context.Background(), "acme", catalog.SearchFilters{Limit: 500})

	s.Require().NoError(err)
	s.Equal("100", gotPage)
}

func (s *PappersSuite) TestDocumentsExtractsFilings() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sgDossier)
	})

	docs, err := s.newAdapter(srv.URL).Documents(context.Background(), sirenIdent("552120222"))

	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal("2024-06-28", docs[0].IssuedOn.String())
	s.Equal(name, docs[0].Source)
	s.Contains(docs[1].URL, "statuts")
}

func (s *PappersSuite) TestRejectedTokenMapsToMisconfigured() {
	srv := s.newServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "jeton invalide"}`, http.StatusUnauthorized)
	})

	_, err := s.newAdapter(srv.URL).LookupByIdentifier(context.Background(), sirenIdent("552120222"))

	s.True(catalog.IsCategory(err, catalog.CategoryMisconfigured))
}

func (s *PappersSuite) TestDescriptorDeclaresAggregatorBreadth() {
	d := Registration().Descriptor
	s.Equal("pappers", d.Name)
	s.Equal([]string{keyAPIKey}, d.RequiredConfig)
	s.Len(d.Capabilities.List(), 8, "Pappers serves every operation")
	s.Equal(10, d.Priority, "aggregators rank after official registries")
}
