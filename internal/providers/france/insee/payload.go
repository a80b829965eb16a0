package insee

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"corpatlas/contracts/company"
	"corpatlas/internal/normalize"
)

// Sirene V3 payloads. Field names follow the API's camelCase exactly; only
// the fields the mappers read are declared. Values that change over a
// company's life (name, state, legal category) live in periods, newest
// first, with the open period carrying a null dateFin.

const dateLayout = "2006-01-02"

type unitResponse struct {
	UniteLegale legalUnit `json:"uniteLegale"`
}

type searchResponse struct {
	UnitesLegales []legalUnit `json:"unitesLegales"`
}

type establishmentResponse struct {
	Etablissement establishment `json:"etablissement"`
}

type establishmentsResponse struct {
	Etablissements []establishment `json:"etablissements"`
}

type legalUnit struct {
	Siren        string       `json:"siren"`
	DateCreation string       `json:"dateCreationUniteLegale"`
	Prenom       string       `json:"prenom1UniteLegale"`
	Periodes     []unitPeriod `json:"periodesUniteLegale"`
}

type unitPeriod struct {
	DateFin             *string `json:"dateFin"`
	Denomination        string  `json:"denominationUniteLegale"`
	DenominationUsuelle string  `json:"denominationUsuelle1UniteLegale"`
	Nom                 string  `json:"nomUniteLegale"`
	Etat                string  `json:"etatAdministratifUniteLegale"`
	CategorieJuridique  string  `json:"categorieJuridiqueUniteLegale"`
	NicSiege            string  `json:"nicSiegeUniteLegale"`
}

// current returns the open period, falling back to the newest closed one.
func (u *legalUnit) current() unitPeriod {
	for _, p := range u.Periodes {
		if p.DateFin == nil || *p.DateFin == "" {
			return p
		}
	}
	if len(u.Periodes) > 0 {
		return u.Periodes[0]
	}
	return unitPeriod{}
}

// displayName resolves the unit's name: corporate denomination first, then
// the usual trading name, then the natural person's civil name.
func (u *legalUnit) displayName() string {
	p := u.current()
	switch {
	case p.Denomination != "":
		return p.Denomination
	case p.DenominationUsuelle != "":
		return p.DenominationUsuelle
	case p.Nom != "":
		return strings.TrimSpace(u.Prenom + " " + p.Nom)
	}
	return ""
}

type establishment struct {
	Siret        string              `json:"siret"`
	Siren        string              `json:"siren"`
	Siege        bool                `json:"etablissementSiege"`
	DateCreation string              `json:"dateCreationEtablissement"`
	Adresse      establishmentAddr   `json:"adresseEtablissement"`
	UniteLegale  legalUnit           `json:"uniteLegale"`
	Periodes     []establishmentSpan `json:"periodesEtablissement"`
}

type establishmentSpan struct {
	DateFin *string `json:"dateFin"`
	Etat    string  `json:"etatAdministratifEtablissement"`
}

type establishmentAddr struct {
	NumeroVoie  string `json:"numeroVoieEtablissement"`
	TypeVoie    string `json:"typeVoieEtablissement"`
	LibelleVoie string `json:"libelleVoieEtablissement"`
	CodePostal  string `json:"codePostalEtablissement"`
	Commune     string `json:"libelleCommuneEtablissement"`
}

func (e *establishment) closed() bool {
	for _, p := range e.Periodes {
		if p.DateFin == nil || *p.DateFin == "" {
			return p.Etat == "F"
		}
	}
	return false
}

func (e *establishment) address() company.Address {
	role := company.AddressBranch
	switch {
	case e.closed():
		role = company.AddressHistorical
	case e.Siege:
		role = company.AddressHeadquarters
	}

	parts := make([]string, 0, 3)
	for _, s := range []string{e.Adresse.NumeroVoie, e.Adresse.TypeVoie, e.Adresse.LibelleVoie} {
		if s != "" {
			parts = append(parts, s)
		}
	}

	addr := company.Address{
		Role:        role,
		Street:      strings.Join(parts, " "),
		City:        e.Adresse.Commune,
		PostalCode:  e.Adresse.CodePostal,
		CountryCode: "FR",
	}
	if from, err := normalizeDate(e.DateCreation); err == nil {
		addr.ValidFrom = &from
	}
	return addr
}

// legalForms maps the most common INSEE legal category codes to their short
// labels. Unknown codes pass through untranslated; the full nomenclature has
// several hundred entries and the code alone is still meaningful.
var legalForms = map[string]string{
	"1000": "Entrepreneur individuel",
	"5202": "Société en nom collectif",
	"5498": "EURL",
	"5499": "SARL",
	"5599": "SA à conseil d'administration",
	"5710": "SAS",
	"5720": "SASU",
	"6540": "SCI",
	"9220": "Association déclarée",
}

func legalFormLabel(code string) string {
	if label, ok := legalForms[code]; ok {
		return label
	}
	return code
}

// vatFromSiren derives the intra-community VAT number from a SIREN using the
// fiscal key (12 + 3*(siren mod 97)) mod 97. Sirene does not publish VAT
// numbers; deriving one saves a round trip to a second source.
func vatFromSiren(siren string) string {
	n, err := strconv.Atoi(siren)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("FR%02d%s", (12+3*(n%97))%97, siren)
}

func normalizeDate(value string) (company.Date, error) {
	return normalize.ParseDate(dateLayout, value)
}

func unitBuilder(u *legalUnit, fetchedAt time.Time) *normalize.Builder {
	p := u.current()
	b := normalize.NewBuilder(name, "FR").
		Name(u.displayName()).
		LegalForm(legalFormLabel(p.CategorieJuridique)).
		RegisteredOnString(dateLayout, u.DateCreation).
		Identifier(company.IdentifierSIREN, u.Siren).
		Identifier(company.IdentifierVAT, vatFromSiren(u.Siren)).
		FetchedAt(fetchedAt)
	if p.Etat != "" {
		b.StatusFromActive(p.Etat == "A")
	}
	return b
}

// mapUnit builds the canonical record for one legal unit, attaching the head
// office SIRET when the unit discloses its NIC.
func mapUnit(u *legalUnit, fetchedAt time.Time) (*company.Record, error) {
	b := unitBuilder(u, fetchedAt)
	if nic := u.current().NicSiege; nic != "" {
		b.Identifier(company.IdentifierSIRET, u.Siren+nic)
	}
	return b.Build()
}

// mapEstablishment builds the record for a SIRET lookup: the legal unit's
// data plus the looked-up establishment's own SIRET and address.
func mapEstablishment(e *establishment, fetchedAt time.Time) (*company.Record, error) {
	u := e.UniteLegale
	if u.Siren == "" {
		u.Siren = e.Siren
	}
	return unitBuilder(&u, fetchedAt).
		Identifier(company.IdentifierSIRET, e.Siret).
		Address(e.address()).
		Build()
}
