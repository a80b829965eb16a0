package pappers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"corpatlas/contracts/company"
	"corpatlas/internal/normalize"
)

// Pappers v2 payloads. Numeric fields arrive as json.Number so amounts and
// percentages reach the decimal layer without a float64 detour.

const dateLayout = "2006-01-02"

type enterprise struct {
	Siren            string        `json:"siren"`
	NomEntreprise    string        `json:"nom_entreprise"`
	FormeJuridique   string        `json:"forme_juridique"`
	DateCreation     string        `json:"date_creation"`
	EntrepriseCessee bool          `json:"entreprise_cessee"`
	Capital          json.Number   `json:"capital"`
	NumeroTVA        string        `json:"numero_tva_intracommunautaire"`
	Siege            etablissement `json:"siege"`

	Etablissements []etablissement `json:"etablissements"`
	Dirigeants     []dirigeant     `json:"dirigeants"`
	Beneficiaires  []beneficiaire  `json:"beneficiaires_effectifs"`
	Publications   []publication   `json:"publications_bodacc"`
	Comptes        []compte        `json:"comptes"`
	Statuts        *statuts        `json:"derniers_statuts"`
	Participations []participation `json:"participations"`
}

type etablissement struct {
	Siret        string `json:"siret"`
	AdresseLigne string `json:"adresse_ligne_1"`
	CodePostal   string `json:"code_postal"`
	Ville        string `json:"ville"`
	Pays         string `json:"pays"`
}

type dirigeant struct {
	Nom              string `json:"nom"`
	Prenom           string `json:"prenom"`
	Fonction         string `json:"fonction"`
	DatePriseDePoste string `json:"date_prise_de_poste"`
	PersonneMorale   bool   `json:"personne_morale"`
	Denomination     string `json:"denomination"`
}

type beneficiaire struct {
	Nom              string      `json:"nom"`
	Prenom           string      `json:"prenom"`
	PourcentageParts json.Number `json:"pourcentage_parts"`
	DateGreffe       string      `json:"date_greffe"`
}

type publication struct {
	Type           string `json:"type"`
	Date           string `json:"date"`
	NumeroParution string `json:"numero_parution"`
	Contenu        string `json:"contenu"`
}

type compte struct {
	Annee     int    `json:"annee"`
	DateDepot string `json:"date_depot"`
	URL       string `json:"url"`
}

type statuts struct {
	DateDepot string `json:"date_depot"`
	URL       string `json:"url"`
}

type participation struct {
	Siren        string      `json:"siren"`
	Denomination string      `json:"denomination"`
	Pourcentage  json.Number `json:"pourcentage"`
}

type searchResponse struct {
	Resultats []searchHit `json:"resultats"`
	Total     int         `json:"total"`
}

type searchHit struct {
	Siren            string        `json:"siren"`
	NomEntreprise    string        `json:"nom_entreprise"`
	FormeJuridique   string        `json:"forme_juridique"`
	DateCreation     string        `json:"date_creation"`
	EntrepriseCessee bool          `json:"entreprise_cessee"`
	Siege            etablissement `json:"siege"`
}

// mapEnterprise builds the full canonical record. Pappers returns the whole
// dossier in one payload, so this is the one mapper that populates every
// collection.
func mapEnterprise(e *enterprise, fetchedAt time.Time) (*company.Record, error) {
	b := normalize.NewBuilder(name, "FR").
		Name(e.NomEntreprise).
		LegalForm(e.FormeJuridique).
		StatusFromActive(!e.EntrepriseCessee).
		RegisteredOnString(dateLayout, e.DateCreation).
		ShareCapitalString(e.Capital.String()).
		Identifier(company.IdentifierSIREN, e.Siren).
		Identifier(company.IdentifierSIRET, e.Siege.Siret).
		Identifier(company.IdentifierVAT, e.NumeroTVA).
		FetchedAt(fetchedAt)

	for _, addr := range e.addresses() {
		b.Address(addr)
	}
	for _, sub := range e.subsidiaries() {
		b.Subsidiary(sub)
	}
	for _, doc := range e.documents() {
		b.Document(doc)
	}
	for _, o := range e.officers() {
		b.Officer(o)
	}
	for _, bo := range e.beneficialOwners() {
		b.BeneficialOwner(bo)
	}
	for _, ev := range e.events() {
		b.Event(ev)
	}
	return b.Build()
}

func mapSearchHit(h *searchHit, fetchedAt time.Time) (*company.Record, error) {
	return normalize.NewBuilder(name, "FR").
		Name(h.NomEntreprise).
		LegalForm(h.FormeJuridique).
		StatusFromActive(!h.EntrepriseCessee).
		RegisteredOnString(dateLayout, h.DateCreation).
		Identifier(company.IdentifierSIREN, h.Siren).
		Identifier(company.IdentifierSIRET, h.Siege.Siret).
		Address(h.Siege.address(company.AddressHeadquarters)).
		FetchedAt(fetchedAt).
		Build()
}

func (e *etablissement) address(role company.AddressRole) company.Address {
	cc := "FR"
	if e.Pays != "" && len(e.Pays) == 2 {
		cc = strings.ToUpper(e.Pays)
	}
	return company.Address{
		Role:        role,
		Street:      e.AdresseLigne,
		City:        e.Ville,
		PostalCode:  e.CodePostal,
		CountryCode: cc,
	}
}

func (e *enterprise) addresses() []company.Address {
	out := make([]company.Address, 0, 1+len(e.Etablissements))
	if e.Siege.Siret != "" || e.Siege.AdresseLigne != "" {
		out = append(out, e.Siege.address(company.AddressHeadquarters))
	}
	for i := range e.Etablissements {
		et := &e.Etablissements[i]
		if et.Siret == e.Siege.Siret {
			continue
		}
		out = append(out, et.address(company.AddressBranch))
	}
	return out
}

func (e *enterprise) subsidiaries() []company.Subsidiary {
	out := make([]company.Subsidiary, 0, len(e.Participations))
	for _, p := range e.Participations {
		sub := company.Subsidiary{
			Identifier:     p.Siren,
			IdentifierType: company.IdentifierSIREN,
			Name:           p.Denomination,
		}
		if pct, err := decimal.NewFromString(p.Pourcentage.String()); err == nil {
			sub.OwnershipPercent = &pct
		}
		out = append(out, sub)
	}
	return out
}

func (e *enterprise) documents() []company.Document {
	out := make([]company.Document, 0, len(e.Comptes)+1)
	for _, c := range e.Comptes {
		out = append(out, company.Document{
			Type:     "annual_accounts",
			Title:    fmt.Sprintf("Comptes annuels %d", c.Annee),
			IssuedOn: dateOrZero(c.DateDepot),
			URL:      c.URL,
			Source:   name,
		})
	}
	if e.Statuts != nil && e.Statuts.URL != "" {
		out = append(out, company.Document{
			Type:     "articles_of_association",
			Title:    "Statuts à jour",
			IssuedOn: dateOrZero(e.Statuts.DateDepot),
			URL:      e.Statuts.URL,
			Source:   name,
		})
	}
	return out
}

func (e *enterprise) officers() []company.Officer {
	out := make([]company.Officer, 0, len(e.Dirigeants))
	for _, d := range e.Dirigeants {
		o := company.Officer{
			Name: officerName(d),
			Role: d.Fonction,
		}
		if appointed, err := normalize.ParseDate(dateLayout, d.DatePriseDePoste); err == nil {
			o.AppointedOn = &appointed
		}
		out = append(out, o)
	}
	return out
}

func officerName(d dirigeant) string {
	if d.PersonneMorale {
		return d.Denomination
	}
	return strings.TrimSpace(d.Prenom + " " + d.Nom)
}

func (e *enterprise) beneficialOwners() []company.BeneficialOwner {
	out := make([]company.BeneficialOwner, 0, len(e.Beneficiaires))
	for _, bo := range e.Beneficiaires {
		owner := company.BeneficialOwner{
			Name: strings.TrimSpace(bo.Prenom + " " + bo.Nom),
		}
		if pct, err := decimal.NewFromString(bo.PourcentageParts.String()); err == nil {
			owner.OwnershipPercent = &pct
		}
		if since, err := normalize.ParseDate(dateLayout, bo.DateGreffe); err == nil {
			owner.Since = &since
		}
		out = append(out, owner)
	}
	return out
}

func (e *enterprise) events() []company.Event {
	out := make([]company.Event, 0, len(e.Publications))
	for _, p := range e.Publications {
		out = append(out, company.Event{
			Type:       eventType(p.Type),
			OccurredOn: dateOrZero(p.Date),
			Title:      p.Type,
			Details:    p.Contenu,
			Source:     name,
		})
	}
	return out
}

// eventType slugs a BODACC publication label ("Procédure collective" ->
// "procédure_collective") so events from different sources compare equal.
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
