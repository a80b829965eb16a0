package inpi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"corpatlas/contracts/company"
	"corpatlas/internal/normalize"
)

// RNE payloads. The registry's own casing (camelCase French) is kept on the
// wire structs so fixtures read like the real API.

type rneCompany struct {
	Siren               string      `json:"siren"`
	Denomination        string      `json:"denomination"`
	FormeJuridique      string      `json:"formeJuridique"`
	DateImmatriculation string      `json:"dateImmatriculation"`
	DateRadiation       string      `json:"dateRadiation"`
	Capital             json.Number `json:"capital"`

	Adresse        *rneAddress    `json:"adresse"`
	Representants  []representant `json:"representants"`
	Beneficiaires  []beneficiaire `json:"beneficiairesEffectifs"`
}

type rneAddress struct {
	Voie       string `json:"voie"`
	CodePostal string `json:"codePostal"`
	Commune    string `json:"commune"`
}

type representant struct {
	Nom       string `json:"nom"`
	Prenoms   string `json:"prenoms"`
	Qualite   string `json:"qualite"`
	DateEffet string `json:"dateEffet"`
}

type beneficiaire struct {
	Nom              string      `json:"nom"`
	Prenoms          string      `json:"prenoms"`
	PourcentageParts json.Number `json:"pourcentageParts"`
	DateGreffe       string      `json:"dateGreffe"`
}

type attachments struct {
	Bilans []attachment `json:"bilans"`
	Actes  []attachment `json:"actes"`
}

type attachment struct {
	ID        string `json:"id"`
	DateDepot string `json:"dateDepot"`
	Libelle   string `json:"libelle"`
}

func mapCompany(c *rneCompany, fetchedAt time.Time) (*company.Record, error) {
	b := normalize.NewBuilder(name, "FR").
		Name(c.Denomination).
		LegalForm(c.FormeJuridique).
		StatusFromActive(c.DateRadiation == "").
		RegisteredOnString(dateLayout, c.DateImmatriculation).
		ShareCapitalString(c.Capital.String()).
		Identifier(company.IdentifierSIREN, c.Siren).
		FetchedAt(fetchedAt)

	if c.Adresse != nil {
		b.Address(company.Address{
			Role:        company.AddressRegisteredOffice,
			Street:      c.Adresse.Voie,
			City:        c.Adresse.Commune,
			PostalCode:  c.Adresse.CodePostal,
			CountryCode: "FR",
		})
	}
	for _, o := range c.officers() {
		b.Officer(o)
	}
	for _, bo := range c.beneficialOwners() {
		b.BeneficialOwner(bo)
	}
	return b.Build()
}

func (c *rneCompany) officers() []company.Officer {
	out := make([]company.Officer, 0, len(c.Representants))
	for _, r := range c.Representants {
		o := company.Officer{
			Name: strings.TrimSpace(r.Prenoms + " " + r.Nom),
			Role: r.Qualite,
		}
		if appointed, err := normalize.ParseDate(dateLayout, r.DateEffet); err == nil {
			o.AppointedOn = &appointed
		}
		out = append(out, o)
	}
	return out
}

func (c *rneCompany) beneficialOwners() []company.BeneficialOwner {
	out := make([]company.BeneficialOwner, 0, len(c.Beneficiaires))
	for _, bo := range c.Beneficiaires {
		owner := company.BeneficialOwner{
			Name: strings.TrimSpace(bo.Prenoms + " " + bo.Nom),
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

// documents merges annual accounts and deeds. Download links are built from
// the attachment id; the RNE exposes no direct URL field.
func (att *attachments) documents(baseURL string) []company.Document {
	out := make([]company.Document, 0, len(att.Bilans)+len(att.Actes))
	for _, b := range att.Bilans {
		out = append(out, company.Document{
			Type:     "annual_accounts",
			Title:    title("Bilan", b),
			IssuedOn: dateOrZero(b.DateDepot),
			URL:      fmt.Sprintf("%s/bilans/%s/download", baseURL, b.ID),
			Source:   name,
		})
	}
	for _, a := range att.Actes {
		out = append(out, company.Document{
			Type:     "deed",
			Title:    title("Acte", a),
			IssuedOn: dateOrZero(a.DateDepot),
			URL:      fmt.Sprintf("%s/actes/%s/download", baseURL, a.ID),
			Source:   name,
		})
	}
	return out
}

func title(kind string, a attachment) string {
	if a.Libelle != "" {
		return a.Libelle
	}
	if a.DateDepot != "" {
		return kind + " du " + a.DateDepot
	}
	return kind
}

func dateOrZero(value string) company.Date {
	d, err := normalize.ParseDate(dateLayout, value)
	if err != nil {
		return company.Date{}
	}
	return d
}
