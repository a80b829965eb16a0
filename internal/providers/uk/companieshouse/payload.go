package companieshouse

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"corpatlas/contracts/company"
	"corpatlas/internal/normalize"
)

const dateLayout = "2006-01-02"

type profile struct {
	CompanyName      string            `json:"company_name"`
	CompanyNumber    string            `json:"company_number"`
	CompanyStatus    string            `json:"company_status"`
	CompanyType      string            `json:"type"`
	DateOfCreation   string            `json:"date_of_creation"`
	RegisteredOffice *registeredOffice `json:"registered_office_address"`
}

type registeredOffice struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	PostalCode   string `json:"postal_code"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title          string `json:"title"`
	CompanyNumber  string `json:"company_number"`
	CompanyStatus  string `json:"company_status"`
	CompanyType    string `json:"company_type"`
	DateOfCreation string `json:"date_of_creation"`
}

type officerList struct {
	Items []officerItem `json:"items"`
}

type officerItem struct {
	Name        string `json:"name"`
	OfficerRole string `json:"officer_role"`
	AppointedOn string `json:"appointed_on"`
}

type filingHistory struct {
	Items []filingItem `json:"items"`
}

type filingItem struct {
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Links       filingLinks `json:"links"`
}

type filingLinks struct {
	DocumentMetadata string `json:"document_metadata"`
}

type pscList struct {
	Items []pscItem `json:"items"`
}

type pscItem struct {
	Name             string   `json:"name"`
	NotifiedOn       string   `json:"notified_on"`
	NaturesOfControl []string `json:"natures_of_control"`
}

// companyTypes labels the common register types. Unlisted codes pass
// through verbatim.
var companyTypes = map[string]string{
	"ltd":                  "Private limited company",
	"plc":                  "Public limited company",
	"llp":                  "Limited liability partnership",
	"private-unlimited":    "Private unlimited company",
	"scottish-partnership": "Scottish partnership",
	"oversea-company":      "Overseas company",
}

func companyTypeLabel(code string) string {
	if label, ok := companyTypes[code]; ok {
		return label
	}
	return code
}

// statusOf collapses the register's status vocabulary. Companies in
// liquidation or administration still exist as legal entities, so only the
// terminal states count as ceased.
func statusOf(s string) company.Status {
	switch s {
	case "active", "open", "liquidation", "administration", "receivership", "voluntary-arrangement":
		return company.StatusActive
	case "dissolved", "closed", "converted-closed":
		return company.StatusCeased
	default:
		return company.StatusUnknown
	}
}

func mapProfile(p *profile, fetchedAt time.Time) (*company.Record, error) {
	b := normalize.NewBuilder(name, "GB").
		Name(p.CompanyName).
		LegalForm(companyTypeLabel(p.CompanyType)).
		RegisteredOnString(dateLayout, p.DateOfCreation).
		Identifier(company.IdentifierCRN, p.CompanyNumber).
		FetchedAt(fetchedAt)
	if p.CompanyStatus != "" {
		b.Status(statusOf(p.CompanyStatus))
	}
	if p.RegisteredOffice != nil {
		b.Address(p.RegisteredOffice.canonical())
	}
	return b.Build()
}

func mapSearchItem(item *searchItem, fetchedAt time.Time) (*company.Record, error) {
	b := normalize.NewBuilder(name, "GB").
		Name(item.Title).
		LegalForm(companyTypeLabel(item.CompanyType)).
		RegisteredOnString(dateLayout, item.DateOfCreation).
		Identifier(company.IdentifierCRN, item.CompanyNumber).
		FetchedAt(fetchedAt)
	if item.CompanyStatus != "" {
		b.Status(statusOf(item.CompanyStatus))
	}
	return b.Build()
}

func (r *registeredOffice) canonical() company.Address {
	street := r.AddressLine1
	if r.AddressLine2 != "" {
		street = strings.TrimSpace(street + ", " + r.AddressLine2)
	}
	return company.Address{
		Role:        company.AddressRegisteredOffice,
		Street:      street,
		City:        r.Locality,
		PostalCode:  r.PostalCode,
		CountryCode: "GB",
	}
}

func (l *officerList) officers() []company.Officer {
	out := make([]company.Officer, 0, len(l.Items))
	for _, item := range l.Items {
		o := company.Officer{
			Name: officerName(item.Name),
			Role: item.OfficerRole,
		}
		if appointed, err := normalize.ParseDate(dateLayout, item.AppointedOn); err == nil {
			o.AppointedOn = &appointed
		}
		out = append(out, o)
	}
	return out
}

// officerName restores natural order: the register lists individuals as
// "SURNAME, Forenames" while corporate officers keep their plain name.
func officerName(listed string) string {
	last, first, found := strings.Cut(listed, ", ")
	if !found {
		return listed
	}
	return strings.TrimSpace(first + " " + last)
}

func (h *filingHistory) documents() []company.Document {
	out := make([]company.Document, 0, len(h.Items))
	for _, item := range h.Items {
		// A filing without document metadata has no retrievable file.
		if item.Links.DocumentMetadata == "" {
			continue
		}
		out = append(out, company.Document{
			Type:     item.Category,
			Title:    filingTitle(item.Description),
			IssuedOn: dateOrZero(item.Date),
			URL:      item.Links.DocumentMetadata,
			Source:   name,
		})
	}
	return out
}

// filingTitle renders the register's enumerated description slug as plain
// text ("accounts-with-accounts-type-full" -> "accounts with accounts type
// full"). The slug stays stable across API versions; the official wording
// would need the enumeration tables shipped with the API docs.
func filingTitle(description string) string {
	return strings.ReplaceAll(description, "-", " ")
}

func (l *pscList) owners() []company.BeneficialOwner {
	out := make([]company.BeneficialOwner, 0, len(l.Items))
	for _, item := range l.Items {
		owner := company.BeneficialOwner{Name: item.Name}
		if len(item.NaturesOfControl) > 0 {
			owner.Role = item.NaturesOfControl[0]
		}
		if pct := ownershipFloor(item.NaturesOfControl); pct != nil {
			owner.OwnershipPercent = pct
		}
		if since, err := normalize.ParseDate(dateLayout, item.NotifiedOn); err == nil {
			owner.Since = &since
		}
		out = append(out, owner)
	}
	return out
}

// ownershipFloor extracts the lower bound of an
// "ownership-of-shares-X-to-Y-percent" nature of control. The register
// publishes bands, not exact holdings, so the floor is the honest figure.
func ownershipFloor(natures []string) *decimal.Decimal {
	for _, nature := range natures {
		band, ok := strings.CutPrefix(nature, "ownership-of-shares-")
		if !ok {
			continue
		}
		band, ok = strings.CutSuffix(band, "-percent")
		if !ok {
			continue
		}
		low, _, ok := strings.Cut(band, "-to-")
		if !ok {
			continue
		}
		pct, err := decimal.NewFromString(low)
		if err != nil {
			continue
		}
		return &pct
	}
	return nil
}

func dateOrZero(value string) company.Date {
	d, err := normalize.ParseDate(dateLayout, value)
	if err != nil {
		return company.Date{}
	}
	return d
}
