package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpatlas/contracts/company"
	"corpatlas/internal/catalog"
)

func TestBuilderCompleteRecord(t *testing.T) {
	fetched := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec, err := NewBuilder("insee", "FR").
		Name("  Société Générale  ").
		LegalForm("SA").
		StatusFromActive(true).
		RegisteredOnString("2006-01-02", "1864-05-04").
		ShareCapitalString("1 066 714 367,50").
		Identifier(company.IdentifierSIREN, "552 120 222").
		Address(company.Address{Role: company.AddressHeadquarters, City: "Paris", PostalCode: "75009"}).
		FetchedAt(fetched).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "Société Générale", rec.Name)
	assert.Equal(t, "FR", rec.CountryCode)
	assert.Equal(t, "SA", rec.LegalForm)
	assert.Equal(t, company.StatusActive, rec.Status)
	require.NotNil(t, rec.RegisteredOn)
	assert.Equal(t, "1864-05-04", rec.RegisteredOn.String())
	require.NotNil(t, rec.ShareCapital)
	assert.True(t, rec.ShareCapital.Equal(decimal.RequireFromString("1066714367.50")))
	assert.Equal(t, "552120222", rec.Identifiers[company.IdentifierSIREN])
	assert.Equal(t, "insee", rec.Source.Provider)
	assert.Equal(t, fetched, rec.Source.FetchedAt)

	// The address inherits the record country when the source omits it.
	require.Len(t, rec.Addresses, 1)
	assert.Equal(t, "FR", rec.Addresses[0].CountryCode)
}

// A record with name and country present always builds; collections come
// back non-nil even when nothing was set.
func TestBuilderMinimalRecordNeverFails(t *testing.T) {
	rec, err := NewBuilder("pappers", "FR").Name("ACME").Build()

	require.NoError(t, err)
	require.NoError(t, rec.Validate())
	assert.Equal(t, company.StatusUnknown, rec.Status)
	assert.NotNil(t, rec.Identifiers)
	assert.NotNil(t, rec.Addresses)
	assert.NotNil(t, rec.Subsidiaries)
	assert.NotNil(t, rec.Documents)
	assert.NotNil(t, rec.Officers)
	assert.NotNil(t, rec.BeneficialOwners)
	assert.NotNil(t, rec.Events)
	assert.Empty(t, rec.Addresses)
}

func TestBuilderMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    string
	}{
		{
			name:    "missing name",
			builder: NewBuilder("insee", "FR"),
			want:    "missing required field name",
		},
		{
			name:    "missing country",
			builder: NewBuilder("insee", "").Name("ACME"),
			want:    "missing required field country_code",
		},
		{
			name:    "bogus country",
			builder: NewBuilder("insee", "ZZ").Name("ACME"),
			want:    "not ISO 3166-1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.builder.Build()

			assert.Nil(t, rec)
			var nerr *Error
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, "insee", nerr.Provider)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// Every problem found during mapping surfaces in one error.
func TestBuilderCollectsAllIssues(t *testing.T) {
	_, err := NewBuilder("insee", "FR").
		Identifier(company.IdentifierSIREN, "123456789").
		RegisteredOnString("2006-01-02", "04/05/1864").
		Build()

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Len(t, nerr.Issues, 3)
	assert.Contains(t, err.Error(), "missing required field name")
	assert.Contains(t, err.Error(), "identifier siren")
	assert.Contains(t, err.Error(), "registered_on")
}

func TestBuildFailureCarriesNormalizationCategory(t *testing.T) {
	_, err := NewBuilder("insee", "FR").Build()

	require.Error(t, err)
	assert.True(t, catalog.IsCategory(err, catalog.CategoryNormalization),
		"the dispatcher must treat a rejected record as this provider's failure")
}

func TestBuilderIdentifierValidation(t *testing.T) {
	t.Run("valid identifier is normalized and stored", func(t *testing.T) {
		rec, err := NewBuilder("insee", "FR").
			Name("ACME").
			Identifier(company.IdentifierSIREN, "552 120 222").
			Build()

		require.NoError(t, err)
		assert.Equal(t, "552120222", rec.Identifiers[company.IdentifierSIREN])
	})

	t.Run("identifier failing its national format is an issue", func(t *testing.T) {
		_, err := NewBuilder("insee", "FR").
			Name("ACME").
			Identifier(company.IdentifierSIREN, "123456789").
			Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), `identifier siren "123456789"`)
	})

	t.Run("identifier of the wrong declared type is an issue", func(t *testing.T) {
		// 14 digits classify as SIRET, not SIREN.
		_, err := NewBuilder("insee", "FR").
			Name("ACME").
			Identifier(company.IdentifierSIREN, "55212022200021").
			Build()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "classifies as siret")
	})

	t.Run("empty identifier is skipped silently", func(t *testing.T) {
		rec, err := NewBuilder("insee", "FR").
			Name("ACME").
			Identifier(company.IdentifierSIREN, "").
			Build()

		require.NoError(t, err)
		assert.Empty(t, rec.Identifiers)
	})
}

func TestBuilderDocumentRequiresURL(t *testing.T) {
	_, err := NewBuilder("bodacc", "FR").
		Name("ACME").
		Document(company.Document{Type: "annual_accounts", Title: "Comptes 2023"}).
		Build()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source URL")
}

func TestBuilderStatusFromActive(t *testing.T) {
	rec, err := NewBuilder("insee", "FR").Name("ACME").StatusFromActive(false).Build()
	require.NoError(t, err)
	assert.Equal(t, company.StatusCeased, rec.Status)
}

// Identical inputs produce identical records. Nothing in the builder reads
// a clock or global state.
func TestBuilderDeterministic(t *testing.T) {
	build := func() *company.Record {
		rec, err := NewBuilder("demo", "FR").
			Name("Électricité de Fantaisie").
			Identifier(company.IdentifierSIREN, "552120222").
			RegisteredOnString("2006-01-02", "1990-06-15").
			FetchedAt(time.Unix(0, 0).UTC()).
			Build()
		require.NoError(t, err)
		return rec
	}

	assert.Equal(t, build(), build())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("02/01/2006", "04/05/1864")
	require.NoError(t, err)
	assert.Equal(t, "1864-05-04", d.String())

	_, err = ParseDate("2006-01-02", "not a date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"not a date"`)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1234567.89", want: "1234567.89"},
		{in: "1 234 567,89", want: "1234567.89"},
		{in: "1,234,567.89", want: "1234567.89"},
		{in: "40000", want: "40000"},
		{in: "37,50", want: "37.5"},
		{in: "12 000", want: "12000"},
		{in: "n/a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "diacritics folded", in: "Société Générale", want: "SOCIETE GENERALE"},
		{name: "whitespace collapsed", in: "  ACME \t Holdings\n SA ", want: "ACME HOLDINGS SA"},
		{name: "already canonical", in: "ACME", want: "ACME"},
		{name: "mixed case", in: "Crédit Agricole s.a.", want: "CREDIT AGRICOLE S.A."},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.in))
		})
	}
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("Société Générale", "SOCIETE  GENERALE"))
	assert.False(t, SameName("Société Générale", "Crédit Agricole"))
}
