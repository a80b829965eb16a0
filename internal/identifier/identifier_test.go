package identifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpatlas/contracts/company"
)

func TestClassifyFrenchFormats(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType company.IdentifierType
		wantNorm string
	}{
		{"siren compact", "552100554", company.IdentifierSIREN, "552100554"},
		{"siren with spaces", "552 100 554", company.IdentifierSIREN, "552100554"},
		{"siren with dots", "552.120.222", company.IdentifierSIREN, "552120222"},
		{"siret", "55210055400013", company.IdentifierSIRET, "55210055400013"},
		{"rna", "W12345678", company.IdentifierRNA, "W12345678"},
		{"rna lowercase", "w12345678", company.IdentifierRNA, "W12345678"},
		{"vat with computed key", "FR96552100554", company.IdentifierVAT, "FR96552100554"},
		{"vat legacy alpha key", "FRXX552100554", company.IdentifierVAT, "FRXX552100554"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.raw, "FR")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, "FR", got.CountryCode)
			assert.Equal(t, tt.wantNorm, got.Normalized)
		})
	}
}

func TestClassifyRejectsBadFrenchIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"siren failing luhn", "123456789"},
		{"siren too short", "55210055"},
		{"siret failing luhn", "55210055400014"},
		{"rna with nine digits", "W123456789"},
		{"vat with wrong key", "FR12552100554"},
		{"vat over invalid siren", "FR96123456789"},
		{"letters", "NOT-AN-ID"},
		{"empty", ""},
		{"separators only", " .-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.raw, "FR")
			require.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestClassifyBritishFormats(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType company.IdentifierType
	}{
		{"numeric crn", "01234567", company.IdentifierCRN},
		{"scottish crn", "SC123456", company.IdentifierCRN},
		{"llp crn", "OC345678", company.IdentifierCRN},
		{"crn lowercase prefix", "sc123456", company.IdentifierCRN},
		{"vat nine digits", "GB123456789", company.IdentifierVAT},
		{"vat twelve digits", "GB123456789012", company.IdentifierVAT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.raw, "GB")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, "GB", got.CountryCode)
		})
	}

	for _, raw := range []string{"S1234567", "GB12345678", "1234567", "123456789"} {
		_, err := Classify(raw, "GB")
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "raw=%q", raw)
	}
}

func TestClassifyAmericanEIN(t *testing.T) {
	got, err := Classify("12-3456789", "US")
	require.NoError(t, err)
	assert.Equal(t, company.IdentifierEIN, got.Type)
	assert.Equal(t, "123456789", got.Normalized)
}

func TestClassifyUnknownCountry(t *testing.T) {
	_, err := Classify("552100554", "ZZ")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestClassifyWithoutCountry(t *testing.T) {
	t.Run("unique match resolves", func(t *testing.T) {
		tests := []struct {
			raw         string
			wantCountry string
			wantType    company.IdentifierType
		}{
			// Fails Luhn, so only the EIN format accepts it.
			{"123456789", "US", company.IdentifierEIN},
			{"SC123456", "GB", company.IdentifierCRN},
			{"W12345678", "FR", company.IdentifierRNA},
			{"55210055400013", "FR", company.IdentifierSIRET},
			{"GB123456789", "GB", company.IdentifierVAT},
		}
		for _, tt := range tests {
			got, err := Classify(tt.raw, "")
			require.NoError(t, err, "raw=%q", tt.raw)
			assert.Equal(t, tt.wantCountry, got.CountryCode, "raw=%q", tt.raw)
			assert.Equal(t, tt.wantType, got.Type, "raw=%q", tt.raw)
		}
	})

	t.Run("ambiguous match refuses to guess", func(t *testing.T) {
		// Luhn-valid nine digits read as a SIREN and as an EIN.
		_, err := Classify("552100554", "")
		var ambiguous *AmbiguousError
		require.ErrorAs(t, err, &ambiguous)
		require.Len(t, ambiguous.Candidates, 2)
		assert.Equal(t, Candidate{CountryCode: "FR", Type: company.IdentifierSIREN}, ambiguous.Candidates[0])
		assert.Equal(t, Candidate{CountryCode: "US", Type: company.IdentifierEIN}, ambiguous.Candidates[1])
		assert.Contains(t, ambiguous.Error(), "supply a country code")
	})

	t.Run("no match anywhere", func(t *testing.T) {
		_, err := Classify("XYZ", "")
		require.ErrorIs(t, err, ErrInvalidIdentifier)
		var ambiguous *AmbiguousError
		assert.False(t, errors.As(err, &ambiguous))
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"552 100 554", "552100554"},
		{"55-2100554", "552100554"},
		{"552.100.554", "552100554"},
		{"fr96 552 100 554", "FR96552100554"},
		{"\t 01234567 ", "01234567"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.raw), "raw=%q", tt.raw)
	}
}

func TestFormatSIREN(t *testing.T) {
	assert.Equal(t, "552 100 554", FormatSIREN("552100554"))
	// Anything that is not a bare nine-digit string passes through.
	assert.Equal(t, "55210055400013", FormatSIREN("55210055400013"))
	assert.Equal(t, "W12345678", FormatSIREN("W12345678"))
	assert.Equal(t, "", FormatSIREN(""))
}
