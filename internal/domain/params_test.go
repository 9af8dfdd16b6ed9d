package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLookupBracket(t *testing.T) {
	brackets := []TaxBracket{
		{Threshold: d("0"), Rate: d("0.15"), Constant: d("0")},
		{Threshold: d("57375"), Rate: d("0.205"), Constant: d("3155.625")},
		{Threshold: d("114750"), Rate: d("0.26"), Constant: d("9466.875")},
	}

	tests := []struct {
		income   string
		wantRate string
	}{
		{"0", "0.15"},
		{"57374.99", "0.15"},
		{"57375", "0.205"}, // a tie goes to the higher bracket
		{"114750", "0.26"},
		{"500000", "0.26"},
	}
	for _, tc := range tests {
		got := LookupBracket(brackets, d(tc.income))
		assert.True(t, got.Rate.Equal(d(tc.wantRate)), "income %s: got rate %s", tc.income, got.Rate)
	}
}

func TestEffectiveBPAPhaseOut(t *testing.T) {
	p := JurisdictionParams{
		Code:                Manitoba,
		BasicPersonalAmount: d("15780"),
		HasDynamicBPA:       true,
		DynamicBPA: &DynamicBPAParams{
			Kind:          BPAPhaseOut,
			PhaseOutStart: d("200000"),
			PhaseOutEnd:   d("400000"),
		},
	}

	assert.True(t, p.EffectiveBPA(d("100000"), d("16129")).Equal(d("15780")), "below the start the BPA is intact")
	assert.True(t, p.EffectiveBPA(d("300000"), d("16129")).Equal(d("7890")), "midpoint halves the BPA")
	assert.True(t, p.EffectiveBPA(d("400000"), d("16129")).IsZero(), "at the end the BPA is gone")
	assert.True(t, p.EffectiveBPA(d("900000"), d("16129")).IsZero())
}

func TestEffectiveBPASupplement(t *testing.T) {
	p := JurisdictionParams{
		Code:                NovaScotia,
		BasicPersonalAmount: d("11744"),
		HasDynamicBPA:       true,
		DynamicBPA: &DynamicBPAParams{
			Kind:            BPASupplement,
			SupplementStart: d("25000"),
			SupplementEnd:   d("75000"),
			SupplementRate:  d("0.06"),
			SupplementMax:   d("3000"),
		},
	}

	assert.True(t, p.EffectiveBPA(d("25000"), d("16129")).Equal(d("11744")))
	assert.True(t, p.EffectiveBPA(d("50000"), d("16129")).Equal(d("13244")))
	assert.True(t, p.EffectiveBPA(d("75000"), d("16129")).Equal(d("14744")), "supplement caps at its maximum")
	assert.True(t, p.EffectiveBPA(d("200000"), d("16129")).Equal(d("14744")))
}

func TestEffectiveBPAFederal(t *testing.T) {
	p := JurisdictionParams{
		Code:                Yukon,
		BasicPersonalAmount: d("16129"),
		HasDynamicBPA:       true,
		DynamicBPA:          &DynamicBPAParams{Kind: BPAFederal},
	}

	assert.True(t, p.EffectiveBPA(d("60000"), d("17000")).Equal(d("17000")), "Yukon mirrors the federal BPA")
}

func TestEffectiveBPAStatic(t *testing.T) {
	p := JurisdictionParams{Code: Ontario, BasicPersonalAmount: d("12747")}
	assert.True(t, p.EffectiveBPA(d("1000000"), d("16129")).Equal(d("12747")), "static jurisdictions ignore income")
}
