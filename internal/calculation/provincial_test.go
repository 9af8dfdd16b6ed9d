package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/maplepay/maplepay/internal/domain"
	"github.com/maplepay/maplepay/internal/params"
)

// load2025 pulls the real 2025 tables so the provincial tests exercise the
// same parameters production runs on.
func load2025(t *testing.T, edition domain.Edition) *params.Set {
	t.Helper()
	set, err := params.NewStore("../../config/tax_tables").Load(2025, edition)
	require.NoError(t, err)
	return set
}

func provincialCalc(t *testing.T, set *params.Set, code domain.Jurisdiction) ProvincialTaxCalculator {
	t.Helper()
	j, ok := set.Jurisdictions[code]
	require.True(t, ok, "missing jurisdiction %s", code)
	return ProvincialTaxCalculator{
		Params:  j,
		Federal: set.Federal,
		CPP:     CPPCalculator{Params: set.CPP},
		EI:      EICalculator{Params: set.EI},
	}
}

// All cases run with zero period CPP/EI so the K2P credit stays out of the
// way and each provincial mechanism is visible on its own. Claims are zero,
// defaulting to each jurisdiction's BPA.
func TestProvincialTax(t *testing.T) {
	set := load2025(t, domain.EditionJan)

	tests := []struct {
		name   string
		code   domain.Jurisdiction
		annual string
		want   string
	}{
		{"ON surtax and health premium", domain.Ontario, "150000", "557.29"},
		{"BC low-income reduction phases out", domain.BritishColumbia, "30000", "19.00"},
		{"BC reduction wipes out low-income tax", domain.BritishColumbia, "20000", "0.00"},
		{"MB BPA intact below phase-out", domain.Manitoba, "100000", "389.16"},
		{"MB BPA half phased out", domain.Manitoba, "300000", "1758.25"},
		{"NS supplement grows the BPA", domain.NovaScotia, "50000", "170.45"},
		{"NS supplement capped", domain.NovaScotia, "100000", "479.98"},
		{"YT uses the federal BPA", domain.Yukon, "60000", "106.99"},
		{"AB K5P credit", domain.Alberta, "80000", "175.68"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calc := provincialCalc(t, set, tc.code)
			got := calc.Tax(dec(tc.annual), decimal.Zero, decimal.Zero, decimal.Zero, 26)
			require.True(t, got.Equal(dec(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestProvincialTaxNeverNegative(t *testing.T) {
	set := load2025(t, domain.EditionJan)

	for _, code := range domain.AllJurisdictions() {
		calc := provincialCalc(t, set, code)
		got := calc.Tax(dec("5000"), decimal.Zero, decimal.Zero, decimal.Zero, 26)
		require.False(t, got.IsNegative(), "%s went negative at low income: %s", code, got)
	}
}

func TestManitobaBPAFullyPhasedOut(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	calc := provincialCalc(t, set, domain.Manitoba)

	// Past the phase-out end the K1P credit is gone entirely: tax equals
	// R x A - K - K2P with no personal credit.
	a := dec("450000")
	got := calc.Tax(a, decimal.Zero, decimal.Zero, decimal.Zero, 26)
	bracket := domain.LookupBracket(calc.Params.Brackets, a)
	want := bracket.Rate.Mul(a).Sub(bracket.Constant).Div(decimal.NewFromInt(26)).Round(2)
	require.True(t, got.Equal(want), "got %s, want %s", got, want)
}

func TestOntarioSurtaxOnlyAboveThresholds(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	calc := provincialCalc(t, set, domain.Ontario)

	// At a modest income basic tax stays below the first surtax threshold;
	// only the health premium rides on top.
	low := calc.Tax(dec("56834.93"), decimal.Zero, decimal.Zero, decimal.Zero, 26)
	require.True(t, low.Equal(dec("114.94")), "got %s", low)
}
