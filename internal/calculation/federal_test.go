package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/maplepay/maplepay/internal/domain"
)

func federalJan2025() domain.FederalParams {
	return domain.FederalParams{
		Year:                2025,
		Edition:             domain.EditionJan,
		BasicPersonalAmount: dec("16129.00"),
		CanadaEmploymentAmt: dec("1471.00"),
		CreditRate:          dec("0.1500"),
		Brackets: []domain.TaxBracket{
			{Threshold: dec("0"), Rate: dec("0.1500"), Constant: dec("0")},
			{Threshold: dec("57375"), Rate: dec("0.2050"), Constant: dec("3155.625")},
			{Threshold: dec("114750"), Rate: dec("0.2600"), Constant: dec("9466.875")},
			{Threshold: dec("177882"), Rate: dec("0.2900"), Constant: dec("14803.335")},
			{Threshold: dec("253414"), Rate: dec("0.3300"), Constant: dec("24939.895")},
		},
	}
}

func federalJul2025() domain.FederalParams {
	p := federalJan2025()
	p.Edition = domain.EditionJul
	p.CreditRate = dec("0.1400")
	p.Brackets = []domain.TaxBracket{
		{Threshold: dec("0"), Rate: dec("0.1400"), Constant: dec("0")},
		{Threshold: dec("57375"), Rate: dec("0.2050"), Constant: dec("3729.375")},
		{Threshold: dec("114750"), Rate: dec("0.2600"), Constant: dec("10040.625")},
		{Threshold: dec("177882"), Rate: dec("0.2900"), Constant: dec("15377.085")},
		{Threshold: dec("253414"), Rate: dec("0.3300"), Constant: dec("25513.645")},
	}
	return p
}

func federalCalc(p domain.FederalParams) FederalTaxCalculator {
	return FederalTaxCalculator{
		Params: p,
		CPP:    CPPCalculator{Params: cpp2025()},
		EI:     EICalculator{Params: ei2025()},
	}
}

func TestFederalAnnualTaxableIncome(t *testing.T) {
	calc := federalCalc(federalJan2025())

	in := domain.CalculationInput{
		GrossRegular: dec("2307.69"),
		RRSP:         dec("100.00"),
	}
	f2 := dec("21.73")
	a := calc.AnnualTaxableIncome(in, decimal.Zero, f2, 26)
	want := dec("2307.69").Sub(dec("100.00")).Sub(f2).Mul(decimal.NewFromInt(26))
	assert.True(t, a.Equal(want), "got %s, want %s", a, want)

	// Deductions exceeding gross floor the projection at zero.
	in.RRSP = dec("5000.00")
	a = calc.AnnualTaxableIncome(in, decimal.Zero, decimal.Zero, 26)
	assert.True(t, a.IsZero(), "projection must not go negative, got %s", a)
}

func TestFederalTax(t *testing.T) {
	calc := federalCalc(federalJan2025())

	tests := []struct {
		name      string
		annual    string
		periodCPP string
		periodEI  string
		claim     string
		want      string
	}{
		{"second bracket with CPP and EI credits", "100000", "100.00", "30.00", "0", "548.57"},
		{"income below credits pays nothing", "16000", "0", "0", "0", "0.00"},
		{"income on a threshold uses the higher bracket", "57375", "0", "0", "0", "229.47"},
		{"explicit TD1 claim replaces the BPA", "50000", "0", "0", "20000.00", "164.59"},
		{"default claim on fifty thousand", "50000", "0", "0", "0", "186.92"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Tax(dec(tc.annual), dec(tc.periodCPP), dec(tc.periodEI), dec(tc.claim), 26)
			assert.True(t, got.Equal(dec(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestFederalTaxJulyEdition(t *testing.T) {
	jan := federalCalc(federalJan2025())
	jul := federalCalc(federalJul2025())

	// The July edition cut the first rate and the credit rate from 15% to
	// 14%; withholding in the first bracket drops accordingly.
	a := dec("50000")
	janTax := jan.Tax(a, decimal.Zero, decimal.Zero, decimal.Zero, 26)
	julTax := jul.Tax(a, decimal.Zero, decimal.Zero, decimal.Zero, 26)

	assert.True(t, janTax.Equal(dec("186.92")), "january, got %s", janTax)
	assert.True(t, julTax.Equal(dec("174.46")), "july, got %s", julTax)
	assert.True(t, julTax.LessThan(janTax), "july withholding should be lower")
}

func TestFederalK2CapsAtPerPeriodMaximum(t *testing.T) {
	calc := federalCalc(federalJan2025())

	// A period contribution above the per-period share of the annual
	// maximum earns no extra credit: the tax must match the capped case.
	capped := calc.Tax(dec("200000"), dec("155.16"), dec("41.44"), decimal.Zero, 26)
	over := calc.Tax(dec("200000"), dec("500.00"), dec("100.00"), decimal.Zero, 26)
	assert.True(t, over.Sub(capped).Abs().LessThanOrEqual(dec("0.01")),
		"capped %s vs over-cap %s", capped, over)
}
