package domain

import (
	"github.com/shopspring/decimal"
)

// TaxBracket is one row of a T4127 rate table: the lowest annual taxable
// income the bracket applies to, the rate R, and the constant K paired with
// it in the annual-projection formula. Brackets are sorted ascending by
// threshold and the first threshold is always zero.
type TaxBracket struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
	Constant  decimal.Decimal
}

// LookupBracket returns the bracket whose threshold is the largest one not
// exceeding annualIncome. When the income sits exactly on a threshold the
// higher bracket applies.
func LookupBracket(brackets []TaxBracket, annualIncome decimal.Decimal) TaxBracket {
	selected := brackets[0]
	for _, b := range brackets[1:] {
		if annualIncome.GreaterThanOrEqual(b.Threshold) {
			selected = b
		}
	}
	return selected
}

// CPPParams holds the Canada Pension Plan constants for one year.
type CPPParams struct {
	Year                      int
	YMPE                      decimal.Decimal
	YAMPE                     decimal.Decimal
	BasicExemption            decimal.Decimal
	BaseRate                  decimal.Decimal
	AdditionalRate            decimal.Decimal
	MaxBaseContribution       decimal.Decimal
	MaxAdditionalContribution decimal.Decimal
}

// EIParams holds the Employment Insurance constants for one year.
type EIParams struct {
	Year               int
	MIE                decimal.Decimal
	EmployeeRate       decimal.Decimal
	EmployerMultiplier decimal.Decimal
}

// MaxPremium is the annual employee premium ceiling, MIE x employee rate.
func (p EIParams) MaxPremium() decimal.Decimal {
	return p.MIE.Mul(p.EmployeeRate).Round(2)
}

// FederalParams holds the federal income tax constants for one edition.
type FederalParams struct {
	Year                 int
	Edition              Edition
	BasicPersonalAmount  decimal.Decimal
	CanadaEmploymentAmt  decimal.Decimal
	IndexingRate         decimal.Decimal
	CreditRate           decimal.Decimal
	Brackets             []TaxBracket
}

// SurtaxParams are the stacked Ontario surtax tiers: rate1 applies to
// basic tax above threshold1, rate2 additionally above threshold2.
type SurtaxParams struct {
	Threshold1 decimal.Decimal
	Rate1      decimal.Decimal
	Threshold2 decimal.Decimal
	Rate2      decimal.Decimal
}

// PremiumBand is one segment of the Ontario health premium piecewise
// function: for annual income above From, the premium is
// min(Cap, Base + Rate x (income - From)).
type PremiumBand struct {
	From decimal.Decimal
	Base decimal.Decimal
	Rate decimal.Decimal
	Cap  decimal.Decimal
}

// TaxReductionParams describe the BC low-income reduction S: the full
// MaxReduction applies at or below Threshold and phases out at Rate above it.
type TaxReductionParams struct {
	MaxReduction decimal.Decimal
	Threshold    decimal.Decimal
	Rate         decimal.Decimal
}

// K5PParams describe the Alberta supplementary credit: Rate applied to
// annual income capped at IncomeCeiling.
type K5PParams struct {
	Rate          decimal.Decimal
	IncomeCeiling decimal.Decimal
}

// DynamicBPAKind selects a dynamic basic-personal-amount recipe.
type DynamicBPAKind string

const (
	// BPAPhaseOut linearly phases the BPA to zero across
	// [PhaseOutStart, PhaseOutEnd] (Manitoba).
	BPAPhaseOut DynamicBPAKind = "phase_out"
	// BPASupplement adds up to SupplementMax on top of the base BPA as
	// income rises across [SupplementStart, SupplementEnd] (Nova Scotia).
	BPASupplement DynamicBPAKind = "supplement"
	// BPAFederal mirrors the federal BPA exactly (Yukon).
	BPAFederal DynamicBPAKind = "federal"
)

// DynamicBPAParams hold the coefficients of one recipe. Only the fields
// relevant to Kind are populated.
type DynamicBPAParams struct {
	Kind            DynamicBPAKind
	PhaseOutStart   decimal.Decimal
	PhaseOutEnd     decimal.Decimal
	SupplementStart decimal.Decimal
	SupplementEnd   decimal.Decimal
	SupplementRate  decimal.Decimal
	SupplementMax   decimal.Decimal
}

// JurisdictionParams hold one province or territory's tax parameters for
// one edition. Capability flags gate the optional calculators; a flag set
// true implies the matching coefficient struct is populated.
type JurisdictionParams struct {
	Code                Jurisdiction
	Year                int
	Edition             Edition
	BasicPersonalAmount decimal.Decimal
	CreditRate          decimal.Decimal
	Brackets            []TaxBracket
	EmploymentAmount    decimal.Decimal // K4P base; zero where not offered

	HasSurtax        bool
	HasHealthPremium bool
	HasTaxReduction  bool
	HasK5P           bool
	HasDynamicBPA    bool

	Surtax        *SurtaxParams
	HealthPremium []PremiumBand
	TaxReduction  *TaxReductionParams
	K5P           *K5PParams
	DynamicBPA    *DynamicBPAParams
}

// EffectiveBPA resolves the basic personal amount for the given annual
// income. Static jurisdictions return the table value; MB, NS and YT apply
// their recipe. federalBPA is the federal table value, needed for Yukon.
func (p JurisdictionParams) EffectiveBPA(annualIncome, federalBPA decimal.Decimal) decimal.Decimal {
	if !p.HasDynamicBPA || p.DynamicBPA == nil {
		return p.BasicPersonalAmount
	}
	d := p.DynamicBPA
	switch d.Kind {
	case BPAPhaseOut:
		if annualIncome.LessThanOrEqual(d.PhaseOutStart) {
			return p.BasicPersonalAmount
		}
		if annualIncome.GreaterThanOrEqual(d.PhaseOutEnd) {
			return decimal.Zero
		}
		span := d.PhaseOutEnd.Sub(d.PhaseOutStart)
		remaining := d.PhaseOutEnd.Sub(annualIncome)
		return p.BasicPersonalAmount.Mul(remaining).Div(span)
	case BPASupplement:
		if annualIncome.LessThanOrEqual(d.SupplementStart) {
			return p.BasicPersonalAmount
		}
		if annualIncome.GreaterThanOrEqual(d.SupplementEnd) {
			return p.BasicPersonalAmount.Add(d.SupplementMax)
		}
		extra := annualIncome.Sub(d.SupplementStart).Mul(d.SupplementRate)
		return p.BasicPersonalAmount.Add(extra)
	case BPAFederal:
		return federalBPA
	}
	return p.BasicPersonalAmount
}

// ParameterSet bundles everything the engine needs for one
// (year, edition, jurisdiction) calculation.
type ParameterSet struct {
	CPP          CPPParams
	EI           EIParams
	Federal      FederalParams
	Jurisdiction JurisdictionParams
}
