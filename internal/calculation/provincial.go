package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/maplepay/maplepay/internal/domain"
)

// ProvincialTaxCalculator prices provincial and territorial income tax for
// all twelve jurisdictions. One function switches on the capability bundle
// instead of a type per province, so every provincial behavior is traceable
// from this file.
type ProvincialTaxCalculator struct {
	Params  domain.JurisdictionParams
	Federal domain.FederalParams
	CPP     CPPCalculator
	EI      EICalculator
}

// Tax returns the period's provincial income tax.
//
//	T2 = R x A - K - K1P - K2P - K4P - K5P, floored at zero
//	then the capability extras: Ontario surtax and health premium added,
//	BC reduction subtracted, the sum floored at zero and divided by P.
func (p ProvincialTaxCalculator) Tax(annualIncome, periodCPP, periodEI, claim decimal.Decimal, periodsPerYear int) decimal.Decimal {
	bracket := domain.LookupBracket(p.Params.Brackets, annualIncome)

	k1p := p.Params.CreditRate.Mul(p.effectiveClaim(claim, annualIncome))
	k2p := p.Params.CreditRate.Mul(annualCreditBase(p.CPP, p.EI, periodCPP, periodEI, periodsPerYear))

	t2 := bracket.Rate.Mul(annualIncome).
		Sub(bracket.Constant).
		Sub(k1p).
		Sub(k2p)

	if p.Params.EmploymentAmount.IsPositive() {
		k4p := p.Params.CreditRate.Mul(decimal.Min(annualIncome, p.Params.EmploymentAmount))
		t2 = t2.Sub(k4p)
	}
	if p.Params.HasK5P {
		k5p := p.Params.K5P.Rate.Mul(decimal.Min(annualIncome, p.Params.K5P.IncomeCeiling))
		t2 = t2.Sub(k5p)
	}
	if t2.IsNegative() {
		t2 = decimal.Zero
	}

	annual := t2
	if p.Params.HasSurtax {
		annual = annual.Add(p.surtax(t2))
	}
	if p.Params.HasHealthPremium {
		annual = annual.Add(p.healthPremium(annualIncome))
	}
	if p.Params.HasTaxReduction {
		annual = annual.Sub(p.taxReduction(t2, annualIncome))
	}
	if annual.IsNegative() {
		annual = decimal.Zero
	}
	return annual.Div(decimal.NewFromInt(int64(periodsPerYear))).Round(2)
}

// effectiveClaim resolves the TD1P claim. A zero claim defaults to the
// jurisdiction's BPA. Dynamic-BPA jurisdictions replace the BPA portion of
// the claim with the recipe output; credits claimed above the static BPA
// survive the substitution.
func (p ProvincialTaxCalculator) effectiveClaim(claim, annualIncome decimal.Decimal) decimal.Decimal {
	bpa := p.Params.EffectiveBPA(annualIncome, p.Federal.BasicPersonalAmount)
	if claim.IsZero() {
		return bpa
	}
	if !p.Params.HasDynamicBPA {
		return claim
	}
	extra := claim.Sub(p.Params.BasicPersonalAmount)
	if extra.IsNegative() {
		extra = decimal.Zero
	}
	return bpa.Add(extra)
}

// surtax computes the stacked Ontario tiers:
// V1 = rate1 x max(0, T2 - t1) + rate2 x max(0, T2 - t2).
func (p ProvincialTaxCalculator) surtax(t2 decimal.Decimal) decimal.Decimal {
	s := p.Params.Surtax
	v1 := decimal.Zero
	if over := t2.Sub(s.Threshold1); over.IsPositive() {
		v1 = v1.Add(over.Mul(s.Rate1))
	}
	if over := t2.Sub(s.Threshold2); over.IsPositive() {
		v1 = v1.Add(over.Mul(s.Rate2))
	}
	return v1
}

// healthPremium evaluates the Ontario piecewise premium V2 on annual
// income. Bands are sorted ascending by From; income at or below the first
// band's floor pays nothing.
func (p ProvincialTaxCalculator) healthPremium(annualIncome decimal.Decimal) decimal.Decimal {
	var band *domain.PremiumBand
	for i := range p.Params.HealthPremium {
		if annualIncome.GreaterThan(p.Params.HealthPremium[i].From) {
			band = &p.Params.HealthPremium[i]
		}
	}
	if band == nil {
		return decimal.Zero
	}
	premium := band.Base.Add(annualIncome.Sub(band.From).Mul(band.Rate))
	return decimal.Min(premium, band.Cap)
}

// taxReduction computes the BC low-income reduction S, never exceeding T2.
func (p ProvincialTaxCalculator) taxReduction(t2, annualIncome decimal.Decimal) decimal.Decimal {
	r := p.Params.TaxReduction
	s := r.MaxReduction
	if over := annualIncome.Sub(r.Threshold); over.IsPositive() {
		s = s.Sub(over.Mul(r.Rate))
	}
	if s.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(s, t2)
}
