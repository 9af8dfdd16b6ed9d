package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/maplepay/maplepay/internal/domain"
)

// annualCreditBase computes the annualized CPP-and-EI amount that K2 and
// K2P apply their credit rate to. The period contribution is capped at the
// per-period share of the annual maximum before annualizing, and only the
// legacy (non-enhanced) portion of CPP is credit-eligible.
func annualCreditBase(cpp CPPCalculator, ei EICalculator, periodCPP, periodEI decimal.Decimal, periodsPerYear int) decimal.Decimal {
	periods := decimal.NewFromInt(int64(periodsPerYear))
	cppPart := decimal.Min(periodCPP, cpp.PerPeriodBaseCap(periodsPerYear)).
		Mul(periods).
		Mul(cpp.LegacyShare())
	eiPart := decimal.Min(periodEI, ei.PerPeriodCap(periodsPerYear)).Mul(periods)
	return cppPart.Add(eiPart)
}

// FederalTaxCalculator implements the T4127 Option 1 federal projection.
type FederalTaxCalculator struct {
	Params domain.FederalParams
	CPP    CPPCalculator
	EI     EICalculator
}

// AnnualTaxableIncome projects the period's taxable income to a full year:
// A = P x (gross - RRSP - union dues - other pre-tax - CPP2 - F2),
// floored at zero.
func (f FederalTaxCalculator) AnnualTaxableIncome(in domain.CalculationInput, cpp2, f2 decimal.Decimal, periodsPerYear int) decimal.Decimal {
	periodTaxable := in.TotalGross().
		Sub(in.PreTaxDeductions()).
		Sub(cpp2).
		Sub(f2)
	a := periodTaxable.Mul(decimal.NewFromInt(int64(periodsPerYear)))
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

// Tax returns the period's federal income tax.
//
//	(R, K) from the bracket containing A (ties go to the higher bracket)
//	K1 = credit_rate x claim
//	K2 = credit_rate x annualized capped CPP/EI credit base
//	K4 = credit_rate x min(A, Canada Employment Amount)
//	T3 = R x A - K - K1 - K2 - K4, floored at zero
//	period tax = T3 / P, rounded to cents
func (f FederalTaxCalculator) Tax(annualIncome, periodCPP, periodEI, claim decimal.Decimal, periodsPerYear int) decimal.Decimal {
	if claim.IsZero() {
		claim = f.Params.BasicPersonalAmount
	}
	bracket := domain.LookupBracket(f.Params.Brackets, annualIncome)

	k1 := f.Params.CreditRate.Mul(claim)
	k2 := f.Params.CreditRate.Mul(annualCreditBase(f.CPP, f.EI, periodCPP, periodEI, periodsPerYear))
	k4 := f.Params.CreditRate.Mul(decimal.Min(annualIncome, f.Params.CanadaEmploymentAmt))

	t3 := bracket.Rate.Mul(annualIncome).
		Sub(bracket.Constant).
		Sub(k1).
		Sub(k2).
		Sub(k4)
	if t3.IsNegative() {
		t3 = decimal.Zero
	}
	return t3.Div(decimal.NewFromInt(int64(periodsPerYear))).Round(2)
}
