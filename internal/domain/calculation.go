package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// YTDAccumulator carries an employee's running totals within one tax year.
// Every component is monotonic non-decreasing across the year and resets at
// the year boundary.
type YTDAccumulator struct {
	Gross               decimal.Decimal `json:"gross"`
	CPPBase             decimal.Decimal `json:"cpp_base"`
	CPPAdditional       decimal.Decimal `json:"cpp_additional"`
	EI                  decimal.Decimal `json:"ei"`
	FederalTax          decimal.Decimal `json:"federal_tax"`
	ProvincialTax       decimal.Decimal `json:"provincial_tax"`
	PensionableEarnings decimal.Decimal `json:"pensionable_earnings"`
	InsurableEarnings   decimal.Decimal `json:"insurable_earnings"`
}

// Add returns a new accumulator with the other's components added in.
func (y YTDAccumulator) Add(o YTDAccumulator) YTDAccumulator {
	return YTDAccumulator{
		Gross:               y.Gross.Add(o.Gross),
		CPPBase:             y.CPPBase.Add(o.CPPBase),
		CPPAdditional:       y.CPPAdditional.Add(o.CPPAdditional),
		EI:                  y.EI.Add(o.EI),
		FederalTax:          y.FederalTax.Add(o.FederalTax),
		ProvincialTax:       y.ProvincialTax.Add(o.ProvincialTax),
		PensionableEarnings: y.PensionableEarnings.Add(o.PensionableEarnings),
		InsurableEarnings:   y.InsurableEarnings.Add(o.InsurableEarnings),
	}
}

// CalculationInput is the full input tuple for one period calculation.
// YTDBefore reflects approved prior periods only; the engine never reads
// state from anywhere else.
type CalculationInput struct {
	EmployeeID   uuid.UUID
	Jurisdiction Jurisdiction
	Frequency    PayFrequency
	PayDate      time.Time

	GrossRegular    decimal.Decimal
	GrossOvertime   decimal.Decimal
	TaxableBenefits decimal.Decimal
	VacationPay     decimal.Decimal

	RRSP         decimal.Decimal
	UnionDues    decimal.Decimal
	OtherPreTax  decimal.Decimal
	Garnishments decimal.Decimal

	FederalClaim    decimal.Decimal
	ProvincialClaim decimal.Decimal

	CPPExempt  bool
	EIExempt   bool
	CPP2Exempt bool

	YTDBefore YTDAccumulator
}

// TotalGross sums the earnings lines.
func (in CalculationInput) TotalGross() decimal.Decimal {
	return in.GrossRegular.Add(in.GrossOvertime).Add(in.TaxableBenefits).Add(in.VacationPay)
}

// PreTaxDeductions sums the deductions applied before income tax.
func (in CalculationInput) PreTaxDeductions() decimal.Decimal {
	return in.RRSP.Add(in.UnionDues).Add(in.OtherPreTax)
}

// Validate rejects inputs the calculators cannot price.
func (in CalculationInput) Validate() error {
	if !in.Jurisdiction.Valid() {
		return fmt.Errorf("%w: unknown jurisdiction %q", ErrValidation, string(in.Jurisdiction))
	}
	if !in.Frequency.Valid() {
		return fmt.Errorf("%w: unknown pay frequency %q", ErrValidation, string(in.Frequency))
	}
	for _, amt := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"gross_regular", in.GrossRegular},
		{"gross_overtime", in.GrossOvertime},
		{"taxable_benefits", in.TaxableBenefits},
		{"vacation_pay", in.VacationPay},
		{"rrsp", in.RRSP},
		{"union_dues", in.UnionDues},
		{"other_pre_tax", in.OtherPreTax},
		{"garnishments", in.Garnishments},
	} {
		if amt.v.IsNegative() {
			return fmt.Errorf("%w: %s cannot be negative", ErrValidation, amt.name)
		}
	}
	if in.FederalClaim.IsNegative() || in.ProvincialClaim.IsNegative() {
		return fmt.Errorf("%w: claim amounts cannot be negative", ErrValidation)
	}
	return nil
}

// CalculationResult is the balanced outcome of one period calculation.
// Every monetary line is rounded to cents; TotalGross minus TotalDeductions
// equals NetPay exactly.
type CalculationResult struct {
	TotalGross      decimal.Decimal
	CPPBase         decimal.Decimal
	CPPAdditional   decimal.Decimal
	EI              decimal.Decimal
	FederalTax      decimal.Decimal
	ProvincialTax   decimal.Decimal
	PreTax          decimal.Decimal
	PostTax         decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal

	EmployerCPP decimal.Decimal
	EmployerEI  decimal.Decimal

	PensionableEarnings decimal.Decimal
	InsurableEarnings   decimal.Decimal

	YTDAfter YTDAccumulator
}

// EmployerCost is the total employer-side burden beyond gross pay.
func (r CalculationResult) EmployerCost() decimal.Decimal {
	return r.EmployerCPP.Add(r.EmployerEI)
}
