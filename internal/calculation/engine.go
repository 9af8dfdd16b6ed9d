package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/maplepay/maplepay/internal/domain"
)

// Engine composes the statutory calculators in the T4127-mandated order:
// CPP base, CPP2, EI, federal tax, provincial tax. The order matters
// because both tax calculators consume the CPP and EI period amounts for
// their K2 credits and the federal projection deducts CPP2 and F2.
//
// Calculate is a total function of its inputs: no I/O, no retries, no
// shared state. It is safe to call from any number of goroutines.
type Engine struct{}

// NewEngine returns the stateless calculation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Calculate prices one pay period. It returns a balanced result whose
// YTDAfter already includes this period's lines, or an error: ErrValidation
// for inputs the calculators cannot price, ErrInternal when the computed
// lines fail the balance check (a calculator bug, never user input).
func (e *Engine) Calculate(in domain.CalculationInput, ps domain.ParameterSet) (domain.CalculationResult, error) {
	if err := in.Validate(); err != nil {
		return domain.CalculationResult{}, err
	}
	periods, err := in.Frequency.PeriodsPerYear()
	if err != nil {
		return domain.CalculationResult{}, err
	}

	gross := in.TotalGross()
	// Employer-configurable earnings bases default to total gross.
	pensionable := gross
	insurable := gross

	cpp := CPPCalculator{Params: ps.CPP}
	ei := EICalculator{Params: ps.EI}

	cppBase := cpp.Base(pensionable, periods, in.YTDBefore.CPPBase, in.CPPExempt)
	cpp2 := cpp.Additional(pensionable, in.YTDBefore, in.CPPExempt || in.CPP2Exempt)
	eiPremium := ei.Premium(insurable, in.YTDBefore.EI, in.EIExempt)

	f2 := cpp.EnhancedDeduction(cppBase)

	federal := FederalTaxCalculator{Params: ps.Federal, CPP: cpp, EI: ei}
	annualIncome := federal.AnnualTaxableIncome(in, cpp2, f2, periods)
	federalTax := federal.Tax(annualIncome, cppBase, eiPremium, in.FederalClaim, periods)

	provincial := ProvincialTaxCalculator{Params: ps.Jurisdiction, Federal: ps.Federal, CPP: cpp, EI: ei}
	provincialTax := provincial.Tax(annualIncome, cppBase, eiPremium, in.ProvincialClaim, periods)

	preTax := in.PreTaxDeductions()
	postTax := in.Garnishments
	totalDeductions := cppBase.Add(cpp2).Add(eiPremium).
		Add(federalTax).Add(provincialTax).
		Add(preTax).Add(postTax)
	netPay := gross.Sub(totalDeductions)

	result := domain.CalculationResult{
		TotalGross:          gross,
		CPPBase:             cppBase,
		CPPAdditional:       cpp2,
		EI:                  eiPremium,
		FederalTax:          federalTax,
		ProvincialTax:       provincialTax,
		PreTax:              preTax,
		PostTax:             postTax,
		TotalDeductions:     totalDeductions,
		NetPay:              netPay,
		EmployerCPP:         cppBase.Add(cpp2),
		EmployerEI:          ei.EmployerPremium(eiPremium),
		PensionableEarnings: pensionable,
		InsurableEarnings:   insurable,
		YTDAfter: in.YTDBefore.Add(domain.YTDAccumulator{
			Gross:               gross,
			CPPBase:             cppBase,
			CPPAdditional:       cpp2,
			EI:                  eiPremium,
			FederalTax:          federalTax,
			ProvincialTax:       provincialTax,
			PensionableEarnings: pensionable,
			InsurableEarnings:   insurable,
		}),
	}

	if err := checkBalance(result); err != nil {
		return domain.CalculationResult{}, err
	}
	return result, nil
}

// checkBalance asserts the result invariants at cents precision. A failure
// here is a calculator defect and surfaces as ErrInternal.
func checkBalance(r domain.CalculationResult) error {
	if !r.TotalGross.Sub(r.TotalDeductions).Equal(r.NetPay) {
		return fmt.Errorf("%w: balance check failed: gross %s - deductions %s != net %s",
			domain.ErrInternal, r.TotalGross, r.TotalDeductions, r.NetPay)
	}
	if !r.EmployerCPP.Equal(r.CPPBase.Add(r.CPPAdditional)) {
		return fmt.Errorf("%w: employer CPP %s does not match employee CPP %s + CPP2 %s",
			domain.ErrInternal, r.EmployerCPP, r.CPPBase, r.CPPAdditional)
	}
	for _, line := range []decimal.Decimal{r.CPPBase, r.CPPAdditional, r.EI, r.FederalTax, r.ProvincialTax, r.EmployerCPP, r.EmployerEI} {
		if line.IsNegative() {
			return fmt.Errorf("%w: negative statutory line in result", domain.ErrInternal)
		}
	}
	return nil
}
