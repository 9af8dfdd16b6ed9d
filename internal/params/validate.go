package params

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/maplepay/maplepay/internal/domain"
)

// federalBracketCount is document-defined: T4127 publishes exactly five
// federal brackets. Asserted explicitly so a truncated file fails loudly.
const federalBracketCount = 5

func validateBrackets(name string, brackets []domain.TaxBracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: %s: no brackets", ErrParameterInvalid, name)
	}
	if !brackets[0].Threshold.IsZero() {
		return fmt.Errorf("%w: %s: first bracket threshold must be zero, got %s",
			ErrParameterInvalid, name, brackets[0].Threshold)
	}
	for i := 1; i < len(brackets); i++ {
		if !brackets[i].Threshold.GreaterThan(brackets[i-1].Threshold) {
			return fmt.Errorf("%w: %s: thresholds must be strictly ascending at index %d",
				ErrParameterInvalid, name, i)
		}
		if brackets[i].Rate.LessThan(brackets[i-1].Rate) {
			return fmt.Errorf("%w: %s: rates must be non-decreasing at index %d",
				ErrParameterInvalid, name, i)
		}
	}
	for i, b := range brackets {
		if b.Rate.LessThanOrEqual(decimal.Zero) || b.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: %s: bracket %d rate %s out of range (0,1)",
				ErrParameterInvalid, name, i, b.Rate)
		}
	}
	return nil
}

func validateCPP(p domain.CPPParams) error {
	positives := []struct {
		name string
		v    decimal.Decimal
	}{
		{"ympe", p.YMPE},
		{"yampe", p.YAMPE},
		{"basic_exemption", p.BasicExemption},
		{"base_rate", p.BaseRate},
		{"additional_rate", p.AdditionalRate},
		{"max_base_contribution", p.MaxBaseContribution},
		{"max_additional_contribution", p.MaxAdditionalContribution},
	}
	for _, f := range positives {
		if f.v.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: cpp %s must be positive", ErrParameterInvalid, f.name)
		}
	}
	if !p.YAMPE.GreaterThan(p.YMPE) {
		return fmt.Errorf("%w: yampe %s must exceed ympe %s", ErrParameterInvalid, p.YAMPE, p.YMPE)
	}
	return nil
}

func validateEI(p domain.EIParams) error {
	if p.MIE.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: ei mie must be positive", ErrParameterInvalid)
	}
	if p.EmployeeRate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: ei employee_rate must be positive", ErrParameterInvalid)
	}
	if p.EmployerMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: ei employer_multiplier must be at least 1", ErrParameterInvalid)
	}
	return nil
}

func validateFederal(p domain.FederalParams) error {
	if len(p.Brackets) != federalBracketCount {
		return fmt.Errorf("%w: federal bracket count must be %d, got %d",
			ErrParameterInvalid, federalBracketCount, len(p.Brackets))
	}
	if err := validateBrackets("federal", p.Brackets); err != nil {
		return err
	}
	if p.BasicPersonalAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: federal basic_personal_amount must be positive", ErrParameterInvalid)
	}
	if p.CreditRate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: federal credit_rate must be positive", ErrParameterInvalid)
	}
	if p.CanadaEmploymentAmt.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: canada_employment_amount must be positive", ErrParameterInvalid)
	}
	return nil
}

// dynamicBPACodes are the jurisdictions whose BPA is a function of income.
var dynamicBPACodes = map[domain.Jurisdiction]bool{
	domain.Manitoba:   true,
	domain.NovaScotia: true,
	domain.Yukon:      true,
}

func validateJurisdiction(p domain.JurisdictionParams) error {
	name := string(p.Code)
	if err := validateBrackets(name, p.Brackets); err != nil {
		return err
	}
	if p.BasicPersonalAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: %s basic_personal_amount must be positive", ErrParameterInvalid, name)
	}
	if p.CreditRate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: %s credit_rate must be positive", ErrParameterInvalid, name)
	}

	// A capability flag without its coefficients is a broken file.
	if p.HasSurtax != (p.Surtax != nil) {
		return fmt.Errorf("%w: %s: has_surtax flag inconsistent with surtax coefficients", ErrParameterInvalid, name)
	}
	if p.HasHealthPremium != (len(p.HealthPremium) > 0) {
		return fmt.Errorf("%w: %s: has_health_premium flag inconsistent with bands", ErrParameterInvalid, name)
	}
	if p.HasTaxReduction != (p.TaxReduction != nil) {
		return fmt.Errorf("%w: %s: has_tax_reduction flag inconsistent with coefficients", ErrParameterInvalid, name)
	}
	if p.HasK5P != (p.K5P != nil) {
		return fmt.Errorf("%w: %s: has_k5p flag inconsistent with coefficients", ErrParameterInvalid, name)
	}
	if p.HasDynamicBPA != (p.DynamicBPA != nil) {
		return fmt.Errorf("%w: %s: has_dynamic_bpa flag inconsistent with recipe", ErrParameterInvalid, name)
	}
	if dynamicBPACodes[p.Code] && !p.HasDynamicBPA {
		return fmt.Errorf("%w: %s requires a dynamic BPA recipe", ErrParameterInvalid, name)
	}

	if p.Surtax != nil {
		if !p.Surtax.Threshold2.GreaterThan(p.Surtax.Threshold1) {
			return fmt.Errorf("%w: %s: surtax threshold_2 must exceed threshold_1", ErrParameterInvalid, name)
		}
	}
	if p.DynamicBPA != nil {
		switch p.DynamicBPA.Kind {
		case domain.BPAPhaseOut:
			if !p.DynamicBPA.PhaseOutEnd.GreaterThan(p.DynamicBPA.PhaseOutStart) {
				return fmt.Errorf("%w: %s: phase_out_end must exceed phase_out_start", ErrParameterInvalid, name)
			}
		case domain.BPASupplement:
			if !p.DynamicBPA.SupplementEnd.GreaterThan(p.DynamicBPA.SupplementStart) {
				return fmt.Errorf("%w: %s: supplement_end must exceed supplement_start", ErrParameterInvalid, name)
			}
			if p.DynamicBPA.SupplementMax.LessThanOrEqual(decimal.Zero) {
				return fmt.Errorf("%w: %s: supplement_max must be positive", ErrParameterInvalid, name)
			}
		case domain.BPAFederal:
			// no coefficients
		default:
			return fmt.Errorf("%w: %s: unknown dynamic BPA kind %q", ErrParameterInvalid, name, p.DynamicBPA.Kind)
		}
	}
	return nil
}

func validateSet(s *Set) error {
	if err := validateCPP(s.CPP); err != nil {
		return err
	}
	if err := validateEI(s.EI); err != nil {
		return err
	}
	if err := validateFederal(s.Federal); err != nil {
		return err
	}
	for _, code := range domain.AllJurisdictions() {
		p, ok := s.Jurisdictions[code]
		if !ok {
			return fmt.Errorf("%w: jurisdiction %s missing", ErrParameterInvalid, code)
		}
		if err := validateJurisdiction(p); err != nil {
			return err
		}
	}
	return nil
}
