// Package calculation implements the T4127 Option 1 statutory calculators
// and the engine that composes them. Everything here is pure: no I/O, no
// shared state, parameters consumed by reference and never mutated.
// Intermediate arithmetic stays at full decimal precision; each calculator
// rounds to cents only on its final return value, half away from zero.
package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/maplepay/maplepay/internal/domain"
)

// legacyCPPRate is the pre-enhancement 4.95% contribution rate. Only this
// portion of a base contribution is credit-eligible (K2); the enhanced
// portion above it is deductible from taxable income instead (F2).
var legacyCPPRate = decimal.NewFromFloat(0.0495)

// CPPCalculator prices Canada Pension Plan base and second-tier
// contributions for one pay period.
type CPPCalculator struct {
	Params domain.CPPParams
}

// Base returns the period's base CPP contribution. The per-period exemption
// is the basic exemption spread across the year's periods; the YTD cap is
// enforced against the documented annual maximum.
func (c CPPCalculator) Base(pensionable decimal.Decimal, periodsPerYear int, ytdCPP decimal.Decimal, exempt bool) decimal.Decimal {
	if exempt {
		return decimal.Zero
	}
	periods := decimal.NewFromInt(int64(periodsPerYear))
	exemption := c.Params.BasicExemption.Div(periods)
	base := pensionable.Sub(exemption)
	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	contribution := base.Mul(c.Params.BaseRate)
	headroom := c.Params.MaxBaseContribution.Sub(ytdCPP)
	if headroom.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if contribution.GreaterThan(headroom) {
		contribution = headroom
	}
	return contribution.Round(2)
}

// Additional returns the period's CPP2 contribution on pensionable earnings
// between the YMPE and the YAMPE, tracked against YTD pensionable earnings.
func (c CPPCalculator) Additional(pensionable decimal.Decimal, ytd domain.YTDAccumulator, exempt bool) decimal.Decimal {
	if exempt {
		return decimal.Zero
	}
	roomToYAMPE := c.Params.YAMPE.Sub(ytd.PensionableEarnings)
	if roomToYAMPE.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	counted := decimal.Min(pensionable, roomToYAMPE)
	belowYMPE := c.Params.YMPE.Sub(ytd.PensionableEarnings)
	if belowYMPE.IsNegative() {
		belowYMPE = decimal.Zero
	}
	excess := counted.Sub(belowYMPE)
	if excess.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	contribution := excess.Mul(c.Params.AdditionalRate)
	headroom := c.Params.MaxAdditionalContribution.Sub(ytd.CPPAdditional)
	if headroom.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if contribution.GreaterThan(headroom) {
		contribution = headroom
	}
	return contribution.Round(2)
}

// EnhancedDeduction returns F2, the income-tax-deductible enhanced portion
// of the period's base contribution: C x (base_rate - 0.0495) / base_rate.
// Computing from the actual contribution rather than raw pensionable
// earnings keeps the deduction aligned with what was withheld once the
// annual cap bites.
func (c CPPCalculator) EnhancedDeduction(baseContribution decimal.Decimal) decimal.Decimal {
	enhanced := c.Params.BaseRate.Sub(legacyCPPRate)
	return baseContribution.Mul(enhanced).Div(c.Params.BaseRate)
}

// LegacyShare is the 0.0495/base_rate ratio that isolates the
// credit-eligible portion of a base contribution for K2.
func (c CPPCalculator) LegacyShare() decimal.Decimal {
	return legacyCPPRate.Div(c.Params.BaseRate)
}

// PerPeriodBaseCap is the annual base maximum spread across the year's
// periods; K2 caps the period contribution at this amount.
func (c CPPCalculator) PerPeriodBaseCap(periodsPerYear int) decimal.Decimal {
	return c.Params.MaxBaseContribution.Div(decimal.NewFromInt(int64(periodsPerYear)))
}
