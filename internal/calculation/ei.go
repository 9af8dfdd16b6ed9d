package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/maplepay/maplepay/internal/domain"
)

// EICalculator prices Employment Insurance premiums for one pay period.
type EICalculator struct {
	Params domain.EIParams
}

// Premium returns the employee premium: insurable earnings times the
// employee rate, capped so the year's total never exceeds MIE x rate.
func (c EICalculator) Premium(insurable decimal.Decimal, ytdEI decimal.Decimal, exempt bool) decimal.Decimal {
	if exempt || insurable.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	premium := insurable.Mul(c.Params.EmployeeRate)
	headroom := c.Params.MaxPremium().Sub(ytdEI)
	if headroom.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if premium.GreaterThan(headroom) {
		premium = headroom
	}
	return premium.Round(2)
}

// EmployerPremium is the employee premium scaled by the employer
// multiplier. The employer cap follows the employee cap through this
// scaling; it is never re-derived from gross period by period.
func (c EICalculator) EmployerPremium(employeePremium decimal.Decimal) decimal.Decimal {
	if employeePremium.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return employeePremium.Mul(c.Params.EmployerMultiplier).Round(2)
}

// PerPeriodCap is the annual premium ceiling spread across the year's
// periods; K2 caps the period premium at this amount.
func (c EICalculator) PerPeriodCap(periodsPerYear int) decimal.Decimal {
	return c.Params.MaxPremium().Div(decimal.NewFromInt(int64(periodsPerYear)))
}
