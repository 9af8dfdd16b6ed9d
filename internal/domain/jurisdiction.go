package domain

import (
	"fmt"
	"time"
)

// Jurisdiction identifies one of the twelve supported Canadian provinces and
// territories. Quebec is not supported; QPP/QPIP employees must be handled
// outside this engine.
type Jurisdiction string

const (
	Alberta              Jurisdiction = "AB"
	BritishColumbia      Jurisdiction = "BC"
	Manitoba             Jurisdiction = "MB"
	NewBrunswick         Jurisdiction = "NB"
	NewfoundlandLabrador Jurisdiction = "NL"
	NovaScotia           Jurisdiction = "NS"
	NorthwestTerritories Jurisdiction = "NT"
	Nunavut              Jurisdiction = "NU"
	Ontario              Jurisdiction = "ON"
	PrinceEdwardIsland   Jurisdiction = "PE"
	Saskatchewan         Jurisdiction = "SK"
	Yukon                Jurisdiction = "YT"
)

// AllJurisdictions returns the closed set of supported codes in stable order.
func AllJurisdictions() []Jurisdiction {
	return []Jurisdiction{
		Alberta, BritishColumbia, Manitoba, NewBrunswick,
		NewfoundlandLabrador, NovaScotia, NorthwestTerritories, Nunavut,
		Ontario, PrinceEdwardIsland, Saskatchewan, Yukon,
	}
}

// Valid reports whether the code is one of the twelve supported jurisdictions.
func (j Jurisdiction) Valid() bool {
	for _, known := range AllJurisdictions() {
		if j == known {
			return true
		}
	}
	return false
}

// PayFrequency is the employee's pay schedule. Periods per year is a total
// function of the frequency; there is no other source for it.
type PayFrequency string

const (
	Weekly      PayFrequency = "weekly"
	BiWeekly    PayFrequency = "bi_weekly"
	SemiMonthly PayFrequency = "semi_monthly"
	Monthly     PayFrequency = "monthly"
)

// PeriodsPerYear returns the statutory number of pay periods for the
// frequency, or an error for an unknown frequency.
func (f PayFrequency) PeriodsPerYear() (int, error) {
	switch f {
	case Weekly:
		return 52, nil
	case BiWeekly:
		return 26, nil
	case SemiMonthly:
		return 24, nil
	case Monthly:
		return 12, nil
	}
	return 0, fmt.Errorf("%w: unknown pay frequency %q", ErrValidation, string(f))
}

// Valid reports whether the frequency is one of the four supported schedules.
func (f PayFrequency) Valid() bool {
	_, err := f.PeriodsPerYear()
	return err == nil
}

// PeriodStart returns the first day of the pay period ending at payDate.
func (f PayFrequency) PeriodStart(payDate time.Time) time.Time {
	switch f {
	case Weekly:
		return payDate.AddDate(0, 0, -6)
	case BiWeekly:
		return payDate.AddDate(0, 0, -13)
	case SemiMonthly:
		return payDate.AddDate(0, 0, -14)
	default:
		return payDate.AddDate(0, -1, 0).AddDate(0, 0, 1)
	}
}

// Edition distinguishes the January and July revisions of a year's federal
// and provincial parameters. CPP and EI parameters carry year only.
type Edition string

const (
	EditionJan Edition = "jan"
	EditionJul Edition = "jul"
)

// EditionForDate returns the edition whose effective range contains the
// given pay date: jan for January through June, jul for July through December.
func EditionForDate(payDate time.Time) Edition {
	if payDate.Month() >= time.July {
		return EditionJul
	}
	return EditionJan
}

// EditionKey identifies one versioned parameter set.
type EditionKey struct {
	Year    int
	Edition Edition
}

func (k EditionKey) String() string {
	return fmt.Sprintf("%d/%s", k.Year, k.Edition)
}
