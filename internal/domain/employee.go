package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompensationBasis selects how an employee's period gross is derived.
type CompensationBasis string

const (
	AnnualSalary CompensationBasis = "annual_salary"
	HourlyRate   CompensationBasis = "hourly_rate"
)

// Employee is the payroll master record. The SIN never appears here; the
// boundary layer holds it opaquely and the core sees only the uuid.
type Employee struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Jurisdiction Jurisdiction
	Frequency    PayFrequency
	PayGroupID   uuid.UUID

	Basis                CompensationBasis
	AnnualSalaryAmount   decimal.Decimal
	HourlyRateAmount     decimal.Decimal
	StandardHoursPerWeek decimal.Decimal

	// TD1 claim amounts. Zero means "use the jurisdiction's BPA".
	FederalClaim    decimal.Decimal
	ProvincialClaim decimal.Decimal

	CPPExempt  bool
	EIExempt   bool
	CPP2Exempt bool

	HireDate        time.Time
	TerminationDate *time.Time
}

// FullName returns the display name captured into snapshots.
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Active reports whether the employee is employed on the given date.
func (e *Employee) Active(on time.Time) bool {
	if e.HireDate.After(on) {
		return false
	}
	return e.TerminationDate == nil || !e.TerminationDate.Before(on)
}

// PeriodGross computes the regular gross for one pay period from the
// compensation basis.
func (e *Employee) PeriodGross() (decimal.Decimal, error) {
	periods, err := e.Frequency.PeriodsPerYear()
	if err != nil {
		return decimal.Decimal{}, err
	}
	switch e.Basis {
	case AnnualSalary:
		return e.AnnualSalaryAmount.Div(decimal.NewFromInt(int64(periods))).Round(2), nil
	case HourlyRate:
		weeks := decimal.NewFromInt(52).Div(decimal.NewFromInt(int64(periods)))
		hours := e.StandardHoursPerWeek.Mul(weeks)
		return e.HourlyRateAmount.Mul(hours).Round(2), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%w: missing compensation basis", ErrValidation)
}

// Validate enforces the employee invariants at the mutation boundary.
func (e *Employee) Validate() error {
	if e.FirstName == "" && e.LastName == "" {
		return fmt.Errorf("%w: employee name is required", ErrValidation)
	}
	if !e.Jurisdiction.Valid() {
		return fmt.Errorf("%w: unknown jurisdiction %q", ErrValidation, string(e.Jurisdiction))
	}
	if !e.Frequency.Valid() {
		return fmt.Errorf("%w: unknown pay frequency %q", ErrValidation, string(e.Frequency))
	}
	switch e.Basis {
	case AnnualSalary:
		if e.AnnualSalaryAmount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: annual salary must be positive", ErrValidation)
		}
	case HourlyRate:
		if e.HourlyRateAmount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: hourly rate must be positive", ErrValidation)
		}
		if e.StandardHoursPerWeek.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: standard hours per week must be positive", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: missing compensation basis", ErrValidation)
	}
	if e.FederalClaim.IsNegative() || e.ProvincialClaim.IsNegative() {
		return fmt.Errorf("%w: claim amounts cannot be negative", ErrValidation)
	}
	if e.HireDate.IsZero() {
		return fmt.Errorf("%w: hire date is required", ErrValidation)
	}
	if e.TerminationDate != nil && e.TerminationDate.Before(e.HireDate) {
		return fmt.Errorf("%w: termination date cannot precede hire date", ErrValidation)
	}
	return nil
}

// PayGroup drives run eligibility: employees in a group whose next pay date
// equals the run's pay date receive a record.
type PayGroup struct {
	ID          uuid.UUID
	Name        string
	Frequency   PayFrequency
	NextPayDate time.Time
}

// EmployeeSnapshot is the denormalized copy of the employee written onto a
// payroll record at insertion time. It is a value, never a reference;
// later employee edits must not alter historical records.
type EmployeeSnapshot struct {
	EmployeeID   uuid.UUID         `json:"employee_id"`
	Name         string            `json:"name"`
	Jurisdiction Jurisdiction      `json:"jurisdiction"`
	Frequency    PayFrequency      `json:"frequency"`
	Basis        CompensationBasis `json:"basis"`
	PayGroupName string            `json:"pay_group_name"`
}
