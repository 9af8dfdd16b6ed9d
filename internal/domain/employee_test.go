package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validEmployee() Employee {
	return Employee{
		FirstName:          "Avery",
		LastName:           "Tremblay",
		Jurisdiction:       Ontario,
		Frequency:          BiWeekly,
		Basis:              AnnualSalary,
		AnnualSalaryAmount: d("60000.00"),
		HireDate:           time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPeriodGross(t *testing.T) {
	e := validEmployee()
	gross, err := e.PeriodGross()
	assert.NoError(t, err)
	assert.True(t, gross.Equal(d("2307.69")), "60000 / 26, got %s", gross)

	e.Basis = HourlyRate
	e.HourlyRateAmount = d("25.00")
	e.StandardHoursPerWeek = d("40")
	e.Frequency = Weekly
	gross, err = e.PeriodGross()
	assert.NoError(t, err)
	assert.True(t, gross.Equal(d("1000.00")), "25/hr x 40h, got %s", gross)

	e.Frequency = BiWeekly
	gross, err = e.PeriodGross()
	assert.NoError(t, err)
	assert.True(t, gross.Equal(d("2000.00")), "two weeks of hours, got %s", gross)
}

func TestEmployeeValidate(t *testing.T) {
	e := validEmployee()
	assert.NoError(t, e.Validate())

	bad := validEmployee()
	bad.Jurisdiction = "QC"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = validEmployee()
	bad.AnnualSalaryAmount = d("0")
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = validEmployee()
	bad.Basis = HourlyRate
	bad.HourlyRateAmount = d("25.00")
	assert.ErrorIs(t, bad.Validate(), ErrValidation, "hourly without standard hours")

	bad = validEmployee()
	bad.FederalClaim = d("-1")
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = validEmployee()
	term := bad.HireDate.AddDate(0, 0, -1)
	bad.TerminationDate = &term
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestEmployeeActive(t *testing.T) {
	e := validEmployee()
	on := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	assert.True(t, e.Active(on))
	assert.False(t, e.Active(e.HireDate.AddDate(0, 0, -1)), "not active before hire")

	term := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	e.TerminationDate = &term
	assert.False(t, e.Active(on), "not active after termination")
	assert.True(t, e.Active(term), "active on the termination date itself")
}
