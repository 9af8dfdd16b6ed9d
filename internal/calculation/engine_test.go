package calculation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplepay/maplepay/internal/domain"
)

func baseInput() domain.CalculationInput {
	return domain.CalculationInput{
		EmployeeID:   uuid.New(),
		Jurisdiction: domain.Ontario,
		Frequency:    domain.BiWeekly,
		PayDate:      time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
		GrossRegular: dec("2307.69"),
	}
}

func TestEngineOntarioBiWeekly(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	ps, err := set.For(domain.Ontario)
	require.NoError(t, err)

	in := baseInput()
	in.RRSP = dec("100.00")

	result, err := NewEngine().Calculate(in, ps)
	require.NoError(t, err)

	for _, line := range []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"gross", result.TotalGross, "2307.69"},
		{"cpp", result.CPPBase, "129.30"},
		{"cpp2", result.CPPAdditional, "0"},
		{"ei", result.EI, "37.85"},
		{"federal", result.FederalTax, "204.54"},
		{"provincial", result.ProvincialTax, "107.59"},
		{"pre-tax", result.PreTax, "100.00"},
		{"deductions", result.TotalDeductions, "579.28"},
		{"net", result.NetPay, "1728.41"},
		{"employer cpp", result.EmployerCPP, "129.30"},
		{"employer ei", result.EmployerEI, "52.99"},
	} {
		assert.True(t, line.got.Equal(dec(line.want)), "%s: got %s, want %s", line.name, line.got, line.want)
	}

	assert.True(t, result.YTDAfter.Gross.Equal(dec("2307.69")))
	assert.True(t, result.YTDAfter.CPPBase.Equal(dec("129.30")))
	assert.True(t, result.YTDAfter.FederalTax.Equal(dec("204.54")))
	assert.True(t, result.YTDAfter.PensionableEarnings.Equal(dec("2307.69")))
}

func TestEngineAllJurisdictionsBalance(t *testing.T) {
	set := load2025(t, domain.EditionJan)

	for _, code := range domain.AllJurisdictions() {
		code := code
		t.Run(string(code), func(t *testing.T) {
			ps, err := set.For(code)
			require.NoError(t, err)

			in := baseInput()
			in.Jurisdiction = code

			result, err := NewEngine().Calculate(in, ps)
			require.NoError(t, err)

			assert.True(t, result.TotalGross.Sub(result.TotalDeductions).Equal(result.NetPay),
				"gross %s - deductions %s != net %s", result.TotalGross, result.TotalDeductions, result.NetPay)
			assert.True(t, result.NetPay.GreaterThan(dec("1600")), "net %s implausibly low", result.NetPay)
			assert.True(t, result.NetPay.LessThan(dec("1950")), "net %s implausibly high", result.NetPay)
			for _, d := range []decimal.Decimal{result.CPPBase, result.CPPAdditional, result.EI, result.FederalTax, result.ProvincialTax} {
				assert.False(t, d.IsNegative(), "%s produced a negative line", code)
			}
		})
	}
}

func TestEngineMaxedOutContributions(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	ps, err := set.For(domain.Ontario)
	require.NoError(t, err)

	in := baseInput()
	in.YTDBefore = domain.YTDAccumulator{
		Gross:               dec("95000.00"),
		CPPBase:             dec("4034.10"),
		CPPAdditional:       dec("396.00"),
		EI:                  dec("1077.48"),
		PensionableEarnings: dec("95000.00"),
		InsurableEarnings:   dec("95000.00"),
	}

	result, err := NewEngine().Calculate(in, ps)
	require.NoError(t, err)

	assert.True(t, result.CPPBase.IsZero(), "CPP past annual max, got %s", result.CPPBase)
	assert.True(t, result.CPPAdditional.IsZero(), "CPP2 past annual max, got %s", result.CPPAdditional)
	assert.True(t, result.EI.IsZero(), "EI past annual max, got %s", result.EI)
	assert.True(t, result.FederalTax.IsPositive(), "income tax continues after contributions max out")
}

// A full year at a salary above the YAMPE must land every statutory
// accumulator exactly on its documented annual maximum.
func TestEngineFullYearHitsAnnualMaximums(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	ps, err := set.For(domain.Ontario)
	require.NoError(t, err)

	engine := NewEngine()
	var ytd domain.YTDAccumulator
	payDate := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	for period := 1; period <= 26; period++ {
		in := baseInput()
		in.GrossRegular = dec("4000.00")
		in.PayDate = payDate
		in.YTDBefore = ytd

		result, err := engine.Calculate(in, ps)
		require.NoError(t, err, "period %d", period)

		next := result.YTDAfter
		assert.True(t, next.CPPBase.GreaterThanOrEqual(ytd.CPPBase), "CPP YTD must be monotonic")
		assert.True(t, next.EI.GreaterThanOrEqual(ytd.EI), "EI YTD must be monotonic")
		ytd = next
		payDate = payDate.AddDate(0, 0, 14)
	}

	assert.True(t, ytd.Gross.Equal(dec("104000.00")), "gross, got %s", ytd.Gross)
	assert.True(t, ytd.CPPBase.Equal(dec("4034.10")), "CPP annual max, got %s", ytd.CPPBase)
	assert.True(t, ytd.CPPAdditional.Equal(dec("396.00")), "CPP2 annual max, got %s", ytd.CPPAdditional)
	assert.True(t, ytd.EI.Equal(dec("1077.48")), "EI annual max, got %s", ytd.EI)
}

// Exempt employees pay no contributions and lose the matching K2 credit,
// so their income tax comes out higher than a contributing peer's.
func TestEngineExemptEmployee(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	ps, err := set.For(domain.Ontario)
	require.NoError(t, err)

	contributing, err := NewEngine().Calculate(baseInput(), ps)
	require.NoError(t, err)

	in := baseInput()
	in.CPPExempt = true
	in.EIExempt = true
	exempt, err := NewEngine().Calculate(in, ps)
	require.NoError(t, err)

	assert.True(t, exempt.CPPBase.IsZero())
	assert.True(t, exempt.CPPAdditional.IsZero())
	assert.True(t, exempt.EI.IsZero())
	assert.True(t, exempt.EmployerCPP.IsZero())
	assert.True(t, exempt.EmployerEI.IsZero())
	assert.True(t, exempt.FederalTax.GreaterThan(contributing.FederalTax),
		"exempt federal %s should exceed contributing %s", exempt.FederalTax, contributing.FederalTax)
	assert.True(t, exempt.TotalGross.Sub(exempt.TotalDeductions).Equal(exempt.NetPay))
}

func TestEngineRejectsInvalidInput(t *testing.T) {
	set := load2025(t, domain.EditionJan)
	ps, err := set.For(domain.Ontario)
	require.NoError(t, err)

	in := baseInput()
	in.GrossRegular = dec("-100.00")
	_, err = NewEngine().Calculate(in, ps)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = baseInput()
	in.Jurisdiction = "QC"
	_, err = NewEngine().Calculate(in, ps)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
