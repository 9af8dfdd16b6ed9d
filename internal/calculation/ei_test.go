package calculation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maplepay/maplepay/internal/domain"
)

func ei2025() domain.EIParams {
	return domain.EIParams{
		Year:               2025,
		MIE:                dec("65700.00"),
		EmployeeRate:       dec("0.0164"),
		EmployerMultiplier: dec("1.4"),
	}
}

func TestEIPremium(t *testing.T) {
	calc := EICalculator{Params: ei2025()}

	assert.True(t, calc.Params.MaxPremium().Equal(dec("1077.48")), "2025 annual maximum")

	tests := []struct {
		name      string
		insurable string
		ytdEI     string
		exempt    bool
		want      string
	}{
		{"bi-weekly salary", "2307.69", "0", false, "37.85"},
		{"headroom caps the premium", "2307.69", "1070.00", false, "7.48"},
		{"annual max already reached", "2307.69", "1077.48", false, "0"},
		{"exempt employee", "2307.69", "0", true, "0"},
		{"zero insurable earnings", "0", "0", false, "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Premium(dec(tc.insurable), dec(tc.ytdEI), tc.exempt)
			assert.True(t, got.Equal(dec(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestEIEmployerPremium(t *testing.T) {
	calc := EICalculator{Params: ei2025()}

	got := calc.EmployerPremium(dec("37.85"))
	assert.True(t, got.Equal(dec("52.99")), "1.4x the employee premium, got %s", got)

	assert.True(t, calc.EmployerPremium(dec("0")).IsZero(),
		"employer premium follows the employee premium to zero")
}
