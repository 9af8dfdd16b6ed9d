package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maplepay/maplepay/internal/calculation"
	"github.com/maplepay/maplepay/internal/domain"
	"github.com/maplepay/maplepay/internal/params"
)

// calcFile is the YAML shape for a one-off calculation, independent of the
// payroll database. Amounts are decimal strings; ytd_before may be omitted
// for a first period.
type calcFile struct {
	Jurisdiction string `yaml:"jurisdiction"`
	Frequency    string `yaml:"frequency"`
	PayDate      string `yaml:"pay_date"`

	GrossRegular    decimal.Decimal `yaml:"gross_regular"`
	GrossOvertime   decimal.Decimal `yaml:"gross_overtime"`
	TaxableBenefits decimal.Decimal `yaml:"taxable_benefits"`
	VacationPay     decimal.Decimal `yaml:"vacation_pay"`

	RRSP         decimal.Decimal `yaml:"rrsp"`
	UnionDues    decimal.Decimal `yaml:"union_dues"`
	OtherPreTax  decimal.Decimal `yaml:"other_pre_tax"`
	Garnishments decimal.Decimal `yaml:"garnishments"`

	FederalClaim    decimal.Decimal `yaml:"federal_claim"`
	ProvincialClaim decimal.Decimal `yaml:"provincial_claim"`

	CPPExempt  bool `yaml:"cpp_exempt"`
	EIExempt   bool `yaml:"ei_exempt"`
	CPP2Exempt bool `yaml:"cpp2_exempt"`

	YTDBefore struct {
		Gross         decimal.Decimal `yaml:"gross"`
		CPPBase       decimal.Decimal `yaml:"cpp_base"`
		CPPAdditional decimal.Decimal `yaml:"cpp_additional"`
		EI            decimal.Decimal `yaml:"ei"`
		FederalTax    decimal.Decimal `yaml:"federal_tax"`
		ProvincialTax decimal.Decimal `yaml:"provincial_tax"`
	} `yaml:"ytd_before"`
}

var calcCmd = &cobra.Command{
	Use:   "calc [input-file]",
	Short: "Price one pay period from a YAML input file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var f calcFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		payDate, err := time.Parse("2006-01-02", f.PayDate)
		if err != nil {
			return fmt.Errorf("pay_date must be YYYY-MM-DD: %w", err)
		}

		in := domain.CalculationInput{
			EmployeeID:      uuid.New(),
			Jurisdiction:    domain.Jurisdiction(f.Jurisdiction),
			Frequency:       domain.PayFrequency(f.Frequency),
			PayDate:         payDate,
			GrossRegular:    f.GrossRegular,
			GrossOvertime:   f.GrossOvertime,
			TaxableBenefits: f.TaxableBenefits,
			VacationPay:     f.VacationPay,
			RRSP:            f.RRSP,
			UnionDues:       f.UnionDues,
			OtherPreTax:     f.OtherPreTax,
			Garnishments:    f.Garnishments,
			FederalClaim:    f.FederalClaim,
			ProvincialClaim: f.ProvincialClaim,
			CPPExempt:       f.CPPExempt,
			EIExempt:        f.EIExempt,
			CPP2Exempt:      f.CPP2Exempt,
			YTDBefore: domain.YTDAccumulator{
				Gross:         f.YTDBefore.Gross,
				CPPBase:       f.YTDBefore.CPPBase,
				CPPAdditional: f.YTDBefore.CPPAdditional,
				EI:            f.YTDBefore.EI,
				FederalTax:    f.YTDBefore.FederalTax,
				ProvincialTax: f.YTDBefore.ProvincialTax,
				// One-off inputs track a single earnings base.
				PensionableEarnings: f.YTDBefore.Gross,
				InsurableEarnings:   f.YTDBefore.Gross,
			},
		}

		store := params.NewStore(tablesDir)
		set, err := store.Load(payDate.Year(), domain.EditionForDate(payDate))
		if err != nil {
			return err
		}
		ps, err := set.For(in.Jurisdiction)
		if err != nil {
			return err
		}

		result, err := calculation.NewEngine().Calculate(in, ps)
		if err != nil {
			return err
		}
		printResult(cmd, in, result)
		return nil
	},
}

func printResult(cmd *cobra.Command, in domain.CalculationInput, r domain.CalculationResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pay date %s  (%s, %s, tables %d/%s)\n",
		in.PayDate.Format("2006-01-02"), in.Jurisdiction, in.Frequency,
		in.PayDate.Year(), domain.EditionForDate(in.PayDate))
	fmt.Fprintf(out, "  Gross pay            %12s\n", r.TotalGross.StringFixed(2))
	fmt.Fprintf(out, "  CPP                  %12s\n", r.CPPBase.StringFixed(2))
	fmt.Fprintf(out, "  CPP2                 %12s\n", r.CPPAdditional.StringFixed(2))
	fmt.Fprintf(out, "  EI                   %12s\n", r.EI.StringFixed(2))
	fmt.Fprintf(out, "  Federal tax          %12s\n", r.FederalTax.StringFixed(2))
	fmt.Fprintf(out, "  Provincial tax       %12s\n", r.ProvincialTax.StringFixed(2))
	fmt.Fprintf(out, "  Pre-tax deductions   %12s\n", r.PreTax.StringFixed(2))
	fmt.Fprintf(out, "  Post-tax deductions  %12s\n", r.PostTax.StringFixed(2))
	fmt.Fprintf(out, "  Net pay              %12s\n", r.NetPay.StringFixed(2))
	fmt.Fprintf(out, "  Employer CPP         %12s\n", r.EmployerCPP.StringFixed(2))
	fmt.Fprintf(out, "  Employer EI          %12s\n", r.EmployerEI.StringFixed(2))
}
