package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/maplepay/maplepay/internal/domain"
)

var employeeCmd = &cobra.Command{
	Use:   "employee",
	Short: "Manage employees",
}

var employeeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an employee",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openService()
		if err != nil {
			return err
		}
		first, _ := cmd.Flags().GetString("first")
		last, _ := cmd.Flags().GetString("last")
		province, _ := cmd.Flags().GetString("province")
		frequency, _ := cmd.Flags().GetString("frequency")
		salaryStr, _ := cmd.Flags().GetString("salary")
		rateStr, _ := cmd.Flags().GetString("hourly-rate")
		hoursStr, _ := cmd.Flags().GetString("hours-per-week")
		hireStr, _ := cmd.Flags().GetString("hire-date")

		e := domain.Employee{
			FirstName:    first,
			LastName:     last,
			Jurisdiction: domain.Jurisdiction(province),
			Frequency:    domain.PayFrequency(frequency),
		}
		if hireStr != "" {
			if e.HireDate, err = time.Parse("2006-01-02", hireStr); err != nil {
				return fmt.Errorf("--hire-date must be YYYY-MM-DD: %w", err)
			}
		} else {
			e.HireDate = time.Now()
		}
		switch {
		case salaryStr != "":
			e.Basis = domain.AnnualSalary
			if e.AnnualSalaryAmount, err = decimal.NewFromString(salaryStr); err != nil {
				return fmt.Errorf("--salary: %w", err)
			}
		case rateStr != "":
			e.Basis = domain.HourlyRate
			if e.HourlyRateAmount, err = decimal.NewFromString(rateStr); err != nil {
				return fmt.Errorf("--hourly-rate: %w", err)
			}
			if hoursStr == "" {
				return fmt.Errorf("--hours-per-week is required with --hourly-rate")
			}
			if e.StandardHoursPerWeek, err = decimal.NewFromString(hoursStr); err != nil {
				return fmt.Errorf("--hours-per-week: %w", err)
			}
		default:
			return fmt.Errorf("one of --salary or --hourly-rate is required")
		}
		if groupStr, _ := cmd.Flags().GetString("group"); groupStr != "" {
			if e.PayGroupID, err = flagUUID(cmd, "group"); err != nil {
				return err
			}
		}
		if err := st.CreateEmployee(&e); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "employee %s created (%s)\n", e.ID, e.FullName())
		return nil
	},
}

var employeeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openService()
		if err != nil {
			return err
		}
		employees, err := st.ListEmployees()
		if err != nil {
			return err
		}
		for i := range employees {
			e := &employees[i]
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-28s %s  %s\n",
				e.ID, e.FullName(), e.Jurisdiction, e.Frequency)
		}
		return nil
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage pay groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a pay group",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openService()
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		frequency, _ := cmd.Flags().GetString("frequency")
		nextStr, _ := cmd.Flags().GetString("next-pay-date")
		next, err := time.Parse("2006-01-02", nextStr)
		if err != nil {
			return fmt.Errorf("--next-pay-date must be YYYY-MM-DD: %w", err)
		}
		g := domain.PayGroup{
			Name:        name,
			Frequency:   domain.PayFrequency(frequency),
			NextPayDate: next,
		}
		if !g.Frequency.Valid() {
			return fmt.Errorf("unknown frequency %q", frequency)
		}
		if err := st.CreatePayGroup(&g); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pay group %s created (%s)\n", g.ID, g.Name)
		return nil
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pay groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openService()
		if err != nil {
			return err
		}
		groups, err := st.ListPayGroups()
		if err != nil {
			return err
		}
		for i := range groups {
			g := &groups[i]
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-12s next %s\n",
				g.ID, g.Name, g.Frequency, g.NextPayDate.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	employeeAddCmd.Flags().String("first", "", "first name")
	employeeAddCmd.Flags().String("last", "", "last name")
	employeeAddCmd.Flags().String("province", "", "jurisdiction code (e.g. ON)")
	employeeAddCmd.Flags().String("frequency", string(domain.BiWeekly), "pay frequency")
	employeeAddCmd.Flags().String("salary", "", "annual salary")
	employeeAddCmd.Flags().String("hourly-rate", "", "hourly rate")
	employeeAddCmd.Flags().String("hours-per-week", "", "standard hours per week")
	employeeAddCmd.Flags().String("hire-date", "", "hire date (YYYY-MM-DD)")
	employeeAddCmd.Flags().String("group", "", "pay group id")
	employeeCmd.AddCommand(employeeAddCmd, employeeListCmd)

	groupAddCmd.Flags().String("name", "", "group name")
	groupAddCmd.Flags().String("frequency", string(domain.BiWeekly), "pay frequency")
	groupAddCmd.Flags().String("next-pay-date", "", "next pay date (YYYY-MM-DD)")
	_ = groupAddCmd.MarkFlagRequired("name")
	_ = groupAddCmd.MarkFlagRequired("next-pay-date")
	groupCmd.AddCommand(groupAddCmd, groupListCmd)
}
