package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maplepay/maplepay/internal/domain"
	"github.com/maplepay/maplepay/internal/params"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect and validate tax tables",
}

var paramsValidateCmd = &cobra.Command{
	Use:   "validate [year]",
	Short: "Load and validate both editions of a year's tax tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year must be numeric: %w", err)
		}
		store := params.NewStore(tablesDir)
		for _, ed := range []domain.Edition{domain.EditionJan, domain.EditionJul} {
			set, err := store.Load(year, ed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%s: ok (%d jurisdictions, YMPE %s, MIE %s)\n",
				year, ed, len(set.Jurisdictions),
				set.CPP.YMPE.StringFixed(2), set.EI.MIE.StringFixed(2))
		}
		return nil
	},
}

var paramsShowCmd = &cobra.Command{
	Use:   "show [year] [jurisdiction]",
	Short: "Print one jurisdiction's parameters",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year must be numeric: %w", err)
		}
		edition, _ := cmd.Flags().GetString("edition")
		store := params.NewStore(tablesDir)
		j, err := store.GetJurisdiction(year, domain.Edition(edition), domain.Jurisdiction(args[1]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %d/%s\n", j.Code, year, edition)
		fmt.Fprintf(out, "  BPA %s, credit rate %s\n", j.BasicPersonalAmount.StringFixed(2), j.CreditRate.String())
		for _, b := range j.Brackets {
			fmt.Fprintf(out, "  over %12s  R=%s  K=%s\n",
				b.Threshold.StringFixed(2), b.Rate.String(), b.Constant.StringFixed(2))
		}
		return nil
	},
}

func init() {
	paramsShowCmd.Flags().String("edition", string(domain.EditionJan), "tax table edition (jan or jul)")
	paramsCmd.AddCommand(paramsValidateCmd)
	paramsCmd.AddCommand(paramsShowCmd)
}
