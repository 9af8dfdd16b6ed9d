package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/maplepay/maplepay/internal/domain"
	"github.com/maplepay/maplepay/internal/params"
	"github.com/maplepay/maplepay/internal/payrun"
	"github.com/maplepay/maplepay/internal/store"
)

func openService() (*payrun.Service, *store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return payrun.NewService(st, params.NewStore(tablesDir), log), st, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage payroll runs",
}

var runCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create (or fetch) the run for a pay group's next pay date",
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, err := flagUUID(cmd, "group")
		if err != nil {
			return err
		}
		payDateStr, _ := cmd.Flags().GetString("pay-date")
		payDate, err := time.Parse("2006-01-02", payDateStr)
		if err != nil {
			return fmt.Errorf("--pay-date must be YYYY-MM-DD: %w", err)
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		run, err := svc.CreateOrGetRun(groupID, payDate)
		if err != nil {
			return err
		}
		printRun(cmd, run)
		return nil
	},
}

var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payroll runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openService()
		if err != nil {
			return err
		}
		var filter *domain.RunStatus
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status := domain.RunStatus(s)
			filter = &status
		}
		runs, err := st.ListRuns(filter)
		if err != nil {
			return err
		}
		for i := range runs {
			r := &runs[i]
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-17s net %12s\n",
				r.ID, r.PayDate.Format("2006-01-02"), r.Status, r.TotalNetPay.StringFixed(2))
		}
		return nil
	},
}

var runShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		run, records, err := svc.GetRun(id)
		if err != nil {
			return err
		}
		printRun(cmd, run)
		for i := range records {
			rec := &records[i]
			line := fmt.Sprintf("  %-28s gross %10s", rec.Snapshot.Name, rec.Input.TotalGross().StringFixed(2))
			switch {
			case !rec.IsValid:
				line += "  INVALID: " + rec.CalcError
			case rec.IsModified || rec.Result == nil:
				line += "  (needs recalculation)"
			default:
				line += fmt.Sprintf("  net %10s", rec.Result.NetPay.StringFixed(2))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var runSyncCmd = &cobra.Command{
	Use:   "sync [run-id]",
	Short: "Add newly-eligible employees to a draft run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		added, err := svc.SyncEmployees(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d employee(s) added\n", added)
		return nil
	},
}

var runAddEmployeeCmd = &cobra.Command{
	Use:   "add-employee [run-id]",
	Short: "Add one employee's record to a draft run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		empID, err := flagUUID(cmd, "employee")
		if err != nil {
			return err
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		return svc.AddEmployee(id, empID)
	},
}

var runRemoveEmployeeCmd = &cobra.Command{
	Use:   "remove-employee [run-id]",
	Short: "Remove one employee's record from a draft run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		empID, err := flagUUID(cmd, "employee")
		if err != nil {
			return err
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		return svc.RemoveEmployee(id, empID)
	},
}

var runRecalcCmd = &cobra.Command{
	Use:   "recalc [run-id]",
	Short: "Recalculate every record on a draft run",
	Args:  cobra.ExactArgs(1),
	RunE:  runAction(func(svc *payrun.Service, id uuid.UUID, _ *cobra.Command) (*domain.PayrollRun, error) { return svc.Recalculate(id) }),
}

var runFinalizeCmd = &cobra.Command{
	Use:   "finalize [run-id]",
	Short: "Submit a draft run for approval",
	Args:  cobra.ExactArgs(1),
	RunE:  runAction(func(svc *payrun.Service, id uuid.UUID, _ *cobra.Command) (*domain.PayrollRun, error) { return svc.Finalize(id) }),
}

var runApproveCmd = &cobra.Command{
	Use:   "approve [run-id]",
	Short: "Approve a pending run",
	Args:  cobra.ExactArgs(1),
	RunE: runAction(func(svc *payrun.Service, id uuid.UUID, cmd *cobra.Command) (*domain.PayrollRun, error) {
		by, _ := cmd.Flags().GetString("by")
		return svc.Approve(id, by)
	}),
}

var runPayCmd = &cobra.Command{
	Use:   "pay [run-id]",
	Short: "Mark an approved run as paid",
	Args:  cobra.ExactArgs(1),
	RunE:  runAction(func(svc *payrun.Service, id uuid.UUID, _ *cobra.Command) (*domain.PayrollRun, error) { return svc.MarkPaid(id) }),
}

var runCancelCmd = &cobra.Command{
	Use:   "cancel [run-id]",
	Short: "Cancel a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runAction(func(svc *payrun.Service, id uuid.UUID, _ *cobra.Command) (*domain.PayrollRun, error) { return svc.Cancel(id) }),
}

var runDeleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a draft run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		return svc.Delete(id)
	},
}

func runAction(fn func(*payrun.Service, uuid.UUID, *cobra.Command) (*domain.PayrollRun, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		svc, _, err := openService()
		if err != nil {
			return err
		}
		run, err := fn(svc, id, cmd)
		if err != nil {
			return err
		}
		printRun(cmd, run)
		return nil
	}
}

func printRun(cmd *cobra.Command, r *domain.PayrollRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", r.ID)
	fmt.Fprintf(out, "  Pay date   %s (period %s to %s, tax year %d)\n",
		r.PayDate.Format("2006-01-02"),
		r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"), r.TaxYear)
	fmt.Fprintf(out, "  Status     %s\n", r.Status)
	fmt.Fprintf(out, "  Gross      %12s\n", r.TotalGross.StringFixed(2))
	fmt.Fprintf(out, "  Deductions %12s\n", r.TotalDeductions.StringFixed(2))
	fmt.Fprintf(out, "  Net pay    %12s\n", r.TotalNetPay.StringFixed(2))
	fmt.Fprintf(out, "  Employer   %12s\n", r.TotalEmployerCost.StringFixed(2))
	if r.ApprovedBy != nil && r.ApprovedAt != nil {
		fmt.Fprintf(out, "  Approved   by %s at %s\n", *r.ApprovedBy, r.ApprovedAt.Format(time.RFC3339))
	}
}

func flagUUID(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s must be a uuid: %w", name, err)
	}
	return id, nil
}

func init() {
	runCreateCmd.Flags().String("group", "", "pay group id")
	runCreateCmd.Flags().String("pay-date", "", "pay date (YYYY-MM-DD)")
	_ = runCreateCmd.MarkFlagRequired("group")
	_ = runCreateCmd.MarkFlagRequired("pay-date")
	runListCmd.Flags().String("status", "", "filter by status")
	runAddEmployeeCmd.Flags().String("employee", "", "employee id")
	_ = runAddEmployeeCmd.MarkFlagRequired("employee")
	runRemoveEmployeeCmd.Flags().String("employee", "", "employee id")
	_ = runRemoveEmployeeCmd.MarkFlagRequired("employee")
	runApproveCmd.Flags().String("by", "", "approver name")
	_ = runApproveCmd.MarkFlagRequired("by")

	runCmd.AddCommand(runCreateCmd, runListCmd, runShowCmd, runSyncCmd,
		runAddEmployeeCmd, runRemoveEmployeeCmd, runRecalcCmd,
		runFinalizeCmd, runApproveCmd, runPayCmd, runCancelCmd, runDeleteCmd)
}
