package payrun

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplepay/maplepay/internal/domain"
	"github.com/maplepay/maplepay/internal/params"
	"github.com/maplepay/maplepay/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc   *Service
	store *store.Store
	group *domain.PayGroup
	emp   *domain.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "payroll.db"))
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	svc := NewService(st, params.NewStore("../../config/tax_tables"), log)

	group := &domain.PayGroup{
		Name:        "salaried",
		Frequency:   domain.BiWeekly,
		NextPayDate: time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreatePayGroup(group))

	emp := &domain.Employee{
		FirstName:          "Avery",
		LastName:           "Tremblay",
		Jurisdiction:       domain.Ontario,
		Frequency:          domain.BiWeekly,
		PayGroupID:         group.ID,
		Basis:              domain.AnnualSalary,
		AnnualSalaryAmount: d("60000.00"),
		HireDate:           time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateEmployee(emp))

	return &fixture{svc: svc, store: st, group: group, emp: emp}
}

func TestRunLifecycleHappyPath(t *testing.T) {
	f := newFixture(t)
	payDate := f.group.NextPayDate

	run, err := f.svc.CreateOrGetRun(f.group.ID, payDate)
	require.NoError(t, err)
	assert.Equal(t, domain.RunDraft, run.Status)
	assert.Equal(t, 2025, run.TaxYear)

	// Creating again for the same pay date returns the same run.
	again, err := f.svc.CreateOrGetRun(f.group.ID, payDate)
	require.NoError(t, err)
	assert.Equal(t, run.ID, again.ID)

	records, err := f.store.ListRecords(run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Input.GrossRegular.Equal(d("2307.69")), "period gross from the salary")

	run, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunDraft, run.Status)
	assert.True(t, run.TotalGross.Equal(d("2307.69")), "got %s", run.TotalGross)
	assert.True(t, run.TotalNetPay.IsPositive())
	assert.True(t, run.TotalGross.Sub(run.TotalDeductions).Equal(run.TotalNetPay))

	run, err = f.svc.Finalize(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunPendingApproval, run.Status)

	run, err = f.svc.Approve(run.ID, "pat")
	require.NoError(t, err)
	assert.Equal(t, domain.RunApproved, run.Status)
	require.NotNil(t, run.ApprovedBy)
	assert.Equal(t, "pat", *run.ApprovedBy)
	assert.NotNil(t, run.ApprovedAt)

	// Approval rolls the pay group schedule forward.
	group, err := f.store.GetPayGroup(f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, payDate.AddDate(0, 0, 14), group.NextPayDate)

	run, err = f.svc.MarkPaid(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunPaid, run.Status)
}

func TestApproveIsIdempotentAndGuarded(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)

	// Draft runs cannot be approved.
	_, err = f.svc.Approve(run.ID, "pat")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	_, err = f.svc.Finalize(run.ID)
	require.NoError(t, err)

	first, err := f.svc.Approve(run.ID, "pat")
	require.NoError(t, err)

	// A second approval changes nothing: same approver, same timestamp.
	second, err := f.svc.Approve(run.ID, "sam")
	require.NoError(t, err)
	assert.Equal(t, "pat", *second.ApprovedBy)
	assert.True(t, first.ApprovedAt.Equal(*second.ApprovedAt))
}

func TestFinalizeRequiresCurrentResults(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)

	// Never calculated: nothing to approve yet.
	_, err = f.svc.Finalize(run.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)

	// A patched input invalidates the result until the next recalculation.
	overtime := d("250.00")
	require.NoError(t, f.svc.UpdateRecord(run.ID, f.emp.ID, RecordPatch{GrossOvertime: &overtime}))
	_, err = f.svc.Finalize(run.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	run, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	assert.True(t, run.TotalGross.Equal(d("2557.69")), "overtime included, got %s", run.TotalGross)

	_, err = f.svc.Finalize(run.ID)
	require.NoError(t, err)
}

// Recalculating an unchanged run against unchanged tables must reproduce
// the results exactly.
func TestRecalculateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)

	first, err := f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	firstRecords, err := f.store.ListRecords(run.ID)
	require.NoError(t, err)

	second, err := f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	secondRecords, err := f.store.ListRecords(run.ID)
	require.NoError(t, err)

	assert.True(t, first.TotalNetPay.Equal(second.TotalNetPay))
	assert.True(t, first.TotalDeductions.Equal(second.TotalDeductions))
	require.Len(t, secondRecords, len(firstRecords))
	for i := range firstRecords {
		require.NotNil(t, firstRecords[i].Result)
		require.NotNil(t, secondRecords[i].Result)
		assert.True(t, firstRecords[i].Result.NetPay.Equal(secondRecords[i].Result.NetPay))
		assert.True(t, firstRecords[i].Result.FederalTax.Equal(secondRecords[i].Result.FederalTax))
	}
}

func TestSyncEmployeesAddsButNeverRemoves(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)

	// A late hire joins the group after the run was created.
	late := &domain.Employee{
		FirstName:          "Jordan",
		LastName:           "Roy",
		Jurisdiction:       domain.BritishColumbia,
		Frequency:          domain.BiWeekly,
		PayGroupID:         f.group.ID,
		Basis:              domain.AnnualSalary,
		AnnualSalaryAmount: d("52000.00"),
		HireDate:           time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.CreateEmployee(late))

	added, err := f.svc.SyncEmployees(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// Re-running is a no-op, and nobody is ever removed.
	added, err = f.svc.SyncEmployees(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	records, err := f.store.ListRecords(run.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestUpdateRecordValidatesInput(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)

	negative := d("-50.00")
	err = f.svc.UpdateRecord(run.ID, f.emp.ID, RecordPatch{RRSP: &negative})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// Approved results feed the next run's opening year-to-date, so CPP and EI
// keep accumulating toward their annual maximums across runs.
func TestPriorYTDFlowsIntoNextRun(t *testing.T) {
	f := newFixture(t)
	jan17 := f.group.NextPayDate

	run, err := f.svc.CreateOrGetRun(f.group.ID, jan17)
	require.NoError(t, err)
	_, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	_, err = f.svc.Finalize(run.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(run.ID, "pat")
	require.NoError(t, err)

	records, err := f.store.ListRecords(run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	firstCPP := records[0].Result.CPPBase

	jan31 := jan17.AddDate(0, 0, 14)
	next, err := f.svc.CreateOrGetRun(f.group.ID, jan31)
	require.NoError(t, err)
	require.NotEqual(t, run.ID, next.ID)

	nextRecords, err := f.store.ListRecords(next.ID)
	require.NoError(t, err)
	require.Len(t, nextRecords, 1)
	assert.True(t, nextRecords[0].Input.YTDBefore.CPPBase.Equal(firstCPP),
		"opening YTD carries the approved contribution, got %s", nextRecords[0].Input.YTDBefore.CPPBase)
	assert.True(t, nextRecords[0].Input.YTDBefore.Gross.Equal(d("2307.69")))
}

func TestDraftOnlyMutations(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)
	_, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	_, err = f.svc.Finalize(run.ID)
	require.NoError(t, err)

	gross := d("5000.00")
	err = f.svc.UpdateRecord(run.ID, f.emp.ID, RecordPatch{GrossRegular: &gross})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "pending runs are read-only")

	err = f.svc.RemoveEmployee(run.ID, f.emp.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Recalculate(run.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	err = f.svc.Delete(run.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "only drafts can be deleted")

	run, err = f.svc.Cancel(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCancelled, run.Status)
}

func TestDeleteDraftRun(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.CreateOrGetRun(f.group.ID, f.group.NextPayDate)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(run.ID))
	_, _, err = f.svc.GetRun(run.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledRunStopsContributingToYTD(t *testing.T) {
	f := newFixture(t)
	jan17 := f.group.NextPayDate

	run, err := f.svc.CreateOrGetRun(f.group.ID, jan17)
	require.NoError(t, err)
	_, err = f.svc.Recalculate(run.ID)
	require.NoError(t, err)
	_, err = f.svc.Finalize(run.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(run.ID, "pat")
	require.NoError(t, err)
	_, err = f.svc.Cancel(run.ID)
	require.NoError(t, err)

	ytd, err := f.store.GetPriorYTD(f.emp.ID, 2025, jan17.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.True(t, ytd.Gross.IsZero(), "cancelled runs must not contribute, got %s", ytd.Gross)
}
