// Package payrun drives the payroll run state machine: draft runs are
// seeded from pay-group membership, recalculated through the engine, and
// moved through pending approval to approved and paid. All persistence
// goes through the store; all pricing goes through the engine.
package payrun

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/maplepay/maplepay/internal/calculation"
	"github.com/maplepay/maplepay/internal/domain"
	"github.com/maplepay/maplepay/internal/params"
	"github.com/maplepay/maplepay/internal/store"
)

// Service is the run lifecycle coordinator. Each run's mutations are
// serialized by a per-run mutex within this process; the store's version
// column guards against writers in other processes.
type Service struct {
	store  *store.Store
	params *params.Store
	engine *calculation.Engine
	log    *logrus.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService wires the lifecycle service.
func NewService(st *store.Store, ps *params.Store, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		store:  st,
		params: ps,
		engine: calculation.NewEngine(),
		log:    log,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) runLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateOrGetRun returns the existing non-cancelled run for the pay date,
// or creates a draft run seeded with a record for every active member of
// the pay group. Each seeded record captures the employee snapshot and the
// prior approved year-to-date totals at insertion time.
func (s *Service) CreateOrGetRun(groupID uuid.UUID, payDate time.Time) (*domain.PayrollRun, error) {
	if existing, err := s.store.FindRunByPayDate(payDate); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	group, err := s.store.GetPayGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.NextPayDate.Equal(payDate) {
		return nil, fmt.Errorf("%w: pay group %q next pay date is %s, not %s",
			domain.ErrValidation, group.Name,
			group.NextPayDate.Format("2006-01-02"), payDate.Format("2006-01-02"))
	}

	run := &domain.PayrollRun{
		ID:          uuid.New(),
		PeriodStart: group.Frequency.PeriodStart(payDate),
		PeriodEnd:   payDate,
		PayDate:     payDate,
		TaxYear:     payDate.Year(),
		Status:      domain.RunDraft,
	}
	if err := s.store.CreateRun(run); err != nil {
		return nil, err
	}

	employees, err := s.store.EligibleEmployees(groupID, payDate)
	if err != nil {
		return nil, err
	}
	for i := range employees {
		if err := s.seedRecord(run, &employees[i], group.Name); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"run_id":    run.ID,
		"pay_date":  payDate.Format("2006-01-02"),
		"pay_group": group.Name,
		"employees": len(employees),
	}).Info("payroll run created")
	return run, nil
}

func (s *Service) seedRecord(run *domain.PayrollRun, e *domain.Employee, groupName string) error {
	gross, err := e.PeriodGross()
	if err != nil {
		return fmt.Errorf("employee %s: %w", e.ID, err)
	}
	ytd, err := s.store.GetPriorYTD(e.ID, run.TaxYear, run.PayDate)
	if err != nil {
		return err
	}
	rec := &domain.PayrollRecord{
		ID:         uuid.New(),
		RunID:      run.ID,
		EmployeeID: e.ID,
		Input: domain.CalculationInput{
			EmployeeID:      e.ID,
			Jurisdiction:    e.Jurisdiction,
			Frequency:       e.Frequency,
			PayDate:         run.PayDate,
			GrossRegular:    gross,
			FederalClaim:    e.FederalClaim,
			ProvincialClaim: e.ProvincialClaim,
			CPPExempt:       e.CPPExempt,
			EIExempt:        e.EIExempt,
			CPP2Exempt:      e.CPP2Exempt,
			YTDBefore:       ytd,
		},
		Snapshot: domain.EmployeeSnapshot{
			EmployeeID:   e.ID,
			Name:         e.FullName(),
			Jurisdiction: e.Jurisdiction,
			Frequency:    e.Frequency,
			Basis:        e.Basis,
			PayGroupName: groupName,
		},
		IsValid: true,
	}
	return s.store.CreateRecord(rec)
}

// SyncEmployees adds records for employees who became eligible after the
// run was created: members of any pay group scheduled for the run's pay
// date who are not yet on the run. It never removes records. Returns the
// number of records added.
func (s *Service) SyncEmployees(runID uuid.UUID) (int, error) {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.requireStatus(runID, domain.RunDraft)
	if err != nil {
		return 0, err
	}
	existing, err := s.store.ListRecords(runID)
	if err != nil {
		return 0, err
	}
	onRun := make(map[uuid.UUID]bool, len(existing))
	for i := range existing {
		onRun[existing[i].EmployeeID] = true
	}

	groups, err := s.store.ListPayGroups()
	if err != nil {
		return 0, err
	}
	added := 0
	for i := range groups {
		g := &groups[i]
		if !g.NextPayDate.Equal(run.PayDate) {
			continue
		}
		employees, err := s.store.EligibleEmployees(g.ID, run.PayDate)
		if err != nil {
			return 0, err
		}
		for j := range employees {
			if onRun[employees[j].ID] {
				continue
			}
			if err := s.seedRecord(run, &employees[j], g.Name); err != nil {
				return added, err
			}
			onRun[employees[j].ID] = true
			added++
		}
	}
	if added > 0 {
		s.log.WithFields(logrus.Fields{"run_id": runID, "added": added}).Info("payroll run synced")
	}
	return added, nil
}

// AddEmployee inserts a record for one employee onto a draft run.
func (s *Service) AddEmployee(runID, employeeID uuid.UUID) error {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.requireStatus(runID, domain.RunDraft)
	if err != nil {
		return err
	}
	e, err := s.store.GetEmployee(employeeID)
	if err != nil {
		return err
	}
	if !e.Active(run.PayDate) {
		return fmt.Errorf("%w: employee %s is not active on %s",
			domain.ErrValidation, employeeID, run.PayDate.Format("2006-01-02"))
	}
	groupName := ""
	if e.PayGroupID != uuid.Nil {
		if g, err := s.store.GetPayGroup(e.PayGroupID); err == nil {
			groupName = g.Name
		}
	}
	return s.seedRecord(run, e, groupName)
}

// RemoveEmployee drops one employee's record from a draft run.
func (s *Service) RemoveEmployee(runID, employeeID uuid.UUID) error {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.requireStatus(runID, domain.RunDraft); err != nil {
		return err
	}
	return s.store.DeleteRecord(runID, employeeID)
}

// RecordPatch carries the per-record input overrides an operator can make
// on a draft run. Nil fields are left untouched.
type RecordPatch struct {
	GrossRegular    *decimal.Decimal
	GrossOvertime   *decimal.Decimal
	TaxableBenefits *decimal.Decimal
	VacationPay     *decimal.Decimal

	RRSP         *decimal.Decimal
	UnionDues    *decimal.Decimal
	OtherPreTax  *decimal.Decimal
	Garnishments *decimal.Decimal

	FederalClaim    *decimal.Decimal
	ProvincialClaim *decimal.Decimal
}

func (p RecordPatch) apply(in *domain.CalculationInput) {
	for _, f := range []struct {
		src *decimal.Decimal
		dst *decimal.Decimal
	}{
		{p.GrossRegular, &in.GrossRegular},
		{p.GrossOvertime, &in.GrossOvertime},
		{p.TaxableBenefits, &in.TaxableBenefits},
		{p.VacationPay, &in.VacationPay},
		{p.RRSP, &in.RRSP},
		{p.UnionDues, &in.UnionDues},
		{p.OtherPreTax, &in.OtherPreTax},
		{p.Garnishments, &in.Garnishments},
		{p.FederalClaim, &in.FederalClaim},
		{p.ProvincialClaim, &in.ProvincialClaim},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
}

// UpdateRecord patches one record's input on a draft run. The record is
// flagged modified until the next recalculation prices the new input.
func (s *Service) UpdateRecord(runID, employeeID uuid.UUID, patch RecordPatch) error {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.requireStatus(runID, domain.RunDraft); err != nil {
		return err
	}
	rec, err := s.store.GetRecord(runID, employeeID)
	if err != nil {
		return err
	}
	patch.apply(&rec.Input)
	if err := rec.Input.Validate(); err != nil {
		return err
	}
	rec.IsModified = true
	return s.store.UpdateRecord(rec)
}

// Recalculate prices every record on a draft run against the parameter
// edition in effect on the pay date, refreshes each record's prior
// year-to-date totals, and commits results plus the run summary in one
// transaction. Records the engine rejects are marked invalid and keep the
// error; the run stays draft either way.
func (s *Service) Recalculate(runID uuid.UUID) (*domain.PayrollRun, error) {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.requireStatus(runID, domain.RunDraft)
	if err != nil {
		return nil, err
	}

	// Claim the run. The version bump here makes a concurrent
	// recalculation lose at its own claim.
	run.Status = domain.RunCalculating
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		run.Status = domain.RunDraft
		if rerr := s.store.UpdateRun(run); rerr != nil {
			s.log.WithError(rerr).WithField("run_id", runID).Error("failed to release calculating run")
		}
	}()

	set, err := s.params.Load(run.TaxYear, domain.EditionForDate(run.PayDate))
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(runID)
	if err != nil {
		return nil, err
	}

	var gross, deductions, net, employerCost decimal.Decimal
	invalid := 0
	for i := range records {
		rec := &records[i]

		ytd, err := s.store.GetPriorYTD(rec.EmployeeID, run.TaxYear, run.PayDate)
		if err != nil {
			return nil, err
		}
		rec.Input.YTDBefore = ytd

		ps, err := set.For(rec.Input.Jurisdiction)
		if err != nil {
			return nil, err
		}
		result, err := s.engine.Calculate(rec.Input, ps)
		if err != nil {
			rec.Result = nil
			rec.IsValid = false
			rec.CalcError = err.Error()
			invalid++
			continue
		}
		rec.Result = &result
		rec.IsValid = true
		rec.IsModified = false
		rec.CalcError = ""

		gross = gross.Add(result.TotalGross)
		deductions = deductions.Add(result.TotalDeductions)
		net = net.Add(result.NetPay)
		employerCost = employerCost.Add(result.EmployerCost())
	}

	run.Status = domain.RunDraft
	run.TotalGross = gross
	run.TotalDeductions = deductions
	run.TotalNetPay = net
	run.TotalEmployerCost = employerCost
	if err := s.store.SaveRecalculation(run, records); err != nil {
		return nil, err
	}
	committed = true

	s.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"edition": domain.EditionForDate(run.PayDate),
		"records": len(records),
		"invalid": invalid,
		"net_pay": run.TotalNetPay.StringFixed(2),
	}).Info("payroll run recalculated")
	return run, nil
}

// Finalize moves a fully-priced draft run to pending approval. Every
// record must have a current valid result; modified or invalid records
// are reported by employee id.
func (s *Service) Finalize(runID uuid.UUID) (*domain.PayrollRun, error) {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.requireStatus(runID, domain.RunDraft)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: run %s has no records", domain.ErrValidation, runID)
	}
	var stale, invalid []string
	for i := range records {
		switch {
		case !records[i].IsValid:
			invalid = append(invalid, records[i].EmployeeID.String())
		case records[i].IsModified || records[i].Result == nil:
			stale = append(stale, records[i].EmployeeID.String())
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: run %s has invalid records for employees %s",
			domain.ErrValidation, runID, strings.Join(invalid, ", "))
	}
	if len(stale) > 0 {
		return nil, fmt.Errorf("%w: run %s has unpriced changes for employees %s; recalculate first",
			domain.ErrValidation, runID, strings.Join(stale, ", "))
	}

	run.Status = domain.RunPendingApproval
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}
	s.log.WithField("run_id", runID).Info("payroll run finalized")
	return run, nil
}

// Approve locks in a pending run. Approval happens at most once: the first
// caller wins on the run's version, a concurrent caller gets a conflict,
// and approving an already-approved run returns it unchanged. Approval
// advances the owning pay group's next pay date.
func (s *Service) Approve(runID uuid.UUID, approver string) (*domain.PayrollRun, error) {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run.Status == domain.RunApproved {
		return run, nil
	}
	if run.Status != domain.RunPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve run in status %s", domain.ErrInvalidState, run.Status)
	}
	if approver == "" {
		return nil, fmt.Errorf("%w: approver is required", domain.ErrValidation)
	}

	now := time.Now().UTC()
	run.Status = domain.RunApproved
	run.ApprovedBy = &approver
	run.ApprovedAt = &now
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}

	s.advancePayGroups(run)

	s.log.WithFields(logrus.Fields{
		"run_id":   runID,
		"approver": approver,
	}).Info("payroll run approved")
	return run, nil
}

// advancePayGroups moves each contributing pay group's next pay date past
// the approved run. Failures are logged, not fatal: the approval stands.
func (s *Service) advancePayGroups(run *domain.PayrollRun) {
	groups, err := s.store.ListPayGroups()
	if err != nil {
		s.log.WithError(err).Warn("could not advance pay group schedules")
		return
	}
	for i := range groups {
		g := &groups[i]
		if !g.NextPayDate.Equal(run.PayDate) {
			continue
		}
		g.NextPayDate = nextPayDate(g.Frequency, g.NextPayDate)
		if err := s.store.UpdatePayGroup(g); err != nil {
			s.log.WithError(err).WithField("pay_group", g.Name).Warn("could not advance pay group schedule")
		}
	}
}

// nextPayDate advances a pay schedule by one period. Semi-monthly pays on
// the 15th and the last day of the month.
func nextPayDate(f domain.PayFrequency, d time.Time) time.Time {
	switch f {
	case domain.Weekly:
		return d.AddDate(0, 0, 7)
	case domain.BiWeekly:
		return d.AddDate(0, 0, 14)
	case domain.SemiMonthly:
		if d.Day() < 16 {
			firstOfMonth := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
			return firstOfMonth.AddDate(0, 1, -1)
		}
		return time.Date(d.Year(), d.Month(), 15, 0, 0, 0, 0, d.Location()).AddDate(0, 1, 0)
	default:
		return d.AddDate(0, 1, 0)
	}
}

// MarkPaid records that an approved run's payments went out.
func (s *Service) MarkPaid(runID uuid.UUID) (*domain.PayrollRun, error) {
	return s.transition(runID, domain.RunApproved, domain.RunPaid, "payroll run paid")
}

// Cancel voids a run. Every status may cancel; a cancelled run's records
// stop contributing to year-to-date.
func (s *Service) Cancel(runID uuid.UUID) (*domain.PayrollRun, error) {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.CanTransition(domain.RunCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel run in status %s", domain.ErrInvalidState, run.Status)
	}
	run.Status = domain.RunCancelled
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}
	s.log.WithField("run_id", runID).Warn("payroll run cancelled")
	return run, nil
}

// Delete removes a draft run and its records. Any other status must go
// through Cancel so the audit trail survives.
func (s *Service) Delete(runID uuid.UUID) error {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.requireStatus(runID, domain.RunDraft); err != nil {
		return err
	}
	if err := s.store.DeleteRun(runID); err != nil {
		return err
	}
	s.log.WithField("run_id", runID).Info("draft payroll run deleted")
	return nil
}

// GetRun returns a run with its records.
func (s *Service) GetRun(runID uuid.UUID) (*domain.PayrollRun, []domain.PayrollRecord, error) {
	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.store.ListRecords(runID)
	if err != nil {
		return nil, nil, err
	}
	return run, records, nil
}

func (s *Service) transition(runID uuid.UUID, from, to domain.RunStatus, msg string) (*domain.PayrollRun, error) {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	run, err := s.requireStatus(runID, from)
	if err != nil {
		return nil, err
	}
	run.Status = to
	if err := s.store.UpdateRun(run); err != nil {
		return nil, err
	}
	s.log.WithField("run_id", runID).Info(msg)
	return run, nil
}

func (s *Service) requireStatus(runID uuid.UUID, want domain.RunStatus) (*domain.PayrollRun, error) {
	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run.Status != want {
		return nil, fmt.Errorf("%w: run %s is %s, expected %s", domain.ErrInvalidState, runID, run.Status, want)
	}
	return run, nil
}
