package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/maplepay/maplepay/internal/domain"
)

// Store is the GORM-backed snapshot and result store.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing GORM handle without migrating.
func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&EmployeeModel{},
		&PayGroupModel{},
		&PayrollRunModel{},
		&PayrollRecordModel{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// --- employees ---

func employeeToModel(e *domain.Employee) EmployeeModel {
	m := EmployeeModel{
		ID:                   e.ID.String(),
		FirstName:            e.FirstName,
		LastName:             e.LastName,
		Jurisdiction:         string(e.Jurisdiction),
		Frequency:            string(e.Frequency),
		Basis:                string(e.Basis),
		AnnualSalary:         e.AnnualSalaryAmount,
		HourlyRate:           e.HourlyRateAmount,
		StandardHoursPerWeek: e.StandardHoursPerWeek,
		FederalClaim:         e.FederalClaim,
		ProvincialClaim:      e.ProvincialClaim,
		CPPExempt:            e.CPPExempt,
		EIExempt:             e.EIExempt,
		CPP2Exempt:           e.CPP2Exempt,
		HireDate:             e.HireDate,
		TerminationDate:      e.TerminationDate,
	}
	if e.PayGroupID != uuid.Nil {
		m.PayGroupID = e.PayGroupID.String()
	}
	return m
}

func employeeFromModel(m EmployeeModel) (domain.Employee, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("%w: corrupt employee id %q", domain.ErrInternal, m.ID)
	}
	e := domain.Employee{
		ID:                   id,
		FirstName:            m.FirstName,
		LastName:             m.LastName,
		Jurisdiction:         domain.Jurisdiction(m.Jurisdiction),
		Frequency:            domain.PayFrequency(m.Frequency),
		Basis:                domain.CompensationBasis(m.Basis),
		AnnualSalaryAmount:   m.AnnualSalary,
		HourlyRateAmount:     m.HourlyRate,
		StandardHoursPerWeek: m.StandardHoursPerWeek,
		FederalClaim:         m.FederalClaim,
		ProvincialClaim:      m.ProvincialClaim,
		CPPExempt:            m.CPPExempt,
		EIExempt:             m.EIExempt,
		CPP2Exempt:           m.CPP2Exempt,
		HireDate:             m.HireDate,
		TerminationDate:      m.TerminationDate,
	}
	if m.PayGroupID != "" {
		gid, err := uuid.Parse(m.PayGroupID)
		if err != nil {
			return domain.Employee{}, fmt.Errorf("%w: corrupt pay group id %q", domain.ErrInternal, m.PayGroupID)
		}
		e.PayGroupID = gid
	}
	return e, nil
}

func (s *Store) CreateEmployee(e *domain.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m := employeeToModel(e)
	if err := s.db.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: employee %s already exists", domain.ErrConflict, e.ID)
		}
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(id uuid.UUID) (*domain.Employee, error) {
	var m EmployeeModel
	if err := s.db.First(&m, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: employee %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	e, err := employeeFromModel(m)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateEmployee(e *domain.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m := employeeToModel(e)
	res := s.db.Model(&EmployeeModel{}).Where("id = ?", m.ID).Select("*").
		Omit("id", "created_at").Updates(m)
	if res.Error != nil {
		return fmt.Errorf("update employee: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: employee %s", domain.ErrNotFound, e.ID)
	}
	return nil
}

func (s *Store) ListEmployees() ([]domain.Employee, error) {
	var models []EmployeeModel
	if err := s.db.Order("last_name, first_name").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	out := make([]domain.Employee, 0, len(models))
	for _, m := range models {
		e, err := employeeFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// EligibleEmployees returns the members of a pay group who are employed on
// the given date.
func (s *Store) EligibleEmployees(groupID uuid.UUID, on time.Time) ([]domain.Employee, error) {
	var models []EmployeeModel
	if err := s.db.Where("pay_group_id = ?", groupID.String()).
		Order("last_name, first_name").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list group employees: %w", err)
	}
	out := make([]domain.Employee, 0, len(models))
	for _, m := range models {
		e, err := employeeFromModel(m)
		if err != nil {
			return nil, err
		}
		if e.Active(on) {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- pay groups ---

func (s *Store) CreatePayGroup(g *domain.PayGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	m := PayGroupModel{
		ID:          g.ID.String(),
		Name:        g.Name,
		Frequency:   string(g.Frequency),
		NextPayDate: g.NextPayDate,
	}
	if err := s.db.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: pay group %q already exists", domain.ErrConflict, g.Name)
		}
		return fmt.Errorf("create pay group: %w", err)
	}
	return nil
}

func (s *Store) GetPayGroup(id uuid.UUID) (*domain.PayGroup, error) {
	var m PayGroupModel
	if err := s.db.First(&m, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pay group %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get pay group: %w", err)
	}
	return payGroupFromModel(m)
}

func (s *Store) ListPayGroups() ([]domain.PayGroup, error) {
	var models []PayGroupModel
	if err := s.db.Order("name").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list pay groups: %w", err)
	}
	out := make([]domain.PayGroup, 0, len(models))
	for _, m := range models {
		g, err := payGroupFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, nil
}

func (s *Store) UpdatePayGroup(g *domain.PayGroup) error {
	res := s.db.Model(&PayGroupModel{}).Where("id = ?", g.ID.String()).
		Updates(map[string]interface{}{
			"name":          g.Name,
			"frequency":     string(g.Frequency),
			"next_pay_date": g.NextPayDate,
		})
	if res.Error != nil {
		return fmt.Errorf("update pay group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: pay group %s", domain.ErrNotFound, g.ID)
	}
	return nil
}

func payGroupFromModel(m PayGroupModel) (*domain.PayGroup, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt pay group id %q", domain.ErrInternal, m.ID)
	}
	return &domain.PayGroup{
		ID:          id,
		Name:        m.Name,
		Frequency:   domain.PayFrequency(m.Frequency),
		NextPayDate: m.NextPayDate,
	}, nil
}

// --- payroll runs ---

func runToModel(r *domain.PayrollRun) PayrollRunModel {
	return PayrollRunModel{
		ID:                r.ID.String(),
		PeriodStart:       r.PeriodStart,
		PeriodEnd:         r.PeriodEnd,
		PayDate:           r.PayDate,
		TaxYear:           r.TaxYear,
		Status:            string(r.Status),
		TotalGross:        r.TotalGross,
		TotalDeductions:   r.TotalDeductions,
		TotalNetPay:       r.TotalNetPay,
		TotalEmployerCost: r.TotalEmployerCost,
		ApprovedBy:        r.ApprovedBy,
		ApprovedAt:        r.ApprovedAt,
		Version:           r.Version,
	}
}

func runFromModel(m PayrollRunModel) (*domain.PayrollRun, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt run id %q", domain.ErrInternal, m.ID)
	}
	return &domain.PayrollRun{
		ID:                id,
		PeriodStart:       m.PeriodStart,
		PeriodEnd:         m.PeriodEnd,
		PayDate:           m.PayDate,
		TaxYear:           m.TaxYear,
		Status:            domain.RunStatus(m.Status),
		TotalGross:        m.TotalGross,
		TotalDeductions:   m.TotalDeductions,
		TotalNetPay:       m.TotalNetPay,
		TotalEmployerCost: m.TotalEmployerCost,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        m.ApprovedAt,
		Version:           m.Version,
	}, nil
}

func (s *Store) CreateRun(r *domain.PayrollRun) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m := runToModel(r)
	if err := s.db.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: run %s already exists", domain.ErrConflict, r.ID)
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id uuid.UUID) (*domain.PayrollRun, error) {
	var m PayrollRunModel
	if err := s.db.First(&m, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return runFromModel(m)
}

// FindRunByPayDate returns the non-cancelled run for a pay date, if one
// exists. Create-or-get in the lifecycle service keys on this.
func (s *Store) FindRunByPayDate(payDate time.Time) (*domain.PayrollRun, error) {
	var m PayrollRunModel
	err := s.db.Where("pay_date = ? AND status <> ?", payDate, string(domain.RunCancelled)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no run for pay date %s", domain.ErrNotFound, payDate.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("find run by pay date: %w", err)
	}
	return runFromModel(m)
}

func (s *Store) ListRuns(status *domain.RunStatus) ([]domain.PayrollRun, error) {
	q := s.db.Order("pay_date DESC")
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	var models []PayrollRunModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]domain.PayrollRun, 0, len(models))
	for _, m := range models {
		r, err := runFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// UpdateRun persists the run guarded by its version: the row is written
// only when the stored version still matches, and the version advances by
// one. A stale caller gets ErrConflict and must re-read.
func (s *Store) UpdateRun(r *domain.PayrollRun) error {
	return s.updateRunTx(s.db, r)
}

func (s *Store) updateRunTx(tx *gorm.DB, r *domain.PayrollRun) error {
	m := runToModel(r)
	res := tx.Model(&PayrollRunModel{}).
		Where("id = ? AND version = ?", m.ID, r.Version).
		Updates(map[string]interface{}{
			"period_start":        m.PeriodStart,
			"period_end":          m.PeriodEnd,
			"pay_date":            m.PayDate,
			"tax_year":            m.TaxYear,
			"status":              m.Status,
			"total_gross":         m.TotalGross,
			"total_deductions":    m.TotalDeductions,
			"total_net_pay":       m.TotalNetPay,
			"total_employer_cost": m.TotalEmployerCost,
			"approved_by":         m.ApprovedBy,
			"approved_at":         m.ApprovedAt,
			"version":             r.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.Model(&PayrollRunModel{}).Where("id = ?", m.ID).Count(&exists).Error; err == nil && exists == 0 {
			return fmt.Errorf("%w: run %s", domain.ErrNotFound, r.ID)
		}
		return fmt.Errorf("%w: run %s was modified concurrently", domain.ErrConflict, r.ID)
	}
	r.Version++
	return nil
}

// DeleteRun removes a run and its records in one transaction.
func (s *Store) DeleteRun(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id.String()).Delete(&PayrollRecordModel{}).Error; err != nil {
			return fmt.Errorf("delete run records: %w", err)
		}
		res := tx.Where("id = ?", id.String()).Delete(&PayrollRunModel{})
		if res.Error != nil {
			return fmt.Errorf("delete run: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
		}
		return nil
	})
}

// --- payroll records ---

func recordToModel(rec *domain.PayrollRecord) (PayrollRecordModel, error) {
	inputBlob, err := encodeInput(rec.Input)
	if err != nil {
		return PayrollRecordModel{}, fmt.Errorf("encode input: %w", err)
	}
	resultBlob, err := encodeResult(rec.Result)
	if err != nil {
		return PayrollRecordModel{}, fmt.Errorf("encode result: %w", err)
	}
	snapBlob, err := encodeSnapshot(rec.Snapshot)
	if err != nil {
		return PayrollRecordModel{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return PayrollRecordModel{
		ID:           rec.ID.String(),
		RunID:        rec.RunID.String(),
		EmployeeID:   rec.EmployeeID.String(),
		InputBlob:    inputBlob,
		ResultBlob:   resultBlob,
		SnapshotBlob: snapBlob,
		IsModified:   rec.IsModified,
		IsValid:      rec.IsValid,
		CalcError:    rec.CalcError,
	}, nil
}

func recordFromModel(m PayrollRecordModel) (domain.PayrollRecord, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.PayrollRecord{}, fmt.Errorf("%w: corrupt record id %q", domain.ErrInternal, m.ID)
	}
	runID, err := uuid.Parse(m.RunID)
	if err != nil {
		return domain.PayrollRecord{}, fmt.Errorf("%w: corrupt run id %q", domain.ErrInternal, m.RunID)
	}
	empID, err := uuid.Parse(m.EmployeeID)
	if err != nil {
		return domain.PayrollRecord{}, fmt.Errorf("%w: corrupt employee id %q", domain.ErrInternal, m.EmployeeID)
	}
	input, err := decodeInput(m.InputBlob)
	if err != nil {
		return domain.PayrollRecord{}, err
	}
	result, err := decodeResult(m.ResultBlob)
	if err != nil {
		return domain.PayrollRecord{}, err
	}
	snap, err := decodeSnapshot(m.SnapshotBlob)
	if err != nil {
		return domain.PayrollRecord{}, err
	}
	return domain.PayrollRecord{
		ID:         id,
		RunID:      runID,
		EmployeeID: empID,
		Input:      input,
		Result:     result,
		Snapshot:   snap,
		IsModified: m.IsModified,
		IsValid:    m.IsValid,
		CalcError:  m.CalcError,
		CreatedAt:  m.CreatedAt,
	}, nil
}

func (s *Store) CreateRecord(rec *domain.PayrollRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m, err := recordToModel(rec)
	if err != nil {
		return err
	}
	if err := s.db.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: employee %s is already on run %s",
				domain.ErrConflict, rec.EmployeeID, rec.RunID)
		}
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(runID, employeeID uuid.UUID) (*domain.PayrollRecord, error) {
	var m PayrollRecordModel
	err := s.db.Where("run_id = ? AND employee_id = ?", runID.String(), employeeID.String()).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: employee %s on run %s", domain.ErrNotFound, employeeID, runID)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	rec, err := recordFromModel(m)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListRecords(runID uuid.UUID) ([]domain.PayrollRecord, error) {
	var models []PayrollRecordModel
	if err := s.db.Where("run_id = ?", runID.String()).
		Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]domain.PayrollRecord, 0, len(models))
	for _, m := range models {
		rec, err := recordFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) UpdateRecord(rec *domain.PayrollRecord) error {
	m, err := recordToModel(rec)
	if err != nil {
		return err
	}
	res := s.db.Model(&PayrollRecordModel{}).Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"input_blob":  m.InputBlob,
			"result_blob": m.ResultBlob,
			"is_modified": m.IsModified,
			"is_valid":    m.IsValid,
			"calc_error":  m.CalcError,
		})
	if res.Error != nil {
		return fmt.Errorf("update record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: record %s", domain.ErrNotFound, rec.ID)
	}
	return nil
}

func (s *Store) DeleteRecord(runID, employeeID uuid.UUID) error {
	res := s.db.Where("run_id = ? AND employee_id = ?", runID.String(), employeeID.String()).
		Delete(&PayrollRecordModel{})
	if res.Error != nil {
		return fmt.Errorf("delete record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: employee %s on run %s", domain.ErrNotFound, employeeID, runID)
	}
	return nil
}

// SaveRecalculation commits a recalculation atomically: every record's
// result and the run's refreshed summary land together, or nothing does.
// The run's version guard makes concurrent recalculations lose cleanly.
func (s *Store) SaveRecalculation(run *domain.PayrollRun, records []domain.PayrollRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			m, err := recordToModel(&records[i])
			if err != nil {
				return err
			}
			res := tx.Model(&PayrollRecordModel{}).Where("id = ?", m.ID).
				Updates(map[string]interface{}{
					"input_blob":  m.InputBlob,
					"result_blob": m.ResultBlob,
					"is_modified": m.IsModified,
					"is_valid":    m.IsValid,
					"calc_error":  m.CalcError,
				})
			if res.Error != nil {
				return fmt.Errorf("save record %s: %w", m.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: record %s", domain.ErrNotFound, records[i].ID)
			}
		}
		return s.updateRunTx(tx, run)
	})
}

// GetPriorYTD sums the per-period lines of every approved or paid record
// for the employee in the tax year, strictly before the given pay date.
// Draft and pending runs never contribute.
func (s *Store) GetPriorYTD(employeeID uuid.UUID, taxYear int, before time.Time) (domain.YTDAccumulator, error) {
	var models []PayrollRecordModel
	err := s.db.
		Joins("JOIN payroll_runs ON payroll_runs.id = payroll_records.run_id").
		Where("payroll_records.employee_id = ?", employeeID.String()).
		Where("payroll_runs.tax_year = ?", taxYear).
		Where("payroll_runs.pay_date < ?", before).
		Where("payroll_runs.status IN ?", []string{string(domain.RunApproved), string(domain.RunPaid)}).
		Order("payroll_runs.pay_date").
		Find(&models).Error
	if err != nil {
		return domain.YTDAccumulator{}, fmt.Errorf("prior ytd: %w", err)
	}
	var acc domain.YTDAccumulator
	for _, m := range models {
		result, err := decodeResult(m.ResultBlob)
		if err != nil {
			return domain.YTDAccumulator{}, err
		}
		if result == nil {
			return domain.YTDAccumulator{}, fmt.Errorf("%w: approved record %s has no result", domain.ErrInternal, m.ID)
		}
		acc = acc.Add(domain.YTDAccumulator{
			Gross:               result.TotalGross,
			CPPBase:             result.CPPBase,
			CPPAdditional:       result.CPPAdditional,
			EI:                  result.EI,
			FederalTax:          result.FederalTax,
			ProvincialTax:       result.ProvincialTax,
			PensionableEarnings: result.PensionableEarnings,
			InsurableEarnings:   result.InsurableEarnings,
		})
	}
	return acc, nil
}
