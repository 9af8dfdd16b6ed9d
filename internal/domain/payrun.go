package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunStatus is the payroll run state machine's state.
type RunStatus string

const (
	RunDraft           RunStatus = "draft"
	RunCalculating     RunStatus = "calculating"
	RunPendingApproval RunStatus = "pending_approval"
	RunApproved        RunStatus = "approved"
	RunPaid            RunStatus = "paid"
	RunCancelled       RunStatus = "cancelled"
)

// CanTransition encodes the legal state machine edges. Record mutation is
// additionally gated on draft status by the lifecycle service.
func (s RunStatus) CanTransition(to RunStatus) bool {
	switch s {
	case RunDraft:
		return to == RunPendingApproval || to == RunCancelled || to == RunCalculating
	case RunCalculating:
		return to == RunDraft
	case RunPendingApproval:
		return to == RunApproved || to == RunCancelled
	case RunApproved:
		return to == RunPaid || to == RunCancelled
	case RunPaid:
		return to == RunCancelled
	}
	return false
}

// PayrollRun is one pay date's batch of employee calculations.
// period_end >= period_start and pay_date >= period_end. The summary totals
// are a denormalized cache recomputed from records on every recalculate.
type PayrollRun struct {
	ID          uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	PayDate     time.Time
	TaxYear     int
	Status      RunStatus

	TotalGross        decimal.Decimal
	TotalDeductions   decimal.Decimal
	TotalNetPay       decimal.Decimal
	TotalEmployerCost decimal.Decimal

	ApprovedBy *string
	ApprovedAt *time.Time

	// Version is the optimistic-concurrency token on the run row.
	Version int
}

// PayrollRecord binds one employee to one run, with the calculation input,
// the latest result, and the employee snapshot taken at insertion. Unique
// on (RunID, EmployeeID). The snapshot is never rewritten.
type PayrollRecord struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	EmployeeID uuid.UUID

	Input    CalculationInput
	Result   *CalculationResult
	Snapshot EmployeeSnapshot

	// IsModified is set when the input is patched after the last
	// recalculation; the run cannot finalize until cleared.
	IsModified bool

	// IsValid is false when the engine failed for this record; CalcError
	// retains the message. The run cannot finalize while invalid.
	IsValid   bool
	CalcError string

	CreatedAt time.Time
}
