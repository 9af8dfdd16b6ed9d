// Package store is the persistence surface behind the run lifecycle: the
// snapshot and result store of the engine. Runs and records are written
// through transactional operations only; everything downstream (paystubs,
// aggregate reports) reads from here and never writes.
package store

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// EmployeeModel is the payroll master row. Monetary columns are SQL
// decimals; the SIN is never stored here.
type EmployeeModel struct {
	ID           string `gorm:"type:text;primaryKey"`
	FirstName    string `gorm:"type:varchar(100);not null"`
	LastName     string `gorm:"type:varchar(100);not null"`
	Jurisdiction string `gorm:"type:varchar(2);not null"`
	Frequency    string `gorm:"type:varchar(20);not null"`
	PayGroupID   string `gorm:"type:text;index"`

	Basis                string          `gorm:"type:varchar(20);not null"`
	AnnualSalary         decimal.Decimal `gorm:"type:decimal(15,2);default:0"`
	HourlyRate           decimal.Decimal `gorm:"type:decimal(15,4);default:0"`
	StandardHoursPerWeek decimal.Decimal `gorm:"type:decimal(6,2);default:0"`

	FederalClaim    decimal.Decimal `gorm:"type:decimal(15,2);default:0"`
	ProvincialClaim decimal.Decimal `gorm:"type:decimal(15,2);default:0"`

	CPPExempt  bool `gorm:"default:false"`
	EIExempt   bool `gorm:"default:false"`
	CPP2Exempt bool `gorm:"default:false"`

	HireDate        time.Time
	TerminationDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EmployeeModel) TableName() string { return "employees" }

// PayGroupModel drives run eligibility by next pay date.
type PayGroupModel struct {
	ID          string `gorm:"type:text;primaryKey"`
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Frequency   string `gorm:"type:varchar(20);not null"`
	NextPayDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PayGroupModel) TableName() string { return "pay_groups" }

// PayrollRunModel is the run row. The summary totals are denormalized
// cache recomputed from records; Version is the optimistic-concurrency
// token every mutation must present.
type PayrollRunModel struct {
	ID          string `gorm:"type:text;primaryKey"`
	PeriodStart time.Time
	PeriodEnd   time.Time
	PayDate     time.Time `gorm:"index"`
	TaxYear     int       `gorm:"index"`
	Status      string    `gorm:"type:varchar(20);not null;default:'draft'"`

	TotalGross        decimal.Decimal `gorm:"type:decimal(15,2);default:0"`
	TotalDeductions   decimal.Decimal `gorm:"type:decimal(15,2);default:0"`
	TotalNetPay       decimal.Decimal `gorm:"type:decimal(15,2);default:0"`
	TotalEmployerCost decimal.Decimal `gorm:"type:decimal(15,2);default:0"`

	ApprovedBy *string `gorm:"type:varchar(100)"`
	ApprovedAt *time.Time

	Version int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PayrollRunModel) TableName() string { return "payroll_runs" }

// PayrollRecordModel binds one employee to one run. The input, result and
// employee snapshot are structured JSON blobs with fixed-two-digit decimal
// strings, so any record can be recalculated or audited exactly.
type PayrollRecordModel struct {
	ID         string `gorm:"type:text;primaryKey"`
	RunID      string `gorm:"type:text;not null;uniqueIndex:idx_run_employee"`
	EmployeeID string `gorm:"type:text;not null;uniqueIndex:idx_run_employee"`

	InputBlob    datatypes.JSON `gorm:"not null"`
	ResultBlob   datatypes.JSON
	SnapshotBlob datatypes.JSON `gorm:"not null"`

	IsModified bool   `gorm:"default:false"`
	IsValid    bool   `gorm:"default:true"`
	CalcError  string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PayrollRecordModel) TableName() string { return "payroll_records" }
