package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusExpired    Status = "EXPIRED"
	StatusTerminated Status = "TERMINATED"
)

// Contract - employment contract; only the latest ACTIVE one is current
type Contract struct {
	ID           string
	EmployeeID   string
	CompanyID    string
	BaseSalary   *decimal.Decimal // nil falls back to the employee's base salary
	StartDate    time.Time
	EndDate      *time.Time
	IsIndefinite bool
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
