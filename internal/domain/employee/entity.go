package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID              string
	CompanyID       string
	EmployeeCode    string
	FullName        string
	BaseSalary      *decimal.Decimal
	LifecycleStatus LifecycleStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type LifecycleStatus string

const (
	LifecycleStatusActive     LifecycleStatus = "ACTIVE"
	LifecycleStatusInactive   LifecycleStatus = "INACTIVE"
	LifecycleStatusOnLeave    LifecycleStatus = "ON_LEAVE"
	LifecycleStatusTerminated LifecycleStatus = "TERMINATED"
)

func (e Employee) IsActive() bool {
	return e.LifecycleStatus == LifecycleStatusActive
}

// ListFilter narrows employee listings. Nil IDs means every employee of the company.
type ListFilter struct {
	IDs    []string
	Search string
}
