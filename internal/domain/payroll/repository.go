package payroll

import "context"

// EntryFilter selects durable entries. Empty fields do not filter.
type EntryFilter struct {
	EmployeeIDs []string
	PayPeriod   *PayPeriod
	Status      *PaymentStatus
	Search      string
}

// PayrollRepository defines data access methods for durable payroll entries.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	GetByID(ctx context.Context, companyID, id string) (PayrollEntry, error)
	GetByEmployeePeriod(ctx context.Context, companyID, employeeID string, period PayPeriod) (PayrollEntry, error)
	List(ctx context.Context, companyID string, filter EntryFilter) ([]PayrollEntry, error)
	// Create returns ErrEntryAlreadyExists when the (employee, period) row exists.
	Create(ctx context.Context, entry PayrollEntry) (PayrollEntry, error)
	Update(ctx context.Context, entry PayrollEntry) (PayrollEntry, error)
}
