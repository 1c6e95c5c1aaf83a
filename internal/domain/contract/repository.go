package contract

import "context"

type ContractRepository interface {
	// GetActiveByEmployeeID returns the ACTIVE contract with the latest start date.
	GetActiveByEmployeeID(ctx context.Context, companyID, employeeID string) (Contract, error)
	// GetActiveByEmployeeIDs is the batch form keyed by employee ID; employees
	// without an active contract are absent. Nil IDs means the whole company.
	GetActiveByEmployeeIDs(ctx context.Context, companyID string, employeeIDs []string) (map[string]Contract, error)
}
