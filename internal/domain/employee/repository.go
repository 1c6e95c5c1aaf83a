package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, companyID, id string) (Employee, error)
	List(ctx context.Context, companyID string, filter ListFilter) ([]Employee, error)
	// ListCompanyIDs returns every company that has at least one employee.
	ListCompanyIDs(ctx context.Context) ([]string, error)
}
