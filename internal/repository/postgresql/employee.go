package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db database.Querier
}

func NewEmployeeRepository(db database.Querier) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `id, company_id, employee_code, full_name, base_salary, lifecycle_status, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.EmployeeCode, &e.FullName, &e.BaseSalary, &e.LifecycleStatus, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func (r *employeeRepositoryImpl) GetByID(ctx context.Context, companyID, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2`

	e, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return e, nil
}

func (r *employeeRepositoryImpl) List(ctx context.Context, companyID string, filter employee.ListFilter) ([]employee.Employee, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"company_id = $1"}
	args := []interface{}{companyID}
	argIdx := 2

	if filter.IDs != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("id = ANY($%d)", argIdx))
		args = append(args, filter.IDs)
		argIdx++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(full_name ILIKE $%d OR employee_code ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE ` +
		strings.Join(whereClauses, " AND ") + ` ORDER BY full_name, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}

func (r *employeeRepositoryImpl) ListCompanyIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT company_id FROM employees ORDER BY company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}

	return ids, nil
}
