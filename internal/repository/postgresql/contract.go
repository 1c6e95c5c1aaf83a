package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/contract"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type contractRepositoryImpl struct {
	db database.Querier
}

func NewContractRepository(db database.Querier) contract.ContractRepository {
	return &contractRepositoryImpl{db: db}
}

const contractColumns = `id, employee_id, company_id, base_salary, start_date, end_date, is_indefinite, status, created_at, updated_at`

func scanContract(row pgx.Row) (contract.Contract, error) {
	var c contract.Contract
	err := row.Scan(
		&c.ID, &c.EmployeeID, &c.CompanyID, &c.BaseSalary, &c.StartDate, &c.EndDate,
		&c.IsIndefinite, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *contractRepositoryImpl) GetActiveByEmployeeID(ctx context.Context, companyID, employeeID string) (contract.Contract, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE employee_id = $1 AND company_id = $2 AND status = 'ACTIVE'
		ORDER BY start_date DESC, created_at DESC
		LIMIT 1`

	c, err := scanContract(q.QueryRow(ctx, query, employeeID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contract.Contract{}, contract.ErrContractNotFound
		}
		return contract.Contract{}, fmt.Errorf("failed to get active contract: %w", err)
	}

	return c, nil
}

func (r *contractRepositoryImpl) GetActiveByEmployeeIDs(ctx context.Context, companyID string, employeeIDs []string) (map[string]contract.Contract, error) {
	result := make(map[string]contract.Contract)
	if employeeIDs != nil && len(employeeIDs) == 0 {
		return result, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `SELECT DISTINCT ON (employee_id) ` + contractColumns + ` FROM contracts
		WHERE company_id = $1 AND status = 'ACTIVE'`
	args := []interface{}{companyID}
	if employeeIDs != nil {
		query += ` AND employee_id = ANY($2)`
		args = append(args, employeeIDs)
	}
	query += ` ORDER BY employee_id, start_date DESC, created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active contracts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		result[c.EmployeeID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contracts: %w", err)
	}

	return result, nil
}
