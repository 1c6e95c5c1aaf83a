package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const payrollEntryPeriodConstraint = "uq_payroll_entries_employee_period"

type payrollRepositoryImpl struct {
	db database.Querier
}

func NewPayrollRepository(db database.Querier) payroll.PayrollRepository {
	return &payrollRepositoryImpl{db: db}
}

const payrollEntrySelect = `
	SELECT e.id, e.employee_id, e.company_id, e.pay_period,
		   e.base_salary, e.allowances, e.deductions, e.overtime, e.bonuses, e.tax,
		   e.gross_pay, e.net_pay, e.status, e.payment_date, e.created_at, e.updated_at,
		   emp.full_name, emp.employee_code
	FROM payroll_entries e
	LEFT JOIN employees emp ON emp.id = e.employee_id
`

func scanPayrollEntry(row pgx.Row) (payroll.PayrollEntry, error) {
	var (
		e      payroll.PayrollEntry
		period string
	)
	if err := row.Scan(
		&e.ID, &e.EmployeeID, &e.CompanyID, &period,
		&e.BaseSalary, &e.Allowances, &e.Deductions, &e.Overtime, &e.Bonuses, &e.Tax,
		&e.GrossPay, &e.NetPay, &e.Status, &e.PaymentDate, &e.CreatedAt, &e.UpdatedAt,
		&e.EmployeeName, &e.EmployeeCode,
	); err != nil {
		return payroll.PayrollEntry{}, err
	}

	p, err := payroll.ParsePayPeriod(period)
	if err != nil {
		return payroll.PayrollEntry{}, fmt.Errorf("payroll entry %s: %w", e.ID, err)
	}
	e.PayPeriod = p

	return e, nil
}

func (r *payrollRepositoryImpl) GetByID(ctx context.Context, companyID, id string) (payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := payrollEntrySelect + ` WHERE e.id = $1 AND e.company_id = $2`

	e, err := scanPayrollEntry(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEntry{}, payroll.ErrEntryNotFound
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to get payroll entry: %w", err)
	}

	return e, nil
}

func (r *payrollRepositoryImpl) GetByEmployeePeriod(ctx context.Context, companyID, employeeID string, period payroll.PayPeriod) (payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := payrollEntrySelect + ` WHERE e.employee_id = $1 AND e.pay_period = $2 AND e.company_id = $3`

	e, err := scanPayrollEntry(q.QueryRow(ctx, query, employeeID, period.String(), companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEntry{}, payroll.ErrEntryNotFound
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to get payroll entry: %w", err)
	}

	return e, nil
}

func (r *payrollRepositoryImpl) List(ctx context.Context, companyID string, filter payroll.EntryFilter) ([]payroll.PayrollEntry, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"e.company_id = $1"}
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EmployeeIDs != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("e.employee_id = ANY($%d)", argIdx))
		args = append(args, filter.EmployeeIDs)
		argIdx++
	}
	if filter.PayPeriod != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("e.pay_period = $%d", argIdx))
		args = append(args, filter.PayPeriod.String())
		argIdx++
	}
	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("e.status = $%d", argIdx))
		args = append(args, string(*filter.Status))
		argIdx++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(emp.full_name ILIKE $%d OR emp.employee_code ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	query := payrollEntrySelect + ` WHERE ` + strings.Join(whereClauses, " AND ") +
		` ORDER BY e.pay_period DESC, emp.full_name, e.id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll entries: %w", err)
	}
	defer rows.Close()

	var entries []payroll.PayrollEntry
	for rows.Next() {
		e, err := scanPayrollEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll entries: %w", err)
	}

	return entries, nil
}

func (r *payrollRepositoryImpl) Create(ctx context.Context, entry payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	query := `
		INSERT INTO payroll_entries (
			employee_id, company_id, pay_period, base_salary, allowances, deductions,
			overtime, bonuses, tax, gross_pay, net_pay, status, payment_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	// A savepoint keeps the caller's transaction usable after a duplicate insert.
	err := withSavepoint(ctx, r.db, func(q database.Querier) error {
		return q.QueryRow(ctx, query,
			entry.EmployeeID, entry.CompanyID, entry.PayPeriod.String(),
			entry.BaseSalary, entry.Allowances, entry.Deductions,
			entry.Overtime, entry.Bonuses, entry.Tax, entry.GrossPay, entry.NetPay,
			string(entry.Status), entry.PaymentDate,
		).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	})
	if err != nil {
		if isUniqueViolation(err, payrollEntryPeriodConstraint) {
			return payroll.PayrollEntry{}, payroll.ErrEntryAlreadyExists
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to create payroll entry: %w", err)
	}

	return entry, nil
}

func (r *payrollRepositoryImpl) Update(ctx context.Context, entry payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_entries SET
			base_salary = $3, allowances = $4, deductions = $5, overtime = $6, bonuses = $7,
			tax = $8, gross_pay = $9, net_pay = $10, status = $11, payment_date = $12,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		entry.ID, entry.CompanyID,
		entry.BaseSalary, entry.Allowances, entry.Deductions, entry.Overtime, entry.Bonuses,
		entry.Tax, entry.GrossPay, entry.NetPay, string(entry.Status), entry.PaymentDate,
	).Scan(&entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollEntry{}, payroll.ErrEntryNotFound
		}
		return payroll.PayrollEntry{}, fmt.Errorf("failed to update payroll entry: %w", err)
	}

	return entry, nil
}
