package postgresql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCompanyID  = "0190a3b2-0000-7000-8000-00000000c001"
	testEmployeeID = "0190a3b2-0000-7000-8000-00000000e001"
	testEntryID    = "0190a3b2-0000-7000-8000-00000000f001"
)

var payrollEntryColumns = []string{
	"id", "employee_id", "company_id", "pay_period",
	"base_salary", "allowances", "deductions", "overtime", "bonuses", "tax",
	"gross_pay", "net_pay", "status", "payment_date", "created_at", "updated_at",
	"full_name", "employee_code",
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func strPtr(s string) *string { return &s }

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func payrollEntryRow(rows *pgxmock.Rows, period string, bonuses int64, status string, paidAt *time.Time) *pgxmock.Rows {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(
		testEntryID, testEmployeeID, testCompanyID, period,
		d(15_000_000), d(0), d(0), d(0), d(bonuses), d(0),
		d(15_000_000+bonuses), d(15_000_000+bonuses), status, paidAt, now, now,
		strPtr("Siti Rahma"), strPtr("2024-0001"),
	)
}

func TestPayrollRepository_GetByEmployeePeriod(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayrollRepository(mock)
	period := payroll.PayPeriod{Year: 2024, Month: time.May}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.employee_id = $1 AND e.pay_period = $2 AND e.company_id = $3")).
		WithArgs(testEmployeeID, "2024-05", testCompanyID).
		WillReturnRows(payrollEntryRow(pgxmock.NewRows(payrollEntryColumns), "2024-05", 500_000, "PAID", nil))

	entry, err := repo.GetByEmployeePeriod(context.Background(), testCompanyID, testEmployeeID, period)
	require.NoError(t, err)
	assert.Equal(t, testEntryID, entry.ID)
	assert.Equal(t, period, entry.PayPeriod)
	assert.Equal(t, payroll.PaymentStatusPaid, entry.Status)
	assert.True(t, entry.Bonuses.Equal(d(500_000)))
	require.NotNil(t, entry.EmployeeName)
	assert.Equal(t, "Siti Rahma", *entry.EmployeeName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepository_GetByEmployeePeriod_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayrollRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payroll_entries e")).
		WithArgs(testEmployeeID, "2024-05", testCompanyID).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByEmployeePeriod(context.Background(), testCompanyID, testEmployeeID, payroll.PayPeriod{Year: 2024, Month: time.May})
	assert.ErrorIs(t, err, payroll.ErrEntryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepository_List_Filters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayrollRepository(mock)
	period := payroll.PayPeriod{Year: 2024, Month: time.May}
	status := payroll.PaymentStatusPaid

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.company_id = $1 AND e.employee_id = ANY($2) AND e.pay_period = $3 AND e.status = $4 AND (emp.full_name ILIKE $5 OR emp.employee_code ILIKE $5) ORDER BY e.pay_period DESC")).
		WithArgs(testCompanyID, []string{testEmployeeID}, "2024-05", "PAID", "%siti%").
		WillReturnRows(payrollEntryRow(pgxmock.NewRows(payrollEntryColumns), "2024-05", 0, "PAID", nil))

	entries, err := repo.List(context.Background(), testCompanyID, payroll.EntryFilter{
		EmployeeIDs: []string{testEmployeeID},
		PayPeriod:   &period,
		Status:      &status,
		Search:      " siti ",
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepository_List_EmptyIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entries, err := NewPayrollRepository(mock).List(context.Background(), testCompanyID, payroll.EntryFilter{EmployeeIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestEntry() payroll.PayrollEntry {
	paidAt := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	e := payroll.PayrollEntry{
		EmployeeID:  testEmployeeID,
		CompanyID:   testCompanyID,
		PayPeriod:   payroll.PayPeriod{Year: 2024, Month: time.May},
		BaseSalary:  d(15_000_000),
		Allowances:  decimal.Zero,
		Deductions:  decimal.Zero,
		Overtime:    decimal.Zero,
		Bonuses:     d(2_000_000),
		Tax:         decimal.Zero,
		Status:      payroll.PaymentStatusPaid,
		PaymentDate: &paidAt,
	}
	e.Recalculate()
	return e
}

func TestPayrollRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayrollRepository(mock)
	entry := newTestEntry()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payroll_entries")).
		WithArgs(testEmployeeID, testCompanyID, "2024-05",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "PAID", entry.PaymentDate).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(testEntryID, now, now))

	created, err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, testEntryID, created.ID)
	assert.True(t, created.NetPay.Equal(d(17_000_000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepository_Create_DuplicateInsideTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayrollRepository(mock)

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payroll_entries")).
		WithArgs(anyArgs(13)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: payrollEntryPeriodConstraint})
	mock.ExpectRollback()
	mock.ExpectRollback()

	err = WithTransaction(context.Background(), mock, func(txCtx context.Context) error {
		_, err := repo.Create(txCtx, newTestEntry())
		return err
	})
	assert.ErrorIs(t, err, payroll.ErrEntryAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayrollRepository_Create_OtherUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payroll_entries")).
		WithArgs(anyArgs(13)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payroll_entries_pkey"})

	_, err = NewPayrollRepository(mock).Create(context.Background(), newTestEntry())
	require.Error(t, err)
	assert.False(t, errors.Is(err, payroll.ErrEntryAlreadyExists))
}

func TestPayrollRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPayrollRepository(mock)
	entry := newTestEntry()
	entry.ID = testEntryID
	updatedAt := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE payroll_entries SET")).
		WithArgs(testEntryID, testCompanyID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "PAID", entry.PaymentDate).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))

	updated, err := repo.Update(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, updatedAt, updated.UpdatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE payroll_entries SET")).
		WithArgs(anyArgs(12)...).
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.Update(context.Background(), entry)
	assert.ErrorIs(t, err, payroll.ErrEntryNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
