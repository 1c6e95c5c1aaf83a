package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/contract"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestGetStats_Organization(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{})
	require.NoError(t, err)

	assert.Equal(t, ScopeAll, resp.Scope)
	assert.True(t, resp.TotalPaidSalary.Equal(d(45_000_000)), resp.TotalPaidSalary.String())
	assert.True(t, resp.TotalPaidBonus.Equal(d(2_000_000)))
	assert.True(t, resp.TotalPaidNet.Equal(d(47_000_000)))

	require.Len(t, resp.Monthly, 3)
	assert.Equal(t, period(2024, time.March), resp.Monthly[0].Period)
	assert.Equal(t, period(2024, time.May), resp.Monthly[2].Period)
	assert.True(t, resp.Monthly[2].Net.Equal(d(17_000_000)))
	require.Len(t, resp.Yearly, 1)
	assert.Equal(t, 3, resp.Yearly[0].Count)

	assert.Equal(t, period(2024, time.June), resp.CurrentMonth.Period)
	assert.Equal(t, 1, resp.CurrentMonth.Count)
	assert.True(t, resp.CurrentMonth.Salary.Equal(d(15_000_000)))
	assert.Equal(t, 2024, resp.CurrentYear.Year)
	assert.Equal(t, 4, resp.CurrentYear.Count)
	assert.True(t, resp.CurrentYear.Net.Equal(d(62_000_000)))
}

func TestGetStats_Filters(t *testing.T) {
	f := newFixture(t)

	byPeriod, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{Period: strPtr("2024-05")})
	require.NoError(t, err)
	assert.True(t, byPeriod.TotalPaidSalary.Equal(d(15_000_000)))
	assert.True(t, byPeriod.TotalPaidBonus.Equal(d(2_000_000)))
	require.Len(t, byPeriod.Monthly, 1)

	byMonth, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{Year: intPtr(2024), Month: intPtr(4)})
	require.NoError(t, err)
	assert.True(t, byMonth.TotalPaidNet.Equal(d(15_000_000)))

	otherYear, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{Year: intPtr(2023)})
	require.NoError(t, err)
	assert.True(t, otherYear.TotalPaidSalary.IsZero())
	assert.Empty(t, otherYear.Monthly)
	// In-flight snapshots ignore the filter.
	assert.Equal(t, 4, otherYear.CurrentYear.Count)
	assert.Equal(t, 1, otherYear.CurrentMonth.Count)

	_, err = f.svc.GetStats(hrContext(), payroll.StatsFilter{Month: intPtr(4)})
	assert.Error(t, err)
}

func TestGetStats_SelfScope(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(testEmployee2ID, "Budi Santoso", employee.LifecycleStatusActive, contract.Contract{
		ID:           "k-2",
		BaseSalary:   dp(8_000_000),
		StartDate:    date(2024, time.January, 1),
		IsIndefinite: true,
	})

	all, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{})
	require.NoError(t, err)
	// Budi adds January..May at 8,000,000.
	assert.True(t, all.TotalPaidSalary.Equal(d(85_000_000)), all.TotalPaidSalary.String())

	self, err := f.svc.GetStats(employeeContext(testEmployeeID), payroll.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, ScopeSelf, self.Scope)
	assert.True(t, self.TotalPaidSalary.Equal(d(45_000_000)), self.TotalPaidSalary.String())
}

func TestGetStats_CacheAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := hrContext()

	first, err := f.svc.GetStats(ctx, payroll.StatsFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, f.employees.calls())

	cached, err := f.svc.GetStats(ctx, payroll.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.employees.calls())
	assert.True(t, cached.TotalPaidNet.Equal(first.TotalPaidNet))
	assert.Equal(t, first.Monthly[0].Period, cached.Monthly[0].Period)

	_, err = f.svc.UpdateStatus(ctx, payroll.UpdateStatusRequest{EmployeeID: testEmployeeID, PayPeriod: "2024-04", Status: "CANCELLED"})
	require.NoError(t, err)

	after, err := f.svc.GetStats(ctx, payroll.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.employees.calls())
	assert.True(t, after.TotalPaidSalary.Equal(d(30_000_000)), after.TotalPaidSalary.String())
}

func TestGetStats_SharedComputationOutlivesCancelledCaller(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	f.employees.listHook = func(ctx context.Context) error {
		entered <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(hrContext())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.svc.GetStats(firstCtx, payroll.StatsFilter{})
		firstErr <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("stats computation never started")
	}

	type result struct {
		resp payroll.StatsResponse
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{})
		second <- result{resp, err}
	}()
	// Let the second caller join the in-flight computation.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.True(t, r.resp.TotalPaidNet.Equal(d(47_000_000)), r.resp.TotalPaidNet.String())
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, 1, f.employees.calls())
}

func TestRefreshStats_WarmsCache(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.RefreshStats(hrContext(), testCompanyID))
	require.Equal(t, 1, f.employees.calls())

	resp, err := f.svc.GetStats(hrContext(), payroll.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.employees.calls())
	assert.True(t, resp.TotalPaidNet.Equal(d(47_000_000)))
}

func TestRollStats_SkipsCancelledAndCurrent(t *testing.T) {
	current := period(2024, time.June)
	est := func(p payroll.PayPeriod, status payroll.PaymentStatus) payroll.LedgerEntry {
		return payroll.EstimatedLedgerEntry(testEmployeeID, p, d(10), d(1), status)
	}
	ledgers := []EmployeeLedgers{
		{
			Completed: []payroll.LedgerEntry{
				est(period(2023, time.December), payroll.PaymentStatusPaid),
				est(period(2024, time.January), payroll.PaymentStatusCancelled),
				est(period(2024, time.February), payroll.PaymentStatusPending),
				// Never present in completed ledgers, but must not count if it were.
				est(current, payroll.PaymentStatusPending),
			},
			Detail: []payroll.LedgerEntry{
				est(period(2023, time.December), payroll.PaymentStatusPaid),
				est(period(2024, time.January), payroll.PaymentStatusCancelled),
				est(period(2024, time.February), payroll.PaymentStatusPending),
				est(current, payroll.PaymentStatusPending),
			},
		},
		{},
	}

	resp := RollStats(ledgers, current, payroll.StatsFilter{})

	assert.True(t, resp.TotalPaidSalary.Equal(d(20)))
	assert.True(t, resp.TotalPaidNet.Equal(d(22)))
	require.Len(t, resp.Yearly, 2)
	assert.Equal(t, 2023, resp.Yearly[0].Year)
	assert.Equal(t, 2024, resp.Yearly[1].Year)
	assert.Equal(t, 2, resp.CurrentYear.Count)
	assert.Equal(t, 1, resp.CurrentMonth.Count)
}
