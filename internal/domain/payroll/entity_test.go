package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromInt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestParsePaymentStatus(t *testing.T) {
	status, err := ParsePaymentStatus(" paid ")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, status)

	_, err = ParsePaymentStatus("DRAFT")
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
}

func TestPayrollEntry_Recalculate(t *testing.T) {
	e := PayrollEntry{
		BaseSalary: decimalFromInt(15_000_000),
		Allowances: decimalFromInt(1_000_000),
		Overtime:   decimalFromInt(250_000),
		Bonuses:    decimalFromInt(2_000_000),
		Deductions: decimalFromInt(300_000),
		Tax:        decimalFromInt(700_000),
	}
	e.Recalculate()

	assert.True(t, e.GrossPay.Equal(decimalFromInt(18_250_000)), e.GrossPay.String())
	assert.True(t, e.NetPay.Equal(decimalFromInt(17_250_000)), e.NetPay.String())
}

func TestEstimatedLedgerEntry(t *testing.T) {
	e := EstimatedLedgerEntry(testEmployeeID, PayPeriod{Year: 2024, Month: time.May},
		decimalFromInt(15_000_000), decimalFromInt(2_000_000), PaymentStatusPaid)

	assert.True(t, e.IsEstimated())
	assert.Nil(t, e.Record)
	assert.True(t, e.GrossPay.Equal(decimalFromInt(17_000_000)))
	assert.True(t, e.NetPay.Equal(e.GrossPay))
	assert.True(t, e.Deductions.IsZero())
	assert.True(t, e.Tax.IsZero())
}

func TestWindow(t *testing.T) {
	w := Window{
		Start: PayPeriod{Year: 2024, Month: time.March},
		End:   PayPeriod{Year: 2024, Month: time.May},
	}
	assert.Len(t, w.Periods(), 3)
	assert.True(t, w.Contains(PayPeriod{Year: 2024, Month: time.April}))
	assert.False(t, w.Contains(PayPeriod{Year: 2024, Month: time.June}))

	w.Empty = true
	assert.Nil(t, w.Periods())
	assert.False(t, w.Contains(PayPeriod{Year: 2024, Month: time.April}))
}

func TestStatsFilter_Scope(t *testing.T) {
	year, month, period := 2024, 5, "2023-11"

	p, y := StatsFilter{Year: &year, Month: &month}.Scope()
	assert.Equal(t, "2024-05", p.String())
	assert.Zero(t, y)

	p, y = StatsFilter{Year: &year}.Scope()
	assert.True(t, p.IsZero())
	assert.Equal(t, 2024, y)

	p, _ = StatsFilter{Year: &year, Period: &period}.Scope()
	assert.Equal(t, "2023-11", p.String())

	assert.Equal(t, "all", StatsFilter{}.CacheKey())
	assert.Equal(t, "y2024", StatsFilter{Year: &year}.CacheKey())
}

func TestStatsFilter_Validate(t *testing.T) {
	month := 5
	err := (&StatsFilter{Month: &month}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month: requires year")

	bad := "2024-5"
	assert.Error(t, (&StatsFilter{Period: &bad}).Validate())
	assert.NoError(t, (&StatsFilter{}).Validate())
}

func TestUpdateStatusRequest_Validate(t *testing.T) {
	req := UpdateStatusRequest{EmployeeID: testEmployeeID, PayPeriod: "2024-05", Status: "paid"}
	assert.NoError(t, req.Validate())

	req = UpdateStatusRequest{EmployeeID: testEmployeeID, PayPeriod: "2024-5", Status: "DONE"}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pay_period: must be in YYYY-MM format")
	assert.Contains(t, err.Error(), "status: must be one of")
}
