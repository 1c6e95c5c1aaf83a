package payroll

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusProcessed PaymentStatus = "PROCESSED"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidPaymentStatus
	}
	return status, nil
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessed, PaymentStatusPaid, PaymentStatusCancelled:
		return true
	}
	return false
}

// PayrollEntry - Durable payroll record, unique per employee and pay period
type PayrollEntry struct {
	ID          string
	EmployeeID  string
	CompanyID   string
	PayPeriod   PayPeriod
	BaseSalary  decimal.Decimal
	Allowances  decimal.Decimal
	Deductions  decimal.Decimal
	Overtime    decimal.Decimal
	Bonuses     decimal.Decimal
	Tax         decimal.Decimal
	GrossPay    decimal.Decimal
	NetPay      decimal.Decimal
	Status      PaymentStatus
	PaymentDate *time.Time // date recorded; only means "paid on" for PAID entries
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// Recalculate derives gross and net pay from the component figures.
func (e *PayrollEntry) Recalculate() {
	e.GrossPay = e.BaseSalary.Add(e.Allowances).Add(e.Overtime).Add(e.Bonuses)
	e.NetPay = e.GrossPay.Sub(e.Deductions).Sub(e.Tax)
}

// EntryKind tags a LedgerEntry.
type EntryKind string

const (
	EntryKindDurable   EntryKind = "durable"
	EntryKindEstimated EntryKind = "estimated"
)

// LedgerEntry is one period of an employee's ledger: either a durable record
// or an estimate computed from contract and bonus data.
type LedgerEntry struct {
	Kind        EntryKind
	EmployeeID  string
	PayPeriod   PayPeriod
	BaseSalary  decimal.Decimal
	Allowances  decimal.Decimal
	Deductions  decimal.Decimal
	Overtime    decimal.Decimal
	Bonuses     decimal.Decimal
	Tax         decimal.Decimal
	GrossPay    decimal.Decimal
	NetPay      decimal.Decimal
	Status      PaymentStatus
	PaymentDate *time.Time

	// Record is set only for durable entries.
	Record *PayrollEntry
}

func DurableLedgerEntry(rec PayrollEntry) LedgerEntry {
	return LedgerEntry{
		Kind:        EntryKindDurable,
		EmployeeID:  rec.EmployeeID,
		PayPeriod:   rec.PayPeriod,
		BaseSalary:  rec.BaseSalary,
		Allowances:  rec.Allowances,
		Deductions:  rec.Deductions,
		Overtime:    rec.Overtime,
		Bonuses:     rec.Bonuses,
		Tax:         rec.Tax,
		GrossPay:    rec.GrossPay,
		NetPay:      rec.NetPay,
		Status:      rec.Status,
		PaymentDate: rec.PaymentDate,
		Record:      &rec,
	}
}

// EstimatedLedgerEntry builds an estimate: no allowances, deductions,
// overtime or tax, so gross and net both equal base plus bonuses.
func EstimatedLedgerEntry(employeeID string, period PayPeriod, base, bonuses decimal.Decimal, status PaymentStatus) LedgerEntry {
	gross := base.Add(bonuses)
	return LedgerEntry{
		Kind:       EntryKindEstimated,
		EmployeeID: employeeID,
		PayPeriod:  period,
		BaseSalary: base,
		Allowances: decimal.Zero,
		Deductions: decimal.Zero,
		Overtime:   decimal.Zero,
		Bonuses:    bonuses,
		Tax:        decimal.Zero,
		GrossPay:   gross,
		NetPay:     gross,
		Status:     status,
	}
}

func (e LedgerEntry) IsEstimated() bool { return e.Kind == EntryKindEstimated }

// Ref returns the reference a client uses to target this entry.
func (e LedgerEntry) Ref() EntryRef {
	if e.Kind == EntryKindDurable && e.Record != nil {
		return DurableRef(e.Record.ID)
	}
	return EstimatedRef(e.EmployeeID, e.PayPeriod)
}

// ContractTerms are the salary-relevant terms of an employee's current contract,
// with the base salary already resolved against the employee fallback.
type ContractTerms struct {
	ContractID   string
	EmployeeID   string
	BaseSalary   decimal.Decimal
	StartDate    time.Time
	EndDate      *time.Time
	IsIndefinite bool
}

// Window is the inclusive range of periods a ledger reports.
type Window struct {
	Start   PayPeriod
	End     PayPeriod
	Current PayPeriod
	// Empty is set when the contract starts after End ("not yet started").
	Empty bool
}

func (w Window) Periods() []PayPeriod {
	if w.Empty {
		return nil
	}
	return PeriodsBetween(w.Start, w.End)
}

func (w Window) Contains(p PayPeriod) bool {
	return !w.Empty && !p.Before(w.Start) && !p.After(w.End)
}

// StatusChangedEvent is published after a durable entry's status is written.
type StatusChangedEvent struct {
	EventID    string          `json:"event_id"`
	CompanyID  string          `json:"company_id"`
	EntryID    string          `json:"entry_id"`
	EmployeeID string          `json:"employee_id"`
	PayPeriod  PayPeriod       `json:"pay_period"`
	Status     PaymentStatus   `json:"status"`
	NetPay     decimal.Decimal `json:"net_pay"`
	OccurredAt time.Time       `json:"occurred_at"`
}
