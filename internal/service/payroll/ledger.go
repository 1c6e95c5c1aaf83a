package payroll

import (
	"slices"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// MergeLedger yields one entry per period of w, ascending: the durable record
// when one exists, otherwise an estimate from the contract base and bonuses.
// Estimates are PENDING for the current period and PAID before it.
func MergeLedger(employeeID string, terms payroll.ContractTerms, w payroll.Window, durable map[payroll.PayPeriod]payroll.PayrollEntry, bonuses BonusIndex) []payroll.LedgerEntry {
	periods := w.Periods()
	entries := make([]payroll.LedgerEntry, 0, len(periods))

	for _, p := range periods {
		if rec, ok := durable[p]; ok {
			entries = append(entries, payroll.DurableLedgerEntry(rec))
			continue
		}

		status := payroll.PaymentStatusPaid
		if p == w.Current {
			status = payroll.PaymentStatusPending
		}
		entries = append(entries, payroll.EstimatedLedgerEntry(employeeID, p, terms.BaseSalary, bonuses.For(employeeID, p), status))
	}

	return entries
}

// IndexByPeriod groups durable entries by employee, then period.
func IndexByPeriod(entries []payroll.PayrollEntry) map[string]map[payroll.PayPeriod]payroll.PayrollEntry {
	idx := make(map[string]map[payroll.PayPeriod]payroll.PayrollEntry)
	for _, e := range entries {
		byPeriod, ok := idx[e.EmployeeID]
		if !ok {
			byPeriod = make(map[payroll.PayPeriod]payroll.PayrollEntry)
			idx[e.EmployeeID] = byPeriod
		}
		byPeriod[e.PayPeriod] = e
	}
	return idx
}

// SortLedger orders entries by period; anything but "asc" sorts newest first.
func SortLedger(entries []payroll.LedgerEntry, order string) {
	asc := strings.EqualFold(order, OrderAsc)
	slices.SortStableFunc(entries, func(a, b payroll.LedgerEntry) int {
		if asc {
			return a.PayPeriod.Compare(b.PayPeriod)
		}
		return b.PayPeriod.Compare(a.PayPeriod)
	})
}
