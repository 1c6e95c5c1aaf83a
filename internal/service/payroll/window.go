package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
)

// ComputeWindow returns the periods a ledger reports for the given contract.
//
// The window starts at the contract's start month. It ends at the month
// before now when completedOnly is set, otherwise at the current month.
// Employees that are not ACTIVE never get the current month, and a finite
// contract end date caps the window at its month.
func ComputeWindow(terms payroll.ContractTerms, status employee.LifecycleStatus, now time.Time, completedOnly bool) payroll.Window {
	current := payroll.PeriodOf(now)
	lastCompleted := current.Prev()

	end := current
	if completedOnly {
		end = lastCompleted
	}
	if status != employee.LifecycleStatusActive && end.After(lastCompleted) {
		end = lastCompleted
	}
	if !terms.IsIndefinite && terms.EndDate != nil {
		if contractEnd := payroll.PeriodOf(*terms.EndDate); contractEnd.Before(end) {
			end = contractEnd
		}
	}

	start := payroll.PeriodOf(terms.StartDate)

	return payroll.Window{
		Start:   start,
		End:     end,
		Current: current,
		Empty:   start.After(end),
	}
}
