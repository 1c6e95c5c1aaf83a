package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/google/uuid"
)

// entryMutation describes one write against a period's durable entry.
type entryMutation struct {
	// build returns the entry to insert when the period has no durable row.
	build func() payroll.PayrollEntry
	// apply changes an existing row in place.
	apply func(*payroll.PayrollEntry)
}

// Materialize sets the status of (employee, period), creating the durable
// entry from the estimate when none exists. Bonuses are re-aggregated on
// every write so stale figures are corrected.
func (s *PayrollLedgerServiceImpl) Materialize(ctx context.Context, emp employee.Employee, period payroll.PayPeriod, status payroll.PaymentStatus) (payroll.PayrollEntry, error) {
	terms, _, err := s.resolveContract(ctx, emp)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	bonuses, err := s.aggregateBonuses(ctx, emp.CompanyID, []string{emp.ID})
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	bonus := bonuses.For(emp.ID, period)
	now := s.now()

	entry, err := s.upsertEntry(ctx, emp.CompanyID, emp.ID, period, entryMutation{
		build: func() payroll.PayrollEntry {
			e := payroll.PayrollEntry{
				EmployeeID: emp.ID,
				CompanyID:  emp.CompanyID,
				PayPeriod:  period,
				BaseSalary: terms.BaseSalary,
				Bonuses:    bonus,
				Status:     status,
				// Recorded date of materialization, whatever the status.
				PaymentDate: &now,
			}
			e.Recalculate()
			return e
		},
		apply: func(e *payroll.PayrollEntry) {
			e.Status = status
			if status == payroll.PaymentStatusPaid && e.PaymentDate == nil {
				e.PaymentDate = &now
			}
			e.Bonuses = bonus
			e.Recalculate()
		},
	}, terms)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}

	s.afterWrite(ctx, entry)
	return entry, nil
}

// SyncBonus re-aggregates the period's bonuses into its durable entry,
// creating a PENDING entry when the period has none. Status is left alone.
// It usually runs inside the caller's transaction, so the stats cache is not
// touched here; callers invoke InvalidateStats once the write has committed.
func (s *PayrollLedgerServiceImpl) SyncBonus(ctx context.Context, companyID, employeeID string, period payroll.PayPeriod) (payroll.PayrollEntry, error) {
	emp, err := s.employeeRepo.GetByID(ctx, companyID, employeeID)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	terms, _, err := s.resolveContract(ctx, emp)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	bonuses, err := s.aggregateBonuses(ctx, companyID, []string{employeeID})
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	bonus := bonuses.For(employeeID, period)

	entry, err := s.upsertEntry(ctx, companyID, employeeID, period, entryMutation{
		build: func() payroll.PayrollEntry {
			e := payroll.PayrollEntry{
				EmployeeID: employeeID,
				CompanyID:  companyID,
				PayPeriod:  period,
				BaseSalary: terms.BaseSalary,
				Bonuses:    bonus,
				Status:     payroll.PaymentStatusPending,
			}
			e.Recalculate()
			return e
		},
		apply: func(e *payroll.PayrollEntry) {
			e.Bonuses = bonus
			e.Recalculate()
		},
	}, terms)
	if err != nil {
		return payroll.PayrollEntry{}, err
	}
	return entry, nil
}

// upsertEntry updates the period's row, or inserts one. Losing an insert race
// to a concurrent writer falls back to updating the row that won, so there is
// never more than one durable entry per (employee, period).
func (s *PayrollLedgerServiceImpl) upsertEntry(ctx context.Context, companyID, employeeID string, period payroll.PayPeriod, m entryMutation, terms payroll.ContractTerms) (payroll.PayrollEntry, error) {
	existing, err := s.payrollRepo.GetByEmployeePeriod(ctx, companyID, employeeID, period)
	if err == nil {
		return s.applyAndUpdate(ctx, existing, m)
	}
	if !errors.Is(err, payroll.ErrEntryNotFound) {
		return payroll.PayrollEntry{}, fmt.Errorf("get payroll entry: %w", err)
	}

	if !contractCovers(terms, period) {
		return payroll.PayrollEntry{}, payroll.ErrPeriodOutsideContract
	}

	created, err := s.payrollRepo.Create(ctx, m.build())
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, payroll.ErrEntryAlreadyExists) {
		return payroll.PayrollEntry{}, fmt.Errorf("create payroll entry: %w", err)
	}

	logger(ctx).Info("payroll entry created concurrently, updating existing row",
		slog.String("employee_id", employeeID),
		slog.String("pay_period", period.String()),
	)
	existing, err = s.payrollRepo.GetByEmployeePeriod(ctx, companyID, employeeID, period)
	if err != nil {
		return payroll.PayrollEntry{}, fmt.Errorf("get payroll entry after conflict: %w", err)
	}
	return s.applyAndUpdate(ctx, existing, m)
}

func (s *PayrollLedgerServiceImpl) applyAndUpdate(ctx context.Context, e payroll.PayrollEntry, m entryMutation) (payroll.PayrollEntry, error) {
	m.apply(&e)
	updated, err := s.payrollRepo.Update(ctx, e)
	if err != nil {
		return payroll.PayrollEntry{}, fmt.Errorf("update payroll entry: %w", err)
	}
	return updated, nil
}

// afterWrite runs the best-effort side effects of a status write.
func (s *PayrollLedgerServiceImpl) afterWrite(ctx context.Context, e payroll.PayrollEntry) {
	s.invalidateStats(ctx, e.CompanyID)

	if s.publisher == nil {
		return
	}
	event := payroll.StatusChangedEvent{
		EventID:    uuid.NewString(),
		CompanyID:  e.CompanyID,
		EntryID:    e.ID,
		EmployeeID: e.EmployeeID,
		PayPeriod:  e.PayPeriod,
		Status:     e.Status,
		NetPay:     e.NetPay,
		OccurredAt: s.now(),
	}
	if err := s.publisher.PublishStatusChanged(ctx, event); err != nil {
		logger(ctx).Warn("failed to publish payroll status change",
			slog.String("entry_id", e.ID),
			slog.Any("error", err),
		)
	}
}

// InvalidateStats drops every cached stats snapshot of the company.
func (s *PayrollLedgerServiceImpl) InvalidateStats(ctx context.Context, companyID string) {
	s.invalidateStats(ctx, companyID)
}

func (s *PayrollLedgerServiceImpl) invalidateStats(ctx context.Context, companyID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, companyID); err != nil {
		logger(ctx).Warn("failed to invalidate payroll stats cache",
			slog.String("company_id", companyID),
			slog.Any("error", err),
		)
	}
}
