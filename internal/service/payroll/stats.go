package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	ScopeAll  = "all"
	ScopeSelf = "self"
)

// statsComputeTimeout bounds a shared stats computation, which outlives any
// single caller's context.
const statsComputeTimeout = 30 * time.Second

// ledgerInputs is everything MergeLedger needs for a set of employees.
type ledgerInputs struct {
	terms   map[string]payroll.ContractTerms
	bonuses BonusIndex
	durable map[string]map[payroll.PayPeriod]payroll.PayrollEntry
}

// loadLedgerInputs fetches contracts, bonuses and durable entries concurrently.
// The three reads are not one snapshot.
func (s *PayrollLedgerServiceImpl) loadLedgerInputs(ctx context.Context, companyID string, employees []employee.Employee) (ledgerInputs, error) {
	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}

	var (
		in      ledgerInputs
		records []payroll.PayrollEntry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.terms, err = s.resolveContracts(gCtx, companyID, employees)
		return err
	})
	g.Go(func() error {
		var err error
		in.bonuses, err = s.aggregateBonuses(gCtx, companyID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.payrollRepo.List(gCtx, companyID, payroll.EntryFilter{EmployeeIDs: ids})
		if err != nil {
			return fmt.Errorf("list payroll entries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ledgerInputs{}, err
	}

	in.durable = IndexByPeriod(records)
	return in, nil
}

// EmployeeLedgers holds one employee's ledger in both window modes.
type EmployeeLedgers struct {
	Completed []payroll.LedgerEntry
	Detail    []payroll.LedgerEntry
}

func (s *PayrollLedgerServiceImpl) GetStats(ctx context.Context, filter payroll.StatsFilter) (payroll.StatsResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return payroll.StatsResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return payroll.StatsResponse{}, err
	}

	if s.canViewAll(caller) {
		return s.stats(ctx, caller.CompanyID, nil, ScopeAll, ScopeAll, filter)
	}
	if caller.EmployeeID == "" {
		return payroll.StatsResponse{}, auth.ErrForbidden
	}
	return s.stats(ctx, caller.CompanyID, []string{caller.EmployeeID}, ScopeSelf, "emp-"+caller.EmployeeID, filter)
}

// RefreshStats recomputes the unfiltered organization-wide snapshot and
// stores it under the company's current cache version.
func (s *PayrollLedgerServiceImpl) RefreshStats(ctx context.Context, companyID string) error {
	if s.cache == nil {
		return nil
	}
	now := s.now()
	filter := payroll.StatsFilter{}

	version, err := s.cache.Version(ctx, companyID)
	if err != nil {
		return err
	}
	resp, err := s.computeStats(ctx, companyID, nil, ScopeAll, filter, now)
	if err != nil {
		return err
	}
	key := cache.StatsKey(companyID, version, ScopeAll, payroll.PeriodOf(now).String(), filter.CacheKey())
	return s.cache.Set(ctx, key, resp)
}

func (s *PayrollLedgerServiceImpl) stats(ctx context.Context, companyID string, employeeIDs []string, scope, scopeKey string, filter payroll.StatsFilter) (payroll.StatsResponse, error) {
	now := s.now()
	current := payroll.PeriodOf(now)
	log := logger(ctx)

	key := ""
	if s.cache != nil {
		version, err := s.cache.Version(ctx, companyID)
		if err != nil {
			log.Warn("payroll stats cache unavailable", slog.Any("error", err))
		} else {
			key = cache.StatsKey(companyID, version, scopeKey, current.String(), filter.CacheKey())
			var cached payroll.StatsResponse
			hit, err := s.cache.Get(ctx, key, &cached)
			if err != nil {
				log.Warn("failed to read payroll stats cache", slog.String("key", key), slog.Any("error", err))
			} else if hit {
				return cached, nil
			}
		}
	}

	flightKey := key
	if flightKey == "" {
		flightKey = fmt.Sprintf("%s:%s:%s:%s", companyID, scopeKey, current, filter.CacheKey())
	}
	// Joined callers must not inherit the cancellation of whoever started the flight.
	flight := s.statsGroup.DoChan(flightKey, func() (any, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsComputeTimeout)
		defer cancel()
		return s.computeStats(computeCtx, companyID, employeeIDs, scope, filter, now)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return payroll.StatsResponse{}, ctx.Err()
	case res = <-flight:
	}
	if res.Err != nil {
		return payroll.StatsResponse{}, res.Err
	}
	resp := res.Val.(payroll.StatsResponse)

	if key != "" {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			log.Warn("failed to write payroll stats cache", slog.String("key", key), slog.Any("error", err))
		}
	}
	return resp, nil
}

func (s *PayrollLedgerServiceImpl) computeStats(ctx context.Context, companyID string, employeeIDs []string, scope string, filter payroll.StatsFilter, now time.Time) (payroll.StatsResponse, error) {
	employees, err := s.employeeRepo.List(ctx, companyID, employee.ListFilter{IDs: employeeIDs})
	if err != nil {
		return payroll.StatsResponse{}, fmt.Errorf("list employees: %w", err)
	}

	var in ledgerInputs
	if len(employees) > 0 {
		in, err = s.loadLedgerInputs(ctx, companyID, employees)
		if err != nil {
			return payroll.StatsResponse{}, err
		}
	}

	ledgers := make([]EmployeeLedgers, len(employees))
	var g errgroup.Group
	g.SetLimit(s.statsConcurrency)
	for i, emp := range employees {
		terms, ok := in.terms[emp.ID]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			durable := in.durable[emp.ID]
			ledgers[i] = EmployeeLedgers{
				Completed: MergeLedger(emp.ID, terms, ComputeWindow(terms, emp.LifecycleStatus, now, true), durable, in.bonuses),
				Detail:    MergeLedger(emp.ID, terms, ComputeWindow(terms, emp.LifecycleStatus, now, false), durable, in.bonuses),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return payroll.StatsResponse{}, err
	}

	resp := RollStats(ledgers, payroll.PeriodOf(now), filter)
	resp.Scope = scope
	resp.GeneratedAt = now
	return resp, nil
}

// RollStats folds per-employee ledgers into totals.
//
// Completed totals and the monthly/yearly breakdowns only count periods
// before current, skip CANCELLED entries, and honor the filter. The
// current-month and current-year snapshots come from the detail ledgers and
// ignore the filter.
func RollStats(ledgers []EmployeeLedgers, current payroll.PayPeriod, filter payroll.StatsFilter) payroll.StatsResponse {
	period, year := filter.Scope()

	resp := payroll.StatsResponse{
		TotalPaidSalary: decimal.Zero,
		TotalPaidBonus:  decimal.Zero,
		TotalPaidNet:    decimal.Zero,
		CurrentMonth:    newPeriodTotals(current),
		CurrentYear:     newYearTotals(current.Year),
		Monthly:         []payroll.PeriodTotals{},
		Yearly:          []payroll.YearTotals{},
	}
	monthly := make(map[payroll.PayPeriod]*payroll.PeriodTotals)
	yearly := make(map[int]*payroll.YearTotals)

	for _, l := range ledgers {
		for _, e := range l.Completed {
			if e.Status == payroll.PaymentStatusCancelled || !e.PayPeriod.Before(current) {
				continue
			}
			if !period.IsZero() && e.PayPeriod != period {
				continue
			}
			if year != 0 && e.PayPeriod.Year != year {
				continue
			}

			resp.TotalPaidSalary = resp.TotalPaidSalary.Add(e.BaseSalary)
			resp.TotalPaidBonus = resp.TotalPaidBonus.Add(e.Bonuses)
			resp.TotalPaidNet = resp.TotalPaidNet.Add(e.NetPay)

			m, ok := monthly[e.PayPeriod]
			if !ok {
				t := newPeriodTotals(e.PayPeriod)
				m = &t
				monthly[e.PayPeriod] = m
			}
			addPeriod(m, e)

			y, ok := yearly[e.PayPeriod.Year]
			if !ok {
				t := newYearTotals(e.PayPeriod.Year)
				y = &t
				yearly[e.PayPeriod.Year] = y
			}
			addYear(y, e)
		}

		for _, e := range l.Detail {
			if e.Status == payroll.PaymentStatusCancelled {
				continue
			}
			if e.PayPeriod == current {
				addPeriod(&resp.CurrentMonth, e)
			}
			if e.PayPeriod.Year == current.Year {
				addYear(&resp.CurrentYear, e)
			}
		}
	}

	for _, m := range monthly {
		resp.Monthly = append(resp.Monthly, *m)
	}
	slices.SortFunc(resp.Monthly, func(a, b payroll.PeriodTotals) int { return a.Period.Compare(b.Period) })

	for _, y := range yearly {
		resp.Yearly = append(resp.Yearly, *y)
	}
	slices.SortFunc(resp.Yearly, func(a, b payroll.YearTotals) int { return a.Year - b.Year })

	return resp
}

func newPeriodTotals(p payroll.PayPeriod) payroll.PeriodTotals {
	return payroll.PeriodTotals{Period: p, Salary: decimal.Zero, Bonus: decimal.Zero, Net: decimal.Zero}
}

func newYearTotals(year int) payroll.YearTotals {
	return payroll.YearTotals{Year: year, Salary: decimal.Zero, Bonus: decimal.Zero, Net: decimal.Zero}
}

func addPeriod(t *payroll.PeriodTotals, e payroll.LedgerEntry) {
	t.Salary = t.Salary.Add(e.BaseSalary)
	t.Bonus = t.Bonus.Add(e.Bonuses)
	t.Net = t.Net.Add(e.NetPay)
	t.Count++
}

func addYear(t *payroll.YearTotals, e payroll.LedgerEntry) {
	t.Salary = t.Salary.Add(e.BaseSalary)
	t.Bonus = t.Bonus.Add(e.Bonuses)
	t.Net = t.Net.Add(e.NetPay)
	t.Count++
}
