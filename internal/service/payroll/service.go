package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/contract"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	msgNoActiveContract = "Employee has no active contract"
	msgNoBaseSalary     = "Employee has no base salary configured"
	msgNotStarted       = "Contract has not started yet"
)

// StatsCache is the snapshot store used by GetStats. *cache.StatsCache implements it.
type StatsCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Version(ctx context.Context, companyID string) (int64, error)
	Bump(ctx context.Context, companyID string) error
}

type PayrollLedgerServiceImpl struct {
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	contractRepo contract.ContractRepository
	rewardRepo   reward.RewardRepository
	authorizer   auth.Authorizer

	cache            StatsCache
	publisher        payroll.EventPublisher
	clock            func() time.Time
	loc              *time.Location
	statsConcurrency int
	statsGroup       singleflight.Group
}

type Option func(*PayrollLedgerServiceImpl)

func WithStatsCache(c StatsCache) Option {
	return func(s *PayrollLedgerServiceImpl) { s.cache = c }
}

func WithEventPublisher(p payroll.EventPublisher) Option {
	return func(s *PayrollLedgerServiceImpl) { s.publisher = p }
}

func WithClock(clock func() time.Time) Option {
	return func(s *PayrollLedgerServiceImpl) { s.clock = clock }
}

// WithLocation sets the zone in which "now" is turned into the current pay period.
func WithLocation(loc *time.Location) Option {
	return func(s *PayrollLedgerServiceImpl) { s.loc = loc }
}

func WithStatsConcurrency(n int) Option {
	return func(s *PayrollLedgerServiceImpl) {
		if n > 0 {
			s.statsConcurrency = n
		}
	}
}

func NewPayrollLedgerService(
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	contractRepo contract.ContractRepository,
	rewardRepo reward.RewardRepository,
	authorizer auth.Authorizer,
	opts ...Option,
) *PayrollLedgerServiceImpl {
	s := &PayrollLedgerServiceImpl{
		payrollRepo:      payrollRepo,
		employeeRepo:     employeeRepo,
		contractRepo:     contractRepo,
		rewardRepo:       rewardRepo,
		authorizer:       authorizer,
		clock:            time.Now,
		loc:              time.UTC,
		statsConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ payroll.PayrollLedgerService = (*PayrollLedgerServiceImpl)(nil)
	_ payroll.BonusSyncer          = (*PayrollLedgerServiceImpl)(nil)
	_ payroll.StatsRefresher       = (*PayrollLedgerServiceImpl)(nil)
)

func (s *PayrollLedgerServiceImpl) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *PayrollLedgerServiceImpl) canViewAll(c auth.Caller) bool {
	return s.authorizer.Can(c.Role, user.PermissionPayrollViewAll)
}

func (s *PayrollLedgerServiceImpl) require(c auth.Caller, perm user.Permission) error {
	if !s.authorizer.Can(c.Role, perm) {
		return auth.ErrForbidden
	}
	return nil
}

// ========== LEDGER ==========

func (s *PayrollLedgerServiceImpl) GetLedger(ctx context.Context, employeeID string, order string) (payroll.LedgerResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return payroll.LedgerResponse{}, err
	}

	var errs validator.ValidationErrors
	if !validator.IsValidUUID(employeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	if order != "" && !validator.IsInSlice(strings.ToLower(order), []string{OrderAsc, OrderDesc}) {
		errs = append(errs, validator.ValidationError{Field: "order", Message: "must be asc or desc"})
	}
	if len(errs) > 0 {
		return payroll.LedgerResponse{}, errs
	}

	if !s.canViewAll(caller) && caller.EmployeeID != employeeID {
		return payroll.LedgerResponse{}, auth.ErrForbidden
	}

	emp, err := s.employeeRepo.GetByID(ctx, caller.CompanyID, employeeID)
	if err != nil {
		return payroll.LedgerResponse{}, err
	}

	resp := payroll.LedgerResponse{
		Employee:      employeeSummary(emp),
		SalaryHistory: []payroll.LedgerEntryResponse{},
		TotalPaid:     decimal.Zero,
		TotalPending:  decimal.Zero,
	}

	terms, c, err := s.resolveContract(ctx, emp)
	if c != nil {
		resp.Contract = contractSummary(*c, terms)
	}
	switch {
	case errors.Is(err, payroll.ErrNoActiveContract):
		resp.Message = strPtr(msgNoActiveContract)
		return resp, nil
	case errors.Is(err, payroll.ErrNoBaseSalary):
		resp.Message = strPtr(msgNoBaseSalary)
		return resp, nil
	case err != nil:
		return payroll.LedgerResponse{}, err
	}

	window := ComputeWindow(terms, emp.LifecycleStatus, s.now(), false)
	if window.Empty {
		resp.Message = strPtr(msgNotStarted)
		return resp, nil
	}

	var (
		bonuses BonusIndex
		records []payroll.PayrollEntry
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bonuses, err = s.aggregateBonuses(gCtx, emp.CompanyID, []string{emp.ID})
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.payrollRepo.List(gCtx, emp.CompanyID, payroll.EntryFilter{EmployeeIDs: []string{emp.ID}})
		if err != nil {
			return fmt.Errorf("list payroll entries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return payroll.LedgerResponse{}, err
	}

	ledger := MergeLedger(emp.ID, terms, window, IndexByPeriod(records)[emp.ID], bonuses)
	SortLedger(ledger, order)

	for _, e := range ledger {
		switch e.Status {
		case payroll.PaymentStatusPaid:
			resp.TotalPaid = resp.TotalPaid.Add(e.NetPay)
		case payroll.PaymentStatusPending, payroll.PaymentStatusProcessed:
			resp.TotalPending = resp.TotalPending.Add(e.NetPay)
		}
		resp.SalaryHistory = append(resp.SalaryHistory, entryResponse(e, emp))
	}

	return resp, nil
}

// ========== LISTING ==========

// ListEntries returns durable entries matching the filter. When none match,
// it falls back to the estimates of every in-scope employee and flags the
// response as estimated.
func (s *PayrollLedgerServiceImpl) ListEntries(ctx context.Context, filter payroll.ListFilter) (payroll.ListEntriesResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return payroll.ListEntriesResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return payroll.ListEntriesResponse{}, err
	}

	var employeeIDs []string
	switch {
	case s.canViewAll(caller):
		if filter.EmployeeID != nil {
			employeeIDs = []string{*filter.EmployeeID}
		}
	case caller.EmployeeID == "":
		return payroll.ListEntriesResponse{}, auth.ErrForbidden
	case filter.EmployeeID != nil && *filter.EmployeeID != caller.EmployeeID:
		return payroll.ListEntriesResponse{}, auth.ErrForbidden
	default:
		employeeIDs = []string{caller.EmployeeID}
	}

	entryFilter := payroll.EntryFilter{EmployeeIDs: employeeIDs}
	if filter.PayPeriod != nil {
		p, _ := payroll.ParsePayPeriod(*filter.PayPeriod)
		entryFilter.PayPeriod = &p
	}
	if filter.Status != nil {
		st, _ := payroll.ParsePaymentStatus(*filter.Status)
		entryFilter.Status = &st
	}
	if filter.Search != nil {
		entryFilter.Search = strings.TrimSpace(*filter.Search)
	}

	records, err := s.payrollRepo.List(ctx, caller.CompanyID, entryFilter)
	if err != nil {
		return payroll.ListEntriesResponse{}, fmt.Errorf("list payroll entries: %w", err)
	}
	if len(records) > 0 {
		data := make([]payroll.LedgerEntryResponse, 0, len(records))
		for _, r := range records {
			data = append(data, payroll.NewLedgerEntryResponse(payroll.DurableLedgerEntry(r)))
		}
		return payroll.ListEntriesResponse{Data: data, TotalCount: len(data)}, nil
	}

	data, err := s.listEstimates(ctx, caller.CompanyID, employeeIDs, entryFilter)
	if err != nil {
		return payroll.ListEntriesResponse{}, err
	}
	return payroll.ListEntriesResponse{Data: data, IsEstimated: true, TotalCount: len(data)}, nil
}

func (s *PayrollLedgerServiceImpl) listEstimates(ctx context.Context, companyID string, employeeIDs []string, filter payroll.EntryFilter) ([]payroll.LedgerEntryResponse, error) {
	employees, err := s.employeeRepo.List(ctx, companyID, employee.ListFilter{IDs: employeeIDs, Search: filter.Search})
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	data := []payroll.LedgerEntryResponse{}
	if len(employees) == 0 {
		return data, nil
	}

	in, err := s.loadLedgerInputs(ctx, companyID, employees)
	if err != nil {
		return nil, err
	}
	now := s.now()

	type row struct {
		entry payroll.LedgerEntry
		emp   employee.Employee
	}
	var rows []row
	for _, emp := range employees {
		t, ok := in.terms[emp.ID]
		if !ok {
			continue
		}
		window := ComputeWindow(t, emp.LifecycleStatus, now, false)
		// Durable rows were fetched unfiltered so their periods never reappear as estimates.
		for _, e := range MergeLedger(emp.ID, t, window, in.durable[emp.ID], in.bonuses) {
			if !e.IsEstimated() {
				continue
			}
			if filter.PayPeriod != nil && e.PayPeriod != *filter.PayPeriod {
				continue
			}
			if filter.Status != nil && e.Status != *filter.Status {
				continue
			}
			rows = append(rows, row{entry: e, emp: emp})
		}
	}

	slices.SortStableFunc(rows, func(a, b row) int {
		if c := b.entry.PayPeriod.Compare(a.entry.PayPeriod); c != 0 {
			return c
		}
		return strings.Compare(a.emp.FullName, b.emp.FullName)
	})

	for _, r := range rows {
		data = append(data, entryResponse(r.entry, r.emp))
	}
	return data, nil
}

// ========== STATUS UPDATES ==========

func (s *PayrollLedgerServiceImpl) UpdateStatus(ctx context.Context, req payroll.UpdateStatusRequest) (payroll.LedgerEntryResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if err := s.require(caller, user.PermissionPayrollUpdateStatus); err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.LedgerEntryResponse{}, err
	}

	period, _ := payroll.ParsePayPeriod(req.PayPeriod)
	status, _ := payroll.ParsePaymentStatus(req.Status)

	return s.setStatus(ctx, caller.CompanyID, req.EmployeeID, period, status)
}

// UpdateStatusByRef accepts either a durable entry ID or an estimate reference.
func (s *PayrollLedgerServiceImpl) UpdateStatusByRef(ctx context.Context, req payroll.UpdateStatusByRefRequest) (payroll.LedgerEntryResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if err := s.require(caller, user.PermissionPayrollUpdateStatus); err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.LedgerEntryResponse{}, err
	}

	ref, _ := payroll.ParseEntryRef(req.Ref)
	status, _ := payroll.ParsePaymentStatus(req.Status)

	employeeID, period := ref.EmployeeID, ref.PayPeriod
	if ref.Kind == payroll.EntryKindDurable {
		existing, err := s.payrollRepo.GetByID(ctx, caller.CompanyID, ref.EntryID)
		if err != nil {
			return payroll.LedgerEntryResponse{}, err
		}
		employeeID, period = existing.EmployeeID, existing.PayPeriod
	}

	return s.setStatus(ctx, caller.CompanyID, employeeID, period, status)
}

func (s *PayrollLedgerServiceImpl) setStatus(ctx context.Context, companyID, employeeID string, period payroll.PayPeriod, status payroll.PaymentStatus) (payroll.LedgerEntryResponse, error) {
	emp, err := s.employeeRepo.GetByID(ctx, companyID, employeeID)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}

	entry, err := s.Materialize(ctx, emp, period, status)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}

	return entryResponse(payroll.DurableLedgerEntry(entry), emp), nil
}

// ========== EXPLICIT CREATION ==========

func (s *PayrollLedgerServiceImpl) CreateEntry(ctx context.Context, req payroll.CreateEntryRequest) (payroll.LedgerEntryResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if err := s.require(caller, user.PermissionPayrollCreate); err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.LedgerEntryResponse{}, err
	}

	period, _ := payroll.ParsePayPeriod(req.PayPeriod)
	status := payroll.PaymentStatusPending
	if req.Status != "" {
		status, _ = payroll.ParsePaymentStatus(req.Status)
	}

	emp, err := s.employeeRepo.GetByID(ctx, caller.CompanyID, req.EmployeeID)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	terms, _, err := s.resolveContract(ctx, emp)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	if !contractCovers(terms, period) {
		return payroll.LedgerEntryResponse{}, payroll.ErrPeriodOutsideContract
	}
	bonuses, err := s.aggregateBonuses(ctx, emp.CompanyID, []string{emp.ID})
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}

	entry := payroll.PayrollEntry{
		EmployeeID: emp.ID,
		CompanyID:  emp.CompanyID,
		PayPeriod:  period,
		BaseSalary: terms.BaseSalary,
		Allowances: req.Allowances,
		Deductions: req.Deductions,
		Overtime:   req.Overtime,
		Bonuses:    bonuses.For(emp.ID, period),
		Tax:        req.Tax,
		Status:     status,
	}
	if status == payroll.PaymentStatusPaid {
		now := s.now()
		entry.PaymentDate = &now
	}
	entry.Recalculate()

	created, err := s.payrollRepo.Create(ctx, entry)
	if err != nil {
		return payroll.LedgerEntryResponse{}, err
	}
	s.afterWrite(ctx, created)

	return entryResponse(payroll.DurableLedgerEntry(created), emp), nil
}

// ========== HELPERS ==========

func employeeSummary(emp employee.Employee) payroll.EmployeeSummary {
	return payroll.EmployeeSummary{
		ID:              emp.ID,
		EmployeeCode:    emp.EmployeeCode,
		FullName:        emp.FullName,
		LifecycleStatus: string(emp.LifecycleStatus),
	}
}

func contractSummary(c contract.Contract, terms payroll.ContractTerms) *payroll.ContractSummary {
	summary := &payroll.ContractSummary{
		ID:           c.ID,
		BaseSalary:   terms.BaseSalary,
		StartDate:    c.StartDate.Format("2006-01-02"),
		IsIndefinite: c.IsIndefinite,
	}
	if c.EndDate != nil {
		end := c.EndDate.Format("2006-01-02")
		summary.EndDate = &end
	}
	return summary
}

func entryResponse(e payroll.LedgerEntry, emp employee.Employee) payroll.LedgerEntryResponse {
	resp := payroll.NewLedgerEntryResponse(e)
	if resp.EmployeeName == nil {
		resp.EmployeeName = strPtr(emp.FullName)
	}
	if resp.EmployeeCode == nil {
		resp.EmployeeCode = strPtr(emp.EmployeeCode)
	}
	return resp
}

func strPtr(s string) *string {
	return &s
}

func logger(ctx context.Context) *slog.Logger {
	if caller, err := auth.CallerFromContext(ctx); err == nil {
		return slog.Default().With(slog.String("company_id", caller.CompanyID), slog.String("user_id", caller.UserID))
	}
	return slog.Default()
}
