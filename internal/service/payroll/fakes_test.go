package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/contract"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/authz"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testCompanyID   = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testEmployeeID  = "0190a3b2-6c1d-7e4f-8a9b-0c1d2e3f4a5b"
	testEmployee2ID = "0190a3b2-6c1d-7e4f-8a9b-0c1d2e3f4a5c"
)

var testNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dp(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func period(y int, m time.Month) payroll.PayPeriod { return payroll.PayPeriod{Year: y, Month: m} }

func date(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

// ---------- repositories ----------

type fakePayrollRepo struct {
	mu      sync.Mutex
	entries map[string]payroll.PayrollEntry
	// beforeCreate runs ahead of the uniqueness check; tests use it to let a
	// competing writer win the insert.
	beforeCreate func()
	creates      int
	updates      int
}

func newFakePayrollRepo() *fakePayrollRepo {
	return &fakePayrollRepo{entries: make(map[string]payroll.PayrollEntry)}
}

func (r *fakePayrollRepo) seed(e payroll.PayrollEntry) payroll.PayrollEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CompanyID == "" {
		e.CompanyID = testCompanyID
	}
	r.entries[e.ID] = e
	return e
}

func (r *fakePayrollRepo) all() []payroll.PayrollEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payroll.PayrollEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

func (r *fakePayrollRepo) GetByID(_ context.Context, companyID, id string) (payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.CompanyID != companyID {
		return payroll.PayrollEntry{}, payroll.ErrEntryNotFound
	}
	return e, nil
}

func (r *fakePayrollRepo) GetByEmployeePeriod(_ context.Context, companyID, employeeID string, p payroll.PayPeriod) (payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.find(companyID, employeeID, p); ok {
		return e, nil
	}
	return payroll.PayrollEntry{}, payroll.ErrEntryNotFound
}

func (r *fakePayrollRepo) find(companyID, employeeID string, p payroll.PayPeriod) (payroll.PayrollEntry, bool) {
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.EmployeeID == employeeID && e.PayPeriod == p {
			return e, true
		}
	}
	return payroll.PayrollEntry{}, false
}

func (r *fakePayrollRepo) List(_ context.Context, companyID string, f payroll.EntryFilter) ([]payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payroll.PayrollEntry
	for _, e := range r.entries {
		if e.CompanyID != companyID {
			continue
		}
		if f.EmployeeIDs != nil && !slices.Contains(f.EmployeeIDs, e.EmployeeID) {
			continue
		}
		if f.PayPeriod != nil && e.PayPeriod != *f.PayPeriod {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b payroll.PayrollEntry) int { return b.PayPeriod.Compare(a.PayPeriod) })
	return out, nil
}

func (r *fakePayrollRepo) Create(_ context.Context, e payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.find(e.CompanyID, e.EmployeeID, e.PayPeriod); ok {
		return payroll.PayrollEntry{}, payroll.ErrEntryAlreadyExists
	}
	e.ID = uuid.NewString()
	e.CreatedAt = testNow
	e.UpdatedAt = testNow
	r.entries[e.ID] = e
	r.creates++
	return e, nil
}

func (r *fakePayrollRepo) Update(_ context.Context, e payroll.PayrollEntry) (payroll.PayrollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.ID]; !ok {
		return payroll.PayrollEntry{}, payroll.ErrEntryNotFound
	}
	e.UpdatedAt = testNow
	r.entries[e.ID] = e
	r.updates++
	return e, nil
}

type fakeEmployeeRepo struct {
	mu        sync.Mutex
	employees map[string]employee.Employee
	listCalls int
	// listHook runs before List filters, letting a test hold a computation open.
	listHook func(ctx context.Context) error
}

func (r *fakeEmployeeRepo) GetByID(_ context.Context, companyID, id string) (employee.Employee, error) {
	e, ok := r.employees[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *fakeEmployeeRepo) List(ctx context.Context, companyID string, f employee.ListFilter) ([]employee.Employee, error) {
	r.mu.Lock()
	r.listCalls++
	hook := r.listHook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	var out []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID != companyID {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, e.ID) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.FullName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b employee.Employee) int { return strings.Compare(a.FullName, b.FullName) })
	return out, nil
}

func (r *fakeEmployeeRepo) ListCompanyIDs(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, e := range r.employees {
		if !seen[e.CompanyID] {
			seen[e.CompanyID] = true
			ids = append(ids, e.CompanyID)
		}
	}
	return ids, nil
}

func (r *fakeEmployeeRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type fakeContractRepo struct {
	contracts map[string]contract.Contract
}

func (r *fakeContractRepo) GetActiveByEmployeeID(_ context.Context, companyID, employeeID string) (contract.Contract, error) {
	c, ok := r.contracts[employeeID]
	if !ok || c.CompanyID != companyID {
		return contract.Contract{}, contract.ErrContractNotFound
	}
	return c, nil
}

func (r *fakeContractRepo) GetActiveByEmployeeIDs(_ context.Context, companyID string, ids []string) (map[string]contract.Contract, error) {
	out := make(map[string]contract.Contract)
	for id, c := range r.contracts {
		if c.CompanyID != companyID {
			continue
		}
		if ids != nil && !slices.Contains(ids, id) {
			continue
		}
		out[id] = c
	}
	return out, nil
}

type fakeRewardRepo struct {
	mu      sync.Mutex
	rewards []reward.Reward
}

func (r *fakeRewardRepo) Create(_ context.Context, rw reward.Reward) (reward.Reward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rw.ID = uuid.NewString()
	r.rewards = append(r.rewards, rw)
	return rw, nil
}

func (r *fakeRewardRepo) ListByEmployeeIDs(_ context.Context, companyID string, ids []string, category reward.Category) ([]reward.Reward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reward.Reward
	for _, rw := range r.rewards {
		if rw.CompanyID != companyID || rw.Category != category {
			continue
		}
		if ids != nil && !slices.Contains(ids, rw.EmployeeID) {
			continue
		}
		out = append(out, rw)
	}
	return out, nil
}

func (r *fakeRewardRepo) add(employeeID string, amount int64, p *payroll.PayPeriod, on time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards = append(r.rewards, reward.Reward{
		ID:         uuid.NewString(),
		CompanyID:  testCompanyID,
		EmployeeID: employeeID,
		Amount:     d(amount),
		Category:   reward.CategoryBonus,
		PayPeriod:  p,
		Date:       on,
	})
}

// ---------- collaborators ----------

type memoryStatsCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	versions map[string]int64
}

func newMemoryStatsCache() *memoryStatsCache {
	return &memoryStatsCache{data: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *memoryStatsCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryStatsCache) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryStatsCache) Version(_ context.Context, companyID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[companyID], nil
}

func (c *memoryStatsCache) Bump(_ context.Context, companyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[companyID]++
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []payroll.StatusChangedEvent
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e payroll.StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

// ---------- fixture ----------

type fixture struct {
	svc       *PayrollLedgerServiceImpl
	payroll   *fakePayrollRepo
	employees *fakeEmployeeRepo
	contracts *fakeContractRepo
	rewards   *fakeRewardRepo
	cache     *memoryStatsCache
	publisher *recordingPublisher
}

// newFixture seeds the canonical employee: contract from 2024-03-01 at
// 15,000,000 with a 2,000,000 bonus tagged 2024-05, "now" 2024-06-15.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	enforcer, err := authz.NewEnforcer(user.RolePermissions)
	require.NoError(t, err)

	f := &fixture{
		payroll: newFakePayrollRepo(),
		employees: &fakeEmployeeRepo{employees: map[string]employee.Employee{
			testEmployeeID: {
				ID:              testEmployeeID,
				CompanyID:       testCompanyID,
				EmployeeCode:    "EMP-001",
				FullName:        "Siti Rahma",
				LifecycleStatus: employee.LifecycleStatusActive,
			},
		}},
		contracts: &fakeContractRepo{contracts: map[string]contract.Contract{
			testEmployeeID: {
				ID:           "k-1",
				EmployeeID:   testEmployeeID,
				CompanyID:    testCompanyID,
				BaseSalary:   dp(15_000_000),
				StartDate:    date(2024, time.March, 1),
				IsIndefinite: true,
				Status:       contract.StatusActive,
			},
		}},
		rewards:   &fakeRewardRepo{},
		cache:     newMemoryStatsCache(),
		publisher: &recordingPublisher{},
	}
	may := period(2024, time.May)
	f.rewards.add(testEmployeeID, 2_000_000, &may, date(2024, time.June, 2))

	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithStatsCache(f.cache),
		WithEventPublisher(f.publisher),
	}
	f.svc = NewPayrollLedgerService(f.payroll, f.employees, f.contracts, f.rewards, enforcer, append(base, opts...)...)
	return f
}

func (f *fixture) addEmployee(id, name string, status employee.LifecycleStatus, c contract.Contract) {
	f.employees.employees[id] = employee.Employee{
		ID:              id,
		CompanyID:       testCompanyID,
		EmployeeCode:    fmt.Sprintf("EMP-%d", len(f.employees.employees)+1),
		FullName:        name,
		LifecycleStatus: status,
	}
	c.EmployeeID = id
	c.CompanyID = testCompanyID
	f.contracts.contracts[id] = c
}

func hrContext() context.Context {
	return auth.WithCaller(context.Background(), auth.Caller{UserID: "u-hr", CompanyID: testCompanyID, Role: user.RoleHR})
}

func employeeContext(employeeID string) context.Context {
	return auth.WithCaller(context.Background(), auth.Caller{UserID: "u-emp", EmployeeID: employeeID, CompanyID: testCompanyID, Role: user.RoleEmployee})
}
