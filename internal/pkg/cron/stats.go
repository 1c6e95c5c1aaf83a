package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
)

// StatsJobs keeps organization-wide payroll statistics warm in the cache.
type StatsJobs struct {
	employeeRepo employee.EmployeeRepository
	refresher    payroll.StatsRefresher
	interval     time.Duration
	logger       *slog.Logger
}

func NewStatsJobs(employeeRepo employee.EmployeeRepository, refresher payroll.StatsRefresher, interval time.Duration, logger *slog.Logger) *StatsJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsJobs{
		employeeRepo: employeeRepo,
		refresher:    refresher,
		interval:     interval,
		logger:       logger,
	}
}

func (j *StatsJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:       "warm_payroll_stats",
		Interval:   j.interval,
		RunOnStart: true,
		Fn:         j.WarmPayrollStats,
	})
}

// WarmPayrollStats refreshes the cached statistics of every company. A
// failing company does not stop the others; the failures are joined.
func (j *StatsJobs) WarmPayrollStats(ctx context.Context) error {
	companyIDs, err := j.employeeRepo.ListCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("list companies: %w", err)
	}

	var errs []error
	for _, companyID := range companyIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := j.refresher.RefreshStats(ctx, companyID); err != nil {
			errs = append(errs, fmt.Errorf("company %s: %w", companyID, err))
		}
	}

	j.logger.Info("payroll stats warmed",
		slog.Int("company_count", len(companyIDs)),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}
