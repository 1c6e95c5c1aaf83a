package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/repository/postgresql"
)

type RewardServiceImpl struct {
	db           database.Pool
	rewardRepo   reward.RewardRepository
	employeeRepo employee.EmployeeRepository
	bonusSyncer  payroll.BonusSyncer
	authorizer   auth.Authorizer
}

func NewRewardService(
	db database.Pool,
	rewardRepo reward.RewardRepository,
	employeeRepo employee.EmployeeRepository,
	bonusSyncer payroll.BonusSyncer,
	authorizer auth.Authorizer,
) reward.RewardService {
	return &RewardServiceImpl{
		db:           db,
		rewardRepo:   rewardRepo,
		employeeRepo: employeeRepo,
		bonusSyncer:  bonusSyncer,
		authorizer:   authorizer,
	}
}

// PostBonus implements reward.RewardService.
func (s *RewardServiceImpl) PostBonus(ctx context.Context, req reward.PostBonusRequest) (reward.RewardResponse, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil {
		return reward.RewardResponse{}, err
	}
	if !s.authorizer.Can(caller.Role, user.PermissionRewardPostBonus) {
		return reward.RewardResponse{}, auth.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return reward.RewardResponse{}, err
	}

	return s.post(ctx, caller.CompanyID, req, nil)
}

// PostBonusFromEvent implements reward.RewardService.
func (s *RewardServiceImpl) PostBonusFromEvent(ctx context.Context, event reward.BonusPostedEvent) (reward.RewardResponse, error) {
	if validator.IsEmpty(event.EventID) {
		return reward.RewardResponse{}, fmt.Errorf("%w: event_id is required", reward.ErrInvalidEvent)
	}
	if !validator.IsValidUUID(event.CompanyID) {
		return reward.RewardResponse{}, fmt.Errorf("%w: company_id must be a valid UUID", reward.ErrInvalidEvent)
	}

	req := reward.PostBonusRequest{
		EmployeeID: event.EmployeeID,
		Amount:     event.Amount,
		Date:       event.Date,
		PayPeriod:  event.PayPeriod,
		Note:       event.Note,
	}
	if err := req.Validate(); err != nil {
		return reward.RewardResponse{}, fmt.Errorf("%w: %v", reward.ErrInvalidEvent, err)
	}

	return s.post(ctx, event.CompanyID, req, &event.EventID)
}

// post records the bonus and syncs the target period's payroll entry in one
// transaction. A bonus for an employee without payroll is kept as a plain reward.
func (s *RewardServiceImpl) post(ctx context.Context, companyID string, req reward.PostBonusRequest, sourceEventID *string) (reward.RewardResponse, error) {
	var resp reward.RewardResponse

	err := postgresql.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		emp, err := s.employeeRepo.GetByID(txCtx, companyID, req.EmployeeID)
		if err != nil {
			return err
		}

		date, _ := validator.IsValidDate(req.Date)
		rw := reward.Reward{
			CompanyID:     companyID,
			EmployeeID:    emp.ID,
			Amount:        req.Amount,
			Category:      reward.CategoryBonus,
			Date:          date,
			Note:          req.Note,
			SourceEventID: sourceEventID,
		}
		if req.PayPeriod != nil {
			p, err := payroll.ParsePayPeriod(*req.PayPeriod)
			if err != nil {
				return err
			}
			rw.PayPeriod = &p
		}

		created, err := s.rewardRepo.Create(txCtx, rw)
		if err != nil {
			return err
		}
		resp = newRewardResponse(created)

		entry, err := s.bonusSyncer.SyncBonus(txCtx, companyID, emp.ID, created.Period())
		switch {
		case errors.Is(err, payroll.ErrNoActiveContract),
			errors.Is(err, payroll.ErrNoBaseSalary),
			errors.Is(err, payroll.ErrPeriodOutsideContract):
			slog.Warn("bonus recorded without payroll entry",
				slog.String("company_id", companyID),
				slog.String("employee_id", emp.ID),
				slog.String("pay_period", created.Period().String()),
				slog.String("reason", err.Error()),
			)
			return nil
		case err != nil:
			return fmt.Errorf("sync payroll entry: %w", err)
		}

		le := payroll.NewLedgerEntryResponse(payroll.DurableLedgerEntry(entry))
		resp.Entry = &le
		return nil
	})
	if err != nil {
		return reward.RewardResponse{}, err
	}

	// Only after commit, or a concurrent reader could recache the old totals.
	s.bonusSyncer.InvalidateStats(ctx, companyID)
	return resp, nil
}

func newRewardResponse(r reward.Reward) reward.RewardResponse {
	return reward.RewardResponse{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Amount:     r.Amount,
		Category:   r.Category,
		PayPeriod:  r.Period(),
		Date:       r.Date.Format("2006-01-02"),
		Note:       r.Note,
	}
}
