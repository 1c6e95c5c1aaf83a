package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
)

const rewardSourceEventConstraint = "uq_rewards_source_event_id"

type rewardRepositoryImpl struct {
	db database.Querier
}

func NewRewardRepository(db database.Querier) reward.RewardRepository {
	return &rewardRepositoryImpl{db: db}
}

func (r *rewardRepositoryImpl) Create(ctx context.Context, rw reward.Reward) (reward.Reward, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO rewards (company_id, employee_id, amount, category, pay_period, reward_date, note, source_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	var period *string
	if rw.PayPeriod != nil && !rw.PayPeriod.IsZero() {
		s := rw.PayPeriod.String()
		period = &s
	}

	err := q.QueryRow(ctx, query,
		rw.CompanyID, rw.EmployeeID, rw.Amount, string(rw.Category), period, rw.Date, rw.Note, rw.SourceEventID,
	).Scan(&rw.ID, &rw.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, rewardSourceEventConstraint) {
			return reward.Reward{}, reward.ErrDuplicateEvent
		}
		return reward.Reward{}, fmt.Errorf("failed to create reward: %w", err)
	}

	return rw, nil
}

func (r *rewardRepositoryImpl) ListByEmployeeIDs(ctx context.Context, companyID string, employeeIDs []string, category reward.Category) ([]reward.Reward, error) {
	if employeeIDs != nil && len(employeeIDs) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `SELECT id, company_id, employee_id, amount, category, pay_period, reward_date, note, source_event_id, created_at
		FROM rewards
		WHERE company_id = $1 AND category = $2`
	args := []interface{}{companyID, string(category)}
	if employeeIDs != nil {
		query += ` AND employee_id = ANY($3)`
		args = append(args, employeeIDs)
	}
	query += ` ORDER BY reward_date, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []reward.Reward
	for rows.Next() {
		var (
			rw     reward.Reward
			period *string
		)
		if err := rows.Scan(
			&rw.ID, &rw.CompanyID, &rw.EmployeeID, &rw.Amount, &rw.Category, &period,
			&rw.Date, &rw.Note, &rw.SourceEventID, &rw.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		if period != nil {
			p, err := payroll.ParsePayPeriod(*period)
			if err != nil {
				return nil, fmt.Errorf("reward %s: %w", rw.ID, err)
			}
			rw.PayPeriod = &p
		}
		rewards = append(rewards, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rewards: %w", err)
	}

	return rewards, nil
}
