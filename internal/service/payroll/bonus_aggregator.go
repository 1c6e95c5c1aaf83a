package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/reward"
	"github.com/shopspring/decimal"
)

// BonusIndex maps employee ID to per-period bonus totals.
type BonusIndex map[string]map[payroll.PayPeriod]decimal.Decimal

// BuildBonusIndex sums BONUS rewards by employee and period. Other categories are ignored.
func BuildBonusIndex(rewards []reward.Reward) BonusIndex {
	idx := make(BonusIndex)
	for _, r := range rewards {
		if r.Category != reward.CategoryBonus {
			continue
		}
		periods, ok := idx[r.EmployeeID]
		if !ok {
			periods = make(map[payroll.PayPeriod]decimal.Decimal)
			idx[r.EmployeeID] = periods
		}
		p := r.Period()
		periods[p] = periods[p].Add(r.Amount)
	}
	return idx
}

// For returns the bonus total for one employee and period, zero if none.
func (b BonusIndex) For(employeeID string, p payroll.PayPeriod) decimal.Decimal {
	if v, ok := b[employeeID][p]; ok {
		return v
	}
	return decimal.Zero
}

// aggregateBonuses loads BONUS rewards for employeeIDs (nil for the whole company).
func (s *PayrollLedgerServiceImpl) aggregateBonuses(ctx context.Context, companyID string, employeeIDs []string) (BonusIndex, error) {
	rewards, err := s.rewardRepo.ListByEmployeeIDs(ctx, companyID, employeeIDs, reward.CategoryBonus)
	if err != nil {
		return nil, fmt.Errorf("aggregate bonuses: %w", err)
	}
	return BuildBonusIndex(rewards), nil
}
