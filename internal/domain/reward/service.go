package reward

import "context"

type RewardService interface {
	// PostBonus records a bonus for the caller's company and syncs the period's payroll entry.
	PostBonus(ctx context.Context, req PostBonusRequest) (RewardResponse, error)
	// PostBonusFromEvent is the event-driven form; the company comes from the event.
	PostBonusFromEvent(ctx context.Context, event BonusPostedEvent) (RewardResponse, error)
}
