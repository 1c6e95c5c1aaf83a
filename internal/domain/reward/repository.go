package reward

import "context"

type RewardRepository interface {
	// Create returns ErrDuplicateEvent when SourceEventID was already recorded.
	Create(ctx context.Context, r Reward) (Reward, error)
	// ListByEmployeeIDs lists rewards of one category. Nil IDs means the whole company.
	ListByEmployeeIDs(ctx context.Context, companyID string, employeeIDs []string, category Category) ([]Reward, error)
}
