package payroll

import "context"

// PayrollLedgerService serves the ledger endpoints. The caller is read from ctx.
type PayrollLedgerService interface {
	GetLedger(ctx context.Context, employeeID string, order string) (LedgerResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (LedgerEntryResponse, error)
	UpdateStatusByRef(ctx context.Context, req UpdateStatusByRefRequest) (LedgerEntryResponse, error)
	ListEntries(ctx context.Context, filter ListFilter) (ListEntriesResponse, error)
	GetStats(ctx context.Context, filter StatsFilter) (StatsResponse, error)
	CreateEntry(ctx context.Context, req CreateEntryRequest) (LedgerEntryResponse, error)
}

// BonusSyncer brings a period's durable entry in line with posted bonuses.
type BonusSyncer interface {
	SyncBonus(ctx context.Context, companyID, employeeID string, period PayPeriod) (PayrollEntry, error)
	InvalidateStats(ctx context.Context, companyID string)
}

// StatsRefresher recomputes and caches organization-wide statistics.
type StatsRefresher interface {
	RefreshStats(ctx context.Context, companyID string) error
}

// EventPublisher delivers status change notifications.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}
