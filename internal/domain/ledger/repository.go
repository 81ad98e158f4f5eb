package ledger

import (
	"context"
)

// Repository defines the interface for ledger and pending entry data access
type Repository interface {
	CreateLedgerEntry(ctx context.Context, params CreateLedgerEntryParams) (*LedgerEntry, error)
	GetLedgerEntryByID(ctx context.Context, id string) (*LedgerEntry, error)
	ListLedgerEntriesByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*LedgerEntry, error)
	CreatePendingEntry(ctx context.Context, params CreatePendingEntryParams) (*PendingEntry, error)
	GetPendingEntryByID(ctx context.Context, id string) (*PendingEntry, error)
	ListPendingEntries(ctx context.Context, limit, offset int) ([]*PendingEntry, error)
}
