package transaction

import (
	"context"
	"time"
)

// FuzzyCandidateCriteria defines the search window for potential fuzzy
// duplicates: same account, identical signed amount, transaction date
// within the given bounds.
type FuzzyCandidateCriteria struct {
	LinkedAccountID string
	Amount          float64
	DateLowerBound  time.Time
	DateUpperBound  time.Time
	Limit           int // newest-first candidate cap
}

// Repository defines the interface for raw transaction data access
type Repository interface {
	// Create persists a raw transaction. Returns ErrDuplicateTransaction
	// when the (linked account, external id) pair already exists.
	Create(ctx context.Context, params CreateRawTransactionParams) (*RawTransaction, error)
	GetByID(ctx context.Context, id string) (*RawTransaction, error)
	// GetByExternalID returns nil, nil when no matching row exists.
	GetByExternalID(ctx context.Context, linkedAccountID, externalID string) (*RawTransaction, error)
	ListByAccountID(ctx context.Context, linkedAccountID string, limit, offset int) ([]*RawTransaction, error)
	// FindFuzzyCandidates returns candidates ordered newest-first, capped
	// at criteria.Limit.
	FindFuzzyCandidates(ctx context.Context, criteria FuzzyCandidateCriteria) ([]*RawTransaction, error)
	// LinkLedgerEntry and LinkPendingEntry attach the single persisted
	// outcome of classification to the raw row.
	LinkLedgerEntry(ctx context.Context, id, ledgerEntryID string) error
	LinkPendingEntry(ctx context.Context, id, pendingEntryID string) error
}
