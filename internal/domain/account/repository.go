package account

import (
	"context"
	"time"
)

// Repository defines the interface for linked account data access
type Repository interface {
	Create(ctx context.Context, params CreateLinkedAccountParams) (*LinkedAccount, error)
	GetByID(ctx context.Context, id string) (*LinkedAccount, error)
	// GetByUpstreamAccountID resolves the account a webhook payload refers to.
	GetByUpstreamAccountID(ctx context.Context, upstreamAccountID string) (*LinkedAccount, error)
	List(ctx context.Context) ([]*LinkedAccount, error)
	ListSyncEnabled(ctx context.Context) ([]*LinkedAccount, error)
	// UpdateTokens replaces the token set atomically (single UPDATE covering
	// access token, refresh token, and expiry together).
	UpdateTokens(ctx context.Context, id string, update TokenUpdate) error
	// UpdateSyncStatus records the outcome and timestamp of a sync run.
	UpdateSyncStatus(ctx context.Context, id string, status string, syncedAt time.Time) error
}
