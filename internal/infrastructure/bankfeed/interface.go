package bankfeed

import (
	"context"
	"time"
)

// ClientInterface defines the methods required from the bank feed API client
type ClientInterface interface {
	ExchangeCode(ctx context.Context, authorizationCode string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)
	GetTransactions(ctx context.Context, accessToken string, params TransactionQuery) (*TransactionPage, error)
	RegisterWebhook(ctx context.Context, accessToken, callbackURL string) (*WebhookRegistration, error)
	DeleteWebhook(ctx context.Context, accessToken, webhookID string) error
}

// TransactionQuery narrows a transaction fetch to one upstream account and
// date range. Before is optional; a zero value leaves the window open-ended.
// Cursor is the opaque pagination token from a previous page.
type TransactionQuery struct {
	AccountID string
	Since     time.Time
	Before    time.Time
	Cursor    string
	Limit     int
}
