package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentledger/internal/domain/account"
	"rentledger/internal/domain/ledger"
	"rentledger/internal/domain/property"
	"rentledger/internal/domain/rule"
	syncsvc "rentledger/internal/domain/sync"
	"rentledger/internal/domain/transaction"
	upstream "rentledger/internal/infrastructure/bankfeed"
)

// MockAccountRepo implements account.Repository for testing
type MockAccountRepo struct {
	CreateFunc                 func(ctx context.Context, params account.CreateLinkedAccountParams) (*account.LinkedAccount, error)
	GetByIDFunc                func(ctx context.Context, id string) (*account.LinkedAccount, error)
	GetByUpstreamAccountIDFunc func(ctx context.Context, upstreamAccountID string) (*account.LinkedAccount, error)
	ListFunc                   func(ctx context.Context) ([]*account.LinkedAccount, error)
	ListSyncEnabledFunc        func(ctx context.Context) ([]*account.LinkedAccount, error)
	UpdateTokensFunc           func(ctx context.Context, id string, update account.TokenUpdate) error
	UpdateSyncStatusFunc       func(ctx context.Context, id string, status string, syncedAt time.Time) error
}

func (m *MockAccountRepo) Create(ctx context.Context, params account.CreateLinkedAccountParams) (*account.LinkedAccount, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*account.LinkedAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, account.ErrAccountNotFound
}
func (m *MockAccountRepo) GetByUpstreamAccountID(ctx context.Context, upstreamAccountID string) (*account.LinkedAccount, error) {
	if m.GetByUpstreamAccountIDFunc != nil {
		return m.GetByUpstreamAccountIDFunc(ctx, upstreamAccountID)
	}
	return nil, account.ErrAccountNotFound
}
func (m *MockAccountRepo) List(ctx context.Context) ([]*account.LinkedAccount, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}
func (m *MockAccountRepo) ListSyncEnabled(ctx context.Context) ([]*account.LinkedAccount, error) {
	if m.ListSyncEnabledFunc != nil {
		return m.ListSyncEnabledFunc(ctx)
	}
	return nil, nil
}
func (m *MockAccountRepo) UpdateTokens(ctx context.Context, id string, update account.TokenUpdate) error {
	if m.UpdateTokensFunc != nil {
		return m.UpdateTokensFunc(ctx, id, update)
	}
	return nil
}
func (m *MockAccountRepo) UpdateSyncStatus(ctx context.Context, id string, status string, syncedAt time.Time) error {
	if m.UpdateSyncStatusFunc != nil {
		return m.UpdateSyncStatusFunc(ctx, id, status, syncedAt)
	}
	return nil
}

// MockTransactionRepo implements transaction.Repository for testing
type MockTransactionRepo struct {
	CreateFunc              func(ctx context.Context, params transaction.CreateRawTransactionParams) (*transaction.RawTransaction, error)
	GetByIDFunc             func(ctx context.Context, id string) (*transaction.RawTransaction, error)
	GetByExternalIDFunc     func(ctx context.Context, linkedAccountID, externalID string) (*transaction.RawTransaction, error)
	ListByAccountIDFunc     func(ctx context.Context, linkedAccountID string, limit, offset int) ([]*transaction.RawTransaction, error)
	FindFuzzyCandidatesFunc func(ctx context.Context, criteria transaction.FuzzyCandidateCriteria) ([]*transaction.RawTransaction, error)
	LinkLedgerEntryFunc     func(ctx context.Context, id, ledgerEntryID string) error
	LinkPendingEntryFunc    func(ctx context.Context, id, pendingEntryID string) error
}

func (m *MockTransactionRepo) Create(ctx context.Context, params transaction.CreateRawTransactionParams) (*transaction.RawTransaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*transaction.RawTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockTransactionRepo) GetByExternalID(ctx context.Context, linkedAccountID, externalID string) (*transaction.RawTransaction, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, linkedAccountID, externalID)
	}
	return nil, nil
}
func (m *MockTransactionRepo) ListByAccountID(ctx context.Context, linkedAccountID string, limit, offset int) ([]*transaction.RawTransaction, error) {
	if m.ListByAccountIDFunc != nil {
		return m.ListByAccountIDFunc(ctx, linkedAccountID, limit, offset)
	}
	return nil, nil
}
func (m *MockTransactionRepo) FindFuzzyCandidates(ctx context.Context, criteria transaction.FuzzyCandidateCriteria) ([]*transaction.RawTransaction, error) {
	if m.FindFuzzyCandidatesFunc != nil {
		return m.FindFuzzyCandidatesFunc(ctx, criteria)
	}
	return nil, nil
}
func (m *MockTransactionRepo) LinkLedgerEntry(ctx context.Context, id, ledgerEntryID string) error {
	if m.LinkLedgerEntryFunc != nil {
		return m.LinkLedgerEntryFunc(ctx, id, ledgerEntryID)
	}
	return nil
}
func (m *MockTransactionRepo) LinkPendingEntry(ctx context.Context, id, pendingEntryID string) error {
	if m.LinkPendingEntryFunc != nil {
		return m.LinkPendingEntryFunc(ctx, id, pendingEntryID)
	}
	return nil
}

// MockRuleRepo implements rule.Repository for testing
type MockRuleRepo struct {
	CreateFunc         func(ctx context.Context, params rule.CreateMatchingRuleParams) (*rule.MatchingRule, error)
	GetByIDFunc        func(ctx context.Context, id string) (*rule.MatchingRule, error)
	ListFunc           func(ctx context.Context) ([]*rule.MatchingRule, error)
	ListForAccountFunc func(ctx context.Context, linkedAccountID string) ([]*rule.MatchingRule, error)
	UpdateFunc         func(ctx context.Context, r *rule.MatchingRule) error
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockRuleRepo) Create(ctx context.Context, params rule.CreateMatchingRuleParams) (*rule.MatchingRule, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockRuleRepo) GetByID(ctx context.Context, id string) (*rule.MatchingRule, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, rule.ErrRuleNotFound
}
func (m *MockRuleRepo) List(ctx context.Context) ([]*rule.MatchingRule, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}
func (m *MockRuleRepo) ListForAccount(ctx context.Context, linkedAccountID string) ([]*rule.MatchingRule, error) {
	if m.ListForAccountFunc != nil {
		return m.ListForAccountFunc(ctx, linkedAccountID)
	}
	return nil, nil
}
func (m *MockRuleRepo) Update(ctx context.Context, r *rule.MatchingRule) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	return nil
}
func (m *MockRuleRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockLedgerRepo implements ledger.Repository for testing
type MockLedgerRepo struct {
	CreateLedgerEntryFunc           func(ctx context.Context, params ledger.CreateLedgerEntryParams) (*ledger.LedgerEntry, error)
	GetLedgerEntryByIDFunc          func(ctx context.Context, id string) (*ledger.LedgerEntry, error)
	ListLedgerEntriesByPropertyFunc func(ctx context.Context, propertyID string, limit, offset int) ([]*ledger.LedgerEntry, error)
	CreatePendingEntryFunc          func(ctx context.Context, params ledger.CreatePendingEntryParams) (*ledger.PendingEntry, error)
	GetPendingEntryByIDFunc         func(ctx context.Context, id string) (*ledger.PendingEntry, error)
	ListPendingEntriesFunc          func(ctx context.Context, limit, offset int) ([]*ledger.PendingEntry, error)
}

func (m *MockLedgerRepo) CreateLedgerEntry(ctx context.Context, params ledger.CreateLedgerEntryParams) (*ledger.LedgerEntry, error) {
	if m.CreateLedgerEntryFunc != nil {
		return m.CreateLedgerEntryFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockLedgerRepo) GetLedgerEntryByID(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
	if m.GetLedgerEntryByIDFunc != nil {
		return m.GetLedgerEntryByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockLedgerRepo) ListLedgerEntriesByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*ledger.LedgerEntry, error) {
	if m.ListLedgerEntriesByPropertyFunc != nil {
		return m.ListLedgerEntriesByPropertyFunc(ctx, propertyID, limit, offset)
	}
	return nil, nil
}
func (m *MockLedgerRepo) CreatePendingEntry(ctx context.Context, params ledger.CreatePendingEntryParams) (*ledger.PendingEntry, error) {
	if m.CreatePendingEntryFunc != nil {
		return m.CreatePendingEntryFunc(ctx, params)
	}
	return nil, nil
}
func (m *MockLedgerRepo) GetPendingEntryByID(ctx context.Context, id string) (*ledger.PendingEntry, error) {
	if m.GetPendingEntryByIDFunc != nil {
		return m.GetPendingEntryByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockLedgerRepo) ListPendingEntries(ctx context.Context, limit, offset int) ([]*ledger.PendingEntry, error) {
	if m.ListPendingEntriesFunc != nil {
		return m.ListPendingEntriesFunc(ctx, limit, offset)
	}
	return nil, nil
}

// MockPropertyRepo implements property.Repository for testing
type MockPropertyRepo struct {
	GetByIDFunc func(ctx context.Context, id string) (*property.Property, error)
	ExistsFunc  func(ctx context.Context, id string) (bool, error)
	ListFunc    func(ctx context.Context) ([]*property.Property, error)
}

func (m *MockPropertyRepo) GetByID(ctx context.Context, id string) (*property.Property, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockPropertyRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}
func (m *MockPropertyRepo) List(ctx context.Context) ([]*property.Property, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// MockSyncer implements Syncer and TransactionIngester for testing
type MockSyncer struct {
	SyncAccountFunc       func(ctx context.Context, accountID string) (*syncsvc.Report, error)
	IngestTransactionFunc func(ctx context.Context, accountID string, tx upstream.Transaction) (*syncsvc.Report, error)
}

func (m *MockSyncer) SyncAccount(ctx context.Context, accountID string) (*syncsvc.Report, error) {
	if m.SyncAccountFunc != nil {
		return m.SyncAccountFunc(ctx, accountID)
	}
	return nil, errors.New("not configured")
}
func (m *MockSyncer) IngestTransaction(ctx context.Context, accountID string, tx upstream.Transaction) (*syncsvc.Report, error) {
	if m.IngestTransactionFunc != nil {
		return m.IngestTransactionFunc(ctx, accountID, tx)
	}
	return nil, errors.New("not configured")
}

// MockClient implements the upstream client interface for testing
type MockClient struct {
	ExchangeCodeFunc    func(ctx context.Context, authorizationCode string) (*upstream.TokenResponse, error)
	RefreshTokenFunc    func(ctx context.Context, refreshToken string) (*upstream.TokenResponse, error)
	GetAccountsFunc     func(ctx context.Context, accessToken string) ([]upstream.Account, error)
	GetTransactionsFunc func(ctx context.Context, accessToken string, params upstream.TransactionQuery) (*upstream.TransactionPage, error)
	RegisterWebhookFunc func(ctx context.Context, accessToken, callbackURL string) (*upstream.WebhookRegistration, error)
	DeleteWebhookFunc   func(ctx context.Context, accessToken, webhookID string) error
}

func (m *MockClient) ExchangeCode(ctx context.Context, authorizationCode string) (*upstream.TokenResponse, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, authorizationCode)
	}
	return nil, errors.New("not configured")
}
func (m *MockClient) RefreshToken(ctx context.Context, refreshToken string) (*upstream.TokenResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, errors.New("not configured")
}
func (m *MockClient) GetAccounts(ctx context.Context, accessToken string) ([]upstream.Account, error) {
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx, accessToken)
	}
	return nil, nil
}
func (m *MockClient) GetTransactions(ctx context.Context, accessToken string, params upstream.TransactionQuery) (*upstream.TransactionPage, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, accessToken, params)
	}
	return nil, errors.New("not configured")
}
func (m *MockClient) RegisterWebhook(ctx context.Context, accessToken, callbackURL string) (*upstream.WebhookRegistration, error) {
	if m.RegisterWebhookFunc != nil {
		return m.RegisterWebhookFunc(ctx, accessToken, callbackURL)
	}
	return nil, errors.New("not configured")
}
func (m *MockClient) DeleteWebhook(ctx context.Context, accessToken, webhookID string) error {
	if m.DeleteWebhookFunc != nil {
		return m.DeleteWebhookFunc(ctx, accessToken, webhookID)
	}
	return nil
}

// fakeEncryptor prefixes plaintext so tests can follow values through
// handlers without real AES.
type fakeEncryptor struct{}

func (fakeEncryptor) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}
func (fakeEncryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("bad ciphertext")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func strPtr(s string) *string { return &s }
