package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentledger/internal/domain/account"
	"rentledger/internal/domain/ingestion"
	"rentledger/internal/infrastructure/bankfeed"
	"rentledger/internal/shared/progress"
)

type MockAccountRepo struct {
	GetByIDFunc          func(ctx context.Context, id string) (*account.LinkedAccount, error)
	ListSyncEnabledFunc  func(ctx context.Context) ([]*account.LinkedAccount, error)
	UpdateSyncStatusFunc func(ctx context.Context, id string, status string, syncedAt time.Time) error
}

func (m *MockAccountRepo) Create(ctx context.Context, params account.CreateLinkedAccountParams) (*account.LinkedAccount, error) {
	return nil, nil
}
func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*account.LinkedAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, account.ErrAccountNotFound
}
func (m *MockAccountRepo) GetByUpstreamAccountID(ctx context.Context, upstreamAccountID string) (*account.LinkedAccount, error) {
	return nil, account.ErrAccountNotFound
}
func (m *MockAccountRepo) List(ctx context.Context) ([]*account.LinkedAccount, error) {
	return nil, nil
}
func (m *MockAccountRepo) ListSyncEnabled(ctx context.Context) ([]*account.LinkedAccount, error) {
	if m.ListSyncEnabledFunc != nil {
		return m.ListSyncEnabledFunc(ctx)
	}
	return nil, nil
}
func (m *MockAccountRepo) UpdateTokens(ctx context.Context, id string, update account.TokenUpdate) error {
	return nil
}
func (m *MockAccountRepo) UpdateSyncStatus(ctx context.Context, id string, status string, syncedAt time.Time) error {
	if m.UpdateSyncStatusFunc != nil {
		return m.UpdateSyncStatusFunc(ctx, id, status, syncedAt)
	}
	return nil
}

type MockFetcher struct {
	FetchTransactionsFunc func(ctx context.Context, acct *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error)
}

func (m *MockFetcher) FetchTransactions(ctx context.Context, acct *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
	if m.FetchTransactionsFunc != nil {
		return m.FetchTransactionsFunc(ctx, acct, since, pageLimit)
	}
	return nil, nil
}

type MockIngester struct {
	ProcessFunc func(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error)
}

func (m *MockIngester) Process(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, acct, batch)
	}
	return &ingestion.Result{}, nil
}

func syncTestAccount() *account.LinkedAccount {
	return &account.LinkedAccount{
		ID:            "acct-1",
		SyncEnabled:   true,
		SyncStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func upstreamTx(id string, amountMinor int64) bankfeed.Transaction {
	return bankfeed.Transaction{
		ID:          id,
		AmountMinor: amountMinor,
		Currency:    "GBP",
		Description: "RENT",
		BookedAt:    "2025-06-10T00:00:00Z",
	}
}

func TestSyncAccount_Success(t *testing.T) {
	var statuses []string
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
		UpdateSyncStatusFunc: func(ctx context.Context, id string, status string, syncedAt time.Time) error {
			statuses = append(statuses, status)
			return nil
		},
	}
	fetcher := &MockFetcher{
		FetchTransactionsFunc: func(ctx context.Context, acct *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
			return []bankfeed.Transaction{upstreamTx("t1", 95000), upstreamTx("t2", -4500)}, nil
		},
	}
	ingester := &MockIngester{
		ProcessFunc: func(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error) {
			if len(batch) != 2 {
				t.Errorf("batch size = %d, want 2", len(batch))
			}
			return &ingestion.Result{Processed: 2}, nil
		},
	}
	svc := NewService(repo, fetcher, ingester, progress.NewBroadcaster(), 100)

	report, err := svc.SyncAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("SyncAccount() failed: %v", err)
	}
	if report.Fetched != 2 || report.Processed != 2 {
		t.Errorf("report = %+v, want 2 fetched, 2 processed", report)
	}
	if len(statuses) != 1 || statuses[0] != account.SyncStatusSuccess {
		t.Errorf("recorded statuses = %v, want [SUCCESS]", statuses)
	}
}

func TestSyncAccount_FetchWindowStartsAtLastSync(t *testing.T) {
	lastSync := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	acct := syncTestAccount()
	acct.LastSyncedAt = &lastSync

	var gotSince time.Time
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return acct, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTransactionsFunc: func(ctx context.Context, a *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
			gotSince = since
			return nil, nil
		},
	}
	svc := NewService(repo, fetcher, &MockIngester{}, progress.NewBroadcaster(), 100)

	if _, err := svc.SyncAccount(context.Background(), "acct-1"); err != nil {
		t.Fatalf("SyncAccount() failed: %v", err)
	}
	if !gotSince.Equal(lastSync) {
		t.Errorf("since = %v, want last sync time %v", gotSince, lastSync)
	}
}

func TestSyncAccount_FirstRunUsesStartDate(t *testing.T) {
	var gotSince time.Time
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
	}
	fetcher := &MockFetcher{
		FetchTransactionsFunc: func(ctx context.Context, a *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
			gotSince = since
			return nil, nil
		},
	}
	svc := NewService(repo, fetcher, &MockIngester{}, progress.NewBroadcaster(), 100)

	if _, err := svc.SyncAccount(context.Background(), "acct-1"); err != nil {
		t.Fatalf("SyncAccount() failed: %v", err)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !gotSince.Equal(want) {
		t.Errorf("since = %v, want configured start date %v", gotSince, want)
	}
}

func TestSyncAccount_FetchFailureRecordsErrorStatus(t *testing.T) {
	var statuses []string
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
		UpdateSyncStatusFunc: func(ctx context.Context, id string, status string, syncedAt time.Time) error {
			statuses = append(statuses, status)
			return nil
		},
	}
	fetcher := &MockFetcher{
		FetchTransactionsFunc: func(ctx context.Context, a *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
			return nil, &bankfeed.APIError{StatusCode: 503}
		},
	}
	broadcaster := progress.NewBroadcaster()
	events, cancel := broadcaster.Subscribe("acct-1")
	defer cancel()
	svc := NewService(repo, fetcher, &MockIngester{}, broadcaster, 100)

	_, err := svc.SyncAccount(context.Background(), "acct-1")
	if err == nil {
		t.Fatal("expected error from failed fetch")
	}
	if len(statuses) != 1 || statuses[0] != account.SyncStatusError {
		t.Errorf("recorded statuses = %v, want [ERROR]", statuses)
	}

	var failed *progress.Event
	for len(events) > 0 {
		ev := <-events
		if ev.Stage == progress.StageFailed {
			failed = &ev
		}
	}
	if failed == nil {
		t.Fatal("no FAILED progress event published")
	}
	if failed.Message != "provider unavailable" {
		t.Errorf("failure message = %q, want the classified message", failed.Message)
	}
}

func TestSyncAccount_UnparseableTransactionRecorded(t *testing.T) {
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
	}
	bad := upstreamTx("t-bad", 100)
	bad.BookedAt = "yesterday"
	fetcher := &MockFetcher{
		FetchTransactionsFunc: func(ctx context.Context, a *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
			return []bankfeed.Transaction{bad, upstreamTx("t-good", 200)}, nil
		},
	}
	ingester := &MockIngester{
		ProcessFunc: func(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error) {
			if len(batch) != 1 || batch[0].ExternalID != "t-good" {
				t.Errorf("batch = %+v, want only the parseable transaction", batch)
			}
			return &ingestion.Result{Processed: 1}, nil
		},
	}
	svc := NewService(repo, fetcher, ingester, progress.NewBroadcaster(), 100)

	report, err := svc.SyncAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("SyncAccount() failed: %v", err)
	}
	if len(report.Errors) != 1 || report.Errors[0].ExternalID != "t-bad" {
		t.Errorf("report errors = %v, want one for t-bad", report.Errors)
	}
	if report.Processed != 1 {
		t.Errorf("Processed = %d, want 1", report.Processed)
	}
}

func TestIngestTransaction_SingleWebhookDelivery(t *testing.T) {
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
	}
	ingester := &MockIngester{
		ProcessFunc: func(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error) {
			if len(batch) != 1 || batch[0].ExternalID != "t-hook" {
				t.Errorf("batch = %+v, want exactly the delivered transaction", batch)
			}
			return &ingestion.Result{Processed: 1}, nil
		},
	}
	svc := NewService(repo, &MockFetcher{}, ingester, progress.NewBroadcaster(), 100)

	report, err := svc.IngestTransaction(context.Background(), "acct-1", upstreamTx("t-hook", -4250))
	if err != nil {
		t.Fatalf("IngestTransaction() failed: %v", err)
	}
	if report.Fetched != 1 || report.Processed != 1 {
		t.Errorf("report = %+v, want 1 fetched, 1 processed", report)
	}
}

func TestIngestTransaction_RedeliveryCountsAsDuplicate(t *testing.T) {
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
	}
	ingester := &MockIngester{
		ProcessFunc: func(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error) {
			return &ingestion.Result{DuplicatesSkipped: 1}, nil
		},
	}
	svc := NewService(repo, &MockFetcher{}, ingester, progress.NewBroadcaster(), 100)

	report, err := svc.IngestTransaction(context.Background(), "acct-1", upstreamTx("t-hook", -4250))
	if err != nil {
		t.Fatalf("IngestTransaction() failed: %v", err)
	}
	if report.DuplicatesSkipped != 1 || report.Processed != 0 {
		t.Errorf("report = %+v, want a duplicate skip and nothing processed", report)
	}
}

func TestIngestTransaction_UnparseableDateRejected(t *testing.T) {
	repo := &MockAccountRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			return syncTestAccount(), nil
		},
	}
	svc := NewService(repo, &MockFetcher{}, &MockIngester{}, progress.NewBroadcaster(), 100)

	bad := upstreamTx("t-bad", 100)
	bad.BookedAt = "yesterday"
	if _, err := svc.IngestTransaction(context.Background(), "acct-1", bad); err == nil {
		t.Error("expected error for unparseable booking date")
	}
}

func TestSyncAll_OneFailureDoesNotStopOthers(t *testing.T) {
	accounts := []*account.LinkedAccount{
		{ID: "acct-1", SyncEnabled: true, SyncStartDate: time.Now().AddDate(0, -1, 0)},
		{ID: "acct-2", SyncEnabled: true, SyncStartDate: time.Now().AddDate(0, -1, 0)},
	}
	repo := &MockAccountRepo{
		ListSyncEnabledFunc: func(ctx context.Context) ([]*account.LinkedAccount, error) {
			return accounts, nil
		},
		GetByIDFunc: func(ctx context.Context, id string) (*account.LinkedAccount, error) {
			for _, a := range accounts {
				if a.ID == id {
					return a, nil
				}
			}
			return nil, account.ErrAccountNotFound
		},
	}
	fetcher := &MockFetcher{
		FetchTransactionsFunc: func(ctx context.Context, a *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
			if a.ID == "acct-1" {
				return nil, errors.New("boom")
			}
			return []bankfeed.Transaction{upstreamTx("t1", 100)}, nil
		},
	}
	ingester := &MockIngester{
		ProcessFunc: func(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error) {
			return &ingestion.Result{Processed: len(batch)}, nil
		},
	}
	svc := NewService(repo, fetcher, ingester, progress.NewBroadcaster(), 100)

	reports := svc.SyncAll(context.Background())
	if len(reports) != 1 || reports[0].AccountID != "acct-2" {
		t.Errorf("reports = %+v, want only acct-2's", reports)
	}
}
