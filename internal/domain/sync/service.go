package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"rentledger/internal/domain/account"
	domainbankfeed "rentledger/internal/domain/bankfeed"
	"rentledger/internal/domain/ingestion"
	"rentledger/internal/infrastructure/bankfeed"
	"rentledger/internal/shared/progress"
)

// Report summarizes one sync run for a linked account.
type Report struct {
	AccountID         string                   `json:"accountId"`
	Fetched           int                      `json:"fetched"`
	Processed         int                      `json:"processed"`
	DuplicatesSkipped int                      `json:"duplicatesSkipped"`
	Errors            []ingestion.ProcessError `json:"errors,omitempty"`
}

// Fetcher is the slice of the bank feed layer the sync service needs.
type Fetcher interface {
	FetchTransactions(ctx context.Context, acct *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error)
}

// Ingester is the slice of the pipeline the sync service needs.
type Ingester interface {
	Process(ctx context.Context, acct *account.LinkedAccount, batch []ingestion.IncomingTransaction) (*ingestion.Result, error)
}

// Service drives a full sync for linked accounts: fetch upstream
// transactions, run them through the ingestion pipeline, and record the
// outcome on the account.
type Service struct {
	accounts    account.Repository
	fetcher     Fetcher
	pipeline    Ingester
	broadcaster *progress.Broadcaster
	fetchLimit  int
	now         func() time.Time
}

// NewService creates a new sync service
func NewService(
	accounts account.Repository,
	fetcher Fetcher,
	pipeline Ingester,
	broadcaster *progress.Broadcaster,
	fetchLimit int,
) *Service {
	return &Service{
		accounts:    accounts,
		fetcher:     fetcher,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		fetchLimit:  fetchLimit,
		now:         time.Now,
	}
}

// SyncAccount runs one sync for the account. The fetch window starts at
// the last successful sync, or the account's configured start date for the
// first run. Failures are recorded on the account and surfaced as stable
// classified messages.
func (s *Service) SyncAccount(ctx context.Context, accountID string) (*Report, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(progress.Event{AccountID: acct.ID, Stage: progress.StageStarted})

	report, err := s.run(ctx, acct)
	syncedAt := s.now()
	if err != nil {
		message := domainbankfeed.ClassifyError(err)
		if statusErr := s.accounts.UpdateSyncStatus(ctx, acct.ID, account.SyncStatusError, syncedAt); statusErr != nil {
			log.Printf("Failed to record sync error for account %s: %v", acct.ID, statusErr)
		}
		s.broadcaster.Publish(progress.Event{
			AccountID: acct.ID,
			Stage:     progress.StageFailed,
			Message:   message,
		})
		log.Printf("Sync failed for account %s: %s", acct.ID, message)
		return nil, fmt.Errorf("sync failed for account %s: %w", acct.ID, err)
	}

	if statusErr := s.accounts.UpdateSyncStatus(ctx, acct.ID, account.SyncStatusSuccess, syncedAt); statusErr != nil {
		log.Printf("Failed to record sync success for account %s: %v", acct.ID, statusErr)
	}
	s.broadcaster.Publish(progress.Event{
		AccountID:  acct.ID,
		Stage:      progress.StageCompleted,
		Fetched:    report.Fetched,
		Processed:  report.Processed,
		Duplicates: report.DuplicatesSkipped,
		Failed:     len(report.Errors),
	})
	log.Printf("Sync completed for account %s: %d fetched, %d processed, %d duplicates, %d errors",
		acct.ID, report.Fetched, report.Processed, report.DuplicatesSkipped, len(report.Errors))
	return report, nil
}

func (s *Service) run(ctx context.Context, acct *account.LinkedAccount) (*Report, error) {
	since := acct.SyncStartDate
	if acct.LastSyncedAt != nil && acct.LastSyncedAt.After(since) {
		since = *acct.LastSyncedAt
	}

	s.broadcaster.Publish(progress.Event{AccountID: acct.ID, Stage: progress.StageFetching})
	upstream, err := s.fetcher.FetchTransactions(ctx, acct, since, s.fetchLimit)
	if err != nil {
		return nil, err
	}

	report := &Report{AccountID: acct.ID, Fetched: len(upstream)}

	batch := make([]ingestion.IncomingTransaction, 0, len(upstream))
	for _, tx := range upstream {
		incoming, err := toIncoming(tx)
		if err != nil {
			report.Errors = append(report.Errors, ingestion.ProcessError{
				ExternalID: tx.ID,
				Message:    err.Error(),
			})
			continue
		}
		batch = append(batch, incoming)
	}

	s.broadcaster.Publish(progress.Event{
		AccountID: acct.ID,
		Stage:     progress.StageIngesting,
		Fetched:   report.Fetched,
	})
	result, err := s.pipeline.Process(ctx, acct, batch)
	if err != nil {
		return nil, err
	}

	report.Processed = result.Processed
	report.DuplicatesSkipped = result.DuplicatesSkipped
	report.Errors = append(report.Errors, result.Errors...)
	return report, nil
}

// IngestTransaction runs a single webhook-delivered transaction through
// the ingestion pipeline without fetching from upstream. Duplicate
// redeliveries come back as a duplicate skip, not an error.
func (s *Service) IngestTransaction(ctx context.Context, accountID string, tx bankfeed.Transaction) (*Report, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	incoming, err := toIncoming(tx)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook transaction %s: %w", tx.ID, err)
	}

	result, err := s.pipeline.Process(ctx, acct, []ingestion.IncomingTransaction{incoming})
	if err != nil {
		return nil, err
	}

	return &Report{
		AccountID:         acct.ID,
		Fetched:           1,
		Processed:         result.Processed,
		DuplicatesSkipped: result.DuplicatesSkipped,
		Errors:            result.Errors,
	}, nil
}

// SyncAll syncs every sync-enabled account in turn. One account's failure
// does not stop the others.
func (s *Service) SyncAll(ctx context.Context) []*Report {
	accounts, err := s.accounts.ListSyncEnabled(ctx)
	if err != nil {
		log.Printf("Failed to list sync-enabled accounts: %v", err)
		return nil
	}

	var reports []*Report
	for _, acct := range accounts {
		report, err := s.SyncAccount(ctx, acct.ID)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports
}

func toIncoming(tx bankfeed.Transaction) (ingestion.IncomingTransaction, error) {
	bookedAt, err := tx.GetBookedAt()
	if err != nil {
		return ingestion.IncomingTransaction{}, err
	}
	settledAt, err := tx.GetSettledAt()
	if err != nil {
		return ingestion.IncomingTransaction{}, err
	}
	return ingestion.IncomingTransaction{
		ExternalID:   tx.ID,
		AmountMinor:  tx.AmountMinor,
		Currency:     tx.Currency,
		Description:  tx.Description,
		Counterparty: tx.Counterparty,
		MerchantName: tx.MerchantName,
		Reference:    tx.Reference,
		BookedAt:     bookedAt,
		SettledAt:    settledAt,
	}, nil
}
