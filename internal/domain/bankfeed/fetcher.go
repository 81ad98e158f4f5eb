package bankfeed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"rentledger/internal/domain/account"
	"rentledger/internal/infrastructure/bankfeed"
)

// Fetcher pulls transaction pages from the bank feed API with retry and
// transparent token refresh.
type Fetcher struct {
	client bankfeed.ClientInterface
	tokens *TokenService
	retry  RetryOptions
}

// NewFetcher creates a new upstream fetcher
func NewFetcher(client bankfeed.ClientInterface, tokens *TokenService, retry RetryOptions) *Fetcher {
	return &Fetcher{
		client: client,
		tokens: tokens,
		retry:  retry,
	}
}

// FetchTransactions retrieves every transaction page for the account since
// the given date. A single 401 response triggers exactly one token refresh
// and an immediate re-issue of the same request; the refresh does not
// consume a retry attempt. A second 401 after a successful refresh means
// the consent itself is broken and is surfaced to the caller.
func (f *Fetcher) FetchTransactions(ctx context.Context, acct *account.LinkedAccount, since time.Time, pageLimit int) ([]bankfeed.Transaction, error) {
	var all []bankfeed.Transaction
	cursor := ""

	for {
		query := bankfeed.TransactionQuery{
			AccountID: acct.UpstreamAccountID,
			Since:     since,
			Cursor:    cursor,
			Limit:     pageLimit,
		}

		page, err := Retry(ctx, f.retry, func(ctx context.Context) (*bankfeed.TransactionPage, error) {
			return f.fetchPage(ctx, acct, query)
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page.Transactions...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// fetchPage is one retriable attempt: resolve a token, call upstream, and
// on 401 refresh once and re-issue before giving up.
func (f *Fetcher) fetchPage(ctx context.Context, acct *account.LinkedAccount, query bankfeed.TransactionQuery) (*bankfeed.TransactionPage, error) {
	token, err := f.tokens.AccessToken(ctx, acct)
	if err != nil {
		return nil, err
	}

	page, err := f.client.GetTransactions(ctx, token, query)
	if !isUnauthorized(err) {
		return page, err
	}

	token, refreshErr := f.tokens.Refresh(ctx, acct)
	if refreshErr != nil {
		return nil, fmt.Errorf("token refresh after 401 failed: %w", refreshErr)
	}
	return f.client.GetTransactions(ctx, token, query)
}

func isUnauthorized(err error) bool {
	var apiErr *bankfeed.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// ClassifyError maps fetch failures to stable operator-facing messages so
// sync status reports stay deterministic across runs.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *bankfeed.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return "authentication expired; account must be re-linked"
		case apiErr.StatusCode == http.StatusForbidden:
			return "access denied by provider"
		case apiErr.StatusCode == http.StatusNotFound:
			return "account not found at provider"
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "rate limited by provider"
		case apiErr.StatusCode >= 500:
			return "provider unavailable"
		default:
			return fmt.Sprintf("provider rejected request (status %d)", apiErr.StatusCode)
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "provider hostname could not be resolved"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request to provider timed out"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "could not connect to provider"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "connection to provider was reset"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request to provider timed out"
	}
	if errors.Is(err, ErrNoRefreshToken) {
		return "authentication expired; account must be re-linked"
	}

	return "sync failed with an unexpected error"
}
