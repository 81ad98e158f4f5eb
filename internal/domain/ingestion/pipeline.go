package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rentledger/internal/domain/account"
	"rentledger/internal/domain/ledger"
	"rentledger/internal/domain/rule"
	"rentledger/internal/domain/transaction"
)

// IncomingTransaction is one upstream transaction handed to the pipeline,
// already decoded from the wire format.
type IncomingTransaction struct {
	ExternalID   string
	AmountMinor  int64 // signed, minor currency units
	Currency     string
	Description  string
	Counterparty *string
	MerchantName *string
	Reference    *string
	BookedAt     time.Time
	SettledAt    *time.Time
}

// Amount returns the transaction amount in major currency units.
func (t IncomingTransaction) Amount() float64 {
	return float64(t.AmountMinor) / 100
}

// ProcessError records why one transaction in a batch failed. The batch
// itself keeps going.
type ProcessError struct {
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

// Result summarizes one batch run. Processed counts only transactions that
// were fully persisted; duplicates and failures are tallied separately.
type Result struct {
	Processed         int            `json:"processed"`
	DuplicatesSkipped int            `json:"duplicatesSkipped"`
	Errors            []ProcessError `json:"errors,omitempty"`
}

// Pipeline turns batches of upstream transactions into ledger or pending
// entries. Every non-duplicate transaction produces exactly one of the
// two, never both.
type Pipeline struct {
	transactions transaction.Repository
	ledger       ledger.Repository
	rules        rule.Repository
	detector     *transaction.DuplicateDetector
	engine       *rule.Engine
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(
	transactions transaction.Repository,
	ledgerRepo ledger.Repository,
	rules rule.Repository,
	detector *transaction.DuplicateDetector,
	engine *rule.Engine,
) *Pipeline {
	return &Pipeline{
		transactions: transactions,
		ledger:       ledgerRepo,
		rules:        rules,
		detector:     detector,
		engine:       engine,
	}
}

// Process ingests a batch for one linked account. The rule set is loaded
// once so every transaction in the batch sees the same rules. A failure on
// one transaction is recorded and the rest of the batch continues.
func (p *Pipeline) Process(ctx context.Context, acct *account.LinkedAccount, batch []IncomingTransaction) (*Result, error) {
	rules, err := p.rules.ListForAccount(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matching rules for account %s: %w", acct.ID, err)
	}
	rule.SortRules(rules)

	result := &Result{}
	for _, incoming := range batch {
		if err := p.processOne(ctx, acct, rules, incoming, result); err != nil {
			result.Errors = append(result.Errors, ProcessError{
				ExternalID: incoming.ExternalID,
				Message:    err.Error(),
			})
		}
	}

	log.Printf("Ingestion batch for account %s: %d processed, %d duplicates, %d errors",
		acct.ID, result.Processed, result.DuplicatesSkipped, len(result.Errors))
	return result, nil
}

func (p *Pipeline) processOne(
	ctx context.Context,
	acct *account.LinkedAccount,
	rules []*rule.MatchingRule,
	incoming IncomingTransaction,
	result *Result,
) error {
	check, err := p.detector.Check(ctx, acct.ID, incoming.ExternalID, incoming.Amount(), incoming.Description, incoming.BookedAt)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if check.IsDuplicate {
		// An exact match with neither entry set means an earlier delivery
		// persisted the raw row but failed before writing its outcome.
		// Resume classification so the row is never left without one.
		if check.MatchType == transaction.MatchTypeExact && outcomeMissing(check.Matched) {
			return p.classify(ctx, rules, check.Matched, result)
		}
		result.DuplicatesSkipped++
		return nil
	}

	raw, err := p.transactions.Create(ctx, transaction.CreateRawTransactionParams{
		LinkedAccountID: acct.ID,
		ExternalID:      incoming.ExternalID,
		Amount:          incoming.Amount(),
		Currency:        incoming.Currency,
		Description:     incoming.Description,
		Counterparty:    incoming.Counterparty,
		MerchantName:    incoming.MerchantName,
		Reference:       incoming.Reference,
		TransactionDate: incoming.BookedAt,
		SettledAt:       incoming.SettledAt,
	})
	if errors.Is(err, transaction.ErrDuplicateTransaction) {
		// Lost a concurrent insert race; the winner already ingested it.
		result.DuplicatesSkipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to persist raw transaction: %w", err)
	}

	return p.classify(ctx, rules, raw, result)
}

// classify evaluates the rule snapshot against a persisted raw transaction
// and writes its single outcome: a ledger entry when classification is
// complete and valid, a pending entry otherwise.
func (p *Pipeline) classify(
	ctx context.Context,
	rules []*rule.MatchingRule,
	raw *transaction.RawTransaction,
	result *Result,
) error {
	outcome := p.engine.Evaluate(rules, rule.TransactionAttributes{
		Description:  raw.Description,
		Counterparty: deref(raw.Counterparty),
		MerchantName: deref(raw.MerchantName),
		Reference:    deref(raw.Reference),
		Amount:       raw.Amount,
	})

	if classified, params := p.ledgerParams(raw, outcome); classified {
		entry, err := p.ledger.CreateLedgerEntry(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}
		if err := p.transactions.LinkLedgerEntry(ctx, raw.ID, entry.ID); err != nil {
			return fmt.Errorf("failed to link ledger entry: %w", err)
		}
		result.Processed++
		return nil
	}

	pending, err := p.ledger.CreatePendingEntry(ctx, p.pendingParams(raw, outcome))
	if err != nil {
		return fmt.Errorf("failed to create pending entry: %w", err)
	}
	if err := p.transactions.LinkPendingEntry(ctx, raw.ID, pending.ID); err != nil {
		return fmt.Errorf("failed to link pending entry: %w", err)
	}
	result.Processed++
	return nil
}

func outcomeMissing(raw *transaction.RawTransaction) bool {
	return raw != nil && raw.LedgerEntryID == nil && raw.PendingEntryID == nil
}

// ledgerParams reports whether the rule outcome classifies the transaction
// completely and consistently, and if so builds the ledger entry.
func (p *Pipeline) ledgerParams(raw *transaction.RawTransaction, outcome rule.Outcome) (bool, ledger.CreateLedgerEntryParams) {
	if !outcome.Complete() {
		return false, ledger.CreateLedgerEntryParams{}
	}
	if !ledger.ValidType(*outcome.EntryType) {
		return false, ledger.CreateLedgerEntryParams{}
	}
	entryType := ledger.EntryType(*outcome.EntryType)
	if !ledger.ValidCategory(entryType, *outcome.Category) {
		return false, ledger.CreateLedgerEntryParams{}
	}
	return true, ledger.CreateLedgerEntryParams{
		PropertyID:  *outcome.PropertyID,
		Type:        entryType,
		Category:    *outcome.Category,
		Amount:      raw.Amount,
		Date:        raw.TransactionDate,
		Description: raw.Description,
		Imported:    true,
	}
}

// pendingParams keeps whatever partial classification the rules produced
// so review can start from it.
func (p *Pipeline) pendingParams(raw *transaction.RawTransaction, outcome rule.Outcome) ledger.CreatePendingEntryParams {
	params := ledger.CreatePendingEntryParams{
		PropertyID:  outcome.PropertyID,
		Category:    outcome.Category,
		Amount:      raw.Amount,
		Date:        raw.TransactionDate,
		Description: raw.Description,
	}
	if outcome.EntryType != nil && ledger.ValidType(*outcome.EntryType) {
		entryType := ledger.EntryType(*outcome.EntryType)
		params.Type = &entryType
	}
	return params
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
