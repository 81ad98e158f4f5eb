package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentledger/internal/domain/transaction"
)

// uniqueViolation is the postgres error code raised when an insert hits
// the (linked_account_id, external_id) unique constraint.
const uniqueViolation = "23505"

type RawTransactionRepository struct {
	db *DB
}

func NewRawTransactionRepository(db *DB) *RawTransactionRepository {
	return &RawTransactionRepository{db: db}
}

const rawTransactionColumns = `id, linked_account_id, external_id, amount, currency, description,
       counterparty, merchant_name, reference, transaction_date, settled_at,
       ledger_entry_id, pending_entry_id, created_at`

func (r *RawTransactionRepository) Create(ctx context.Context, params transaction.CreateRawTransactionParams) (*transaction.RawTransaction, error) {
	query := `
		INSERT INTO raw_transactions (id, linked_account_id, external_id, amount, currency, description,
		                              counterparty, merchant_name, reference, transaction_date, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + rawTransactionColumns

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.LinkedAccountID, params.ExternalID, params.Amount,
		params.Currency, params.Description, params.Counterparty, params.MerchantName,
		params.Reference, params.TransactionDate, params.SettledAt,
	)

	tx, err := scanRawTransaction(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, transaction.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to create raw transaction: %w", err)
	}
	return tx, nil
}

func (r *RawTransactionRepository) GetByID(ctx context.Context, id string) (*transaction.RawTransaction, error) {
	query := `SELECT ` + rawTransactionColumns + ` FROM raw_transactions WHERE id = $1`

	tx, err := scanRawTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw transaction: %w", err)
	}
	return tx, nil
}

func (r *RawTransactionRepository) GetByExternalID(ctx context.Context, linkedAccountID, externalID string) (*transaction.RawTransaction, error) {
	query := `SELECT ` + rawTransactionColumns + ` FROM raw_transactions WHERE linked_account_id = $1 AND external_id = $2`

	tx, err := scanRawTransaction(r.db.QueryRowContext(ctx, query, linkedAccountID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw transaction by external id: %w", err)
	}
	return tx, nil
}

func (r *RawTransactionRepository) ListByAccountID(ctx context.Context, linkedAccountID string, limit, offset int) ([]*transaction.RawTransaction, error) {
	query := `
		SELECT ` + rawTransactionColumns + `
		FROM raw_transactions
		WHERE linked_account_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, linkedAccountID, limit, offset)
}

// FindFuzzyCandidates returns same-amount transactions within the date
// window, newest first, capped at criteria.Limit.
func (r *RawTransactionRepository) FindFuzzyCandidates(ctx context.Context, criteria transaction.FuzzyCandidateCriteria) ([]*transaction.RawTransaction, error) {
	query := `
		SELECT ` + rawTransactionColumns + `
		FROM raw_transactions
		WHERE linked_account_id = $1
		  AND amount = $2
		  AND transaction_date >= $3
		  AND transaction_date < $4
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $5
	`
	return r.list(ctx, query, criteria.LinkedAccountID, criteria.Amount,
		criteria.DateLowerBound, criteria.DateUpperBound, criteria.Limit)
}

func (r *RawTransactionRepository) list(ctx context.Context, query string, args ...any) ([]*transaction.RawTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.RawTransaction
	for rows.Next() {
		tx, err := scanRawTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raw transactions: %w", err)
	}
	return transactions, nil
}

// LinkLedgerEntry attaches a ledger entry to the raw row. The table's
// check constraint rejects a row that already carries a pending entry.
func (r *RawTransactionRepository) LinkLedgerEntry(ctx context.Context, id, ledgerEntryID string) error {
	return r.link(ctx, "ledger_entry_id", id, ledgerEntryID)
}

func (r *RawTransactionRepository) LinkPendingEntry(ctx context.Context, id, pendingEntryID string) error {
	return r.link(ctx, "pending_entry_id", id, pendingEntryID)
}

func (r *RawTransactionRepository) link(ctx context.Context, column, id, entryID string) error {
	query := fmt.Sprintf(`UPDATE raw_transactions SET %s = $1 WHERE id = $2`, column)

	result, err := r.db.ExecContext(ctx, query, entryID, id)
	if err != nil {
		return fmt.Errorf("failed to link %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check link update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("raw transaction %s not found", id)
	}
	return nil
}

func scanRawTransaction(row rowScanner) (*transaction.RawTransaction, error) {
	var tx transaction.RawTransaction
	var counterparty, merchantName, reference sql.NullString
	var settledAt sql.NullTime
	var ledgerEntryID, pendingEntryID sql.NullString

	err := row.Scan(
		&tx.ID, &tx.LinkedAccountID, &tx.ExternalID, &tx.Amount, &tx.Currency, &tx.Description,
		&counterparty, &merchantName, &reference, &tx.TransactionDate, &settledAt,
		&ledgerEntryID, &pendingEntryID, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if counterparty.Valid {
		tx.Counterparty = &counterparty.String
	}
	if merchantName.Valid {
		tx.MerchantName = &merchantName.String
	}
	if reference.Valid {
		tx.Reference = &reference.String
	}
	if settledAt.Valid {
		tx.SettledAt = &settledAt.Time
	}
	if ledgerEntryID.Valid {
		tx.LedgerEntryID = &ledgerEntryID.String
	}
	if pendingEntryID.Valid {
		tx.PendingEntryID = &pendingEntryID.String
	}
	return &tx, nil
}
