package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"rentledger/internal/domain/ledger"
)

type LedgerEntryRepository struct {
	db *DB
}

func NewLedgerEntryRepository(db *DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: db}
}

func (r *LedgerEntryRepository) CreateLedgerEntry(ctx context.Context, params ledger.CreateLedgerEntryParams) (*ledger.LedgerEntry, error) {
	query := `
		INSERT INTO ledger_entries (id, property_id, type, category, amount, date, description, imported)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, property_id, type, category, amount, date, description, imported, created_at, updated_at
	`

	var entry ledger.LedgerEntry
	err := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.PropertyID, params.Type, params.Category,
		params.Amount, params.Date, params.Description, params.Imported,
	).Scan(
		&entry.ID, &entry.PropertyID, &entry.Type, &entry.Category,
		&entry.Amount, &entry.Date, &entry.Description, &entry.Imported,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *LedgerEntryRepository) GetLedgerEntryByID(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
	query := `
		SELECT id, property_id, type, category, amount, date, description, imported, created_at, updated_at
		FROM ledger_entries
		WHERE id = $1
	`

	var entry ledger.LedgerEntry
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.PropertyID, &entry.Type, &entry.Category,
		&entry.Amount, &entry.Date, &entry.Description, &entry.Imported,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *LedgerEntryRepository) ListLedgerEntriesByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*ledger.LedgerEntry, error) {
	query := `
		SELECT id, property_id, type, category, amount, date, description, imported, created_at, updated_at
		FROM ledger_entries
		WHERE property_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, propertyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.LedgerEntry
	for rows.Next() {
		var entry ledger.LedgerEntry
		err := rows.Scan(
			&entry.ID, &entry.PropertyID, &entry.Type, &entry.Category,
			&entry.Amount, &entry.Date, &entry.Description, &entry.Imported,
			&entry.CreatedAt, &entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerEntryRepository) CreatePendingEntry(ctx context.Context, params ledger.CreatePendingEntryParams) (*ledger.PendingEntry, error) {
	query := `
		INSERT INTO pending_entries (id, property_id, type, category, amount, date, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, property_id, type, category, amount, date, description, created_at
	`

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.PropertyID, params.Type, params.Category,
		params.Amount, params.Date, params.Description,
	)

	entry, err := scanPendingEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending entry: %w", err)
	}
	return entry, nil
}

func (r *LedgerEntryRepository) GetPendingEntryByID(ctx context.Context, id string) (*ledger.PendingEntry, error) {
	query := `
		SELECT id, property_id, type, category, amount, date, description, created_at
		FROM pending_entries
		WHERE id = $1
	`

	entry, err := scanPendingEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending entry: %w", err)
	}
	return entry, nil
}

func (r *LedgerEntryRepository) ListPendingEntries(ctx context.Context, limit, offset int) ([]*ledger.PendingEntry, error) {
	query := `
		SELECT id, property_id, type, category, amount, date, description, created_at
		FROM pending_entries
		ORDER BY date DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.PendingEntry
	for rows.Next() {
		entry, err := scanPendingEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending entries: %w", err)
	}
	return entries, nil
}

func scanPendingEntry(row rowScanner) (*ledger.PendingEntry, error) {
	var entry ledger.PendingEntry
	var propertyID, entryType, category sql.NullString

	err := row.Scan(
		&entry.ID, &propertyID, &entryType, &category,
		&entry.Amount, &entry.Date, &entry.Description, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if propertyID.Valid {
		entry.PropertyID = &propertyID.String
	}
	if entryType.Valid {
		t := ledger.EntryType(entryType.String)
		entry.Type = &t
	}
	if category.Valid {
		entry.Category = &category.String
	}
	return &entry, nil
}
