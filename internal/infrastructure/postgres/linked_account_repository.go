package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentledger/internal/domain/account"
)

type LinkedAccountRepository struct {
	db *DB
}

func NewLinkedAccountRepository(db *DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

const linkedAccountColumns = `id, upstream_account_id, institution_name, access_token_encrypted,
       refresh_token_encrypted, token_expires_at, sync_enabled, sync_start_date,
       last_synced_at, last_sync_status, created_at, updated_at`

func (r *LinkedAccountRepository) Create(ctx context.Context, params account.CreateLinkedAccountParams) (*account.LinkedAccount, error) {
	query := `
		INSERT INTO linked_accounts (id, upstream_account_id, institution_name, access_token_encrypted,
		                             refresh_token_encrypted, token_expires_at, sync_enabled, sync_start_date)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		RETURNING ` + linkedAccountColumns

	row := r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.UpstreamAccountID, params.InstitutionName,
		params.AccessTokenEncrypted, params.RefreshTokenEncrypted, params.TokenExpiresAt,
		params.SyncStartDate,
	)

	acct, err := scanLinkedAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create linked account: %w", err)
	}
	return acct, nil
}

func (r *LinkedAccountRepository) GetByID(ctx context.Context, id string) (*account.LinkedAccount, error) {
	query := `SELECT ` + linkedAccountColumns + ` FROM linked_accounts WHERE id = $1`

	acct, err := scanLinkedAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linked account: %w", err)
	}
	return acct, nil
}

func (r *LinkedAccountRepository) GetByUpstreamAccountID(ctx context.Context, upstreamAccountID string) (*account.LinkedAccount, error) {
	query := `SELECT ` + linkedAccountColumns + ` FROM linked_accounts WHERE upstream_account_id = $1`

	acct, err := scanLinkedAccount(r.db.QueryRowContext(ctx, query, upstreamAccountID))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linked account by upstream id: %w", err)
	}
	return acct, nil
}

func (r *LinkedAccountRepository) List(ctx context.Context) ([]*account.LinkedAccount, error) {
	query := `SELECT ` + linkedAccountColumns + ` FROM linked_accounts ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *LinkedAccountRepository) ListSyncEnabled(ctx context.Context) ([]*account.LinkedAccount, error) {
	query := `SELECT ` + linkedAccountColumns + ` FROM linked_accounts WHERE sync_enabled ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *LinkedAccountRepository) list(ctx context.Context, query string) ([]*account.LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.LinkedAccount
	for rows.Next() {
		acct, err := scanLinkedAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linked account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating linked accounts: %w", err)
	}
	return accounts, nil
}

// UpdateTokens replaces the whole token set in one UPDATE so a new access
// token is never observable alongside a stale expiry.
func (r *LinkedAccountRepository) UpdateTokens(ctx context.Context, id string, update account.TokenUpdate) error {
	query := `
		UPDATE linked_accounts
		SET access_token_encrypted = $1,
		    refresh_token_encrypted = $2,
		    token_expires_at = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, update.AccessTokenEncrypted, update.RefreshTokenEncrypted, update.TokenExpiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check token update: %w", err)
	}
	if affected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

func (r *LinkedAccountRepository) UpdateSyncStatus(ctx context.Context, id string, status string, syncedAt time.Time) error {
	query := `
		UPDATE linked_accounts
		SET last_sync_status = $1,
		    last_synced_at = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, syncedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check sync status update: %w", err)
	}
	if affected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLinkedAccount(row rowScanner) (*account.LinkedAccount, error) {
	var acct account.LinkedAccount
	var refreshToken sql.NullString
	var tokenExpiresAt, lastSyncedAt sql.NullTime
	var lastSyncStatus sql.NullString

	err := row.Scan(
		&acct.ID, &acct.UpstreamAccountID, &acct.InstitutionName, &acct.AccessTokenEncrypted,
		&refreshToken, &tokenExpiresAt, &acct.SyncEnabled, &acct.SyncStartDate,
		&lastSyncedAt, &lastSyncStatus, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refreshToken.Valid {
		acct.RefreshTokenEncrypted = &refreshToken.String
	}
	if tokenExpiresAt.Valid {
		acct.TokenExpiresAt = &tokenExpiresAt.Time
	}
	if lastSyncedAt.Valid {
		acct.LastSyncedAt = &lastSyncedAt.Time
	}
	if lastSyncStatus.Valid {
		acct.LastSyncStatus = &lastSyncStatus.String
	}
	return &acct, nil
}
