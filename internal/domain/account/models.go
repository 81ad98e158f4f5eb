package account

import (
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("linked account not found")

// Sync status values recorded on a LinkedAccount after each sync run.
const (
	SyncStatusSuccess = "SUCCESS"
	SyncStatusError   = "ERROR"
)

// LinkedAccount represents one connected upstream bank account.
// Token fields hold ciphertext only; plaintext tokens never touch
// storage, logs, or JSON responses.
type LinkedAccount struct {
	ID                    string     `json:"id"`
	UpstreamAccountID     string     `json:"upstreamAccountId"`
	InstitutionName       string     `json:"institutionName"`
	AccessTokenEncrypted  string     `json:"-"`
	RefreshTokenEncrypted *string    `json:"-"`
	TokenExpiresAt        *time.Time `json:"-"`
	SyncEnabled           bool       `json:"syncEnabled"`
	SyncStartDate         time.Time  `json:"syncStartDate"`
	LastSyncedAt          *time.Time `json:"lastSyncedAt,omitempty"`
	LastSyncStatus        *string    `json:"lastSyncStatus,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// CreateLinkedAccountParams contains the parameters for linking an account
type CreateLinkedAccountParams struct {
	UpstreamAccountID     string
	InstitutionName       string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time
	SyncStartDate         time.Time
}

// TokenUpdate carries a full replacement token set. The repository must
// apply all three fields in one write so a new access token is never
// paired with a stale expiry.
type TokenUpdate struct {
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time
}
