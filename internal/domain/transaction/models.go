package transaction

import (
	"errors"
	"time"
)

// ErrDuplicateTransaction is returned by the repository when an insert
// collides with the (linked account, external id) uniqueness constraint.
// This is the storage-level idempotency guarantee: under concurrent
// delivery exactly one insert wins and every loser observes this error.
var ErrDuplicateTransaction = errors.New("transaction already exists for this account and external id")

// RawTransaction is an immutable record of one transaction as reported
// upstream. At most one of LedgerEntryID/PendingEntryID is ever set.
type RawTransaction struct {
	ID              string     `json:"id"`
	LinkedAccountID string     `json:"linkedAccountId"`
	ExternalID      string     `json:"externalId"`
	Amount          float64    `json:"amount"` // signed, major currency units
	Currency        string     `json:"currency"`
	Description     string     `json:"description"`
	Counterparty    *string    `json:"counterparty,omitempty"`
	MerchantName    *string    `json:"merchantName,omitempty"`
	Reference       *string    `json:"reference,omitempty"`
	TransactionDate time.Time  `json:"transactionDate"`
	SettledAt       *time.Time `json:"settledAt,omitempty"`
	LedgerEntryID   *string    `json:"ledgerEntryId,omitempty"`
	PendingEntryID  *string    `json:"pendingEntryId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// CreateRawTransactionParams contains the parameters for persisting a raw transaction
type CreateRawTransactionParams struct {
	LinkedAccountID string
	ExternalID      string
	Amount          float64
	Currency        string
	Description     string
	Counterparty    *string
	MerchantName    *string
	Reference       *string
	TransactionDate time.Time
	SettledAt       *time.Time
}
