package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"rentledger/internal/domain/account"
	syncsvc "rentledger/internal/domain/sync"
	upstream "rentledger/internal/infrastructure/bankfeed"
)

const webhookSyncTimeout = 2 * time.Minute

// TransactionIngester runs a single webhook-delivered transaction through
// the ingestion pipeline. Satisfied by sync.Service.
type TransactionIngester interface {
	IngestTransaction(ctx context.Context, accountID string, tx upstream.Transaction) (*syncsvc.Report, error)
}

// WebhookHandler receives transaction notifications from the upstream
// provider. Notifications that carry the transaction are ingested
// directly; bare notifications schedule a sync for the affected account.
type WebhookHandler struct {
	accounts account.Repository
	syncer   Syncer
	ingester TransactionIngester
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(accounts account.Repository, syncer Syncer, ingester TransactionIngester) *WebhookHandler {
	return &WebhookHandler{
		accounts: accounts,
		syncer:   syncer,
		ingester: ingester,
	}
}

// WebhookPayload is the upstream notification body. AccountID carries the
// provider's account id, not ours. Transaction is present when the
// provider pushes the event inline.
type WebhookPayload struct {
	AccountID   string                `json:"accountId"`
	EventType   string                `json:"eventType"`
	Transaction *upstream.Transaction `json:"transaction"`
}

// HandleBankfeedWebhook resolves the linked account behind the
// notification, then either ingests the pushed transaction or kicks off a
// sync in the background. The upstream only needs the 2xx; sync failures
// surface through the account's sync status.
func (h *WebhookHandler) HandleBankfeedWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if payload.AccountID == "" {
		writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	acct, err := h.accounts.GetByUpstreamAccountID(r.Context(), payload.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "No linked account for this upstream account")
			return
		}
		log.Printf("Error resolving webhook account %s: %v", payload.AccountID, err)
		writeError(w, http.StatusInternalServerError, "Failed to resolve account")
		return
	}

	if payload.Transaction != nil {
		report, err := h.ingester.IngestTransaction(r.Context(), acct.ID, *payload.Transaction)
		if err != nil {
			log.Printf("Error ingesting webhook transaction %s for account %s: %v",
				payload.Transaction.ID, acct.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to ingest transaction")
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	log.Printf("Webhook %q received for account %s, scheduling sync", payload.EventType, acct.ID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookSyncTimeout)
		defer cancel()
		if _, err := h.syncer.SyncAccount(ctx, acct.ID); err != nil {
			log.Printf("Webhook-triggered sync failed for account %s: %v", acct.ID, err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}
