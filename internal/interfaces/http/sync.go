package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"rentledger/internal/domain/account"
	"rentledger/internal/domain/bankfeed"
	syncsvc "rentledger/internal/domain/sync"
	"rentledger/internal/shared/progress"
)

// Syncer triggers sync runs. Satisfied by sync.Service.
type Syncer interface {
	SyncAccount(ctx context.Context, accountID string) (*syncsvc.Report, error)
}

// SyncHandler serves manual sync triggers and the progress event stream.
type SyncHandler struct {
	accounts    account.Repository
	syncer      Syncer
	broadcaster *progress.Broadcaster
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(accounts account.Repository, syncer Syncer, broadcaster *progress.Broadcaster) *SyncHandler {
	return &SyncHandler{
		accounts:    accounts,
		syncer:      syncer,
		broadcaster: broadcaster,
	}
}

// HandleTriggerSync runs a sync for the account and returns its report.
func (h *SyncHandler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := h.syncer.SyncAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		// The classified message is stable per failure class, suitable
		// for display and for polling clients.
		writeError(w, http.StatusBadGateway, bankfeed.ClassifyError(err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleSyncEvents streams sync progress for the account as server-sent
// events. The stream ends when the run completes or fails, or when the
// client disconnects.
func (h *SyncHandler) HandleSyncEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.accounts.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("Error fetching account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	events, cancel := h.broadcaster.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error encoding progress event for account %s: %v", id, err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

			if event.Stage == progress.StageCompleted || event.Stage == progress.StageFailed {
				return
			}
		}
	}
}
