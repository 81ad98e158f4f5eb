package http

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"rentledger/internal/domain/ledger"
	"rentledger/internal/domain/property"
)

// LedgerHandler serves read access to properties, ledger entries, and the
// pending review queue.
type LedgerHandler struct {
	ledger     ledger.Repository
	properties property.Repository
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerRepo ledger.Repository, properties property.Repository) *LedgerHandler {
	return &LedgerHandler{
		ledger:     ledgerRepo,
		properties: properties,
	}
}

// HandleListProperties returns all properties.
func (h *LedgerHandler) HandleListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.properties.List(r.Context())
	if err != nil {
		log.Printf("Error listing properties: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list properties")
		return
	}
	if properties == nil {
		properties = []*property.Property{}
	}
	writeJSON(w, http.StatusOK, properties)
}

// HandleGetProperty returns one property by id.
func (h *LedgerHandler) HandleGetProperty(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found, err := h.properties.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching property %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch property")
		return
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "Property not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// HandleListLedgerEntries returns the ledger for one property, newest
// first.
func (h *LedgerHandler) HandleListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["id"]

	exists, err := h.properties.Exists(r.Context(), propertyID)
	if err != nil {
		log.Printf("Error checking property %s: %v", propertyID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch property")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Property not found")
		return
	}

	limit, offset := parsePagination(r)
	entries, err := h.ledger.ListLedgerEntriesByProperty(r.Context(), propertyID, limit, offset)
	if err != nil {
		log.Printf("Error listing ledger entries for property %s: %v", propertyID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list ledger entries")
		return
	}
	if entries == nil {
		entries = []*ledger.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetLedgerEntry returns one ledger entry by id.
func (h *LedgerHandler) HandleGetLedgerEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, err := h.ledger.GetLedgerEntryByID(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching ledger entry %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch ledger entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "Ledger entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleListPendingEntries returns the review queue of entries the rule
// engine could not fully classify.
func (h *LedgerHandler) HandleListPendingEntries(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	entries, err := h.ledger.ListPendingEntries(r.Context(), limit, offset)
	if err != nil {
		log.Printf("Error listing pending entries: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list pending entries")
		return
	}
	if entries == nil {
		entries = []*ledger.PendingEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetPendingEntry returns one pending entry by id.
func (h *LedgerHandler) HandleGetPendingEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, err := h.ledger.GetPendingEntryByID(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching pending entry %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch pending entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "Pending entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
