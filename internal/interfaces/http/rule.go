package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"rentledger/internal/domain/ledger"
	"rentledger/internal/domain/property"
	"rentledger/internal/domain/rule"
)

// RuleHandler serves matching rule CRUD.
type RuleHandler struct {
	rules      rule.Repository
	properties property.Repository
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(rules rule.Repository, properties property.Repository) *RuleHandler {
	return &RuleHandler{
		rules:      rules,
		properties: properties,
	}
}

// RuleRequest is the create/update payload for a matching rule. A nil
// Enabled defaults to true on create.
type RuleRequest struct {
	Name            string              `json:"name"`
	LinkedAccountID *string             `json:"linkedAccountId"`
	Priority        int                 `json:"priority"`
	Enabled         *bool               `json:"enabled"`
	Conditions      rule.ConditionGroup `json:"conditions"`
	PropertyID      *string             `json:"propertyId"`
	EntryType       *string             `json:"entryType"`
	Category        *string             `json:"category"`
}

// validate checks the payload beyond what the repository enforces: the
// outcome fields must name real vocabulary entries and a real property.
func (h *RuleHandler) validate(r *http.Request, req *RuleRequest) (int, string) {
	if req.Name == "" {
		return http.StatusBadRequest, "name is required"
	}
	if err := req.Conditions.Validate(); err != nil {
		return http.StatusBadRequest, err.Error()
	}
	if req.EntryType != nil && !ledger.ValidType(*req.EntryType) {
		return http.StatusBadRequest, "entryType must be INCOME or EXPENSE"
	}
	if req.Category != nil {
		if req.EntryType == nil {
			return http.StatusBadRequest, "category requires entryType"
		}
		if !ledger.ValidCategory(ledger.EntryType(*req.EntryType), *req.Category) {
			return http.StatusBadRequest, "category is not valid for this entry type"
		}
	}
	if req.PropertyID != nil {
		exists, err := h.properties.Exists(r.Context(), *req.PropertyID)
		if err != nil {
			log.Printf("Error checking property %s: %v", *req.PropertyID, err)
			return http.StatusInternalServerError, "Failed to validate property"
		}
		if !exists {
			return http.StatusBadRequest, "propertyId does not reference an existing property"
		}
	}
	return 0, ""
}

// HandleCreateRule creates a matching rule.
func (h *RuleHandler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if status, message := h.validate(r, &req); status != 0 {
		writeError(w, status, message)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	created, err := h.rules.Create(r.Context(), rule.CreateMatchingRuleParams{
		Name:            req.Name,
		LinkedAccountID: req.LinkedAccountID,
		Priority:        req.Priority,
		Enabled:         enabled,
		Conditions:      req.Conditions,
		PropertyID:      req.PropertyID,
		EntryType:       req.EntryType,
		Category:        req.Category,
	})
	if err != nil {
		log.Printf("Error creating rule %q: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleListRules returns all matching rules.
func (h *RuleHandler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		log.Printf("Error listing rules: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}
	if rules == nil {
		rules = []*rule.MatchingRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// HandleGetRule returns one matching rule by id.
func (h *RuleHandler) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found, err := h.rules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, rule.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		log.Printf("Error fetching rule %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch rule")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// HandleUpdateRule replaces a rule's definition.
func (h *RuleHandler) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := h.rules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, rule.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		log.Printf("Error fetching rule %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch rule")
		return
	}

	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if status, message := h.validate(r, &req); status != 0 {
		writeError(w, status, message)
		return
	}

	existing.Name = req.Name
	existing.LinkedAccountID = req.LinkedAccountID
	existing.Priority = req.Priority
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	existing.Conditions = req.Conditions
	existing.PropertyID = req.PropertyID
	existing.EntryType = req.EntryType
	existing.Category = req.Category

	if err := h.rules.Update(r.Context(), existing); err != nil {
		if errors.Is(err, rule.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		log.Printf("Error updating rule %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// HandleDeleteRule deletes a matching rule.
func (h *RuleHandler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.rules.Delete(r.Context(), id); err != nil {
		if errors.Is(err, rule.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		log.Printf("Error deleting rule %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
