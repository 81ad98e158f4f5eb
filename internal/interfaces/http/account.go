package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rentledger/internal/domain/account"
	"rentledger/internal/domain/bankfeed"
	"rentledger/internal/domain/transaction"
	upstream "rentledger/internal/infrastructure/bankfeed"
)

// AccountHandler serves linked account endpoints. Responses never include
// token material; the account model hides those fields from JSON.
type AccountHandler struct {
	accounts     account.Repository
	tokens       *bankfeed.TokenService
	client       upstream.ClientInterface
	transactions transaction.Repository
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts account.Repository, tokens *bankfeed.TokenService, client upstream.ClientInterface, transactions transaction.Repository) *AccountHandler {
	return &AccountHandler{
		accounts:     accounts,
		tokens:       tokens,
		client:       client,
		transactions: transactions,
	}
}

// LinkAccountRequest is the payload for connecting a new upstream account.
type LinkAccountRequest struct {
	AuthorizationCode string `json:"authorizationCode"`
	UpstreamAccountID string `json:"upstreamAccountId"`
	InstitutionName   string `json:"institutionName"`
	SyncStartDate     string `json:"syncStartDate"` // YYYY-MM-DD
}

// HandleLinkAccount exchanges an authorization code and creates the
// linked account.
func (h *AccountHandler) HandleLinkAccount(w http.ResponseWriter, r *http.Request) {
	var req LinkAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AuthorizationCode == "" {
		writeError(w, http.StatusBadRequest, "authorizationCode is required")
		return
	}
	if req.UpstreamAccountID == "" {
		writeError(w, http.StatusBadRequest, "upstreamAccountId is required")
		return
	}
	syncStartDate, err := time.Parse("2006-01-02", req.SyncStartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "syncStartDate must be YYYY-MM-DD")
		return
	}

	acct, err := h.tokens.LinkAccount(r.Context(), bankfeed.LinkAccountParams{
		AuthorizationCode: req.AuthorizationCode,
		UpstreamAccountID: req.UpstreamAccountID,
		InstitutionName:   req.InstitutionName,
		SyncStartDate:     syncStartDate,
	})
	if err != nil {
		if errors.Is(err, bankfeed.ErrNoRefreshToken) {
			writeError(w, http.StatusUnprocessableEntity, "Provider did not issue a refresh token")
			return
		}
		if errors.Is(err, bankfeed.ErrAccountNotVisible) {
			writeError(w, http.StatusUnprocessableEntity, "Upstream account is not visible to this consent")
			return
		}
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			log.Printf("Code exchange rejected by provider: %v", apiErr)
			writeError(w, http.StatusBadGateway, "Provider rejected the authorization code")
			return
		}
		log.Printf("Error linking account for upstream %s: %v", req.UpstreamAccountID, err)
		writeError(w, http.StatusInternalServerError, "Failed to link account")
		return
	}

	writeJSON(w, http.StatusCreated, acct)
}

// HandleListAccounts returns all linked accounts.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		log.Printf("Error listing linked accounts: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []*account.LinkedAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleGetAccount returns one linked account by id.
func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("Error fetching account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// HandleListTransactions returns raw transactions for a linked account,
// newest first.
func (h *AccountHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
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

	limit, offset := parsePagination(r)
	transactions, err := h.transactions.ListByAccountID(r.Context(), id, limit, offset)
	if err != nil {
		log.Printf("Error listing transactions for account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []*transaction.RawTransaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

// RelinkAccountRequest carries a fresh authorization code for an account
// whose consent lapsed.
type RelinkAccountRequest struct {
	AuthorizationCode string `json:"authorizationCode"`
}

// HandleRelinkAccount exchanges a new authorization code for an existing
// account, replacing its stored token pair.
func (h *AccountHandler) HandleRelinkAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RelinkAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AuthorizationCode == "" {
		writeError(w, http.StatusBadRequest, "authorizationCode is required")
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("Error fetching account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	if err := h.tokens.Link(r.Context(), acct, req.AuthorizationCode); err != nil {
		if errors.Is(err, bankfeed.ErrNoRefreshToken) {
			writeError(w, http.StatusUnprocessableEntity, "Provider did not issue a refresh token")
			return
		}
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			log.Printf("Code exchange rejected by provider for account %s: %v", id, apiErr)
			writeError(w, http.StatusBadGateway, "Provider rejected the authorization code")
			return
		}
		log.Printf("Error relinking account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to relink account")
		return
	}

	writeJSON(w, http.StatusOK, acct)
}

// RegisterWebhookRequest carries the callback URL to subscribe upstream.
type RegisterWebhookRequest struct {
	CallbackURL string `json:"callbackUrl"`
}

// HandleRegisterWebhook subscribes a callback URL to the account's
// transaction events at the provider.
func (h *AccountHandler) HandleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RegisterWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CallbackURL == "" {
		writeError(w, http.StatusBadRequest, "callbackUrl is required")
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("Error fetching account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	token, err := h.tokens.AccessToken(r.Context(), acct)
	if err != nil {
		log.Printf("Error obtaining access token for account %s: %v", id, err)
		writeError(w, http.StatusBadGateway, "Could not authenticate with provider")
		return
	}

	reg, err := h.client.RegisterWebhook(r.Context(), token, req.CallbackURL)
	if err != nil {
		log.Printf("Error registering webhook for account %s: %v", id, err)
		writeError(w, http.StatusBadGateway, "Provider rejected the webhook registration")
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// HandleDeleteWebhook removes a webhook subscription at the provider.
func (h *AccountHandler) HandleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	webhookID := vars["webhookId"]

	acct, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("Error fetching account %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	token, err := h.tokens.AccessToken(r.Context(), acct)
	if err != nil {
		log.Printf("Error obtaining access token for account %s: %v", id, err)
		writeError(w, http.StatusBadGateway, "Could not authenticate with provider")
		return
	}

	if err := h.client.DeleteWebhook(r.Context(), token, webhookID); err != nil {
		log.Printf("Error deleting webhook %s for account %s: %v", webhookID, id, err)
		writeError(w, http.StatusBadGateway, "Provider rejected the webhook deletion")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetTransaction returns one raw transaction by id.
func (h *AccountHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	tx, err := h.transactions.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching transaction %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch transaction")
		return
	}
	if tx == nil {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
