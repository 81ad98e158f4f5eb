package main

import (
	"net/http"

	"github.com/gorilla/mux"

	httphandlers "rentledger/internal/interfaces/http"
	"rentledger/internal/shared/config"
	"rentledger/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", httphandlers.HandleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// Linked accounts
	api.HandleFunc("/accounts", deps.AccountHandler.HandleLinkAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts", deps.AccountHandler.HandleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", deps.AccountHandler.HandleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/transactions", deps.AccountHandler.HandleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", deps.AccountHandler.HandleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/relink", deps.AccountHandler.HandleRelinkAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/webhook", deps.AccountHandler.HandleRegisterWebhook).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/webhook/{webhookId}", deps.AccountHandler.HandleDeleteWebhook).Methods(http.MethodDelete)

	// Sync trigger and progress stream
	api.HandleFunc("/accounts/{id}/sync", deps.SyncHandler.HandleTriggerSync).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/sync/events", deps.SyncHandler.HandleSyncEvents).Methods(http.MethodGet)

	// Upstream webhook receiver
	api.HandleFunc("/webhooks/bankfeed", deps.WebhookHandler.HandleBankfeedWebhook).Methods(http.MethodPost)

	// Matching rules
	api.HandleFunc("/rules", deps.RuleHandler.HandleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules", deps.RuleHandler.HandleListRules).Methods(http.MethodGet)
	api.HandleFunc("/rules/{id}", deps.RuleHandler.HandleGetRule).Methods(http.MethodGet)
	api.HandleFunc("/rules/{id}", deps.RuleHandler.HandleUpdateRule).Methods(http.MethodPut)
	api.HandleFunc("/rules/{id}", deps.RuleHandler.HandleDeleteRule).Methods(http.MethodDelete)

	// Properties, ledger, and the pending review queue
	api.HandleFunc("/properties", deps.LedgerHandler.HandleListProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id}", deps.LedgerHandler.HandleGetProperty).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id}/ledger", deps.LedgerHandler.HandleListLedgerEntries).Methods(http.MethodGet)
	api.HandleFunc("/ledger-entries/{id}", deps.LedgerHandler.HandleGetLedgerEntry).Methods(http.MethodGet)
	api.HandleFunc("/pending-entries", deps.LedgerHandler.HandleListPendingEntries).Methods(http.MethodGet)
	api.HandleFunc("/pending-entries/{id}", deps.LedgerHandler.HandleGetPendingEntry).Methods(http.MethodGet)

	// Apply global middleware
	var handler http.Handler = router
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}
	return middleware.Logging(handler)
}
