package main

import (
	"log"

	"rentledger/internal/domain/bankfeed"
	"rentledger/internal/domain/ingestion"
	"rentledger/internal/domain/rule"
	"rentledger/internal/domain/sync"
	"rentledger/internal/domain/transaction"
	upstream "rentledger/internal/infrastructure/bankfeed"
	"rentledger/internal/infrastructure/crypto"
	"rentledger/internal/infrastructure/postgres"
	httphandlers "rentledger/internal/interfaces/http"
	"rentledger/internal/shared/config"
	"rentledger/internal/shared/progress"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AccountHandler *httphandlers.AccountHandler
	SyncHandler    *httphandlers.SyncHandler
	WebhookHandler *httphandlers.WebhookHandler
	RuleHandler    *httphandlers.RuleHandler
	LedgerHandler  *httphandlers.LedgerHandler

	// Sync service and account repo (for the scheduler job provider)
	SyncService *sync.Service
	AccountRepo *postgres.LinkedAccountRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		return nil, err
	}

	// Initialize credential cipher
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	accountRepo := postgres.NewLinkedAccountRepository(db)
	transactionRepo := postgres.NewRawTransactionRepository(db)
	ledgerRepo := postgres.NewLedgerEntryRepository(db)
	ruleRepo := postgres.NewMatchingRuleRepository(db)
	propertyRepo := postgres.NewPropertyRepository(db)

	// Initialize bank feed client and token lifecycle
	client := upstream.NewClient(cfg.Bankfeed.BaseURL, cfg.Bankfeed.ClientID, cfg.Bankfeed.ClientSecret)
	tokenService := bankfeed.NewTokenService(accountRepo, client, encryptor)
	fetcher := bankfeed.NewFetcher(client, tokenService, bankfeed.DefaultRetryOptions())

	// Initialize ingestion pipeline
	detector := transaction.NewDuplicateDetector(transactionRepo)
	engine := rule.NewEngine()
	pipeline := ingestion.NewPipeline(transactionRepo, ledgerRepo, ruleRepo, detector, engine)

	// Initialize sync service with progress broadcast
	broadcaster := progress.NewBroadcaster()
	syncService := sync.NewService(accountRepo, fetcher, pipeline, broadcaster, cfg.Bankfeed.FetchLimit)

	return &Dependencies{
		DB:             db,
		AccountHandler: httphandlers.NewAccountHandler(accountRepo, tokenService, client, transactionRepo),
		SyncHandler:    httphandlers.NewSyncHandler(accountRepo, syncService, broadcaster),
		WebhookHandler: httphandlers.NewWebhookHandler(accountRepo, syncService, syncService),
		RuleHandler:    httphandlers.NewRuleHandler(ruleRepo, propertyRepo),
		LedgerHandler:  httphandlers.NewLedgerHandler(ledgerRepo, propertyRepo),
		SyncService:    syncService,
		AccountRepo:    accountRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
