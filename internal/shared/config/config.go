package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Encryption EncryptionConfig
	Bankfeed   BankfeedConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type EncryptionConfig struct {
	// Key is the credential cipher key: 64 hex characters (32 bytes).
	Key string
}

type BankfeedConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	SyncStartDate string
	FetchLimit    int
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	fetchLimit, err := strconv.Atoi(getEnv("BANKFEED_FETCH_LIMIT", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid BANKFEED_FETCH_LIMIT: %w", err)
	}

	// Parse scheduler configuration
	schedulerEnabled := getBoolEnv("SCHEDULER_ENABLED", true)
	schedulerTimes := strings.Split(getEnv("SCHEDULER_TIMES", "05:00,11:00,17:00,23:00"), ",")
	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}
	schedulerRunOnStartup := getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false)

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           dbPort,
			User:           getEnv("DB_USER", "rentledger"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "rentledger"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Bankfeed: BankfeedConfig{
			BaseURL:       getEnv("BANKFEED_BASE_URL", "https://api.bankfeed.example.com"),
			ClientID:      getEnv("BANKFEED_CLIENT_ID", ""),
			ClientSecret:  getEnv("BANKFEED_CLIENT_SECRET", ""),
			SyncStartDate: getEnv("BANKFEED_SYNC_START_DATE", "2023-01-01"),
			FetchLimit:    fetchLimit,
		},
		Scheduler: SchedulerConfig{
			Enabled:       schedulerEnabled,
			ScheduleTimes: schedulerTimes,
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  schedulerRunOnStartup,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "rentledger-api"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("OTEL_METRICS_PORT", "9090"),
		},
	}

	// Validate required fields. The cipher key is a startup gate: the
	// process must not serve traffic with a missing or malformed key.
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
	}
	if _, err := hex.DecodeString(cfg.Encryption.Key); err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be valid hex: %w", err)
	}
	if cfg.Bankfeed.ClientID == "" {
		return nil, fmt.Errorf("BANKFEED_CLIENT_ID is required")
	}
	if cfg.Bankfeed.ClientSecret == "" {
		return nil, fmt.Errorf("BANKFEED_CLIENT_SECRET is required")
	}
	if _, err := time.Parse("2006-01-02", cfg.Bankfeed.SyncStartDate); err != nil {
		return nil, fmt.Errorf("invalid BANKFEED_SYNC_START_DATE: %w", err)
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
