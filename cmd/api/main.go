package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentledger/internal/scheduler"
	"rentledger/internal/shared/config"
	"rentledger/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize telemetry (if enabled)
	var telemetryShutdown func(context.Context) error
	if cfg.Telemetry.Enabled {
		telemetryShutdown, err = telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
	}

	// Initialize dependencies
	deps, err := NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Initialize scheduler (if enabled)
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Println("Initializing scheduler...")
		sched, err = scheduler.NewScheduler(scheduler.SchedulerConfig{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider: func(ctx context.Context) ([]scheduler.Job, error) {
				accounts, err := deps.AccountRepo.ListSyncEnabled(ctx)
				if err != nil {
					return nil, err
				}
				jobs := make([]scheduler.Job, 0, len(accounts))
				for _, acct := range accounts {
					jobs = append(jobs, scheduler.NewSyncJob(acct, deps.SyncService))
				}
				return jobs, nil
			},
		})
		if err != nil {
			return err
		}
		sched.Start()
	} else {
		log.Println("Scheduler is disabled")
	}

	// Set up routes and start the server
	handler := SetupRoutes(deps, cfg)
	srv := StartServer(handler, cfg.Server.Host+":"+cfg.Server.Port)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	GracefulShutdown(srv, sched, 30*time.Second)

	if telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetryShutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}

	return nil
}
