package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"rentledger/internal/scheduler"
)

// StartServer creates and starts the HTTP server in a background goroutine.
func StartServer(handler http.Handler, addr string) *http.Server {
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the sync progress stream holds its
		// connection open until the run finishes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	return srv
}

// GracefulShutdown performs graceful shutdown of the server and scheduler.
func GracefulShutdown(srv *http.Server, sched *scheduler.Scheduler, timeout time.Duration) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown scheduler if running
	if sched != nil {
		sched.Shutdown(timeout)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	log.Println("Server stopped")
}
