package main

// Package main is the entry point for the kubemedic server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Wire the cluster client, prediction engine, and remediation dispatcher
//   - Start the collection and prediction loops
//   - Serve /healthz, /status, /metrics, and the history endpoints
//   - Implement graceful shutdown with context cancellation

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kubilitics/kubemedic/internal/config"
	"github.com/kubilitics/kubemedic/internal/server"
)

func main() {
	configPath := flag.String("config", "/etc/kubemedic/config.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	manager := config.NewManager(*configPath)
	if err := manager.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := manager.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(manager.Get(ctx))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nReceived shutdown signal...")

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Shutdown complete")
}
