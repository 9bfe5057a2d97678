/*
Package main is the entry point for the Rasel chat server.

It loads configuration, initializes the global logging system, wires the
directory store and session registry into the TCP server, starts the health
endpoint, and handles operating system interrupt signals (SIGINT, SIGTERM)
for a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rasel/internal/app/directory"
	"rasel/internal/app/session"
	"rasel/internal/configs"
	"rasel/internal/pkg/logx"
	"rasel/internal/pkg/passwd"
	"rasel/internal/server"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("health_addr", cfg.HealthAddr).
		Str("password_hashing", cfg.PasswordHashing).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The stores are explicit instances owned here and passed down by
	// reference; nothing in the server reaches for global state.
	store := directory.NewStore(passwd.ForMode(cfg.PasswordHashing))
	registry := session.NewRegistry()

	srv := server.New(cfg, store, registry)

	if err := srv.Listen(); err != nil {
		logx.Fatal(err, "Server failed to start")
	}

	go func() {
		if err := srv.ServeHealth(ctx); err != nil {
			logx.Error(err, "Health endpoint failed")
		}
	}()

	if err := srv.Serve(ctx); err != nil {
		logx.Fatal(err, "Server terminated with error")
	}

	logx.Info("Server gracefully stopped.")
}
