// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	app "wallet-ledger/internal"
	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/config"
)

var (
	cli = kingpin.New("api", "Wallet ledger HTTP API.")

	port            = cli.Flag("port", "Listen port; overrides SERVER_PORT.").String()
	migrateOnStart  = cli.Flag("migrate", "Apply pending schema migrations before serving.").Bool()
	shutdownTimeout = cli.Flag("shutdown-timeout", "Grace period for in-flight requests and background work.").Default("30s").Duration()
)

func main() {
	kingpin.MustParse(cli.Parse(os.Args[1:]))

	if err := run(); err != nil {
		// The logger may not exist yet if configuration failed.
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if *port != "" {
		cfg.ServerPort = *port
	}
	if *migrateOnStart {
		cfg.AutoMigrate = true
	}

	application := app.NewApplication()
	if err := application.InitializeWith(ctx, cfg); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	application.Start(ctx)
	logger := application.Logger

	server := &http.Server{
		Addr:         net.JoinHostPort("", cfg.ServerPort),
		Handler:      application.HTTPHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: handler.DefaultTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", server.Addr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var failed error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case failed = <-serverErr:
		logger.Error("HTTP server failed", "error", failed)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	// Background loops and the worker pool drain after the last request.
	if err := application.Shutdown(shutdownCtx); err != nil {
		return errors.Join(failed, fmt.Errorf("shutdown: %w", err))
	}
	logger.Info("Application stopped")
	return failed
}
