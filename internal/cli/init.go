// Package cli holds the start-up and shutdown steps of cmd/mojbudzet.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mojbudzet/internal/config"
	"mojbudzet/internal/log"
	"mojbudzet/internal/storage"
)

// SetupLogger builds the application logger at level and makes it the
// slog default, so packages logging through slog share its handler.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads .env and the environment, exiting on invalid
// settings.
func LoadAndValidateConfig() *config.Config {
	config.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		// the configured logger depends on LOG_LEVEL, which may be the problem
		SetupLogger("info").Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitSessions opens the session database, exiting on failure.
func InitSessions(logger *log.Logger, dbPath string) *storage.SessionRepository {
	repo, err := storage.NewSessionRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize session storage", log.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// GracefulShutdown runs cleanup on SIGINT or SIGTERM. The returned context
// is cancelled once a signal arrives; done closes after cleanup returned or
// the timeout passed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
