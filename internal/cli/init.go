// Package cli implements the jichul command line: the HTTP server plus the
// maintenance commands that work directly on the data directory.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jichul/internal/backend"
	"jichul/internal/config"
	"jichul/internal/log"
	"jichul/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer, verbose bool) *log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if verbose {
		level = log.ParseLevel("debug")
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// openLedger opens the configured store and wraps it in a ledger without a
// change notifier. The caller closes the returned result.
func openLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.Ledger, *backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.Open(ctx, bcfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return services.NewLedger(res.Store, services.WithLogger(logger)), res, nil
}

// openReadOnly opens the configured store for reading only. Commands that
// run beside the server use it so they never race the server's writes.
func openReadOnly(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.ReadOnly = true
	return backend.Open(ctx, bcfg, logger)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. When
// the signal arrives, cleanup runs with a context bounded by timeout and the
// returned channel is closed once it has finished.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
