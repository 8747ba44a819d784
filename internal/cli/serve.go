package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"jichul/internal/backend"
	"jichul/internal/config"
	apphttp "jichul/internal/http"
	"jichul/internal/log"
	"jichul/internal/services"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr            string
	ShutdownTimeout time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the JSON API on PORT (or --addr).

When AMQP_URL is set, every change is announced on the exchange so the mirror
worker can copy the data to Google Sheets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default \":$PORT\")")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed for in-flight requests on shutdown")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, logger := opts.Config, opts.Logger
	if err := cfg.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.Open(ctx, bcfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	ledgerOpts := []services.Option{services.WithLogger(logger)}
	if client := backend.NewAMQPClient(cfg, logger); client != nil {
		defer client.Close()
		ledgerOpts = append(ledgerOpts, services.WithNotifier(client))
	}
	ledger := services.NewLedger(res.Store, ledgerOpts...)

	addr := opts.Addr
	if addr == "" {
		addr = net.JoinHostPort("", cfg.Port)
	}
	srv := apphttp.NewServer(addr, ledger, serverOptions(cfg, logger))

	ctx, done := GracefulShutdown(ctx, logger, opts.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting server",
		log.NewFields().
			WithOperation(log.OpStartup).
			With("addr", addr).
			With(log.FieldBackend, cfg.DataBackend).
			ToSlice()...)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		cancel()
	case <-ctx.Done():
	}
	<-done
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}

func serverOptions(cfg *config.Config, logger *log.Logger) apphttp.Options {
	return apphttp.Options{
		Password:           cfg.AppPassword,
		SessionTTL:         cfg.SessionTTL,
		SessionMax:         cfg.SessionMax,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		CORSOrigins:        cfg.CORSOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		SecureCookies:      cfg.SecureCookies,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	}
}
