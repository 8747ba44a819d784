package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"jichul/internal/backend"
	"jichul/internal/log"
	"jichul/internal/sheets"
	"jichul/internal/sheets/google"
	"jichul/internal/sheets/memory"
	"jichul/internal/worker"
)

// NewWorkerCommand creates the worker command, which mirrors the data
// directory into Google Sheets.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	var once, dryRun bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror the ledger into Google Sheets",
		Long: `Copy every expense and payee into the spreadsheet named by
GOOGLE_SPREADSHEET_ID, then keep it current.

The worker resyncs after each burst of change events from AMQP_URL and every
SYNC_INTERVAL. With --once it syncs a single time and exits. With --dry-run
it renders the tabs in memory, prints their sizes and exits without
contacting Google.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				return runDryRun(cmd, rootOpts)
			}
			return runWorker(cmd.Context(), rootOpts, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "sync once and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render the tabs in memory instead of Google Sheets")

	return cmd
}

func runWorker(ctx context.Context, rootOpts *RootOptions, once bool) error {
	cfg, logger := rootOpts.Config, rootOpts.Logger
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}

	res, err := openReadOnly(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	mirror, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}, logger)
	if err != nil {
		return err
	}

	w := worker.NewMirrorWorker(res.Store, mirror, cfg.SyncSettle, cfg.SyncInterval, logger)
	if once {
		return w.SyncNow(ctx)
	}

	var events worker.EventSource
	if client := backend.NewAMQPClient(cfg, logger); client != nil {
		defer client.Close()
		events = client
	} else {
		logger.Info("No AMQP_URL, relying on periodic resync only",
			"interval", cfg.SyncInterval.String())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx, done := GracefulShutdown(ctx, logger, 5*time.Second, nil)
	logger.Info("Starting mirror worker",
		log.NewFields().WithOperation(log.OpStartup).With("spreadsheet_id", cfg.GoogleSpreadsheetID).ToSlice()...)

	err = w.Run(ctx, events)
	cancel()
	<-done
	return err
}

func runDryRun(cmd *cobra.Command, rootOpts *RootOptions) error {
	if err := rootOpts.Config.ValidateStorage(); err != nil {
		return err
	}
	ctx := cmd.Context()
	res, err := openReadOnly(ctx, rootOpts.Config, rootOpts.Logger)
	if err != nil {
		return err
	}
	defer res.Close()

	mirror := memory.New()
	if err := worker.NewMirrorWorker(res.Store, mirror, 0, 0, rootOpts.Logger).SyncNow(ctx); err != nil {
		return err
	}

	counts := make(map[string]int, 2)
	for _, tab := range []string{sheets.ExpensesTab, sheets.PayeesTab} {
		rows, err := mirror.ReadRows(ctx, tab)
		if err != nil {
			return err
		}
		counts[tab] = len(rows)
	}

	p := rootOpts.printer(cmd)
	return p.Result(counts, func() {
		for _, tab := range []string{sheets.ExpensesTab, sheets.PayeesTab} {
			p.Info("%s: %d rows", tab, counts[tab])
		}
	})
}
