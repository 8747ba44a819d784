package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"jichul/internal/core"
	"jichul/internal/storage"
)

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert data between storage formats",
	}

	cmd.AddCommand(newSQLiteToJSONCommand(rootOpts))
	cmd.AddCommand(newJSONToCSVCommand(rootOpts))

	return cmd
}

func newSQLiteToJSONCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sqlite-to-json",
		Short: "Copy a legacy SQLite database into the data directory",
		Long: `Read every expense and payee from a SQLite database and save them as
the current data, replacing data.json and both CSV files.

Example:
  jichul migrate sqlite-to-json --db ./expense_tracker.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.Config.ValidateStorage(); err != nil {
				return err
			}
			ctx := cmd.Context()

			src, err := storage.OpenSQLite(ctx, dbPath)
			if err != nil {
				return fmt.Errorf("open %s: %w", dbPath, err)
			}
			defer src.Close()
			snap, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("read %s: %w", dbPath, err)
			}

			_, res, err := openLedger(ctx, rootOpts.Config, rootOpts.Logger)
			if err != nil {
				return err
			}
			defer res.Close()
			if err := res.Store.Replace(ctx, snap); err != nil {
				return err
			}
			return reportMigration(cmd, rootOpts, snap, res.JSON.Path())
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func newJSONToCSVCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "json-to-csv",
		Short: "Regenerate the CSV files from data.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.Config.ValidateStorage(); err != nil {
				return err
			}
			ctx := cmd.Context()

			_, res, err := openLedger(ctx, rootOpts.Config, rootOpts.Logger)
			if err != nil {
				return err
			}
			defer res.Close()

			snap, err := jsonToCSV(ctx, res.JSON, res.CSV)
			if err != nil {
				return err
			}
			return reportMigration(cmd, rootOpts, snap, rootOpts.Config.DataDir)
		},
	}
}

func jsonToCSV(ctx context.Context, src *storage.JSONBackend, dst *storage.CSVBackend) (*core.Snapshot, error) {
	snap, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path(), err)
	}
	if err := dst.Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func reportMigration(cmd *cobra.Command, rootOpts *RootOptions, snap *core.Snapshot, dest string) error {
	p := rootOpts.printer(cmd)
	data := map[string]any{
		"expenses": len(snap.Expenses),
		"payees":   len(snap.Payees),
		"dest":     dest,
	}
	return p.Result(data, func() {
		p.Success("지출 %d건, 거래처 %d건을 옮겼습니다", len(snap.Expenses), len(snap.Payees))
		p.Info("%s", dest)
	})
}
