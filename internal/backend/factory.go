package backend

import (
	"context"
	"errors"
	"fmt"

	"jichul/internal/log"
	"jichul/internal/storage"
)

// Result is an opened store plus whatever must be released on shutdown.
type Result struct {
	Store *storage.Store
	// JSON is the snapshot cache, for commands that rewrite it directly.
	JSON *storage.JSONBackend
	// CSV is the row-oriented pair of files.
	CSV *storage.CSVBackend

	closers []func() error
}

// Close releases database handles.
func (r *Result) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open builds the store.
//
// The load chain is the primary database when one is configured, then the
// CSV pair, the JSON cache, the remote copy if a repository is set, and
// finally the default snapshot. Every save goes to the primary database and
// to both files. With cfg.ReadOnly the store only reads, and loading leaves
// every representation untouched.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentBackend)

	jsonb := storage.NewJSONBackend(cfg.path(storage.JSONFileName))
	csvb := storage.NewCSVBackend(
		cfg.path(storage.ExpensesCSVFileName),
		cfg.path(storage.PayeesCSVFileName),
		jsonb,
	)
	res := &Result{JSON: jsonb, CSV: csvb}

	var loaders []storage.Loader
	var writers []storage.Writer

	switch cfg.Type {
	case SQLiteBackend, PostgresBackend:
		db, err := openSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, db.Close)
		loaders = append(loaders, db)
		writers = append(writers, db)
	}

	loaders = append(loaders, csvb, jsonb)
	writers = append(writers, csvb, jsonb)

	if cfg.GitHubRepo != "" {
		loaders = append(loaders, storage.NewRemoteLoader(storage.RemoteConfig{
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			Token:   cfg.GitHubToken,
			Timeout: cfg.RemoteTimeout,
		}))
	}
	loaders = append(loaders, storage.NewDefaultLoader(cfg.PayeeSeedFile))

	if cfg.ReadOnly {
		res.Store = storage.NewReadOnlyStore(loaders, logger)
	} else {
		res.Store = storage.NewStore(loaders, writers, logger)
	}

	names := make([]string, 0, len(loaders))
	for _, l := range loaders {
		names = append(names, l.Name())
	}
	logger.InfoContext(ctx, "Store initialized",
		log.FieldBackend, cfg.Type.String(),
		"load_chain", names,
		"read_only", cfg.ReadOnly,
		"data_dir", cfg.DataDir)

	return res, nil
}

func openSQL(ctx context.Context, cfg Config) (*storage.SQLBackend, error) {
	if cfg.Type == SQLiteBackend {
		db, err := storage.OpenSQLite(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		return db, nil
	}
	db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres backend: %w", err)
	}
	return db, nil
}
