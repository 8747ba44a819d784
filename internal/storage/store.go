package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"jichul/internal/core"
	"jichul/internal/log"
)

// Store owns the load chain, the writers and the lock that serializes every
// access. Each View or Update runs a full load, and Update a full save, while
// holding the lock.
type Store struct {
	mu      sync.Mutex
	loaders []Loader
	sync    *Synchronizer
	logger  *log.Logger

	readOnly bool
}

// NewStore builds a store. loaders are tried in order; writers receive every
// saved snapshot.
func NewStore(loaders []Loader, writers []Writer, logger *log.Logger) *Store {
	return &Store{
		loaders: loaders,
		sync:    NewSynchronizer(writers...),
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentStore),
	}
}

// NewReadOnlyStore builds a store that only reads. Loads never rewrite the
// other representations, and Update and Replace fail with ErrReadOnly. It
// suits processes running next to the server, which owns every write.
func NewReadOnlyStore(loaders []Loader, logger *log.Logger) *Store {
	s := NewStore(loaders, nil, logger)
	s.readOnly = true
	return s
}

// View loads the snapshot and passes it to fn. Changes fn makes are not
// persisted.
func (s *Store) View(ctx context.Context, fn func(*core.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, source, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	if !s.readOnly {
		s.reconcileLocked(ctx, snap, source)
	}
	return fn(snap)
}

// Update loads the snapshot, lets fn mutate it and saves the result to every
// writer. If fn returns an error nothing is saved and the error is returned
// unchanged.
func (s *Store) Update(ctx context.Context, fn func(*core.Snapshot) error) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, source, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		s.reconcileLocked(ctx, snap, source)
		return err
	}
	snap.Normalize()
	if err := s.sync.Sync(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot(ctx context.Context) (*core.Snapshot, error) {
	var out *core.Snapshot
	err := s.View(ctx, func(snap *core.Snapshot) error {
		out = snap.Clone()
		return nil
	})
	return out, err
}

// Replace saves snap as the new state without consulting the load chain.
func (s *Store) Replace(ctx context.Context, snap *core.Snapshot) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap = snap.Clone()
	snap.Normalize()
	if err := s.sync.Sync(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// loadLocked walks the chain and returns the first snapshot found together
// with the name of the loader that produced it. When every source fails, an
// empty snapshot is returned with an empty source name.
func (s *Store) loadLocked(ctx context.Context) (*core.Snapshot, string, error) {
	for _, l := range s.loaders {
		snap, err := l.Load(ctx)
		if err == nil {
			snap.Normalize()
			s.logger.DebugContext(ctx, "Snapshot loaded",
				log.NewFields().
					WithOperation(log.OpLoad).
					WithSnapshotSize(len(snap.Expenses), len(snap.Payees)).
					With(log.FieldSource, l.Name()).
					ToSlice()...)
			return snap, l.Name(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("load snapshot: %w", ctxErr)
		}
		level := "unavailable"
		if !errors.Is(err, core.ErrBackendUnavailable) {
			level = "failed"
		}
		s.logger.WarnContext(ctx, "Snapshot source "+level+", trying next",
			log.FieldBackend, l.Name(),
			log.FieldError, err.Error())
	}
	s.logger.WarnContext(ctx, "No snapshot source succeeded, starting empty")
	return core.NewSnapshot(), "", nil
}

// reconcileLocked rewrites every representation other than the one the
// snapshot came from. Failures are logged only.
func (s *Store) reconcileLocked(ctx context.Context, snap *core.Snapshot, source string) {
	if err := s.sync.Sync(ctx, snap, source); err != nil {
		s.logger.WarnContext(ctx, "Failed to synchronize backends after load",
			log.FieldSource, source,
			log.FieldError, err.Error())
	}
}
