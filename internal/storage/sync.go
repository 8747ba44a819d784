package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"jichul/internal/core"
)

// Synchronizer writes one snapshot to a set of writers concurrently and waits
// for all of them.
type Synchronizer struct {
	writers []Writer
}

func NewSynchronizer(writers ...Writer) *Synchronizer {
	return &Synchronizer{writers: writers}
}

// Writers returns the configured writers in order.
func (s *Synchronizer) Writers() []Writer {
	return s.writers
}

// Sync writes snap to every writer whose name is not in skip. Each writer
// receives its own copy. All writers run to completion; their errors are
// joined.
func (s *Synchronizer) Sync(ctx context.Context, snap *core.Snapshot, skip ...string) error {
	excluded := make(map[string]bool, len(skip))
	for _, name := range skip {
		excluded[name] = true
	}

	errs := make([]error, len(s.writers))
	var g errgroup.Group
	for i, w := range s.writers {
		if excluded[w.Name()] {
			continue
		}
		copyForWriter := snap.Clone()
		g.Go(func() error {
			if err := w.Save(ctx, copyForWriter); err != nil {
				errs[i] = fmt.Errorf("%s: %w", w.Name(), err)
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	return nil
}
