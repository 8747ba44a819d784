// Package storage holds the physical representations of the snapshot and the
// Store that serializes access to them.
//
// Every representation implements Loader, most also implement Writer. A
// Loader signals "missing or corrupt, try the next one" by returning an error
// that wraps core.ErrBackendUnavailable.
package storage

import (
	"context"
	"errors"
	"fmt"

	"jichul/internal/core"
)

// ErrReadOnly is returned by Update and Replace on a store opened with
// NewReadOnlyStore.
var ErrReadOnly = errors.New("store is read-only")

// Loader reads a whole snapshot from one source.
type Loader interface {
	Name() string
	Load(ctx context.Context) (*core.Snapshot, error)
}

// Writer replaces a whole snapshot in one destination.
type Writer interface {
	Name() string
	Save(ctx context.Context, s *core.Snapshot) error
}

// Backend is a source that can also be written.
type Backend interface {
	Loader
	Writer
}

// unavailable wraps err so that it matches core.ErrBackendUnavailable.
func unavailable(name string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", name, core.ErrBackendUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", name, core.ErrBackendUnavailable, err)
}
