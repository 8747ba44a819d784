package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"jichul/internal/amqp"
	"jichul/internal/core"
	"jichul/internal/log"
	"jichul/internal/sheets"
)

// SnapshotSource provides the state to mirror.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*core.Snapshot, error)
}

// EventSource delivers change notifications until ctx is canceled.
type EventSource interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeEvent) error) error
}

// MirrorWorker keeps a spreadsheet in step with the store. Change events only
// mark the mirror dirty; bursts of events within the settle delay produce a
// single full sync.
type MirrorWorker struct {
	source   SnapshotSource
	mirror   sheets.SnapshotMirror
	settle   time.Duration
	interval time.Duration
	logger   *log.Logger
	dirty    chan struct{}
}

// NewMirrorWorker creates a worker. A zero interval disables periodic resyncs.
func NewMirrorWorker(source SnapshotSource, mirror sheets.SnapshotMirror, settle, interval time.Duration, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		source:   source,
		mirror:   mirror,
		settle:   settle,
		interval: interval,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentWorker),
		dirty:    make(chan struct{}, 1),
	}
}

// HandleChange records that the mirror is stale. It never blocks.
func (w *MirrorWorker) HandleChange(ctx context.Context, ev *amqp.ChangeEvent) error {
	w.logger.DebugContext(ctx, "Change received",
		log.NewFields().WithEntity(ev.Entity, ev.ID).With(log.FieldOperation, ev.Op).ToSlice()...)
	w.markDirty()
	return nil
}

func (w *MirrorWorker) markDirty() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// SyncNow mirrors the current snapshot once.
func (w *MirrorWorker) SyncNow(ctx context.Context) error {
	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := w.mirror.MirrorSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("mirror snapshot: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirror synced",
		log.NewFields().
			WithOperation(log.OpSync).
			WithSnapshotSize(len(snap.Expenses), len(snap.Payees)).
			ToSlice()...)
	return nil
}

// Run syncs once at startup and then on every batch of changes until ctx is
// canceled. A nil events source leaves only the periodic resync.
func (w *MirrorWorker) Run(ctx context.Context, events EventSource) error {
	if err := w.SyncNow(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup sync failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	if events != nil {
		g.Go(func() error {
			return events.ConsumeChanges(gctx, w.HandleChange)
		})
	}
	g.Go(func() error {
		return w.loop(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *MirrorWorker) loop(ctx context.Context) error {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.dirty:
			if !w.wait(ctx) {
				return ctx.Err()
			}
			// Changes that arrived while settling are covered by this sync.
			select {
			case <-w.dirty:
			default:
			}
		case <-tick:
		}
		if err := w.SyncNow(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "Mirror sync failed", log.FieldError, err.Error())
		}
	}
}

func (w *MirrorWorker) wait(ctx context.Context) bool {
	if w.settle <= 0 {
		return true
	}
	t := time.NewTimer(w.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
