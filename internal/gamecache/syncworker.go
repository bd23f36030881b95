package gamecache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/obslog"
)

// SyncWorker is the steady-state reconciliation path: on a fixed interval it
// writes cache-resident snapshots of recently touched rooms back to durable
// storage, then clears the marker set. It runs regardless of failure signals
// and keeps the database eventually consistent without per-move writes.
type SyncWorker struct {
	store    *Store
	rooms    RoomSaver
	lease    *Lease
	interval time.Duration
}

func NewSyncWorker(store *Store, rooms RoomSaver, lease *Lease, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &SyncWorker{store: store, rooms: rooms, lease: lease, interval: interval}
}

// Run reconciles on a fixed interval until the context ends.
func (w *SyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.lease != nil {
				ok, err := w.lease.TryAcquire(ctx)
				if err != nil || !ok {
					continue
				}
			}
			if n, err := w.SyncOnce(ctx); err != nil {
				obslog.L().Error("sync_tick_error", zap.Int("synced", n), zap.Error(err))
			}
			if w.lease != nil {
				_ = w.lease.Release(ctx)
			}
		}
	}
}

// SyncOnce reconciles every marked room with a present snapshot and returns
// how many rooms were written back.
func (w *SyncWorker) SyncOnce(ctx context.Context) (int, error) {
	codes, err := w.store.PendingSync(ctx)
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}

	states := make(map[string]*Snapshot, len(codes))
	for _, code := range codes {
		snap, err := w.store.Get(ctx, code)
		if err != nil {
			return 0, err
		}
		if snap != nil {
			states[code] = snap
		}
	}

	if len(states) > 0 {
		if err := w.rooms.ApplySnapshots(ctx, states); err != nil {
			return 0, err
		}
	}
	if err := w.store.ClearPendingSync(ctx); err != nil {
		return len(states), err
	}

	obslog.L().Info("sync_tick", zap.Int("marked", len(codes)), zap.Int("synced", len(states)))
	return len(states), nil
}
