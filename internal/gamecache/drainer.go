package gamecache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/obslog"
	"github.com/park285/chess-rooms/internal/resilience"
)

// ErrThrottled reports that the durable write path refused this tick; the
// batch stays buffered for the next one.
var ErrThrottled = errors.New("durable write path throttled")

// Drainer trickles buffered snapshots into durable storage while the cache
// is out. Each tick drains a bounded batch, keeps only the newest snapshot
// per room code and commits the batch in one bulk write. The rate limiter
// and bulkhead keep a cache outage from saturating the database.
type Drainer struct {
	buffer   *Buffer
	rooms    RoomSaver
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	lease    *Lease
	interval time.Duration
	batch    int
}

func NewDrainer(buffer *Buffer, rooms RoomSaver, limiter *resilience.RateLimiter, bulkhead *resilience.Bulkhead, lease *Lease, interval time.Duration, batch int) *Drainer {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &Drainer{
		buffer:   buffer,
		rooms:    rooms,
		limiter:  limiter,
		bulkhead: bulkhead,
		lease:    lease,
		interval: interval,
		batch:    batch,
	}
}

// Run drains on a fixed interval until the context ends.
func (d *Drainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if d.lease != nil {
				ok, err := d.lease.TryAcquire(ctx)
				if err != nil || !ok {
					continue
				}
			}
			if n, err := d.DrainOnce(ctx); err != nil {
				obslog.L().Error("buffer_drain_error", zap.Int("drained", n), zap.Error(err))
			}
			if d.lease != nil {
				_ = d.lease.Release(ctx)
			}
		}
	}
}

// DrainOnce performs a single coalescing drain and returns how many distinct
// rooms were written back. Items that could not be committed are re-offered
// so a transient database error does not lose moves; a re-offer that no
// longer fits the buffer is logged as a dropped snapshot.
func (d *Drainer) DrainOnce(ctx context.Context) (int, error) {
	items := d.buffer.Drain(d.batch)
	if len(items) == 0 {
		return 0, nil
	}

	// last write wins within the batch
	latest := make(map[string]*Snapshot, len(items))
	for _, item := range items {
		latest[item.Code] = item.Snap
	}

	commit := func() error {
		if d.limiter != nil && !d.limiter.Allow() {
			return ErrThrottled
		}
		if d.bulkhead != nil {
			return d.bulkhead.Execute(func() error {
				return d.rooms.ApplySnapshots(ctx, latest)
			})
		}
		return d.rooms.ApplySnapshots(ctx, latest)
	}

	if err := commit(); err != nil {
		for code, snap := range latest {
			if !d.buffer.Offer(code, snap) {
				obslog.L().Error("drain_reoffer_overflow",
					zap.String("room_code", code),
					zap.Error(err),
				)
			}
		}
		return 0, err
	}

	obslog.L().Info("buffer_drain",
		zap.Int("items", len(items)),
		zap.Int("rooms", len(latest)),
		zap.Int("remaining", d.buffer.Len()),
	)
	return len(latest), nil
}
