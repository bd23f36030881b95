package gamecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/obslog"
	"github.com/park285/chess-rooms/internal/resilience"
)

const (
	roomKeyPrefix = "room_cache:"
	syncSetKey    = "rooms_to_sync"
	cacheTTL      = 24 * time.Hour

	// cache writes get one immediate retry while the breaker is closed
	putAttempts = 2
)

// ErrOverloaded reports that both the cache and the emergency buffer are
// unavailable; the caller must reject the move and let the client retry.
var ErrOverloaded = errors.New("cache unavailable and emergency buffer full")

// Store is the cache-first snapshot store. Reads are a pure accelerator: a
// miss returns absent and the orchestrator reconstructs from durable
// storage. Writes degrade to the emergency buffer once the breaker opens.
type Store struct {
	rdb     *redis.Client
	breaker *resilience.Breaker
	buffer  *Buffer
}

func NewStore(rdb *redis.Client, breaker *resilience.Breaker, buffer *Buffer) *Store {
	return &Store{rdb: rdb, breaker: breaker, buffer: buffer}
}

func roomKey(code string) string { return roomKeyPrefix + code }

// Get returns the cached snapshot for a room code, or nil on a miss. A miss
// is not an error and triggers no fallback here.
func (s *Store) Get(ctx context.Context, code string) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, roomKey(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", code, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", code, err)
	}
	return &snap, nil
}

// Put writes the snapshot with the cache TTL and marks the room pending
// reconciliation. Failures and an open breaker divert the write to the
// emergency buffer; only a full buffer surfaces an error.
func (s *Store) Put(ctx context.Context, code string, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", code, err)
	}

	err = resilience.Do(ctx, putAttempts, 10*time.Millisecond, func() error {
		return s.breaker.Execute(func() error {
			pipe := s.rdb.TxPipeline()
			pipe.Set(ctx, roomKey(code), raw, cacheTTL)
			pipe.SAdd(ctx, syncSetKey, code)
			_, err := pipe.Exec(ctx)
			return err
		})
	}, func(err error) bool {
		// an open breaker will not heal within this call
		return !errors.Is(err, resilience.ErrBreakerOpen)
	})
	if err == nil {
		return nil
	}

	if !s.buffer.Offer(code, snap) {
		obslog.L().Error("cache_put_overload", zap.String("code", code), zap.Error(err))
		return ErrOverloaded
	}
	obslog.L().Warn("cache_put_buffered",
		zap.String("code", code),
		zap.Int64("move_sequence", snap.MoveSequence),
		zap.Error(err),
	)
	return nil
}

// PendingSync lists room codes touched since the last reconciliation.
func (s *Store) PendingSync(ctx context.Context) ([]string, error) {
	codes, err := s.rdb.SMembers(ctx, syncSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read sync markers: %w", err)
	}
	return codes, nil
}

// ClearPendingSync drops the marker set after a successful reconciliation.
func (s *Store) ClearPendingSync(ctx context.Context) error {
	return s.rdb.Del(ctx, syncSetKey).Err()
}
