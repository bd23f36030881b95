package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/park285/chess-rooms/internal/config"
	"github.com/park285/chess-rooms/internal/fanout"
	"github.com/park285/chess-rooms/internal/gamecache"
	"github.com/park285/chess-rooms/internal/msgcat"
	"github.com/park285/chess-rooms/internal/player"
	"github.com/park285/chess-rooms/internal/resilience"
	"github.com/park285/chess-rooms/internal/room"
)

// Service is the fully wired room-sync stack. Rooms is the call surface a
// transport layer attaches to; the background workers run under Run.
type Service struct {
	Rooms *room.Manager
	Bus   *fanout.Broadcaster
	Cache *gamecache.Store

	drainer *gamecache.Drainer
	syncer  *gamecache.SyncWorker

	rdb *redis.Client
	db  *sql.DB
}

// Build wires the service from configuration. The returned Service owns its
// Redis and Postgres connections; release them with Close.
func Build(cfg *config.AppConfig) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	opts, err := parseRedisURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repo, db, err := room.NewPostgresRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	players := player.NewPostgresDirectory(db)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		WindowSize:  cfg.BreakerWindow,
		MinCalls:    cfg.BreakerMinCalls,
		FailureRate: cfg.BreakerFailureRate,
		CoolDown:    cfg.BreakerCoolDown,
	})
	buffer := gamecache.NewBuffer(cfg.BufferCapacity)
	store := gamecache.NewStore(rdb, breaker, buffer)

	applier := room.NewSnapshotApplier(repo)
	limiter := resilience.NewRateLimiter(cfg.DrainRate, time.Second, cfg.DrainRateBurst)
	bulkhead := resilience.NewBulkhead(cfg.BulkheadSize)
	drainLease := gamecache.NewLease(rdb, "buffer_drain", cfg.ServerID, cfg.LeaseTTL)
	syncLease := gamecache.NewLease(rdb, "room_sync", cfg.ServerID, cfg.LeaseTTL)
	drainer := gamecache.NewDrainer(buffer, applier, limiter, bulkhead, drainLease, cfg.DrainInterval, cfg.DrainBatch)
	syncer := gamecache.NewSyncWorker(store, applier, syncLease, cfg.SyncInterval)

	registry := fanout.NewRegistry()
	bus := fanout.NewBroadcaster(registry, rdb, cfg.ServerID)

	msgs, err := msgcat.New()
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}

	mgr := room.NewManager(repo, players, store, bus, msgs)

	return &Service{
		Rooms:   mgr,
		Bus:     bus,
		Cache:   store,
		drainer: drainer,
		syncer:  syncer,
		rdb:     rdb,
		db:      db,
	}, nil
}

// Run drives the background workers until the context is cancelled or one of
// them fails.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Bus.Run(ctx) })
	g.Go(func() error { return s.drainer.Run(ctx) })
	g.Go(func() error { return s.syncer.Run(ctx) })
	return g.Wait()
}

func (s *Service) Close() error {
	if err := s.rdb.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
