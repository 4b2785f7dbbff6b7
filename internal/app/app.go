// Package app assembles the process-map service from configuration. The API
// server and mapctl share it so both run against the same store and lock.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"example.com/processmap/internal/config"
	"example.com/processmap/internal/domain"
	"example.com/processmap/internal/lock"
	"example.com/processmap/internal/logging"
	"example.com/processmap/internal/persistence/memory"
	"example.com/processmap/internal/persistence/postgres"
	"example.com/processmap/internal/seed"
)

// Runtime is a wired service plus the resources backing it.
type Runtime struct {
	Service *domain.Service
	// Pool is nil when the in-memory store is used.
	Pool   *pgxpool.Pool
	Logger zerolog.Logger

	closers []func()
}

// Close releases the pool and the Redis client.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.Config) (zerolog.Logger, error) {
	return logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
}

// OpenPool connects to Postgres and applies pending migrations.
func OpenPool(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	for _, version := range applied {
		logger.Info().Str("version", version).Msg("migration applied")
	}
	return pool, nil
}

// New wires the domain service. Without a Postgres URL the service runs on
// the in-memory store seeded with the default t-shirt sizes.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{Logger: logger}

	var repo domain.Repository
	if cfg.UsesPostgres() {
		pool, err := OpenPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)
		var opts []postgres.Option
		if !cfg.PublishesEvents() {
			logger.Info().Msg("KAFKA_BROKERS not set, events are not written to the outbox")
			opts = append(opts, postgres.WithoutOutbox())
		}
		repo = postgres.NewRepository(pool, opts...)
	} else {
		logger.Warn().Msg("POSTGRES_URL not set, using in-memory store")
		repo = memory.NewRepository(memory.WithTshirtSizes(seed.TshirtSizes()))
	}

	locker, err := newLocker(ctx, cfg, logger, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Service = domain.NewService(repo,
		domain.WithLocker(locker),
		domain.WithLockTTL(cfg.LockTTL),
		domain.WithLogger(logger),
	)
	return rt, nil
}

func newLocker(ctx context.Context, cfg config.Config, logger zerolog.Logger, rt *Runtime) (lock.Locker, error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return lock.NewLocal(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	return lock.NewRedis(client, lock.WithLogger(logger)), nil
}
