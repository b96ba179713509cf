// Process-wide dependencies: storage backend, Redis, event publisher.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/db"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/events"
	"github.com/rajyashhh/mandinex-truck-application/internal/memstore"
	"github.com/rajyashhh/mandinex-truck-application/internal/migrations"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
	redisclient "github.com/rajyashhh/mandinex-truck-application/internal/redis"
	"github.com/rajyashhh/mandinex-truck-application/internal/snapshots"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

type Infra struct {
	PG    *pgxpool.Pool // nil with the memory backend
	Redis *redis.Client

	Drivers   drivers.Store
	Trips     trips.Store
	Positions positions.Store
	Snapshots snapshots.Store
	Live      positions.LiveIndex
	Events    events.Publisher

	// Clock is the time source for trip and snapshot rules; nil means time.Now.
	Clock func() time.Time

	closers []func()
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	i := &Infra{Redis: rdb}
	i.closers = append(i.closers, func() { _ = rdb.Close() })
	i.Live = positions.NewRedisLiveIndex(rdb, cfg.Redis.GeoKey)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		mem := memstore.New()
		i.Drivers, i.Trips, i.Positions, i.Snapshots = mem.Drivers(), mem.Trips(), mem.Positions(), mem.Snapshots()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		if cfg.Store.AutoMigrate {
			if err := migrations.Up(cfg.Postgres.DSN); err != nil {
				i.Close()
				return nil, err
			}
			logger.Info("migrations applied")
		}
		pool, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			i.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		i.PG = pool
		i.closers = append(i.closers, pool.Close)
		i.Drivers = drivers.NewRepo(pool)
		i.Trips = trips.NewRepo(pool)
		i.Positions = positions.NewRepo(pool)
		i.Snapshots = snapshots.NewRepo(pool)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		k := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout, logger)
		i.Events = k
		i.closers = append(i.closers, func() { _ = k.Close() })
	} else {
		i.Events = events.Nop{}
	}

	logger.Info("infra ready", zap.String("store", cfg.Store.Backend), zap.Int("kafka_brokers", len(cfg.Kafka.Brokers)))
	return i, nil
}

// Ping checks the backing services for the readiness check.
func (i *Infra) Ping(ctx context.Context) error {
	if err := i.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if i.PG != nil {
		if err := i.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", db.Classify(err))
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (i *Infra) Close() {
	if i == nil {
		return
	}
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
	i.closers = nil
}
