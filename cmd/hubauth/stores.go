package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/componenthub/hubauth/internal/db"
	"github.com/componenthub/hubauth/pkg/audit"
	"github.com/componenthub/hubauth/pkg/config"
	"github.com/componenthub/hubauth/pkg/httpserver"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/mongo"
	"github.com/componenthub/hubauth/pkg/pg"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/ratelimiter"
	"github.com/componenthub/hubauth/pkg/redis"
	"github.com/componenthub/hubauth/pkg/roles"
)

// backends are the stores selected by STORAGE_DRIVER and CACHE_DRIVER.
// Audit events go to the log unless mongo storage is selected.
type backends struct {
	accounts    identity.AccountStore
	profiles    profile.Store
	ledger      roles.BootstrapLedger
	states      identity.StateStore
	persistence identity.Persistence
	limits      ratelimiter.Store
	audit       audit.Storage

	checks  []httpserver.Check
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg appConfig, log *slog.Logger) (*backends, error) {
	b := &backends{audit: audit.NewSlogStorage(log)}

	if err := b.openCache(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}
	if err := b.openStorage(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}
	return b, nil
}

func (b *backends) openCache(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	switch cfg.CacheDriver {
	case driverMemory:
		mem := ratelimiter.NewMemoryStore()
		b.closers = append(b.closers, mem.Close)
		b.limits = mem
		b.states = identity.NewMemoryStateStore()
		b.persistence = identity.NewMemoryPersistence()
		b.ledger = roles.NewMemoryLedger()

	case driverRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		b.useRedis(client, rcfg.KeyPrefix, cfg.Identity.SignInTTL)
		log.InfoContext(ctx, "using redis cache", slog.String("prefix", rcfg.KeyPrefix))

	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", cfg.CacheDriver)
	}
	return nil
}

func (b *backends) useRedis(client goredis.UniversalClient, prefix string, signInTTL time.Duration) {
	b.limits = ratelimiter.NewRedisStore(client, prefix+"limit:")
	b.states = identity.NewRedisStateStore(client, prefix+"oauth:")
	b.persistence = identity.NewRedisPersistence(client, prefix+"signin:", signInTTL)
	b.ledger = roles.NewRedisLedger(client, prefix+"bootstrap-admin")
}

func (b *backends) openStorage(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	switch cfg.StorageDriver {
	case driverMemory:
		b.accounts = identity.NewMemoryAccountStore()
		b.profiles = profile.NewMemoryStore()

	case driverPostgres:
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		if err := pg.Migrate(ctx, pool, db.Migrations, pcfg, log); err != nil {
			return err
		}
		b.checks = append(b.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
		b.accounts = identity.NewPostgresAccountStore(pool)
		b.profiles = profile.NewPostgresStore(pool)
		if cfg.CacheDriver == driverMemory {
			b.ledger = roles.NewPostgresLedger(pool)
		}

	case driverMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return err
		}
		database, err := mongo.NewWithDatabase(ctx, mcfg, "componenthub")
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, func() { _ = database.Client().Disconnect(context.Background()) })
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(database.Client())})

		store, err := profile.NewMongoStore(database, "users")
		if err != nil {
			return fmt.Errorf("mongo profile store: %w", err)
		}
		b.profiles = store
		events, err := audit.NewMongoStorage(database, audit.DefaultCollection)
		if err != nil {
			return fmt.Errorf("mongo audit storage: %w", err)
		}
		b.audit = events
		// Accounts hold password hashes and stay relational or in memory.
		b.accounts = identity.NewMemoryAccountStore()
		if cfg.CacheDriver == driverMemory {
			b.ledger = roles.NewMongoLedger(database, "meta")
		}
		log.WarnContext(ctx, "mongo storage keeps accounts in memory; use postgres for durable passwords")

	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return nil
}
