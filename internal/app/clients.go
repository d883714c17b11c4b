package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/devjourney-backend/internal/clients/redis"
	"github.com/yungbote/devjourney-backend/internal/data/db"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

// Clients holds the process's connections. Postgres and Redis are nil when
// disabled or unreachable at startup; SQLite is always present.
type Clients struct {
	Postgres *db.PostgresService
	SQLite   *db.SQLiteService
	Redis    *goredis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	local, err := db.NewSQLiteService(log, cfg.LocalStorePath)
	if err != nil {
		return Clients{}, fmt.Errorf("init sqlite: %w", err)
	}
	if err := local.AutoMigrateAll(); err != nil {
		_ = local.Close()
		return Clients{}, fmt.Errorf("sqlite automigrate: %w", err)
	}
	out.SQLite = local

	if cfg.RemoteStoreEnabled {
		pg, err := connectPostgres(ctx, log, cfg)
		if err != nil {
			log.Warn("remote store unavailable, running local-only", "error", err)
		} else if err := pg.AutoMigrateAll(); err != nil {
			log.Warn("postgres automigrate failed, running local-only", "error", err)
			_ = pg.Close()
		} else {
			out.Postgres = pg
		}
	}

	if cfg.CacheBackend == "redis" || cfg.RedisAddr != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisAddr)
		switch {
		case err == nil:
			out.Redis = rdb
		case cfg.CacheBackend == "redis":
			log.Warn("redis unavailable, falling back to in-process cache", "error", err)
		default:
			log.Warn("redis unavailable, invalidation bus disabled", "error", err)
		}
	}
	return out, nil
}

func connectPostgres(ctx context.Context, log *logger.Logger, cfg Config) (*db.PostgresService, error) {
	tries := cfg.RemoteConnectTries
	if tries == 0 {
		tries = 1
	}
	pgCfg := db.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Name:     cfg.PostgresName,
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	attempt := 0
	return backoff.Retry(ctx, func() (*db.PostgresService, error) {
		attempt++
		pg, err := db.NewPostgresService(log, pgCfg)
		if err != nil {
			log.Debug("postgres connect failed", "attempt", attempt, "error", err)
			return nil, err
		}
		return pg, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))
}

func (c Clients) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Postgres != nil {
		errs = append(errs, c.Postgres.Close())
	}
	if c.SQLite != nil {
		errs = append(errs, c.SQLite.Close())
	}
	return errors.Join(errs...)
}
