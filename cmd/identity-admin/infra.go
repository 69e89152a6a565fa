package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/worksuite/identity-api/config"
	"github.com/worksuite/identity-api/internal/adapters/password"
	redisadapter "github.com/worksuite/identity-api/internal/adapters/redis"
	"github.com/worksuite/identity-api/internal/bootstrap"
)

type connectInfraOptions struct {
	Logger    *slog.Logger
	Config    *config.AppConfig
	WantDB    bool
	WantRedis bool
}

// connectInfra wires up infrastructure dependencies based on command needs.
// Redis is best-effort: commands that only want it for cache invalidation
// keep working when it is unreachable.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(opts *connectInfraOptions) (*sql.DB, redis.UniversalClient, error) {
	var (
		db          *sql.DB
		redisClient redis.UniversalClient
		err         error
	)

	if opts.WantDB {
		db, err = bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: opts.Config.Postgres, Logger: opts.Logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	if opts.WantRedis {
		redisClient, err = bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
			RedisConfig: opts.Config.Redis,
			Logger:      opts.Logger,
		})
		if err != nil {
			opts.Logger.Warn("redis unavailable; cached roles will expire on their own", "error", err)
			redisClient = nil
		}
	}

	return db, redisClient, nil
}

func closeInfra(logger *slog.Logger, db *sql.DB, redisClient redis.UniversalClient) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warn("db close failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}
}

// clearCachedRole drops the cached role for a principal, best-effort.
func clearCachedRole(ctx context.Context, logger *slog.Logger, client redis.UniversalClient, principalID string) {
	if client == nil {
		return
	}
	cache := redisadapter.NewRoleCache(client, redisadapter.RoleCacheOptions{Logger: logger})
	if err := cache.Clear(ctx, principalID); err != nil {
		logger.Warn("clear cached role failed", "principal_id", principalID, "error", err)
	}
}

func newHasher(cfg *config.AppConfig) *password.BcryptHasher {
	return password.NewBcryptHasher(cfg.Auth.BcryptCost)
}
