// Package database opens the backing stores, retrying the first ping so the
// server can start alongside its dependencies.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/vedran77/devaura/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectMaxElapsed = 30 * time.Second

// retry runs ping with exponential backoff until it succeeds, ctx ends or
// connectMaxElapsed passes.
func retry(ctx context.Context, log *zap.Logger, name string, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectMaxElapsed

	notify := func(err error, wait time.Duration) {
		log.Warn("backing store not ready", zap.String("store", name), zap.Duration("retry_in", wait), zap.Error(err))
	}
	return backoff.RetryNotify(func() error { return ping(ctx) }, backoff.WithContext(b, ctx), notify)
}

func ConnectMongo(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	if err := retry(ctx, log, "mongo", func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}
	return client, nil
}

func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := retry(ctx, log, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := retry(ctx, log, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	return client, nil
}
