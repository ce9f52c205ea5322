package platform

import (
	"context"
	"errors"
	"fmt"

	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/database"
	"estate-backend/internal/infrastructure/feed"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/infrastructure/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Client bundles the database, auth and storage handles every component shares.
type Client struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Auth    *identity.Provider
	Storage storage.ObjectStore
	Feed    *feed.Feed
}

// New connects every backend named in cfg. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(db); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	log.Info().Msg("database connected")

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info().Msg("redis connected")

	auth, err := identity.NewProvider(db, rdb, identity.Options{
		PrivateKeyPEM: cfg.ServiceAccount.PrivateKey,
		ClientEmail:   cfg.ServiceAccount.ClientEmail,
		ProjectID:     cfg.ProjectID,
		TTL:           cfg.IDTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	minioStore, err := storage.NewMinioStore(ctx, storage.MinioOptions{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
		PublicURL: cfg.StoragePublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	log.Info().Str("bucket", cfg.StorageBucket).Msg("object storage connected")

	return &Client{
		DB:      db,
		Redis:   rdb,
		Auth:    auth,
		Storage: storage.NewBreakerStore(minioStore, storage.BreakerSettings{}),
		Feed:    feed.New(db, rdb),
	}, nil
}

// Close releases the Redis client and the SQL pool.
func (c *Client) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
