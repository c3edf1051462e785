package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-etl/cmd/etl/infrastructure"
	"user-etl/internal/adapter/cache"
	"user-etl/internal/adapter/db/postgres"
	"user-etl/internal/config"
	"user-etl/internal/usecase/etl"
	redisclient "user-etl/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	RedisClient *redisclient.Client
	Reports     cache.ReportStore // nil when reports are not published
	Pipeline    *etl.Pipeline
}

// NewContainer creates and initializes all application dependencies. The
// destination database is not opened here; the load stage connects on its
// own so that an unreachable server is reported as a stage failure.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	// Initialize report store
	if cfg.Redis.Enabled {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			l.Warn("run reports will not be published", zap.Error(err))
		} else {
			c.RedisClient = rdb
			c.Reports = cache.NewRedisReportStore(
				rdb.Client,
				time.Duration(cfg.Redis.ReportTTL)*time.Second,
				cfg.Redis.HistorySize,
				l,
			)
		}
	}

	connect := func(ctx context.Context) (etl.Repository, error) {
		db, err := infrastructure.NewDatabase(ctx, cfg, l)
		if err != nil {
			return nil, err
		}
		return postgres.NewUserRepoPG(db, l), nil
	}

	// Initialize pipeline stages
	generator := etl.NewGenerator(etl.NewFaker(cfg.Pipeline.Seed), l)
	transformer := etl.NewTransformer(l)
	loader := etl.NewLoader(connect, cfg.Pipeline.BatchSize, l)

	c.Pipeline = etl.NewPipeline(generator, transformer, loader, etl.Options{
		NumRecords:      cfg.Pipeline.NumRecords,
		RawFile:         cfg.Pipeline.RawFile,
		TransformedFile: cfg.Pipeline.TransformedFile,
	}, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}
