package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"user-etl/internal/config"
	"user-etl/pkg/logger"
)

// NewDatabase opens a single-session connection to the destination database
// and verifies it with a ping bounded by ctx.
func NewDatabase(ctx context.Context, cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	// Configure GORM logger
	gormLogger := logger.NewGormLoggerWithConfig(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level)

	db, err := gorm.Open(pgdriver.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// One session per load
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database at %s:%d: %w", cfg.DB.Host, cfg.DB.Port, err)
	}

	l.Info("database connected successfully",
		zap.String("host", cfg.DB.Host),
		zap.Int("port", cfg.DB.Port),
		zap.String("database", cfg.DB.Name),
	)

	return db, nil
}
