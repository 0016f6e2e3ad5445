package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bapx/backend/internal/infrastructure/config"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database owns the PostgreSQL pool behind every repository
type Database struct {
	DB    *gorm.DB
	sqlDB *sql.DB
}

// NewDatabase opens the pool and waits until PostgreSQL answers a ping,
// trying cfg.ConnectAttempts times before giving up.
func NewDatabase(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	return openDatabase(ctx, postgres.Open(cfg.DSN()), cfg, log)
}

func openDatabase(ctx context.Context, dialector gorm.Dialector, cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(log,
			logger.MapGormLogLevel(cfg.LogLevel),
			logger.WithSlowThreshold(cfg.SlowThreshold),
		),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		DisableAutomaticPing:   true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	d := &Database{DB: db, sqlDB: sqlDB}
	if err := d.waitReady(ctx, cfg.ConnectAttempts, cfg.ConnectBackoff, log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) waitReady(ctx context.Context, attempts int, backoff time.Duration, log *zap.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = d.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for database: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", attempts, err)
}

// SQL exposes the pool for migrations and pool metrics
func (d *Database) SQL() *sql.DB {
	return d.sqlDB
}

// Ping is the readiness check for /ready
func (d *Database) Ping(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.sqlDB.Close()
}
