// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerwallet/internal/models"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// SQLDriverPQ selects lib/pq instead of the default pgx driver for
	// postgres connections.
	SQLDriverPQ  = "pq"
	SQLDriverPGX = "pgx"
)

// DBConfig holds database connection pool configuration
type DBConfig struct {
	URL             string
	SQLDriver       string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

var defaultDBConfig = DBConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    100,
	ConnMaxLifetime: time.Hour,
	ConnMaxIdleTime: time.Minute * 30,
}

// OpenDatabase connects to the database named by cfg.URL, which is either a
// postgres:// URL or sqlite://<path>. The returned cleanup closes the pool.
func OpenDatabase(ctx context.Context, cfg DBConfig) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(cfg.URL)
	if err != nil {
		return nil, nil, "", err
	}

	// Configure GORM logger to ignore "record not found" errors
	gormCfg := &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}

	var db *gorm.DB
	switch driver {
	case DriverPostgres:
		pgCfg := postgres.Config{DSN: cfg.URL}
		if cfg.SQLDriver == SQLDriverPQ {
			// lib/pq registers itself as "postgres"
			pgCfg.DriverName = "postgres"
		}
		db, err = gorm.Open(postgres.New(pgCfg), gormCfg)
	case DriverSQLite:
		if dir := filepath.Dir(sqlitePath); dir != "." && sqlitePath != ":memory:" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, nil, "", fmt.Errorf("create sqlite dir: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormCfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to get database instance: %w", err)
	}
	pool := mergePool(cfg)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	cleanup := func() error { return sqlDB.Close() }
	return db, cleanup, driver, nil
}

// AutoMigrate creates the accounts and transactions tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
	)
}

func mergePool(cfg DBConfig) DBConfig {
	pool := defaultDBConfig
	if cfg.MaxIdleConns > 0 {
		pool.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		pool.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}
	return pool
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return "", "", fmt.Errorf("sqlite url %q has no path", dsn)
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return DriverSQLite, path, nil
	}
	return "", "", fmt.Errorf("unsupported database url %q", dsn)
}
