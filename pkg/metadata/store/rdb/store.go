// Package rdb is the relational metadata store. It runs on SQLite (the
// default, one file per share) or PostgreSQL through GORM, using only
// parameterized raw SQL so both engines share one set of statements.
package rdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/pkg/metadata"
)

// Store implements metadata.Store over a SQL database.
type Store struct {
	queries
	cfg Config
}

var _ metadata.Store = (*Store)(nil)

// Open connects to the database described by cfg. It does not create the
// schema; call Bootstrap on a new share.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn := cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(cfg.Postgres.ConnString())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	switch cfg.Type {
	case DatabaseTypePostgres:
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	case DatabaseTypeSQLite:
		// One writer at a time; extra connections only add lock contention.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to reach metadata database: %w", err)
	}

	logger.Debug("metadata store opened", logger.Store(string(cfg.Type)))
	return &Store{queries: queries{db: db, dialect: cfg.Type}, cfg: cfg}, nil
}

// DB returns the underlying GORM handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTransaction implements metadata.Store.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx metadata.Transaction) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&queries{db: gtx, dialect: s.dialect})
	})
}

// Bootstrap implements metadata.Store.
func (s *Store) Bootstrap(ctx context.Context, root *metadata.FileEntry) error {
	return s.WithTransaction(ctx, func(tx metadata.Transaction) error {
		q := tx.(*queries)
		for _, stmt := range schemaStatements(s.dialect) {
			if err := q.exec(ctx, stmt); err != nil {
				return metadata.NewIOError("create schema", err)
			}
		}

		var n int64
		if err := q.scan(ctx, &n, "SELECT COUNT(*) FROM stats"); err != nil {
			return err
		}
		if n == 0 {
			if err := q.exec(ctx, "INSERT INTO stats (version) VALUES (?)", metadata.CurrentSchemaVersion); err != nil {
				return metadata.NewIOError("seed stats", err)
			}
		}

		if err := q.scan(ctx, &n, "SELECT COUNT(*) FROM counters"); err != nil {
			return err
		}
		if n == 0 {
			if err := q.exec(ctx, "INSERT INTO counters (file_counter, change_counter) VALUES (?, ?)", 1, 1); err != nil {
				return metadata.NewIOError("seed counters", err)
			}
		}

		return q.InsertFile(ctx, root)
	})
}

// SchemaVersion implements metadata.Store.
func (s *Store) SchemaVersion(ctx context.Context) (uint32, error) {
	if !s.db.WithContext(ctx).Migrator().HasTable(tableStats) {
		return 0, nil
	}
	var v uint32
	if err := s.scan(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM stats"); err != nil {
		return 0, err
	}
	return v, nil
}

// SetSchemaVersion implements metadata.Store.
func (s *Store) SetSchemaVersion(ctx context.Context, v uint32) error {
	if err := s.exec(ctx, "UPDATE stats SET version = ?", v); err != nil {
		return metadata.NewIOError("set schema version", err)
	}
	return nil
}

// Upgrade implements metadata.Store.
func (s *Store) Upgrade(ctx context.Context) (uint32, uint32, error) {
	return metadata.ApplyUpgrades(ctx, s, metadata.CurrentSchemaVersion, s.upgradeSteps())
}

// upgradeSteps maps each schema version to the step that moves it to the
// next one. Version 1 is current.
func (s *Store) upgradeSteps() map[uint32]metadata.UpgradeStep {
	return map[uint32]metadata.UpgradeStep{}
}

// HealthCheck implements metadata.Store.
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return metadata.NewIOError("health check", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return metadata.NewIOError("health check", err)
	}
	return nil
}

// Close implements metadata.Store.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
