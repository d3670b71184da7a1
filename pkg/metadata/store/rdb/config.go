package rdb

import (
	"fmt"
	"path/filepath"
)

// DatabaseType selects the SQL engine.
type DatabaseType string

const (
	// DatabaseTypeSQLite stores metadata in a single file next to the share.
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres stores metadata in a PostgreSQL database.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig configures the SQLite engine.
type SQLiteConfig struct {
	// Path is the database file. Default: <share>/.dittoshare/database
	Path string
}

// PostgresConfig configures the PostgreSQL engine.
type PostgresConfig struct {
	// DSN, when set, is used as is and the fields below are ignored.
	DSN string

	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string // disable, require, verify-ca, verify-full
	MaxOpenConns int
	MaxIdleConns int
}

// ConnString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// Config selects and configures the engine.
type Config struct {
	Type     DatabaseType
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// ApplyDefaults fills unset fields. appDir is the share's internal data
// directory and anchors the default SQLite path.
func (c *Config) ApplyDefaults(appDir string) {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" && appDir != "" {
		c.SQLite.Path = filepath.Join(appDir, "database")
	}
	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 10
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate checks that the selected engine has what it needs.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.DSN != "" {
			return nil
		}
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}
