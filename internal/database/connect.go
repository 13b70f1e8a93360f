// Package database provides feedback store connectivity and operations.
// Postgres is the service deployment target; sqlite backs local runs and
// tests with the same repository code.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/jonesrussell/url-sentinel/internal/config"
)

// DefaultPingTimeout bounds the startup connectivity check.
const DefaultPingTimeout = 5 * time.Second

// Connect opens the configured database, applies pool settings, verifies
// connectivity, and ensures the schema exists.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
		db, err = sqlx.Open("postgres", dsn)
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", mkErr)
			}
		}
		db, err = sqlx.Open("sqlite3", cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the feedback table and indexes if missing. Only the
// id column type differs between drivers.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	idType := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		idType = "BIGSERIAL PRIMARY KEY"
	}
	schema := `
		CREATE TABLE IF NOT EXISTS url_feedback (
			id ` + idType + `,
			url TEXT NOT NULL,
			url_hash TEXT NOT NULL UNIQUE,
			normalized_url TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence REAL NOT NULL,
			feedback_count INTEGER NOT NULL DEFAULT 1,
			conflicting_feedbacks INTEGER NOT NULL DEFAULT 0,
			last_feedback_type TEXT NOT NULL DEFAULT '',
			consensus_reached BOOLEAN NOT NULL DEFAULT FALSE,
			used_in_training BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_url_feedback_hash ON url_feedback (url_hash);
		CREATE INDEX IF NOT EXISTS idx_url_feedback_eligible ON url_feedback (used_in_training, consensus_reached, feedback_count);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
