// database/schema.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot_rows (
		id CHAR(36) NOT NULL PRIMARY KEY,
		captured_at DATE NOT NULL,
		product_key VARCHAR(512) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		unit VARCHAR(128) NOT NULL DEFAULT '',
		category VARCHAR(255) NOT NULL DEFAULT '',
		list_price DECIMAL(18,4) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_snapshot_rows_date_product (captured_at, product_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS price_change_events (
		id CHAR(36) NOT NULL PRIMARY KEY,
		captured_at DATE NOT NULL,
		product_key VARCHAR(512) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		unit VARCHAR(128) NOT NULL DEFAULT '',
		category VARCHAR(255) NOT NULL DEFAULT '',
		old_price DECIMAL(18,4) NULL,
		new_price DECIMAL(18,4) NOT NULL,
		change_amount DECIMAL(18,4) NULL,
		change_ratio DECIMAL(18,6) NULL,
		snapshot_id CHAR(36) NOT NULL,
		previous_snapshot_id CHAR(36) NULL,
		metadata JSON NOT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_price_change_events_captured_at (captured_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id CHAR(36) NOT NULL PRIMARY KEY,
		source_name VARCHAR(255) NOT NULL,
		captured_at DATE NOT NULL,
		payload_hash CHAR(64) NOT NULL,
		snapshot_rows INT NOT NULL,
		change_events INT NOT NULL,
		skipped_rows INT NOT NULL,
		comparison_source VARCHAR(32) NOT NULL,
		comparison_date DATE NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_ingest_runs_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot_rows (
		id UUID PRIMARY KEY,
		captured_at DATE NOT NULL,
		product_key TEXT NOT NULL,
		product_name TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		list_price NUMERIC(18,4) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_snapshot_rows_date_product UNIQUE (captured_at, product_key)
	)`,
	`CREATE TABLE IF NOT EXISTS price_change_events (
		id UUID PRIMARY KEY,
		captured_at DATE NOT NULL,
		product_key TEXT NOT NULL,
		product_name TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		old_price NUMERIC(18,4),
		new_price NUMERIC(18,4) NOT NULL,
		change_amount NUMERIC(18,4),
		change_ratio NUMERIC(18,6),
		snapshot_id UUID NOT NULL,
		previous_snapshot_id UUID,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_change_events_captured_at ON price_change_events (captured_at)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id UUID PRIMARY KEY,
		source_name TEXT NOT NULL,
		captured_at DATE NOT NULL,
		payload_hash TEXT NOT NULL,
		snapshot_rows INTEGER NOT NULL,
		change_events INTEGER NOT NULL,
		skipped_rows INTEGER NOT NULL,
		comparison_source TEXT NOT NULL,
		comparison_date DATE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_runs_created_at ON ingest_runs (created_at)`,
}

// SQLite keeps dates, prices and timestamps as TEXT so values round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot_rows (
		id TEXT PRIMARY KEY,
		captured_at TEXT NOT NULL,
		product_key TEXT NOT NULL,
		product_name TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		list_price TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (captured_at, product_key)
	)`,
	`CREATE TABLE IF NOT EXISTS price_change_events (
		id TEXT PRIMARY KEY,
		captured_at TEXT NOT NULL,
		product_key TEXT NOT NULL,
		product_name TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		old_price TEXT,
		new_price TEXT NOT NULL,
		change_amount TEXT,
		change_ratio TEXT,
		snapshot_id TEXT NOT NULL,
		previous_snapshot_id TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_change_events_captured_at ON price_change_events (captured_at)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		captured_at TEXT NOT NULL,
		payload_hash TEXT NOT NULL,
		snapshot_rows INTEGER NOT NULL,
		change_events INTEGER NOT NULL,
		skipped_rows INTEGER NOT NULL,
		comparison_source TEXT NOT NULL,
		comparison_date TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_runs_created_at ON ingest_runs (created_at)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	var stmts []string
	switch d {
	case MySQL:
		stmts = mysqlSchema
	case Postgres:
		stmts = postgresSchema
	case SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("no schema for dialect %q", d)
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	log.Debug().Str("dialect", string(d)).Int("statements", len(stmts)).Msg("Database: schema up to date")
	return nil
}
