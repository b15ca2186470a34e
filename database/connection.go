// database/connection.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gewnthar/pricediff/config"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // registers "sqlite"
)

var (
	DB             *sql.DB
	CurrentDialect Dialect
)

// DSN builds the driver-specific connection string for cfg.
func DSN(cfg config.DatabaseConfig, d Dialect) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch d {
	case Postgres:
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, portOr(cfg.Port, "5432")),
			Path:   "/" + cfg.DBName,
		}
		q := u.Query()
		q.Set("sslmode", "disable")
		u.RawQuery = q.Encode()
		return u.String()
	case SQLite:
		q := url.Values{}
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "foreign_keys(1)")
		q.Set("_time_format", "sqlite")
		return cfg.Path + "?" + q.Encode()
	default:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, portOr(cfg.Port, "3306"))
		mc.DBName = cfg.DBName
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	}
}

func portOr(port, def string) string {
	if port == "" {
		return def
	}
	return port
}

// Open opens and pings a connection pool for cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(d.DriverName(), DSN(cfg, d))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if d == SQLite {
		// One writer at a time; transactions hold the only connection.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, d, nil
}

// InitDB opens the process-wide pool.
func InitDB(ctx context.Context, cfg config.DatabaseConfig) error {
	db, d, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	DB, CurrentDialect = db, d
	log.Info().Str("driver", string(d)).Msg("Database: connected")
	return nil
}

// CloseDB closes the process-wide pool, typically on shutdown.
func CloseDB() {
	if DB != nil {
		DB.Close()
		log.Info().Msg("Database: connection closed")
	}
}
