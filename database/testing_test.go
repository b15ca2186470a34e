package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gewnthar/pricediff/config"
	"github.com/gewnthar/pricediff/models"
	"github.com/shopspring/decimal"
)

// newTestDB opens a migrated SQLite database in a temp directory.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}
	db, d, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if d != SQLite {
		t.Fatalf("dialect = %q", d)
	}
	if err := Migrate(context.Background(), db, d); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func mustDate(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func priceRow(name, unit, price string) models.PriceRow {
	return models.PriceRow{ProductName: name, Unit: unit, ListPrice: dec(price)}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
