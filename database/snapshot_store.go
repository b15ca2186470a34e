// database/snapshot_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SnapshotStore persists point-in-time product prices keyed by
// (captured_at, product_key).
type SnapshotStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSnapshotStore(db *sql.DB, d Dialect) *SnapshotStore {
	return &SnapshotStore{db: db, dialect: d}
}

const snapshotColumns = "id, captured_at, product_name, unit, category, list_price, created_at, updated_at"

// UpsertSnapshot writes rows for capturedAt in a single transaction. A row that
// collides with an existing (captured_at, product_key) overwrites its name,
// unit, category and price but keeps its id. Rows for other dates are never
// touched. Returns the number of rows written.
func (s *SnapshotStore) UpsertSnapshot(ctx context.Context, capturedAt models.Date, rows []models.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for snapshot %s: %w", capturedAt, err)
	}
	defer tx.Rollback() // no-op after Commit

	// Existing rows for the same product keep their id
	query := `INSERT INTO snapshot_rows (id, captured_at, product_key, product_name, unit, category, list_price, created_at, updated_at)
		VALUES ` + placeholders(9) + ` ` +
		s.dialect.UpsertClause(
			[]string{"captured_at", "product_key"},
			[]string{"product_name", "unit", "category", "list_price", "updated_at"},
		)
	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(query))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare snapshot upsert statement: %w", err)
	}
	defer stmt.Close()

	ts := now()
	for _, row := range rows {
		// Fresh id; ignored by the database on conflict
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			capturedAt,
			utils.ProductKey(row.ProductName, row.Unit),
			row.ProductName,
			row.Unit,
			row.Category,
			row.ListPrice,
			ts,
			ts,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert snapshot row %q for %s: %w", row.ProductName, capturedAt, err)
		}
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot %s: %w", capturedAt, err)
	}
	log.Debug().Str("captured_at", capturedAt.String()).Int("rows", len(rows)).Msg("Database: snapshot upserted")
	return len(rows), nil
}

// LoadSnapshot returns every record stored for capturedAt, ordered by product.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context, capturedAt models.Date) ([]models.SnapshotRecord, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshot_rows WHERE captured_at = ? ORDER BY product_key`
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), capturedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", capturedAt, err)
	}
	defer rows.Close()

	var records []models.SnapshotRecord
	for rows.Next() {
		var (
			rec                  models.SnapshotRecord
			createdAt, updatedAt timestamp
		)
		err := rows.Scan(&rec.ID, &rec.CapturedAt, &rec.ProductName, &rec.Unit, &rec.Category, &rec.ListPrice, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		rec.CreatedAt, rec.UpdatedAt = createdAt.Time, updatedAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return records, nil
}

// LatestDateBefore returns the most recent capture date strictly before
// capturedAt that has at least one row, or nil when there is none.
func (s *SnapshotStore) LatestDateBefore(ctx context.Context, capturedAt models.Date) (*models.Date, error) {
	// MAX over no rows yields NULL
	var latest models.NullDate
	query := `SELECT MAX(captured_at) FROM snapshot_rows WHERE captured_at < ?`
	if err := s.db.QueryRowContext(ctx, s.dialect.Rebind(query), capturedAt).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to find snapshot before %s: %w", capturedAt, err)
	}
	return latest.Ptr(), nil
}

// ListCaptureDates summarizes stored snapshots, newest first. from and to are
// inclusive bounds and may be nil.
func (s *SnapshotStore) ListCaptureDates(ctx context.Context, from, to *models.Date) ([]models.CaptureDateSummary, error) {
	var (
		where []string
		args  []any
	)
	if from != nil {
		where = append(where, "captured_at >= ?")
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, "captured_at <= ?")
		args = append(args, *to)
	}
	query := `SELECT captured_at, COUNT(*) FROM snapshot_rows`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` GROUP BY captured_at ORDER BY captured_at DESC`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture dates: %w", err)
	}
	defer rows.Close()

	var out []models.CaptureDateSummary
	for rows.Next() {
		var sum models.CaptureDateSummary
		if err := rows.Scan(&sum.CapturedAt, &sum.SnapshotRows); err != nil {
			return nil, fmt.Errorf("failed to scan capture date: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capture dates: %w", err)
	}
	return out, nil
}
