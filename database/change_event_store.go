// database/change_event_store.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultBatchSize is the number of events written per INSERT statement.
const DefaultBatchSize = 200

// ChangeEventStore holds the per-date change log. The events of one capture
// date are only ever replaced as a whole.
type ChangeEventStore struct {
	db        *sql.DB
	dialect   Dialect
	batchSize int
}

func NewChangeEventStore(db *sql.DB, d Dialect, batchSize int) *ChangeEventStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChangeEventStore{db: db, dialect: d, batchSize: batchSize}
}

var changeEventInsertColumns = []string{
	"id", "captured_at", "product_key", "product_name", "unit", "category",
	"old_price", "new_price", "change_amount", "change_ratio",
	"snapshot_id", "previous_snapshot_id", "metadata", "created_at",
}

const changeEventSelectColumns = `id, captured_at, product_name, unit, category, old_price, new_price,
	change_amount, change_ratio, snapshot_id, previous_snapshot_id, metadata, created_at`

// ReplaceChangeEvents deletes every event stored for capturedAt and inserts
// events in its place, in one transaction. Events without an ID get one.
// An empty events slice just clears the date.
func (s *ChangeEventStore) ReplaceChangeEvents(ctx context.Context, capturedAt models.Date, events []models.ChangeEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for change events %s: %w", capturedAt, err)
	}
	defer tx.Rollback()

	// Clear the date first, then load the new set
	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM price_change_events WHERE captured_at = ?`), capturedAt)
	if err != nil {
		return fmt.Errorf("failed to clear change events for %s: %w", capturedAt, err)
	}
	deleted, _ := res.RowsAffected()

	// Insert in chunks to stay under driver placeholder limits
	ts := now()
	for start := 0; start < len(events); start += s.batchSize {
		end := start + s.batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := s.insertBatch(ctx, tx, capturedAt, events[start:end], ts); err != nil {
			return err
		}
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit change events for %s: %w", capturedAt, err)
	}
	log.Debug().
		Str("captured_at", capturedAt.String()).
		Int64("deleted", deleted).
		Int("inserted", len(events)).
		Msg("Database: change events replaced")
	return nil
}

func (s *ChangeEventStore) insertBatch(ctx context.Context, tx *sql.Tx, capturedAt models.Date, batch []models.ChangeEvent, ts time.Time) error {
	var (
		values = make([]string, len(batch))
		args   = make([]any, 0, len(batch)*len(changeEventInsertColumns))
		row    = placeholders(len(changeEventInsertColumns))
	)
	for i := range batch {
		ev := &batch[i]
		// Ids are written back so callers see what was stored
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		meta, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %q: %w", ev.ProductName, err)
		}
		values[i] = row
		args = append(args,
			ev.ID,
			capturedAt,
			utils.ProductKey(ev.ProductName, ev.Unit),
			ev.ProductName,
			ev.Unit,
			ev.Category,
			ev.OldPrice,
			ev.NewPrice,
			ev.ChangeAmount,
			ev.ChangeRatio,
			ev.SnapshotID,
			ev.PreviousSnapshotID,
			string(meta),
			ts,
		)
	}

	query := `INSERT INTO price_change_events (` + strings.Join(changeEventInsertColumns, ", ") + `) VALUES ` + strings.Join(values, ", ")
	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to insert %d change events for %s: %w", len(batch), capturedAt, err)
	}
	return nil
}

// ListChangeEvents returns the events stored for capturedAt, ordered by product.
func (s *ChangeEventStore) ListChangeEvents(ctx context.Context, capturedAt models.Date) ([]models.ChangeEvent, error) {
	query := `SELECT ` + changeEventSelectColumns + ` FROM price_change_events WHERE captured_at = ? ORDER BY product_key`
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), capturedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query change events for %s: %w", capturedAt, err)
	}
	defer rows.Close()

	var events []models.ChangeEvent
	for rows.Next() {
		var (
			ev                                  models.ChangeEvent
			oldPrice, changeAmount, changeRatio decimal.NullDecimal
			previousID, metadata                sql.NullString
			createdAt                           timestamp
		)
		err := rows.Scan(
			&ev.ID, &ev.CapturedAt, &ev.ProductName, &ev.Unit, &ev.Category,
			&oldPrice, &ev.NewPrice, &changeAmount, &changeRatio,
			&ev.SnapshotID, &previousID, &metadata, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change event: %w", err)
		}
		ev.OldPrice = nullDecimalPtr(oldPrice)
		ev.ChangeAmount = nullDecimalPtr(changeAmount)
		ev.ChangeRatio = nullDecimalPtr(changeRatio)
		if previousID.Valid {
			id := previousID.String
			ev.PreviousSnapshotID = &id
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				log.Warn().Err(err).Str("event_id", ev.ID).Msg("Database: could not decode event metadata")
			}
		}
		ev.CreatedAt = createdAt.Time
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change events: %w", err)
	}
	return events, nil
}

func nullDecimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
