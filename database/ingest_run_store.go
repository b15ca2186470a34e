// database/ingest_run_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gewnthar/pricediff/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// IngestRunStore is the audit log of completed ingestions.
type IngestRunStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewIngestRunStore(db *sql.DB, d Dialect) *IngestRunStore {
	return &IngestRunStore{db: db, dialect: d}
}

// RecordIngestRun inserts run. ID and CreatedAt are filled in when empty.
func (s *IngestRunStore) RecordIngestRun(ctx context.Context, run *models.IngestRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now()
	}

	query := `INSERT INTO ingest_runs (
			id, source_name, captured_at, payload_hash, snapshot_rows,
			change_events, skipped_rows, comparison_source, comparison_date, created_at
		) VALUES ` + placeholders(10)

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(query),
		run.ID, run.SourceName, run.CapturedAt, run.PayloadHash, run.SnapshotRows,
		run.ChangeEvents, run.SkippedRows, string(run.ComparisonSource), run.ComparisonDate, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingest run for %s: %w", run.CapturedAt, err)
	}

	log.Debug().
		Str("run_id", run.ID).
		Str("source", run.SourceName).
		Str("captured_at", run.CapturedAt.String()).
		Msg("Database: ingest run recorded")
	return nil
}

// ListIngestRuns returns the most recent runs first. limit <= 0 means 50.
func (s *IngestRunStore) ListIngestRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT id, source_name, captured_at, payload_hash, snapshot_rows,
		       change_events, skipped_rows, comparison_source, comparison_date, created_at
		FROM ingest_runs
		ORDER BY created_at DESC, id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest_runs: %w", err)
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var (
			r              models.IngestRun
			source         string
			comparisonDate models.NullDate
			createdAt      timestamp
		)
		err := rows.Scan(
			&r.ID, &r.SourceName, &r.CapturedAt, &r.PayloadHash, &r.SnapshotRows,
			&r.ChangeEvents, &r.SkippedRows, &source, &comparisonDate, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest run: %w", err)
		}
		r.ComparisonSource = models.ComparisonSource(source)
		r.ComparisonDate = comparisonDate.Ptr()
		r.CreatedAt = createdAt.Time
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingest runs: %w", err)
	}
	return runs, nil
}
