// models/meta.go
package models

import "time"

// ComparisonSource says which baseline an ingestion diffed against.
type ComparisonSource string

const (
	ComparisonSameDate     ComparisonSource = "same_date"     // rows that already existed for the capture date
	ComparisonPreviousDate ComparisonSource = "previous_date" // most recent earlier capture date
	ComparisonNone         ComparisonSource = "none"          // no history, every row is new
)

// IngestRun is the audit record written after each successful ingestion.
type IngestRun struct {
	ID               string           `db:"id" json:"id"`
	SourceName       string           `db:"source_name" json:"source_name"`
	CapturedAt       Date             `db:"captured_at" json:"captured_at"`
	PayloadHash      string           `db:"payload_hash" json:"payload_hash"` // SHA-256 of the raw export
	SnapshotRows     int              `db:"snapshot_rows" json:"snapshot_rows"`
	ChangeEvents     int              `db:"change_events" json:"change_events"`
	SkippedRows      int              `db:"skipped_rows" json:"skipped_rows"`
	ComparisonSource ComparisonSource `db:"comparison_source" json:"comparison_source"`
	ComparisonDate   *Date            `db:"comparison_date" json:"comparison_date,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}
