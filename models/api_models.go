// models/api_models.go
package models

// IngestSummary is what an ingestion hands back to its caller and to the
// notification collaborator. The full event list is read from the change log.
type IngestSummary struct {
	RunID            string           `json:"run_id"`
	CapturedAt       Date             `json:"captured_at"`
	SnapshotRowCount int              `json:"snapshot_row_count"`
	ChangeEventCount int              `json:"change_event_count"`
	NewProductCount  int              `json:"new_product_count"`
	SkippedRows      int              `json:"skipped_rows"`
	ComparisonSource ComparisonSource `json:"comparison_source"`
	ComparisonDate   *Date            `json:"comparison_date,omitempty"`
}

// ChangesResponse is the body of GET /api/changes/:date.
type ChangesResponse struct {
	CapturedAt Date          `json:"captured_at"`
	Count      int           `json:"count"`
	Changes    []ChangeEvent `json:"changes"`
}

// SnapshotResponse is the body of GET /api/snapshots/:date.
type SnapshotResponse struct {
	CapturedAt Date             `json:"captured_at"`
	Count      int              `json:"count"`
	Rows       []SnapshotRecord `json:"rows"`
}
