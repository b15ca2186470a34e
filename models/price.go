// models/price.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRow is one product line extracted from a price-list export.
// It only lives for the duration of an ingestion.
type PriceRow struct {
	ProductName      string           `json:"product_name"`
	Unit             string           `json:"unit,omitempty"` // quantity + weight, "" when the export has neither
	Category         string           `json:"category,omitempty"`
	ListPrice        decimal.Decimal  `json:"list_price"`
	DeclaredOldPrice *decimal.Decimal `json:"declared_old_price,omitempty"` // only when the export has an old price column
	CapturedAt       Date             `json:"captured_at"`
}

// PriceList is the Extractor's output for one export.
type PriceList struct {
	CapturedAt  Date
	Rows        []PriceRow
	HeaderLine  int // 1-based line of the detected header
	SkippedRows int // data lines that did not yield a row
}

// SnapshotRecord is a persisted price for one product on one capture date.
// (captured_at, product_key) is unique; upserts keep the original ID.
type SnapshotRecord struct {
	ID          string          `db:"id" json:"id"`
	CapturedAt  Date            `db:"captured_at" json:"captured_at"`
	ProductName string          `db:"product_name" json:"product_name"`
	Unit        string          `db:"unit" json:"unit,omitempty"`
	Category    string          `db:"category" json:"category,omitempty"`
	ListPrice   decimal.Decimal `db:"list_price" json:"list_price"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// CaptureDateSummary describes one stored snapshot.
type CaptureDateSummary struct {
	CapturedAt   Date `json:"captured_at"`
	SnapshotRows int  `json:"snapshot_rows"`
}
