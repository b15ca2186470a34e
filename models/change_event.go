// models/change_event.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusNewProduct marks an event for a product with no known prior price.
const StatusNewProduct = "new_product"

// EventMetadata is stored as a JSON document alongside each event.
type EventMetadata struct {
	Status string `json:"status,omitempty" csv:"status"`
}

// ChangeEvent records that a product's price differs from the comparison
// snapshot, or that the product was seen for the first time.
type ChangeEvent struct {
	ID                 string           `db:"id" json:"id" csv:"id"`
	CapturedAt         Date             `db:"captured_at" json:"captured_at" csv:"captured_at"`
	ProductName        string           `db:"product_name" json:"product_name" csv:"product_name"`
	Unit               string           `db:"unit" json:"unit,omitempty" csv:"unit"`
	Category           string           `db:"category" json:"category,omitempty" csv:"category"`
	OldPrice           *decimal.Decimal `db:"old_price" json:"old_price" csv:"old_price"` // nil: new product
	NewPrice           decimal.Decimal  `db:"new_price" json:"new_price" csv:"new_price"`
	ChangeAmount       *decimal.Decimal `db:"change_amount" json:"change_amount" csv:"change_amount"`
	ChangeRatio        *decimal.Decimal `db:"change_ratio" json:"change_ratio" csv:"change_ratio"`
	SnapshotID         string           `db:"snapshot_id" json:"snapshot_id" csv:"snapshot_id"`
	PreviousSnapshotID *string          `db:"previous_snapshot_id" json:"previous_snapshot_id" csv:"previous_snapshot_id"`
	Metadata           EventMetadata    `db:"metadata" json:"metadata" csv:"metadata_,inline"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at" csv:"-"`
}

func (e ChangeEvent) IsNewProduct() bool {
	return e.Metadata.Status == StatusNewProduct
}
