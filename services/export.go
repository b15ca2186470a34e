// services/export.go
package services

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gewnthar/pricediff/models"
	"github.com/jszwec/csvutil"
)

// WriteChangesCSV writes events as CSV with a header row, also when events is empty.
func WriteChangesCSV(w io.Writer, events []models.ChangeEvent) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(models.ChangeEvent{}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode change event %q: %w", ev.ProductName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
