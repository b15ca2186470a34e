// services/comparison.go
package services

import (
	"context"
	"fmt"

	"github.com/gewnthar/pricediff/models"
)

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	LoadSnapshot(ctx context.Context, capturedAt models.Date) ([]models.SnapshotRecord, error)
	LatestDateBefore(ctx context.Context, capturedAt models.Date) (*models.Date, error)
}

// Comparison is the baseline an ingestion is diffed against.
type Comparison struct {
	Source  models.ComparisonSource
	Date    *models.Date
	Records []models.SnapshotRecord
}

// SelectComparison picks the baseline for capturedAt. preUpsert holds the rows
// that existed for capturedAt before the current ingestion wrote anything.
//
//   - rows already stored for the same date win, so re-ingesting a file for a
//     day compares it to that day's earlier upload and not to itself;
//   - otherwise the most recent earlier date is used;
//   - otherwise the baseline is empty and everything is new.
func SelectComparison(ctx context.Context, reader SnapshotReader, capturedAt models.Date, preUpsert []models.SnapshotRecord) (Comparison, error) {
	if len(preUpsert) > 0 {
		d := capturedAt
		return Comparison{Source: models.ComparisonSameDate, Date: &d, Records: preUpsert}, nil
	}

	prev, err := reader.LatestDateBefore(ctx, capturedAt)
	if err != nil {
		return Comparison{}, fmt.Errorf("failed to find previous snapshot: %w", err)
	}
	if prev == nil {
		return Comparison{Source: models.ComparisonNone}, nil
	}

	records, err := reader.LoadSnapshot(ctx, *prev)
	if err != nil {
		return Comparison{}, fmt.Errorf("failed to load comparison snapshot %s: %w", prev, err)
	}
	return Comparison{Source: models.ComparisonPreviousDate, Date: prev, Records: records}, nil
}
