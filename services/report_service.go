// services/report_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gewnthar/pricediff/models"
)

// SortOrder is the presentation order of a change list.
type SortOrder string

const (
	SortByName     SortOrder = "name"
	SortByIncrease SortOrder = "increase" // largest price increase first
	SortByDecrease SortOrder = "decrease" // largest price drop first
)

// ParseSortOrder accepts "", "name", "increase" and "decrease".
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByName:
		return SortByName, nil
	case SortByIncrease:
		return SortByIncrease, nil
	case SortByDecrease:
		return SortByDecrease, nil
	}
	return "", fmt.Errorf("invalid sort order %q (want name, increase or decrease)", s)
}

// SortChanges orders events in place. For increase and decrease, events
// without a change amount (new products) go last, ties fall back to name.
func SortChanges(events []models.ChangeEvent, order SortOrder) {
	byName := func(i, j int) bool {
		a, b := strings.ToLower(events[i].ProductName), strings.ToLower(events[j].ProductName)
		if a != b {
			return a < b
		}
		return strings.ToLower(events[i].Unit) < strings.ToLower(events[j].Unit)
	}
	if order != SortByIncrease && order != SortByDecrease {
		sort.SliceStable(events, byName)
		return
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].ChangeAmount, events[j].ChangeAmount
		switch {
		case a == nil && b == nil:
			return byName(i, j)
		case a == nil:
			return false
		case b == nil:
			return true
		}
		if c := a.Cmp(*b); c != 0 {
			if order == SortByIncrease {
				return c > 0
			}
			return c < 0
		}
		return byName(i, j)
	})
}

// ChangeEventReader is the read side of the change log.
type ChangeEventReader interface {
	ListChangeEvents(ctx context.Context, capturedAt models.Date) ([]models.ChangeEvent, error)
}

// SnapshotCatalog lists stored snapshots.
type SnapshotCatalog interface {
	LoadSnapshot(ctx context.Context, capturedAt models.Date) ([]models.SnapshotRecord, error)
	ListCaptureDates(ctx context.Context, from, to *models.Date) ([]models.CaptureDateSummary, error)
}

// RunLister lists audit records of past ingestions.
type RunLister interface {
	ListIngestRuns(ctx context.Context, limit int) ([]models.IngestRun, error)
}

// Reporter answers read queries for the notification side and the API.
type Reporter struct {
	events    ChangeEventReader
	snapshots SnapshotCatalog
	runs      RunLister
}

func NewReporter(events ChangeEventReader, snapshots SnapshotCatalog, runs RunLister) *Reporter {
	return &Reporter{events: events, snapshots: snapshots, runs: runs}
}

// Changes returns the change log of capturedAt in the requested order.
func (r *Reporter) Changes(ctx context.Context, capturedAt models.Date, order SortOrder) (*models.ChangesResponse, error) {
	events, err := r.events.ListChangeEvents(ctx, capturedAt)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.ChangeEvent{}
	}
	SortChanges(events, order)
	return &models.ChangesResponse{CapturedAt: capturedAt, Count: len(events), Changes: events}, nil
}

// Snapshot returns the stored prices of capturedAt.
func (r *Reporter) Snapshot(ctx context.Context, capturedAt models.Date) (*models.SnapshotResponse, error) {
	rows, err := r.snapshots.LoadSnapshot(ctx, capturedAt)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.SnapshotRecord{}
	}
	return &models.SnapshotResponse{CapturedAt: capturedAt, Count: len(rows), Rows: rows}, nil
}

func (r *Reporter) CaptureDates(ctx context.Context, from, to *models.Date) ([]models.CaptureDateSummary, error) {
	dates, err := r.snapshots.ListCaptureDates(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []models.CaptureDateSummary{}
	}
	return dates, nil
}

func (r *Reporter) Runs(ctx context.Context, limit int) ([]models.IngestRun, error) {
	runs, err := r.runs.ListIngestRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []models.IngestRun{}
	}
	return runs, nil
}
