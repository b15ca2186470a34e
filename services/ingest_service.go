// services/ingest_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gewnthar/pricediff/logging"
	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/scraper"
	"github.com/google/uuid"
)

// SnapshotRepository is what the ingestor needs from the snapshot store.
type SnapshotRepository interface {
	SnapshotReader
	UpsertSnapshot(ctx context.Context, capturedAt models.Date, rows []models.PriceRow) (int, error)
}

// ChangeEventRepository replaces the change log of one capture date.
type ChangeEventRepository interface {
	ReplaceChangeEvents(ctx context.Context, capturedAt models.Date, events []models.ChangeEvent) error
}

// RunRecorder writes the audit record of a completed ingestion.
type RunRecorder interface {
	RecordIngestRun(ctx context.Context, run *models.IngestRun) error
}

// IngestOptions tune how exports are read.
type IngestOptions struct {
	SourceName string
	Delimiter  rune
	Location   *time.Location // resolves "today" when no capture date is given
	Now        func() time.Time
}

// Ingestor runs parse, upsert, compare, diff and replace for one export.
type Ingestor struct {
	snapshots SnapshotRepository
	events    ChangeEventRepository
	runs      RunRecorder
	notifier  Notifier
	opts      IngestOptions

	mu        sync.Mutex
	dateLocks map[string]*dateLock
}

// dateLock is removed from the map once no ingestion holds or waits for it.
type dateLock struct {
	sync.Mutex
	refs int
}

// NewIngestor wires an Ingestor. runs and notifier may be nil.
func NewIngestor(snapshots SnapshotRepository, events ChangeEventRepository, runs RunRecorder, notifier Notifier, opts IngestOptions) *Ingestor {
	if opts.SourceName == "" {
		opts.SourceName = "price_list"
	}
	return &Ingestor{
		snapshots: snapshots,
		events:    events,
		runs:      runs,
		notifier:  notifier,
		opts:      opts,
		dateLocks: make(map[string]*dateLock),
	}
}

// lockDate serializes ingestions of the same capture date within this process.
// The returned func releases the lock and drops the entry when it was the last
// user.
func (i *Ingestor) lockDate(d models.Date) func() {
	key := d.String()

	// Register interest before blocking so the entry outlives every waiter.
	i.mu.Lock()
	l, ok := i.dateLocks[key]
	if !ok {
		l = &dateLock{}
		i.dateLocks[key] = l
	}
	l.refs++
	i.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		i.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(i.dateLocks, key)
		}
		i.mu.Unlock()
	}
}

// Ingest processes one raw export. capturedAt overrides the capture date,
// which otherwise is today in the configured location.
//
// A structural parse error is returned before anything is written. Any
// persistence error is returned as is; since every step is idempotent the
// caller recovers by retrying the same ingestion.
func (i *Ingestor) Ingest(ctx context.Context, raw string, capturedAt *models.Date) (*models.IngestSummary, error) {
	// 1. Parse. Nothing is written when the export is unusable.
	list, err := scraper.ParseAuto(raw, scraper.ParseOptions{
		Delimiter:  i.opts.Delimiter,
		CapturedAt: capturedAt,
		Location:   i.opts.Location,
		Now:        i.opts.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse price list: %w", err)
	}
	day := list.CapturedAt

	unlock := i.lockDate(day)
	defer unlock()

	logger := logging.Component("ingest").With().Str("captured_at", day.String()).Logger()
	logger.Info().Int("rows", len(list.Rows)).Int("skipped", list.SkippedRows).Msg("Service: price list parsed")

	// 2. Keep what the date held before this upload, for same-date comparison
	preUpsert, err := i.snapshots.LoadSnapshot(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing snapshot: %w", err)
	}

	// 3. Upsert the snapshot
	written, err := i.snapshots.UpsertSnapshot(ctx, day, list.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	// Reload to pick up stored ids, including rows from earlier uploads
	current, err := i.snapshots.LoadSnapshot(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored snapshot: %w", err)
	}

	// 4. Pick the baseline
	cmp, err := SelectComparison(ctx, i.snapshots, day, preUpsert)
	if err != nil {
		return nil, err
	}

	// 5. Diff and replace the change log of the date
	events := ComputeChanges(current, cmp.Records, DeclaredOldPrices(list.Rows))
	if err := i.events.ReplaceChangeEvents(ctx, day, events); err != nil {
		return nil, fmt.Errorf("failed to store change events: %w", err)
	}

	summary := &models.IngestSummary{
		RunID:            uuid.NewString(),
		CapturedAt:       day,
		SnapshotRowCount: written,
		ChangeEventCount: len(events),
		SkippedRows:      list.SkippedRows,
		ComparisonSource: cmp.Source,
		ComparisonDate:   cmp.Date,
	}
	for _, ev := range events {
		if ev.IsNewProduct() {
			summary.NewProductCount++
		}
	}

	// 6. Record the run
	if i.runs != nil {
		run := &models.IngestRun{
			ID:               summary.RunID,
			SourceName:       i.opts.SourceName,
			CapturedAt:       day,
			PayloadHash:      payloadHash(raw),
			SnapshotRows:     summary.SnapshotRowCount,
			ChangeEvents:     summary.ChangeEventCount,
			SkippedRows:      summary.SkippedRows,
			ComparisonSource: summary.ComparisonSource,
			ComparisonDate:   summary.ComparisonDate,
		}
		if err := i.runs.RecordIngestRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to record ingest run: %w", err)
		}
	}

	logger.Info().
		Str("comparison", string(cmp.Source)).
		Int("snapshot_rows", summary.SnapshotRowCount).
		Int("change_events", summary.ChangeEventCount).
		Int("new_products", summary.NewProductCount).
		Msg("Service: ingestion complete")

	// 7. Notify; a failure here does not undo the ingestion
	if i.notifier != nil {
		if err := i.notifier.NotifyIngest(ctx, summary); err != nil {
			logger.Error().Err(err).Msg("Service: notifier failed")
		}
	}
	return summary, nil
}

func payloadHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
