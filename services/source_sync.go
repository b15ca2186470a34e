// services/source_sync.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gewnthar/pricediff/models"
	"github.com/rs/zerolog/log"
)

// FetchFunc retrieves the raw export published at url.
type FetchFunc func(ctx context.Context, url string) (string, error)

// SourceSync pulls the configured export and ingests it when its content
// changed since the last run for the same capture date.
type SourceSync struct {
	ingestor *Ingestor
	runs     RunLister
	fetch    FetchFunc
	url      string

	mu       sync.Mutex
	lastDate models.Date
	lastHash string
}

func NewSourceSync(ingestor *Ingestor, runs RunLister, url string, fetch FetchFunc) *SourceSync {
	return &SourceSync{ingestor: ingestor, runs: runs, url: url, fetch: fetch}
}

// Init seeds the last known payload from the run log.
func (s *SourceSync) Init(ctx context.Context) error {
	if s.runs == nil {
		return nil
	}
	runs, err := s.runs.ListIngestRuns(ctx, 50)
	if err != nil {
		return fmt.Errorf("failed to read ingest runs: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range runs {
		if run.SourceName != s.ingestor.opts.SourceName {
			continue
		}
		s.lastDate, s.lastHash = run.CapturedAt, run.PayloadHash
		log.Info().Str("source", run.SourceName).Str("captured_at", run.CapturedAt.String()).Msg("Service: last ingested payload loaded")
		break
	}
	return nil
}

// SyncIfChanged fetches the export and ingests it for today unless today's
// snapshot was already built from the same payload. The summary is nil when
// nothing was ingested.
func (s *SourceSync) SyncIfChanged(ctx context.Context) (*models.IngestSummary, error) {
	return s.sync(ctx, false)
}

// ForceSync fetches and ingests the export regardless of the last payload.
func (s *SourceSync) ForceSync(ctx context.Context) (*models.IngestSummary, error) {
	return s.sync(ctx, true)
}

func (s *SourceSync) sync(ctx context.Context, force bool) (*models.IngestSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.fetch(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	day := s.ingestor.today()
	hash := payloadHash(raw)
	if !force && hash == s.lastHash && day.Equal(s.lastDate) {
		log.Info().Str("captured_at", day.String()).Msg("Service: export unchanged, skipping ingestion")
		return nil, nil
	}

	summary, err := s.ingestor.Ingest(ctx, raw, &day)
	if err != nil {
		return nil, err
	}
	s.lastDate, s.lastHash = day, hash
	return summary, nil
}

// RunSchedule calls SyncIfChanged once immediately and then on every tick
// until ctx is cancelled. Failures are logged and retried on the next tick.
func RunSchedule(ctx context.Context, s *SourceSync, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Str("url", s.url).Msg("Scheduler: started")
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler: stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SourceSync) tick(ctx context.Context) {
	if _, err := s.SyncIfChanged(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Scheduler: sync failed")
	}
}

func (i *Ingestor) today() models.Date {
	now := time.Now
	if i.opts.Now != nil {
		now = i.opts.Now
	}
	return models.Today(now(), i.opts.Location)
}
