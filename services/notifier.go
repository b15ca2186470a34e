// services/notifier.go
package services

import (
	"context"

	"github.com/gewnthar/pricediff/models"
	"github.com/rs/zerolog/log"
)

// Notifier is told about every successful ingestion. Implementations read the
// full event list from the change log themselves.
type Notifier interface {
	NotifyIngest(ctx context.Context, summary *models.IngestSummary) error
}

// LogNotifier only logs the summary.
type LogNotifier struct{}

func (LogNotifier) NotifyIngest(_ context.Context, s *models.IngestSummary) error {
	log.Info().
		Str("run_id", s.RunID).
		Str("captured_at", s.CapturedAt.String()).
		Int("change_events", s.ChangeEventCount).
		Int("new_products", s.NewProductCount).
		Msg("Notifier: price changes ready")
	return nil
}
