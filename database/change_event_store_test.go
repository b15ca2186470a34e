package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/gewnthar/pricediff/models"
)

func sampleEvents(day models.Date) []models.ChangeEvent {
	prev := "prev-snapshot-id"
	return []models.ChangeEvent{
		{
			CapturedAt:         day,
			ProductName:        "Tomato",
			Unit:               "2 kg",
			Category:           "Produce",
			OldPrice:           decPtr("450"),
			NewPrice:           dec("500"),
			ChangeAmount:       decPtr("50"),
			ChangeRatio:        decPtr("0.111111"),
			SnapshotID:         "snap-tomato",
			PreviousSnapshotID: &prev,
		},
		{
			CapturedAt:  day,
			ProductName: "Basil",
			NewPrice:    dec("2.5"),
			SnapshotID:  "snap-basil",
			Metadata:    models.EventMetadata{Status: models.StatusNewProduct},
		},
	}
}

func TestReplaceChangeEventsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChangeEventStore(db, SQLite, 0)
	day := mustDate(t, "2024-01-01")

	if err := store.ReplaceChangeEvents(ctx, day, sampleEvents(day)); err != nil {
		t.Fatalf("ReplaceChangeEvents: %v", err)
	}
	got, err := store.ListChangeEvents(ctx, day)
	if err != nil {
		t.Fatalf("ListChangeEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}

	basil, tomato := got[0], got[1]
	if basil.ProductName != "Basil" || basil.OldPrice != nil || basil.ChangeAmount != nil || basil.ChangeRatio != nil {
		t.Errorf("unexpected basil event: %+v", basil)
	}
	if !basil.IsNewProduct() || basil.PreviousSnapshotID != nil {
		t.Errorf("basil should be a new product without previous snapshot: %+v", basil)
	}
	if tomato.OldPrice == nil || !tomato.OldPrice.Equal(dec("450")) || !tomato.NewPrice.Equal(dec("500")) {
		t.Errorf("unexpected tomato prices: %+v", tomato)
	}
	if tomato.ChangeRatio == nil || !tomato.ChangeRatio.Equal(dec("0.111111")) {
		t.Errorf("unexpected tomato ratio: %v", tomato.ChangeRatio)
	}
	if tomato.PreviousSnapshotID == nil || *tomato.PreviousSnapshotID != "prev-snapshot-id" {
		t.Errorf("unexpected previous snapshot id: %v", tomato.PreviousSnapshotID)
	}
	if tomato.IsNewProduct() || tomato.ID == "" || tomato.CreatedAt.IsZero() {
		t.Errorf("unexpected tomato event: %+v", tomato)
	}
}

func TestReplaceChangeEventsReplacesOnlyThatDate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChangeEventStore(db, SQLite, 0)
	day1, day2 := mustDate(t, "2024-01-01"), mustDate(t, "2024-01-02")

	if err := store.ReplaceChangeEvents(ctx, day1, sampleEvents(day1)); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceChangeEvents(ctx, day2, sampleEvents(day2)); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceChangeEvents(ctx, day1, sampleEvents(day1)[:1]); err != nil {
		t.Fatal(err)
	}

	got1, _ := store.ListChangeEvents(ctx, day1)
	got2, _ := store.ListChangeEvents(ctx, day2)
	if len(got1) != 1 || len(got2) != 2 {
		t.Fatalf("day1=%d day2=%d events, want 1 and 2", len(got1), len(got2))
	}

	if err := store.ReplaceChangeEvents(ctx, day1, nil); err != nil {
		t.Fatal(err)
	}
	if got := countRows(t, db, "price_change_events"); got != 2 {
		t.Fatalf("clearing day1 left %d rows in total, want 2", got)
	}
}

func TestReplaceChangeEventsBatches(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChangeEventStore(db, SQLite, 2)
	day := mustDate(t, "2024-01-01")

	var events []models.ChangeEvent
	for i := 0; i < 5; i++ {
		events = append(events, models.ChangeEvent{
			CapturedAt:  day,
			ProductName: fmt.Sprintf("Product %d", i),
			NewPrice:    dec("1"),
			SnapshotID:  fmt.Sprintf("snap-%d", i),
			Metadata:    models.EventMetadata{Status: models.StatusNewProduct},
		})
	}
	if err := store.ReplaceChangeEvents(ctx, day, events); err != nil {
		t.Fatalf("ReplaceChangeEvents: %v", err)
	}
	if got := countRows(t, db, "price_change_events"); got != 5 {
		t.Fatalf("expected 5 rows, got %d", got)
	}
	for _, ev := range events {
		if ev.ID == "" {
			t.Fatalf("event %q was not assigned an id", ev.ProductName)
		}
	}
}
