package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gewnthar/pricediff/models"
)

type fakeSnapshots struct {
	byDate map[string][]models.SnapshotRecord
	err    error
}

func (f *fakeSnapshots) LoadSnapshot(_ context.Context, d models.Date) ([]models.SnapshotRecord, error) {
	return f.byDate[d.String()], f.err
}

func (f *fakeSnapshots) LatestDateBefore(_ context.Context, d models.Date) (*models.Date, error) {
	if f.err != nil {
		return nil, f.err
	}
	var best *models.Date
	for k := range f.byDate {
		c := mustParseDate(k)
		if c.Before(d) && (best == nil || c.After(*best)) {
			best = &c
		}
	}
	return best, nil
}

func TestSelectComparison(t *testing.T) {
	ctx := context.Background()
	jan1, jan2, jan3 := mustParseDate("2024-01-01"), mustParseDate("2024-01-02"), mustParseDate("2024-01-03")
	reader := &fakeSnapshots{byDate: map[string][]models.SnapshotRecord{
		"2024-01-01": {record("a", "Tomato", "", "5")},
	}}

	// Same-date rows win over an earlier date.
	pre := []models.SnapshotRecord{record("b", "Tomato", "", "6")}
	cmp, err := SelectComparison(ctx, reader, jan2, pre)
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Source != models.ComparisonSameDate || cmp.Date == nil || !cmp.Date.Equal(jan2) || cmp.Records[0].ID != "b" {
		t.Fatalf("unexpected same-date comparison: %+v", cmp)
	}

	cmp, err = SelectComparison(ctx, reader, jan3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Source != models.ComparisonPreviousDate || !cmp.Date.Equal(jan1) || len(cmp.Records) != 1 {
		t.Fatalf("unexpected previous-date comparison: %+v", cmp)
	}

	cmp, err = SelectComparison(ctx, reader, jan1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Source != models.ComparisonNone || cmp.Date != nil || len(cmp.Records) != 0 {
		t.Fatalf("unexpected empty comparison: %+v", cmp)
	}
}

func TestSelectComparisonPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := SelectComparison(context.Background(), &fakeSnapshots{err: boom}, mustParseDate("2024-01-02"), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
