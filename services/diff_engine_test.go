package services

import (
	"testing"

	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/utils"
	"github.com/shopspring/decimal"
)

var day = mustParseDate("2024-01-02")

func mustParseDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(id, name, unit, price string) models.SnapshotRecord {
	return models.SnapshotRecord{ID: id, CapturedAt: day, ProductName: name, Unit: unit, ListPrice: dec(price)}
}

func declaredOf(pairs ...string) map[string]decimal.Decimal {
	m := map[string]decimal.Decimal{}
	for i := 0; i+2 < len(pairs); i += 3 {
		m[utils.ProductKey(pairs[i], pairs[i+1])] = dec(pairs[i+2])
	}
	return m
}

func TestComputeChanges_TomatoExample(t *testing.T) {
	current := []models.SnapshotRecord{record("s1", "Tomato", "2 kg", "500")}
	events := ComputeChanges(current, nil, declaredOf("Tomato", "2 kg", "450"))

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ProductName != "Tomato" || ev.Unit != "2 kg" || ev.SnapshotID != "s1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.OldPrice == nil || !ev.OldPrice.Equal(dec("450")) || !ev.NewPrice.Equal(dec("500")) {
		t.Fatalf("prices = %v -> %v", ev.OldPrice, ev.NewPrice)
	}
	if ev.ChangeAmount == nil || !ev.ChangeAmount.Equal(dec("50")) {
		t.Fatalf("change amount = %v", ev.ChangeAmount)
	}
	if ev.ChangeRatio == nil || !ev.ChangeRatio.Equal(dec("0.111111")) {
		t.Fatalf("change ratio = %v", ev.ChangeRatio)
	}
	if ev.IsNewProduct() || ev.PreviousSnapshotID != nil {
		t.Fatalf("declared old price without history is not a new product: %+v", ev)
	}
}

func TestComputeChanges_UnchangedPriceEmitsNothing(t *testing.T) {
	cases := []struct{ old, new string }{
		{"5.00", "5.00"},
		{"4.999", "5.00"},
		{"5.004", "5"},
	}
	for _, c := range cases {
		current := []models.SnapshotRecord{record("s1", "Tomato", "", c.new)}
		comparison := []models.SnapshotRecord{record("p1", "Tomato", "", c.old)}
		if events := ComputeChanges(current, comparison, nil); len(events) != 0 {
			t.Errorf("%s -> %s: expected no events, got %+v", c.old, c.new, events)
		}
	}
}

func TestComputeChanges_CentDifferenceIsAChange(t *testing.T) {
	current := []models.SnapshotRecord{record("s1", "Tomato", "", "5.01")}
	comparison := []models.SnapshotRecord{record("p1", "Tomato", "", "5.00")}
	events := ComputeChanges(current, comparison, nil)
	if len(events) != 1 || !events[0].ChangeAmount.Equal(dec("0.01")) {
		t.Fatalf("expected a 0.01 change, got %+v", events)
	}
}

func TestComputeChanges_NewProduct(t *testing.T) {
	current := []models.SnapshotRecord{record("s1", "Basil", "bunch", "2.50")}
	comparison := []models.SnapshotRecord{record("p1", "Tomato", "", "5")}
	events := ComputeChanges(current, comparison, nil)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if !ev.IsNewProduct() || ev.OldPrice != nil || ev.ChangeAmount != nil || ev.ChangeRatio != nil || ev.PreviousSnapshotID != nil {
		t.Fatalf("unexpected new product event: %+v", ev)
	}
}

func TestComputeChanges_DeclaredOldPriceWins(t *testing.T) {
	current := []models.SnapshotRecord{record("s1", "Tomato", "2 kg", "500")}
	comparison := []models.SnapshotRecord{record("p1", "tomato", "2 KG", "400")}
	events := ComputeChanges(current, comparison, declaredOf("Tomato", "2 kg", "450"))

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if !ev.OldPrice.Equal(dec("450")) {
		t.Fatalf("old price = %s, want the declared 450", ev.OldPrice)
	}
	if ev.PreviousSnapshotID == nil || *ev.PreviousSnapshotID != "p1" {
		t.Fatalf("previous snapshot id = %v, want p1", ev.PreviousSnapshotID)
	}

	// A declared old price equal to the new one suppresses the event even when
	// the comparison snapshot disagrees.
	events = ComputeChanges(current, comparison, declaredOf("Tomato", "2 kg", "500"))
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}

func TestComputeChanges_ComparisonPriceAndRatio(t *testing.T) {
	current := []models.SnapshotRecord{
		record("s1", "Tomato", "", "6"),
		record("s2", "Onion", "", "1.50"),
		record("s3", "Salt", "", "1"),
	}
	comparison := []models.SnapshotRecord{
		record("p1", "Tomato", "", "5"),
		record("p2", "Onion", "", "2"),
		record("p3", "Salt", "", "0"),
		record("p4", "Vanished", "", "9"),
	}
	events := ComputeChanges(current, comparison, nil)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	// Sorted by name: Onion, Salt, Tomato.
	onion, salt, tomato := events[0], events[1], events[2]
	if !onion.ChangeAmount.Equal(dec("-0.5")) || !onion.ChangeRatio.Equal(dec("-0.25")) {
		t.Errorf("onion: amount %s ratio %s", onion.ChangeAmount, onion.ChangeRatio)
	}
	if !salt.ChangeAmount.Equal(dec("1")) || salt.ChangeRatio != nil {
		t.Errorf("salt: zero old price must leave ratio nil, got %v", salt.ChangeRatio)
	}
	if !tomato.ChangeRatio.Equal(dec("0.2")) || *tomato.PreviousSnapshotID != "p1" {
		t.Errorf("tomato: unexpected event %+v", tomato)
	}
}

func TestComputeChanges_RoundsPrices(t *testing.T) {
	current := []models.SnapshotRecord{record("s1", "Tomato", "", "3.336")}
	comparison := []models.SnapshotRecord{record("p1", "Tomato", "", "3")}
	events := ComputeChanges(current, comparison, nil)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].NewPrice.Equal(dec("3.34")) || !events[0].ChangeAmount.Equal(dec("0.34")) {
		t.Fatalf("unexpected rounding: new %s amount %s", events[0].NewPrice, events[0].ChangeAmount)
	}
	if !events[0].ChangeRatio.Equal(dec("0.113333")) {
		t.Fatalf("ratio = %s", events[0].ChangeRatio)
	}
}

func TestDeclaredOldPrices(t *testing.T) {
	old := dec("4")
	rows := []models.PriceRow{
		{ProductName: "Tomato", Unit: "2 kg", ListPrice: dec("5"), DeclaredOldPrice: &old},
		{ProductName: "Onion", ListPrice: dec("1")},
	}
	got := DeclaredOldPrices(rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 declared price, got %v", got)
	}
	if v, ok := got[utils.ProductKey("tomato", "2 KG")]; !ok || !v.Equal(old) {
		t.Fatalf("declared prices = %v", got)
	}
}
