package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gewnthar/pricediff/config"
	"github.com/gewnthar/pricediff/database"
	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/services"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// newTestServer seeds two capture dates and returns a router over them.
func newTestServer(t *testing.T, pinger Pinger) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "api.db")}
	db, d, err := database.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(ctx, db, d); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	snapshots := database.NewSnapshotStore(db, d)
	events := database.NewChangeEventStore(db, d, 0)
	runs := database.NewIngestRunStore(db, d)
	ing := services.NewIngestor(snapshots, events, runs, nil, services.IngestOptions{SourceName: "api-test"})

	seed := []struct{ date, raw string }{
		{"2024-01-01", "Food Item,New Price\nTomato,5\nOnion,2\nMilk,1\n"},
		{"2024-01-08", "Food Item,New Price\nTomato,6\nOnion,1.5\nMilk,1\nBasil,3\n"},
	}
	for _, s := range seed {
		day, _ := models.ParseDate(s.date)
		if _, err := ing.Ingest(ctx, s.raw, &day); err != nil {
			t.Fatalf("seed ingest %s: %v", s.date, err)
		}
	}

	if pinger == nil {
		pinger = db
	}
	return NewRouter(NewHandler(services.NewReporter(events, snapshots, runs), pinger))
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, nil)
	if rec := get(t, r, "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}

	down := newTestServer(t, fakePinger{err: errors.New("down")})
	if rec := get(t, down, "/api/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("health with failing db = %d", rec.Code)
	}
}

func TestGetChangesJSON(t *testing.T) {
	r := newTestServer(t, nil)

	rec := get(t, r, "/api/changes/2024-01-08?sort=increase")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var resp models.ChangesResponse
	decode(t, rec, &resp)
	if resp.Count != 3 || resp.CapturedAt.String() != "2024-01-08" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	var order []string
	for _, ev := range resp.Changes {
		order = append(order, ev.ProductName)
	}
	if got := strings.Join(order, ","); got != "Tomato,Onion,Basil" {
		t.Fatalf("increase order = %s", got)
	}
	if !resp.Changes[2].IsNewProduct() || resp.Changes[2].OldPrice != nil {
		t.Fatalf("basil should be a new product: %+v", resp.Changes[2])
	}
}

func TestGetChangesCSV(t *testing.T) {
	r := newTestServer(t, nil)

	rec := get(t, r, "/api/changes/2024-01-08?format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
}

func TestGetChangesValidation(t *testing.T) {
	r := newTestServer(t, nil)
	for _, path := range []string{
		"/api/changes/not-a-date",
		"/api/changes/2024-01-08?sort=price",
		"/api/changes/2024-01-08?format=xml",
	} {
		rec := get(t, r, path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", path, rec.Code)
			continue
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] == "" {
			t.Errorf("%s: missing error message", path)
		}
	}

	rec := get(t, r, "/api/changes/2023-12-31")
	var resp models.ChangesResponse
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Count != 0 || resp.Changes == nil {
		t.Fatalf("date without events: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetSnapshot(t *testing.T) {
	r := newTestServer(t, nil)

	rec := get(t, r, "/api/snapshots/2024-01-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap models.SnapshotResponse
	decode(t, rec, &snap)
	if snap.Count != 3 || len(snap.Rows) != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if rec := get(t, r, "/api/snapshots/2020-01-01"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing snapshot status = %d", rec.Code)
	}
}

func TestListDates(t *testing.T) {
	r := newTestServer(t, nil)

	var dates []models.CaptureDateSummary
	rec := get(t, r, "/api/dates")
	decode(t, rec, &dates)
	if len(dates) != 2 || dates[0].CapturedAt.String() != "2024-01-08" || dates[0].SnapshotRows != 4 {
		t.Fatalf("unexpected dates: %+v", dates)
	}

	rec = get(t, r, "/api/dates?from=2024-01-02")
	decode(t, rec, &dates)
	if len(dates) != 1 {
		t.Fatalf("from filter: %+v", dates)
	}

	if rec := get(t, r, "/api/dates?from=2024-02-01&to=2024-01-01"); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	r := newTestServer(t, nil)

	var runs []models.IngestRun
	rec := get(t, r, "/api/runs?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	decode(t, rec, &runs)
	if len(runs) != 1 || runs[0].SourceName != "api-test" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	if rec := get(t, r, "/api/runs?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}
