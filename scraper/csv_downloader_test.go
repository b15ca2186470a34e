package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleExport = "Food Item,New Price\nTomato,5\n"

func newExportServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prices.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleExport))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExport(t *testing.T) {
	srv := newExportServer(t)

	body, err := FetchExport(context.Background(), srv.URL+"/prices.csv", time.Second)
	if err != nil {
		t.Fatalf("FetchExport error: %v", err)
	}
	if body != sampleExport {
		t.Fatalf("body = %q", body)
	}

	_, err = FetchExport(context.Background(), srv.URL+"/missing.csv", time.Second)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestDownloadFile(t *testing.T) {
	srv := newExportServer(t)
	dest := filepath.Join(t.TempDir(), "archive", "prices.csv")

	if err := DownloadFile(context.Background(), srv.URL+"/prices.csv", dest, time.Second); err != nil {
		t.Fatalf("DownloadFile error: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != sampleExport {
		t.Fatalf("file content = %q", got)
	}
}

func TestFetchExportHonoursContext(t *testing.T) {
	srv := newExportServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FetchExport(ctx, srv.URL+"/prices.csv", time.Second); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
