package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gewnthar/pricediff/models"
	"github.com/shopspring/decimal"
)

func TestWriteCSVFile(t *testing.T) {
	day, err := models.ParseDate("2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "changes.csv")
	events := []models.ChangeEvent{{CapturedAt: day, ProductName: "Tomato", NewPrice: decimal.RequireFromString("5.00")}}

	if err := writeCSVFile(path, events); err != nil {
		t.Fatalf("writeCSVFile failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header and one row:\n%s", len(lines), b)
	}
	if !strings.Contains(lines[1], "Tomato") {
		t.Errorf("row = %q, want Tomato", lines[1])
	}
}

func TestWriteCSVFileReportsCreateError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "changes.csv")
	if err := writeCSVFile(path, nil); err == nil {
		t.Fatal("expected an error for a path in a missing directory")
	}
}
