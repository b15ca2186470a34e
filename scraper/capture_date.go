// scraper/capture_date.go
package scraper

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gewnthar/pricediff/models"
)

// Layouts accepted for an explicit capture date, tried in order.
var captureDateLayouts = []string{
	models.DateLayout, // 2024-01-31
	"01/02/2006",      // 01/31/2024
	"20060102",        // 20240131
	"2006/01/02",      // 2024/01/31
}

// Finds "2024-01-31", "2024_01_31" or "20240131" inside a file name.
var filenameDateRegex = regexp.MustCompile(`(\d{4})[-_]?(\d{2})[-_]?(\d{2})`)

// ParseCaptureDate parses a user-supplied capture date.
func ParseCaptureDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range captureDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewDate(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("invalid capture date %q: expected YYYY-MM-DD", s)
}

// CaptureDateFromFilename looks for a date in the base name of path, e.g.
// "exports/prices_2024-01-31.csv". The second result is false when no valid
// date is present.
func CaptureDateFromFilename(path string) (models.Date, bool) {
	base := filepath.Base(path)
	for _, m := range filenameDateRegex.FindAllStringSubmatch(base, -1) {
		t, err := time.Parse(models.DateLayout, m[1]+"-"+m[2]+"-"+m[3])
		if err == nil {
			return models.NewDate(t), true
		}
	}
	return models.Date{}, false
}
