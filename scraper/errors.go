// scraper/errors.go
package scraper

import (
	"errors"
	"strings"
)

// Structural problems with an export. All of them abort an ingestion before
// anything is written.
var (
	ErrEmptyInput     = errors.New("price list is empty")
	ErrHeaderNotFound = errors.New(`price list header row not found: expected columns such as "Food Item" and "New Price"`)
	ErrMissingColumns = errors.New("price list header is missing required columns")
	ErrNoValidRows    = errors.New("price list contains no valid product rows")
)

// ErrInvalidPrice is returned by ParsePrice. It is a row-level defect, never fatal.
var ErrInvalidPrice = errors.New("invalid price")

// MissingColumnsError names the required columns a header-like line lacked.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return ErrMissingColumns.Error() + ": " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// IsParseError reports whether err is a structural export error, as opposed to
// an I/O or persistence failure.
func IsParseError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrHeaderNotFound) ||
		errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrNoValidRows)
}
