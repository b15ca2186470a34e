// scraper/csv_parser.go
package scraper

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/utils"
	"github.com/jszwec/csvutil"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ParseOptions controls how an export is read.
type ParseOptions struct {
	Delimiter  rune           // cell delimiter, ',' when zero
	CapturedAt *models.Date   // explicit capture date; "today" when nil
	Location   *time.Location // location used to resolve "today"
	Now        func() time.Time
}

func (o ParseOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o ParseOptions) captureDate() models.Date {
	if o.CapturedAt != nil {
		return *o.CapturedAt
	}
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	return models.Today(now(), o.Location)
}

// sourceLine is one non-blank line of the export, already split into cells.
type sourceLine struct {
	number int
	cells  []string
}

// exportRecord is a data line projected onto the canonical column set, which
// lets csvutil decode it by name no matter where the columns sat in the export.
type exportRecord struct {
	Line        int    `csv:"line"`
	Category    string `csv:"category"`
	ProductName string `csv:"product_name"`
	Quantity    string `csv:"quantity"`
	Weight      string `csv:"weight"`
	NewPrice    string `csv:"new_price"`
	OldPrice    string `csv:"old_price"`
}

var exportRecordHeader = []string{"line", "category", "product_name", "quantity", "weight", "new_price", "old_price"}

// projectedReader feeds csvutil one exportRecord-shaped record per data line.
type projectedReader struct {
	lines []sourceLine
	cols  columnIndex
	pos   int
}

func (p *projectedReader) Read() ([]string, error) {
	if p.pos >= len(p.lines) {
		return nil, io.EOF
	}
	line := p.lines[p.pos]
	p.pos++
	cell := func(idx int) string {
		if idx < 0 || idx >= len(line.cells) {
			return ""
		}
		return line.cells[idx]
	}
	return []string{
		strconv.Itoa(line.number),
		cell(p.cols.category),
		cell(p.cols.name),
		cell(p.cols.quantity),
		cell(p.cols.weight),
		cell(p.cols.newPrice),
		cell(p.cols.oldPrice),
	}, nil
}

// categoryCarry remembers the last non-empty category cell so rows that leave
// it blank inherit it.
type categoryCarry struct {
	current string
}

func (c *categoryCarry) next(cell string) string {
	if v := utils.NormalizeText(cell); v != "" {
		c.current = v
	}
	return c.current
}

// ParsePriceList extracts price rows from a delimited text export.
// The header row may sit anywhere before the data; rows that cannot be read
// are skipped and counted, structural problems are returned as errors.
func ParsePriceList(raw string, opts ParseOptions) (*models.PriceList, error) {
	raw = strings.TrimPrefix(raw, "\uFEFF")
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}
	lines := splitLines(raw, opts.delimiter())
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}
	return extractPriceList(lines, opts)
}

// ParseAuto dispatches to ParsePriceListHTML when the payload looks like an
// HTML table export and to ParsePriceList otherwise.
func ParseAuto(raw string, opts ParseOptions) (*models.PriceList, error) {
	if looksLikeHTML(raw) {
		return ParsePriceListHTML(strings.NewReader(raw), opts)
	}
	return ParsePriceList(raw, opts)
}

func splitLines(raw string, delim rune) []sourceLine {
	var lines []sourceLine
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells, err := splitCells(line, delim)
		if err != nil {
			log.Debug().Err(err).Int("line", i+1).Msg("Scraper: skipping unreadable line")
			continue
		}
		lines = append(lines, sourceLine{number: i + 1, cells: cells})
	}
	return lines
}

// splitCells splits one line, honouring quoted cells: a quoted cell may hold
// the delimiter and "" inside it is a literal quote.
func splitCells(line string, delim rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r.Read()
}

func extractPriceList(lines []sourceLine, opts ParseOptions) (*models.PriceList, error) {
	headerPos, cols, err := findHeader(lines)
	if err != nil {
		return nil, err
	}
	capturedAt := opts.captureDate()

	dec, err := csvutil.NewDecoder(&projectedReader{lines: lines[headerPos+1:], cols: cols}, exportRecordHeader...)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for price rows: %w", err)
	}

	var (
		carry   categoryCarry
		rows    []models.PriceRow
		byKey   = make(map[string]int)
		skipped int
	)
	for {
		var rec exportRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode price rows: %w", err)
		}

		category := carry.next(rec.Category)
		row, ok := buildRow(rec, category, capturedAt)
		if !ok {
			skipped++
			continue
		}

		// Later lines win for the same product.
		key := utils.ProductKey(row.ProductName, row.Unit)
		if i, seen := byKey[key]; seen {
			rows[i] = row
			continue
		}
		byKey[key] = len(rows)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoValidRows
	}
	sortPriceRows(rows)

	log.Debug().
		Int("header_line", lines[headerPos].number).
		Int("rows", len(rows)).
		Int("skipped", skipped).
		Str("captured_at", capturedAt.String()).
		Msg("Scraper: parsed price list")

	return &models.PriceList{
		CapturedAt:  capturedAt,
		Rows:        rows,
		HeaderLine:  lines[headerPos].number,
		SkippedRows: skipped,
	}, nil
}

// findHeader returns the position of the first line carrying both a product
// name and a new price column. When some line carries only one of them the
// error names what is missing.
func findHeader(lines []sourceLine) (int, columnIndex, error) {
	var partial *columnIndex
	for i, line := range lines {
		cols := detectColumns(line.cells)
		if cols.hasRequired() {
			return i, cols, nil
		}
		if partial == nil && (cols.name >= 0 || cols.newPrice >= 0) {
			c := cols
			partial = &c
		}
	}
	if partial != nil {
		return 0, columnIndex{}, &MissingColumnsError{Columns: partial.missingRequired()}
	}
	return 0, columnIndex{}, ErrHeaderNotFound
}

func buildRow(rec exportRecord, category string, capturedAt models.Date) (models.PriceRow, bool) {
	name := utils.NormalizeText(rec.ProductName)
	if name == "" {
		return models.PriceRow{}, false
	}
	price, err := ParsePrice(rec.NewPrice)
	if err != nil || price.IsNegative() {
		log.Debug().Int("line", rec.Line).Str("product", name).Str("new_price", rec.NewPrice).Msg("Scraper: skipping row with unusable price")
		return models.PriceRow{}, false
	}

	row := models.PriceRow{
		ProductName: name,
		Unit:        utils.JoinUnit(rec.Quantity, rec.Weight),
		Category:    category,
		ListPrice:   price,
		CapturedAt:  capturedAt,
	}
	if strings.TrimSpace(rec.OldPrice) != "" {
		if old, err := ParsePrice(rec.OldPrice); err == nil && !old.IsNegative() {
			row.DeclaredOldPrice = &old
		}
	}
	return row, true
}

func sortPriceRows(rows []models.PriceRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].ProductName), strings.ToLower(rows[j].ProductName)
		if a != b {
			return a < b
		}
		return strings.ToLower(rows[i].Unit) < strings.ToLower(rows[j].Unit)
	})
}

var nonPriceChars = regexp.MustCompile(`[^0-9.,\-]`)

// ParsePrice reads a price cell such as "$1,250.00" or "450 EUR": everything
// but digits, '.', ',' and '-' is dropped, commas are treated as thousands
// separators.
func ParsePrice(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(nonPriceChars.ReplaceAllString(s, ""), ",", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return d, nil
}
