// scraper/html_table.go
package scraper

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/utils"
)

// ParsePriceListHTML extracts price rows from an HTML export (a spreadsheet
// saved as a web page, for instance). The first <table> that contains a usable
// header wins; every <tr> becomes a line and every th/td a cell.
func ParsePriceListHTML(r io.Reader, opts ParseOptions) (*models.PriceList, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML price list: %w", err)
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, fmt.Errorf("%w: no <table> element found", ErrEmptyInput)
	}

	var (
		result   *models.PriceList
		firstErr error
	)
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		lines := tableLines(table)
		if len(lines) == 0 {
			return true
		}
		list, err := extractPriceList(lines, opts)
		if err == nil {
			result = list
			return false
		}
		// Prefer an error that says something about a real header over
		// "header not found" from some layout table.
		if firstErr == nil || (errors.Is(firstErr, ErrHeaderNotFound) && !errors.Is(err, ErrHeaderNotFound)) {
			firstErr = err
		}
		return true
	})

	if result != nil {
		return result, nil
	}
	if firstErr == nil {
		firstErr = ErrEmptyInput
	}
	return nil, firstErr
}

func tableLines(table *goquery.Selection) []sourceLine {
	var lines []sourceLine
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		blank := true
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := utils.NormalizeText(cell.Text())
			if text != "" {
				blank = false
			}
			cells = append(cells, text)
		})
		if blank {
			return
		}
		lines = append(lines, sourceLine{number: i + 1, cells: cells})
	})
	return lines
}

// htmlPrefixes are the openings of a saved web page or a bare table fragment.
var htmlPrefixes = []string{"<!doctype html", "<html", "<head", "<body", "<table", "<!--", "<meta"}

// looksLikeHTML only inspects the start of the payload, so a delimited export
// whose cells mention "<table" still goes to the delimited parser.
func looksLikeHTML(raw string) bool {
	head := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	if len(head) > 64 {
		head = head[:64]
	}
	head = strings.ToLower(head)
	for _, p := range htmlPrefixes {
		if strings.HasPrefix(head, p) {
			return true
		}
	}
	return false
}
