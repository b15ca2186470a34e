// services/diff_engine.go
package services

import (
	"sort"
	"strings"

	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/utils"
	"github.com/shopspring/decimal"
)

// Prices are compared at cent precision; anything closer than a cent is equal.
var priceTolerance = decimal.New(1, -2)

const (
	pricePlaces = 2
	ratioPlaces = 6
)

func roundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(pricePlaces)
}

func pricesEqual(a, b decimal.Decimal) bool {
	return roundPrice(a).Sub(roundPrice(b)).Abs().LessThan(priceTolerance)
}

// DeclaredOldPrices collects the explicit old prices an export carried, keyed
// by product key. Rows without one are absent from the map.
func DeclaredOldPrices(rows []models.PriceRow) map[string]decimal.Decimal {
	declared := make(map[string]decimal.Decimal)
	for _, row := range rows {
		if row.DeclaredOldPrice != nil {
			declared[utils.ProductKey(row.ProductName, row.Unit)] = *row.DeclaredOldPrice
		}
	}
	return declared
}

// ComputeChanges diffs the current snapshot against the comparison snapshot.
//
// The old price of a product is, in order: its declared old price, its price
// in the comparison snapshot, or unknown. No event is emitted when a known old
// price equals the new one. A product with no old price and no comparison
// record is flagged as a new product. Products missing from current are
// ignored. Events are sorted by product name then unit.
func ComputeChanges(current, comparison []models.SnapshotRecord, declared map[string]decimal.Decimal) []models.ChangeEvent {
	previous := make(map[string]models.SnapshotRecord, len(comparison))
	for _, rec := range comparison {
		previous[utils.ProductKey(rec.ProductName, rec.Unit)] = rec
	}

	var events []models.ChangeEvent
	for _, rec := range current {
		key := utils.ProductKey(rec.ProductName, rec.Unit)
		newPrice := roundPrice(rec.ListPrice)
		prev, hasPrev := previous[key]

		var oldPrice *decimal.Decimal
		if d, ok := declared[key]; ok {
			v := roundPrice(d)
			oldPrice = &v
		} else if hasPrev {
			v := roundPrice(prev.ListPrice)
			oldPrice = &v
		}

		if oldPrice != nil && pricesEqual(*oldPrice, newPrice) {
			continue
		}

		ev := models.ChangeEvent{
			CapturedAt:  rec.CapturedAt,
			ProductName: rec.ProductName,
			Unit:        rec.Unit,
			Category:    rec.Category,
			OldPrice:    oldPrice,
			NewPrice:    newPrice,
			SnapshotID:  rec.ID,
		}
		if hasPrev {
			id := prev.ID
			ev.PreviousSnapshotID = &id
		}
		if oldPrice != nil {
			diff := newPrice.Sub(*oldPrice)
			amount := diff.Round(pricePlaces)
			ev.ChangeAmount = &amount
			if !oldPrice.IsZero() {
				ratio := diff.DivRound(*oldPrice, ratioPlaces)
				ev.ChangeRatio = &ratio
			}
		} else if !hasPrev {
			ev.Metadata.Status = models.StatusNewProduct
		}
		events = append(events, ev)
	}

	sortEventsByName(events)
	return events
}

func sortEventsByName(events []models.ChangeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := strings.ToLower(events[i].ProductName), strings.ToLower(events[j].ProductName)
		if a != b {
			return a < b
		}
		return strings.ToLower(events[i].Unit) < strings.ToLower(events[j].Unit)
	})
}
