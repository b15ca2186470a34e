// scraper/columns.go
package scraper

import (
	"strings"

	"github.com/gewnthar/pricediff/utils"
)

type columnRole int

const (
	roleNone columnRole = iota
	roleCategory
	roleName
	roleQuantity
	roleWeight
	roleNewPrice
	roleOldPrice
)

// columnRule matches a normalized header cell either by substring or exactly.
type columnRule struct {
	role     columnRole
	contains []string
	equals   []string
}

// Order matters: the first rule that matches a cell decides its role, so the
// price rules run before the looser name and category ones.
var columnRules = []columnRule{
	{role: roleOldPrice, contains: []string{"old price", "previous price", "prior price", "was price"}},
	{role: roleNewPrice, contains: []string{"new price", "current price"}, equals: []string{"price"}},
	{role: roleCategory, contains: []string{"category"}, equals: []string{"group", "section", "department"}},
	{role: roleName, contains: []string{"food item", "product name", "item name"}, equals: []string{"product", "item", "name"}},
	{role: roleQuantity, contains: []string{"quantity"}, equals: []string{"qty", "pack"}},
	{role: roleWeight, contains: []string{"weight"}, equals: []string{"unit", "size", "uom"}},
}

// columnIndex holds resolved cell positions, -1 when the column is absent.
type columnIndex struct {
	category int
	name     int
	quantity int
	weight   int
	newPrice int
	oldPrice int
}

func newColumnIndex() columnIndex {
	return columnIndex{category: -1, name: -1, quantity: -1, weight: -1, newPrice: -1, oldPrice: -1}
}

func (c *columnIndex) slot(role columnRole) *int {
	switch role {
	case roleCategory:
		return &c.category
	case roleName:
		return &c.name
	case roleQuantity:
		return &c.quantity
	case roleWeight:
		return &c.weight
	case roleNewPrice:
		return &c.newPrice
	case roleOldPrice:
		return &c.oldPrice
	}
	return nil
}

func (c columnIndex) hasRequired() bool {
	return c.name >= 0 && c.newPrice >= 0
}

func (c columnIndex) missingRequired() []string {
	var missing []string
	if c.name < 0 {
		missing = append(missing, "product name")
	}
	if c.newPrice < 0 {
		missing = append(missing, "new price")
	}
	return missing
}

// detectColumns assigns each role to the first cell that matches it.
func detectColumns(cells []string) columnIndex {
	cols := newColumnIndex()
	for i, cell := range cells {
		role := classifyHeaderCell(normalizeHeaderCell(cell))
		if role == roleNone {
			continue
		}
		if slot := cols.slot(role); slot != nil && *slot < 0 {
			*slot = i
		}
	}
	return cols
}

func normalizeHeaderCell(cell string) string {
	cell = strings.TrimPrefix(cell, "\uFEFF")
	cell = strings.NewReplacer("_", " ", "-", " ").Replace(cell)
	cell = strings.TrimRight(utils.NormalizeText(cell), ":*")
	return strings.ToLower(strings.TrimSpace(cell))
}

func classifyHeaderCell(cell string) columnRole {
	if cell == "" {
		return roleNone
	}
	for _, rule := range columnRules {
		for _, s := range rule.contains {
			if strings.Contains(cell, s) {
				return rule.role
			}
		}
		for _, s := range rule.equals {
			if cell == s {
				return rule.role
			}
		}
	}
	return roleNone
}
