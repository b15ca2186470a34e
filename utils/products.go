// utils/products.go
package utils

import "strings"

// NormalizeText trims s and collapses every run of whitespace to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// JoinUnit builds a unit descriptor from the quantity and weight cells,
// e.g. ("2", "kg") -> "2 kg". Returns "" when both are empty.
func JoinUnit(quantity, weight string) string {
	return NormalizeText(quantity + " " + weight)
}

// ProductKey is the product identity used to match rows across exports and
// snapshots: case-insensitive, whitespace-normalized name and unit.
func ProductKey(name, unit string) string {
	return strings.ToLower(NormalizeText(name)) + "|" + strings.ToLower(NormalizeText(unit))
}
