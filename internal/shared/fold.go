package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold lowercases s with full Unicode case folding. Item codes and location
// names are matched through this everywhere, so "AbC123" and "abc123" always
// hit the same row. A fresh Caser per call because Casers are stateful.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// SameKey reports whether two identifiers fold to the same key.
func SameKey(a, b string) bool {
	return Fold(a) == Fold(b)
}
