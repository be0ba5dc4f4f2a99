package domain

import (
	"math"
	"strings"
	"time"
)

// NormalizeSymbol trims surrounding whitespace and upper-cases a symbol.
// An empty result means the input was not a usable symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Quote is a single observed price for a symbol.
type Quote struct {
	Symbol     string    // Normalized symbol the price belongs to
	Price      float64   // Last observed price
	ObservedAt time.Time // When the provider observed the price
}

// IsValid reports whether the quote carries a usable price.
// Zero, negative, NaN and infinite prices all count as "no data".
func (q *Quote) IsValid() bool {
	return q != nil && q.Price > 0 && !math.IsNaN(q.Price) && !math.IsInf(q.Price, 0)
}
