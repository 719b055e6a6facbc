// Package cart holds the shopper's cart: an ordered set of product lines with
// derived totals, persisted on every change.
package cart

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
)

// Line is one product in the cart. Product is a snapshot taken when the line
// was created.
type Line struct {
	ProductID string         `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Product   domain.Product `json:"product"`
}

// Total is the line's discounted unit price times its quantity.
func (l Line) Total() decimal.Decimal {
	return l.Product.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the full cart content. Line order is insertion order.
type State struct {
	Lines []Line `json:"items"`
}

// TotalItems is the sum of all line quantities, capped at math.MaxInt.
func (s State) TotalItems() int {
	n := 0
	for _, l := range s.Lines {
		n = addQuantity(n, l.Quantity)
	}
	return n
}

// TotalPrice is the sum of all line totals.
func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

func (s State) indexOf(productID string) int {
	for i := range s.Lines {
		if s.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	if s.Lines == nil {
		return State{Lines: []Line{}}
	}
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return State{Lines: lines}
}

// normalize drops lines with a non-positive quantity and merges duplicates.
// It reports whether anything changed.
func (s *State) normalize() bool {
	changed := false
	out := make([]Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		if l.Quantity < 1 || l.ProductID == "" {
			changed = true
			continue
		}
		if i := (State{Lines: out}).indexOf(l.ProductID); i >= 0 {
			out[i].Quantity = addQuantity(out[i].Quantity, l.Quantity)
			changed = true
			continue
		}
		out = append(out, l)
	}
	s.Lines = out
	return changed
}

// addQuantity sums two non-negative quantities, saturating at math.MaxInt.
func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
