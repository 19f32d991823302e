// Package stock holds the single quantity rule shared by every cart mutation
// that changes a product line: the live catalog stock at the time of the
// mutation bounds the quantity, never the snapshot taken when the line was added.
package stock

// Decision is the outcome of applying a quantity change
type Decision int

const (
	// Accept means the new quantity fits within stock
	Accept Decision = iota
	// Remove means the new quantity dropped to zero or below and the line must go
	Remove
	// RejectOutOfStock means the product has no stock at all
	RejectOutOfStock
	// RejectLimit means the new quantity would exceed the available stock
	RejectLimit
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Remove:
		return "remove"
	case RejectOutOfStock:
		return "out_of_stock"
	case RejectLimit:
		return "stock_limit_reached"
	default:
		return "unknown"
	}
}

// Empties reports whether currentQty+delta would drop to zero or below.
// currentQty must not be negative.
func Empties(currentQty, delta int) bool {
	return delta <= -currentQty
}

// CanAdd reports whether currentQty+delta stays within [1, stock]. The
// comparison never computes the sum, so extreme deltas cannot wrap around.
func CanAdd(currentQty, delta, stock int) bool {
	if Empties(currentQty, delta) {
		return false
	}
	return delta <= max(stock, 0)-currentQty
}

// ClampOrReject decides what happens when delta is applied to a line holding
// currentQty units (0 for a line that does not exist yet). It returns the
// resulting quantity together with the decision; on rejection the returned
// quantity is currentQty unchanged.
func ClampOrReject(currentQty, delta, stock int) (int, Decision) {
	if Empties(currentQty, delta) {
		return 0, Remove
	}
	if delta > 0 && stock <= 0 {
		return currentQty, RejectOutOfStock
	}
	if !CanAdd(currentQty, delta, stock) {
		return currentQty, RejectLimit
	}
	return currentQty + delta, Accept
}
