package stock

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestClampOrReject(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		delta    int
		stock    int
		wantQty  int
		decision Decision
	}{
		{"first unit", 0, 1, 3, 1, Accept},
		{"increment within stock", 1, 1, 3, 2, Accept},
		{"increment to exact stock", 2, 1, 3, 3, Accept},
		{"increment beyond stock", 3, 1, 3, 3, RejectLimit},
		{"large delta beyond stock", 2, 5, 3, 2, RejectLimit},
		{"no stock", 0, 1, 0, 0, RejectOutOfStock},
		{"decrement", 2, -1, 3, 1, Accept},
		{"decrement to zero removes", 2, -2, 3, 0, Remove},
		{"decrement below zero removes", 1, -5, 3, 0, Remove},
		{"decrement above shrunk stock", 5, -1, 2, 5, RejectLimit},
		{"max int delta is rejected", 2, math.MaxInt, 3, 2, RejectLimit},
		{"max int delta on new line", 0, math.MaxInt, 3, 0, RejectLimit},
		{"max int delta without stock", 2, math.MaxInt, 0, 2, RejectOutOfStock},
		{"min int delta removes", 2, math.MinInt, 3, 0, Remove},
		{"max int delta within max int stock", 0, math.MaxInt, math.MaxInt, math.MaxInt, Accept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, decision := ClampOrReject(tt.current, tt.delta, tt.stock)
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.wantQty, qty)
		})
	}
}

func TestCanAdd(t *testing.T) {
	assert.True(t, CanAdd(0, 1, 1))
	assert.True(t, CanAdd(2, 1, 3))
	assert.False(t, CanAdd(3, 1, 3))
	assert.False(t, CanAdd(1, -1, 3))
	assert.False(t, CanAdd(0, 1, 0))
	assert.False(t, CanAdd(2, math.MaxInt, 3))
	assert.False(t, CanAdd(2, math.MinInt, 3))
	assert.False(t, CanAdd(1, 1, -5))
}

func TestEmpties(t *testing.T) {
	assert.True(t, Empties(2, -2))
	assert.True(t, Empties(0, 0))
	assert.True(t, Empties(3, math.MinInt))
	assert.False(t, Empties(2, -1))
	assert.False(t, Empties(2, math.MaxInt))
}

// Feature: storefront-cart, Property 1: Quantities stay within stock
func TestProperty_QuantityNeverExceedsStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("accepted quantities are always within [1, stock]", prop.ForAll(
		func(stock int, deltas []int) bool {
			qty := 0
			for _, delta := range deltas {
				next, decision := ClampOrReject(qty, delta, stock)
				switch decision {
				case Accept:
					if next < 1 || next > stock {
						return false
					}
					qty = next
				case Remove:
					qty = 0
				case RejectLimit, RejectOutOfStock:
					if next != qty {
						return false
					}
				}
			}
			return qty >= 0 && qty <= stock
		},
		gen.IntRange(0, 20),
		gen.SliceOf(gen.IntRange(-5, 5)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
