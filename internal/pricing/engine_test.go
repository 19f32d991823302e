package pricing

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipedrill/internal/domain"
)

func TestComputeBreakdown_MixedCart(t *testing.T) {
	items := []domain.CartItem{
		&domain.ProductLine{ID: 1, Name: "Carbide Drill Bit Set", Price: 25.00, Quantity: 2},
		&domain.ServiceLine{
			ID:             1700000000000,
			Name:           "Precision Pipe Drilling",
			HourlyRate:     80.00,
			BookingDetails: domain.BookingDetails{EstimatedHours: 3},
		},
	}

	b := ComputeBreakdown(items)
	amounts := b.Rounded()

	assert.Equal(t, 290.00, amounts.Subtotal)
	assert.Equal(t, 23.20, amounts.Tax)
	assert.Equal(t, 313.20, amounts.Total)
	assert.True(t, b.Total.Equal(decimal.RequireFromString("313.2")))
}

func TestComputeBreakdown_EmptyCart(t *testing.T) {
	b := ComputeBreakdown(nil)
	assert.True(t, b.Subtotal.IsZero())
	assert.True(t, b.Tax.IsZero())
	assert.True(t, b.Total.IsZero())
	assert.Equal(t, Amounts{}, b.Rounded())
}

func TestComputeBreakdown_AccumulatesBeforeRounding(t *testing.T) {
	// rounding each line first would give 3 x 4.19 = 12.57
	items := []domain.CartItem{
		&domain.ProductLine{ID: 1, Price: 4.1875, Quantity: 1},
		&domain.ProductLine{ID: 2, Price: 4.1875, Quantity: 1},
		&domain.ProductLine{ID: 3, Price: 4.1875, Quantity: 1},
	}

	b := ComputeBreakdown(items)
	assert.True(t, b.Subtotal.Equal(decimal.RequireFromString("12.5625")))
	assert.True(t, b.Tax.Equal(decimal.RequireFromString("1.005")))
	assert.Equal(t, 12.56, b.Rounded().Subtotal)
	assert.Equal(t, 13.57, b.Rounded().Total)
}

func TestPayload(t *testing.T) {
	cart := domain.Cart{Items: []domain.CartItem{
		&domain.ProductLine{ID: 7, Name: "Coolant System", Price: 620.00, Quantity: 1},
	}}

	payload := ComputeBreakdown(cart.Items).Payload(cart)
	require.Len(t, payload.Items.Items, 1)
	assert.Equal(t, 620.00, payload.Subtotal)
	assert.Equal(t, 49.60, payload.Tax)
	assert.Equal(t, 669.60, payload.Total)
}

func genItems() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflectLine, map[string]gopter.Gen{
		"Cents":   gen.IntRange(0, 500000),
		"Units":   gen.IntRange(1, 50),
		"Service": gen.Bool(),
	}))
}

type line struct {
	Cents   int
	Units   int
	Service bool
}

var reflectLine = reflect.TypeOf(line{})

func toItems(lines []line) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(lines))
	for i, l := range lines {
		amount := float64(l.Cents) / 100
		if l.Service {
			items = append(items, &domain.ServiceLine{
				ID:             int64(i + 1),
				HourlyRate:     amount,
				BookingDetails: domain.BookingDetails{EstimatedHours: l.Units},
			})
			continue
		}
		items = append(items, &domain.ProductLine{ID: int64(i + 1), Price: amount, Quantity: l.Units})
	}
	return items
}

// Feature: storefront-cart, Property 3: Pricing is deterministic
func TestProperty_PricingIsDeterministic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("computing twice on the same cart yields identical figures", prop.ForAll(
		func(lines []line) bool {
			items := toItems(lines)
			first := ComputeBreakdown(items)
			second := ComputeBreakdown(items)
			return first.Subtotal.Equal(second.Subtotal) &&
				first.Tax.Equal(second.Tax) &&
				first.Total.Equal(second.Total) &&
				first.Rounded() == second.Rounded()
		},
		genItems(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront-cart, Property 4: Tax is eight percent of the subtotal
func TestProperty_TaxFormula(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tax and total follow the flat rate within half a cent", prop.ForAll(
		func(lines []line) bool {
			b := ComputeBreakdown(toItems(lines))
			x := b.Subtotal.InexactFloat64()
			amounts := b.Rounded()

			const tolerance = 0.005 + 1e-6
			return math.Abs(amounts.Tax-x*0.08) <= tolerance &&
				math.Abs(amounts.Total-x*1.08) <= tolerance &&
				b.Total.Equal(b.Subtotal.Add(b.Tax))
		},
		genItems(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
