// Package pricing computes the subtotal, tax and total of a cart.
//
// Line amounts are accumulated at full decimal precision; rounding to cents
// happens only when a breakdown leaves the process (Rounded, Payload).
package pricing

import (
	"github.com/shopspring/decimal"

	"pipedrill/internal/domain"
)

// TaxRate is the flat sales tax applied to every cart
var TaxRate = decimal.RequireFromString("0.08")

// MoneyPlaces is the number of decimal places used at display and wire boundaries
const MoneyPlaces = 2

// Breakdown is the derived price view of a cart
type Breakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Amounts is a Breakdown rounded to cents for JSON output
type Amounts struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// LineTotal returns the contribution of a single cart line
func LineTotal(item domain.CartItem) decimal.Decimal {
	switch line := item.(type) {
	case *domain.ProductLine:
		return decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity)))
	case *domain.ServiceLine:
		return decimal.NewFromFloat(line.HourlyRate).Mul(decimal.NewFromInt(int64(line.EstimatedHours)))
	default:
		return decimal.Zero
	}
}

// ComputeBreakdown prices the given lines. It has no side effects and returns
// identical results for identical input.
func ComputeBreakdown(items []domain.CartItem) Breakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(LineTotal(item))
	}

	tax := subtotal.Mul(TaxRate)
	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Rounded returns the breakdown with each figure rounded to cents
func (b Breakdown) Rounded() Amounts {
	return Amounts{
		Subtotal: round(b.Subtotal),
		Tax:      round(b.Tax),
		Total:    round(b.Total),
	}
}

// Payload builds the order placement body for the given cart and its breakdown
func (b Breakdown) Payload(cart domain.Cart) domain.OrderPayload {
	amounts := b.Rounded()
	return domain.OrderPayload{
		Items:    cart,
		Subtotal: amounts.Subtotal,
		Tax:      amounts.Tax,
		Total:    amounts.Total,
	}
}

func round(d decimal.Decimal) float64 {
	return d.Round(MoneyPlaces).InexactFloat64()
}
