// Package pricing holds the storefront's money arithmetic: delivery tiers,
// offer discounts, and cart totals. Everything here is pure.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	lowerTierLimit = decimal.NewFromInt(1000)
	upperTierLimit = decimal.NewFromInt(5000)

	lowerTierCharge  = decimal.NewFromInt(150)
	middleTierCharge = decimal.NewFromInt(200)
	upperTierCharge  = decimal.NewFromInt(300)

	hundred = decimal.NewFromInt(100)
)

// Line is one priced cart row.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Summary struct {
	Subtotal       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

// DeliveryCharge is a step function of the subtotal. A boundary value
// belongs to the lower tier.
func DeliveryCharge(subtotal decimal.Decimal) decimal.Decimal {
	switch {
	case subtotal.LessThanOrEqual(lowerTierLimit):
		return lowerTierCharge
	case subtotal.LessThanOrEqual(upperTierLimit):
		return middleTierCharge
	default:
		return upperTierCharge
	}
}

// DiscountedPrice applies a percentage discount. A nil percentage leaves the
// price unchanged; values outside [0,100] are clamped.
func DiscountedPrice(price decimal.Decimal, percent *decimal.Decimal) decimal.Decimal {
	if percent == nil {
		return price
	}
	p := decimal.Max(decimal.Zero, decimal.Min(*percent, hundred))
	return price.Mul(decimal.NewFromInt(1).Sub(p.Div(hundred)))
}

// Subtotal sums live unit price times quantity. Offers are not applied here.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

func LineTotal(l Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func Total(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(DeliveryCharge(subtotal))
}

func Summarize(lines []Line) Summary {
	sub := Subtotal(lines)
	return Summary{
		Subtotal:       sub,
		DeliveryCharge: DeliveryCharge(sub),
		Total:          Total(sub),
	}
}
