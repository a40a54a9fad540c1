// Package pricing turns snapshotted menu prices and an optional coupon into an order total.
//
// All arithmetic is exact decimal. The final total is rounded to two places with
// round-half-away-from-zero, which for the non-negative totals produced here is
// plain half-up: 10.005 becomes 10.01.
package pricing

import (
	"github.com/shopspring/decimal"

	"food-ordering-api/models"
)

var hundred = decimal.NewFromInt(100)

// Line is one requested menu item with the unit price read at order time
type Line struct {
	MenuItemID uint
	UnitPrice  decimal.Decimal
	Quantity   int
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is the breakdown of an order price
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Calculate prices the lines. A nil or inactive coupon applies no discount.
func Calculate(lines []Line, coupon *models.Coupon) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}

	discount := Discount(subtotal, coupon)
	total := subtotal.Sub(discount)

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    Round(total),
	}
}

// Discount returns the amount a coupon takes off subtotal, never negative and never more than subtotal
func Discount(subtotal decimal.Decimal, coupon *models.Coupon) decimal.Decimal {
	if coupon == nil || !coupon.IsActive || !coupon.DiscountValue.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch coupon.DiscountType {
	case models.DiscountPercentage:
		d = subtotal.Mul(coupon.DiscountValue.Decimal).Div(hundred)
	case models.DiscountFixed:
		d = coupon.DiscountValue.Decimal
	default:
		return decimal.Zero
	}

	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
