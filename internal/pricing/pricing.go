package pricing

import (
	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// Line is one priced order line. UnitPriceCents is the pre-sale list price;
// SalePercent is the product-level markdown captured at snapshot time.
type Line struct {
	UnitPriceCents int64
	SalePercent    int
	Qty            int
}

// EffectiveUnitCents returns the sale-adjusted unit price. Integer division
// truncates per unit so a line's total is always a whole multiple of its
// unit price.
func (l Line) EffectiveUnitCents() int64 {
	percent := l.SalePercent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return l.UnitPriceCents * int64(100-percent) / 100
}

// TotalCents returns the line total in minor units.
func (l Line) TotalCents() int64 {
	if l.Qty <= 0 {
		return 0
	}
	return l.EffectiveUnitCents() * int64(l.Qty)
}

// Promo is a percent-off discount with an optional cap in minor units.
type Promo struct {
	Percent      int
	MaxSaleCents *int64
}

// FeeSchedule holds the flat fees added after discounting.
type FeeSchedule struct {
	DeliveryFeeCents  int64
	CODSurchargeCents int64
}

// Quote is the full price breakdown for an order.
type Quote struct {
	SubtotalCents  int64
	DiscountCents  int64
	DeliveryCents  int64
	SurchargeCents int64
	TotalCents     int64
}

// Subtotal sums the sale-adjusted line totals.
func Subtotal(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.TotalCents()
	}
	return total
}

// Discount computes the promo discount against the product subtotal only.
// Fees are never discounted. A nil promo means no discount.
func Discount(subtotalCents int64, promo *Promo) int64 {
	if promo == nil || promo.Percent <= 0 || subtotalCents <= 0 {
		return 0
	}
	percent := promo.Percent
	if percent > 100 {
		percent = 100
	}
	discount := subtotalCents * int64(percent) / 100
	if promo.MaxSaleCents != nil && discount > *promo.MaxSaleCents {
		discount = *promo.MaxSaleCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount
}

// Compute builds the complete quote: sale-adjusted subtotal, promo discount,
// then fees on top of the discounted amount.
func Compute(lines []Line, promo *Promo, fees FeeSchedule, deliveryNeeded bool, method enums.PaymentMethod) Quote {
	quote := Quote{
		SubtotalCents: Subtotal(lines),
	}
	quote.DiscountCents = Discount(quote.SubtotalCents, promo)

	if deliveryNeeded {
		quote.DeliveryCents = fees.DeliveryFeeCents
	}
	if method == enums.PaymentMethodCOD {
		quote.SurchargeCents = fees.CODSurchargeCents
	}

	quote.TotalCents = quote.SubtotalCents - quote.DiscountCents + quote.DeliveryCents + quote.SurchargeCents
	return quote
}
