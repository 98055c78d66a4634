package pricing

import (
	"testing"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name string
		line Line
		want int64
	}{
		{name: "no sale", line: Line{UnitPriceCents: 10000, Qty: 2}, want: 20000},
		{name: "ten percent sale", line: Line{UnitPriceCents: 10000, SalePercent: 10, Qty: 2}, want: 18000},
		{name: "truncating sale", line: Line{UnitPriceCents: 999, SalePercent: 15, Qty: 3}, want: 2547},
		{name: "full markdown", line: Line{UnitPriceCents: 5000, SalePercent: 100, Qty: 1}, want: 0},
		{name: "zero qty", line: Line{UnitPriceCents: 5000, Qty: 0}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.line.TotalCents(); got != tc.want {
				t.Fatalf("TotalCents() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDiscount(t *testing.T) {
	cap := int64(15000)

	cases := []struct {
		name     string
		subtotal int64
		promo    *Promo
		want     int64
	}{
		{name: "no promo", subtotal: 100000, promo: nil, want: 0},
		{name: "uncapped percent", subtotal: 100000, promo: &Promo{Percent: 25}, want: 25000},
		{name: "cap applies", subtotal: 100000, promo: &Promo{Percent: 25, MaxSaleCents: &cap}, want: 15000},
		{name: "cap above percent", subtotal: 40000, promo: &Promo{Percent: 25, MaxSaleCents: &cap}, want: 10000},
		{name: "never exceeds subtotal", subtotal: 100, promo: &Promo{Percent: 100}, want: 100},
		{name: "zero subtotal", subtotal: 0, promo: &Promo{Percent: 50}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Discount(tc.subtotal, tc.promo); got != tc.want {
				t.Fatalf("Discount(%d) = %d, want %d", tc.subtotal, got, tc.want)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	fees := FeeSchedule{DeliveryFeeCents: 5000, CODSurchargeCents: 1000}

	t.Run("delivery with sale lines", func(t *testing.T) {
		lines := []Line{{UnitPriceCents: 10000, SalePercent: 10, Qty: 2}}
		quote := Compute(lines, nil, fees, true, enums.PaymentMethodCreditCard)
		if quote.SubtotalCents != 18000 {
			t.Fatalf("subtotal = %d, want 18000", quote.SubtotalCents)
		}
		if quote.DeliveryCents != 5000 || quote.SurchargeCents != 0 {
			t.Fatalf("unexpected fees %+v", quote)
		}
		if quote.TotalCents != 23000 {
			t.Fatalf("total = %d, want 23000", quote.TotalCents)
		}
	})

	t.Run("capped promo before fees", func(t *testing.T) {
		cap := int64(15000)
		lines := []Line{{UnitPriceCents: 100000, Qty: 1}}
		quote := Compute(lines, &Promo{Percent: 25, MaxSaleCents: &cap}, fees, false, enums.PaymentMethodCreditCard)
		if quote.DiscountCents != 15000 {
			t.Fatalf("discount = %d, want 15000", quote.DiscountCents)
		}
		if quote.TotalCents != 85000 {
			t.Fatalf("total = %d, want 85000", quote.TotalCents)
		}
	})

	t.Run("cod surcharge", func(t *testing.T) {
		lines := []Line{{UnitPriceCents: 20000, Qty: 1}}
		quote := Compute(lines, nil, fees, true, enums.PaymentMethodCOD)
		if quote.SurchargeCents != 1000 {
			t.Fatalf("surcharge = %d, want 1000", quote.SurchargeCents)
		}
		if quote.TotalCents != 26000 {
			t.Fatalf("total = %d, want 26000", quote.TotalCents)
		}
	})

	t.Run("pickup order skips delivery fee", func(t *testing.T) {
		lines := []Line{{UnitPriceCents: 20000, Qty: 1}}
		quote := Compute(lines, nil, fees, false, enums.PaymentMethodCOD)
		if quote.DeliveryCents != 0 {
			t.Fatalf("delivery = %d, want 0", quote.DeliveryCents)
		}
		if quote.TotalCents != 21000 {
			t.Fatalf("total = %d, want 21000", quote.TotalCents)
		}
	})
}
