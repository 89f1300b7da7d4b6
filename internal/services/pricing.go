// internal/services/pricing.go
package services

import (
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// round2 rounds half away from zero to the cent.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PricedLine is one line entering the totals computation. UnitPriceHt is the
// final unit price, after any discount.
type PricedLine struct {
	UnitPriceHt decimal.Decimal
	TaxRate     decimal.Decimal
	Quantity    int
}

func (l PricedLine) SubtotalHt() decimal.Decimal {
	return l.UnitPriceHt.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Tax is rounded per line, so the order tax is the sum of rounded line taxes.
func (l PricedLine) Tax() decimal.Decimal {
	return round2(l.SubtotalHt().Mul(l.TaxRate).Div(hundred))
}

type Totals struct {
	SubtotalHt   decimal.Decimal `json:"subtotal_ht"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	TotalTtc     decimal.Decimal `json:"total_ttc"`
}

func ComputeTotals(lines []PricedLine, shipping decimal.Decimal) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.SubtotalHt())
		tax = tax.Add(line.Tax())
	}
	subtotal = round2(subtotal)
	return Totals{
		SubtotalHt:   subtotal,
		TaxAmount:    tax,
		ShippingCost: shipping,
		TotalTtc:     subtotal.Add(tax).Add(shipping),
	}
}

// DiscountedUnitPrice applies a percentage discount and rounds to the cent.
func DiscountedUnitPrice(unitPriceHt, discountRate decimal.Decimal) decimal.Decimal {
	if discountRate.IsZero() {
		return unitPriceHt
	}
	factor := decimal.NewFromInt(1).Sub(discountRate.Div(hundred))
	return round2(unitPriceHt.Mul(factor))
}

// ShippingCost returns the flat delivery fee, or zero for store pickup.
func ShippingCost(method models.ShippingMethod, deliveryFee decimal.Decimal) decimal.Decimal {
	if method == models.ShippingMethodPickup {
		return decimal.Zero
	}
	return deliveryFee
}
