// Package pricing resolves unit prices, cart totals and staff commission.
// All arithmetic is exact decimal; rounding happens only in Round.
package pricing

import (
	"sort"

	"fintab-pos/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one cart line as seen by the pricing engine.
type Line struct {
	Product   models.Product
	VariantID string
	Quantity  int
}

// Totals is the outcome of ComputeTotals.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	AfterDiscount decimal.Decimal `json:"after_discount"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}

// EffectivePrice returns the unit price for quantity: the tier with the
// highest threshold not above quantity, or the base price when none qualifies.
func EffectivePrice(p models.Product, quantity int) decimal.Decimal {
	if len(p.Tiers) == 0 {
		return p.Price
	}
	tiers := make([]models.PriceTier, len(p.Tiers))
	copy(tiers, p.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinQuantity > tiers[j].MinQuantity
	})
	for _, t := range tiers {
		if t.MinQuantity <= quantity {
			return t.Price
		}
	}
	return p.Price
}

// UnitPrice is the price applied to a line. A selected variant always uses its own price.
func UnitPrice(l Line) decimal.Decimal {
	if l.VariantID != "" {
		if v, ok := l.Product.Variant(l.VariantID); ok {
			return v.Price
		}
	}
	return EffectivePrice(l.Product, l.Quantity)
}

func LineSubtotal(l Line) decimal.Decimal {
	return UnitPrice(l).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func CartSubtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineSubtotal(l))
	}
	return sum
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ComputeTotals applies the discount then the tax rate (a percentage).
// Negative discount or tax rate count as zero.
func ComputeTotals(subtotal, discount, taxRatePercent decimal.Decimal) Totals {
	discount = clampNonNegative(discount)
	rate := clampNonNegative(taxRatePercent)

	after := clampNonNegative(subtotal.Sub(discount))
	tax := after.Mul(rate).Div(hundred)
	return Totals{
		Subtotal:      subtotal,
		Discount:      discount,
		AfterDiscount: after,
		TaxRate:       rate,
		Tax:           tax,
		Total:         after.Add(tax),
	}
}

// ApplicableDiscount forces the discount to zero for actors without the discount capability.
func ApplicableDiscount(actor models.Actor, requested decimal.Decimal) decimal.Decimal {
	if !actor.Can(models.CapDiscount) {
		return decimal.Zero
	}
	return clampNonNegative(requested)
}

// LineCommission is the commission breakdown for one line.
type LineCommission struct {
	LineSubtotal        decimal.Decimal
	ApportionedDiscount decimal.Decimal
	Commissionable      decimal.Decimal
	Rate                decimal.Decimal
	Commission          decimal.Decimal
}

// Commission apportions the cart discount to each line by its share of the
// subtotal and applies the product commission percentage to what remains.
func Commission(lines []Line, subtotal, discount decimal.Decimal) (decimal.Decimal, []LineCommission) {
	discount = clampNonNegative(discount)
	total := decimal.Zero
	out := make([]LineCommission, 0, len(lines))
	for _, l := range lines {
		ls := LineSubtotal(l)
		apportioned := decimal.Zero
		if !subtotal.IsZero() {
			apportioned = ls.Mul(discount).Div(subtotal)
		}
		commissionable := clampNonNegative(ls.Sub(apportioned))
		rate := l.Product.CommissionPercentage
		c := commissionable.Mul(rate).Div(hundred)
		total = total.Add(c)
		out = append(out, LineCommission{
			LineSubtotal:        ls,
			ApportionedDiscount: apportioned,
			Commissionable:      commissionable,
			Rate:                rate,
			Commission:          c,
		})
	}
	return total, out
}

// Change is what the cashier hands back; zero until received covers total.
func Change(received, total decimal.Decimal) decimal.Decimal {
	if received.LessThan(total) {
		return decimal.Zero
	}
	return received.Sub(total)
}

// Round presents an amount with two decimals, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
