package order

import "github.com/shopspring/decimal"

// Pricing holds the authoritative monetary fields recomputed from source
// data. Caller-submitted figures never end up here.
type Pricing struct {
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// ComputePricing derives subtotal, tax, shipping, and total from the given
// lines. The subtotal is always the rounded sum of line totals; shipping is
// always the zone table value. An unknown zone yields an
// InputValidationError.
//
// For DiscountPercentage the discount value is a percentage of the subtotal;
// for DiscountFixed it is a flat amount. The effective discount amount is
// what enters the total.
func ComputePricing(
	lines []Line,
	taxRate decimal.Decimal,
	zone Zone,
	discount decimal.Decimal,
	discountType DiscountType,
) (Pricing, error) {
	shipping, ok := zone.ShippingCost()
	if !ok {
		return Pricing{}, invalidf("delivery_zone", "unknown zone %q", string(zone))
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.TotalPrice)
	}
	subtotal = round2(subtotal)

	tax := round2(subtotal.Mul(taxRate))

	var discountAmount decimal.Decimal
	switch discountType {
	case DiscountPercentage:
		discountAmount = round2(subtotal.Mul(discount).Div(hundred))
	case DiscountFixed:
		discountAmount = round2(discount)
	default:
		return Pricing{}, invalidf("discount_type", "unknown discount type %q", string(discountType))
	}

	total := round2(subtotal.Add(tax).Add(shipping).Sub(discountAmount))

	return Pricing{
		Subtotal:       subtotal,
		Tax:            tax,
		ShippingCost:   shipping,
		DiscountAmount: discountAmount,
		Total:          total,
	}, nil
}

// LineTotal returns the expected total for a line: round2(quantity x unit price).
func LineTotal(line Line) decimal.Decimal {
	return round2(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
}
