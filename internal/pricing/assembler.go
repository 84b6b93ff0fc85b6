package pricing

import "github.com/shopspring/decimal"

// Breakdown is the order total as shown on receipts and stored on orders.
type Breakdown struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	Total          decimal.Decimal
}

// Assemble combines the order figures. A zero shipping amount means no
// shipping charge.
//
// Rounding: every figure is rounded to cents on its own, and Total is the
// unrounded sum rounded once. Summing the displayed lines can therefore
// differ from Total by a cent. Receipts print Total as computed here.
func Assemble(subtotal, taxAmount, shippingAmount decimal.Decimal) Breakdown {
	return Breakdown{
		Subtotal:       Round2(subtotal),
		TaxAmount:      Round2(taxAmount),
		ShippingAmount: Round2(shippingAmount),
		Total:          Round2(subtotal.Add(taxAmount).Add(shippingAmount)),
	}
}
