package pricing

import "github.com/shopspring/decimal"

// TaxResult is the calculator output for one taxable amount.
//
// TaxAmount is the tax added on top of the subtotal and Total is what the
// customer is charged. EmbeddedTax is the share of tax contained in an
// inclusive subtotal and is zero for exclusive pricing.
type TaxResult struct {
	Subtotal    decimal.Decimal
	Rate        decimal.Decimal
	Behavior    TaxBehavior
	TaxAmount   decimal.Decimal
	EmbeddedTax decimal.Decimal
	Total       decimal.Decimal
}

// ExclusiveTax adds tax on top of subtotal. Tax and total are each rounded
// from unrounded inputs.
func ExclusiveTax(subtotal, rate decimal.Decimal) (tax, total decimal.Decimal) {
	raw := subtotal.Mul(rate)
	return Round2(raw), Round2(subtotal.Add(raw))
}

// EmbeddedTax extracts the tax already contained in an inclusive subtotal:
// subtotal * rate / (1 + rate).
func EmbeddedTax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Round2(embedded(subtotal, rate))
}

// NetOfTax is the inclusive subtotal with its embedded tax removed.
func NetOfTax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Sub(embedded(subtotal, rate)))
}

// InclusiveTax adds nothing: the subtotal already is the charge total.
func InclusiveTax(subtotal, _ decimal.Decimal) (tax, total decimal.Decimal) {
	return decimal.Zero, Round2(subtotal)
}

// Calculate applies behavior to subtotal at rate.
func Calculate(subtotal, rate decimal.Decimal, behavior TaxBehavior) TaxResult {
	res := TaxResult{
		Subtotal:    Round2(subtotal),
		Rate:        rate,
		Behavior:    behavior,
		EmbeddedTax: decimal.Zero,
	}
	if behavior == BehaviorInclusive {
		res.TaxAmount, res.Total = InclusiveTax(subtotal, rate)
		res.EmbeddedTax = EmbeddedTax(subtotal, rate)
		return res
	}
	res.TaxAmount, res.Total = ExclusiveTax(subtotal, rate)
	return res
}

func embedded(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Div(one.Add(rate))
}
