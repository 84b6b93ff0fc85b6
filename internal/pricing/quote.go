package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuote = errors.New("invalid quote input")

// Line is one cart line.
type Line struct {
	Ref        string
	CategoryID *string
	Quantity   int64
	UnitPrice  decimal.Decimal
}

// Amount is quantity × unit price, unrounded.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// QuoteInput is everything needed to price a cart for one channel.
type QuoteInput struct {
	Channel        Channel
	Rules          []Rule
	Lines          []Line
	IsB2B          bool
	CountryCode    string
	RegionCode     string
	Date           time.Time
	ShippingAmount decimal.Decimal
}

// TaxLine is the tax computed for the lines of one category.
type TaxLine struct {
	CategoryID  *string
	RuleID      string
	RuleName    string
	Source      Source
	Rate        decimal.Decimal
	Behavior    TaxBehavior
	Taxable     decimal.Decimal
	TaxAmount   decimal.Decimal
	EmbeddedTax decimal.Decimal
}

// Quote is a priced cart.
type Quote struct {
	Breakdown
	IncludedTax decimal.Decimal
	TaxLines    []TaxLine
}

// BuildQuote prices a cart.
//
// Lines are grouped by category in order of first appearance. Every group is
// matched with the whole cart subtotal as the order amount, so minimum order
// thresholds see the full order. Each group's tax is rounded on its own and
// the order tax is the sum of the group figures. Shipping is not taxed.
func BuildQuote(in QuoteInput, resolver Resolver) (Quote, error) {
	if err := validateQuote(in); err != nil {
		return Quote{}, err
	}

	subtotal := decimal.Zero
	for _, l := range in.Lines {
		subtotal = subtotal.Add(l.Amount())
	}

	groups := lo.GroupBy(in.Lines, func(l Line) string { return categoryKey(l.CategoryID) })
	order := lo.Uniq(lo.Map(in.Lines, func(l Line, _ int) string { return categoryKey(l.CategoryID) }))

	q := Quote{IncludedTax: decimal.Zero, TaxLines: make([]TaxLine, 0, len(order))}
	taxTotal := decimal.Zero
	for _, key := range order {
		lines := groups[key]
		taxable := decimal.Zero
		for _, l := range lines {
			taxable = taxable.Add(l.Amount())
		}

		ctx := Context{
			IsB2B:       in.IsB2B,
			OrderAmount: subtotal,
			Date:        in.Date,
			CategoryID:  lines[0].CategoryID,
			CountryCode: in.CountryCode,
			RegionCode:  in.RegionCode,
		}
		res, err := Resolve(in.Channel, in.Rules, ctx, resolver)
		if err != nil {
			return Quote{}, err
		}

		calc := Calculate(taxable, res.Rate, res.Behavior)
		tl := TaxLine{
			CategoryID:  lines[0].CategoryID,
			Source:      res.Source,
			Rate:        res.Rate,
			Behavior:    res.Behavior,
			Taxable:     calc.Subtotal,
			TaxAmount:   calc.TaxAmount,
			EmbeddedTax: calc.EmbeddedTax,
		}
		if res.Rule != nil {
			tl.RuleID = res.Rule.ID
			tl.RuleName = res.Rule.Name
		}
		q.TaxLines = append(q.TaxLines, tl)
		taxTotal = taxTotal.Add(calc.TaxAmount)
		q.IncludedTax = q.IncludedTax.Add(calc.EmbeddedTax)
	}

	q.Breakdown = Assemble(subtotal, taxTotal, in.ShippingAmount)
	return q, nil
}

func validateQuote(in QuoteInput) error {
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidQuote)
	}
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidQuote, i+1)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d unit price must not be negative", ErrInvalidQuote, i+1)
		}
	}
	if in.ShippingAmount.IsNegative() {
		return fmt.Errorf("%w: shipping amount must not be negative", ErrInvalidQuote)
	}
	if err := ValidateRate(in.Channel.DefaultTaxRate); err != nil {
		return err
	}
	return nil
}

func categoryKey(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
