// Package scenario loads offline pricing scenarios from YAML and runs them
// through the pricing core without a database.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"storefront-admin/internal/pricing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type Channel struct {
	Code           string `yaml:"code"`
	CountryCode    string `yaml:"country_code"`
	CurrencyCode   string `yaml:"currency_code"`
	IsB2B          bool   `yaml:"is_b2b"`
	DefaultTaxRate string `yaml:"default_tax_rate"`
	TaxBehavior    string `yaml:"tax_behavior"`
	Strategy       string `yaml:"strategy"`
}

type Rule struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	Rate               string `yaml:"rate"`
	Category           string `yaml:"category"`
	CountryCode        string `yaml:"country_code"`
	RegionCode         string `yaml:"region_code"`
	ApplyToB2B         *bool  `yaml:"apply_to_b2b"`
	ApplyToB2C         *bool  `yaml:"apply_to_b2c"`
	MinimumOrderAmount string `yaml:"minimum_order_amount"`
	TaxBehavior        string `yaml:"tax_behavior"`
	IsActive           *bool  `yaml:"is_active"`
	StartDate          string `yaml:"start_date"`
	EndDate            string `yaml:"end_date"`
}

// Context overrides the channel's country and B2B flag when set.
type Context struct {
	IsB2B          *bool  `yaml:"is_b2b"`
	CountryCode    string `yaml:"country_code"`
	RegionCode     string `yaml:"region_code"`
	Date           string `yaml:"date"`
	ShippingAmount string `yaml:"shipping_amount"`
}

type Line struct {
	Ref       string `yaml:"ref"`
	Category  string `yaml:"category"`
	Quantity  int64  `yaml:"quantity"`
	UnitPrice string `yaml:"unit_price"`
}

// Scenario is one channel, its rules and a cart to price
type Scenario struct {
	Channel Channel `yaml:"channel"`
	Rules   []Rule  `yaml:"rules"`
	Context Context `yaml:"context"`
	Lines   []Line  `yaml:"lines"`
}

// Load reads a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a scenario, rejecting unknown keys
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return &s, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", ErrInvalidScenario, field, raw)
	}
	return d, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func upperOptional(s string) *string {
	return optional(strings.ToUpper(s))
}

func behavior(raw string) (pricing.TaxBehavior, error) {
	if raw == "" {
		return "", nil
	}
	b := pricing.TaxBehavior(strings.ToLower(raw))
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown tax behavior %q", ErrInvalidScenario, raw)
	}
	return b, nil
}

func (c Channel) toPricing() (pricing.Channel, pricing.Resolver, error) {
	rate, err := parseAmount("channel.default_tax_rate", c.DefaultTaxRate)
	if err != nil {
		return pricing.Channel{}, nil, err
	}
	if err := pricing.ValidateRate(rate); err != nil {
		return pricing.Channel{}, nil, err
	}
	b, err := behavior(c.TaxBehavior)
	if err != nil {
		return pricing.Channel{}, nil, err
	}
	if b == "" {
		b = pricing.BehaviorExclusive
	}
	resolver, err := pricing.ResolverFor(pricing.Strategy(c.Strategy))
	if err != nil {
		return pricing.Channel{}, nil, err
	}
	return pricing.Channel{
		Code:           c.Code,
		CountryCode:    strings.ToUpper(c.CountryCode),
		CurrencyCode:   strings.ToUpper(c.CurrencyCode),
		IsB2B:          c.IsB2B,
		DefaultTaxRate: rate,
		TaxBehavior:    b,
		Strategy:       pricing.Strategy(c.Strategy),
	}, resolver, nil
}

func (r Rule) toPricing(i int) (pricing.Rule, error) {
	field := func(name string) string { return fmt.Sprintf("rules[%d].%s", i, name) }

	rate, err := parseAmount(field("rate"), r.Rate)
	if err != nil {
		return pricing.Rule{}, err
	}
	if err := pricing.ValidateRate(rate); err != nil {
		return pricing.Rule{}, fmt.Errorf("%s: %w", field("rate"), err)
	}
	b, err := behavior(r.TaxBehavior)
	if err != nil {
		return pricing.Rule{}, err
	}
	start, err := pricing.ParseOptionalDate(r.StartDate)
	if err != nil {
		return pricing.Rule{}, fmt.Errorf("%s: %w", field("start_date"), err)
	}
	end, err := pricing.ParseOptionalDate(r.EndDate)
	if err != nil {
		return pricing.Rule{}, fmt.Errorf("%s: %w", field("end_date"), err)
	}

	rule := pricing.Rule{
		ID:          lo.Ternary(r.ID != "", r.ID, fmt.Sprintf("rule-%d", i+1)),
		Name:        r.Name,
		Rate:        rate,
		CategoryID:  optional(r.Category),
		CountryCode: upperOptional(r.CountryCode),
		RegionCode:  upperOptional(r.RegionCode),
		ApplyToB2B:  lo.FromPtrOr(r.ApplyToB2B, true),
		ApplyToB2C:  lo.FromPtrOr(r.ApplyToB2C, true),
		Behavior:    b,
		IsActive:    lo.FromPtrOr(r.IsActive, true),
		StartDate:   start,
		EndDate:     end,
	}
	if r.MinimumOrderAmount != "" {
		minimum, err := parseAmount(field("minimum_order_amount"), r.MinimumOrderAmount)
		if err != nil {
			return pricing.Rule{}, err
		}
		rule.MinimumOrderAmount = &minimum
	}
	return rule, nil
}

// Input converts the scenario into pricing input. now is used when the
// context has no date.
func (s *Scenario) Input(now time.Time) (pricing.QuoteInput, pricing.Resolver, error) {
	ch, resolver, err := s.Channel.toPricing()
	if err != nil {
		return pricing.QuoteInput{}, nil, err
	}

	rules := make([]pricing.Rule, 0, len(s.Rules))
	for i, r := range s.Rules {
		rule, err := r.toPricing(i)
		if err != nil {
			return pricing.QuoteInput{}, nil, err
		}
		rules = append(rules, rule)
	}

	lines := make([]pricing.Line, 0, len(s.Lines))
	for i, l := range s.Lines {
		price, err := parseAmount(fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice)
		if err != nil {
			return pricing.QuoteInput{}, nil, err
		}
		lines = append(lines, pricing.Line{
			Ref:        lo.Ternary(l.Ref != "", l.Ref, fmt.Sprintf("line %d", i+1)),
			CategoryID: optional(l.Category),
			Quantity:   l.Quantity,
			UnitPrice:  price,
		})
	}

	date := pricing.Day(now)
	if s.Context.Date != "" {
		if date, err = pricing.ParseDate(s.Context.Date); err != nil {
			return pricing.QuoteInput{}, nil, fmt.Errorf("context.date: %w", err)
		}
	}
	shipping, err := parseAmount("context.shipping_amount", s.Context.ShippingAmount)
	if err != nil {
		return pricing.QuoteInput{}, nil, err
	}

	return pricing.QuoteInput{
		Channel:        ch,
		Rules:          rules,
		Lines:          lines,
		IsB2B:          lo.FromPtrOr(s.Context.IsB2B, ch.IsB2B),
		CountryCode:    lo.Ternary(s.Context.CountryCode != "", strings.ToUpper(s.Context.CountryCode), ch.CountryCode),
		RegionCode:     strings.ToUpper(s.Context.RegionCode),
		Date:           date,
		ShippingAmount: shipping,
	}, resolver, nil
}

// Quote prices the scenario's cart
func (s *Scenario) Quote(now time.Time) (pricing.Quote, pricing.Channel, error) {
	in, resolver, err := s.Input(now)
	if err != nil {
		return pricing.Quote{}, pricing.Channel{}, err
	}
	q, err := pricing.BuildQuote(in, resolver)
	return q, in.Channel, err
}

// GroupMatch is the rule resolution for the lines of one category
type GroupMatch struct {
	CategoryID *string
	Resolution pricing.Resolution
	Err        error
}

// Match resolves rules per category group, the same way Quote does, but
// keeps going when a group is ambiguous.
func (s *Scenario) Match(now time.Time) ([]GroupMatch, error) {
	in, resolver, err := s.Input(now)
	if err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", ErrInvalidScenario)
	}

	subtotal := decimal.Zero
	for _, l := range in.Lines {
		subtotal = subtotal.Add(l.Amount())
	}

	categories := lo.UniqBy(in.Lines, func(l pricing.Line) string { return lo.FromPtr(l.CategoryID) })
	out := make([]GroupMatch, 0, len(categories))
	for _, l := range categories {
		ctx := pricing.Context{
			IsB2B:       in.IsB2B,
			OrderAmount: subtotal,
			Date:        in.Date,
			CategoryID:  l.CategoryID,
			CountryCode: in.CountryCode,
			RegionCode:  in.RegionCode,
		}
		res, err := pricing.Resolve(in.Channel, in.Rules, ctx, resolver)
		out = append(out, GroupMatch{CategoryID: l.CategoryID, Resolution: res, Err: err})
	}
	return out, nil
}
