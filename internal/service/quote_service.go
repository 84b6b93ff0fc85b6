package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-admin/internal/metrics"
	"storefront-admin/internal/model"
	"storefront-admin/internal/pricing"
	"storefront-admin/internal/repository"
	"storefront-admin/pkg/currency"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// QuoteLineRequest prices either a catalog variant or a free-form line.
// UnitPrice and CategoryID are ignored when VariantID is set.
type QuoteLineRequest struct {
	VariantID   string `json:"product_variant_id"`
	CategoryID  string `json:"category_id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price"`
}

// QuoteRequest fields left empty fall back to the customer, then the channel.
type QuoteRequest struct {
	CustomerID     string             `json:"customer_id"`
	IsB2B          *bool              `json:"is_b2b"`
	CountryCode    string             `json:"country_code"`
	RegionCode     string             `json:"region_code"`
	Date           string             `json:"order_date"` // YYYY-MM-DD, defaults to today
	ShippingAmount string             `json:"shipping_amount"`
	Lines          []QuoteLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type QuoteLineResponse struct {
	VariantID   *string `json:"variant_id"`
	CategoryID  *string `json:"category_id"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	LineTotal   string  `json:"line_total"`
}

type TaxLineResponse struct {
	CategoryID    *string `json:"category_id"`
	RuleID        *string `json:"rule_id"`
	RuleName      string  `json:"rule_name,omitempty"`
	Source        string  `json:"source"`
	Rate          string  `json:"rate"`
	RateText      string  `json:"rate_text"`
	TaxBehavior   string  `json:"tax_behavior"`
	TaxableAmount string  `json:"taxable_amount"`
	TaxAmount     string  `json:"tax_amount"`
	EmbeddedTax   string  `json:"embedded_tax"`
}

type QuoteResponse struct {
	ChannelID      string              `json:"channel_id"`
	ChannelCode    string              `json:"channel_code"`
	CurrencyCode   string              `json:"currency_code"`
	IsB2B          bool                `json:"is_b2b"`
	CountryCode    string              `json:"country_code"`
	RegionCode     string              `json:"region_code"`
	Date           string              `json:"date"`
	Subtotal       string              `json:"subtotal"`
	TaxAmount      string              `json:"tax_amount"`
	IncludedTax    string              `json:"included_tax"`
	ShippingAmount string              `json:"shipping_amount"`
	Total          string              `json:"total"`
	Formatted      FormattedTotals     `json:"formatted"`
	Lines          []QuoteLineResponse `json:"lines"`
	TaxLines       []TaxLineResponse   `json:"tax_lines"`
}

// FormattedTotals are display strings in the channel's currency and locale
type FormattedTotals struct {
	Subtotal       string `json:"subtotal"`
	TaxAmount      string `json:"tax_amount"`
	IncludedTax    string `json:"included_tax"`
	ShippingAmount string `json:"shipping_amount"`
	Total          string `json:"total"`
}

// MatchRequest describes a single pricing context to test rules against
type MatchRequest struct {
	CategoryID  string `json:"category_id"`
	IsB2B       bool   `json:"is_b2b"`
	CountryCode string `json:"country_code"`
	RegionCode  string `json:"region_code"`
	OrderAmount string `json:"order_amount" binding:"required"`
	Date        string `json:"date"`
}

type MatchResponse struct {
	Strategy    string            `json:"strategy"`
	Source      string            `json:"source"`
	Rate        string            `json:"rate"`
	RateText    string            `json:"rate_text"`
	TaxBehavior string            `json:"tax_behavior"`
	Winner      *TaxRuleResponse  `json:"winner"`
	Matched     []TaxRuleResponse `json:"matched"`
}

// --- Interface ---

type QuoteService interface {
	Quote(ctx context.Context, channelID string, req QuoteRequest) (QuoteResponse, error)
	MatchRules(ctx context.Context, channelID string, req MatchRequest) (MatchResponse, error)
}

// --- Implementation ---

type quoteService struct {
	quoter  *Quoter
	metrics *metrics.Metrics
}

func NewQuoteService(q *Quoter, m *metrics.Metrics) QuoteService {
	return &quoteService{quoter: q, metrics: m}
}

func (s *quoteService) Quote(ctx context.Context, channelID string, req QuoteRequest) (QuoteResponse, error) {
	priced, err := s.quoter.price(ctx, channelID, req)
	if err != nil {
		return QuoteResponse{}, err
	}
	for _, tl := range priced.quote.TaxLines {
		s.metrics.ObserveQuote(priced.channel.Code, string(tl.Source))
	}
	return priced.response(), nil
}

func (s *quoteService) MatchRules(ctx context.Context, channelID string, req MatchRequest) (MatchResponse, error) {
	channel, rules, err := s.quoter.loadChannelRules(ctx, channelID)
	if err != nil {
		return MatchResponse{}, err
	}

	amount, err := decimal.NewFromString(req.OrderAmount)
	if err != nil || amount.IsNegative() {
		return MatchResponse{}, invalidf("order_amount must be a non-negative decimal")
	}
	date, err := s.quoter.parseDate(req.Date)
	if err != nil {
		return MatchResponse{}, err
	}

	pctx := pricing.Context{
		IsB2B:       req.IsB2B,
		OrderAmount: amount,
		Date:        date,
		CountryCode: lo.Ternary(req.CountryCode != "", req.CountryCode, channel.CountryCode),
		RegionCode:  req.RegionCode,
	}
	if req.CategoryID != "" {
		pctx.CategoryID = lo.ToPtr(req.CategoryID)
	}

	resolver, err := pricing.ResolverFor(pricing.Strategy(channel.ResolutionStrategy))
	if err != nil {
		return MatchResponse{}, fmt.Errorf("channel %s: %w", channel.Code, err)
	}
	res, err := pricing.Resolve(toPricingChannel(*channel), lo.Map(rules, func(r model.TaxRule, _ int) pricing.Rule {
		return toPricingRule(r)
	}), pctx, resolver)
	if err != nil {
		return MatchResponse{}, err
	}

	byID := lo.KeyBy(rules, func(r model.TaxRule) string { return r.ID.String() })
	out := MatchResponse{
		Strategy:    lo.Ternary(channel.ResolutionStrategy != "", channel.ResolutionStrategy, string(pricing.DefaultStrategy)),
		Source:      string(res.Source),
		Rate:        res.Rate.StringFixed(4),
		RateText:    currency.FormatRate(res.Rate),
		TaxBehavior: string(res.Behavior),
		Matched:     make([]TaxRuleResponse, 0, len(res.Matched)),
	}
	for _, m := range res.Matched {
		out.Matched = append(out.Matched, toTaxRuleResponse(byID[m.ID]))
	}
	if res.Rule != nil {
		w := toTaxRuleResponse(byID[res.Rule.ID])
		out.Winner = &w
	}
	return out, nil
}

// --- Quoter ---

// Quoter turns a request into a priced quote. It is shared by quoting and
// order placement so both see the same numbers.
type Quoter struct {
	channelRepo  repository.ChannelRepository
	ruleRepo     repository.TaxRuleRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	now          func() time.Time
}

func NewQuoter(
	channelRepo repository.ChannelRepository,
	ruleRepo repository.TaxRuleRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
) *Quoter {
	return &Quoter{
		channelRepo:  channelRepo,
		ruleRepo:     ruleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		now:          time.Now,
	}
}

type pricedQuote struct {
	channel    model.Channel
	customerID *uuid.UUID
	input      pricing.QuoteInput
	quote      pricing.Quote
	items      []model.OrderItem
}

func (q *Quoter) loadChannelRules(ctx context.Context, channelID string) (*model.Channel, []model.TaxRule, error) {
	id, err := uuid.Parse(channelID)
	if err != nil {
		return nil, nil, invalidf("invalid channel id")
	}
	channel, err := q.channelRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "channel")
	}
	if !channel.IsActive {
		return nil, nil, invalidf("channel %s is inactive", channel.Code)
	}
	rules, err := q.ruleRepo.ListActiveByChannel(ctx, channel.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tax rules: %w", err)
	}
	return channel, rules, nil
}

func (q *Quoter) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return pricing.Day(q.now()), nil
	}
	d, err := pricing.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return d, nil
}

func (q *Quoter) price(ctx context.Context, channelID string, req QuoteRequest) (*pricedQuote, error) {
	channel, rules, err := q.loadChannelRules(ctx, channelID)
	if err != nil {
		return nil, err
	}

	out := &pricedQuote{channel: *channel}
	in := pricing.QuoteInput{
		Channel:        toPricingChannel(*channel),
		Rules:          lo.Map(rules, func(r model.TaxRule, _ int) pricing.Rule { return toPricingRule(r) }),
		IsB2B:          channel.IsB2B,
		CountryCode:    channel.CountryCode,
		ShippingAmount: decimal.Zero,
	}

	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, invalidf("invalid customer_id")
		}
		customer, err := q.customerRepo.FindByID(ctx, cid)
		if err != nil {
			return nil, notFoundOr(err, "customer")
		}
		out.customerID = &customer.ID
		in.IsB2B = customer.IsB2B
		if customer.CountryCode != "" {
			in.CountryCode = customer.CountryCode
		}
		in.RegionCode = customer.RegionCode
	}
	if req.IsB2B != nil {
		in.IsB2B = *req.IsB2B
	}
	if req.CountryCode != "" {
		in.CountryCode = strings.ToUpper(req.CountryCode)
	}
	if req.RegionCode != "" {
		in.RegionCode = strings.ToUpper(req.RegionCode)
	}

	if in.Date, err = q.parseDate(req.Date); err != nil {
		return nil, err
	}
	if req.ShippingAmount != "" {
		if in.ShippingAmount, err = decimal.NewFromString(req.ShippingAmount); err != nil {
			return nil, invalidf("shipping_amount is not a decimal")
		}
	}

	if in.Lines, out.items, err = q.buildLines(ctx, req.Lines); err != nil {
		return nil, err
	}

	resolver, err := pricing.ResolverFor(in.Channel.Strategy)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", channel.Code, err)
	}
	quote, err := pricing.BuildQuote(in, resolver)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidQuote) || errors.Is(err, pricing.ErrInvalidRate) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	out.input = in
	out.quote = quote
	return out, nil
}

// buildLines resolves variants in one query and returns both the pricing
// lines and the order items they become.
func (q *Quoter) buildLines(ctx context.Context, reqs []QuoteLineRequest) ([]pricing.Line, []model.OrderItem, error) {
	if len(reqs) == 0 {
		return nil, nil, invalidf("at least one line is required")
	}

	variantIDs := make([]uuid.UUID, 0, len(reqs))
	for i, l := range reqs {
		if l.VariantID == "" {
			continue
		}
		id, err := uuid.Parse(l.VariantID)
		if err != nil {
			return nil, nil, invalidf("lines[%d]: invalid variant_id", i)
		}
		variantIDs = append(variantIDs, id)
	}
	variants, err := q.productRepo.FindVariantsByIDs(ctx, lo.Uniq(variantIDs))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load variants: %w", err)
	}
	byID := lo.KeyBy(variants, func(v model.ProductVariant) string { return v.ID.String() })

	lines := make([]pricing.Line, 0, len(reqs))
	items := make([]model.OrderItem, 0, len(reqs))
	for i, l := range reqs {
		item := model.OrderItem{Description: l.Description, Quantity: l.Quantity}

		if l.VariantID != "" {
			v, ok := byID[strings.ToLower(l.VariantID)]
			if !ok {
				return nil, nil, fmt.Errorf("lines[%d]: variant %w", i, ErrNotFound)
			}
			if !v.IsActive {
				return nil, nil, invalidf("lines[%d]: variant %s is inactive", i, v.SKU)
			}
			item.ProductVariantID = lo.ToPtr(v.ID)
			item.UnitPrice = v.Price
			if v.Product != nil {
				item.CategoryID = v.Product.CategoryID
			}
			if item.Description == "" {
				item.Description = v.Name
			}
		} else {
			price, err := decimal.NewFromString(l.UnitPrice)
			if err != nil {
				return nil, nil, invalidf("lines[%d]: unit_price is required and must be a decimal", i)
			}
			item.UnitPrice = price
			if l.CategoryID != "" {
				cid, err := uuid.Parse(l.CategoryID)
				if err != nil {
					return nil, nil, invalidf("lines[%d]: invalid category_id", i)
				}
				item.CategoryID = &cid
			}
		}

		line := pricing.Line{
			Ref:       fmt.Sprintf("%d", i+1),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if item.CategoryID != nil {
			line.CategoryID = lo.ToPtr(item.CategoryID.String())
		}
		item.LineTotal = line.Amount()

		lines = append(lines, line)
		items = append(items, item)
	}
	return lines, items, nil
}

// --- Helpers ---

func (p *pricedQuote) taxLines() []model.OrderTaxLine {
	out := make([]model.OrderTaxLine, 0, len(p.quote.TaxLines))
	for _, tl := range p.quote.TaxLines {
		line := model.OrderTaxLine{
			RuleName:      tl.RuleName,
			Source:        string(tl.Source),
			Rate:          tl.Rate,
			TaxBehavior:   string(tl.Behavior),
			TaxableAmount: tl.Taxable,
			TaxAmount:     tl.TaxAmount,
			EmbeddedTax:   tl.EmbeddedTax,
		}
		if id, err := uuid.Parse(tl.RuleID); err == nil {
			line.TaxRuleID = &id
		}
		if tl.CategoryID != nil {
			if id, err := uuid.Parse(*tl.CategoryID); err == nil {
				line.CategoryID = &id
			}
		}
		out = append(out, line)
	}
	return out
}

func (p *pricedQuote) response() QuoteResponse {
	ccy, country := p.channel.CurrencyCode, p.input.CountryCode
	b := p.quote.Breakdown
	res := QuoteResponse{
		ChannelID:      p.channel.ID.String(),
		ChannelCode:    p.channel.Code,
		CurrencyCode:   ccy,
		IsB2B:          p.input.IsB2B,
		CountryCode:    country,
		RegionCode:     p.input.RegionCode,
		Date:           p.input.Date.Format(pricing.DateLayout),
		Subtotal:       b.Subtotal.StringFixed(2),
		TaxAmount:      b.TaxAmount.StringFixed(2),
		IncludedTax:    p.quote.IncludedTax.StringFixed(2),
		ShippingAmount: b.ShippingAmount.StringFixed(2),
		Total:          b.Total.StringFixed(2),
		Formatted: FormattedTotals{
			Subtotal:       currency.Format(b.Subtotal, ccy, country),
			TaxAmount:      currency.Format(b.TaxAmount, ccy, country),
			IncludedTax:    currency.Format(p.quote.IncludedTax, ccy, country),
			ShippingAmount: currency.Format(b.ShippingAmount, ccy, country),
			Total:          currency.Format(b.Total, ccy, country),
		},
		Lines:    make([]QuoteLineResponse, 0, len(p.items)),
		TaxLines: make([]TaxLineResponse, 0, len(p.quote.TaxLines)),
	}
	for _, it := range p.items {
		res.Lines = append(res.Lines, toQuoteLineResponse(it))
	}
	for _, tl := range p.taxLines() {
		res.TaxLines = append(res.TaxLines, toTaxLineResponse(tl))
	}
	return res
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	return lo.ToPtr(id.String())
}

func toQuoteLineResponse(it model.OrderItem) QuoteLineResponse {
	return QuoteLineResponse{
		VariantID:   uuidString(it.ProductVariantID),
		CategoryID:  uuidString(it.CategoryID),
		Description: it.Description,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice.StringFixed(2),
		LineTotal:   it.LineTotal.StringFixed(2),
	}
}

func toTaxLineResponse(tl model.OrderTaxLine) TaxLineResponse {
	return TaxLineResponse{
		CategoryID:    uuidString(tl.CategoryID),
		RuleID:        uuidString(tl.TaxRuleID),
		RuleName:      tl.RuleName,
		Source:        tl.Source,
		Rate:          tl.Rate.StringFixed(4),
		RateText:      currency.FormatRate(tl.Rate),
		TaxBehavior:   tl.TaxBehavior,
		TaxableAmount: tl.TaxableAmount.StringFixed(2),
		TaxAmount:     tl.TaxAmount.StringFixed(2),
		EmbeddedTax:   tl.EmbeddedTax.StringFixed(2),
	}
}
