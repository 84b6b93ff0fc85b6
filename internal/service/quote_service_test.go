package service

import (
	"context"
	"testing"
	"time"

	"storefront-admin/internal/model"
	"storefront-admin/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type quoteFixture struct {
	channel   model.Channel
	clothing  uuid.UUID
	teeID     uuid.UUID
	customer  model.Customer
	channels  *fakeChannelRepo
	rules     *fakeRuleRepo
	products  *fakeProductRepo
	customers *fakeCustomerRepo
	quoter    *Quoter
}

func strPtr(s string) *string { return &s }

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	f := &quoteFixture{
		channel: model.Channel{
			ID:                 uuid.New(),
			Name:               "US Web",
			Code:               "us-web",
			CountryCode:        "US",
			CurrencyCode:       "USD",
			DefaultTaxRate:     decimal.RequireFromString("0.10"),
			TaxBehavior:        model.TaxBehaviorExclusive,
			ResolutionStrategy: model.ResolutionMostSpecific,
			IsActive:           true,
		},
		products:  newFakeProductRepo(),
		rules:     &fakeRuleRepo{},
		customers: newFakeCustomerRepo(),
	}
	f.channels = newFakeChannelRepo(f.channel)

	ctx := context.Background()
	cat := model.Category{Name: "Clothing", Slug: "clothing"}
	require.NoError(t, f.products.CreateCategory(ctx, &cat))
	f.clothing = cat.ID

	tee := model.Product{
		Name:       "Basic Tee",
		Slug:       "basic-tee",
		CategoryID: &f.clothing,
		BasePrice:  decimal.RequireFromString("20"),
		Variants: []model.ProductVariant{{
			SKU:      "basic-tee-m",
			Name:     "Basic Tee / M",
			Options:  datatypes.JSON(`{"Size":"M"}`),
			Price:    decimal.RequireFromString("20.00"),
			IsActive: true,
		}},
	}
	require.NoError(t, f.products.Create(ctx, &tee))
	f.teeID = tee.Variants[0].ID

	require.NoError(t, f.rules.Create(ctx, &model.TaxRule{
		ChannelID:             f.channel.ID,
		Name:                  "CA clothing",
		TaxRate:               decimal.RequireFromString("0.08"),
		CategoryID:            &f.clothing,
		ApplicableCountryCode: strPtr("US"),
		ApplicableRegionCode:  strPtr("CA"),
		ApplyToB2B:            true,
		ApplyToB2C:            true,
		TaxBehavior:           model.TaxBehaviorExclusive,
		IsActive:              true,
	}))

	f.customer = model.Customer{ID: uuid.New(), Name: "Acme", IsB2B: true, TaxCode: "X1", CountryCode: "US", RegionCode: "CA"}
	f.customers = newFakeCustomerRepo(f.customer)

	f.quoter = NewQuoter(f.channels, f.rules, f.products, f.customers)
	f.quoter.now = func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) }
	return f
}

func (f *quoteFixture) cart(region string) QuoteRequest {
	return QuoteRequest{
		RegionCode:     region,
		ShippingAmount: "5.00",
		Lines: []QuoteLineRequest{
			{VariantID: f.teeID.String(), Quantity: 2},
			{Description: "Gift wrap", Quantity: 1, UnitPrice: "15.50"},
		},
	}
}

func TestQuoteGroupsByCategory(t *testing.T) {
	f := newQuoteFixture(t)
	svc := NewQuoteService(f.quoter, nil)

	res, err := svc.Quote(context.Background(), f.channel.ID.String(), f.cart("CA"))
	require.NoError(t, err)

	assert.Equal(t, "55.50", res.Subtotal)
	assert.Equal(t, "4.75", res.TaxAmount) // 40.00*0.08 + 15.50*0.10
	assert.Equal(t, "5.00", res.ShippingAmount)
	assert.Equal(t, "65.25", res.Total)
	assert.Equal(t, "$65.25", res.Formatted.Total)
	assert.Equal(t, "2024-06-01", res.Date)

	require.Len(t, res.TaxLines, 2)
	assert.Equal(t, string(pricing.SourceRule), res.TaxLines[0].Source)
	assert.Equal(t, "CA clothing", res.TaxLines[0].RuleName)
	assert.Equal(t, "3.20", res.TaxLines[0].TaxAmount)
	assert.Equal(t, string(pricing.SourceChannelDefault), res.TaxLines[1].Source)
	assert.Equal(t, "1.55", res.TaxLines[1].TaxAmount)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, "Basic Tee / M", res.Lines[0].Description)
	assert.Equal(t, "40.00", res.Lines[0].LineTotal)
}

func TestQuoteOutsideRegionUsesChannelDefault(t *testing.T) {
	f := newQuoteFixture(t)
	svc := NewQuoteService(f.quoter, nil)

	res, err := svc.Quote(context.Background(), f.channel.ID.String(), f.cart("NY"))
	require.NoError(t, err)
	assert.Equal(t, "5.55", res.TaxAmount)
	for _, tl := range res.TaxLines {
		assert.Equal(t, string(pricing.SourceChannelDefault), tl.Source)
	}
}

func TestQuoteTakesContextFromCustomer(t *testing.T) {
	f := newQuoteFixture(t)
	svc := NewQuoteService(f.quoter, nil)

	req := f.cart("")
	req.CustomerID = f.customer.ID.String()
	res, err := svc.Quote(context.Background(), f.channel.ID.String(), req)
	require.NoError(t, err)
	assert.True(t, res.IsB2B)
	assert.Equal(t, "CA", res.RegionCode)
	assert.Equal(t, "4.75", res.TaxAmount)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	f := newQuoteFixture(t)
	svc := NewQuoteService(f.quoter, nil)
	ctx := context.Background()

	_, err := svc.Quote(ctx, "not-a-uuid", f.cart("CA"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Quote(ctx, uuid.NewString(), f.cart("CA"))
	assert.ErrorIs(t, err, ErrNotFound)

	zeroQty := f.cart("CA")
	zeroQty.Lines[1].Quantity = 0
	_, err = svc.Quote(ctx, f.channel.ID.String(), zeroQty)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badDate := f.cart("CA")
	badDate.Date = "2024-13-01"
	_, err = svc.Quote(ctx, f.channel.ID.String(), badDate)
	assert.ErrorIs(t, err, ErrInvalidInput)

	unknownVariant := f.cart("CA")
	unknownVariant.Lines[0].VariantID = uuid.NewString()
	_, err = svc.Quote(ctx, f.channel.ID.String(), unknownVariant)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuoteAmbiguousRulesUnderRejectStrategy(t *testing.T) {
	f := newQuoteFixture(t)
	ch := f.channels.byID[f.channel.ID]
	ch.ResolutionStrategy = model.ResolutionRejectAmbiguous
	require.NoError(t, f.rules.Create(context.Background(), &model.TaxRule{
		ChannelID:   f.channel.ID,
		Name:        "All clothing",
		TaxRate:     decimal.RequireFromString("0.06"),
		CategoryID:  &f.clothing,
		ApplyToB2B:  true,
		ApplyToB2C:  true,
		TaxBehavior: model.TaxBehaviorExclusive,
		IsActive:    true,
	}))

	_, err := NewQuoteService(f.quoter, nil).Quote(context.Background(), f.channel.ID.String(), f.cart("CA"))
	assert.ErrorIs(t, err, pricing.ErrAmbiguousRules)
}

func TestMatchRulesReportsWinner(t *testing.T) {
	f := newQuoteFixture(t)
	svc := NewQuoteService(f.quoter, nil)

	res, err := svc.MatchRules(context.Background(), f.channel.ID.String(), MatchRequest{
		CategoryID:  f.clothing.String(),
		RegionCode:  "ca",
		OrderAmount: "10",
		Date:        "2024-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, string(pricing.SourceRule), res.Source)
	assert.Equal(t, "8%", res.RateText)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "CA clothing", res.Winner.Name)
	assert.Len(t, res.Matched, 1)

	res, err = svc.MatchRules(context.Background(), f.channel.ID.String(), MatchRequest{OrderAmount: "10"})
	require.NoError(t, err)
	assert.Equal(t, string(pricing.SourceChannelDefault), res.Source)
	assert.Nil(t, res.Winner)
	assert.Empty(t, res.Matched)
}

func TestQuoteInactiveChannel(t *testing.T) {
	f := newQuoteFixture(t)
	f.channels.byID[f.channel.ID].IsActive = false

	_, err := NewQuoteService(f.quoter, nil).Quote(context.Background(), f.channel.ID.String(), f.cart("CA"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
