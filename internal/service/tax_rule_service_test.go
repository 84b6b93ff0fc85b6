package service

import (
	"context"
	"testing"

	"storefront-admin/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTaxRuleService(f *quoteFixture, pub *recordingPublisher) TaxRuleService {
	audit := NewAuditService(&fakeAuditRepo{}, testLogger())
	return NewTaxRuleService(f.channels, f.rules, f.products, audit, pub, testLogger())
}

func TestCreateTaxRule(t *testing.T) {
	f := newQuoteFixture(t)
	pub := &recordingPublisher{}
	svc := newTestTaxRuleService(f, pub)

	res, err := svc.CreateTaxRule(context.Background(), f.channel.ID.String(), TaxRuleRequest{
		Name:               " Reduced books ",
		TaxRate:            "0.05",
		CategoryID:         f.clothing.String(),
		CountryCode:        "us",
		MinimumOrderAmount: "100",
		StartDate:          "2024-01-01",
		EndDate:            "2024-12-31",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Reduced books", res.Name)
	assert.Equal(t, "5%", res.TaxRateText)
	require.NotNil(t, res.CountryCode)
	assert.Equal(t, "US", *res.CountryCode)
	assert.Nil(t, res.RegionCode)
	assert.True(t, res.ApplyToB2B)
	assert.True(t, res.ApplyToB2C)
	assert.True(t, res.IsActive)
	require.NotNil(t, res.StartDate)
	assert.Equal(t, "2024-01-01", *res.StartDate)
	assert.Equal(t, 4, res.Specificity)
	assert.Equal(t, []events.EventType{events.EventTaxRuleChanged}, pub.types())

	rules, err := svc.GetTaxRules(context.Background(), f.channel.ID.String())
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCreateTaxRuleValidation(t *testing.T) {
	no := false
	tests := []struct {
		name string
		req  TaxRuleRequest
		want error
	}{
		{"missing name", TaxRuleRequest{TaxRate: "0.1"}, ErrInvalidInput},
		{"rate out of range", TaxRuleRequest{Name: "x", TaxRate: "1.01"}, ErrInvalidInput},
		{"neither b2b nor b2c", TaxRuleRequest{Name: "x", TaxRate: "0.1", ApplyToB2B: &no, ApplyToB2C: &no}, ErrInvalidInput},
		{"negative minimum", TaxRuleRequest{Name: "x", TaxRate: "0.1", MinimumOrderAmount: "-5"}, ErrInvalidInput},
		{"end before start", TaxRuleRequest{Name: "x", TaxRate: "0.1", StartDate: "2024-02-01", EndDate: "2024-01-31"}, ErrInvalidInput},
		{"bad date", TaxRuleRequest{Name: "x", TaxRate: "0.1", StartDate: "01/02/2024"}, ErrInvalidInput},
		{"bad behavior", TaxRuleRequest{Name: "x", TaxRate: "0.1", TaxBehavior: "both"}, ErrInvalidInput},
		{"unknown category", TaxRuleRequest{Name: "x", TaxRate: "0.1", CategoryID: uuid.NewString()}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuoteFixture(t)
			svc := newTestTaxRuleService(f, &recordingPublisher{})
			_, err := svc.CreateTaxRule(context.Background(), f.channel.ID.String(), tt.req, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTaxRuleScopedToChannel(t *testing.T) {
	f := newQuoteFixture(t)
	svc := newTestTaxRuleService(f, &recordingPublisher{})
	ruleID := f.rules.rules[0].ID.String()

	_, err := svc.GetTaxRule(context.Background(), uuid.NewString(), ruleID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteTaxRule(context.Background(), f.channel.ID.String(), ruleID, ""))
	_, err = svc.GetTaxRule(context.Background(), f.channel.ID.String(), ruleID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTaxRuleReplacesFilters(t *testing.T) {
	f := newQuoteFixture(t)
	svc := newTestTaxRuleService(f, &recordingPublisher{})
	ruleID := f.rules.rules[0].ID.String()

	res, err := svc.UpdateTaxRule(context.Background(), f.channel.ID.String(), ruleID, TaxRuleRequest{
		Name:    "Nationwide",
		TaxRate: "0.07",
	}, "")
	require.NoError(t, err)
	assert.Nil(t, res.CategoryID)
	assert.Nil(t, res.RegionCode)
	assert.Equal(t, 0, res.Specificity)
}
