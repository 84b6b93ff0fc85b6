package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-admin/internal/events"
	"storefront-admin/internal/model"
	"storefront-admin/internal/pricing"
	"storefront-admin/internal/repository"
	"storefront-admin/pkg/currency"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

// TaxRuleRequest is used for both create and full update. Empty optional
// fields mean "no restriction" on that axis.
type TaxRuleRequest struct {
	Name               string `json:"name" binding:"required"`
	TaxRate            string `json:"tax_rate" binding:"required"` // "0.10" = 10%
	CategoryID         string `json:"category_id"`
	CountryCode        string `json:"applicable_country_code"`
	RegionCode         string `json:"applicable_region_code"`
	ApplyToB2B         *bool  `json:"apply_to_b2b"` // default true
	ApplyToB2C         *bool  `json:"apply_to_b2c"` // default true
	MinimumOrderAmount string `json:"minimum_order_amount"`
	TaxBehavior        string `json:"tax_behavior"`
	IsActive           *bool  `json:"is_active"`
	StartDate          string `json:"start_date"` // YYYY-MM-DD
	EndDate            string `json:"end_date"`   // YYYY-MM-DD, inclusive
}

type TaxRuleResponse struct {
	ID                 string  `json:"id"`
	ChannelID          string  `json:"channel_id"`
	Name               string  `json:"name"`
	TaxRate            string  `json:"tax_rate"`
	TaxRateText        string  `json:"tax_rate_text"`
	CategoryID         *string `json:"category_id"`
	CategoryName       string  `json:"category_name,omitempty"`
	CountryCode        *string `json:"applicable_country_code"`
	RegionCode         *string `json:"applicable_region_code"`
	ApplyToB2B         bool    `json:"apply_to_b2b"`
	ApplyToB2C         bool    `json:"apply_to_b2c"`
	MinimumOrderAmount *string `json:"minimum_order_amount"`
	TaxBehavior        string  `json:"tax_behavior"`
	IsActive           bool    `json:"is_active"`
	StartDate          *string `json:"start_date"`
	EndDate            *string `json:"end_date"`
	Specificity        int     `json:"specificity"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// --- Interface ---

type TaxRuleService interface {
	GetTaxRules(ctx context.Context, channelID string) ([]TaxRuleResponse, error)
	GetTaxRule(ctx context.Context, channelID, ruleID string) (TaxRuleResponse, error)
	CreateTaxRule(ctx context.Context, channelID string, req TaxRuleRequest, userID string) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, channelID, ruleID string, req TaxRuleRequest, userID string) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, channelID, ruleID string, userID string) error
}

// --- Implementation ---

type taxRuleService struct {
	channelRepo repository.ChannelRepository
	ruleRepo    repository.TaxRuleRepository
	productRepo repository.ProductRepository
	audit       AuditService
	publisher   events.Publisher
	log         *logrus.Logger
}

func NewTaxRuleService(
	channelRepo repository.ChannelRepository,
	ruleRepo repository.TaxRuleRepository,
	productRepo repository.ProductRepository,
	audit AuditService,
	publisher events.Publisher,
	log *logrus.Logger,
) TaxRuleService {
	return &taxRuleService{
		channelRepo: channelRepo,
		ruleRepo:    ruleRepo,
		productRepo: productRepo,
		audit:       audit,
		publisher:   publisher,
		log:         log,
	}
}

func (s *taxRuleService) GetTaxRules(ctx context.Context, channelID string) ([]TaxRuleResponse, error) {
	channel, err := s.loadChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	rules, err := s.ruleRepo.ListByChannel(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, nil
}

func (s *taxRuleService) GetTaxRule(ctx context.Context, channelID, ruleID string) (TaxRuleResponse, error) {
	rule, err := s.loadRule(ctx, channelID, ruleID)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	return toTaxRuleResponse(*rule), nil
}

func (s *taxRuleService) CreateTaxRule(ctx context.Context, channelID string, req TaxRuleRequest, userID string) (TaxRuleResponse, error) {
	channel, err := s.loadChannel(ctx, channelID)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule := model.TaxRule{ChannelID: channel.ID}
	if err := s.applyRequest(ctx, &rule, req); err != nil {
		return TaxRuleResponse{}, err
	}

	if err := s.ruleRepo.Create(ctx, &rule); err != nil {
		return TaxRuleResponse{}, fmt.Errorf("failed to create tax rule: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionCreateTaxRule, rule.ID.String(), rule.Name, req)
	publishEvent(ctx, s.publisher, s.log, events.EventTaxRuleChanged, rule.ID.String(), userID, toTaxRuleResponse(rule))

	return toTaxRuleResponse(rule), nil
}

func (s *taxRuleService) UpdateTaxRule(ctx context.Context, channelID, ruleID string, req TaxRuleRequest, userID string) (TaxRuleResponse, error) {
	rule, err := s.loadRule(ctx, channelID, ruleID)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule.Category = nil
	if err := s.applyRequest(ctx, rule, req); err != nil {
		return TaxRuleResponse{}, err
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return TaxRuleResponse{}, fmt.Errorf("failed to update tax rule: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionUpdateTaxRule, rule.ID.String(), rule.Name, req)
	publishEvent(ctx, s.publisher, s.log, events.EventTaxRuleChanged, rule.ID.String(), userID, toTaxRuleResponse(*rule))

	return toTaxRuleResponse(*rule), nil
}

func (s *taxRuleService) DeleteTaxRule(ctx context.Context, channelID, ruleID string, userID string) error {
	rule, err := s.loadRule(ctx, channelID, ruleID)
	if err != nil {
		return err
	}
	if err := s.ruleRepo.Delete(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to delete tax rule: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionDeleteTaxRule, rule.ID.String(), rule.Name, nil)
	publishEvent(ctx, s.publisher, s.log, events.EventTaxRuleChanged, rule.ID.String(), userID, map[string]bool{"deleted": true})
	return nil
}

func (s *taxRuleService) loadChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	id, err := uuid.Parse(channelID)
	if err != nil {
		return nil, invalidf("invalid channel id")
	}
	channel, err := s.channelRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "channel")
	}
	return channel, nil
}

func (s *taxRuleService) loadRule(ctx context.Context, channelID, ruleID string) (*model.TaxRule, error) {
	cid, err := uuid.Parse(channelID)
	if err != nil {
		return nil, invalidf("invalid channel id")
	}
	rid, err := uuid.Parse(ruleID)
	if err != nil {
		return nil, invalidf("invalid tax rule id")
	}
	rule, err := s.ruleRepo.FindByID(ctx, cid, rid)
	if err != nil {
		return nil, notFoundOr(err, "tax rule")
	}
	return rule, nil
}

// applyRequest validates req and copies it onto rule
func (s *taxRuleService) applyRequest(ctx context.Context, rule *model.TaxRule, req TaxRuleRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return invalidf("name is required")
	}
	rate, err := parseRate(req.TaxRate)
	if err != nil {
		return err
	}
	behavior, err := parseBehavior(req.TaxBehavior)
	if err != nil {
		return err
	}

	b2b, b2c := boolOr(req.ApplyToB2B, true), boolOr(req.ApplyToB2C, true)
	if !b2b && !b2c {
		return invalidf("a rule must apply to at least one of B2B or B2C")
	}

	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return invalidf("invalid category_id")
		}
		if _, err := s.productRepo.FindCategoryByID(ctx, id); err != nil {
			return notFoundOr(err, "category")
		}
		categoryID = &id
	}

	var minimum *decimal.Decimal
	if req.MinimumOrderAmount != "" {
		m, err := decimal.NewFromString(req.MinimumOrderAmount)
		if err != nil || m.IsNegative() {
			return invalidf("minimum_order_amount must be a non-negative decimal")
		}
		minimum = &m
	}

	start, err := pricing.ParseOptionalDate(req.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start_date: %v", ErrInvalidInput, err)
	}
	end, err := pricing.ParseOptionalDate(req.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end_date: %v", ErrInvalidInput, err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return invalidf("end_date must not be before start_date")
	}

	rule.Name = name
	rule.TaxRate = rate
	rule.CategoryID = categoryID
	rule.ApplicableCountryCode = optionalUpper(req.CountryCode)
	rule.ApplicableRegionCode = optionalUpper(req.RegionCode)
	rule.ApplyToB2B = b2b
	rule.ApplyToB2C = b2c
	rule.MinimumOrderAmount = minimum
	rule.TaxBehavior = string(behavior)
	rule.IsActive = boolOr(req.IsActive, true)
	rule.StartDate = start
	rule.EndDate = end
	return nil
}

// --- Helpers ---

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func optionalUpper(s string) *string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return &s
}

func toPricingRule(r model.TaxRule) pricing.Rule {
	rule := pricing.Rule{
		ID:                 r.ID.String(),
		Name:               r.Name,
		Rate:               r.TaxRate,
		CountryCode:        r.ApplicableCountryCode,
		RegionCode:         r.ApplicableRegionCode,
		ApplyToB2B:         r.ApplyToB2B,
		ApplyToB2C:         r.ApplyToB2C,
		MinimumOrderAmount: r.MinimumOrderAmount,
		Behavior:           pricing.TaxBehavior(r.TaxBehavior),
		IsActive:           r.IsActive,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
	}
	if r.CategoryID != nil {
		id := r.CategoryID.String()
		rule.CategoryID = &id
	}
	return rule
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(pricing.DateLayout)
	return &s
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	res := TaxRuleResponse{
		ID:          r.ID.String(),
		ChannelID:   r.ChannelID.String(),
		Name:        r.Name,
		TaxRate:     r.TaxRate.StringFixed(4),
		TaxRateText: currency.FormatRate(r.TaxRate),
		CountryCode: r.ApplicableCountryCode,
		RegionCode:  r.ApplicableRegionCode,
		ApplyToB2B:  r.ApplyToB2B,
		ApplyToB2C:  r.ApplyToB2C,
		TaxBehavior: r.TaxBehavior,
		IsActive:    r.IsActive,
		StartDate:   formatOptionalDate(r.StartDate),
		EndDate:     formatOptionalDate(r.EndDate),
		Specificity: toPricingRule(r).Specificity(),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if r.CategoryID != nil {
		id := r.CategoryID.String()
		res.CategoryID = &id
	}
	if r.Category != nil {
		res.CategoryName = r.Category.Name
	}
	if r.MinimumOrderAmount != nil {
		m := r.MinimumOrderAmount.StringFixed(4)
		res.MinimumOrderAmount = &m
	}
	return res
}
