package service

import (
	"context"
	"errors"
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
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateChannelRequest struct {
	Name               string `json:"name" binding:"required"`
	Code               string `json:"code" binding:"required"`
	CountryCode        string `json:"country_code" binding:"required,len=2"`
	CurrencyCode       string `json:"currency_code" binding:"required,len=3"`
	IsB2B              bool   `json:"is_b2b"`
	DefaultTaxRate     string `json:"default_tax_rate" binding:"required"` // decimal string, "0.20" = 20%
	TaxBehavior        string `json:"tax_behavior"`                        // exclusive (default), inclusive
	ResolutionStrategy string `json:"resolution_strategy"`
}

type UpdateChannelRequest struct {
	Name               *string `json:"name"`
	CountryCode        *string `json:"country_code"`
	CurrencyCode       *string `json:"currency_code"`
	IsB2B              *bool   `json:"is_b2b"`
	DefaultTaxRate     *string `json:"default_tax_rate"`
	TaxBehavior        *string `json:"tax_behavior"`
	ResolutionStrategy *string `json:"resolution_strategy"`
	IsActive           *bool   `json:"is_active"`
}

type ChannelResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Code               string `json:"code"`
	CountryCode        string `json:"country_code"`
	CurrencyCode       string `json:"currency_code"`
	IsB2B              bool   `json:"is_b2b"`
	DefaultTaxRate     string `json:"default_tax_rate"`
	DefaultTaxRateText string `json:"default_tax_rate_text"`
	TaxBehavior        string `json:"tax_behavior"`
	ResolutionStrategy string `json:"resolution_strategy"`
	IsActive           bool   `json:"is_active"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// --- Interface ---

type ChannelService interface {
	CreateChannel(ctx context.Context, req CreateChannelRequest, userID string) (ChannelResponse, error)
	UpdateChannel(ctx context.Context, id string, req UpdateChannelRequest, userID string) (ChannelResponse, error)
	DeleteChannel(ctx context.Context, id string, userID string) error
	GetChannel(ctx context.Context, id string) (ChannelResponse, error)
	GetChannels(ctx context.Context, search string, page, limit int) ([]ChannelResponse, int64, error)
}

// --- Implementation ---

type channelService struct {
	channelRepo     repository.ChannelRepository
	audit           AuditService
	publisher       events.Publisher
	log             *logrus.Logger
	defaultStrategy pricing.Strategy
}

func NewChannelService(
	channelRepo repository.ChannelRepository,
	audit AuditService,
	publisher events.Publisher,
	log *logrus.Logger,
	defaultStrategy string,
) ChannelService {
	strategy := pricing.Strategy(defaultStrategy)
	if _, err := pricing.ResolverFor(strategy); err != nil || strategy == "" {
		strategy = pricing.DefaultStrategy
	}
	return &channelService{
		channelRepo:     channelRepo,
		audit:           audit,
		publisher:       publisher,
		log:             log,
		defaultStrategy: strategy,
	}
}

func (s *channelService) CreateChannel(ctx context.Context, req CreateChannelRequest, userID string) (ChannelResponse, error) {
	code := strings.ToLower(strings.TrimSpace(req.Code))
	if code == "" {
		return ChannelResponse{}, invalidf("code is required")
	}
	if _, err := s.channelRepo.FindByCode(ctx, code); err == nil {
		return ChannelResponse{}, fmt.Errorf("%w: channel code %q already exists", ErrConflict, code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ChannelResponse{}, fmt.Errorf("failed to check channel code: %w", err)
	}

	rate, err := parseRate(req.DefaultTaxRate)
	if err != nil {
		return ChannelResponse{}, err
	}
	behavior, err := parseBehavior(req.TaxBehavior)
	if err != nil {
		return ChannelResponse{}, err
	}
	strategy := s.defaultStrategy
	if req.ResolutionStrategy != "" {
		if strategy, err = parseStrategy(req.ResolutionStrategy); err != nil {
			return ChannelResponse{}, err
		}
	}
	if !currency.IsISO(req.CurrencyCode) {
		return ChannelResponse{}, invalidf("unknown currency code %q", req.CurrencyCode)
	}

	channel := model.Channel{
		Name:               strings.TrimSpace(req.Name),
		Code:               code,
		CountryCode:        strings.ToUpper(req.CountryCode),
		CurrencyCode:       strings.ToUpper(req.CurrencyCode),
		IsB2B:              req.IsB2B,
		DefaultTaxRate:     rate,
		TaxBehavior:        string(behavior),
		ResolutionStrategy: string(strategy),
		IsActive:           true,
	}
	if err := s.channelRepo.Create(ctx, &channel); err != nil {
		return ChannelResponse{}, fmt.Errorf("failed to create channel: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionCreateChannel, channel.ID.String(), channel.Code, req)
	publishEvent(ctx, s.publisher, s.log, events.EventChannelChanged, channel.ID.String(), userID, toChannelResponse(channel))

	return toChannelResponse(channel), nil
}

func (s *channelService) UpdateChannel(ctx context.Context, id string, req UpdateChannelRequest, userID string) (ChannelResponse, error) {
	channel, err := s.findChannel(ctx, id)
	if err != nil {
		return ChannelResponse{}, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return ChannelResponse{}, invalidf("name cannot be empty")
		}
		channel.Name = strings.TrimSpace(*req.Name)
	}
	if req.CountryCode != nil {
		if len(*req.CountryCode) != 2 {
			return ChannelResponse{}, invalidf("country_code must be 2 letters")
		}
		channel.CountryCode = strings.ToUpper(*req.CountryCode)
	}
	if req.CurrencyCode != nil {
		if !currency.IsISO(*req.CurrencyCode) {
			return ChannelResponse{}, invalidf("unknown currency code %q", *req.CurrencyCode)
		}
		channel.CurrencyCode = strings.ToUpper(*req.CurrencyCode)
	}
	if req.IsB2B != nil {
		channel.IsB2B = *req.IsB2B
	}
	if req.DefaultTaxRate != nil {
		if channel.DefaultTaxRate, err = parseRate(*req.DefaultTaxRate); err != nil {
			return ChannelResponse{}, err
		}
	}
	if req.TaxBehavior != nil {
		behavior, err := parseBehavior(*req.TaxBehavior)
		if err != nil {
			return ChannelResponse{}, err
		}
		channel.TaxBehavior = string(behavior)
	}
	if req.ResolutionStrategy != nil {
		strategy, err := parseStrategy(*req.ResolutionStrategy)
		if err != nil {
			return ChannelResponse{}, err
		}
		channel.ResolutionStrategy = string(strategy)
	}
	if req.IsActive != nil {
		channel.IsActive = *req.IsActive
	}

	if err := s.channelRepo.Update(ctx, channel); err != nil {
		return ChannelResponse{}, fmt.Errorf("failed to update channel: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionUpdateChannel, channel.ID.String(), channel.Code, req)
	publishEvent(ctx, s.publisher, s.log, events.EventChannelChanged, channel.ID.String(), userID, toChannelResponse(*channel))

	return toChannelResponse(*channel), nil
}

func (s *channelService) DeleteChannel(ctx context.Context, id string, userID string) error {
	channel, err := s.findChannel(ctx, id)
	if err != nil {
		return err
	}
	if err := s.channelRepo.Delete(ctx, channel.ID); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	s.audit.Record(ctx, userID, model.ActionDeleteChannel, channel.ID.String(), channel.Code, nil)
	publishEvent(ctx, s.publisher, s.log, events.EventChannelChanged, channel.ID.String(), userID, map[string]bool{"deleted": true})
	return nil
}

func (s *channelService) GetChannel(ctx context.Context, id string) (ChannelResponse, error) {
	channel, err := s.findChannel(ctx, id)
	if err != nil {
		return ChannelResponse{}, err
	}
	return toChannelResponse(*channel), nil
}

func (s *channelService) GetChannels(ctx context.Context, search string, page, limit int) ([]ChannelResponse, int64, error) {
	channels, total, err := s.channelRepo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list channels: %w", err)
	}
	res := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		res = append(res, toChannelResponse(ch))
	}
	return res, total, nil
}

func (s *channelService) findChannel(ctx context.Context, id string) (*model.Channel, error) {
	channelID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidf("invalid channel id")
	}
	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return nil, notFoundOr(err, "channel")
	}
	return channel, nil
}

// --- Helpers ---

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, invalidf("rate %q is not a decimal", raw)
	}
	if err := pricing.ValidateRate(rate); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rate, nil
}

func parseBehavior(raw string) (pricing.TaxBehavior, error) {
	if raw == "" {
		return pricing.BehaviorExclusive, nil
	}
	b := pricing.TaxBehavior(strings.ToLower(raw))
	if !b.Valid() {
		return "", invalidf("tax_behavior must be exclusive or inclusive")
	}
	return b, nil
}

func parseStrategy(raw string) (pricing.Strategy, error) {
	s := pricing.Strategy(strings.ToLower(raw))
	if _, err := pricing.ResolverFor(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s == "" {
		s = pricing.DefaultStrategy
	}
	return s, nil
}

func toPricingChannel(ch model.Channel) pricing.Channel {
	return pricing.Channel{
		Code:           ch.Code,
		CountryCode:    ch.CountryCode,
		CurrencyCode:   ch.CurrencyCode,
		IsB2B:          ch.IsB2B,
		DefaultTaxRate: ch.DefaultTaxRate,
		TaxBehavior:    pricing.TaxBehavior(ch.TaxBehavior),
		Strategy:       pricing.Strategy(ch.ResolutionStrategy),
	}
}

func toChannelResponse(ch model.Channel) ChannelResponse {
	return ChannelResponse{
		ID:                 ch.ID.String(),
		Name:               ch.Name,
		Code:               ch.Code,
		CountryCode:        ch.CountryCode,
		CurrencyCode:       ch.CurrencyCode,
		IsB2B:              ch.IsB2B,
		DefaultTaxRate:     ch.DefaultTaxRate.StringFixed(4),
		DefaultTaxRateText: currency.FormatRate(ch.DefaultTaxRate),
		TaxBehavior:        ch.TaxBehavior,
		ResolutionStrategy: ch.ResolutionStrategy,
		IsActive:           ch.IsActive,
		CreatedAt:          ch.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          ch.UpdatedAt.Format(time.RFC3339),
	}
}
