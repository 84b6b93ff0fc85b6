package service

import (
	"context"
	"fmt"
	"time"

	"storefront-admin/internal/model"
	"storefront-admin/internal/pricing"
	"storefront-admin/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	GroupByDay   = "day"
	GroupByMonth = "month"
)

type StatisticsService interface {
	// GetSalesSummary aggregates a channel's non-cancelled orders between
	// startDate and endDate inclusive, bucketed by day or month.
	GetSalesSummary(ctx context.Context, channelID, startDate, endDate, groupBy string) (model.SalesSummary, error)
}

type statisticsService struct {
	statsRepo   repository.StatisticsRepository
	channelRepo repository.ChannelRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository, channelRepo repository.ChannelRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo, channelRepo: channelRepo}
}

func (s *statisticsService) GetSalesSummary(ctx context.Context, channelID, startDate, endDate, groupBy string) (model.SalesSummary, error) {
	id, err := uuid.Parse(channelID)
	if err != nil {
		return model.SalesSummary{}, invalidf("invalid channel id")
	}
	if groupBy == "" {
		groupBy = GroupByDay
	}
	if groupBy != GroupByDay && groupBy != GroupByMonth {
		return model.SalesSummary{}, invalidf("group_by must be day or month")
	}

	start, err := pricing.ParseDate(startDate)
	if err != nil {
		return model.SalesSummary{}, fmt.Errorf("%w: start_date: %v", ErrInvalidInput, err)
	}
	end, err := pricing.ParseDate(endDate)
	if err != nil {
		return model.SalesSummary{}, fmt.Errorf("%w: end_date: %v", ErrInvalidInput, err)
	}
	if end.Before(start) {
		return model.SalesSummary{}, invalidf("end_date must not be before start_date")
	}

	channel, err := s.channelRepo.FindByID(ctx, id)
	if err != nil {
		return model.SalesSummary{}, notFoundOr(err, "channel")
	}

	rows, err := s.statsRepo.SalesByPeriod(ctx, channel.ID, groupBy, start, end)
	if err != nil {
		return model.SalesSummary{}, err
	}

	summary := model.SalesSummary{
		ChannelID:    channel.ID.String(),
		CurrencyCode: channel.CurrencyCode,
		StartDate:    start.Format(pricing.DateLayout),
		EndDate:      end.Format(pricing.DateLayout),
		GroupBy:      groupBy,
		Buckets:      make([]model.SalesBucket, 0, len(rows)),
	}

	revenue, tax, included := decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range rows {
		b := model.SalesBucket{
			Period:      bucketLabel(r.Period, groupBy),
			OrderCount:  r.OrderCount,
			Revenue:     money(r.Revenue),
			TaxAmount:   money(r.TaxAmount),
			IncludedTax: money(r.IncludedTax),
			Shipping:    money(r.Shipping),
		}
		summary.Buckets = append(summary.Buckets, b)
		summary.OrderCount += r.OrderCount
		revenue = revenue.Add(parseMoney(r.Revenue))
		tax = tax.Add(parseMoney(r.TaxAmount))
		included = included.Add(parseMoney(r.IncludedTax))
	}
	summary.Revenue = revenue.StringFixed(2)
	summary.TaxAmount = tax.StringFixed(2)
	summary.IncludedTax = included.StringFixed(2)

	return summary, nil
}

// --- Helpers ---

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func money(s string) string {
	return parseMoney(s).StringFixed(2)
}

// bucketLabel shortens a month bucket "2024-03-01" to "2024-03"
func bucketLabel(period, groupBy string) string {
	if groupBy != GroupByMonth {
		return period
	}
	if t, err := time.Parse(pricing.DateLayout, period); err == nil {
		return t.Format("2006-01")
	}
	return period
}
