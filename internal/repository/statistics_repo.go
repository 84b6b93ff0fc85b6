package repository

import (
	"context"
	"fmt"
	"time"

	"storefront-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SalesRow is one aggregated period; money columns come back as text to keep decimals exact
type SalesRow struct {
	Period      string `gorm:"column:period"`
	OrderCount  int64  `gorm:"column:order_count"`
	Revenue     string `gorm:"column:revenue"`
	TaxAmount   string `gorm:"column:tax_amount"`
	IncludedTax string `gorm:"column:included_tax"`
	Shipping    string `gorm:"column:shipping"`
}

type StatisticsRepository interface {
	// SalesByPeriod groups non-cancelled orders by day or month of order_date
	SalesByPeriod(ctx context.Context, channelID uuid.UUID, groupBy string, start, end time.Time) ([]SalesRow, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) SalesByPeriod(ctx context.Context, channelID uuid.UUID, groupBy string, start, end time.Time) ([]SalesRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC(?, o.order_date), 'YYYY-MM-DD') AS period,
			COUNT(*) AS order_count,
			CAST(COALESCE(SUM(o.total_amount), 0) AS TEXT) AS revenue,
			CAST(COALESCE(SUM(o.tax_amount), 0) AS TEXT) AS tax_amount,
			CAST(COALESCE(SUM(o.included_tax), 0) AS TEXT) AS included_tax,
			CAST(COALESCE(SUM(o.shipping_amount), 0) AS TEXT) AS shipping
		FROM orders o
		WHERE o.channel_id = ?
		  AND o.status <> ?
		  AND o.order_date >= ?
		  AND o.order_date <= ?
		GROUP BY period
		ORDER BY period
	`

	var rows []SalesRow
	if err := GetDB(ctx, r.db).Raw(query,
		groupBy, channelID, model.OrderStatusCancelled, start, end,
	).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query sales statistics: %w", err)
	}
	return rows, nil
}
