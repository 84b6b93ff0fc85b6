package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransitionOrder reports whether an order may move from one status to another.
// Delivered and cancelled are terminal.
func CanTransitionOrder(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidOrderStatus reports whether s is a known status
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a priced and persisted checkout. Money columns hold the breakdown
// exactly as it was quoted.
type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber    string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	ChannelID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"channel_id"`
	Channel        *Channel        `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsB2B          bool            `gorm:"default:false" json:"is_b2b"`
	CountryCode    string          `gorm:"type:varchar(2)" json:"country_code"`
	RegionCode     string          `gorm:"type:varchar(10)" json:"region_code"`
	CurrencyCode   string          `gorm:"type:varchar(3);not null" json:"currency_code"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	IncludedTax    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"included_tax"`
	ShippingAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"shipping_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	OrderDate      time.Time       `gorm:"type:date;not null;index" json:"order_date"`
	Note           string          `gorm:"type:text" json:"note"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TaxLines       []OrderTaxLine  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"tax_lines"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderItem is a line of an order
type OrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductVariantID *uuid.UUID      `gorm:"type:uuid;index" json:"product_variant_id"`
	CategoryID       *uuid.UUID      `gorm:"type:uuid" json:"category_id"`
	Description      string          `gorm:"type:varchar(255)" json:"description"`
	Quantity         int64           `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"`
}

// OrderTaxLine records which rule taxed which category of an order
type OrderTaxLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	TaxRuleID     *uuid.UUID      `gorm:"type:uuid" json:"tax_rule_id"`
	RuleName      string          `gorm:"type:varchar(255)" json:"rule_name"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid" json:"category_id"`
	Source        string          `gorm:"type:varchar(20);not null" json:"source"` // rule, channel_default
	Rate          decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`
	TaxBehavior   string          `gorm:"type:varchar(20);not null" json:"tax_behavior"`
	TaxableAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"taxable_amount"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`
	EmbeddedTax   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"embedded_tax"`
}
