package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxBehavior enum constants
const (
	TaxBehaviorExclusive = "exclusive"
	TaxBehaviorInclusive = "inclusive"
)

// Rule resolution strategies stored on a channel
const (
	ResolutionMostSpecific    = "most_specific"
	ResolutionHighestRate     = "highest_rate"
	ResolutionRejectAmbiguous = "reject_ambiguous"
)

// Channel is a sales context (storefront, marketplace) with its own currency and tax defaults
type Channel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name               string          `gorm:"type:varchar(255);not null" json:"name"`
	Code               string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	CountryCode        string          `gorm:"type:varchar(2);not null" json:"country_code"`
	CurrencyCode       string          `gorm:"type:varchar(3);not null" json:"currency_code"`
	IsB2B              bool            `gorm:"default:false" json:"is_b2b"`
	DefaultTaxRate     decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"default_tax_rate"` // 0.20 = 20%
	TaxBehavior        string          `gorm:"type:varchar(20);not null;default:'exclusive'" json:"tax_behavior"`
	ResolutionStrategy string          `gorm:"type:varchar(30);not null;default:'most_specific'" json:"resolution_strategy"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	TaxRules           []TaxRule       `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"tax_rules,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TaxRule is a conditionally applicable override of a channel's default tax rate.
// Nil filters mean no restriction on that axis.
type TaxRule struct {
	ID                    uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ChannelID             uuid.UUID        `gorm:"type:uuid;not null;index" json:"channel_id"`
	Name                  string           `gorm:"type:varchar(255);not null" json:"name"`
	TaxRate               decimal.Decimal  `gorm:"type:decimal(10,4);not null" json:"tax_rate"`
	CategoryID            *uuid.UUID       `gorm:"type:uuid;index" json:"category_id"`
	Category              *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	ApplicableCountryCode *string          `gorm:"type:varchar(2)" json:"applicable_country_code"`
	ApplicableRegionCode  *string          `gorm:"type:varchar(10)" json:"applicable_region_code"`
	ApplyToB2B            bool             `gorm:"default:true" json:"apply_to_b2b"`
	ApplyToB2C            bool             `gorm:"default:true" json:"apply_to_b2c"`
	MinimumOrderAmount    *decimal.Decimal `gorm:"type:decimal(18,4)" json:"minimum_order_amount"`
	TaxBehavior           string           `gorm:"type:varchar(20);not null;default:'exclusive'" json:"tax_behavior"`
	IsActive              bool             `gorm:"default:true;index" json:"is_active"`
	StartDate             *time.Time       `gorm:"type:date" json:"start_date"`
	EndDate               *time.Time       `gorm:"type:date" json:"end_date"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}
