package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddressType enum constants
const (
	AddressTypeBilling  = "BILLING"
	AddressTypeShipping = "SHIPPING"
)

// Customer is a buyer. B2B customers carry a company name and tax code.
type Customer struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string            `gorm:"type:varchar(255);not null" json:"name"`
	Email       string            `gorm:"type:varchar(255);index" json:"email"`
	Phone       string            `gorm:"type:varchar(50)" json:"phone"`
	IsB2B       bool              `gorm:"default:false;index" json:"is_b2b"`
	CompanyName string            `gorm:"type:varchar(255)" json:"company_name"`
	TaxCode     string            `gorm:"type:varchar(50)" json:"tax_code"`
	CountryCode string            `gorm:"type:varchar(2)" json:"country_code"`
	RegionCode  string            `gorm:"type:varchar(10)" json:"region_code"`
	IsActive    bool              `gorm:"default:true" json:"is_active"`
	Addresses   []CustomerAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"addresses"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

// CustomerAddress is a billing or shipping address
type CustomerAddress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	AddressType string    `gorm:"type:varchar(20);not null" json:"address_type"` // BILLING, SHIPPING
	FullAddress string    `gorm:"type:text;not null" json:"full_address"`
	CountryCode string    `gorm:"type:varchar(2)" json:"country_code"`
	RegionCode  string    `gorm:"type:varchar(10)" json:"region_code"`
	IsDefault   bool      `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
