package repository

import (
	"context"

	"storefront-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerFilter struct {
	Search string
	IsB2B  *bool
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, filter CustomerFilter, page, limit int) ([]model.Customer, int64, error)
	ReplaceAddresses(ctx context.Context, customerID uuid.UUID, addresses []model.CustomerAddress) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Omit("Addresses").Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Customer{}).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Preload("Addresses").First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.IsB2B != nil {
			db = db.Where("is_b2b = ?", *filter.IsB2B)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			db = db.Where("name ILIKE ? OR company_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?", like, like, like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Customer{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Customer{}).Scopes(scope).
		Preload("Addresses").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) ReplaceAddresses(ctx context.Context, customerID uuid.UUID, addresses []model.CustomerAddress) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("customer_id = ?", customerID).Delete(&model.CustomerAddress{}).Error; err != nil {
		return err
	}
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		addresses[i].CustomerID = customerID
	}
	return db.Create(&addresses).Error
}
