package repository

import (
	"context"
	"time"

	"storefront-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	ChannelID  *uuid.UUID
	CustomerID *uuid.UUID
	Status     string
	From       *time.Time
	To         *time.Time
}

type OrderRepository interface {
	// Create inserts the order with its items and tax lines
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error)
	ListAll(ctx context.Context, filter OrderFilter, max int) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit("Channel", "Customer").Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("TaxLines").
		Preload("Channel").
		Preload("Customer").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Scopes(orderScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Model(&model.Order{}).Scopes(orderScope(filter)).
		Preload("Customer").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListAll(ctx context.Context, filter OrderFilter, max int) ([]model.Order, error) {
	var orders []model.Order
	if err := GetDB(ctx, r.db).Model(&model.Order{}).Scopes(orderScope(filter)).
		Preload("Customer").
		Preload("Channel").
		Order("order_date ASC, created_at ASC").
		Limit(max).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func orderScope(f OrderFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.ChannelID != nil {
			db = db.Where("channel_id = ?", *f.ChannelID)
		}
		if f.CustomerID != nil {
			db = db.Where("customer_id = ?", *f.CustomerID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.From != nil {
			db = db.Where("order_date >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("order_date <= ?", *f.To)
		}
		return db
	}
}
