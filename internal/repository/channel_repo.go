package repository

import (
	"context"

	"storefront-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelRepository interface {
	Create(ctx context.Context, channel *model.Channel) error
	Update(ctx context.Context, channel *model.Channel) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	FindByCode(ctx context.Context, code string) (*model.Channel, error)
	List(ctx context.Context, search string, page, limit int) ([]model.Channel, int64, error)
}

type channelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	return GetDB(ctx, r.db).Create(channel).Error
}

func (r *channelRepository) Update(ctx context.Context, channel *model.Channel) error {
	return GetDB(ctx, r.db).Omit("TaxRules").Save(channel).Error
}

func (r *channelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Channel{}).Error
}

func (r *channelRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	var channel model.Channel
	if err := GetDB(ctx, r.db).First(&channel, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) FindByCode(ctx context.Context, code string) (*model.Channel, error) {
	var channel model.Channel
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) List(ctx context.Context, search string, page, limit int) ([]model.Channel, int64, error) {
	var channels []model.Channel
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Channel{})
	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&channels).Error; err != nil {
		return nil, 0, err
	}

	return channels, total, nil
}
