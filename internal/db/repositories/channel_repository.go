package repositories

import (
	"context"
	"fmt"

	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts a channel. Returns false when the handle already exists.
func (r *ChannelRepository) Create(ctx context.Context, channel *gormModels.Channel) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "handle"}}, DoNothing: true}).
		Create(channel)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create channel: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteByHandle removes a channel and reports whether it existed
func (r *ChannelRepository) DeleteByHandle(ctx context.Context, handle string) (bool, error) {
	res := r.db.WithContext(ctx).Where("handle = ?", handle).Delete(&gormModels.Channel{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete channel: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ChannelRepository) List(ctx context.Context) ([]gormModels.Channel, error) {
	var channels []gormModels.Channel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}
