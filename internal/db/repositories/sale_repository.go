package repositories

import (
	"context"
	"fmt"
	"time"

	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
)

type SaleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) WithTx(tx *gorm.DB) *SaleRepository {
	return &SaleRepository{db: tx}
}

func (r *SaleRepository) Create(ctx context.Context, sale *gormModels.Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	return nil
}

// ActiveHolderIDs returns distinct users holding an active sale not yet flagged as left
func (r *SaleRepository) ActiveHolderIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&gormModels.Sale{}).
		Where("active = ? AND left_channel = ?", true, false).
		Distinct().
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active holders: %w", err)
	}
	return ids, nil
}

// MarkLeftChannel flags every active sale of the user
func (r *SaleRepository) MarkLeftChannel(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&gormModels.Sale{}).
		Where("user_id = ? AND active = ? AND left_channel = ?", userID, true, false).
		Update("left_channel", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to flag sales of %d: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeactivateExpired clears the active flag on sales whose key has expired
func (r *SaleRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&gormModels.Sale{}).
		Where("active = ? AND expires_at <= ?", true, now).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired sales: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *SaleRepository) CountByKey(ctx context.Context, keyID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gormModels.Sale{}).Where("key_id = ?", keyID).Count(&count).Error
	return count, err
}
