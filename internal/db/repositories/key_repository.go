package repositories

import (
	"context"
	"fmt"

	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KeyRepository struct {
	db *gorm.DB
}

func NewKeyRepository(db *gorm.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

func (r *KeyRepository) WithTx(tx *gorm.DB) *KeyRepository {
	return &KeyRepository{db: tx}
}

// Insert adds one key. Returns false when the token already exists.
func (r *KeyRepository) Insert(ctx context.Context, key *gormModels.Key) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
		Create(key)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert key: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// OldestAvailable returns the first unused key in insertion order, or nil when inventory is empty.
// exclude skips keys already lost to a concurrent claimant.
func (r *KeyRepository) OldestAvailable(ctx context.Context, exclude []uint) (*gormModels.Key, error) {
	var keys []gormModels.Key
	query := r.db.WithContext(ctx).Where("used = ?", false)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	err := query.
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch available key: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return &keys[0], nil
}

// MarkUsed flips used false->true. Returns false if another claimant got there first.
func (r *KeyRepository) MarkUsed(ctx context.Context, keyID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&gormModels.Key{}).
		Where("id = ? AND used = ?", keyID, false).
		Update("used", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark key %d used: %w", keyID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountAvailable returns the number of unused keys
func (r *KeyRepository) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gormModels.Key{}).Where("used = ?", false).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count keys: %w", err)
	}
	return count, nil
}

// DeleteAll removes every key, used or not. Sales keep their copy of the token.
func (r *KeyRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&gormModels.Key{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", res.Error)
	}
	return res.RowsAffected, nil
}
