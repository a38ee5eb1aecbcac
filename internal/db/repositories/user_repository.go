package repositories

import (
	"context"
	"fmt"
	"time"

	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new GORM-based user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to the given transaction
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Get retrieves a user by id. Returns gorm.ErrRecordNotFound (wrapped) when absent.
func (r *UserRepository) Get(ctx context.Context, userID int64) (*gormModels.User, error) {
	var user gormModels.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	return &user, nil
}

// Touch creates the user on first interaction and keeps the username current.
func (r *UserRepository) Touch(ctx context.Context, userID int64, username string, now time.Time) (*gormModels.User, error) {
	var user gormModels.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error

	if err == gorm.ErrRecordNotFound {
		user = gormModels.User{
			ID:        userID,
			Username:  username,
			FirstSeen: now,
		}
		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}

	if username != "" && username != user.Username {
		if err := r.db.WithContext(ctx).Model(&user).Update("username", username).Error; err != nil {
			return nil, fmt.Errorf("failed to update username: %w", err)
		}
	}
	return &user, nil
}

func (r *UserRepository) SetVerified(ctx context.Context, userID int64, verified bool) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{"verified": verified})
}

// RecordClaim stamps the cooldown clock and bumps the claim counter
func (r *UserRepository) RecordClaim(ctx context.Context, userID int64, at time.Time) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"last_key_time":      at,
		"total_keys_claimed": gorm.Expr("total_keys_claimed + ?", 1),
	})
}

func (r *UserRepository) SetBlocked(ctx context.Context, userID int64, reason *string) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"blocked":      true,
		"block_reason": reason,
	})
}

func (r *UserRepository) ClearBlocked(ctx context.Context, userID int64) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"blocked":      false,
		"block_reason": nil,
	})
}

func (r *UserRepository) ResetCooldown(ctx context.Context, userID int64) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{"last_key_time": nil})
}

// ResetAllCooldowns clears last_key_time for every user that has one and returns the affected count
func (r *UserRepository) ResetAllCooldowns(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&gormModels.User{}).
		Where("last_key_time IS NOT NULL").
		Update("last_key_time", nil)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset cooldowns: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListReachableIDs returns every non-blocked user id, oldest first
func (r *UserRepository) ListReachableIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&gormModels.User{}).
		Where("blocked = ?", false).
		Order("first_seen ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) updateColumns(ctx context.Context, userID int64, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&gormModels.User{}).
		Where("id = ?", userID).
		Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, gorm.ErrRecordNotFound)
	}
	return nil
}
