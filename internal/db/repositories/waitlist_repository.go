package repositories

import (
	"context"
	"fmt"
	"time"

	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

func (r *WaitlistRepository) WithTx(tx *gorm.DB) *WaitlistRepository {
	return &WaitlistRepository{db: tx}
}

// InsertIfAbsent queues the user. Returns false when an entry already exists.
func (r *WaitlistRepository) InsertIfAbsent(ctx context.Context, userID int64, at time.Time) (bool, error) {
	entry := gormModels.WaitlistEntry{UserID: userID, EnqueuedAt: at}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to enqueue user %d: %w", userID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Get returns the user's entry or nil when not queued
func (r *WaitlistRepository) Get(ctx context.Context, userID int64) (*gormModels.WaitlistEntry, error) {
	var entries []gormModels.WaitlistEntry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch waitlist entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Delete removes the user's entry and reports whether one existed
func (r *WaitlistRepository) Delete(ctx context.Context, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&gormModels.WaitlistEntry{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to dequeue user %d: %w", userID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListAll returns entries in FIFO order; ties on enqueue time fall back to row id
func (r *WaitlistRepository) ListAll(ctx context.Context) ([]gormModels.WaitlistEntry, error) {
	var entries []gormModels.WaitlistEntry
	err := r.db.WithContext(ctx).Order("enqueued_at ASC, id ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return entries, nil
}

// Position is the 1-based FIFO position of the entry
func (r *WaitlistRepository) Position(ctx context.Context, entry *gormModels.WaitlistEntry) (int, error) {
	var ahead int64
	err := r.db.WithContext(ctx).
		Model(&gormModels.WaitlistEntry{}).
		Where("enqueued_at < ? OR (enqueued_at = ? AND id < ?)", entry.EnqueuedAt, entry.EnqueuedAt, entry.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute waitlist position: %w", err)
	}
	return int(ahead) + 1, nil
}

func (r *WaitlistRepository) MarkAdminNotified(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Model(&gormModels.WaitlistEntry{}).
		Where("user_id = ?", userID).
		Update("notified_admin", true).Error
	if err != nil {
		return fmt.Errorf("failed to flag waitlist entry: %w", err)
	}
	return nil
}

func (r *WaitlistRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gormModels.WaitlistEntry{}).Count(&count).Error
	return count, err
}
