package services

import (
	"context"
	"time"

	"infinite-experiment/keydrop/internal/db/repositories"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
)

// WaitlistService keeps the FIFO queue of users waiting for inventory.
// A user holds at most one entry.
type WaitlistService struct {
	repo *repositories.WaitlistRepository
}

func NewWaitlistService(db *gorm.DB) *WaitlistService {
	return &WaitlistService{repo: repositories.NewWaitlistRepository(db)}
}

// WithTx binds the service to a transaction
func (s *WaitlistService) WithTx(tx *gorm.DB) *WaitlistService {
	return &WaitlistService{repo: s.repo.WithTx(tx)}
}

// EnqueueIfAbsent queues the user unless already queued and returns the
// current entry with its 1-based position.
func (s *WaitlistService) EnqueueIfAbsent(ctx context.Context, userID int64, now time.Time) (bool, *gormModels.WaitlistEntry, int, error) {
	added, err := s.repo.InsertIfAbsent(ctx, userID, now)
	if err != nil {
		return false, nil, 0, storeErr("enqueue", err)
	}

	entry, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, nil, 0, storeErr("enqueue", err)
	}
	if entry == nil {
		return false, nil, 0, storeErr("enqueue", gorm.ErrRecordNotFound)
	}

	position, err := s.repo.Position(ctx, entry)
	if err != nil {
		return false, nil, 0, storeErr("enqueue", err)
	}
	return added, entry, position, nil
}

// Remove drops the user's entry; removing an absent entry is not an error
func (s *WaitlistService) Remove(ctx context.Context, userID int64) (bool, error) {
	removed, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return false, storeErr("dequeue", err)
	}
	return removed, nil
}

// ListAll returns every entry, oldest first
func (s *WaitlistService) ListAll(ctx context.Context) ([]gormModels.WaitlistEntry, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, storeErr("list waitlist", err)
	}
	return entries, nil
}

// Position returns 0 when the user is not queued
func (s *WaitlistService) Position(ctx context.Context, userID int64) (int, error) {
	entry, err := s.repo.Get(ctx, userID)
	if err != nil {
		return 0, storeErr("waitlist position", err)
	}
	if entry == nil {
		return 0, nil
	}
	pos, err := s.repo.Position(ctx, entry)
	if err != nil {
		return 0, storeErr("waitlist position", err)
	}
	return pos, nil
}

func (s *WaitlistService) MarkAdminNotified(ctx context.Context, userID int64) error {
	return storeErr("flag waitlist entry", s.repo.MarkAdminNotified(ctx, userID))
}

func (s *WaitlistService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, storeErr("count waitlist", err)
	}
	return n, nil
}
