package services

import (
	"context"
	"time"

	"infinite-experiment/keydrop/internal/db/repositories"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
)

type UserService struct {
	repo *repositories.UserRepository
	now  func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		repo: repositories.NewUserRepository(db),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Touch registers the user on first contact and refreshes the username
func (s *UserService) Touch(ctx context.Context, userID int64, username string) (*gormModels.User, error) {
	user, err := s.repo.Touch(ctx, userID, username, s.now())
	if err != nil {
		return nil, storeErr("register user", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (*gormModels.User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, userNotFound(userID)
		}
		return nil, storeErr("load user", err)
	}
	return user, nil
}

// ReachableIDs lists users a broadcast may address
func (s *UserService) ReachableIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListReachableIDs(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return ids, nil
}
