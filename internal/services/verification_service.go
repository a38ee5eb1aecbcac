package services

import (
	"context"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// MembershipChecker answers whether a user belongs to a channel.
// Errors come with MembershipUnknown.
type MembershipChecker interface {
	CheckMembership(ctx context.Context, channel string, userID int64) (constants.MembershipStatus, error)
}

const membershipCheckConcurrency = 4

type VerificationResult struct {
	Verified   bool
	Changed    bool
	NoChannels bool
	Missing    []gormModels.Channel
	Unknown    []gormModels.Channel
}

// Conclusive is false when only unknown answers blocked a decision
func (r *VerificationResult) Conclusive() bool {
	return r.Verified || len(r.Missing) > 0
}

type VerificationService struct {
	channels *repositories.ChannelRepository
	users    *repositories.UserRepository
	checker  MembershipChecker
}

func NewVerificationService(db *gorm.DB, checker MembershipChecker) *VerificationService {
	return &VerificationService{
		channels: repositories.NewChannelRepository(db),
		users:    repositories.NewUserRepository(db),
		checker:  checker,
	}
}

// Verify checks every configured channel. All member sets verified; any
// definite non-member clears it; unknown answers alone leave the flag as is.
func (s *VerificationService) Verify(ctx context.Context, user *gormModels.User) (*VerificationResult, error) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, storeErr("list channels", err)
	}

	result := &VerificationResult{}
	if len(channels) == 0 {
		result.NoChannels = true
		result.Verified = true
	} else {
		statuses := CheckAll(ctx, s.checker, channels, user.ID)
		for i, ch := range channels {
			switch statuses[i] {
			case constants.MembershipNotMember:
				result.Missing = append(result.Missing, ch)
			case constants.MembershipUnknown:
				result.Unknown = append(result.Unknown, ch)
			}
		}
		result.Verified = len(result.Missing) == 0 && len(result.Unknown) == 0
	}

	if !result.Conclusive() || result.Verified == user.Verified {
		return result, nil
	}

	if err := s.users.SetVerified(ctx, user.ID, result.Verified); err != nil {
		return nil, storeErr("update verification", err)
	}
	result.Changed = true
	user.Verified = result.Verified

	logging.Info("Verification changed", "user_id", user.ID, "verified", result.Verified)
	return result, nil
}

// CheckAll queries every channel concurrently and returns statuses in channel order
func CheckAll(ctx context.Context, checker MembershipChecker, channels []gormModels.Channel, userID int64) []constants.MembershipStatus {
	statuses := make([]constants.MembershipStatus, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(membershipCheckConcurrency)

	for i, ch := range channels {
		g.Go(func() error {
			status, err := checker.CheckMembership(gctx, ch.Handle, userID)
			if err != nil {
				logging.Warn("Membership check failed", "channel", ch.Handle, "user_id", userID, "error", err)
				status = constants.MembershipUnknown
			}
			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}
