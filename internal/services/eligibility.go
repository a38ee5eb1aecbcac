package services

import (
	"time"

	gormModels "infinite-experiment/keydrop/internal/models/gorm"
)

type EligibilityStatus string

const (
	EligibilityEligible   EligibilityStatus = "eligible"
	EligibilityBlocked    EligibilityStatus = "blocked"
	EligibilityUnverified EligibilityStatus = "unverified"
	EligibilityCooldown   EligibilityStatus = "cooldown"
)

// Eligibility is the evaluator's verdict. Reason is set for Blocked,
// Remaining and UnlockAt for Cooldown.
type Eligibility struct {
	Status    EligibilityStatus
	Reason    string
	Remaining time.Duration
	UnlockAt  time.Time
}

func (e Eligibility) IsEligible() bool {
	return e.Status == EligibilityEligible
}

// RemainingHM splits the remaining cooldown into whole hours and minutes
func (e Eligibility) RemainingHM() (int, int) {
	hours := int(e.Remaining / time.Hour)
	minutes := int((e.Remaining % time.Hour) / time.Minute)
	return hours, minutes
}

// Evaluate decides whether user may claim a key at now.
// Blocked wins over Unverified, which wins over Cooldown.
func Evaluate(user *gormModels.User, now time.Time, settings Settings) Eligibility {
	if user.Blocked {
		reason := ""
		if user.BlockReason != nil {
			reason = *user.BlockReason
		}
		return Eligibility{Status: EligibilityBlocked, Reason: reason}
	}

	if !user.Verified {
		return Eligibility{Status: EligibilityUnverified}
	}

	if user.LastKeyTime != nil {
		unlockAt := user.LastKeyTime.Add(time.Duration(settings.CooldownHours) * time.Hour)
		if now.Before(unlockAt) {
			return Eligibility{
				Status:    EligibilityCooldown,
				Remaining: unlockAt.Sub(now),
				UnlockAt:  unlockAt,
			}
		}
	}

	return Eligibility{Status: EligibilityEligible}
}
