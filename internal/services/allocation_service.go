package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
)

type ClaimOutcome string

const (
	ClaimAssigned   ClaimOutcome = "assigned"
	ClaimDenied     ClaimOutcome = "denied"
	ClaimWaitlisted ClaimOutcome = "waitlisted"
)

// Receipt describes one key bound to one user
type Receipt struct {
	SaleID        uint
	UserID        int64
	Username      string
	Key           string
	DurationValue int
	DurationUnit  common.DurationUnit
	Duration      string
	ProductName   string
	ProductLink   string
	AssignedAt    time.Time
	ExpiresAt     time.Time
}

// ClaimResult carries exactly one of Receipt, Denial or the waitlist fields, per Outcome
type ClaimResult struct {
	Outcome ClaimOutcome
	Receipt *Receipt
	Denial  Eligibility

	NewlyWaitlisted bool
	Position        int
}

// Assignment is a key handed out while draining the waitlist
type Assignment struct {
	UserID  int64
	Receipt *Receipt
}

// NewKey is a validated restock item
type NewKey struct {
	Token       string
	Duration    common.KeyDuration
	ProductName string
	ProductLink string
}

type RestockResult struct {
	Added       []string
	Duplicates  []string
	Assignments []Assignment
}

// AllocationService binds keys to users. Every mutation of keys, sales and
// the waitlist runs under mu, so only one claim, restock or drain is in flight.
type AllocationService struct {
	mu sync.Mutex

	db       *gorm.DB
	users    *repositories.UserRepository
	keys     *repositories.KeyRepository
	sales    *repositories.SaleRepository
	waitlist *WaitlistService
	settings *SettingsService
	metrics  *metrics.MetricsRegistry

	now func() time.Time
}

func NewAllocationService(db *gorm.DB, waitlist *WaitlistService, settings *SettingsService, m *metrics.MetricsRegistry) *AllocationService {
	return &AllocationService{
		db:       db,
		users:    repositories.NewUserRepository(db),
		keys:     repositories.NewKeyRepository(db),
		sales:    repositories.NewSaleRepository(db),
		waitlist: waitlist,
		settings: settings,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source
func (s *AllocationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AllocationService) Now() time.Time {
	return s.now()
}

// Claim evaluates the user and either binds the oldest unused key,
// reports a denial, or queues the user when inventory is empty.
func (s *AllocationService) Claim(ctx context.Context, userID int64) (*ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var result *ClaimResult

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.users.WithTx(tx).Get(ctx, userID)
		if err != nil {
			if isNotFound(err) {
				return userNotFound(userID)
			}
			return err
		}

		// Evaluated inside the transaction so a concurrent block is never missed
		elig := Evaluate(user, now, settings)
		if !elig.IsEligible() {
			result = &ClaimResult{Outcome: ClaimDenied, Denial: elig}
			return nil
		}

		receipt, err := s.assign(ctx, tx, user, now)
		if err != nil {
			return err
		}
		if receipt != nil {
			// A queued user whose cooldown lapsed may claim directly
			if _, err := s.waitlist.WithTx(tx).Remove(ctx, userID); err != nil {
				return err
			}
			result = &ClaimResult{Outcome: ClaimAssigned, Receipt: receipt}
			return nil
		}

		added, _, position, err := s.waitlist.WithTx(tx).EnqueueIfAbsent(ctx, userID, now)
		if err != nil {
			return err
		}
		result = &ClaimResult{Outcome: ClaimWaitlisted, NewlyWaitlisted: added, Position: position}
		return nil
	})
	if err != nil {
		return nil, storeErr("claim", err)
	}

	s.observeClaim(result)
	s.refreshGauges(ctx)

	logging.Info("Claim processed",
		"user_id", userID,
		"outcome", result.Outcome,
		"denial", result.Denial.Status,
		"position", result.Position,
	)
	return result, nil
}

// assign pops the oldest unused key and binds it to user. Returns nil when
// inventory is empty. Must run inside tx.
func (s *AllocationService) assign(ctx context.Context, tx *gorm.DB, user *gormModels.User, now time.Time) (*Receipt, error) {
	keys := s.keys.WithTx(tx)

	var lost []uint
	for {
		key, err := keys.OldestAvailable(ctx, lost)
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, nil
		}

		if !common.IsValidUnit(key.DurationUnit) {
			return nil, fmt.Errorf("key %d has unknown duration unit %q", key.ID, key.DurationUnit)
		}
		if key.DurationValue <= 0 || common.ToHours(key.DurationValue, common.DurationUnit(key.DurationUnit)) > common.MaxKeyHours {
			return nil, fmt.Errorf("key %d has out of range duration %d %s", key.ID, key.DurationValue, key.DurationUnit)
		}

		won, err := keys.MarkUsed(ctx, key.ID)
		if err != nil {
			return nil, err
		}
		if !won {
			// Another process took it between read and update
			lost = append(lost, key.ID)
			continue
		}

		unit := common.DurationUnit(key.DurationUnit)
		expiresAt := now.Add(time.Duration(common.ToHours(key.DurationValue, unit)) * time.Hour)

		sale := gormModels.Sale{
			UserID:     user.ID,
			Username:   user.Username,
			KeyID:      key.ID,
			KeyToken:   key.Token,
			AssignedAt: now,
			ExpiresAt:  expiresAt,
			Active:     true,
		}
		if err := s.sales.WithTx(tx).Create(ctx, &sale); err != nil {
			return nil, err
		}
		if err := s.users.WithTx(tx).RecordClaim(ctx, user.ID, now); err != nil {
			return nil, err
		}

		return &Receipt{
			SaleID:        sale.ID,
			UserID:        user.ID,
			Username:      user.Username,
			Key:           key.Token,
			DurationValue: key.DurationValue,
			DurationUnit:  unit,
			Duration:      common.FormatDuration(key.DurationValue, unit),
			ProductName:   key.ProductName,
			ProductLink:   key.ProductLink,
			AssignedAt:    now,
			ExpiresAt:     expiresAt,
		}, nil
	}
}

// Restock inserts keys, skipping tokens already present, then drains the waitlist.
func (s *AllocationService) Restock(ctx context.Context, items []NewKey) (*RestockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &RestockResult{}
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys := s.keys.WithTx(tx)
		for _, item := range items {
			row := gormModels.Key{
				Token:         item.Token,
				DurationValue: item.Duration.Value,
				DurationUnit:  string(item.Duration.Unit),
				ProductName:   item.ProductName,
				ProductLink:   item.ProductLink,
				CreatedAt:     now,
			}
			inserted, err := keys.Insert(ctx, &row)
			if err != nil {
				return err
			}
			if inserted {
				result.Added = append(result.Added, item.Token)
			} else {
				result.Duplicates = append(result.Duplicates, item.Token)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("restock", err)
	}

	if s.metrics != nil {
		s.metrics.KeysRestockedTotal.Add(float64(len(result.Added)))
	}
	logging.Info("Inventory restocked", "added", len(result.Added), "duplicates", len(result.Duplicates))

	assignments, err := s.drainLocked(ctx)
	result.Assignments = assignments
	if err != nil {
		// Keys are committed; whatever drained before the failure stands
		return result, err
	}
	return result, nil
}

// DrainWaitlist runs one FIFO pass over the waitlist
func (s *AllocationService) DrainWaitlist(ctx context.Context) ([]Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drainLocked(ctx)
}

// drainLocked visits entries oldest first. Blocked and unverified users are
// dropped, users in cooldown keep their place, eligible users get a key.
// The pass stops at the first eligible user that finds inventory empty.
func (s *AllocationService) drainLocked(ctx context.Context) ([]Assignment, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.DrainDuration.Observe(time.Since(start).Seconds())
		}
		s.refreshGauges(ctx)
	}()

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.waitlist.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var (
		assignments []Assignment
		removed     int
		skipped     int
	)

	for _, entry := range entries {
		exhausted := false

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			waitlist := s.waitlist.WithTx(tx)

			user, err := s.users.WithTx(tx).Get(ctx, entry.UserID)
			if err != nil {
				if isNotFound(err) {
					removed++
					_, err = waitlist.Remove(ctx, entry.UserID)
				}
				return err
			}

			elig := Evaluate(user, s.now(), settings)
			switch elig.Status {
			case EligibilityBlocked, EligibilityUnverified:
				removed++
				_, err := waitlist.Remove(ctx, entry.UserID)
				return err
			case EligibilityCooldown:
				skipped++
				return nil
			}

			receipt, err := s.assign(ctx, tx, user, s.now())
			if err != nil {
				return err
			}
			if receipt == nil {
				exhausted = true
				return nil
			}
			if _, err := waitlist.Remove(ctx, entry.UserID); err != nil {
				return err
			}
			assignments = append(assignments, Assignment{UserID: user.ID, Receipt: receipt})
			return nil
		})
		if err != nil {
			return assignments, storeErr("drain waitlist", err)
		}
		if exhausted {
			break
		}
	}

	if s.metrics != nil {
		s.metrics.KeysAssignedTotal.WithLabelValues("waitlist").Add(float64(len(assignments)))
	}
	logging.Info("Waitlist drained",
		"queued", len(entries),
		"assigned", len(assignments),
		"removed", removed,
		"skipped_cooldown", skipped,
	)
	return assignments, nil
}

// Exclusive runs fn in a transaction while holding the allocation lock.
// Admin mutations that touch users, keys or the waitlist go through here.
func (s *AllocationService) Exclusive(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(fn)
	s.refreshGauges(ctx)
	return storeErr(op, err)
}

func (s *AllocationService) observeClaim(result *ClaimResult) {
	if s.metrics == nil {
		return
	}
	outcome := string(result.Outcome)
	if result.Outcome == ClaimDenied {
		outcome = "denied_" + string(result.Denial.Status)
	}
	s.metrics.ClaimsTotal.WithLabelValues(outcome).Inc()
	if result.Outcome == ClaimAssigned {
		s.metrics.KeysAssignedTotal.WithLabelValues("claim").Inc()
	}
}

func (s *AllocationService) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.keys.CountAvailable(ctx); err == nil {
		s.metrics.KeysAvailable.Set(float64(n))
	}
	if n, err := s.waitlist.Count(ctx); err == nil {
		s.metrics.WaitlistSize.Set(float64(n))
	}
}
