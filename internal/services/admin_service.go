package services

import (
	"context"
	"strconv"
	"strings"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/models/entities"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/gorm"
)

type AddKeysResult struct {
	Added       []string           `json:"added"`
	Duplicates  []string           `json:"duplicates"`
	Invalid     []*ValidationError `json:"-"`
	Assignments []Assignment       `json:"-"`
}

type ConfirmResult struct {
	Action   ConfirmAction `json:"action"`
	Affected int64         `json:"affected"`
}

type UserHistory struct {
	User             *gormModels.User          `json:"user"`
	Sales            []entities.SaleHistoryRow `json:"sales"`
	WaitlistPosition int                       `json:"waitlist_position"`
}

// AdminService validates admin intents and forwards them to the allocation
// engine and settings. Input problems are reported before anything is written.
type AdminService struct {
	engine        *AllocationService
	users         *repositories.UserRepository
	keys          *repositories.KeyRepository
	channels      *repositories.ChannelRepository
	stats         *repositories.StatsRepo
	waitlist      *WaitlistService
	settings      *SettingsService
	confirmations *ConfirmationService
	broadcasts    *BroadcastService
}

func NewAdminService(
	db *gorm.DB,
	stats *repositories.StatsRepo,
	engine *AllocationService,
	waitlist *WaitlistService,
	settings *SettingsService,
	confirmations *ConfirmationService,
	broadcasts *BroadcastService,
) *AdminService {
	return &AdminService{
		engine:        engine,
		users:         repositories.NewUserRepository(db),
		keys:          repositories.NewKeyRepository(db),
		channels:      repositories.NewChannelRepository(db),
		stats:         stats,
		waitlist:      waitlist,
		settings:      settings,
		confirmations: confirmations,
		broadcasts:    broadcasts,
	}
}

// AddKeys parses a restock batch and restocks the valid lines. Invalid and
// duplicate lines are reported alongside what was added.
func (s *AdminService) AddKeys(ctx context.Context, text string) (*AddKeysResult, error) {
	batch := ParseKeyBatch(text)
	if len(batch.Items) == 0 && len(batch.Invalid) == 0 && len(batch.Duplicates) == 0 {
		return nil, &ValidationError{Field: "keys", Reason: "no keys supplied"}
	}

	result := &AddKeysResult{
		Duplicates: batch.Duplicates,
		Invalid:    batch.Invalid,
	}
	if len(batch.Items) == 0 {
		return result, nil
	}

	restock, err := s.engine.Restock(ctx, batch.Items)
	if restock != nil {
		result.Added = restock.Added
		result.Duplicates = append(result.Duplicates, restock.Duplicates...)
		result.Assignments = restock.Assignments
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// BlockUser blocks an existing user and drops any waitlist entry they hold
func (s *AdminService) BlockUser(ctx context.Context, userID int64, reason string) error {
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}

	err := s.engine.Exclusive(ctx, "block user", func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if _, err := users.Get(ctx, userID); err != nil {
			if isNotFound(err) {
				return userNotFound(userID)
			}
			return err
		}
		if err := users.SetBlocked(ctx, userID, reasonPtr); err != nil {
			return err
		}
		_, err := s.waitlist.WithTx(tx).Remove(ctx, userID)
		return err
	})
	if err == nil {
		logging.Info("User blocked", "user_id", userID, "reason", reason)
	}
	return err
}

// UnblockUser requires the user to be blocked
func (s *AdminService) UnblockUser(ctx context.Context, userID int64) error {
	err := s.engine.Exclusive(ctx, "unblock user", func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		user, err := users.Get(ctx, userID)
		if err != nil {
			if isNotFound(err) {
				return userNotFound(userID)
			}
			return err
		}
		if !user.Blocked {
			return &ConflictError{Entity: "user", Value: strconv.FormatInt(userID, 10), Reason: "is not blocked"}
		}
		return users.ClearBlocked(ctx, userID)
	})
	if err == nil {
		logging.Info("User unblocked", "user_id", userID)
	}
	return err
}

func (s *AdminService) ResetCooldown(ctx context.Context, userID int64) error {
	return s.engine.Exclusive(ctx, "reset cooldown", func(tx *gorm.DB) error {
		err := s.users.WithTx(tx).ResetCooldown(ctx, userID)
		if isNotFound(err) {
			return userNotFound(userID)
		}
		return err
	})
}

// Propose starts a two-phase action. Nothing changes until Confirm.
func (s *AdminService) Propose(adminID int64, action ConfirmAction) (*Proposal, error) {
	return s.confirmations.Propose(adminID, action)
}

// Confirm burns the token and runs the proposed action
func (s *AdminService) Confirm(ctx context.Context, adminID int64, token string) (*ConfirmResult, error) {
	action, err := s.confirmations.Consume(adminID, token)
	if err != nil {
		return nil, err
	}

	var affected int64
	switch action {
	case ActionResetAllCooldowns:
		affected, err = s.resetAllCooldowns(ctx)
	case ActionDeleteAllKeys:
		affected, err = s.deleteAllKeys(ctx)
	}
	if err != nil {
		return nil, err
	}

	logging.Info("Confirmed admin action", "admin_id", adminID, "action", action, "affected", affected)
	return &ConfirmResult{Action: action, Affected: affected}, nil
}

func (s *AdminService) Cancel(token string) error {
	return s.confirmations.Discard(token)
}

func (s *AdminService) resetAllCooldowns(ctx context.Context) (int64, error) {
	var affected int64
	err := s.engine.Exclusive(ctx, "reset all cooldowns", func(tx *gorm.DB) error {
		n, err := s.users.WithTx(tx).ResetAllCooldowns(ctx)
		affected = n
		return err
	})
	return affected, err
}

// deleteAllKeys removes used and unused keys; sales keep their token copy
func (s *AdminService) deleteAllKeys(ctx context.Context) (int64, error) {
	var affected int64
	err := s.engine.Exclusive(ctx, "delete all keys", func(tx *gorm.DB) error {
		n, err := s.keys.WithTx(tx).DeleteAll(ctx)
		affected = n
		return err
	})
	return affected, err
}

func (s *AdminService) SetCooldownHours(ctx context.Context, hours int) error {
	return s.settings.SetCooldownHours(ctx, hours)
}

func (s *AdminService) SetKeyMessageTemplate(ctx context.Context, template string) error {
	return s.settings.SetKeyMessage(ctx, template)
}

func (s *AdminService) Settings(ctx context.Context) (Settings, error) {
	return s.settings.Current(ctx)
}

// NormalizeChannelHandle accepts "name", "@name" or a t.me link
func NormalizeChannelHandle(input string) (string, error) {
	handle := strings.TrimSpace(input)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/", "@"} {
		handle = strings.TrimPrefix(handle, prefix)
	}
	handle = strings.TrimSuffix(handle, "/")

	if handle == "" || strings.ContainsAny(handle, " \t/@") {
		return "", &ValidationError{Field: "channel", Input: input, Reason: "expected @handle or t.me link"}
	}
	return handle, nil
}

// AddChannel registers a channel users must join. The join link defaults to t.me/<handle>.
func (s *AdminService) AddChannel(ctx context.Context, handleInput, joinLink string) (*gormModels.Channel, error) {
	handle, err := NormalizeChannelHandle(handleInput)
	if err != nil {
		return nil, err
	}

	joinLink = strings.TrimSpace(joinLink)
	if joinLink == "" {
		joinLink = "https://t.me/" + handle
	}

	channel := &gormModels.Channel{Handle: handle, JoinLink: joinLink}
	created, err := s.channels.Create(ctx, channel)
	if err != nil {
		return nil, storeErr("add channel", err)
	}
	if !created {
		return nil, &ConflictError{Entity: "channel", Value: channel.Mention()}
	}

	logging.Info("Channel added", "handle", handle)
	return channel, nil
}

func (s *AdminService) RemoveChannel(ctx context.Context, handleInput string) error {
	handle, err := NormalizeChannelHandle(handleInput)
	if err != nil {
		return err
	}

	removed, err := s.channels.DeleteByHandle(ctx, handle)
	if err != nil {
		return storeErr("remove channel", err)
	}
	if !removed {
		return &NotFoundError{Entity: "channel", ID: "@" + handle}
	}

	logging.Info("Channel removed", "handle", handle)
	return nil
}

func (s *AdminService) ListChannels(ctx context.Context) ([]gormModels.Channel, error) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, storeErr("list channels", err)
	}
	return channels, nil
}

func (s *AdminService) Broadcast(ctx context.Context, text, imageURL string) (*BroadcastReport, error) {
	return s.broadcasts.Submit(ctx, text, imageURL)
}

// Stats returns the counters plus the most recent claims
func (s *AdminService) Stats(ctx context.Context) (*entities.DistributionStats, error) {
	stats, err := s.stats.Counts(ctx)
	if err != nil {
		return nil, storeErr("stats", err)
	}
	recent, err := s.stats.RecentClaims(ctx, constants.RecentClaimsLimit)
	if err != nil {
		return nil, storeErr("stats", err)
	}
	stats.RecentClaims = recent
	return stats, nil
}

func (s *AdminService) UserHistory(ctx context.Context, userID int64) (*UserHistory, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, userNotFound(userID)
		}
		return nil, storeErr("user history", err)
	}

	sales, err := s.stats.UserHistory(ctx, userID)
	if err != nil {
		return nil, storeErr("user history", err)
	}

	position, err := s.waitlist.Position(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserHistory{User: user, Sales: sales, WaitlistPosition: position}, nil
}

func (s *AdminService) ListUsers(ctx context.Context, page entities.Page) ([]entities.UserRow, error) {
	rows, err := s.stats.UsersPage(ctx, ClampPage(page))
	return rows, storeErr("list users", err)
}

func (s *AdminService) ListWaitlist(ctx context.Context, page entities.Page) ([]entities.WaitlistRow, error) {
	rows, err := s.stats.WaitlistPage(ctx, ClampPage(page))
	return rows, storeErr("list waitlist", err)
}

func (s *AdminService) ListLeftUsers(ctx context.Context, page entities.Page) ([]entities.LeftUserRow, error) {
	rows, err := s.stats.LeftUsersPage(ctx, ClampPage(page))
	return rows, storeErr("list users who left", err)
}

// ClampPage applies the default and maximum page sizes
func ClampPage(page entities.Page) entities.Page {
	if page.Limit <= 0 {
		page.Limit = constants.DefaultPageSize
	}
	if page.Limit > constants.MaxPageSize {
		page.Limit = constants.MaxPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}

// ParseUserID reads a numeric user id from admin text
func ParseUserID(input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: "user id", Input: input, Reason: "expected a positive number"}
	}
	return id, nil
}

// ParseBlockInput reads "<user id> [reason]"
func ParseBlockInput(input string) (int64, string, error) {
	idPart, reason, _ := strings.Cut(strings.TrimSpace(input), " ")
	id, err := ParseUserID(idPart)
	if err != nil {
		return 0, "", &ValidationError{Field: "block", Input: input, Reason: "expected <user id> [reason]"}
	}
	return id, strings.TrimSpace(reason), nil
}
