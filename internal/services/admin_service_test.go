package services

import (
	"errors"
	"testing"
	"time"

	"infinite-experiment/keydrop/internal/models/entities"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastKeyTimes(t *testing.T, f *fixture) map[int64]*time.Time {
	t.Helper()
	var users []gormModels.User
	require.NoError(t, f.db.Order("id").Find(&users).Error)
	out := map[int64]*time.Time{}
	for _, u := range users {
		out[u.ID] = u.LastKeyTime
	}
	return out
}

func TestResetAllCooldowns_RequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, timePtr(f.now.Add(-time.Hour)))
	f.addUser(11, true, timePtr(f.now.Add(-2*time.Hour)))
	before := lastKeyTimes(t, f)

	proposal, err := f.admin.Propose(testAdminID, ActionResetAllCooldowns)
	require.NoError(t, err)
	require.NotEmpty(t, proposal.Token)

	// Proposed but not confirmed
	assert.Equal(t, before, lastKeyTimes(t, f))

	// Garbage and foreign tokens do nothing
	_, err = f.admin.Confirm(f.ctx, testAdminID, "not-a-token")
	assert.Error(t, err)
	_, err = f.admin.Confirm(f.ctx, testAdminID+1, proposal.Token)
	assert.Error(t, err)
	assert.Equal(t, before, lastKeyTimes(t, f))

	result, err := f.admin.Confirm(f.ctx, testAdminID, proposal.Token)
	require.NoError(t, err)
	assert.Equal(t, ActionResetAllCooldowns, result.Action)
	assert.Equal(t, int64(2), result.Affected)

	for id, ts := range lastKeyTimes(t, f) {
		assert.Nil(t, ts, "user %d still has a cooldown", id)
	}

	// Tokens are single-use
	_, err = f.admin.Confirm(f.ctx, testAdminID, proposal.Token)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestResetAllCooldowns_CancelDiscardsProposal(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, timePtr(f.now))
	before := lastKeyTimes(t, f)

	proposal, err := f.admin.Propose(testAdminID, ActionResetAllCooldowns)
	require.NoError(t, err)
	require.NoError(t, f.admin.Cancel(proposal.Token))

	_, err = f.admin.Confirm(f.ctx, testAdminID, proposal.Token)
	assert.Error(t, err)
	assert.Equal(t, before, lastKeyTimes(t, f))
}

func TestDeleteAllKeys_KeepsSales(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, nil)
	f.restock("K1", "K2", "K3")
	require.Equal(t, ClaimAssigned, f.claim(10).Outcome)

	proposal, err := f.admin.Propose(testAdminID, ActionDeleteAllKeys)
	require.NoError(t, err)

	var keys int64
	require.NoError(t, f.db.Model(&gormModels.Key{}).Count(&keys).Error)
	assert.Equal(t, int64(3), keys)

	result, err := f.admin.Confirm(f.ctx, testAdminID, proposal.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Affected)

	require.NoError(t, f.db.Model(&gormModels.Key{}).Count(&keys).Error)
	assert.Zero(t, keys)

	var sales int64
	require.NoError(t, f.db.Model(&gormModels.Sale{}).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)
}

func TestPropose_UnknownAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.admin.Propose(testAdminID, ConfirmAction("drop_database"))
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestBlockUser_RemovesWaitlistEntry(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, nil)
	require.Equal(t, ClaimWaitlisted, f.claim(10).Outcome)

	require.NoError(t, f.admin.BlockUser(f.ctx, 10, "  chargeback  "))

	user := f.user(10)
	assert.True(t, user.Blocked)
	require.NotNil(t, user.BlockReason)
	assert.Equal(t, "chargeback", *user.BlockReason)
	assert.Empty(t, f.queuedIDs())

	// A restock must not reach them
	res := f.restock("K1")
	assert.Empty(t, res.Assignments)
}

func TestBlockUser_UnknownUser(t *testing.T) {
	f := newFixture(t)
	err := f.admin.BlockUser(f.ctx, 404, "")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "404", nf.ID)
}

func TestUnblockUser(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, nil)

	err := f.admin.UnblockUser(f.ctx, 10)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)

	require.NoError(t, f.admin.BlockUser(f.ctx, 10, "x"))
	require.NoError(t, f.admin.UnblockUser(f.ctx, 10))

	user := f.user(10)
	assert.False(t, user.Blocked)
	assert.Nil(t, user.BlockReason)

	err = f.admin.UnblockUser(f.ctx, 404)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestResetCooldown(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, timePtr(f.now))
	f.addUser(11, true, timePtr(f.now))

	require.NoError(t, f.admin.ResetCooldown(f.ctx, 10))
	assert.Nil(t, f.user(10).LastKeyTime)
	assert.NotNil(t, f.user(11).LastKeyTime)

	err := f.admin.ResetCooldown(f.ctx, 404)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestSetCooldownHours(t *testing.T) {
	f := newFixture(t)

	for _, bad := range []int{0, -1, 721} {
		err := f.admin.SetCooldownHours(f.ctx, bad)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "hours %d", bad)
	}

	// Warm the cache, then make sure writes invalidate it
	settings, err := f.admin.Settings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 24, settings.CooldownHours)

	require.NoError(t, f.admin.SetCooldownHours(f.ctx, 1))
	require.NoError(t, f.admin.SetCooldownHours(f.ctx, 720))

	settings, err = f.admin.Settings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 720, settings.CooldownHours)
}

func TestSetCooldownHours_AffectsEligibility(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, timePtr(f.now.Add(-2*time.Hour)))
	f.restock("K1")

	assert.Equal(t, ClaimDenied, f.claim(10).Outcome)

	require.NoError(t, f.admin.SetCooldownHours(f.ctx, 1))
	assert.Equal(t, ClaimAssigned, f.claim(10).Outcome)
}

func TestSetKeyMessageTemplate(t *testing.T) {
	f := newFixture(t)

	err := f.admin.SetKeyMessageTemplate(f.ctx, "Your code is ready")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Your code is ready", ve.Input)

	require.NoError(t, f.admin.SetKeyMessageTemplate(f.ctx, "Code: {key} ({duration})"))
	settings, err := f.admin.Settings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Code: {key} ({duration})", settings.KeyMessage)
}

func TestParseCooldownHours(t *testing.T) {
	h, err := ParseCooldownHours(" 48 ")
	require.NoError(t, err)
	assert.Equal(t, 48, h)

	_, err = ParseCooldownHours("two days")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "two days", ve.Input)
}

func TestAddKeys_PartialSuccess(t *testing.T) {
	f := newFixture(t)
	f.restock("OLD")
	f.addUser(10, true, nil)
	require.Equal(t, ClaimAssigned, f.claim(10).Outcome)

	f.addUser(11, true, nil)
	require.Equal(t, ClaimWaitlisted, f.claim(11).Outcome)

	result, err := f.admin.AddKeys(f.ctx, "OLD | 1d\nNEW1 | 7d | Gold\nbroken line\nNEW1 | 2d\nNEW2 | Silver | 24h | https://x.test")
	require.NoError(t, err)

	assert.Equal(t, []string{"NEW1", "NEW2"}, result.Added)
	assert.ElementsMatch(t, []string{"NEW1", "OLD"}, result.Duplicates)
	require.Len(t, result.Invalid, 1)
	assert.Equal(t, "broken line", result.Invalid[0].Input)

	// The queued user got the first new key
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, int64(11), result.Assignments[0].UserID)
	assert.Equal(t, "NEW1", result.Assignments[0].Receipt.Key)
	assert.Equal(t, "7 days", result.Assignments[0].Receipt.Duration)
}

func TestAddKeys_EmptyInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.admin.AddKeys(f.ctx, "  \n\n ")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestAddKeys_OnlyInvalidLinesMutatesNothing(t *testing.T) {
	f := newFixture(t)
	result, err := f.admin.AddKeys(f.ctx, "K | 7weeks")
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	require.Len(t, result.Invalid, 1)

	var keys int64
	require.NoError(t, f.db.Model(&gormModels.Key{}).Count(&keys).Error)
	assert.Zero(t, keys)
}

func TestAddKeys_DurationBounds(t *testing.T) {
	f := newFixture(t)

	result, err := f.admin.AddKeys(f.ctx, "BIGKEY | 200000d | Premium\nLONGKEY | 3650d | Premium")
	require.NoError(t, err)
	assert.Equal(t, []string{"LONGKEY"}, result.Added)
	require.Len(t, result.Invalid, 1)
	assert.Equal(t, "BIGKEY | 200000d | Premium", result.Invalid[0].Input)

	f.addUser(10, true, nil)
	res := f.claim(10)
	require.Equal(t, ClaimAssigned, res.Outcome)
	assert.Equal(t, "LONGKEY", res.Receipt.Key)
	assert.True(t, res.Receipt.ExpiresAt.After(res.Receipt.AssignedAt))
	assert.Equal(t, f.now.AddDate(0, 0, 3650), res.Receipt.ExpiresAt)
}

func TestClaim_RejectsStoredKeyWithOversizedDuration(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&gormModels.Key{
		Token:         "LEGACY",
		DurationValue: 200000,
		DurationUnit:  "days",
		ProductName:   "Premium",
		CreatedAt:     f.now,
	}).Error)
	f.addUser(10, true, nil)

	_, err := f.engine.Claim(f.ctx, 10)
	require.Error(t, err)

	var sales int64
	require.NoError(t, f.db.Model(&gormModels.Sale{}).Count(&sales).Error)
	assert.Zero(t, sales)
	assert.Nil(t, f.user(10).LastKeyTime)
}

func TestChannels(t *testing.T) {
	f := newFixture(t)

	ch, err := f.admin.AddChannel(f.ctx, "@news", "")
	require.NoError(t, err)
	assert.Equal(t, "news", ch.Handle)
	assert.Equal(t, "https://t.me/news", ch.JoinLink)

	_, err = f.admin.AddChannel(f.ctx, "https://t.me/news", "")
	var ce *ConflictError
	assert.True(t, errors.As(err, &ce))

	_, err = f.admin.AddChannel(f.ctx, "two words", "")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = f.admin.AddChannel(f.ctx, "deals", "https://t.me/+invite")
	require.NoError(t, err)

	channels, err := f.admin.ListChannels(f.ctx)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "https://t.me/+invite", channels[1].JoinLink)

	require.NoError(t, f.admin.RemoveChannel(f.ctx, "news"))
	err = f.admin.RemoveChannel(f.ctx, "@news")
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, nil)
	f.addUser(11, true, nil)
	f.addUser(12, false, nil)
	require.NoError(t, f.admin.BlockUser(f.ctx, 12, ""))

	f.restock("K1", "K2", "K3")
	f.claim(10)
	f.advance(time.Minute)
	f.claim(11)

	stats, err := f.admin.Stats(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.VerifiedUsers)
	assert.Equal(t, 1, stats.BlockedUsers)
	assert.Equal(t, 3, stats.TotalKeys)
	assert.Equal(t, 2, stats.UsedKeys)
	assert.Equal(t, 1, stats.AvailableKeys)
	assert.Equal(t, 2, stats.TotalSales)
	assert.Equal(t, 0, stats.WaitlistSize)

	require.Len(t, stats.RecentClaims, 2)
	assert.Equal(t, int64(11), stats.RecentClaims[0].UserID)
	assert.Equal(t, "user11", stats.RecentClaims[0].Username)
	assert.Equal(t, "K2", stats.RecentClaims[0].KeyToken)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	for _, id := range []int64{10, 11, 12} {
		f.addUser(id, true, nil)
		f.claim(id)
		f.advance(time.Second)
	}

	users, err := f.admin.ListUsers(f.ctx, entities.Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	waitlist, err := f.admin.ListWaitlist(f.ctx, entities.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, waitlist, 2)
	assert.Equal(t, int64(11), waitlist[0].UserID)
	assert.Equal(t, 2, waitlist[0].Position)
	assert.Equal(t, 3, waitlist[1].Position)

	f.restock("K1")
	require.NoError(t, f.db.Model(&gormModels.Sale{}).Where("user_id = ?", 10).Update("left_channel", true).Error)

	left, err := f.admin.ListLeftUsers(f.ctx, entities.Page{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "K1", left[0].KeyToken)
}

func TestUserHistory(t *testing.T) {
	f := newFixture(t)
	f.addUser(10, true, nil)
	f.restock("K1", "K2")
	f.claim(10)
	f.advance(25 * time.Hour)
	f.claim(10)

	history, err := f.admin.UserHistory(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, history.Sales, 2)
	assert.Equal(t, "K2", history.Sales[0].KeyToken)
	assert.Equal(t, 0, history.WaitlistPosition)
	assert.Equal(t, 2, history.User.TotalKeysClaimed)

	_, err = f.admin.UserHistory(f.ctx, 404)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, entities.Page{Limit: 20}, ClampPage(entities.Page{}))
	assert.Equal(t, entities.Page{Limit: 100, Offset: 0}, ClampPage(entities.Page{Limit: 1000, Offset: -5}))
}

func TestParseBlockInput(t *testing.T) {
	id, reason, err := ParseBlockInput("12345 selling keys")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)
	assert.Equal(t, "selling keys", reason)

	id, reason, err = ParseBlockInput("77")
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Empty(t, reason)

	_, _, err = ParseBlockInput("bob spam")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}
