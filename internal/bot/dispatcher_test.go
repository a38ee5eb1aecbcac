package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	store "infinite-experiment/keydrop/internal/db"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/models/dtos"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"
	"infinite-experiment/keydrop/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const adminID int64 = 1

type sentMessage struct {
	Text   string
	Markup *dtos.InlineKeyboardMarkup
}

// mockMessenger records replies and doubles as the notifier
type mockMessenger struct {
	mu       sync.Mutex
	messages map[int64][]sentMessage
	answered []string
}

func newMockMessenger() *mockMessenger {
	return &mockMessenger{messages: map[int64][]sentMessage{}}
}

func (m *mockMessenger) SendMessage(ctx context.Context, chatID int64, text string, markup *dtos.InlineKeyboardMarkup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[chatID] = append(m.messages[chatID], sentMessage{Text: text, Markup: markup})
	return nil
}

func (m *mockMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, callbackID)
	return nil
}

func (m *mockMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	return m.SendMessage(ctx, chatID, text, nil)
}

func (m *mockMessenger) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	return m.SendMessage(ctx, chatID, caption, nil)
}

func (m *mockMessenger) last(chatID int64) sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[chatID]
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

func (m *mockMessenger) all(chatID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.messages[chatID]...)
}

type mockChecker struct {
	statuses map[string]constants.MembershipStatus
}

func (m *mockChecker) CheckMembership(ctx context.Context, channel string, userID int64) (constants.MembershipStatus, error) {
	if s, ok := m.statuses[channel]; ok {
		return s, nil
	}
	return constants.MembershipMember, nil
}

type testBot struct {
	t          *testing.T
	ctx        context.Context
	db         *gorm.DB
	messenger  *mockMessenger
	checker    *mockChecker
	dispatcher *Dispatcher
	admin      *services.AdminService
	updateID   int64
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	logging.InitNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db, 24))

	cache := common.NewCacheService(time.Minute, time.Minute)
	messenger := newMockMessenger()
	checker := &mockChecker{statuses: map[string]constants.MembershipStatus{}}

	settings := services.NewSettingsService(repositories.NewSettingsRepository(db), cache, 24)
	waitlist := services.NewWaitlistService(db)
	engine := services.NewAllocationService(db, waitlist, settings, nil)
	users := services.NewUserService(db)
	notifications := services.NewNotificationService(messenger, settings, waitlist, nil, adminID)
	broadcasts := services.NewBroadcastService(users, notifications, nil, 1000, 2)
	confirmations := services.NewConfirmationService("test-secret", cache, time.Minute)
	admin := services.NewAdminService(db, repositories.NewStatsRepo(sqlx.NewDb(sqlDB, "sqlite3")),
		engine, waitlist, settings, confirmations, broadcasts)

	dispatcher := NewDispatcher(Dependencies{
		Messenger:     messenger,
		Users:         users,
		Verification:  services.NewVerificationService(db, checker),
		Engine:        engine,
		Admin:         admin,
		Notifications: notifications,
		Sessions:      services.NewAdminSessionStore(cache),
		AdminID:       adminID,
	})

	return &testBot{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		messenger:  messenger,
		checker:    checker,
		dispatcher: dispatcher,
		admin:      admin,
	}
}

func (b *testBot) text(userID int64, text string) {
	b.t.Helper()
	b.updateID++
	from := &dtos.TelegramUser{ID: userID, Username: "tester"}
	err := b.dispatcher.Handle(b.ctx, dtos.Update{
		UpdateID: b.updateID,
		Message:  &dtos.Message{MessageID: b.updateID, From: from, Chat: dtos.Chat{ID: userID}, Text: text},
	})
	require.NoError(b.t, err)
}

func (b *testBot) press(userID int64, data string) {
	b.t.Helper()
	b.updateID++
	err := b.dispatcher.Handle(b.ctx, dtos.Update{
		UpdateID:      b.updateID,
		CallbackQuery: &dtos.CallbackQuery{ID: "cb", From: dtos.TelegramUser{ID: userID}, Data: data},
	})
	require.NoError(b.t, err)
}

func (b *testBot) user(id int64) *gormModels.User {
	b.t.Helper()
	var user gormModels.User
	require.NoError(b.t, b.db.First(&user, "id = ?", id).Error)
	return &user
}

func TestStart_ShowsChannelsAndButtons(t *testing.T) {
	b := newTestBot(t)
	_, err := b.admin.AddChannel(b.ctx, "@news", "")
	require.NoError(t, err)

	b.text(42, "/start")

	msg := b.messenger.last(42)
	assert.Equal(t, constants.MsgWelcome, msg.Text)
	require.NotNil(t, msg.Markup)
	rows := msg.Markup.InlineKeyboard
	require.Len(t, rows, 2)
	assert.Equal(t, "https://t.me/news", rows[0][0].URL)
	assert.Equal(t, callbackVerify, rows[1][0].CallbackData)
	assert.Equal(t, callbackClaim, rows[1][1].CallbackData)

	assert.False(t, b.user(42).Verified)
}

func TestStart_AdminAlsoGetsPanel(t *testing.T) {
	b := newTestBot(t)

	b.text(adminID, "/start")

	assert.Equal(t, constants.MsgAdminPanel, b.messenger.last(adminID).Text)
}

func TestVerify_NoChannelsVerifiesAutomatically(t *testing.T) {
	b := newTestBot(t)

	b.press(42, callbackVerify)

	assert.Equal(t, constants.MsgVerifiedNoChannels, b.messenger.last(42).Text)
	assert.True(t, b.user(42).Verified)
}

func TestVerify_MissingChannelIsListed(t *testing.T) {
	b := newTestBot(t)
	_, err := b.admin.AddChannel(b.ctx, "news", "")
	require.NoError(t, err)
	b.checker.statuses["news"] = constants.MembershipNotMember

	b.press(42, callbackVerify)

	text := b.messenger.last(42).Text
	assert.Contains(t, text, "@news")
	assert.Contains(t, text, "After joining")
	assert.False(t, b.user(42).Verified)
}

func TestClaim_UnverifiedIsDenied(t *testing.T) {
	b := newTestBot(t)

	b.press(42, callbackClaim)

	assert.Equal(t, constants.MsgUnverified, b.messenger.last(42).Text)
}

func TestClaim_AssignsThenCooldown(t *testing.T) {
	b := newTestBot(t)
	_, err := b.admin.AddKeys(b.ctx, "KEY-1 | 30d\nKEY-2 | 30d")
	require.NoError(t, err)

	b.press(42, callbackVerify)
	b.press(42, callbackClaim)

	assert.Contains(t, b.messenger.last(42).Text, "KEY-1")

	b.press(42, callbackClaim)
	assert.True(t, strings.HasPrefix(b.messenger.last(42).Text, "⏳ Cooldown active!"))
}

func TestClaim_EmptyInventoryWaitlistsAndNotifiesAdminOnce(t *testing.T) {
	b := newTestBot(t)

	b.press(42, callbackVerify)
	b.press(42, callbackClaim)
	assert.Contains(t, b.messenger.last(42).Text, "position 1")
	assert.Contains(t, b.messenger.last(42).Text, "added to the waitlist")
	require.Len(t, b.messenger.all(adminID), 1)
	assert.Contains(t, b.messenger.last(adminID).Text, "position 1")

	b.press(42, callbackClaim)
	assert.Contains(t, b.messenger.last(42).Text, "already on the waitlist")
	assert.Len(t, b.messenger.all(adminID), 1)
}

func TestAdminAddKeys_DeliversToWaitlist(t *testing.T) {
	b := newTestBot(t)
	b.press(42, callbackVerify)
	b.press(42, callbackClaim)

	b.press(adminID, callbackAdminAddKeys)
	assert.Equal(t, constants.MsgAdminAddKeysPrompt, b.messenger.last(adminID).Text)

	b.text(adminID, "KEY-9 | 7d | Gold\nnot a key line")

	reply := b.messenger.last(adminID).Text
	assert.Contains(t, reply, "Added 1 keys")
	assert.Contains(t, reply, "1 invalid lines")
	assert.Contains(t, reply, "1 keys went to waitlisted users")

	delivered := b.messenger.last(42).Text
	assert.True(t, strings.HasPrefix(delivered, constants.MsgKeyFromWaitlist))
	assert.Contains(t, delivered, "KEY-9")
	assert.Contains(t, delivered, "Gold")
}

func TestAdminInput_InvalidKeepsState(t *testing.T) {
	b := newTestBot(t)

	b.press(adminID, callbackAdminSetCooldown)
	assert.Contains(t, b.messenger.last(adminID).Text, "Current cooldown: 24 hours")

	b.text(adminID, "forever")
	assert.True(t, strings.HasPrefix(b.messenger.last(adminID).Text, "❌"))
	assert.Equal(t, services.StateAwaitingCooldown, b.dispatcher.Sessions.Get(adminID).State)

	b.text(adminID, "48")
	assert.Contains(t, b.messenger.last(adminID).Text, "48 hours")
	assert.Equal(t, services.StateIdle, b.dispatcher.Sessions.Get(adminID).State)

	settings, err := b.admin.Settings(b.ctx)
	require.NoError(t, err)
	assert.Equal(t, 48, settings.CooldownHours)
}

func TestAdminDeleteAllKeys_RequiresConfirmation(t *testing.T) {
	b := newTestBot(t)
	_, err := b.admin.AddKeys(b.ctx, "A | 1d\nB | 1d")
	require.NoError(t, err)

	b.press(adminID, callbackAdminDeleteKeys)
	assert.Equal(t, constants.MsgAdminConfirmDelete, b.messenger.last(adminID).Text)

	var count int64
	require.NoError(t, b.db.Model(&gormModels.Key{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// Input buttons are refused while a confirmation is pending
	b.press(adminID, callbackAdminAddKeys)
	assert.True(t, strings.HasPrefix(b.messenger.last(adminID).Text, "❌"))

	b.press(adminID, callbackConfirm)
	assert.Equal(t, "✅ Deleted 2 keys.", b.messenger.last(adminID).Text)

	require.NoError(t, b.db.Model(&gormModels.Key{}).Count(&count).Error)
	assert.Zero(t, count)

	b.press(adminID, callbackConfirm)
	assert.Equal(t, "Nothing to confirm.", b.messenger.last(adminID).Text)
}

func TestAdminCancel_LeavesStateUntouched(t *testing.T) {
	b := newTestBot(t)
	_, err := b.admin.AddKeys(b.ctx, "A | 1d")
	require.NoError(t, err)

	b.press(adminID, callbackAdminDeleteKeys)
	b.press(adminID, callbackCancel)

	assert.Equal(t, constants.MsgAdminCancelled, b.messenger.last(adminID).Text)
	var count int64
	require.NoError(t, b.db.Model(&gormModels.Key{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdminCallbacks_RejectOtherUsers(t *testing.T) {
	b := newTestBot(t)

	b.press(42, callbackAdminStats)
	assert.Equal(t, constants.MsgAccessDenied, b.messenger.last(42).Text)

	b.text(42, "/admin")
	assert.Equal(t, constants.MsgAccessDenied, b.messenger.last(42).Text)
}

func TestAdminBlock_DropsWaitlistEntry(t *testing.T) {
	b := newTestBot(t)
	b.press(42, callbackVerify)
	b.press(42, callbackClaim)

	b.press(adminID, callbackAdminBlock)
	b.text(adminID, "42 spamming")
	assert.Equal(t, "⛔ User 42 blocked.", b.messenger.last(adminID).Text)

	b.press(42, callbackClaim)
	assert.Equal(t, "🚫 You are blocked from claiming keys.\nReason: spamming", b.messenger.last(42).Text)

	b.press(adminID, callbackAdminWaitlist)
	assert.Equal(t, "📭 The waitlist is empty.", b.messenger.last(adminID).Text)
}

func TestHistoryCommand(t *testing.T) {
	b := newTestBot(t)
	_, err := b.admin.AddKeys(b.ctx, "KEY-1 | 12h")
	require.NoError(t, err)
	b.press(42, callbackVerify)
	b.press(42, callbackClaim)

	b.text(adminID, "/history 42")

	text := b.messenger.last(adminID).Text
	assert.Contains(t, text, "(42)")
	assert.Contains(t, text, "Keys claimed: 1")
	assert.Contains(t, text, "KEY-1 (active)")

	b.text(adminID, "/history 999")
	assert.True(t, strings.HasPrefix(b.messenger.last(adminID).Text, "❌"))
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/History@keydrop_bot 42")
	assert.Equal(t, "/history", cmd)
	assert.Equal(t, "42", args)

	cmd, args = splitCommand("plain text")
	assert.Empty(t, cmd)
	assert.Equal(t, "plain text", args)
}
