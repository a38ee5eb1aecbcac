package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	store "infinite-experiment/keydrop/internal/db"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup test database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logging.InitNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to ":memory:" would be a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, store.Migrate(db, 24))
	return db
}

// mockNotifier records deliveries; failFor makes sends to a chat id fail
type mockNotifier struct {
	mu      sync.Mutex
	texts   map[int64][]string
	photos  map[int64][]string
	failFor map[int64]bool
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{
		texts:   map[int64][]string{},
		photos:  map[int64][]string{},
		failFor: map[int64]bool{},
	}
}

func (m *mockNotifier) SendText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[chatID] {
		return errBotBlocked
	}
	m.texts[chatID] = append(m.texts[chatID], text)
	return nil
}

func (m *mockNotifier) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[chatID] {
		return errBotBlocked
	}
	m.photos[chatID] = append(m.photos[chatID], photoURL+"|"+caption)
	return nil
}

func (m *mockNotifier) textsTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts[chatID]...)
}

type sendError string

func (e sendError) Error() string { return string(e) }

const errBotBlocked = sendError("Forbidden: bot was blocked by the user")

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	now time.Time

	settings      *SettingsService
	waitlist      *WaitlistService
	engine        *AllocationService
	confirmations *ConfirmationService
	notifier      *mockNotifier
	notifications *NotificationService
	broadcasts    *BroadcastService
	admin         *AdminService
	users         *UserService
}

const testAdminID int64 = 1

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	f := &fixture{
		t:   t,
		ctx: context.Background(),
		db:  db,
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.settings = NewSettingsService(repositories.NewSettingsRepository(db), common.NewCacheService(time.Minute, time.Minute), 24)
	f.waitlist = NewWaitlistService(db)
	f.engine = NewAllocationService(db, f.waitlist, f.settings, nil)
	f.engine.SetClock(func() time.Time { return f.now })
	f.confirmations = NewConfirmationService("test-secret", common.NewCacheService(time.Minute, time.Minute), 5*time.Minute)
	f.notifier = newMockNotifier()
	f.notifications = NewNotificationService(f.notifier, f.settings, f.waitlist, nil, testAdminID)
	f.users = NewUserService(db)
	f.broadcasts = NewBroadcastService(f.users, f.notifications, nil, 1000, 4)
	f.admin = NewAdminService(
		db,
		repositories.NewStatsRepo(sqlx.NewDb(sqlDB, "sqlite3")),
		f.engine,
		f.waitlist,
		f.settings,
		f.confirmations,
		f.broadcasts,
	)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// addUser creates a user directly in the store
func (f *fixture) addUser(id int64, verified bool, lastKeyTime *time.Time) *gormModels.User {
	f.t.Helper()
	user := gormModels.User{
		ID:          id,
		Username:    "user" + strconv.FormatInt(id, 10),
		Verified:    verified,
		LastKeyTime: lastKeyTime,
		FirstSeen:   f.now,
	}
	require.NoError(f.t, f.db.Create(&user).Error)
	return &user
}

func (f *fixture) restock(tokens ...string) *RestockResult {
	f.t.Helper()
	items := make([]NewKey, 0, len(tokens))
	for _, tok := range tokens {
		items = append(items, NewKey{
			Token:       tok,
			Duration:    common.KeyDuration{Value: 30, Unit: common.UnitDays},
			ProductName: constants.DefaultProductName,
		})
	}
	res, err := f.engine.Restock(f.ctx, items)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) claim(userID int64) *ClaimResult {
	f.t.Helper()
	res, err := f.engine.Claim(f.ctx, userID)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) user(id int64) *gormModels.User {
	f.t.Helper()
	var user gormModels.User
	require.NoError(f.t, f.db.First(&user, "id = ?", id).Error)
	return &user
}

func (f *fixture) queuedIDs() []int64 {
	f.t.Helper()
	entries, err := f.waitlist.ListAll(f.ctx)
	require.NoError(f.t, err)
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	return ids
}

func timePtr(t time.Time) *time.Time {
	return &t
}
