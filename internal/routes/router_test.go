package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"infinite-experiment/keydrop/internal/api"
	"infinite-experiment/keydrop/internal/common"
	store "infinite-experiment/keydrop/internal/db"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	"infinite-experiment/keydrop/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAPIKey  = "test-key"
	testAdminID = int64(1)
)

type nopNotifier struct{}

func (nopNotifier) SendText(ctx context.Context, chatID int64, text string) error { return nil }
func (nopNotifier) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	return nil
}

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testServer struct {
	t       *testing.T
	handler http.Handler
	deps    *api.Dependencies
	engine  *services.AllocationService
	db      *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
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

	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	cache := common.NewCacheService(time.Minute, time.Minute)

	settings := services.NewSettingsService(repositories.NewSettingsRepository(db), cache, 24)
	waitlist := services.NewWaitlistService(db)
	engine := services.NewAllocationService(db, waitlist, settings, m)
	users := services.NewUserService(db)
	notifications := services.NewNotificationService(nopNotifier{}, settings, waitlist, m, testAdminID)
	broadcasts := services.NewBroadcastService(users, notifications, nil, 1000, 2)
	confirmations := services.NewConfirmationService("secret", cache, time.Minute)
	stats := repositories.NewStatsRepo(sqlx.NewDb(sqlDB, "sqlite3"))
	admin := services.NewAdminService(db, stats, engine, waitlist, settings, confirmations, broadcasts)

	deps := api.InitDependencies(admin, notifications, stats, nil)
	handler := RegisterRoutes(deps, m, RouterConfig{
		AdminAPIKey:    testAPIKey,
		AdminID:        testAdminID,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, time.Now())

	return &testServer{t: t, handler: handler, deps: deps, engine: engine, db: db}
}

// do sends a request and decodes the JSON envelope into out when given
func (s *testServer) do(method, path string, body interface{}, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

type envelope[T any] struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Code   string `json:"code"`
	Data   *T     `json:"data"`
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthCheck", nil, &body))
	assert.Equal(t, "ok", body["status"])

	s.deps.Redis = downPinger{}
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/healthCheck", nil, &body))
	assert.Equal(t, "down", body["status"])
}

func TestAdminRoutes_RequireAPIKey(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddKeysAndStats(t *testing.T) {
	s := newTestServer(t)

	var added envelope[map[string]interface{}]
	code := s.do(http.MethodPost, "/api/v1/admin/keys", map[string]string{
		"keys": "K1 | 30d\nK2 | Gold | 12h | https://example.com\nK1 | 1d\nbroken",
	}, &added)
	require.Equal(t, http.StatusCreated, code)
	data := *added.Data
	assert.Len(t, data["added"], 2)
	assert.Len(t, data["duplicates"], 1)
	assert.Len(t, data["invalid"], 1)

	var stats envelope[map[string]interface{}]
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/stats", nil, &stats))
	assert.EqualValues(t, 2, (*stats.Data)["available_keys"])
}

func TestAddKeys_EmptyIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	var resp envelope[any]
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/admin/keys", map[string]string{"keys": "  "}, &resp))
	assert.Equal(t, "VALIDATION", resp.Code)
}

func TestUserEndpoints_ErrorMapping(t *testing.T) {
	s := newTestServer(t)

	var resp envelope[any]
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/admin/users/99/block", map[string]string{"reason": "x"}, &resp))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/admin/users/abc/history", nil, &resp))

	_, err := services.NewUserService(s.db).Touch(context.Background(), 99, "bob")
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/admin/users/99/unblock", nil, nil))
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/v1/admin/users/99/block", map[string]string{"reason": "spam"}, nil))
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/v1/admin/users/99/unblock", nil, nil))

	var history envelope[map[string]interface{}]
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/users/99/history", nil, &history))
}

func TestTwoPhaseAction(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/v1/admin/keys", map[string]string{"keys": "K1 | 1d"}, nil)

	var bad envelope[any]
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/admin/actions", map[string]string{"action": "drop_tables"}, &bad))

	var proposed envelope[map[string]interface{}]
	require.Equal(t, http.StatusAccepted, s.do(http.MethodPost, "/api/v1/admin/actions", map[string]string{"action": "delete_all_keys"}, &proposed))
	token := (*proposed.Data)["token"].(string)

	var confirmed envelope[map[string]interface{}]
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/admin/actions/confirm", map[string]string{"token": token}, &confirmed))
	assert.EqualValues(t, 1, (*confirmed.Data)["affected"])

	// Tokens are single use
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/admin/actions/confirm", map[string]string{"token": token}, nil))
}

func TestSettingsAndChannels(t *testing.T) {
	s := newTestServer(t)

	var settings envelope[map[string]interface{}]
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/v1/admin/settings", map[string]int{"cooldown_hours": 12}, &settings))
	assert.EqualValues(t, 12, (*settings.Data)["cooldown_hours"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/v1/admin/settings", map[string]int{"cooldown_hours": 0}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/v1/admin/settings", map[string]string{"key_message": "no placeholder"}, nil))

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/admin/channels", map[string]string{"handle": "@news"}, nil))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/admin/channels", map[string]string{"handle": "news"}, nil))

	var channels envelope[[]map[string]string]
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/channels", nil, &channels))
	require.Len(t, *channels.Data, 1)
	assert.Equal(t, "https://t.me/news", (*channels.Data)[0]["join_link"])

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/admin/channels/news", nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/v1/admin/channels/news", nil, nil))
}

func TestWaitlistListing(t *testing.T) {
	s := newTestServer(t)
	users := services.NewUserService(s.db)
	for _, id := range []int64{5, 6} {
		_, err := users.Touch(context.Background(), id, "")
		require.NoError(t, err)
		require.NoError(t, s.db.Exec("UPDATE users SET verified = ? WHERE id = ?", true, id).Error)
		_, err = s.engine.Claim(context.Background(), id)
		require.NoError(t, err)
	}

	var rows envelope[[]map[string]interface{}]
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/waitlist?limit=1&offset=1", nil, &rows))
	require.Len(t, *rows.Data, 1)
	assert.EqualValues(t, 6, (*rows.Data)[0]["user_id"])
	assert.EqualValues(t, 2, (*rows.Data)[0]["position"])
}
