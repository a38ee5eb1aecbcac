package services

import (
	"encoding/json"
	"fmt"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"
)

// SessionState is what the admin's next free-text message means
type SessionState string

const (
	StateIdle                  SessionState = "idle"
	StateAwaitingKeys          SessionState = "awaiting_keys"
	StateAwaitingChannel       SessionState = "awaiting_channel"
	StateAwaitingRemoveChannel SessionState = "awaiting_remove_channel"
	StateAwaitingCooldown      SessionState = "awaiting_cooldown"
	StateAwaitingKeyMessage    SessionState = "awaiting_key_message"
	StateAwaitingBlock         SessionState = "awaiting_block"
	StateAwaitingUnblock       SessionState = "awaiting_unblock"
	StateAwaitingResetCooldown SessionState = "awaiting_reset_cooldown"
	StateAwaitingBroadcast     SessionState = "awaiting_broadcast"
	StateConfirmingResetAll    SessionState = "confirming_reset_all"
	StateConfirmingDeleteKeys  SessionState = "confirming_delete_keys"
)

// AdminSession is the per-admin conversation state. ConfirmToken is set
// only in the Confirming states.
type AdminSession struct {
	AdminID      int64        `json:"admin_id"`
	State        SessionState `json:"state"`
	ConfirmToken string       `json:"confirm_token,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (s *AdminSession) Awaiting() bool {
	return s.State != StateIdle && !s.Confirming()
}

func (s *AdminSession) Confirming() bool {
	return s.State == StateConfirmingResetAll || s.State == StateConfirmingDeleteKeys
}

// awaitingStates are reachable from Idle via a panel button
var awaitingStates = map[SessionState]bool{
	StateAwaitingKeys:          true,
	StateAwaitingChannel:       true,
	StateAwaitingRemoveChannel: true,
	StateAwaitingCooldown:      true,
	StateAwaitingKeyMessage:    true,
	StateAwaitingBlock:         true,
	StateAwaitingUnblock:       true,
	StateAwaitingResetCooldown: true,
	StateAwaitingBroadcast:     true,
}

const adminSessionTTL = 30 * time.Minute

// AdminSessionStore keeps sessions in the shared cache, one entry per admin
type AdminSessionStore struct {
	cache common.CacheInterface
	now   func() time.Time
}

func NewAdminSessionStore(cache common.CacheInterface) *AdminSessionStore {
	return &AdminSessionStore{cache: cache, now: time.Now}
}

// Get returns the stored session or a fresh Idle one
func (s *AdminSessionStore) Get(adminID int64) *AdminSession {
	idle := &AdminSession{AdminID: adminID, State: StateIdle, UpdatedAt: s.now()}

	raw, found := common.GetString(s.cache, s.key(adminID))
	if !found {
		return idle
	}

	var session AdminSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		logging.Warn("Discarding unreadable admin session", "admin_id", adminID, "error", err)
		return idle
	}
	return &session
}

// Begin moves Idle (or any awaiting state) to a new awaiting state. A pending
// confirmation must be resolved first.
func (s *AdminSessionStore) Begin(adminID int64, next SessionState) (*AdminSession, error) {
	if !awaitingStates[next] {
		return nil, fmt.Errorf("state %s is not an input state", next)
	}
	current := s.Get(adminID)
	if current.Confirming() {
		return nil, &ConflictError{Entity: "admin session", Value: string(current.State), Reason: "confirm or cancel first"}
	}
	return s.save(&AdminSession{AdminID: adminID, State: next})
}

// BeginConfirmation parks a proposal token in the session
func (s *AdminSessionStore) BeginConfirmation(adminID int64, action ConfirmAction, token string) (*AdminSession, error) {
	state := StateConfirmingResetAll
	if action == ActionDeleteAllKeys {
		state = StateConfirmingDeleteKeys
	}
	return s.save(&AdminSession{AdminID: adminID, State: state, ConfirmToken: token})
}

// Reset returns the admin to Idle
func (s *AdminSessionStore) Reset(adminID int64) {
	s.cache.Delete(s.key(adminID))
}

func (s *AdminSessionStore) save(session *AdminSession) (*AdminSession, error) {
	session.UpdatedAt = s.now()
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode admin session: %w", err)
	}
	s.cache.Set(s.key(session.AdminID), string(data), adminSessionTTL)
	return session, nil
}

func (s *AdminSessionStore) key(adminID int64) string {
	return fmt.Sprintf("%s%d", constants.CachePrefixAdminSession, adminID)
}
