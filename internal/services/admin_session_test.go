package services

import (
	"errors"
	"testing"
	"time"

	"infinite-experiment/keydrop/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSession_Transitions(t *testing.T) {
	store := NewAdminSessionStore(common.NewCacheService(time.Minute, time.Minute))

	s := store.Get(1)
	assert.Equal(t, StateIdle, s.State)
	assert.False(t, s.Awaiting())

	_, err := store.Begin(1, StateAwaitingKeys)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingKeys, store.Get(1).State)
	assert.True(t, store.Get(1).Awaiting())

	// Another admin id is independent
	assert.Equal(t, StateIdle, store.Get(2).State)

	// Switching input mode is allowed
	_, err = store.Begin(1, StateAwaitingCooldown)
	require.NoError(t, err)

	store.Reset(1)
	assert.Equal(t, StateIdle, store.Get(1).State)
}

func TestAdminSession_ConfirmingBlocksNewInput(t *testing.T) {
	store := NewAdminSessionStore(common.NewCacheService(time.Minute, time.Minute))

	_, err := store.BeginConfirmation(1, ActionDeleteAllKeys, "tok")
	require.NoError(t, err)

	s := store.Get(1)
	assert.Equal(t, StateConfirmingDeleteKeys, s.State)
	assert.Equal(t, "tok", s.ConfirmToken)
	assert.True(t, s.Confirming())

	_, err = store.Begin(1, StateAwaitingKeys)
	var ce *ConflictError
	assert.True(t, errors.As(err, &ce))
}

func TestAdminSession_RejectsNonInputState(t *testing.T) {
	store := NewAdminSessionStore(common.NewCacheService(time.Minute, time.Minute))
	_, err := store.Begin(1, StateConfirmingResetAll)
	assert.Error(t, err)
}
