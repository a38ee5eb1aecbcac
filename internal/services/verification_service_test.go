package services

import (
	"context"
	"errors"
	"testing"

	"infinite-experiment/keydrop/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock MembershipChecker
type mockMembershipChecker struct {
	checkFunc func(ctx context.Context, channel string, userID int64) (constants.MembershipStatus, error)
}

func (m *mockMembershipChecker) CheckMembership(ctx context.Context, channel string, userID int64) (constants.MembershipStatus, error) {
	return m.checkFunc(ctx, channel, userID)
}

func statusesByChannel(statuses map[string]constants.MembershipStatus) *mockMembershipChecker {
	return &mockMembershipChecker{
		checkFunc: func(ctx context.Context, channel string, userID int64) (constants.MembershipStatus, error) {
			if s, ok := statuses[channel]; ok {
				return s, nil
			}
			return constants.MembershipUnknown, errors.New("chat not found")
		},
	}
}

func TestVerify_NoChannelsAutoVerifies(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(10, false, nil)

	svc := NewVerificationService(f.db, statusesByChannel(nil))
	res, err := svc.Verify(f.ctx, user)
	require.NoError(t, err)

	assert.True(t, res.NoChannels)
	assert.True(t, res.Verified)
	assert.True(t, res.Changed)
	assert.True(t, f.user(10).Verified)
}

func TestVerify_AllMember(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(10, false, nil)
	_, err := f.admin.AddChannel(f.ctx, "a", "")
	require.NoError(t, err)
	_, err = f.admin.AddChannel(f.ctx, "b", "")
	require.NoError(t, err)

	svc := NewVerificationService(f.db, statusesByChannel(map[string]constants.MembershipStatus{
		"a": constants.MembershipMember,
		"b": constants.MembershipMember,
	}))
	res, err := svc.Verify(f.ctx, user)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.True(t, f.user(10).Verified)
}

func TestVerify_NotMemberRevokes(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(10, true, nil)
	_, err := f.admin.AddChannel(f.ctx, "a", "")
	require.NoError(t, err)
	_, err = f.admin.AddChannel(f.ctx, "b", "")
	require.NoError(t, err)

	svc := NewVerificationService(f.db, statusesByChannel(map[string]constants.MembershipStatus{
		"a": constants.MembershipNotMember,
	}))
	res, err := svc.Verify(f.ctx, user)
	require.NoError(t, err)

	assert.False(t, res.Verified)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "a", res.Missing[0].Handle)
	require.Len(t, res.Unknown, 1)
	assert.False(t, f.user(10).Verified)
}

func TestVerify_UnknownOnlyLeavesFlag(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(10, true, nil)
	_, err := f.admin.AddChannel(f.ctx, "a", "")
	require.NoError(t, err)

	svc := NewVerificationService(f.db, statusesByChannel(nil))
	res, err := svc.Verify(f.ctx, user)
	require.NoError(t, err)

	assert.False(t, res.Conclusive())
	assert.False(t, res.Changed)
	assert.True(t, f.user(10).Verified)
}
