package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString(t *testing.T) {
	c := NewCacheService(time.Minute, time.Minute)

	c.Set("a", "value", time.Minute)
	c.Set("b", 42, time.Minute)

	s, ok := GetString(c, "a")
	assert.True(t, ok)
	assert.Equal(t, "value", s)

	_, ok = GetString(c, "b")
	assert.False(t, ok, "non-string entries are not returned")

	_, ok = GetString(c, "missing")
	assert.False(t, ok)
}

func TestCacheService_Expiry(t *testing.T) {
	c := NewCacheService(time.Minute, time.Minute)
	c.Set("short", "x", time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	_, found := c.Get("short")
	assert.False(t, found)
}

func TestCacheService_GetOrSet(t *testing.T) {
	c := NewCacheService(time.Minute, time.Minute)
	calls := 0
	loader := func() (any, error) {
		calls++
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		val, err := c.GetOrSet("k", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, "loaded", val)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrSet("bad", time.Minute, func() (any, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	_, found := c.Get("bad")
	assert.False(t, found, "failed loads are not cached")
}
