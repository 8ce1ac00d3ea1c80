package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxAge = 24 * time.Hour

func TestCreateAndResolve(t *testing.T) {
	manager := New([]byte("test signing key"), testMaxAge)

	handle, err := manager.Create("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	assert.Equal(t, "user-1", manager.Resolve(handle))
}

func TestResolveDefectsMeanAnonymous(t *testing.T) {
	manager := New([]byte("test signing key"), testMaxAge)

	validHandle, err := manager.Create("user-1")
	require.NoError(t, err)

	otherManager := New([]byte("a different key"), testMaxAge)

	testCases := []struct {
		name   string
		handle string
	}{
		{name: "empty handle", handle: ""},
		{name: "cleared handle", handle: manager.Clear()},
		{name: "garbage", handle: "definitely.not.ajwt"},
		{name: "truncated", handle: validHandle[:len(validHandle)/2]},
		{name: "wrong signing key", handle: mustCreate(t, otherManager, "user-1")},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Empty(t, manager.Resolve(testCase.handle))
			})
		})
	}
}

func TestResolveExpiredHandle(t *testing.T) {
	// Negative max age backdates the expiry, so the handle is born expired.
	manager := New([]byte("test signing key"), -time.Minute)

	handle, err := manager.Create("user-1")
	require.NoError(t, err)

	assert.Empty(t, manager.Resolve(handle))
}

func TestHandlesAreDistinctPerLogin(t *testing.T) {
	manager := New([]byte("test signing key"), testMaxAge)

	first, err := manager.Create("user-1")
	require.NoError(t, err)
	second, err := manager.Create("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "user-1", manager.Resolve(first))
	assert.Equal(t, "user-1", manager.Resolve(second))
}

func mustCreate(t *testing.T, manager *Manager, userID string) string {
	t.Helper()
	handle, err := manager.Create(userID)
	require.NoError(t, err)
	return handle
}
