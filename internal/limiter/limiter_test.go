package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneSlotPerUser(t *testing.T) {
	l := NewUserLimiter(0)

	assert.True(t, l.TryAcquire(1))
	assert.False(t, l.TryAcquire(1), "second verification for the same user rejected")
	assert.True(t, l.TryAcquire(2))
	assert.True(t, l.IsUserActive(1))
	assert.Equal(t, 2, l.ActiveCount())

	l.Release(1)
	assert.False(t, l.IsUserActive(1))
	assert.True(t, l.TryAcquire(1))
}

func TestGlobalCap(t *testing.T) {
	l := NewUserLimiter(2)

	assert.True(t, l.TryAcquire(1))
	assert.True(t, l.TryAcquire(2))
	assert.False(t, l.TryAcquire(3), "global cap reached")

	l.Release(1)
	assert.True(t, l.TryAcquire(3))
}

func TestReleaseUnknownUserIsNoop(t *testing.T) {
	l := NewUserLimiter(0)

	l.Release(42)
	assert.Equal(t, 0, l.ActiveCount())
}
