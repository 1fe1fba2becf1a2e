package limiter

import (
	"sync"
)

// UserLimiter allows at most one in-flight receipt verification per user,
// plus an optional cap on total concurrent verifications (OCR jobs are not
// free).
type UserLimiter struct {
	mu          sync.Mutex
	activeUsers map[int64]struct{}
	maxGlobal   int
	globalCount int
}

// NewUserLimiter creates a new user limiter
// maxGlobalConcurrent of 0 means no global cap
func NewUserLimiter(maxGlobalConcurrent int) *UserLimiter {
	return &UserLimiter{
		activeUsers: make(map[int64]struct{}),
		maxGlobal:   maxGlobalConcurrent,
	}
}

// TryAcquire attempts to acquire a verification slot for a user
// Returns false if the user already has one in flight or the global cap is reached
func (l *UserLimiter) TryAcquire(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.activeUsers[userID]; exists {
		return false
	}

	if l.maxGlobal > 0 && l.globalCount >= l.maxGlobal {
		return false
	}

	l.activeUsers[userID] = struct{}{}
	l.globalCount++
	return true
}

// Release releases a user's slot
func (l *UserLimiter) Release(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.activeUsers[userID]; exists {
		delete(l.activeUsers, userID)
		l.globalCount--
	}
}

// ActiveCount returns the number of verifications currently in flight
func (l *UserLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globalCount
}

// IsUserActive checks if a user has a verification in flight
func (l *UserLimiter) IsUserActive(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, exists := l.activeUsers[userID]
	return exists
}
