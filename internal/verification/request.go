package verification

import (
	"fmt"
	"math/rand"
	"time"
)

// Status is the lifecycle state of a payment request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusExpired   Status = "expired"
)

// Live reports whether the status still accepts transitions from user events.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusVerifying
}

// Decision is the outcome of a receipt verification.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDeclined Decision = "declined"
)

// Request is one user's payment request awaiting verification.
// Amount is snapshotted from the configured price at creation time and is
// never re-read, so a later /setprice cannot invalidate a receipt that was
// paid against the old price.
type Request struct {
	UserID    int64
	Username  string
	Reference string
	Amount    int64
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
	// OCRAmount records the amount detected on the last verified receipt,
	// nil when no amount could be extracted.
	OCRAmount *float64
}

// Expired reports whether the request's window has elapsed at now.
func (r *Request) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// TimeLeft returns the remaining verification window, clamped at zero.
func (r *Request) TimeLeft(now time.Time) time.Duration {
	if left := r.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// VerifiedPayment is a completed, approved payment kept for history and stats.
type VerifiedPayment struct {
	Reference  string
	UserID     int64
	Username   string
	Amount     int64
	VerifiedAt time.Time
}

// JoinToken is a one-time credential minted on approval and redeemed for a
// single-use group invite link.
type JoinToken struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// Stats summarizes the request set for the admin /stats command.
type Stats struct {
	PendingCount  int
	VerifiedCount int
	TotalAmount   int64
}

const referencePrefix = "tmzbrand"

// NewReference generates a payment reference like tmzbrand123456.
func NewReference() string {
	return fmt.Sprintf("%s%06d", referencePrefix, 100000+rand.Intn(900000))
}
