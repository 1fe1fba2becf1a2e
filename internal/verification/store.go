package verification

import "time"

// Store defines the interface for request persistence. The active-request set
// and the configured price must survive restarts, so every transition is
// written through immediately.
type Store interface {
	// GetRequest retrieves the request for a user, nil if none exists
	GetRequest(userID int64) (*Request, error)

	// SaveRequest inserts or replaces a user's request
	SaveRequest(req *Request) error

	// SetStatus updates the status of a user's request
	SetStatus(userID int64, status Status, ocrAmount *float64) error

	// LiveRequests returns all requests in a non-terminal state
	LiveRequests() ([]Request, error)

	// AddVerified records an approved payment
	AddVerified(p VerifiedPayment) error

	// History returns a user's verified payments, newest first
	History(userID int64, limit int) ([]VerifiedPayment, error)

	// Stats summarizes the request and payment tables
	Stats() (*Stats, error)

	// Price returns the configured amount, or def when never set
	Price(def int64) (int64, error)

	// SetPrice persists a new required amount
	SetPrice(amount int64) error

	// AddToken stores a join token
	AddToken(t JoinToken) error

	// GetToken retrieves a token, nil if unknown
	GetToken(token string) (*JoinToken, error)

	// MarkTokenUsed flags a token as consumed
	MarkTokenUsed(token string) error

	// HasUsedToken reports whether a user has ever consumed a token
	HasUsedToken(userID int64) (bool, error)

	// DeleteExpiredTokens removes tokens past their expiry
	DeleteExpiredTokens(now time.Time) error

	// Close releases resources
	Close() error
}
