package verification

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vip-pay-bot/internal/config"
	apperrors "vip-pay-bot/internal/errors"
	"vip-pay-bot/internal/ocr"
)

// Token redemption errors
var (
	ErrTokenNotFound   = errors.New("token not found")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenUsed       = errors.New("token already used")
	ErrTokenWrongOwner = errors.New("token not assigned to this user")
)

// TextExtractor extracts text from a receipt image
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Preprocessor prepares a receipt image for OCR
type Preprocessor interface {
	Prepare(image []byte) ([]byte, error)
}

// Transport issues join approvals and declines against the messaging service
type Transport interface {
	ApproveJoinRequest(ctx context.Context, userID int64) error
	DeclineJoinRequest(ctx context.Context, userID int64) error
}

// Outcome is the result of a resolved verification or admin override.
type Outcome struct {
	Decision       Decision
	Request        *Request
	JoinToken      string
	DetectedAmount *float64
	Reasons        []string
}

// Workflow owns the lifecycle of payment requests from creation to
// approval, decline or expiry. All state transitions go through the
// workflow mutex so that check-then-act sequences (duplicate submissions,
// the expiry sweep racing a resolution) stay atomic. The lock is released
// while OCR is in flight; the verifying status itself rejects a second
// receipt for the same user during that window.
type Workflow struct {
	mu        sync.Mutex
	store     Store
	extractor TextExtractor
	prep      Preprocessor
	transport Transport
	cfg       config.PaymentConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorkflow creates a verification workflow
func NewWorkflow(
	store Store,
	extractor TextExtractor,
	prep Preprocessor,
	transport Transport,
	cfg config.PaymentConfig,
	logger *slog.Logger,
) *Workflow {
	return &Workflow{
		store:     store,
		extractor: extractor,
		prep:      prep,
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow injects a deterministic clock for tests
func (w *Workflow) WithNow(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// Price returns the currently required amount. The stored value wins over
// the configured default once /setprice has been used.
func (w *Workflow) Price() (int64, error) {
	return w.store.Price(w.cfg.Amount)
}

// SetPrice changes the required amount for requests created from now on.
// In-flight requests keep the amount captured at their creation.
func (w *Workflow) SetPrice(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("price must be positive, got %d", amount)
	}
	return w.store.SetPrice(amount)
}

// CreateRequest opens a payment request for a user. If the user already has
// a live request it is returned unchanged and created is false; a live but
// expired record is swept on the spot before the new one is created.
func (w *Workflow) CreateRequest(userID int64, username string) (req *Request, created bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()

	existing, err := w.store.GetRequest(userID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && existing.Status.Live() {
		if !existing.Expired(now) {
			return existing, false, nil
		}
		if err := w.store.SetStatus(userID, StatusExpired, nil); err != nil {
			return nil, false, err
		}
	}

	amount, err := w.store.Price(w.cfg.Amount)
	if err != nil {
		return nil, false, err
	}

	req = &Request{
		UserID:    userID,
		Username:  username,
		Reference: NewReference(),
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(w.cfg.RequestTimeout),
	}
	if err := w.store.SaveRequest(req); err != nil {
		return nil, false, err
	}

	w.logger.Info("payment request created",
		"user_id", userID,
		"reference", req.Reference,
		"amount", amount,
	)
	return req, true, nil
}

// ActiveRequest returns the user's live request, expiring it on touch if
// the window has already elapsed.
func (w *Workflow) ActiveRequest(userID int64) (*Request, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeRequestLocked(userID)
}

func (w *Workflow) activeRequestLocked(userID int64) (*Request, error) {
	req, err := w.store.GetRequest(userID)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.Status.Live() {
		return nil, apperrors.ErrNoActiveRequest
	}
	if req.Expired(w.now()) {
		if err := w.store.SetStatus(userID, StatusExpired, nil); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrRequestExpired
	}
	return req, nil
}

// SubmitReceipt moves a pending request to verifying, runs the image
// through preprocessing and OCR, and resolves the verification. The first
// submission wins; a second receipt while one is in flight is rejected.
func (w *Workflow) SubmitReceipt(ctx context.Context, userID int64, image []byte) (*Outcome, error) {
	w.mu.Lock()
	req, err := w.activeRequestLocked(userID)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if req.Status == StatusVerifying {
		w.mu.Unlock()
		return nil, apperrors.ErrAlreadyVerifying
	}
	if err := w.store.SetStatus(userID, StatusVerifying, nil); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	req.Status = StatusVerifying
	w.mu.Unlock()

	prepared, err := w.prep.Prepare(image)
	if err != nil {
		w.logger.Warn("receipt preprocessing failed", "error", err, "user_id", userID)
		return w.declineUnreadable(userID, "Could not read the uploaded image. Please send a clear screenshot.")
	}

	text, err := w.extractor.ExtractText(ctx, prepared)
	if err != nil {
		// OCR failure maps to a declined outcome, not a fatal error
		w.logger.Warn("ocr extraction failed", "error", err, "user_id", userID)
		return w.declineUnreadable(userID, "Could not read text from the receipt. Please ensure the screenshot is clear.")
	}

	return w.ResolveVerification(ctx, userID, text)
}

// declineUnreadable records a declined outcome for a receipt that produced
// no usable text, honoring the resubmit policy.
func (w *Workflow) declineUnreadable(userID int64, reason string) (*Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, err := w.store.GetRequest(userID)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.Status.Live() {
		return nil, apperrors.ErrNoActiveRequest
	}

	return w.declineLocked(req, nil, []string{reason})
}

// ResolveVerification decides approval from the extracted text and the
// amount captured at request creation. Exact match only: no tolerance for
// rounding or partial payment. On approval the join-request call must be
// confirmed before the request is marked approved; a transport fault leaves
// the request verifying and is surfaced for admin attention.
func (w *Workflow) ResolveVerification(ctx context.Context, userID int64, text string) (*Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, err := w.store.GetRequest(userID)
	if err != nil {
		return nil, err
	}
	if req == nil || !req.Status.Live() {
		return nil, apperrors.ErrNoActiveRequest
	}

	expected := float64(req.Amount)
	found, ok := ocr.ExtractAmount(text, expected)

	var detected *float64
	if ok {
		detected = &found
	}

	if ok && found == expected {
		return w.approveLocked(ctx, req, detected)
	}

	reasons := make([]string, 0, 3)
	if !ok {
		reasons = append(reasons, "Could not find a payment amount in the receipt.")
	} else {
		reasons = append(reasons, fmt.Sprintf("Amount mismatch: expected %d, receipt shows %.2f.", req.Amount, found))
	}
	// Non-gating diagnostics to help the user fix the next screenshot
	if !ocr.ContainsReference(text, req.Reference) {
		reasons = append(reasons, fmt.Sprintf("Tip: the reference %s was not visible in the receipt.", req.Reference))
	}
	if !ocr.HasSuccessIndicator(text) {
		reasons = append(reasons, "Tip: the receipt does not show a successful transaction status.")
	}

	return w.declineLocked(req, detected, reasons)
}

func (w *Workflow) approveLocked(ctx context.Context, req *Request, detected *float64) (*Outcome, error) {
	if err := w.approveWithRetry(ctx, req.UserID); err != nil {
		// Monetary verification succeeded but the approval call did not.
		// The request stays verifying so /approve can finish the job; it
		// must never be marked approved without a confirmed call.
		w.logger.Error("join approval failed after verification",
			"error", err,
			"user_id", req.UserID,
			"reference", req.Reference,
		)
		return nil, apperrors.ErrTransportFailure
	}

	if err := w.store.SetStatus(req.UserID, StatusApproved, detected); err != nil {
		return nil, err
	}
	req.Status = StatusApproved
	req.OCRAmount = detected

	now := w.now()
	if err := w.store.AddVerified(VerifiedPayment{
		Reference:  req.Reference,
		UserID:     req.UserID,
		Username:   req.Username,
		Amount:     req.Amount,
		VerifiedAt: now,
	}); err != nil {
		return nil, err
	}

	token, err := w.mintTokenLocked(req.UserID, now)
	if err != nil {
		return nil, err
	}

	w.logger.Info("payment approved",
		"user_id", req.UserID,
		"reference", req.Reference,
		"amount", req.Amount,
	)

	return &Outcome{
		Decision:       DecisionApproved,
		Request:        req,
		JoinToken:      token,
		DetectedAmount: detected,
	}, nil
}

func (w *Workflow) declineLocked(req *Request, detected *float64, reasons []string) (*Outcome, error) {
	status := StatusDeclined
	if w.cfg.AllowResubmit {
		// Back to pending with the original window: a new screenshot may be
		// uploaded until the request expires.
		status = StatusPending
	}
	if err := w.store.SetStatus(req.UserID, status, detected); err != nil {
		return nil, err
	}
	req.Status = status
	req.OCRAmount = detected

	w.logger.Info("payment declined",
		"user_id", req.UserID,
		"reference", req.Reference,
		"resubmit_allowed", w.cfg.AllowResubmit,
	)

	return &Outcome{
		Decision:       DecisionDeclined,
		Request:        req,
		DetectedAmount: detected,
		Reasons:        reasons,
	}, nil
}

// approveWithRetry calls the transport approval with exponential backoff.
func (w *Workflow) approveWithRetry(ctx context.Context, userID int64) error {
	attempts := w.cfg.ApprovalRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := w.cfg.ApprovalBackoff

	var err error
	for i := 0; i < attempts; i++ {
		if err = w.transport.ApproveJoinRequest(ctx, userID); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return err
}

// AdminOverride forces a terminal decision regardless of OCR outcome. It
// works on any record, live or recently terminal.
func (w *Workflow) AdminOverride(ctx context.Context, userID int64, decision Decision) (*Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, err := w.store.GetRequest(userID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.ErrUnknownUser
	}

	if decision == DecisionApproved {
		return w.approveLocked(ctx, req, req.OCRAmount)
	}

	// Declining a never-approved join request is best effort: the record is
	// marked declined even when the transport call fails.
	if err := w.transport.DeclineJoinRequest(ctx, userID); err != nil {
		w.logger.Warn("join decline call failed", "error", err, "user_id", userID)
	}
	if err := w.store.SetStatus(userID, StatusDeclined, req.OCRAmount); err != nil {
		return nil, err
	}
	req.Status = StatusDeclined

	w.logger.Info("payment declined by admin", "user_id", userID, "reference", req.Reference)

	return &Outcome{
		Decision: DecisionDeclined,
		Request:  req,
		Reasons:  []string{"Declined by admin."},
	}, nil
}

// SweepExpired expires every live request whose window elapsed before now
// and prunes stale join tokens. Calling it twice with the same now is a
// no-op the second time.
func (w *Workflow) SweepExpired(now time.Time) ([]Request, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	live, err := w.store.LiveRequests()
	if err != nil {
		return nil, err
	}

	var expired []Request
	for _, req := range live {
		if !req.Expired(now) {
			continue
		}
		if err := w.store.SetStatus(req.UserID, StatusExpired, nil); err != nil {
			return expired, err
		}
		req.Status = StatusExpired
		expired = append(expired, req)
		w.logger.Info("payment request expired",
			"user_id", req.UserID,
			"reference", req.Reference,
		)
	}

	if err := w.store.DeleteExpiredTokens(now); err != nil {
		return expired, err
	}

	return expired, nil
}

// PendingRequests returns all live requests for the admin view.
func (w *Workflow) PendingRequests() ([]Request, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.LiveRequests()
}

// Stats summarizes the request set.
func (w *Workflow) Stats() (*Stats, error) {
	return w.store.Stats()
}

// History returns a user's verified payments, newest first.
func (w *Workflow) History(userID int64, limit int) ([]VerifiedPayment, error) {
	return w.store.History(userID, limit)
}

// ValidateToken checks ownership, expiry and the used flag of a join token.
func (w *Workflow) ValidateToken(token string, userID int64) (*JoinToken, error) {
	t, err := w.store.GetToken(token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTokenNotFound
	}
	if w.now().After(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if t.Used {
		return nil, ErrTokenUsed
	}
	if t.UserID != userID {
		return nil, ErrTokenWrongOwner
	}
	return t, nil
}

// ConsumeToken marks a token used. Called after the invite link was
// actually created, so a failed link never burns the token.
func (w *Workflow) ConsumeToken(token string) error {
	return w.store.MarkTokenUsed(token)
}

// HasUsedToken reports whether the user has already redeemed a token.
func (w *Workflow) HasUsedToken(userID int64) (bool, error) {
	return w.store.HasUsedToken(userID)
}

func (w *Workflow) mintTokenLocked(userID int64, now time.Time) (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	if err := w.store.AddToken(JoinToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(w.cfg.TokenTTL),
	}); err != nil {
		return "", err
	}
	return token, nil
}
