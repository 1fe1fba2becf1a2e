package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vip-pay-bot/internal/config"
	apperrors "vip-pay-bot/internal/errors"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type passthroughPrep struct{}

func (passthroughPrep) Prepare(image []byte) ([]byte, error) {
	return image, nil
}

type fakeTransport struct {
	approveErr error
	approves   []int64
	declines   []int64
}

func (f *fakeTransport) ApproveJoinRequest(_ context.Context, userID int64) error {
	if f.approveErr != nil {
		return f.approveErr
	}
	f.approves = append(f.approves, userID)
	return nil
}

func (f *fakeTransport) DeclineJoinRequest(_ context.Context, userID int64) error {
	f.declines = append(f.declines, userID)
	return nil
}

type testEnv struct {
	workflow  *Workflow
	store     *SQLiteStore
	extractor *fakeExtractor
	transport *fakeTransport
	now       time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func newTestEnv(t *testing.T, mutate func(*config.PaymentConfig)) *testEnv {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "payments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.PaymentConfig{
		Amount:          50,
		RequestTimeout:  10 * time.Minute,
		AllowResubmit:   false,
		TokenTTL:        time.Hour,
		ApprovalRetries: 2,
		ApprovalBackoff: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		store:     store,
		extractor: &fakeExtractor{},
		transport: &fakeTransport{},
		now:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	env.workflow = NewWorkflow(
		store, env.extractor, passthroughPrep{}, env.transport, cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	).WithNow(func() time.Time { return env.now })

	return env
}

func TestExactAmountApproved(t *testing.T) {
	env := newTestEnv(t, nil)

	req, created, err := env.workflow.CreateRequest(1, "alice")
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, int64(50), req.Amount)
	assert.Equal(t, StatusPending, req.Status)

	env.extractor.text = "Paid 50.00\nSuccessful Transaction"
	outcome, err := env.workflow.SubmitReceipt(context.Background(), 1, []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, DecisionApproved, outcome.Decision)
	assert.NotEmpty(t, outcome.JoinToken)
	assert.Equal(t, []int64{1}, env.transport.approves, "approval call made exactly once")

	stored, err := env.store.GetRequest(1)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)

	history, err := env.workflow.History(1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(50), history[0].Amount)
	assert.Equal(t, req.Reference, history[0].Reference)
}

func TestAmountMismatchDeclined(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(2, "bob")
	require.NoError(t, err)

	env.extractor.text = "Paid 45.00"
	outcome, err := env.workflow.SubmitReceipt(context.Background(), 2, []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, DecisionDeclined, outcome.Decision)
	assert.NotEmpty(t, outcome.Reasons)
	assert.Empty(t, env.transport.approves, "no approval call on mismatch")

	stored, err := env.store.GetRequest(2)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, stored.Status)
}

func TestDeclineReturnsToPendingWhenResubmitAllowed(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.PaymentConfig) {
		cfg.AllowResubmit = true
	})

	req, _, err := env.workflow.CreateRequest(3, "carol")
	require.NoError(t, err)

	env.extractor.text = "Paid 45.00"
	outcome, err := env.workflow.SubmitReceipt(context.Background(), 3, []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, DecisionDeclined, outcome.Decision)

	stored, err := env.store.GetRequest(3)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.True(t, stored.CreatedAt.Equal(req.CreatedAt), "window is not extended")

	// Second screenshot with the right amount goes through
	env.extractor.text = "Paid 50.00"
	outcome, err = env.workflow.SubmitReceipt(context.Background(), 3, []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, outcome.Decision)
}

func TestOCRFailureDeclines(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(4, "dan")
	require.NoError(t, err)

	env.extractor.err = errors.New("service exploded")
	outcome, err := env.workflow.SubmitReceipt(context.Background(), 4, []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, DecisionDeclined, outcome.Decision)
	assert.NotEmpty(t, outcome.Reasons)
	assert.Empty(t, env.transport.approves)
}

func TestSubmitWithoutRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.workflow.SubmitReceipt(context.Background(), 99, []byte("img"))
	assert.ErrorIs(t, err, apperrors.ErrNoActiveRequest)
}

func TestSecondReceiptWhileVerifying(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(5, "eve")
	require.NoError(t, err)
	require.NoError(t, env.store.SetStatus(5, StatusVerifying, nil))

	_, err = env.workflow.SubmitReceipt(context.Background(), 5, []byte("img"))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyVerifying)
}

func TestDuplicateCreateReturnsExisting(t *testing.T) {
	env := newTestEnv(t, nil)

	first, created, err := env.workflow.CreateRequest(6, "frank")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := env.workflow.CreateRequest(6, "frank")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Reference, second.Reference)

	live, err := env.workflow.PendingRequests()
	require.NoError(t, err)
	assert.Len(t, live, 1, "at most one live record per user")
}

func TestSweepExpired(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.PaymentConfig) {
		cfg.RequestTimeout = 600 * time.Second
	})

	_, _, err := env.workflow.CreateRequest(7, "grace")
	require.NoError(t, err)

	// Not yet expired
	expired, err := env.workflow.SweepExpired(env.now.Add(599 * time.Second))
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = env.workflow.SweepExpired(env.now.Add(601 * time.Second))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(7), expired[0].UserID)
	assert.Equal(t, StatusExpired, expired[0].Status)

	// Second sweep with the same now is a no-op
	expired, err = env.workflow.SweepExpired(env.now.Add(601 * time.Second))
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestSetPriceDoesNotAffectInFlightRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	reqA, _, err := env.workflow.CreateRequest(8, "old-price")
	require.NoError(t, err)
	assert.Equal(t, int64(50), reqA.Amount)

	require.NoError(t, env.workflow.SetPrice(75))

	// The in-flight request still verifies against 50
	outcome, err := env.workflow.ResolveVerification(context.Background(), 8, "Paid 50.00")
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, outcome.Decision)

	reqB, _, err := env.workflow.CreateRequest(9, "new-price")
	require.NoError(t, err)
	assert.Equal(t, int64(75), reqB.Amount)

	outcome, err = env.workflow.ResolveVerification(context.Background(), 9, "Paid 50.00")
	require.NoError(t, err)
	assert.Equal(t, DecisionDeclined, outcome.Decision)
}

func TestTransportFailureNeverMarksApproved(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(10, "harry")
	require.NoError(t, err)

	env.transport.approveErr = errors.New("telegram down")
	env.extractor.text = "Paid 50.00"
	_, err = env.workflow.SubmitReceipt(context.Background(), 10, []byte("img"))
	assert.ErrorIs(t, err, apperrors.ErrTransportFailure)

	stored, err := env.store.GetRequest(10)
	require.NoError(t, err)
	assert.Equal(t, StatusVerifying, stored.Status, "request stays verifying until a confirmed call")

	history, err := env.workflow.History(10, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	// Admin finishes the job once the transport recovers
	env.transport.approveErr = nil
	outcome, err := env.workflow.AdminOverride(context.Background(), 10, DecisionApproved)
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, outcome.Decision)
	assert.NotEmpty(t, outcome.JoinToken)

	stored, err = env.store.GetRequest(10)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestAdminOverride(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.workflow.AdminOverride(context.Background(), 42, DecisionApproved)
	assert.ErrorIs(t, err, apperrors.ErrUnknownUser)

	_, _, err = env.workflow.CreateRequest(11, "iris")
	require.NoError(t, err)

	outcome, err := env.workflow.AdminOverride(context.Background(), 11, DecisionDeclined)
	require.NoError(t, err)
	assert.Equal(t, DecisionDeclined, outcome.Decision)
	assert.Equal(t, []int64{11}, env.transport.declines)

	stored, err := env.store.GetRequest(11)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, stored.Status)

	// Override still works on the recently-terminal record
	outcome, err = env.workflow.AdminOverride(context.Background(), 11, DecisionApproved)
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, outcome.Decision)
}

func TestExpiredRequestRejectedOnTouch(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(12, "jack")
	require.NoError(t, err)

	env.advance(11 * time.Minute)
	_, err = env.workflow.SubmitReceipt(context.Background(), 12, []byte("img"))
	assert.ErrorIs(t, err, apperrors.ErrRequestExpired)

	stored, err := env.store.GetRequest(12)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, stored.Status)

	// A fresh request can be created afterwards
	_, created, err := env.workflow.CreateRequest(12, "jack")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestTokenLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(13, "kate")
	require.NoError(t, err)

	env.extractor.text = "Paid 50.00"
	outcome, err := env.workflow.SubmitReceipt(context.Background(), 13, []byte("img"))
	require.NoError(t, err)
	token := outcome.JoinToken
	require.NotEmpty(t, token)

	_, err = env.workflow.ValidateToken(token, 14)
	assert.ErrorIs(t, err, ErrTokenWrongOwner)

	_, err = env.workflow.ValidateToken("no-such-token", 13)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	got, err := env.workflow.ValidateToken(token, 13)
	require.NoError(t, err)
	assert.Equal(t, int64(13), got.UserID)

	used, err := env.workflow.HasUsedToken(13)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, env.workflow.ConsumeToken(token))

	_, err = env.workflow.ValidateToken(token, 13)
	assert.ErrorIs(t, err, ErrTokenUsed)

	used, err = env.workflow.HasUsedToken(13)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestTokenExpires(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _, err := env.workflow.CreateRequest(15, "liam")
	require.NoError(t, err)

	env.extractor.text = "Paid 50.00"
	outcome, err := env.workflow.SubmitReceipt(context.Background(), 15, []byte("img"))
	require.NoError(t, err)

	env.advance(2 * time.Hour)
	_, err = env.workflow.ValidateToken(outcome.JoinToken, 15)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSetPriceRejectsNonPositive(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Error(t, env.workflow.SetPrice(0))
	assert.Error(t, env.workflow.SetPrice(-10))

	price, err := env.workflow.Price()
	require.NoError(t, err)
	assert.Equal(t, int64(50), price, "default price untouched")
}
