package verification

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "payments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRequestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	req := &Request{
		UserID:    1,
		Username:  "alice",
		Reference: "tmzbrand123456",
		Amount:    2000,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(20 * time.Minute),
	}
	require.NoError(t, store.SaveRequest(req))

	got, err := store.GetRequest(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.Reference, got.Reference)
	assert.Equal(t, req.Amount, got.Amount)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.OCRAmount)
	assert.True(t, got.CreatedAt.Equal(now))

	missing, err := store.GetRequest(999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetStatusRecordsOCRAmount(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.SaveRequest(&Request{
		UserID:    2,
		Reference: "tmzbrand222222",
		Amount:    2000,
		Status:    StatusVerifying,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	detected := 1950.0
	require.NoError(t, store.SetStatus(2, StatusDeclined, &detected))

	got, err := store.GetRequest(2)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, got.Status)
	require.NotNil(t, got.OCRAmount)
	assert.Equal(t, 1950.0, *got.OCRAmount)
}

func TestLiveRequestsExcludesTerminal(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	for i, status := range []Status{StatusPending, StatusVerifying, StatusApproved, StatusDeclined, StatusExpired} {
		require.NoError(t, store.SaveRequest(&Request{
			UserID:    int64(i + 1),
			Reference: NewReference(),
			Amount:    100,
			Status:    status,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	live, err := store.LiveRequests()
	require.NoError(t, err)
	require.Len(t, live, 2)
	for _, req := range live {
		assert.True(t, req.Status.Live())
	}
}

func TestPricePersistence(t *testing.T) {
	store := newTestStore(t)

	price, err := store.Price(2000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), price, "default used before first set")

	require.NoError(t, store.SetPrice(3500))
	price, err = store.Price(2000)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), price)

	require.NoError(t, store.SetPrice(4000))
	price, err = store.Price(2000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), price)
}

func TestStatsAndHistory(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.SaveRequest(&Request{
		UserID: 1, Reference: "tmzbrand111111", Amount: 100,
		Status: StatusPending, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, store.AddVerified(VerifiedPayment{
		Reference: "tmzbrand222222", UserID: 2, Username: "bob",
		Amount: 2000, VerifiedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.AddVerified(VerifiedPayment{
		Reference: "tmzbrand333333", UserID: 2, Username: "bob",
		Amount: 3500, VerifiedAt: now,
	}))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 2, stats.VerifiedCount)
	assert.Equal(t, int64(5500), stats.TotalAmount)

	history, err := store.History(2, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "tmzbrand333333", history[0].Reference, "newest first")

	history, err = store.History(2, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTokenStore(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.AddToken(JoinToken{
		Token: "tok-live", UserID: 1,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.AddToken(JoinToken{
		Token: "tok-stale", UserID: 2,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	got, err := store.GetToken("tok-live")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Used)

	missing, err := store.GetToken("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	used, err := store.HasUsedToken(1)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, store.MarkTokenUsed("tok-live"))
	got, err = store.GetToken("tok-live")
	require.NoError(t, err)
	assert.True(t, got.Used)

	used, err = store.HasUsedToken(1)
	require.NoError(t, err)
	assert.True(t, used)

	// Prune removes only stale unused tokens
	require.NoError(t, store.DeleteExpiredTokens(now))
	stale, err := store.GetToken("tok-stale")
	require.NoError(t, err)
	assert.Nil(t, stale)
	kept, err := store.GetToken("tok-live")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestNewReferenceFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		ref := NewReference()
		assert.Len(t, ref, len("tmzbrand")+6)
		assert.Regexp(t, `^tmzbrand[0-9]{6}$`, ref)
	}
}
