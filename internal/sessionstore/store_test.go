package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brindlehq/talentbase/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb), mr
}

func testSession(id string) *models.Session {
	return &models.Session{
		ID:        id,
		AccountID: "acct-1",
		TenantID:  "tenant-1",
		Role:      models.RoleEmployee,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session := testSession("sess-1")
	require.NoError(t, store.Save(ctx, session, time.Hour))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.AccountID, got.AccountID)
	assert.Equal(t, session.TenantID, got.TenantID)
	assert.Equal(t, session.Role, got.Role)
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("sess-1"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_Refresh_SlidesExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("sess-1"), time.Minute))

	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Refresh(ctx, "sess-1", time.Minute))
	mr.FastForward(45 * time.Second)

	// Would have expired without the refresh
	_, err := store.Get(ctx, "sess-1")
	assert.NoError(t, err)
}

func TestStore_Delete_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("sess-1"), time.Hour))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Second delete is not an error
	assert.NoError(t, store.Delete(ctx, "sess-1"))
}

func TestStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(rdb)
	mr.Close()

	err := store.Save(context.Background(), testSession("sess-1"), time.Hour)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))
}

func TestPendingStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := NewPendingStore(rdb, 10*time.Minute)
	ctx := context.Background()

	pending := &PendingEnrollment{
		AccountID: "acct-1",
		SessionID: "sess-1",
		Secret:    "JBSWY3DPEHPK3PXP",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, pending))

	got, err := store.Get(ctx, "acct-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, pending.Secret, got.Secret)

	// Scoped to the session that started the enrollment
	_, err = store.Get(ctx, "acct-1", "other-session")
	assert.ErrorIs(t, err, models.ErrNoPendingEnrollment)

	require.NoError(t, store.Delete(ctx, "acct-1", "sess-1"))
	_, err = store.Get(ctx, "acct-1", "sess-1")
	assert.ErrorIs(t, err, models.ErrNoPendingEnrollment)
}

func TestPendingStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := NewPendingStore(rdb, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &PendingEnrollment{
		AccountID: "acct-1",
		SessionID: "sess-1",
		Secret:    "JBSWY3DPEHPK3PXP",
	}))

	mr.FastForward(11 * time.Minute)

	_, err := store.Get(ctx, "acct-1", "sess-1")
	assert.ErrorIs(t, err, models.ErrNoPendingEnrollment)
}
