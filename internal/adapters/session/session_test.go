package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), zap.NewNop(), config.RedisConfig{Addr: mr.Addr(), Prefix: "test:"}, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

// storeContract checks the behaviour every Store must share
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	sess := &domain.Session{CSRFToken: "tok"}
	require.NoError(t, store.Save(ctx, sess))
	require.Len(t, sess.ID, 64)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.CSRFToken)
	assert.False(t, got.Authenticated)

	oldID := sess.ID
	require.NoError(t, store.Regenerate(ctx, sess))
	assert.NotEqual(t, oldID, sess.ID)

	_, err = store.Get(ctx, oldID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.CSRFToken)

	require.NoError(t, store.Destroy(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// destroying twice is fine
	require.NoError(t, store.Destroy(ctx, sess.ID))
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(zap.NewNop(), clock.Real{}, time.Hour))
}

func TestRedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	storeContract(t, store)
}

func TestMemoryStoreExpiry(t *testing.T) {
	clk := clock.NewMock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(zap.NewNop(), clk, 30*time.Minute)
	ctx := context.Background()

	sess := &domain.Session{}
	require.NoError(t, store.Save(ctx, sess))

	clk.Advance(31 * time.Minute)
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 1, store.Sweep())
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newTestRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	sess := &domain.Session{Authenticated: true, UserID: 7, Role: domain.RoleBoard}
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, 30*time.Minute, mr.TTL("test:"+sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, domain.RoleBoard, got.Role)

	mr.FastForward(31 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	require.NoError(t, mr.Set("test:abc", "{not json"))

	_, err := store.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, mr.Exists("test:abc"))
}

func TestNewRedisStoreConnectionError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := NewRedisStore(ctx, zap.NewNop(), config.RedisConfig{Addr: "127.0.0.1:0"}, time.Minute)
	assert.Nil(t, s)
	assert.Error(t, err)
}

func TestNewStoreFactory(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{Store: "memory", IdleTimeout: time.Minute}}
	s, err := NewStore(context.Background(), zap.NewNop(), cfg, clock.Real{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Session.Store = "etcd"
	_, err = NewStore(context.Background(), zap.NewNop(), cfg, clock.Real{})
	assert.Error(t, err)
}
