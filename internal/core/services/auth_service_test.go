package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/metrics"
)

func newAuthService(e *testEnv) (*AuthService, *session.MemoryStore) {
	store := session.NewMemoryStore(zap.NewNop(), e.clock, 24*time.Hour)
	return NewAuthService(e.users, store, e.hasher, e.clock, metrics.New(), zap.NewNop(), e.cfg), store
}

func TestLoginRegeneratesSessionID(t *testing.T) {
	env := newTestEnv(t)
	auth, store := newAuthService(env)
	ctx := context.Background()
	user := env.seedUser(t, "alice", domain.RoleManager)

	sess := &domain.Session{}
	require.NoError(t, store.Save(ctx, sess))
	anonymousID := sess.ID
	require.NotEmpty(t, anonymousID)

	got, err := auth.Login(ctx, sess, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEqual(t, anonymousID, sess.ID)
	assert.True(t, sess.Authenticated)
	assert.Equal(t, domain.RoleManager, sess.Role)

	// the pre-login identifier is dead
	_, err = store.Get(ctx, anonymousID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.UserID)
}

func TestLoginByEmail(t *testing.T) {
	env := newTestEnv(t)
	auth, _ := newAuthService(env)
	env.seedUser(t, "alice", domain.RoleMember)

	_, err := auth.Login(context.Background(), &domain.Session{}, "alice@example.org", testPassword)
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	auth, _ := newAuthService(env)
	ctx := context.Background()
	user := env.seedUser(t, "alice", domain.RoleMember)

	sess := &domain.Session{}
	_, err := auth.Login(ctx, sess, "nobody", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = auth.Login(ctx, sess, "", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.False(t, sess.Authenticated)

	user.IsActive = false
	require.NoError(t, env.users.Update(ctx, user))
	_, err = auth.Login(ctx, sess, "alice", testPassword)
	assert.ErrorIs(t, err, domain.ErrAccountDisabled)
	assert.False(t, sess.Authenticated)
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t)
	auth, _ := newAuthService(env)
	ctx := context.Background()
	env.seedUser(t, "alice", domain.RoleMember)

	for i := 0; i < env.cfg.Security.LockoutThreshold; i++ {
		_, err := auth.Login(ctx, &domain.Session{}, "alice", "wrong-password")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// correct password is refused while locked
	_, err := auth.Login(ctx, &domain.Session{}, "alice", testPassword)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))

	env.clock.Advance(env.cfg.Security.LockoutDuration + time.Second)
	_, err = auth.Login(ctx, &domain.Session{}, "alice", testPassword)
	assert.NoError(t, err)
}

func TestCheckIdleTimeout(t *testing.T) {
	env := newTestEnv(t)
	auth, store := newAuthService(env)
	ctx := context.Background()
	env.seedUser(t, "alice", domain.RoleBoard)

	sess := &domain.Session{}
	_, err := auth.Login(ctx, sess, "alice", testPassword)
	require.NoError(t, err)

	// activity slides the window
	env.clock.Advance(20 * time.Minute)
	assert.True(t, auth.Check(ctx, sess))
	env.clock.Advance(20 * time.Minute)
	assert.True(t, auth.Check(ctx, sess))
	assert.True(t, auth.HasPermission(ctx, sess, domain.PermInviteMembers))
	assert.False(t, auth.HasPermission(ctx, sess, domain.PermManageUsers))
	assert.True(t, auth.HasRole(ctx, sess, domain.RoleBoard))
	assert.False(t, auth.HasRole(ctx, sess, domain.RoleAlumniBoard))

	id := sess.ID
	env.clock.Advance(31 * time.Minute)
	assert.False(t, auth.Check(ctx, sess))
	assert.False(t, sess.Authenticated)
	assert.Empty(t, sess.ID)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = auth.CurrentUser(ctx, sess)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestCheckFollowsAccountChanges(t *testing.T) {
	env := newTestEnv(t)
	auth, store := newAuthService(env)
	users := NewUserService(env.users, env.hasher, zap.NewNop())
	ctx := context.Background()
	admin := env.seedUser(t, "root", domain.RoleAdmin)
	env.seedUser(t, "alice", domain.RoleManager)
	env.seedUser(t, "bob", domain.RoleMember)

	alice := &domain.Session{}
	_, err := auth.Login(ctx, alice, "alice", testPassword)
	require.NoError(t, err)
	require.True(t, auth.HasPermission(ctx, alice, domain.PermManageInventory))

	demoted := string(domain.RoleMember)
	_, err = users.UpdateUserByAdmin(ctx, actorOf(admin), alice.UserID, &UpdateUserByAdminInput{Role: &demoted})
	require.NoError(t, err)

	assert.False(t, auth.HasPermission(ctx, alice, domain.PermManageInventory))
	assert.True(t, auth.HasPermission(ctx, alice, domain.PermViewInventory))
	assert.Equal(t, domain.RoleMember, alice.Role)
	stored, err := store.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, stored.Role)

	inactive := false
	_, err = users.UpdateUserByAdmin(ctx, actorOf(admin), alice.UserID, &UpdateUserByAdminInput{IsActive: &inactive})
	require.NoError(t, err)
	id := alice.ID
	assert.False(t, auth.Check(ctx, alice))
	assert.False(t, alice.Authenticated)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	bob := &domain.Session{}
	_, err = auth.Login(ctx, bob, "bob", testPassword)
	require.NoError(t, err)
	require.NoError(t, users.DeleteUser(ctx, actorOf(admin), bob.UserID))
	assert.False(t, auth.Check(ctx, bob))
	_, err = auth.CurrentUser(ctx, bob)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	auth, store := newAuthService(env)
	ctx := context.Background()
	user := env.seedUser(t, "alice", domain.RoleMember)

	sess := &domain.Session{}
	_, err := auth.Login(ctx, sess, "alice", testPassword)
	require.NoError(t, err)

	me, err := auth.CurrentUser(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	id := sess.ID
	require.NoError(t, auth.Logout(ctx, sess))
	assert.Equal(t, domain.Session{}, *sess)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, auth.Check(ctx, sess))
}

func TestCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	store := session.NewMemoryStore(zap.NewNop(), env.clock, time.Hour)
	csrf := NewCSRFService(store)
	ctx := context.Background()

	sess := &domain.Session{}
	first, err := csrf.GetToken(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := csrf.GetToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first, stored.CSRFToken)

	assert.NoError(t, csrf.VerifyToken(sess, first))
	assert.ErrorIs(t, csrf.VerifyToken(sess, "forged"), domain.ErrCSRFMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(sess, ""), domain.ErrCSRFMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(&domain.Session{}, first), domain.ErrCSRFMismatch)
}
