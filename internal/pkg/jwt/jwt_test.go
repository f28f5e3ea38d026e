package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tok, err := GenerateInviteToken("jti-1", "a@x.com", "member", "secret", now, now.Add(72*time.Hour))
	require.NoError(t, err)

	claims, err := ValidateInviteToken(tok, "secret", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "member", claims.Role)
}

func TestInviteTokenExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tok, err := GenerateInviteToken("jti-2", "b@x.com", "alumni", "secret", now, now.Add(time.Hour))
	require.NoError(t, err)

	claims, err := ValidateInviteToken(tok, "secret", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, "jti-2", claims.ID)
}

func TestInviteTokenWrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := GenerateInviteToken("jti-3", "c@x.com", "member", "secret", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = ValidateInviteToken(tok, "other", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ValidateInviteToken("not-a-token", "secret", now)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
