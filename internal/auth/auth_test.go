package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/logger"
)

func TestTokenManager_IssueVerify(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, issued, err := m.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, issued.ID, claims.ID)

	_, second, err := m.Issue(42)
	require.NoError(t, err)
	assert.NotEqual(t, issued.ID, second.ID)
}

func TestTokenManager_RejectsBadTokens(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, _, err := m.Issue(1)
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(1)
	require.NoError(t, err)
	_, err = m.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Passw0rd!"))
	assert.False(t, CheckPassword(hash, "passw0rd!"))
}

func TestRegistry_LocalOnly(t *testing.T) {
	r := NewRegistry(cache.Disabled(logger.Discard()), logger.Discard())
	ctx := context.Background()

	assert.False(t, r.IsRevoked(ctx, "jti-1"))
	r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour))
	assert.True(t, r.IsRevoked(ctx, "jti-1"))
	assert.False(t, r.IsRevoked(ctx, "jti-2"))
}

func TestRegistry_SharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	shared := cache.New(client, logger.Discard())
	ctx := context.Background()

	first := NewRegistry(shared, logger.Discard())
	second := NewRegistry(shared, logger.Discard())

	first.Revoke(ctx, "jti-1", time.Now().Add(time.Hour))
	assert.True(t, second.IsRevoked(ctx, "jti-1"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("revoked:jti-1").Seconds(), 5)

	// the shared entry expires with the token
	mr.FastForward(2 * time.Hour)
	assert.False(t, second.IsRevoked(ctx, "jti-1"))
	assert.True(t, first.IsRevoked(ctx, "jti-1"))
}

func TestRegistry_SharedStoreDownFallsBackToLocal(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := NewRegistry(cache.New(client, logger.Discard()), logger.Discard())
	ctx := context.Background()

	mr.Close()
	r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour))
	assert.True(t, r.IsRevoked(ctx, "jti-1"))
	assert.False(t, r.IsRevoked(ctx, "jti-2"))
}
