package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDenylist(t *testing.T) (TokenDenylist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisDenylist(rdb), mr
}

func TestDenylist_RevokeAndLookup(t *testing.T) {
	dl, _ := setupDenylist(t)
	ctx := context.Background()

	revoked, err := dl.IsRevoked(ctx, "sig-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "sig-a", time.Minute))

	revoked, err = dl.IsRevoked(ctx, "sig-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Other signatures remain unaffected.
	revoked, err = dl.IsRevoked(ctx, "sig-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylist_EntryExpiresWithToken(t *testing.T) {
	dl, mr := setupDenylist(t)
	ctx := context.Background()

	require.NoError(t, dl.Revoke(ctx, "sig-a", time.Second))
	mr.FastForward(2 * time.Second)

	revoked, err := dl.IsRevoked(ctx, "sig-a")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestDenylist_ExpiredTokenIsNoop(t *testing.T) {
	dl, mr := setupDenylist(t)
	ctx := context.Background()

	require.NoError(t, dl.Revoke(ctx, "sig-a", -time.Second))
	assert.Empty(t, mr.Keys())
}
