package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

func TestRoleCache_PutAndGet(t *testing.T) {
	_, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{})
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "user-1", domainauth.RoleManager))

	role, ok := cache.Get(ctx, "user-1")
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleManager, role)
}

func TestRoleCache_MissIsNotAnError(t *testing.T) {
	_, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{})

	role, ok := cache.Get(context.Background(), "absent")
	assert.False(t, ok)
	assert.Empty(t, role)

	_, ok = cache.Get(context.Background(), "")
	assert.False(t, ok)
}

func TestRoleCache_ExpiresAtTTLBoundary(t *testing.T) {
	mr, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{TTL: 5 * time.Minute})
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "user-1", domainauth.RoleClient))

	// Just inside the TTL: still a hit.
	mr.FastForward(5*time.Minute - time.Second)
	role, ok := cache.Get(ctx, "user-1")
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleClient, role)

	// Past the boundary: a miss.
	mr.FastForward(2 * time.Second)
	_, ok = cache.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestRoleCache_PutRefreshesTTL(t *testing.T) {
	mr, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{TTL: 5 * time.Minute})
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "user-1", domainauth.RoleClient))
	mr.FastForward(4 * time.Minute)

	// Overwrite resets the clock and the value.
	require.NoError(t, cache.Put(ctx, "user-1", domainauth.RoleManager))
	mr.FastForward(4 * time.Minute)

	role, ok := cache.Get(ctx, "user-1")
	assert.True(t, ok)
	assert.Equal(t, domainauth.RoleManager, role)
}

func TestRoleCache_MismatchedEntryIsAMiss(t *testing.T) {
	mr, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{})

	// An entry whose embedded principal ID disagrees with its key must
	// never be served.
	require.NoError(t, mr.Set("rolecache:user-1", `{"principal_id":"user-2","role":"admin"}`))

	_, ok := cache.Get(context.Background(), "user-1")
	assert.False(t, ok)
}

func TestRoleCache_CorruptEntryIsAMiss(t *testing.T) {
	mr, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{})

	require.NoError(t, mr.Set("rolecache:user-1", "{broken"))

	_, ok := cache.Get(context.Background(), "user-1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("rolecache:user-1"))
}

func TestRoleCache_Clear(t *testing.T) {
	_, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{})
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "user-1", domainauth.RoleAdmin))
	require.NoError(t, cache.Clear(ctx, "user-1"))

	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok)

	// Clearing an absent or empty key is a no-op.
	assert.NoError(t, cache.Clear(ctx, "user-1"))
	assert.NoError(t, cache.Clear(ctx, ""))
}

func TestRoleCache_DefaultTTL(t *testing.T) {
	_, client := newTestRedis(t)

	cache := NewRoleCache(client, RoleCacheOptions{})
	assert.Equal(t, 5*time.Minute, cache.TTL())
}
