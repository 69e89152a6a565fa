package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

const defaultRoleTTL = 5 * time.Minute

// roleEntry is the stored shape of a cached role. The principal ID is
// embedded alongside the role so a record that somehow lands under the
// wrong key reads as a miss instead of leaking another user's role.
type roleEntry struct {
	PrincipalID string          `json:"principal_id"`
	Role        domainauth.Role `json:"role"`
}

// RoleCache is a Redis-backed cache of resolved roles keyed by principal ID.
// Entries expire after a fixed TTL; a miss is never an error. Callers fall
// back to the session's authoritative role on every miss, so nothing here
// is load-bearing for correctness.
type RoleCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RoleCacheOptions configures a RoleCache.
type RoleCacheOptions struct {
	// TTL is the entry lifetime. Zero or negative uses the 5 minute default.
	TTL time.Duration

	// Prefix overrides the "rolecache:" key prefix.
	Prefix string

	Logger *slog.Logger
}

// NewRoleCache creates a Redis-backed role cache.
func NewRoleCache(client redis.UniversalClient, opts RoleCacheOptions) *RoleCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "rolecache:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// TTL reports the configured entry lifetime.
func (c *RoleCache) TTL() time.Duration { return c.ttl }

// Get returns the cached role for principalID. Absent, expired, corrupt,
// and mismatched entries all read as a miss; infrastructure errors are
// logged and also read as a miss.
func (c *RoleCache) Get(ctx context.Context, principalID string) (domainauth.Role, bool) {
	if principalID == "" {
		return "", false
	}

	data, err := c.client.Get(ctx, c.prefix+principalID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "role cache read failed", "error", err)
		}
		return "", false
	}

	var entry roleEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		// Corrupt entry: drop it and miss.
		if delErr := c.client.Del(ctx, c.prefix+principalID).Err(); delErr != nil {
			c.logger.WarnContext(ctx, "role cache cleanup failed", "error", delErr)
		}
		return "", false
	}
	if entry.PrincipalID != principalID || entry.Role == "" {
		return "", false
	}

	return entry.Role, true
}

// Put stores the role for principalID with a fresh TTL, overwriting any
// existing entry.
func (c *RoleCache) Put(ctx context.Context, principalID string, role domainauth.Role) error {
	if principalID == "" {
		return errors.New("principal ID cannot be empty")
	}

	data, err := json.Marshal(roleEntry{PrincipalID: principalID, Role: role})
	if err != nil {
		return fmt.Errorf("marshal role entry: %w", err)
	}

	return c.client.Set(ctx, c.prefix+principalID, data, c.ttl).Err()
}

// Clear removes the entry for principalID. Clearing an absent entry is a no-op.
func (c *RoleCache) Clear(ctx context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+principalID).Err()
}
