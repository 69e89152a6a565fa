package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
	"github.com/worksuite/identity-api/internal/ports"
)

func TestMockAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()

	input := ports.BeginInput{RedirectURL: "http://localhost:8080/callback"}
	authURL, state, nonce, err := provider.Begin(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	// Second call should increment counters
	authURL2, state2, nonce2, err2 := provider.Begin(ctx, input)
	require.NoError(t, err2)
	assert.Equal(t, "https://mock-idp/auth", authURL2)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockAuthProvider_Begin_CustomFunc(t *testing.T) {
	provider := &MockAuthProvider{
		BeginFunc: func(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
			return "custom-url", "custom-state", "custom-nonce", nil
		},
	}

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{})

	require.NoError(t, err)
	assert.Equal(t, "custom-url", authURL)
	assert.Equal(t, "custom-state", state)
	assert.Equal(t, "custom-nonce", nonce)
}

func TestMockAuthProvider_Exchange_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()

	identity, err := provider.Exchange(context.Background(), ports.ExchangeInput{
		Code:  "auth-code",
		State: "state-1",
		Nonce: "nonce-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", identity.UserID)
	assert.Equal(t, "Mock", identity.FirstName)
	assert.Equal(t, "User", identity.LastName)
	assert.Equal(t, "mock.user@example.com", identity.Email)
	assert.Equal(t, []string{"ws-employees"}, identity.Groups)
	assert.True(t, identity.ExpiresAt.After(time.Now()))
}

func TestMockAuthProvider_Exchange_CustomUser(t *testing.T) {
	provider := &MockAuthProvider{DefaultUser: domainauth.Identity{
		UserID:    "custom-user",
		FirstName: "Custom",
		LastName:  "Person",
		Email:     "custom@example.com",
		Groups:    []string{"ws-admins", "ws-employees"},
	}}

	identity, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "auth-code"})

	require.NoError(t, err)
	assert.Equal(t, "custom-user", identity.UserID)
	assert.Equal(t, []string{"ws-admins", "ws-employees"}, identity.Groups)
	assert.True(t, identity.ExpiresAt.After(time.Now()))
}

func TestMemorySessionStore_SaveAndGet(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := domainauth.Session{
		ID: "test-session-1",
		Principal: domainauth.Principal{
			ID:     "user-123",
			Email:  "user@example.com",
			Role:   domainauth.RoleEmployee,
			Active: true,
		},
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	require.NoError(t, store.Save(ctx, session))

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, session.Principal, retrieved.Principal)
	assert.WithinDuration(t, session.ExpiresAt, retrieved.ExpiresAt, time.Second)
}

func TestMemorySessionStore_GetNonExistent(t *testing.T) {
	store := NewMemorySessionStore()

	_, err := store.Get(context.Background(), "non-existent")
	assert.Equal(t, ErrNotFound, err)

	_, err = store.Get(context.Background(), "")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemorySessionStore_SaveEmptyID(t *testing.T) {
	store := NewMemorySessionStore()

	err := store.Save(context.Background(), domainauth.Session{
		Principal: domainauth.Principal{ID: "user-123", Email: "user@example.com"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session ID cannot be empty")
}

func TestMemorySessionStore_Delete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{
		ID:        "test-session-1",
		Principal: domainauth.Principal{ID: "user-123", Email: "user@example.com"},
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}))

	require.NoError(t, store.Delete(ctx, "test-session-1"))

	_, err := store.Get(ctx, "test-session-1")
	assert.Equal(t, ErrNotFound, err)

	// Deleting an absent or empty ID is a no-op.
	assert.NoError(t, store.Delete(ctx, "test-session-1"))
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestMemoryRoleCache_PutGetClear(t *testing.T) {
	cache := NewMemoryRoleCache()
	ctx := context.Background()

	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, "user-1", domainauth.RoleManager))

	role, ok := cache.Get(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleManager, role)

	require.NoError(t, cache.Clear(ctx, "user-1"))
	_, ok = cache.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestMemoryRoleCache_InjectedErrors(t *testing.T) {
	cache := NewMemoryRoleCache()
	cache.PutErr = errors.New("put failed")
	cache.ClearErr = errors.New("clear failed")

	assert.EqualError(t, cache.Put(context.Background(), "user-1", domainauth.RoleAdmin), "put failed")
	assert.EqualError(t, cache.Clear(context.Background(), "user-1"), "clear failed")
}

func TestMemoryUserRepository_CreateAndLookup(t *testing.T) {
	repo := NewMemoryUserRepository(nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.User{
		Email:  "ada@example.com",
		Role:   domainauth.RoleAdmin,
		Active: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestMemoryUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepository(nil)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.User{Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &model.User{Email: "dup@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate email")
}

func TestMemoryUserRepository_NotFoundErr(t *testing.T) {
	sentinel := errors.New("user missing")
	repo := NewMemoryUserRepository(sentinel)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, sentinel)

	_, err = repo.GetByEmail(ctx, "nope@example.com")
	assert.ErrorIs(t, err, sentinel)

	assert.ErrorIs(t, repo.UpdateRole(ctx, "nope", domainauth.RoleClient), sentinel)
	assert.ErrorIs(t, repo.SetActive(ctx, "nope", false), sentinel)
}

func TestMemoryUserRepository_UpdateRoleAndSetActive(t *testing.T) {
	repo := NewMemoryUserRepository(nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.User{Email: "mona@example.com", Role: domainauth.RoleEmployee, Active: true})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRole(ctx, created.ID, domainauth.RoleManager))
	require.NoError(t, repo.SetActive(ctx, created.ID, false))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleManager, got.Role)
	assert.False(t, got.Active)
}

func TestPlainPasswordHasher(t *testing.T) {
	hasher := PlainPasswordHasher{}

	hash, err := hasher.Hash("secret")
	require.NoError(t, err)
	assert.Equal(t, "plain:secret", hash)

	assert.NoError(t, hasher.Compare(hash, "secret"))
	assert.Error(t, hasher.Compare(hash, "wrong"))

	_, err = hasher.Hash("")
	require.Error(t, err)
}

func TestGroupRoleMapper(t *testing.T) {
	mapper := GroupRoleMapper{
		"ws-admins":    domainauth.RoleAdmin,
		"ws-employees": domainauth.RoleEmployee,
	}

	assert.Equal(t, domainauth.RoleAdmin, mapper.Map([]string{"ws-admins", "ws-employees"}))
	assert.Equal(t, domainauth.RoleEmployee, mapper.Map([]string{"other", "ws-employees"}))
	assert.Equal(t, domainauth.Role(""), mapper.Map([]string{"other"}))
	assert.Equal(t, domainauth.Role(""), mapper.Map(nil))
}
