package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
	apperrors "github.com/worksuite/identity-api/internal/errors"
	"github.com/worksuite/identity-api/internal/testutil"
)

func newTestUser(email string) *model.User {
	return &model.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		Role:         domainauth.RoleClient,
		Active:       true,
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuvwxyz0123456789abcdefghijklmnopqr",
	}
}

func TestUserRepo_Create_Get_Update(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(db)

		email := fmt.Sprintf("user-%d@example.com", time.Now().UnixNano())
		created, err := repo.Create(ctx, newTestUser(email))
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, email, created.Email)
		assert.Equal(t, domainauth.RoleClient, created.Role)
		assert.True(t, created.Active)
		assert.NotZero(t, created.CreatedAt)

		// get by id
		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Email, got.Email)

		// get by email is case-insensitive
		byEmail, err := repo.GetByEmail(ctx, "  "+upperFirst(email)+"  ")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)

		// role change
		require.NoError(t, repo.UpdateRole(ctx, created.ID, domainauth.RoleManager))
		got, err = repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RoleManager, got.Role)

		// deactivate
		require.NoError(t, repo.SetActive(ctx, created.ID, false))
		got, err = repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(db)

		email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())
		_, err := repo.Create(ctx, newTestUser(email))
		require.NoError(t, err)

		// second insert with different case still collides on lower(email)
		_, err = repo.Create(ctx, newTestUser(upperFirst(email)))
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err), "expected conflict, got: %v", err)
	})
}

func TestUserRepo_Create_ValidationErrors(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(db)

		_, err := repo.Create(ctx, nil)
		require.Error(t, err)

		u := newTestUser("")
		_, err = repo.Create(ctx, u)
		require.Error(t, err)

		u = newTestUser("nohash@example.com")
		u.PasswordHash = ""
		_, err = repo.Create(ctx, u)
		require.Error(t, err)
	})
}

func TestUserRepo_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(db)

		_, err := repo.GetByEmail(ctx, "missing@example.com")
		require.ErrorIs(t, err, ErrUserNotFound)

		missingID := "00000000-0000-0000-0000-000000000000"
		_, err = repo.GetByID(ctx, missingID)
		require.ErrorIs(t, err, ErrUserNotFound)

		require.ErrorIs(t, repo.UpdateRole(ctx, missingID, domainauth.RoleAdmin), ErrUserNotFound)
		require.ErrorIs(t, repo.SetActive(ctx, missingID, false), ErrUserNotFound)
	})
}

func TestUserRepo_ListWithOptions(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(db)

		stamp := time.Now().UnixNano()
		for i, role := range []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleManager, domainauth.RoleClient} {
			u := newTestUser(fmt.Sprintf("list-%d-%d@example.com", stamp, i))
			u.Role = role
			_, err := repo.Create(ctx, u)
			require.NoError(t, err)
		}

		// substring filter on email
		q := fmt.Sprintf("list-%d", stamp)
		users, err := repo.ListWithOptions(ctx, UsersListOptions{Q: testutil.StringPtr(q)})
		require.NoError(t, err)
		assert.Len(t, users, 3)

		// role filter
		mgr := domainauth.RoleManager
		users, err = repo.ListWithOptions(ctx, UsersListOptions{Q: testutil.StringPtr(q), Role: &mgr})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, domainauth.RoleManager, users[0].Role)

		// active filter excludes deactivated accounts
		require.NoError(t, repo.SetActive(ctx, users[0].ID, false))
		users, err = repo.ListWithOptions(ctx, UsersListOptions{
			Q:      testutil.StringPtr(q),
			Active: testutil.BoolPtr(true),
		})
		require.NoError(t, err)
		assert.Len(t, users, 2)

		// sort by email ascending
		users, err = repo.ListWithOptions(ctx, UsersListOptions{Q: testutil.StringPtr(q), Sort: "email", Dir: "asc"})
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Less(t, users[0].Email, users[2].Email)

		// limit/offset
		users, err = repo.ListWithOptions(ctx, UsersListOptions{Q: testutil.StringPtr(q), Limit: 2})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})
}
