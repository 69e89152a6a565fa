// Package devseed creates development user accounts so every role has a
// working login out of the box.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/worksuite/identity-api/internal/adapters/password"
	"github.com/worksuite/identity-api/internal/data"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
)

// DefaultPassword is the password for every seeded account.
// Development only; Run refuses nothing and overwrites nothing.
const DefaultPassword = "changeme123"

type seedUser struct {
	email     string
	firstName string
	lastName  string
	role      domainauth.Role
}

func seedUsers() []seedUser {
	return []seedUser{
		{"root@dev.local", "Root", "User", domainauth.RoleSuperAdmin},
		{"admin@dev.local", "Ada", "Admin", domainauth.RoleAdmin},
		{"manager@dev.local", "Mona", "Manager", domainauth.RoleManager},
		{"employee@dev.local", "Evan", "Employee", domainauth.RoleEmployee},
		{"client@dev.local", "Cleo", "Client", domainauth.RoleClient},
	}
}

// Run inserts one active user per role, skipping accounts that already exist.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	repo := data.NewUserRepo(db)
	hash, err := password.NewBcryptHasher(password.DefaultCost).Hash(DefaultPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	for _, su := range seedUsers() {
		if _, lookupErr := repo.GetByEmail(ctx, su.email); lookupErr == nil {
			logger.InfoContext(ctx, "seed user already exists", "email", su.email)
			continue
		} else if !errors.Is(lookupErr, data.ErrUserNotFound) {
			return fmt.Errorf("look up seed user %s: %w", su.email, lookupErr)
		}

		created, createErr := repo.Create(ctx, &model.User{
			Email:        su.email,
			FirstName:    su.firstName,
			LastName:     su.lastName,
			Role:         su.role,
			Active:       true,
			PasswordHash: hash,
		})
		if createErr != nil {
			return fmt.Errorf("create seed user %s: %w", su.email, createErr)
		}
		logger.InfoContext(ctx, "seeded user", "id", created.ID, "email", created.Email, "role", created.Role)
	}

	return nil
}
