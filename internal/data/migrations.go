package data

import (
	"context"
	"database/sql"

	"github.com/worksuite/identity-api/internal/migrate"
)

// RunMigrations brings the schema up to date. It delegates to the migrate
// package so the data layer stays the single entry point for schema setup.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
