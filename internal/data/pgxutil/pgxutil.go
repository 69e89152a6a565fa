// Package pgxutil bridges database/sql connections to native pgx connections.
// Repositories keep *sql.DB for pooling and migrations but talk to Postgres
// through pgx for typed scanning and error detail.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// WithPgxConn checks a connection out of db's pool, unwraps the underlying
// *pgx.Conn via the stdlib driver, and runs fn with it. The connection is
// returned to the pool when fn finishes.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer conn.Close() //nolint:errcheck // returning the pooled conn is best-effort

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("driver connection is not *stdlib.Conn; was the pgx stdlib driver registered?")
		}
		return fn(std.Conn())
	})
}
