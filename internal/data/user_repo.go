package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/worksuite/identity-api/internal/data/database"
	"github.com/worksuite/identity-api/internal/data/pgxutil"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
	apperrors "github.com/worksuite/identity-api/internal/errors"
)

// ErrUserNotFound is returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UsersListOptions controls paging and filtering for listing users.
// Notes:
// - Q matches email via ILIKE substring.
// - Role and Active match exactly.
// - Sort supports: "created_at", "email" (case-insensitive).
// - Dir supports: "asc", "desc" (case-insensitive); values are normalized internally.
type UsersListOptions struct {
	Limit  int
	Offset int
	Q      *string
	Role   *domainauth.Role
	Active *bool
	Sort   string
	Dir    string
}

// UserRepo provides database operations for user accounts.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

// Create inserts a new user. The caller supplies a validated model with a
// hashed password; duplicate emails map to a Conflict error.
func (r *UserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}
	if user.Email == "" {
		return nil, errors.New("user email is required")
	}
	if user.PasswordHash == "" {
		return nil, errors.New("user password hash is required")
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (
				email, first_name, last_name, role, active, password_hash, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7
			) RETURNING id, email, first_name, last_name, role, active, password_hash, created_at, updated_at
		`,
			strings.ToLower(strings.TrimSpace(user.Email)),
			user.FirstName,
			user.LastName,
			user.Role,
			user.Active,
			user.PasswordHash,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getByQuery(ctx, userGetByIDQuery, "failed to get user by ID", id)
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getByQuery(ctx, userGetByEmailQuery, "failed to get user by email",
		strings.ToLower(strings.TrimSpace(email)))
}

// UpdateRole sets the role for a user.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) error {
	return r.execExpectingRow(ctx, `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`,
		role, r.timeProvider.Now().UTC(), id)
}

// SetActive enables or disables a user account.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.execExpectingRow(ctx, `UPDATE users SET active = $1, updated_at = $2 WHERE id = $3`,
		active, r.timeProvider.Now().UTC(), id)
}

// ListWithOptions retrieves users with optional filters and sorting.
func (r *UserRepo) ListWithOptions(ctx context.Context, opts UsersListOptions) ([]*model.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	queryOpts := r.buildUserQueryOptions(opts, limit, offset)
	query, args := database.BuildListQuery(queryOpts)

	var rowsOut []model.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	res := make([]*model.User, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// --- helpers ---

// SQL query constants for static queries (no dynamic WHERE/ORDER BY).
const (
	userGetByIDQuery = `
		SELECT id, email, first_name, last_name, role, active, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`

	userGetByEmailQuery = `
		SELECT id, email, first_name, last_name, role, active, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1`
)

// userColumns returns the standard column list for user queries.
func userColumns() []string {
	return []string{
		"id",
		"email",
		"first_name",
		"last_name",
		"role",
		"active",
		"password_hash",
		"created_at",
		"updated_at",
	}
}

// buildUserQueryOptions builds query options for user listing with filters and sorting.
func (r *UserRepo) buildUserQueryOptions(
	opts UsersListOptions,
	limit, offset int,
) *database.ListQueryOptions {
	queryOpts := []database.ListQueryOption{
		database.WithColumns(userColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}

	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("email", database.ILike, "%"+strings.TrimSpace(*opts.Q)+"%"),
		))
	}
	if opts.Role != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("role", database.Equal, *opts.Role),
		))
	}
	if opts.Active != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("active", database.Equal, *opts.Active),
		))
	}

	sortCol, sortDir := validateUserSortOptions(opts.Sort, opts.Dir)
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	return database.NewListQueryOptions("users", queryOpts...)
}

// validateUserSortOptions validates and returns safe sort column and direction.
func validateUserSortOptions(sort, dir string) (string, string) {
	sortCol := "created_at"
	sortDir := sortDirDesc

	if sort != "" {
		allowedSorts := map[string]string{
			"email":      "email",
			"created_at": "created_at",
		}
		if validSort, ok := allowedSorts[strings.ToLower(strings.TrimSpace(sort))]; ok {
			sortCol = validSort
		}
	}
	if dir != "" {
		allowedDirs := map[string]string{
			"asc":  sortDirAsc,
			"desc": sortDirDesc,
		}
		if validDir, ok := allowedDirs[strings.ToLower(strings.TrimSpace(dir))]; ok {
			sortDir = validDir
		}
	}
	return sortCol, sortDir
}

// getByQuery executes a query expected to return a single user.
func (r *UserRepo) getByQuery(
	ctx context.Context,
	q string,
	errMsg string,
	args ...any,
) (*model.User, error) {
	var user model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		user, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.User])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return &user, nil
}

// execExpectingRow runs an UPDATE and reports ErrUserNotFound when no row matched.
func (r *UserRepo) execExpectingRow(ctx context.Context, query string, args ...any) error {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
