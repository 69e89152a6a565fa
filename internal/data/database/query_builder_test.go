package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery_Defaults(t *testing.T) {
	query, args := BuildListQuery(NewListQueryOptions("users"))

	assert.Equal(t, `SELECT * FROM "users"`, query)
	assert.Empty(t, args)
}

func TestBuildListQuery_NilOptions(t *testing.T) {
	query, args := BuildListQuery(nil)

	assert.Empty(t, query)
	assert.Nil(t, args)
}

func TestBuildListQuery_ColumnsAndConditions(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithColumns("id", "email", "role"),
		WithCondition(WhereCond("role", Equal, "admin")),
		WithCondition(WhereCond("email", ILike, "%@example.com")),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t,
		`SELECT "id", "email", "role" FROM "users" WHERE "role" = $1 AND "email" ILIKE $2`,
		query)
	assert.Equal(t, []any{"admin", "%@example.com"}, args)
}

func TestBuildListQuery_OrderLimitOffset(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithCondition(WhereCond("active", Equal, true)),
		WithOrderBy("email", "asc"),
		WithLimit(25),
		WithOffset(50),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t,
		`SELECT * FROM "users" WHERE "active" = $1 ORDER BY "email" ASC LIMIT $2 OFFSET $3`,
		query)
	assert.Equal(t, []any{true, 25, 50}, args)
}

func TestBuildListQuery_ZeroLimitIsHonored(t *testing.T) {
	query, args := BuildListQuery(NewListQueryOptions("users", WithLimit(0)))

	assert.Equal(t, `SELECT * FROM "users" LIMIT $1`, query)
	assert.Equal(t, []any{0}, args)
}

func TestBuildListQuery_InvalidOrderDirDropped(t *testing.T) {
	opts := NewListQueryOptions("users", WithOrderBy("email", "sideways"))

	query, _ := BuildListQuery(opts)

	assert.Equal(t, `SELECT * FROM "users" ORDER BY "email"`, query)
}

func TestBuildListQuery_QualifiedIdentifiers(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithColumns("users.id"),
		WithOrderBy("users.created_at", "DESC"),
	)

	query, _ := BuildListQuery(opts)

	assert.Equal(t, `SELECT "users"."id" FROM "users" ORDER BY "users"."created_at" DESC`, query)
}

func TestBuildListQuery_IdentifierQuotingBlocksInjection(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithColumns(`id"; DROP TABLE users; --`),
	)

	query, _ := BuildListQuery(opts)

	// The malicious column arrives as one quoted identifier, not extra SQL.
	assert.Equal(t, `SELECT "id""; DROP TABLE users; --" FROM "users"`, query)
}

func TestBuildListQuery_InCondition(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithConditions(WhereCond("role", In, []string{"admin", "manager"})),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t, `SELECT * FROM "users" WHERE "role" IN ($1, $2)`, query)
	assert.Equal(t, []any{"admin", "manager"}, args)
}

func TestBuildListQuery_EmptyInConditionDropped(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithCondition(WhereCond("role", In, []string{})),
		WithCondition(WhereCond("active", Equal, true)),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t, `SELECT * FROM "users" WHERE "active" = $1`, query)
	assert.Equal(t, []any{true}, args)
}

func TestBuildListQuery_CountOnly(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithCountOnly(),
		WithCondition(WhereCond("active", Equal, true)),
		WithOrderBy("email", "ASC"),
		WithLimit(10),
	)

	query, args := BuildListQuery(opts)

	// Count queries skip ordering and pagination.
	assert.Equal(t, `SELECT COUNT(*) FROM "users" WHERE "active" = $1`, query)
	assert.Equal(t, []any{true}, args)
}

func TestBuildListQuery_RawCondition(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithCondition(WhereCond("active", Equal, true)),
		WithCondition(WhereRawCond("created_at > now() - $1::interval", "1 day")),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t,
		`SELECT * FROM "users" WHERE "active" = $1 AND created_at > now() - $2::interval`,
		query)
	assert.Equal(t, []any{true, "1 day"}, args)
}

func TestBuildListQuery_RawConditionRenumbering(t *testing.T) {
	opts := NewListQueryOptions("users",
		WithCondition(WhereCond("active", Equal, true)),
		WithCondition(WhereRawCond("(role = $1 OR role = $2)", "admin", "super_admin")),
		WithLimit(5),
	)

	query, args := BuildListQuery(opts)

	require.Contains(t, query, "WHERE")
	// Raw placeholders are renumbered highest-first, so $2 lands before $1.
	assert.Equal(t, `SELECT * FROM "users" WHERE "active" = $1 AND (role = $3 OR role = $2) LIMIT $4`, query)
	assert.Equal(t, []any{true, "super_admin", "admin", 5}, args)
}

func TestWhereCond_PanicsOnCustom(t *testing.T) {
	assert.Panics(t, func() {
		WhereCond("field", Custom, nil)
	})
}
