// Package database builds parameterized list queries for the data layer.
// Identifiers are quoted with pgx so callers can pass column names from
// request filters without risking injection; values always travel as
// positional arguments.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType selects the SQL operator for a Condition.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	Like               ConditionType = "LIKE"
	ILike              ConditionType = "ILIKE"
	In                 ConditionType = "IN"
	Custom             ConditionType = "CUSTOM"
)

// unsetBound marks Limit/Offset as "not requested" so zero stays usable.
const unsetBound = -1

// Condition is a single WHERE predicate.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
	raw   string
}

// WhereCond builds a field/operator/value predicate.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		//nolint:forbidigo // panic prevents misuse; raw SQL must go through WhereRawCond.
		panic("use WhereRawCond for Custom conditions")
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond builds a predicate from a raw SQL fragment. Placeholders in
// the fragment must be numbered $1..$n relative to params; they are renumbered
// into the final query. The fragment itself is trusted and not sanitized.
func WhereRawCond(rawQuery string, params ...any) Condition {
	return Condition{Type: Custom, raw: rawQuery, Value: params}
}

// ListQueryOptions describes a SELECT over a single table.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions applies opts over a table-scoped default.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{
		Table:  table,
		Limit:  unsetBound,
		Offset: unsetBound,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

// WithCondition appends a predicate.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithConditions replaces the predicate list.
func WithConditions(conds ...Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = conds }
}

// WithOrderBy sets the ordering column and direction.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the row limit; zero is honored, negatives are ignored.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the row offset; zero is honored, negatives are ignored.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly switches the projection to COUNT(*).
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// BuildListQuery renders options into a SQL string and its arguments.
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(selectClause(options))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(options.Table))

	args := make([]any, 0, len(options.Conditions)+2)
	predicates := make([]string, 0, len(options.Conditions))
	next := 1
	for _, cond := range options.Conditions {
		sql, condArgs, n := renderCondition(cond, next)
		if sql == "" {
			continue
		}
		predicates = append(predicates, sql)
		args = append(args, condArgs...)
		next = n
	}
	if len(predicates) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(predicates, " AND "))
	}

	if options.CountOnly {
		return sb.String(), args
	}

	if options.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(quoteQualifiedIdent(options.OrderBy))
		if dir := strings.ToUpper(options.OrderDir); dir == "ASC" || dir == "DESC" {
			sb.WriteString(" ")
			sb.WriteString(dir)
		}
	}
	if options.Limit != unsetBound {
		fmt.Fprintf(&sb, " LIMIT $%d", next)
		args = append(args, options.Limit)
		next++
	}
	if options.Offset != unsetBound {
		fmt.Fprintf(&sb, " OFFSET $%d", next)
		args = append(args, options.Offset)
	}

	return sb.String(), args
}

func selectClause(options *ListQueryOptions) string {
	if options.CountOnly {
		return "SELECT COUNT(*)"
	}
	if len(options.Columns) == 0 {
		return "SELECT *"
	}
	quoted := make([]string, len(options.Columns))
	for i, col := range options.Columns {
		quoted[i] = quoteQualifiedIdent(col)
	}
	return "SELECT " + strings.Join(quoted, ", ")
}

func renderCondition(cond Condition, next int) (string, []any, int) {
	if cond.Type == Custom {
		return renderRawCondition(cond, next)
	}
	if cond.Field == "" {
		return "", nil, next
	}
	field := quoteQualifiedIdent(cond.Field)

	if cond.Type == In {
		values := sliceValues(cond.Value)
		if len(values) == 0 {
			return "", nil, next
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", next)
			next++
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), values, next
	}

	switch cond.Type {
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual, Like, ILike:
		return fmt.Sprintf("%s %s $%d", field, cond.Type, next), []any{cond.Value}, next + 1
	default:
		return "", nil, next
	}
}

// renderRawCondition renumbers $1..$n placeholders in a raw fragment to the
// query's running parameter index. Parameters are bound in placeholder order.
func renderRawCondition(cond Condition, next int) (string, []any, int) {
	if cond.raw == "" {
		return "", nil, next
	}
	params := sliceValues(cond.Value)
	if len(params) == 0 {
		return cond.raw, nil, next
	}

	// Two passes so a renumbered placeholder is never rewritten again
	// (e.g. $1 -> $2 colliding with the fragment's own $2). Highest
	// placeholders go first so $1 cannot clobber the prefix of $10.
	sql := cond.raw
	args := make([]any, 0, len(params))
	finals := make([]string, 0, 2*len(params))
	for i := len(params) - 1; i >= 0; i-- {
		old := fmt.Sprintf("$%d", i+1)
		if !strings.Contains(sql, old) {
			continue
		}
		tmp := fmt.Sprintf("\x00%d\x00", i)
		sql = strings.ReplaceAll(sql, old, tmp)
		finals = append(finals, tmp, fmt.Sprintf("$%d", next))
		args = append(args, params[i])
		next++
	}
	sql = strings.NewReplacer(finals...).Replace(sql)
	return sql, args, next
}

// sliceValues flattens a slice of any element type into []any.
func sliceValues(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func quoteIdent(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// quoteQualifiedIdent quotes identifiers that may be qualified ("t.col").
func quoteQualifiedIdent(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}
