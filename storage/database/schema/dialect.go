package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Dialect abstracts the DDL and catalog inspection differences between engines.
type Dialect interface {
	Name() string
	Quote(ident string) string
	ColumnType(c Column) string
	Literal(v interface{}) string
	TableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error)
	ColumnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error)
	IndexExists(ctx context.Context, q sqlx.QueryerContext, table, index string) (bool, error)
}

// literal renders the dialect independent literals; ok is false for booleans.
func literal(v interface{}, quote func(string) string) (s string, ok bool) {
	switch val := v.(type) {
	case Expr:
		return string(val), true
	case string:
		return quote(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return "", false
	default:
		return quote(fmt.Sprint(val)), true
	}
}

func exists(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Postgres

type postgres struct{}

var Postgres Dialect = postgres{}

func (postgres) Name() string { return "postgres" }

func (postgres) Quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (postgres) ColumnType(c Column) string {
	switch c.Kind {
	case KindID, KindRef:
		return "VARCHAR(36)"
	case KindString:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	case KindBool:
		return "BOOLEAN"
	case KindSmallInt:
		return "SMALLINT"
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "DOUBLE PRECISION"
	case KindTimestamp:
		return "TIMESTAMPTZ"
	case KindDate:
		return "DATE"
	case KindBytes:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

func (postgres) Literal(v interface{}) string {
	if s, ok := literal(v, pq.QuoteLiteral); ok {
		return s
	}
	if v.(bool) {
		return "TRUE"
	}
	return "FALSE"
}

func (postgres) TableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	return exists(ctx, q, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`, table)
}

func (postgres) ColumnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error) {
	return exists(ctx, q, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`, table, column)
}

func (postgres) IndexExists(ctx context.Context, q sqlx.QueryerContext, table, index string) (bool, error) {
	return exists(ctx, q, `
		SELECT COUNT(*) FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = $1 AND indexname = $2`, table, index)
}

// SQLite

type sqlite struct{}

var SQLite Dialect = sqlite{}

func (sqlite) Name() string { return "sqlite" }

func (sqlite) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteSQLiteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (sqlite) ColumnType(c Column) string {
	switch c.Kind {
	case KindString:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	case KindBool:
		return "BOOLEAN"
	case KindSmallInt:
		return "SMALLINT"
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindTimestamp:
		return "DATETIME"
	case KindDate:
		return "DATE"
	case KindBytes:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (sqlite) Literal(v interface{}) string {
	if s, ok := literal(v, quoteSQLiteLiteral); ok {
		return s
	}
	if v.(bool) {
		return "1"
	}
	return "0"
}

func (sqlite) TableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	return exists(ctx, q, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
}

func (d sqlite) ColumnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error) {
	rows, err := q.QueryxContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", d.Quote(table)))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    interface{}
			pk      int
		)
		if err = rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (sqlite) IndexExists(ctx context.Context, q sqlx.QueryerContext, table, index string) (bool, error) {
	return exists(ctx, q, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?`, table, index)
}
