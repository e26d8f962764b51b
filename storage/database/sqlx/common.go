// Package sqlxrepos implements the domain repositories over database/sql with jmoiron/sqlx.
// Queries are written with "?" bindvars and rebound for the driver in use (postgres or sqlite).
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/shule/core"
)

const pqUniqueViolation = "23505"

// repo holds the default executor of a repository.
type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}

// trapNoRowsErr maps "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a unique constraint/index violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// where accumulates AND-ed conditions and their args.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// orderBy renders an ORDER BY clause; fields are mapped to columns through allowed, unknown fields are dropped.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, dflt string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return " ORDER BY " + dflt
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// rebind expands IN (?) slice args and rebinds query for the driver of exe.
func rebind(exe core.DBExecutor, query string, args []interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return exe.Rebind(query), args, nil
}

func selectContext(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	query, args, err := rebind(exe, query, args)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, exe, dest, query, args...)
}

func getContext(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	query, args, err := rebind(exe, query, args)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exe, dest, query, args...)
}

func execContext(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (int64, error) {
	query, args, err := rebind(exe, query, args)
	if err != nil {
		return 0, err
	}
	res, err := exe.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insertStmt renders an INSERT of cols into table.
func insertStmt(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

// setList renders "a = ?, b = ?" for an UPDATE.
func setList(cols []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	return strings.Join(sets, ", ")
}

// conversions

func nullString(s string) null.String { return null.NewString(s, s != "") }

func nullTime(t *time.Time) null.Time {
	if t == nil || t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullInt(i *int) null.Int {
	if i == nil {
		return null.Int{}
	}
	return null.IntFrom(*i)
}

func intPtr(i null.Int) *int {
	if !i.Valid {
		return nil
	}
	v := i.Int
	return &v
}
