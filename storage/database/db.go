package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/shule/core"
	appfs "github.com/trezcool/shule/fs"
	"github.com/trezcool/shule/storage/database/schema"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	// MigrationsDir is the directory of the data migrations in appfs.FS
	MigrationsDir = "migrations"
)

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(EnginePostgres, u.String())
}

// SQLiteDSN returns the modernc.org/sqlite DSN of the database file at path, with foreign keys enforced.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

// Open opens the application database of the configured engine.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		return open(conf.Database.Name, false, conf)
	case EngineSQLite:
		return sqlx.Open(EngineSQLite, SQLiteDSN(conf.Database.Path))
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
}

// DialectFor returns the schema.Dialect matching the driver of db.
func DialectFor(db *sqlx.DB) (schema.Dialect, error) {
	switch db.DriverName() {
	case EnginePostgres:
		return schema.Postgres, nil
	case EngineSQLite:
		return schema.SQLite, nil
	default:
		return nil, errors.Errorf("no schema dialect for driver %q", db.DriverName())
	}
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query string, args ...interface{}) (bool, error) {
	var found []bool
	if err := db.Select(&found, query, args...); err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	// check if app user exists
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}

	// create app user if not exist
	if !found {
		q := fmt.Sprintf(
			"CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password),
		)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	// check if DB exists
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}

	// create DB if not exist
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(conf.Database.Name))); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application database (and postgres role) when missing.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine == EngineSQLite {
		if err := os.MkdirAll(filepath.Dir(conf.Database.Path), 0o755); err != nil {
			return errors.Wrap(err, "creating database directory")
		}
		return nil
	}

	// connect as admin
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	if err = createDB(appDB, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// Reconcile brings the database schema up to the declared schema.Tables; dryRun only plans the changes.
func Reconcile(ctx context.Context, db *sqlx.DB, logger core.Logger, dryRun bool) (schema.Report, error) {
	dialect, err := DialectFor(db)
	if err != nil {
		return schema.Report{}, err
	}
	rec := schema.NewReconciler(db, dialect, logger)
	if dryRun {
		return rec.Plan(ctx)
	}
	return rec.Reconcile(ctx)
}

// gooseLogger routes goose output to the app logger.
type gooseLogger struct {
	logger core.Logger
}

func (l gooseLogger) Fatal(v ...interface{}) { l.logger.Fatal(fmt.Sprint(v...)) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal(fmt.Sprintf(format, v...))
}
func (l gooseLogger) Print(v ...interface{})   { l.logger.Info(fmt.Sprint(v...)) }
func (l gooseLogger) Println(v ...interface{}) { l.logger.Info(fmt.Sprint(v...)) }
func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// PrepareMigrations points goose at the embedded data migrations, for the engine of db.
func PrepareMigrations(db *sqlx.DB, logger core.Logger) error {
	goose.SetBaseFS(appfs.FS)
	goose.SetLogger(gooseLogger{logger: logger})

	dialect := db.DriverName()
	if dialect == EngineSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	return nil
}

// Migrate runs a goose command against the embedded data migrations.
// The migrations only move data: structure is handled by Reconcile, which must run first.
func Migrate(db *sqlx.DB, logger core.Logger, command string, args ...string) error {
	if err := PrepareMigrations(db, logger); err != nil {
		return err
	}
	if err := goose.Run(command, db.DB, MigrationsDir, args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Setup creates, opens and brings the database up to date. Any error is fatal to the caller.
func Setup(ctx context.Context, conf *core.Config, logger core.Logger) (*sqlx.DB, error) {
	if err := CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}

	db, err := Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	rep, err := Reconcile(ctx, db, logger, false)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "reconciling schema")
	}
	if rep.Changed() {
		logger.Info(fmt.Sprintf(
			"schema reconciled: %d tables created, %d columns added, %d indexes created, %d indexes skipped",
			len(rep.CreatedTables), len(rep.AddedColumns), len(rep.CreatedIndexes), len(rep.SkippedIndexes),
		))
	}

	if err = Migrate(db, logger, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
