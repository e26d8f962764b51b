package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// Report lists what a reconciliation did, or would do when planned.
type Report struct {
	CreatedTables  []string `json:"created_tables"`
	AddedColumns   []string `json:"added_columns"` // table.column
	CreatedIndexes []string `json:"created_indexes"`
	SkippedIndexes []string `json:"skipped_indexes"` // creation failed; logged and ignored
	Statements     []string `json:"statements"`
}

// Changed reports whether the database differed from the declared schema.
func (r Report) Changed() bool {
	return len(r.CreatedTables) > 0 || len(r.AddedColumns) > 0 || len(r.CreatedIndexes) > 0 || len(r.SkippedIndexes) > 0
}

// Reconciler brings a database up to the declared schema.
// Tables are checked in order, one statement at a time, without an enclosing transaction:
// work done before a failure is kept.
type Reconciler struct {
	db      sqlx.ExtContext
	dialect Dialect
	logger  core.Logger
	tables  []Table
}

// NewReconciler returns a Reconciler for tables, or for the application schema when none is given.
func NewReconciler(db sqlx.ExtContext, dialect Dialect, logger core.Logger, tables ...Table) *Reconciler {
	// dialects are struct values, which vala cannot check for nil
	if dialect == nil {
		panic("schema.NewReconciler: dialect must not be nil")
	}
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if len(tables) == 0 {
		tables = Tables()
	}
	return &Reconciler{
		db:      db,
		dialect: dialect,
		logger:  logger,
		tables:  tables,
	}
}

// Reconcile creates missing tables, adds missing columns and creates missing indexes.
// Index creation failures (eg. duplicate rows under a new unique index) are logged and reported as skipped;
// any other failure stops the reconciliation and is returned.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	return r.run(ctx, false)
}

// Plan inspects the database and returns the statements Reconcile would execute, without executing them.
func (r *Reconciler) Plan(ctx context.Context) (Report, error) {
	return r.run(ctx, true)
}

func (r *Reconciler) run(ctx context.Context, dryRun bool) (Report, error) {
	var rep Report
	for _, t := range r.tables {
		if err := t.Validate(); err != nil {
			return rep, errors.Wrap(err, "invalid schema")
		}
	}
	for _, t := range r.tables {
		if err := r.reconcileTable(ctx, t, dryRun, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Reconciler) reconcileTable(ctx context.Context, t Table, dryRun bool, rep *Report) error {
	d := r.dialect

	exists, err := d.TableExists(ctx, r.db, t.Name)
	if err != nil {
		return errors.Wrapf(err, "checking table %s", t.Name)
	}

	if !exists {
		stmt := createTableStmt(d, t)
		if err = r.exec(ctx, stmt, dryRun, rep); err != nil {
			return errors.Wrapf(err, "creating table %s", t.Name)
		}
		rep.CreatedTables = append(rep.CreatedTables, t.Name)
		r.logger.Info(fmt.Sprintf("schema: created table %s", t.Name))
	} else {
		for _, c := range t.Columns {
			found, err := d.ColumnExists(ctx, r.db, t.Name, c.Name)
			if err != nil {
				return errors.Wrapf(err, "checking column %s.%s", t.Name, c.Name)
			}
			if found {
				continue
			}
			if !c.Addable() {
				return errors.Errorf("column %s.%s is NOT NULL without a default and cannot be added", t.Name, c.Name)
			}
			if err = r.exec(ctx, addColumnStmt(d, t, c), dryRun, rep); err != nil {
				return errors.Wrapf(err, "adding column %s.%s", t.Name, c.Name)
			}
			rep.AddedColumns = append(rep.AddedColumns, t.Name+"."+c.Name)
			r.logger.Info(fmt.Sprintf("schema: added column %s.%s", t.Name, c.Name))
		}
	}

	for _, idx := range t.Indexes {
		found := false
		if exists {
			if found, err = d.IndexExists(ctx, r.db, t.Name, idx.Name); err != nil {
				return errors.Wrapf(err, "checking index %s", idx.Name)
			}
		}
		if found {
			continue
		}
		if err = r.exec(ctx, createIndexStmt(d, t, idx), dryRun, rep); err != nil {
			r.logger.Warn(fmt.Sprintf("schema: skipped index %s on %s: %v", idx.Name, t.Name, err), err)
			rep.SkippedIndexes = append(rep.SkippedIndexes, idx.Name)
			continue
		}
		rep.CreatedIndexes = append(rep.CreatedIndexes, idx.Name)
	}
	return nil
}

func (r *Reconciler) exec(ctx context.Context, stmt string, dryRun bool, rep *Report) error {
	if !dryRun {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	rep.Statements = append(rep.Statements, stmt)
	return nil
}
