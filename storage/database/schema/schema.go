// Package schema declares the relational schema of the application and reconciles
// a live database with it: missing tables are created, missing columns added and
// missing indexes created. Nothing is ever dropped or altered.
package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the portable type of a Column. Each Dialect maps it to a native type.
type Kind int

const (
	KindID     Kind = iota // primary key (uuid string)
	KindRef                // foreign key to a KindID column
	KindString             // bounded string, Column.Size characters
	KindText
	KindBool
	KindSmallInt
	KindInt
	KindFloat
	KindTimestamp
	KindDate
	KindBytes
)

var kindNames = map[Kind]string{
	KindID:        "id",
	KindRef:       "ref",
	KindString:    "string",
	KindText:      "text",
	KindBool:      "bool",
	KindSmallInt:  "smallint",
	KindInt:       "int",
	KindFloat:     "float",
	KindTimestamp: "timestamp",
	KindDate:      "date",
	KindBytes:     "bytes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Expr is a raw SQL expression used as a column default (eg. CURRENT_TIMESTAMP).
type Expr string

// ON DELETE actions
const (
	Cascade = "CASCADE"
	SetNull = "SET NULL"
)

type (
	Column struct {
		Name       string
		Kind       Kind
		Size       int // KindString only
		NotNull    bool
		Default    interface{} // nil: no default
		References string      // referenced table (KindRef)
		OnDelete   string
	}

	Index struct {
		Name    string
		Columns []string
		Unique  bool
	}

	Table struct {
		Name    string
		Columns []Column
		Indexes []Index
	}
)

// Addable reports whether the column can be added to a table that already holds rows.
func (c Column) Addable() bool {
	return !c.NotNull || c.Default != nil
}

func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks that the declaration is well formed.
func (t Table) Validate() error {
	if t.Name == "" {
		return errors.New("table name is required")
	}
	if len(t.Columns) == 0 {
		return errors.Errorf("table %s: no columns", t.Name)
	}

	seen := make(map[string]struct{}, len(t.Columns))
	var pks int
	for _, c := range t.Columns {
		if c.Name == "" {
			return errors.Errorf("table %s: column name is required", t.Name)
		}
		if _, ok := seen[c.Name]; ok {
			return errors.Errorf("table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = struct{}{}

		switch c.Kind {
		case KindID:
			pks++
		case KindRef:
			if c.References == "" {
				return errors.Errorf("table %s: column %s references no table", t.Name, c.Name)
			}
			if c.OnDelete == SetNull && c.NotNull {
				return errors.Errorf("table %s: column %s is NOT NULL but set null on delete", t.Name, c.Name)
			}
		case KindString:
			if c.Size <= 0 {
				return errors.Errorf("table %s: column %s has no size", t.Name, c.Name)
			}
		}
	}
	if pks != 1 {
		return errors.Errorf("table %s: exactly one id column is required, got %d", t.Name, pks)
	}

	idxNames := make(map[string]struct{}, len(t.Indexes))
	for _, idx := range t.Indexes {
		if idx.Name == "" || len(idx.Columns) == 0 {
			return errors.Errorf("table %s: index name and columns are required", t.Name)
		}
		if _, ok := idxNames[idx.Name]; ok {
			return errors.Errorf("table %s: duplicate index %s", t.Name, idx.Name)
		}
		idxNames[idx.Name] = struct{}{}
		for _, col := range idx.Columns {
			if _, ok := seen[col]; !ok {
				return errors.Errorf("table %s: index %s on unknown column %s", t.Name, idx.Name, col)
			}
		}
	}
	return nil
}

// columnDef renders the column definition used by CREATE TABLE and ADD COLUMN.
func columnDef(d Dialect, c Column) string {
	var b strings.Builder
	b.WriteString(d.Quote(c.Name))
	b.WriteString(" ")
	b.WriteString(d.ColumnType(c))
	if c.Kind == KindID {
		b.WriteString(" PRIMARY KEY")
	} else if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(d.Literal(c.Default))
	}
	if c.Kind == KindRef {
		fmt.Fprintf(&b, " REFERENCES %s (%s)", d.Quote(c.References), d.Quote("id"))
		if c.OnDelete != "" {
			b.WriteString(" ON DELETE ")
			b.WriteString(c.OnDelete)
		}
	}
	return b.String()
}

func createTableStmt(d Dialect, t Table) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, "\t"+columnDef(d, c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.Quote(t.Name), strings.Join(defs, ",\n"))
}

func addColumnStmt(d Dialect, t Table, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Quote(t.Name), columnDef(d, c))
}

func createIndexStmt(d Dialect, t Table, idx Index) string {
	cols := make([]string, 0, len(idx.Columns))
	for _, col := range idx.Columns {
		cols = append(cols, d.Quote(col))
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, d.Quote(idx.Name), d.Quote(t.Name), strings.Join(cols, ", "))
}
