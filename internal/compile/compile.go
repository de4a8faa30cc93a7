// Package compile implements the Type-to-Table Compiler of spec.md §4.2:
// walking a class's algebraic type to produce the ordered column list, the
// NOT-NULL/NULL partition coproducts induce, the foreign-key edges
// references induce, and (as the ambient DDL-rendering addition SPEC_FULL.md
// describes) literal CREATE TABLE text for internal/db to execute.
//
// The walk is grounded on internal/querysql/compile.go's type-switch-driven
// SQL-fragment builder, adapted from compiling query predicates to
// compiling algebraic type trees.
package compile

import (
	"fmt"
	"strings"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/path"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// SQL column affinities this compiler ever emits.
const (
	SQLInteger = "INTEGER"
	SQLText    = "TEXT"
	SQLReal    = "REAL"
	SQLBlob    = "BLOB"
)

// Column describes one emitted column: its path-derived name, its SQL
// affinity, whether it may hold NULL, and (for reference-typed columns)
// the table it's a foreign key into.
type Column struct {
	Name     string
	Path     path.Path
	SQLType  string
	Nullable bool
	RefTable string // "" unless this column is a reference's foreign key
}

// CoproductSite records one coproduct node encountered during compilation:
// the column holding its option index, and for each option (in schema
// order) the full set of columns — including nested descendants — that
// belong exclusively to that option. internal/shred uses this to null out
// every sibling-option column on write (spec.md §4.4, §9).
type CoproductSite struct {
	IndexColumn string
	Path        path.Path
	Options     []OptionColumns
}

// OptionColumns names the columns exclusively owned by one coproduct
// option.
type OptionColumns struct {
	Key     string
	Columns []string
}

// Table is the compiled layout for one class: its table name, ordered
// columns (pre-order traversal order, which is also canonical row order
// per spec.md §4.2), and the coproduct sites within it.
type Table struct {
	ClassKey    string
	ClassIndex  int
	Name        string
	Columns     []Column
	Coproducts  []CoproductSite
	columnIndex map[string]int
}

// ColumnIndex returns the position of a column by name within t.Columns.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.columnIndex[name]
	return i, ok
}

// ColumnNames returns the names of t.Columns in order, excluding the
// reserved "id" primary key.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// DDL renders the CREATE TABLE statement for t. Rendering is a pure
// function of t's fields, so re-compiling the same schema always produces
// byte-identical text (spec.md §4.2's "regenerated DDL matches existing
// tables byte-for-byte" requirement).
func (t *Table) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)
	fmt.Fprintf(&b, "\t%s INTEGER PRIMARY KEY AUTOINCREMENT", path.ReservedColumnName)
	for _, c := range t.Columns {
		b.WriteString(",\n\t")
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.SQLType)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	for _, c := range t.Columns {
		if c.RefTable != "" {
			fmt.Fprintf(&b, ",\n\tFOREIGN KEY (%s) REFERENCES %s(%s)", c.Name, c.RefTable, path.ReservedColumnName)
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// Compile compiles every class of schema into its Table, in class-index
// order.
func Compile(schema *tasl.Schema) ([]*Table, error) {
	tables := make([]*Table, schema.Len())
	for _, class := range schema.Classes() {
		t, err := compileClass(schema, class)
		if err != nil {
			return nil, fmt.Errorf("compile class %q: %w", class.Key, err)
		}
		tables[class.Index] = t
	}
	return tables, nil
}

func compileClass(schema *tasl.Schema, class tasl.Class) (*Table, error) {
	t := &Table{
		ClassKey:    class.Key,
		ClassIndex:  class.Index,
		Name:        path.TableName(class.Index),
		columnIndex: make(map[string]int),
	}
	w := &walker{schema: schema, table: t}
	if err := w.walk(class.Type, path.Path{}, false); err != nil {
		return nil, err
	}
	for i, c := range t.Columns {
		t.columnIndex[c.Name] = i
	}
	return t, nil
}

type walker struct {
	schema *tasl.Schema
	table  *Table
}

// walk traverses t, appending columns to w.table. parentNullable is true
// once any strict ancestor is a coproduct's non-selected arm — i.e. every
// column under a coproduct option is NULLable (spec.md §4.2's "children:
// always NULL" rule for coproduct option columns).
func (w *walker) walk(t tasl.Type, p path.Path, parentNullable bool) error {
	switch tt := t.(type) {
	case tasl.URI:
		w.addColumn(p, SQLText, parentNullable, "")
		return nil
	case tasl.Literal:
		sqlType, err := literalSQLType(tt.Datatype)
		if err != nil {
			return err
		}
		w.addColumn(p, sqlType, parentNullable, "")
		return nil
	case tasl.Reference:
		if !w.schema.HasClass(tt.ClassKey) {
			return &errs.TypeError{Reason: fmt.Sprintf("reference to unknown class %q", tt.ClassKey)}
		}
		target, _ := w.schema.Class(tt.ClassKey)
		w.addColumn(p, SQLInteger, parentNullable, path.TableName(target.Index))
		return nil
	case tasl.Product:
		for i, c := range tt.Components {
			if err := w.walk(c.Type, p.Append(i), parentNullable); err != nil {
				return fmt.Errorf("component %q: %w", c.Key, err)
			}
		}
		return nil
	case tasl.Coproduct:
		w.addColumn(p, SQLInteger, parentNullable, "")
		indexColumn := p.ColumnName()
		site := CoproductSite{IndexColumn: indexColumn, Path: p}
		for i, c := range tt.Options {
			before := len(w.table.Columns)
			// Every column under a coproduct option is nullable,
			// regardless of whether the coproduct itself is nullable.
			if err := w.walk(c.Type, p.Append(i), true); err != nil {
				return fmt.Errorf("option %q: %w", c.Key, err)
			}
			names := make([]string, 0, len(w.table.Columns)-before)
			for _, added := range w.table.Columns[before:] {
				names = append(names, added.Name)
			}
			site.Options = append(site.Options, OptionColumns{Key: c.Key, Columns: names})
		}
		w.table.Coproducts = append(w.table.Coproducts, site)
		return nil
	default:
		return &errs.TypeError{Reason: fmt.Sprintf("unhandled type node %T", t)}
	}
}

func (w *walker) addColumn(p path.Path, sqlType string, nullable bool, refTable string) {
	w.table.Columns = append(w.table.Columns, Column{
		Name:     p.ColumnName(),
		Path:     p,
		SQLType:  sqlType,
		Nullable: nullable,
		RefTable: refTable,
	})
}

func literalSQLType(d tasl.Datatype) (string, error) {
	switch {
	case d.IsBoolean(), d.IsInteger():
		return SQLInteger, nil
	case d.IsFloat():
		return SQLReal, nil
	case d.IsHexBinary():
		return SQLBlob, nil
	default:
		// rdf:JSON and every other IRI: variable-width UTF-8 string.
		return SQLText, nil
	}
}
