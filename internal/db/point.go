package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmatsushita/taslite/internal/compile"
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/path"
	"github.com/jmatsushita/taslite/internal/shred"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// Get fetches the element of class key with id, reassembling it into a
// tasl.Value, or fails with a LookupError if the element does not exist.
func (db *DB) Get(ctx context.Context, key string, id uint64) (tasl.Value, error) {
	table, typ, err := db.classTable(key)
	if err != nil {
		return nil, err
	}
	row, err := db.selectRow(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errs.NoElementError(key, id)
	}
	return shred.Reassemble(typ, table, row)
}

// Has reports whether class key has an element with id.
func (db *DB) Has(ctx context.Context, key string, id uint64) (bool, error) {
	table, _, err := db.classTable(key)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = ? LIMIT 1`, table.Name, path.ReservedColumnName)
	var ignore int
	err = db.conn.QueryRowContext(ctx, query, id).Scan(&ignore)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &errs.StorageError{Reason: "has", Err: err}
	}
	return true, nil
}

// Count returns the number of elements in class key.
func (db *DB) Count(ctx context.Context, key string) (uint64, error) {
	table, _, err := db.classTable(key)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table.Name)
	var n int64
	if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &errs.StorageError{Reason: "count", Err: err}
	}
	return uint64(n), nil
}

func (db *DB) selectRow(ctx context.Context, table *compile.Table, id uint64) (shred.Row, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, strings.Join(table.ColumnNames(), ", "), table.Name, path.ReservedColumnName)
	dest := make([]any, len(table.Columns))
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	err := db.conn.QueryRowContext(ctx, query, id).Scan(ptrs...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.StorageError{Reason: "select row", Err: err}
	}
	row := make(shred.Row, len(table.Columns))
	for i, c := range table.Columns {
		row[c.Name] = dest[i]
	}
	return row, nil
}

// Keys returns a lazily-iterated cursor over class key's element ids in
// ascending order.
func (db *DB) Keys(ctx context.Context, key string) (*KeyIter, error) {
	table, _, err := db.classTable(key)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, path.ReservedColumnName, table.Name, path.ReservedColumnName)
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &errs.StorageError{Reason: "keys", Err: err}
	}
	return &KeyIter{rows: rows}, nil
}

// KeyIter is a cursor over a class's element ids.
type KeyIter struct {
	rows *sql.Rows
}

// Next advances the cursor, returning ok=false once exhausted.
func (it *KeyIter) Next() (id uint64, ok bool, err error) {
	if !it.rows.Next() {
		return 0, false, it.rows.Err()
	}
	var v int64
	if err := it.rows.Scan(&v); err != nil {
		return 0, false, &errs.StorageError{Reason: "scanning key", Err: err}
	}
	return uint64(v), true, nil
}

// Close releases the cursor's underlying statement, per spec.md §5's "a
// dropped iterator must release its underlying statement cursor."
func (it *KeyIter) Close() error {
	return it.rows.Close()
}

// Values returns a lazily-iterated cursor over class key's elements,
// reassembled in ascending id order.
func (db *DB) Values(ctx context.Context, key string) (*ValueIter, error) {
	return db.entries(ctx, key)
}

// Entries returns a lazily-iterated cursor over class key's (id, value)
// pairs in ascending id order.
func (db *DB) Entries(ctx context.Context, key string) (*ValueIter, error) {
	return db.entries(ctx, key)
}

func (db *DB) entries(ctx context.Context, key string) (*ValueIter, error) {
	table, typ, err := db.classTable(key)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s, %s FROM %s ORDER BY %s`,
		path.ReservedColumnName, strings.Join(table.ColumnNames(), ", "), table.Name, path.ReservedColumnName)
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &errs.StorageError{Reason: "entries", Err: err}
	}
	return &ValueIter{rows: rows, table: table, typ: typ}, nil
}

// ValueIter is a cursor over a class's (id, value) pairs.
type ValueIter struct {
	rows  *sql.Rows
	table *compile.Table
	typ   tasl.Type
}

// Next advances the cursor, reassembling the next element, or returns
// ok=false once exhausted.
func (it *ValueIter) Next() (id uint64, value tasl.Value, ok bool, err error) {
	if !it.rows.Next() {
		return 0, nil, false, it.rows.Err()
	}
	dest := make([]any, len(it.table.Columns)+1)
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return 0, nil, false, &errs.StorageError{Reason: "scanning entry", Err: err}
	}
	idVal, ok := dest[0].(int64)
	if !ok {
		return 0, nil, false, &errs.StorageError{Reason: fmt.Sprintf("expected integer id, got %T", dest[0])}
	}
	row := make(shred.Row, len(it.table.Columns))
	for i, c := range it.table.Columns {
		row[c.Name] = dest[i+1]
	}
	v, err := shred.Reassemble(it.typ, it.table, row)
	if err != nil {
		return 0, nil, false, err
	}
	return uint64(idVal), v, true, nil
}

// Close releases the cursor's underlying statement.
func (it *ValueIter) Close() error {
	return it.rows.Close()
}
