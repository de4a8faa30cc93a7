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

// Set shreds value and upserts it as class key's element id, inserting it
// if absent or overwriting every column if present.
func (db *DB) Set(ctx context.Context, key string, id uint64, value tasl.Value) error {
	table, typ, err := db.classTable(key)
	if err != nil {
		return err
	}
	if err := tasl.Check(typ, value); err != nil {
		return err
	}
	row, err := shred.Shred(typ, value, table)
	if err != nil {
		return err
	}
	return upsertRow(ctx, db.conn, table, id, row)
}

func upsertRow(ctx context.Context, exec queryer, table *compile.Table, id uint64, row shred.Row) error {
	cols := table.ColumnNames()
	placeholders := make([]string, len(cols)+1)
	assignments := make([]string, len(cols))
	args := make([]any, len(cols)+1)
	args[0] = id
	placeholders[0] = "?"
	for i, c := range cols {
		placeholders[i+1] = "?"
		args[i+1] = row[c]
		assignments[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (%s, %s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s`,
		table.Name, path.ReservedColumnName, strings.Join(cols, ", "),
		strings.Join(placeholders, ", "), path.ReservedColumnName, strings.Join(assignments, ", "),
	)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return &errs.StorageError{Reason: fmt.Sprintf("upsert into %s", table.Name), Err: err}
	}
	return nil
}

// Push shreds value, inserts it into class key without an explicit id, and
// returns the id SQLite auto-assigned.
func (db *DB) Push(ctx context.Context, key string, value tasl.Value) (uint64, error) {
	table, typ, err := db.classTable(key)
	if err != nil {
		return 0, err
	}
	if err := tasl.Check(typ, value); err != nil {
		return 0, err
	}
	row, err := shred.Shred(typ, value, table)
	if err != nil {
		return 0, err
	}
	id, err := insertReturningID(ctx, db.conn, table, row)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertReturningID(ctx context.Context, exec queryer, table *compile.Table, row shred.Row) (uint64, error) {
	cols := table.ColumnNames()
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = row[c]
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		table.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), path.ReservedColumnName,
	)
	var id int64
	if err := exec.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, &errs.StorageError{Reason: fmt.Sprintf("insert into %s did not return a row", table.Name), Err: err}
	}
	return uint64(id), nil
}

// Element pairs an id with the value to write at it, for Merge.
type Element struct {
	ID    uint64
	Value tasl.Value
}

// queryer is satisfied by both *sql.DB and *sql.Tx, letting upsertRow and
// insertReturningID run either directly on the connection or inside a
// transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Merge writes every class's elements in one transaction, with foreign-key
// checks deferred to commit time so elements may reference one another
// regardless of write order. Enforcement itself stays on throughout: a
// dangling reference still fails the commit, and SQLite clears the deferral
// automatically on COMMIT or ROLLBACK (spec.md §4.5, §5).
func (db *DB) Merge(ctx context.Context, elements map[string][]Element) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &errs.StorageError{Reason: "beginning merge transaction", Err: err}
	}
	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		tx.Rollback()
		return &errs.StorageError{Reason: "deferring foreign keys for merge", Err: err}
	}
	if err := db.mergeInTx(ctx, tx, elements); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &errs.StorageError{Reason: "committing merge", Err: err}
	}
	return nil
}

func (db *DB) mergeInTx(ctx context.Context, tx *sql.Tx, elements map[string][]Element) error {
	for key, els := range elements {
		table, typ, err := db.classTable(key)
		if err != nil {
			return err
		}
		for _, el := range els {
			if err := tasl.Check(typ, el.Value); err != nil {
				return fmt.Errorf("class %q element %d: %w", key, el.ID, err)
			}
			row, err := shred.Shred(typ, el.Value, table)
			if err != nil {
				return fmt.Errorf("class %q element %d: %w", key, el.ID, err)
			}
			if err := upsertRow(ctx, tx, table, el.ID, row); err != nil {
				return err
			}
		}
	}
	return nil
}
