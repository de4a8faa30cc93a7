// Package db implements the Database Core of spec.md §4.5: the storage
// handle bound to SQLite via database/sql and github.com/mattn/go-sqlite3,
// following internal/store/store.go's pragma application, connection
// pooling, and WAL configuration almost verbatim — generalized from NYSM's
// fixed event-log schema to a schema compiled per handle by
// internal/compile.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jmatsushita/taslite/internal/compile"
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// DB is an open taslite handle: one SQLite connection, the schema it was
// opened with, and the compiled table layout for each of its classes.
type DB struct {
	conn     *sql.DB
	schema   *tasl.Schema
	tables   []*compile.Table // indexed by class index, same order as schema.Classes()
	readOnly bool
}

// OpenOptions configures Open.
type OpenOptions struct {
	ReadOnly bool
}

const schemaTableDDL = `CREATE TABLE schemas (id INTEGER PRIMARY KEY, value BLOB NOT NULL)`

// Create opens storage at path (or an in-memory database if path is ""),
// persists schema's canonical blob, and runs DDL for every class table.
func Create(ctx context.Context, filePath string, schema *tasl.Schema) (*DB, error) {
	conn, err := openConn(filePath)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}
	tables, err := compile.Compile(schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaTableDDL); err != nil {
		conn.Close()
		return nil, &errs.StorageError{Reason: "creating schemas table", Err: err}
	}
	if err := writeSchemaRow(ctx, conn, schema); err != nil {
		conn.Close()
		return nil, err
	}
	for _, t := range tables {
		if _, err := conn.ExecContext(ctx, t.DDL()); err != nil {
			conn.Close()
			return nil, &errs.StorageError{Reason: fmt.Sprintf("creating table %s", t.Name), Err: err}
		}
	}
	slog.Info("database created", "path", displayPath(filePath), "classes", schema.Len())
	return &DB{conn: conn, schema: schema, tables: tables}, nil
}

// Open opens an existing database at path, decoding its persisted schema
// blob and rebuilding the compiled table layout.
func Open(ctx context.Context, filePath string, opts OpenOptions) (*DB, error) {
	conn, err := openConn(filePath)
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}
	schema, err := readSchemaRow(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	tables, err := compile.Compile(schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	slog.Info("database opened", "path", displayPath(filePath), "readOnly", opts.ReadOnly)
	return &DB{conn: conn, schema: schema, tables: tables, readOnly: opts.ReadOnly}, nil
}

// Close finalizes the connection. Prepared statements in database/sql are
// connection-scoped and close automatically with it.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Schema returns the handle's schema.
func (db *DB) Schema() *tasl.Schema {
	return db.schema
}

func openConn(filePath string) (*sql.DB, error) {
	dsn := filePath
	if dsn == "" {
		dsn = ":memory:"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &errs.StorageError{Reason: "opening sqlite connection", Err: err}
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, &errs.StorageError{Reason: "connecting to sqlite", Err: err}
	}
	// SQLite allows one writer at a time; a single pooled connection
	// also keeps PRAGMA foreign_keys toggling (which SQLite scopes per
	// connection) coherent across merge/import.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	return conn, nil
}

func applyPragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return &errs.StorageError{Reason: fmt.Sprintf("applying %q", p), Err: err}
		}
	}
	return nil
}

func displayPath(filePath string) string {
	if filePath == "" {
		return ":memory:"
	}
	return filePath
}

func writeSchemaRow(ctx context.Context, conn *sql.DB, schema *tasl.Schema) error {
	blob := tasl.EncodeSchema(schema)
	_, err := conn.ExecContext(ctx, `INSERT INTO schemas (id, value) VALUES (0, ?)`, blob)
	if err != nil {
		return &errs.StorageError{Reason: "writing schema row", Err: err}
	}
	return nil
}

func readSchemaRow(ctx context.Context, conn *sql.DB) (*tasl.Schema, error) {
	var blob []byte
	err := conn.QueryRowContext(ctx, `SELECT value FROM schemas WHERE id = 0`).Scan(&blob)
	if err != nil {
		return nil, &errs.StorageError{Reason: "reading schema row", Err: err}
	}
	schema, err := tasl.DecodeSchema(blob)
	if err != nil {
		return nil, fmt.Errorf("decode persisted schema: %w", err)
	}
	return schema, nil
}

// classTable returns the compiled table and type for key, or a LookupError
// if key names no class of the handle's schema.
func (db *DB) classTable(key string) (*compile.Table, tasl.Type, error) {
	class, ok := db.schema.Class(key)
	if !ok {
		return nil, nil, &errs.LookupError{Reason: fmt.Sprintf("unknown class %q", key)}
	}
	return db.tables[class.Index], class.Type, nil
}

// newCorrelationID stamps a UUIDv7 correlation id for one multi-step
// operation's log lines (import, export).
func newCorrelationID() string {
	return uuid.Must(uuid.NewV7()).String()
}
