package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/path"
	"github.com/jmatsushita/taslite/internal/shred"
	"github.com/jmatsushita/taslite/internal/tasl"
	"github.com/jmatsushita/taslite/internal/wire"
)

// Import creates a fresh database at filePath with schema, then streams
// source class by class, upserting every row. Foreign-key enforcement is
// disabled for the duration so rows may reference classes not yet written,
// and is re-enabled once the whole stream is consumed.
func Import(ctx context.Context, filePath string, schema *tasl.Schema, source wire.Source) (*DB, error) {
	correlationID := newCorrelationID()
	slog.Info("import starting", "correlation_id", correlationID, "path", displayPath(filePath))

	database, err := Create(ctx, filePath, schema)
	if err != nil {
		return nil, err
	}

	if err := database.importStream(ctx, source, correlationID); err != nil {
		database.Close()
		return nil, err
	}
	slog.Info("import complete", "correlation_id", correlationID)
	return database, nil
}

func (db *DB) importStream(ctx context.Context, source wire.Source, correlationID string) error {
	if _, err := db.conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return &errs.StorageError{Reason: "disabling foreign keys for import", Err: err}
	}
	defer db.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	dec, err := wire.NewInstanceDecoder(source, db.schema)
	if err != nil {
		return err
	}

	for {
		classIter, err := dec.NextClass()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		table, typ, err := db.classTable(classIter.ClassKey())
		if err != nil {
			return err
		}
		var n int
		for {
			id, raw, ok, err := classIter.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			row, err := shred.RowFromBytes(typ, table, raw)
			if err != nil {
				return fmt.Errorf("class %q element %d: %w", classIter.ClassKey(), id, err)
			}
			if err := upsertRow(ctx, db.conn, table, id, row); err != nil {
				return err
			}
			n++
		}
		slog.Debug("import class complete", "correlation_id", correlationID, "class", classIter.ClassKey(), "elements", n)
	}

	if err := dec.Done(); err != nil {
		return err
	}
	return nil
}

// ExportOptions configures Export.
type ExportOptions struct {
	ChunkSize int // 0 uses wire.DefaultChunkSize
}

// Export streams every class of db, in schema order and ascending id order
// within each class, to sink as one self-delimited instance, all under a
// single read-only transaction snapshot.
func (db *DB) Export(ctx context.Context, sink wire.Sink, opts ExportOptions) error {
	correlationID := newCorrelationID()
	slog.Info("export starting", "correlation_id", correlationID)

	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = wire.DefaultChunkSize
	}
	enc, err := wire.NewInstanceEncoderSize(sink, chunkSize)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return &errs.StorageError{Reason: "beginning export read view", Err: err}
	}
	defer tx.Rollback()

	for _, class := range db.schema.Classes() {
		table := db.tables[class.Index]
		var count int64
		if err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table.Name)).Scan(&count); err != nil {
			return &errs.StorageError{Reason: fmt.Sprintf("counting %s", table.Name), Err: err}
		}
		cw, err := enc.BeginClass(uint64(count))
		if err != nil {
			return err
		}

		query := fmt.Sprintf(`SELECT %s, %s FROM %s ORDER BY %s`,
			path.ReservedColumnName, strings.Join(table.ColumnNames(), ", "), table.Name, path.ReservedColumnName)
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return &errs.StorageError{Reason: fmt.Sprintf("reading %s", table.Name), Err: err}
		}

		var n int
		for rows.Next() {
			dest := make([]any, len(table.Columns)+1)
			ptrs := make([]any, len(dest))
			for i := range dest {
				ptrs[i] = &dest[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				rows.Close()
				return &errs.StorageError{Reason: "scanning export row", Err: err}
			}
			id, ok := dest[0].(int64)
			if !ok {
				rows.Close()
				return &errs.StorageError{Reason: fmt.Sprintf("expected integer id, got %T", dest[0])}
			}
			row := make(shred.Row, len(table.Columns))
			for i, c := range table.Columns {
				row[c.Name] = dest[i+1]
			}
			raw, err := shred.BytesFromRow(class.Type, table, row)
			if err != nil {
				rows.Close()
				return fmt.Errorf("class %q element %d: %w", class.Key, id, err)
			}
			if err := cw.WriteElement(uint64(id), raw); err != nil {
				rows.Close()
				return err
			}
			n++
		}
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return &errs.StorageError{Reason: fmt.Sprintf("iterating %s", table.Name), Err: rowsErr}
		}
		slog.Debug("export class complete", "correlation_id", correlationID, "class", class.Key, "elements", n)
	}

	if err := enc.Close(); err != nil {
		return err
	}
	slog.Info("export complete", "correlation_id", correlationID)
	return nil
}
