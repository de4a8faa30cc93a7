// Package shred implements the Shredder/Reassembler of spec.md §4.4:
// converting between tree-shaped tasl.Value instances and the flat
// {column → cell} rows internal/db stores, and between those rows and the
// raw wire bytes internal/wire exchanges.
//
// The four conversions (Shred, Reassemble, RowFromBytes, BytesFromRow) all
// walk a class's compiled internal/compile.Table in lock-step with either
// a tasl.Value tree or a raw byte buffer. The technique is grounded on
// internal/querysql/compile.go's type-switch tree walk, generalized from
// "type AST → SQL fragment" to "type AST × value tree ↔ row".
package shred

import (
	"fmt"
	"math"
	"slices"

	"github.com/jmatsushita/taslite/internal/compile"
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/path"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// Row is one class table's row: column name to stored cell value. Cell
// values are always one of int64, float64, []byte, string, or nil.
type Row map[string]any

// Shred converts v (which must conform to typ) into a Row against table.
// Every column table declares is present in the result; columns under a
// coproduct option v did not select are explicitly nil.
func Shred(typ tasl.Type, v tasl.Value, table *compile.Table) (Row, error) {
	row := make(Row, len(table.Columns))
	if err := shredWalk(typ, v, path.Path{}, table, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Reassemble is Shred's inverse: it reads row by column name and rebuilds
// the tasl.Value tree typ describes.
func Reassemble(typ tasl.Type, table *compile.Table, row Row) (tasl.Value, error) {
	return reassembleWalk(typ, path.Path{}, table, row)
}

func findSite(table *compile.Table, p path.Path) (*compile.CoproductSite, error) {
	for i := range table.Coproducts {
		if slices.Equal(table.Coproducts[i].Path, p) {
			return &table.Coproducts[i], nil
		}
	}
	return nil, &errs.StorageError{Reason: fmt.Sprintf("table %s: no coproduct site at path %v", table.Name, p)}
}

func cellColumn(row Row, table *compile.Table, name string) (any, error) {
	if _, ok := table.ColumnIndex(name); !ok {
		return nil, &errs.StorageError{Reason: fmt.Sprintf("table %s has no column %q", table.Name, name)}
	}
	return row[name], nil
}

func shredWalk(t tasl.Type, v tasl.Value, p path.Path, table *compile.Table, row Row) error {
	col := p.ColumnName()
	switch tt := t.(type) {
	case tasl.URI:
		uv, ok := v.(tasl.URIValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected uri value at %s, got %s", col, tasl.Kind(v))}
		}
		row[col] = uv.Value
		return nil
	case tasl.Literal:
		lv, ok := v.(tasl.LiteralValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected literal value at %s, got %s", col, tasl.Kind(v))}
		}
		cell, err := literalToCell(tt.Datatype, lv.Value)
		if err != nil {
			return err
		}
		row[col] = cell
		return nil
	case tasl.Reference:
		rv, ok := v.(tasl.ReferenceValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected reference value at %s, got %s", col, tasl.Kind(v))}
		}
		row[col] = int64(rv.ID)
		return nil
	case tasl.Product:
		pv, ok := v.(tasl.ProductValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected product value at %s, got %s", col, tasl.Kind(v))}
		}
		for i, c := range tt.Components {
			cv, present := pv.Components[c.Key]
			if !present {
				return &errs.TypeError{Reason: fmt.Sprintf("missing product component %q", c.Key)}
			}
			if err := shredWalk(c.Type, cv, p.Append(i), table, row); err != nil {
				return err
			}
		}
		return nil
	case tasl.Coproduct:
		cv, ok := v.(tasl.CoproductValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected coproduct value at %s, got %s", col, tasl.Kind(v))}
		}
		site, err := findSite(table, p)
		if err != nil {
			return err
		}
		for _, opt := range site.Options {
			for _, name := range opt.Columns {
				row[name] = nil
			}
		}
		idx := tt.IndexOf(cv.Option)
		if idx < 0 {
			return &errs.TypeError{Reason: fmt.Sprintf("unknown coproduct option %q", cv.Option)}
		}
		row[site.IndexColumn] = int64(idx)
		return shredWalk(tt.Options[idx].Type, cv.Value, p.Append(idx), table, row)
	default:
		return &errs.TypeError{Reason: fmt.Sprintf("unhandled type node %T", t)}
	}
}

func reassembleWalk(t tasl.Type, p path.Path, table *compile.Table, row Row) (tasl.Value, error) {
	col := p.ColumnName()
	switch tt := t.(type) {
	case tasl.URI:
		cell, err := cellColumn(row, table, col)
		if err != nil {
			return nil, err
		}
		s, ok := cell.(string)
		if !ok {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("column %s: expected string cell, got %T", col, cell)}
		}
		return tasl.URIValue{Value: s}, nil
	case tasl.Literal:
		cell, err := cellColumn(row, table, col)
		if err != nil {
			return nil, err
		}
		lex, err := cellToLexical(tt.Datatype, cell)
		if err != nil {
			return nil, err
		}
		return tasl.LiteralValue{Value: lex}, nil
	case tasl.Reference:
		cell, err := cellColumn(row, table, col)
		if err != nil {
			return nil, err
		}
		id, err := asInt64(cell, col)
		if err != nil {
			return nil, err
		}
		return tasl.ReferenceValue{ID: uint64(id)}, nil
	case tasl.Product:
		components := make(map[string]tasl.Value, len(tt.Components))
		for i, c := range tt.Components {
			cv, err := reassembleWalk(c.Type, p.Append(i), table, row)
			if err != nil {
				return nil, err
			}
			components[c.Key] = cv
		}
		return tasl.ProductValue{Components: components}, nil
	case tasl.Coproduct:
		site, err := findSite(table, p)
		if err != nil {
			return nil, err
		}
		cell, err := cellColumn(row, table, site.IndexColumn)
		if err != nil {
			return nil, err
		}
		idx, err := asInt64(cell, site.IndexColumn)
		if err != nil {
			return nil, err
		}
		if idx < 0 || int(idx) >= len(tt.Options) {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("column %s: option index %d out of range", site.IndexColumn, idx)}
		}
		opt := tt.Options[idx]
		value, err := reassembleWalk(opt.Type, p.Append(int(idx)), table, row)
		if err != nil {
			return nil, err
		}
		return tasl.CoproductValue{Option: opt.Key, Value: value}, nil
	default:
		return nil, &errs.TypeError{Reason: fmt.Sprintf("unhandled type node %T", t)}
	}
}

func asInt64(cell any, col string) (int64, error) {
	switch v := cell.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, &errs.StorageError{Reason: fmt.Sprintf("column %s: expected integer cell, got %T", col, cell)}
	}
}

// literalToCell converts a literal's canonical lexical form into the cell
// value it's stored as, range-checking integers against the host
// representation (spec.md §4.4).
func literalToCell(d tasl.Datatype, lexical string) (any, error) {
	switch {
	case d.IsBoolean():
		b, err := tasl.LexicalToBool(lexical)
		if err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case d.IsSignedInteger():
		v, err := tasl.LexicalToInt64(d, lexical)
		if err != nil {
			return nil, err
		}
		return v, nil
	case d.IsUnsignedInteger():
		v, err := tasl.LexicalToUint64(d, lexical)
		if err != nil {
			return nil, err
		}
		if v > math.MaxInt64 {
			return nil, &errs.RangeError{Reason: fmt.Sprintf("value %d exceeds the signed 64-bit storage cell", v)}
		}
		return int64(v), nil
	case d.IsFloat():
		v, err := tasl.LexicalToFloat64(d, lexical)
		if err != nil {
			return nil, err
		}
		return v, nil
	case d.IsHexBinary():
		return tasl.LexicalToHex(lexical)
	default:
		// rdf:JSON and every other IRI: canonical lexical text verbatim.
		return lexical, nil
	}
}

// cellToLexical is literalToCell's inverse.
func cellToLexical(d tasl.Datatype, cell any) (string, error) {
	switch {
	case d.IsBoolean():
		i, err := asInt64(cell, "literal")
		if err != nil {
			return "", err
		}
		return tasl.BoolToLexical(i != 0), nil
	case d.IsSignedInteger():
		i, err := asInt64(cell, "literal")
		if err != nil {
			return "", err
		}
		return tasl.IntToLexical(i), nil
	case d.IsUnsignedInteger():
		i, err := asInt64(cell, "literal")
		if err != nil {
			return "", err
		}
		return tasl.UintToLexical(uint64(i)), nil
	case d.IsFloat():
		f, ok := cell.(float64)
		if !ok {
			return "", &errs.StorageError{Reason: fmt.Sprintf("expected float cell, got %T", cell)}
		}
		return tasl.FloatToLexical(d, f), nil
	case d.IsHexBinary():
		b, ok := cell.([]byte)
		if !ok {
			return "", &errs.StorageError{Reason: fmt.Sprintf("expected blob cell, got %T", cell)}
		}
		return tasl.HexToLexical(b), nil
	default:
		s, ok := cell.(string)
		if !ok {
			return "", &errs.StorageError{Reason: fmt.Sprintf("expected string cell, got %T", cell)}
		}
		return s, nil
	}
}
