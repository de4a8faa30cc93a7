package shred

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/jmatsushita/taslite/internal/compile"
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/path"
	"github.com/jmatsushita/taslite/internal/tasl"
	"github.com/jmatsushita/taslite/internal/varint"
)

var cborMode cbor.EncMode

// cborDecMode decodes CBOR maps into map[string]any so encoding/json can
// re-serialize them.
var cborDecMode cbor.DecMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("shred: building canonical cbor encoder: %v", err))
	}
	cborMode = mode
	decMode, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("shred: building cbor decoder: %v", err))
	}
	cborDecMode = decMode
}

// cursor is a plain byte-slice reader implementing varint.ByteReader, used
// to parse one already-collected element's raw wire bytes (as opposed to
// internal/wire's chunk-crossing Decoder, which scans a live chunk
// stream).
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, &errs.DecodeError{Reason: "element bytes truncated"}
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readVarint() (uint64, error) {
	v, err := varint.Decode(c)
	if err != nil {
		return 0, &errs.DecodeError{Reason: fmt.Sprintf("varint: %v", err)}
	}
	return v, nil
}

// RowFromBytes parses raw, self-delimited wire bytes for one element of
// type typ directly into a Row, per spec.md §4.4's "row cell decoding from
// raw value bytes."
func RowFromBytes(typ tasl.Type, table *compile.Table, raw []byte) (Row, error) {
	row := make(Row, len(table.Columns))
	c := &cursor{buf: raw}
	if err := decodeBytesWalk(typ, path.Path{}, table, row, c); err != nil {
		return nil, err
	}
	if c.pos != len(raw) {
		return nil, &errs.DecodeError{Reason: "trailing bytes after element"}
	}
	return row, nil
}

// BytesFromRow renders row as raw, self-delimited wire bytes for one
// element of type typ — the inverse of RowFromBytes, used when exporting
// rows read straight out of SQL without reassembling a tasl.Value tree.
func BytesFromRow(typ tasl.Type, table *compile.Table, row Row) ([]byte, error) {
	var out []byte
	out, err := encodeBytesWalk(typ, path.Path{}, table, row, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeBytesWalk(t tasl.Type, p path.Path, table *compile.Table, row Row, c *cursor) error {
	col := p.ColumnName()
	switch tt := t.(type) {
	case tasl.URI:
		s, err := decodeVariableString(c)
		if err != nil {
			return err
		}
		row[col] = s
		return nil
	case tasl.Literal:
		cell, err := decodeLiteralBytes(tt.Datatype, c)
		if err != nil {
			return err
		}
		row[col] = cell
		return nil
	case tasl.Reference:
		id, err := c.readVarint()
		if err != nil {
			return err
		}
		row[col] = int64(id)
		return nil
	case tasl.Product:
		for i, comp := range tt.Components {
			if err := decodeBytesWalk(comp.Type, p.Append(i), table, row, c); err != nil {
				return err
			}
		}
		return nil
	case tasl.Coproduct:
		site, err := findSite(table, p)
		if err != nil {
			return err
		}
		for _, opt := range site.Options {
			for _, name := range opt.Columns {
				row[name] = nil
			}
		}
		idx, err := c.readVarint()
		if err != nil {
			return err
		}
		if int(idx) >= len(tt.Options) {
			return &errs.DecodeError{Reason: fmt.Sprintf("coproduct option index %d out of range", idx)}
		}
		row[site.IndexColumn] = int64(idx)
		return decodeBytesWalk(tt.Options[idx].Type, p.Append(int(idx)), table, row, c)
	default:
		return &errs.DecodeError{Reason: fmt.Sprintf("unhandled type node %T", t)}
	}
}

func encodeBytesWalk(t tasl.Type, p path.Path, table *compile.Table, row Row, out []byte) ([]byte, error) {
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
		return appendVariableString(out, s), nil
	case tasl.Literal:
		cell, err := cellColumn(row, table, col)
		if err != nil {
			return nil, err
		}
		return encodeLiteralBytes(tt.Datatype, cell, out)
	case tasl.Reference:
		cell, err := cellColumn(row, table, col)
		if err != nil {
			return nil, err
		}
		id, err := asInt64(cell, col)
		if err != nil {
			return nil, err
		}
		return varint.Append(out, uint64(id)), nil
	case tasl.Product:
		var err error
		for i, comp := range tt.Components {
			out, err = encodeBytesWalk(comp.Type, p.Append(i), table, row, out)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
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
		out = varint.Append(out, uint64(idx))
		return encodeBytesWalk(tt.Options[idx].Type, p.Append(int(idx)), table, row, out)
	default:
		return nil, &errs.StorageError{Reason: fmt.Sprintf("unhandled type node %T", t)}
	}
}

func decodeVariableString(c *cursor) (string, error) {
	n, err := c.readVarint()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func appendVariableString(out []byte, s string) []byte {
	out = varint.Append(out, uint64(len(s)))
	return append(out, s...)
}

func decodeLiteralBytes(d tasl.Datatype, c *cursor) (any, error) {
	if d.IsJSON() {
		n, err := c.readVarint()
		if err != nil {
			return nil, err
		}
		cborBytes, err := c.take(int(n))
		if err != nil {
			return nil, err
		}
		return cborToJSON(cborBytes)
	}
	if w, fixed := d.FixedWidth(); fixed {
		b, err := c.take(w)
		if err != nil {
			return nil, err
		}
		return decodeFixedLiteral(d, b)
	}
	if d.IsHexBinary() {
		n, err := c.readVarint()
		if err != nil {
			return nil, err
		}
		b, err := c.take(int(n))
		if err != nil {
			return nil, err
		}
		return slices.Clone(b), nil
	}
	s, err := decodeVariableString(c)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func encodeLiteralBytes(d tasl.Datatype, cell any, out []byte) ([]byte, error) {
	if d.IsJSON() {
		s, ok := cell.(string)
		if !ok {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("expected json string cell, got %T", cell)}
		}
		cborBytes, err := jsonToCBOR(s)
		if err != nil {
			return nil, err
		}
		return appendVariableBytes(out, cborBytes), nil
	}
	if w, fixed := d.FixedWidth(); fixed {
		b, err := encodeFixedLiteral(d, cell)
		if err != nil {
			return nil, err
		}
		if len(b) != w {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("encoded %s is %d bytes, want %d", d, len(b), w)}
		}
		return append(out, b...), nil
	}
	if d.IsHexBinary() {
		b, ok := cell.([]byte)
		if !ok {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("expected blob cell, got %T", cell)}
		}
		return appendVariableBytes(out, b), nil
	}
	s, ok := cell.(string)
	if !ok {
		return nil, &errs.StorageError{Reason: fmt.Sprintf("expected string cell, got %T", cell)}
	}
	return appendVariableString(out, s), nil
}

func appendVariableBytes(out, b []byte) []byte {
	out = varint.Append(out, uint64(len(b)))
	return append(out, b...)
}

// decodeFixedLiteral decodes a fixed-width literal's big-endian wire bytes
// into its storage cell (spec.md §4.3).
func decodeFixedLiteral(d tasl.Datatype, b []byte) (any, error) {
	switch {
	case d.IsBoolean():
		switch b[0] {
		case 0:
			return int64(0), nil
		case 1:
			return int64(1), nil
		default:
			return nil, &errs.DecodeError{Reason: fmt.Sprintf("invalid boolean byte %d", b[0])}
		}
	case d.IsSignedInteger():
		return signedFromBigEndian(b), nil
	case d.IsUnsignedInteger():
		return unsignedFromBigEndian(b), nil
	case d == tasl.DatatypeFloat:
		bits := binary.BigEndian.Uint32(b)
		return float64(math.Float32frombits(bits)), nil
	case d == tasl.DatatypeDouble:
		bits := binary.BigEndian.Uint64(b)
		return math.Float64frombits(bits), nil
	default:
		return nil, &errs.DecodeError{Reason: fmt.Sprintf("unhandled fixed-width datatype %s", d)}
	}
}

// encodeFixedLiteral is decodeFixedLiteral's inverse.
func encodeFixedLiteral(d tasl.Datatype, cell any) ([]byte, error) {
	switch {
	case d.IsBoolean():
		i, err := asInt64(cell, "literal")
		if err != nil {
			return nil, err
		}
		if i != 0 {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case d.IsSignedInteger():
		i, err := asInt64(cell, "literal")
		if err != nil {
			return nil, err
		}
		w, _ := d.FixedWidth()
		return signedToBigEndian(i, w), nil
	case d.IsUnsignedInteger():
		i, err := asInt64(cell, "literal")
		if err != nil {
			return nil, err
		}
		w, _ := d.FixedWidth()
		return unsignedToBigEndian(uint64(i), w), nil
	case d == tasl.DatatypeFloat:
		f, ok := cell.(float64)
		if !ok {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("expected float cell, got %T", cell)}
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, math.Float32bits(float32(f)))
		return b, nil
	case d == tasl.DatatypeDouble:
		f, ok := cell.(float64)
		if !ok {
			return nil, &errs.StorageError{Reason: fmt.Sprintf("expected float cell, got %T", cell)}
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(f))
		return b, nil
	default:
		return nil, &errs.StorageError{Reason: fmt.Sprintf("unhandled fixed-width datatype %s", d)}
	}
}

func signedFromBigEndian(b []byte) int64 {
	var v int64
	if b[0]&0x80 != 0 {
		v = -1
	}
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func signedToBigEndian(v int64, width int) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func unsignedFromBigEndian(b []byte) int64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return int64(v)
}

func unsignedToBigEndian(v uint64, width int) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// jsonToCBOR transcodes a canonical JSON string to its canonical CBOR
// encoding, per spec.md §4.3's rdf:JSON wire representation.
func jsonToCBOR(jsonText string) ([]byte, error) {
	var v any
	if err := json.Unmarshal([]byte(jsonText), &v); err != nil {
		return nil, &errs.TypeError{Reason: fmt.Sprintf("invalid rdf:JSON lexical form: %v", err)}
	}
	b, err := cborMode.Marshal(v)
	if err != nil {
		return nil, &errs.TypeError{Reason: fmt.Sprintf("encoding rdf:JSON to cbor: %v", err)}
	}
	return b, nil
}

// cborToJSON transcodes wire CBOR bytes back to a canonical JSON string for
// storage as a literal's lexical form.
func cborToJSON(cborBytes []byte) (string, error) {
	var v any
	if err := cborDecMode.Unmarshal(cborBytes, &v); err != nil {
		return "", &errs.DecodeError{Reason: fmt.Sprintf("decoding rdf:JSON cbor: %v", err)}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", &errs.DecodeError{Reason: fmt.Sprintf("re-serializing rdf:JSON: %v", err)}
	}
	return string(b), nil
}
