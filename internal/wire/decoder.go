// Package wire implements the Streaming Codec of spec.md §4.3: a
// self-delimiting LEB128/big-endian wire format for whole instances, and a
// pull decoder / push encoder that process it one chunk at a time without
// ever holding an entire instance in memory.
//
// Both halves are explicit state machines, never goroutines or channels —
// the decoder's state is a pair of cursors over a growing chunk list, the
// encoder's state is one fixed-capacity buffer. This mirrors the teacher's
// preference for plain structs carrying explicit state (internal/engine's
// cycle-detection bookkeeping) over hidden control flow, generalized here
// from a single-shot sync pass to a resumable byte cursor. No corpus
// library implements a chunk-respecting LEB128 cursor, so this is built on
// the standard library plus internal/varint.
package wire

import (
	"fmt"
	"io"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
	"github.com/jmatsushita/taslite/internal/varint"
)

// Version is the wire format version written at the start of every
// instance stream.
const Version = 1

// cursor addresses one byte position within Decoder.chunks.
type cursor struct {
	chunk  int
	offset int
}

// Decoder pulls chunks from a Source on demand and exposes the
// readVarint/skip/collect/flush primitives of spec.md §4.3.
type Decoder struct {
	source Source
	chunks [][]byte
	start  cursor
	end    cursor
	length int  // live bytes between start and end
	eof    bool // source exhausted; no more chunks will ever arrive
}

// NewDecoder returns a Decoder pulling from source.
func NewDecoder(source Source) *Decoder {
	return &Decoder{source: source}
}

// demand ensures end addresses a valid byte, pulling a new chunk from the
// source if end has run off the end of the last known chunk.
func (d *Decoder) demand() error {
	for {
		if d.end.chunk < len(d.chunks) && d.end.offset < len(d.chunks[d.end.chunk]) {
			return nil
		}
		if d.end.chunk < len(d.chunks) && d.end.offset >= len(d.chunks[d.end.chunk]) {
			d.end.chunk++
			d.end.offset = 0
			continue
		}
		if d.eof {
			return io.EOF
		}
		chunk, err := d.source.NextChunk()
		if err == io.EOF {
			d.eof = true
			return io.EOF
		}
		if err != nil {
			return &errs.DecodeError{Reason: fmt.Sprintf("pulling chunk: %v", err)}
		}
		if len(chunk) == 0 {
			return &errs.DecodeError{Reason: "source yielded a zero-length chunk"}
		}
		d.chunks = append(d.chunks, chunk)
	}
}

// ReadByte implements varint.ByteReader: it reads one byte at the end
// cursor, advancing it, pulling chunks on demand. It does not flush.
func (d *Decoder) ReadByte() (byte, error) {
	if err := d.demand(); err != nil {
		if err == io.EOF {
			return 0, &errs.DecodeError{Reason: "unexpected end of stream"}
		}
		return 0, err
	}
	b := d.chunks[d.end.chunk][d.end.offset]
	d.end.offset++
	d.length++
	return b, nil
}

// readVarint reads an unsigned LEB128 varint at the end cursor without
// flushing.
func (d *Decoder) readVarint() (uint64, error) {
	v, err := varint.Decode(d)
	if err != nil {
		return 0, &errs.DecodeError{Reason: fmt.Sprintf("varint: %v", err)}
	}
	return v, nil
}

// skip advances the end cursor by n bytes without interpreting them.
func (d *Decoder) skip(n int) error {
	for n > 0 {
		if err := d.demand(); err != nil {
			if err == io.EOF {
				return &errs.DecodeError{Reason: "unexpected end of stream"}
			}
			return err
		}
		avail := len(d.chunks[d.end.chunk]) - d.end.offset
		take := avail
		if take > n {
			take = n
		}
		d.end.offset += take
		d.length += take
		n -= take
	}
	return nil
}

// collect allocates a fresh buffer holding every byte between start and
// end, without discarding anything.
func (d *Decoder) collect() []byte {
	out := make([]byte, 0, d.length)
	c, off := d.start.chunk, d.start.offset
	for c < d.end.chunk || (c == d.end.chunk && off < d.end.offset) {
		chunk := d.chunks[c]
		limit := len(chunk)
		if c == d.end.chunk {
			limit = d.end.offset
		}
		out = append(out, chunk[off:limit]...)
		off = 0
		c++
	}
	return out
}

// flush discards every fully consumed chunk, including the one the end
// cursor has read to the end of, and rebases start to end.
func (d *Decoder) flush() {
	if d.end.chunk < len(d.chunks) && d.end.offset >= len(d.chunks[d.end.chunk]) {
		d.end.chunk++
		d.end.offset = 0
	}
	if d.end.chunk > 0 {
		d.chunks = d.chunks[d.end.chunk:]
		d.end.chunk = 0
	}
	d.start = d.end
	d.length = 0
}

// decodeVarint reads one varint and flushes.
func (d *Decoder) decodeVarint() (uint64, error) {
	v, err := d.readVarint()
	if err != nil {
		return 0, err
	}
	d.flush()
	return v, nil
}

// decodeElement walks t using readVarint/skip to find the element's byte
// boundary, then collects and flushes to return its raw, self-delimited
// wire bytes.
func (d *Decoder) decodeElement(t tasl.Type) ([]byte, error) {
	if err := d.scanValue(t); err != nil {
		return nil, err
	}
	b := d.collect()
	d.flush()
	return b, nil
}

// scanValue advances the end cursor exactly across one value's worth of
// bytes for t, per the wire layout of spec.md §4.3.
func (d *Decoder) scanValue(t tasl.Type) error {
	switch tt := t.(type) {
	case tasl.URI:
		return d.scanVariableWidth()
	case tasl.Literal:
		if tt.Datatype.IsJSON() {
			return d.scanVariableWidth()
		}
		if w, fixed := tt.Datatype.FixedWidth(); fixed {
			return d.skip(w)
		}
		return d.scanVariableWidth()
	case tasl.Reference:
		_, err := d.readVarint()
		return err
	case tasl.Product:
		for _, c := range tt.Components {
			if err := d.scanValue(c.Type); err != nil {
				return err
			}
		}
		return nil
	case tasl.Coproduct:
		idx, err := d.readVarint()
		if err != nil {
			return err
		}
		if int(idx) < 0 || int(idx) >= len(tt.Options) {
			return &errs.DecodeError{Reason: fmt.Sprintf("coproduct option index %d out of range", idx)}
		}
		return d.scanValue(tt.Options[idx].Type)
	default:
		return &errs.DecodeError{Reason: fmt.Sprintf("unhandled type node %T", t)}
	}
}

// scanVariableWidth advances past a varint(byteLen) || bytes value.
func (d *Decoder) scanVariableWidth() error {
	n, err := d.readVarint()
	if err != nil {
		return err
	}
	return d.skip(int(n))
}
