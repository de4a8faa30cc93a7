package wire

import (
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/varint"
)

// DefaultChunkSize is the buffer capacity an Encoder uses when the caller
// doesn't request a different one.
const DefaultChunkSize = 1024

// MinChunkSize is the smallest buffer capacity an Encoder accepts: enough
// to hold the widest possible single varint (spec.md §4.3).
const MinChunkSize = varint.MaxBytes

// Encoder owns one fixed-capacity buffer and pushes full chunks to a Sink
// as it fills.
type Encoder struct {
	sink   Sink
	buf    []byte
	cap    int
	closed bool
}

// NewEncoder returns an Encoder with the default chunk size.
func NewEncoder(sink Sink) *Encoder {
	return NewEncoderSize(sink, DefaultChunkSize)
}

// NewEncoderSize returns an Encoder with the given chunk capacity, clamped
// up to MinChunkSize.
func NewEncoderSize(sink Sink, chunkSize int) *Encoder {
	if chunkSize < MinChunkSize {
		chunkSize = MinChunkSize
	}
	return &Encoder{sink: sink, cap: chunkSize, buf: make([]byte, 0, chunkSize)}
}

// ensure flushes the current buffer as a chunk if there isn't room for n
// more bytes.
func (e *Encoder) ensure(n int) error {
	if len(e.buf)+n <= e.cap {
		return nil
	}
	if err := e.flushChunk(); err != nil {
		return err
	}
	return nil
}

func (e *Encoder) flushChunk() error {
	if len(e.buf) == 0 {
		return nil
	}
	chunk := e.buf
	e.buf = make([]byte, 0, e.cap)
	return e.sink.WriteChunk(chunk)
}

// writeVarint writes an unsigned LEB128 varint, straddling chunks if
// necessary.
func (e *Encoder) writeVarint(v uint64) error {
	return e.write(varint.Append(nil, v))
}

// write appends b to the buffer, flushing and re-filling as many times as
// needed for b to straddle chunk boundaries.
func (e *Encoder) write(b []byte) error {
	if e.closed {
		return &errs.StorageError{Reason: "write after close"}
	}
	for len(b) > 0 {
		if err := e.ensure(1); err != nil {
			return err
		}
		room := e.cap - len(e.buf)
		take := room
		if take > len(b) {
			take = len(b)
		}
		e.buf = append(e.buf, b[:take]...)
		b = b[take:]
	}
	return nil
}

// Close emits the residual buffer as a final chunk and forbids further
// writes.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.flushChunk()
}
