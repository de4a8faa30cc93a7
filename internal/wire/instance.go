package wire

import (
	"fmt"
	"io"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// InstanceDecoder pulls a whole instance's classes in schema order. Each
// class must be fully drained via its ClassElements before the next class
// is requested: the underlying byte stream is single-pass.
type InstanceDecoder struct {
	dec      *Decoder
	schema   *tasl.Schema
	classIdx int
}

// NewInstanceDecoder reads and validates the leading version varint, then
// returns a decoder positioned at the first class.
func NewInstanceDecoder(source Source, schema *tasl.Schema) (*InstanceDecoder, error) {
	dec := NewDecoder(source)
	v, err := dec.decodeVarint()
	if err != nil {
		return nil, err
	}
	if v != Version {
		return nil, &errs.DecodeError{Reason: fmt.Sprintf("unsupported encoding version %d", v)}
	}
	return &InstanceDecoder{dec: dec, schema: schema}, nil
}

// NextClass reads the element count for the next class in schema order and
// returns an iterator over its elements. It returns io.EOF once every
// class has been consumed.
func (d *InstanceDecoder) NextClass() (*ClassElements, error) {
	if d.classIdx >= d.schema.Len() {
		return nil, io.EOF
	}
	class, _ := d.schema.ClassAt(d.classIdx)
	count, err := d.dec.decodeVarint()
	if err != nil {
		return nil, fmt.Errorf("class %q element count: %w", class.Key, err)
	}
	d.classIdx++
	return &ClassElements{dec: d.dec, classKey: class.Key, typ: class.Type, remaining: count}, nil
}

// ClassElements yields (id, raw) pairs for one class's elements in id
// order, decoding ids from the delta encoding of spec.md §4.3.
type ClassElements struct {
	dec       *Decoder
	classKey  string
	typ       tasl.Type
	remaining uint64
	prevID    uint64
	started   bool
}

// Done reports whether the stream has been fully consumed: every class was
// read and no trailing bytes remain. Called after the last class's
// ClassElements is exhausted (spec.md §4.5's "stream not closed when
// expected" check).
func (d *InstanceDecoder) Done() error {
	if d.classIdx < d.schema.Len() {
		return &errs.DecodeError{Reason: "stream not closed when expected"}
	}
	switch err := d.dec.demand(); err {
	case io.EOF:
		return nil
	case nil:
		return &errs.DecodeError{Reason: "stream not closed when expected"}
	default:
		return err
	}
}

// ClassKey is the class this iterator is reading elements for.
func (c *ClassElements) ClassKey() string { return c.classKey }

// Next returns the next (id, raw value bytes) pair, or ok=false once the
// class is exhausted.
func (c *ClassElements) Next() (id uint64, raw []byte, ok bool, err error) {
	if c.remaining == 0 {
		return 0, nil, false, nil
	}
	delta, err := c.dec.decodeVarint()
	if err != nil {
		return 0, nil, false, fmt.Errorf("class %q id delta: %w", c.classKey, err)
	}
	if !c.started {
		id = delta
		c.started = true
	} else {
		id = c.prevID + 1 + delta
	}
	c.prevID = id
	raw, err = c.dec.decodeElement(c.typ)
	if err != nil {
		return 0, nil, false, fmt.Errorf("class %q element %d: %w", c.classKey, id, err)
	}
	c.remaining--
	return id, raw, true, nil
}

// InstanceEncoder pushes a whole instance's classes in schema order,
// mirroring InstanceDecoder.
type InstanceEncoder struct {
	enc *Encoder
}

// NewInstanceEncoder writes the leading version varint and returns an
// encoder ready for the first class.
func NewInstanceEncoder(sink Sink) (*InstanceEncoder, error) {
	enc := NewEncoder(sink)
	if err := enc.writeVarint(Version); err != nil {
		return nil, err
	}
	return &InstanceEncoder{enc: enc}, nil
}

// NewInstanceEncoderSize is NewInstanceEncoder with an explicit chunk size.
func NewInstanceEncoderSize(sink Sink, chunkSize int) (*InstanceEncoder, error) {
	enc := NewEncoderSize(sink, chunkSize)
	if err := enc.writeVarint(Version); err != nil {
		return nil, err
	}
	return &InstanceEncoder{enc: enc}, nil
}

// BeginClass writes the element count for the next class and returns a
// writer for its elements, which must be written in ascending id order.
func (e *InstanceEncoder) BeginClass(count uint64) (*ClassWriter, error) {
	if err := e.enc.writeVarint(count); err != nil {
		return nil, err
	}
	return &ClassWriter{enc: e.enc}, nil
}

// Close emits the residual buffer and forbids further writes.
func (e *InstanceEncoder) Close() error {
	return e.enc.Close()
}

// ClassWriter writes one class's elements as delta-encoded ids plus raw
// wire value bytes.
type ClassWriter struct {
	enc     *Encoder
	prevID  uint64
	started bool
}

// WriteElement writes one (id, raw value bytes) pair. ids must be written
// in strictly ascending order.
func (w *ClassWriter) WriteElement(id uint64, raw []byte) error {
	var delta uint64
	if !w.started {
		delta = id
		w.started = true
	} else {
		if id <= w.prevID {
			return &errs.StorageError{Reason: fmt.Sprintf("element id %d out of order after %d", id, w.prevID)}
		}
		delta = id - w.prevID - 1
	}
	w.prevID = id
	if err := w.enc.writeVarint(delta); err != nil {
		return err
	}
	return w.enc.write(raw)
}
