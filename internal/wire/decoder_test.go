package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmatsushita/taslite/internal/tasl"
	"github.com/jmatsushita/taslite/internal/varint"
)

// elemBuilder hand-encodes raw wire bytes for a value, independent of
// internal/shred, so decoder tests can check pure boundary-scanning
// behavior against a known-correct byte sequence.
type elemBuilder struct{ b []byte }

func (eb *elemBuilder) varint(v uint64) *elemBuilder {
	eb.b = varint.Append(eb.b, v)
	return eb
}

func (eb *elemBuilder) fixed(v []byte) *elemBuilder {
	eb.b = append(eb.b, v...)
	return eb
}

func (eb *elemBuilder) variable(v []byte) *elemBuilder {
	eb.varint(uint64(len(v)))
	eb.b = append(eb.b, v...)
	return eb
}

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }

func decodeAtChunkSize(t *testing.T, raw []byte, typ tasl.Type, chunkSize int) []byte {
	t.Helper()
	src := NewSliceSource(ChunkBytes(raw, chunkSize))
	dec := NewDecoder(src)
	got, err := dec.decodeElement(typ)
	require.NoError(t, err)
	return got
}

func TestDecodeElementFixedWidth(t *testing.T) {
	typ := tasl.Literal{Datatype: tasl.DatatypeUnsignedShort}
	raw := (&elemBuilder{}).fixed(u16(300)).b
	for _, size := range []int{1, 2, 3, 1024} {
		got := decodeAtChunkSize(t, raw, typ, size)
		require.Equal(t, raw, got, "chunk size %d", size)
	}
}

func TestDecodeElementVariableWidth(t *testing.T) {
	typ := tasl.Literal{Datatype: tasl.DatatypeString}
	raw := (&elemBuilder{}).variable([]byte("hello world")).b
	for _, size := range []int{1, 3, 5, 1024} {
		got := decodeAtChunkSize(t, raw, typ, size)
		require.Equal(t, raw, got, "chunk size %d", size)
	}
}

func TestDecodeElementProduct(t *testing.T) {
	typ := tasl.Product{Components: []tasl.Component{
		{Key: "n", Type: tasl.Literal{Datatype: tasl.DatatypeUnsignedByte}},
		{Key: "s", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
	}}
	raw := (&elemBuilder{}).fixed([]byte{42}).variable([]byte("x")).b
	for _, size := range []int{1, 2, 1024} {
		got := decodeAtChunkSize(t, raw, typ, size)
		require.Equal(t, raw, got, "chunk size %d", size)
	}
}

func TestDecodeElementCoproduct(t *testing.T) {
	typ := tasl.Coproduct{Options: []tasl.Component{
		{Key: "a", Type: tasl.Literal{Datatype: tasl.DatatypeBoolean}},
		{Key: "b", Type: tasl.URI{}},
	}}
	raw := (&elemBuilder{}).varint(1).variable([]byte("http://example.com")).b
	for _, size := range []int{1, 4, 1024} {
		got := decodeAtChunkSize(t, raw, typ, size)
		require.Equal(t, raw, got, "chunk size %d", size)
	}
}

func TestDecodeElementReference(t *testing.T) {
	typ := tasl.Reference{ClassKey: "other"}
	raw := (&elemBuilder{}).varint(123456).b
	got := decodeAtChunkSize(t, raw, typ, 2)
	require.Equal(t, raw, got)
}

func TestDecoderFlushDiscardsConsumedChunks(t *testing.T) {
	src := NewSliceSource([][]byte{{1}, {2}, {3}})
	dec := NewDecoder(src)
	b, err := dec.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(1), b)
	dec.flush()
	require.Equal(t, cursor{0, 0}, dec.start)
	require.Equal(t, cursor{0, 0}, dec.end)
	require.Len(t, dec.chunks, 0)
}

func TestDemandEmptyChunkIsDecodeError(t *testing.T) {
	src := NewSliceSource([][]byte{{}})
	dec := NewDecoder(src)
	_, err := dec.ReadByte()
	require.Error(t, err)
}
