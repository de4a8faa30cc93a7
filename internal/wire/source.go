package wire

import "io"

// Source is the asynchronous chunk stream a Decoder pulls from. NextChunk
// returns io.EOF once no further chunks are available. Implementations
// must never return a zero-length chunk or a nil slice with a nil error —
// spec.md §4.3 calls both a decode error at the point they would be
// consumed.
type Source interface {
	NextChunk() ([]byte, error)
}

// Sink is the destination chunk stream an Encoder pushes full chunks to.
type Sink interface {
	WriteChunk([]byte) error
}

// SliceSource is a Source over an in-memory list of chunks, used by tests
// and by callers that already have the whole byte stream pre-chunked (e.g.
// to exercise chunking-invariance per spec.md §8).
type SliceSource struct {
	chunks [][]byte
	next   int
}

// NewSliceSource builds a Source yielding each of chunks in order.
func NewSliceSource(chunks [][]byte) *SliceSource {
	return &SliceSource{chunks: chunks}
}

// NextChunk implements Source.
func (s *SliceSource) NextChunk() ([]byte, error) {
	if s.next >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

// SliceSink is a Sink collecting every written chunk into memory, used by
// tests and by small in-memory exports.
type SliceSink struct {
	Chunks [][]byte
}

// WriteChunk implements Sink.
func (s *SliceSink) WriteChunk(c []byte) error {
	s.Chunks = append(s.Chunks, c)
	return nil
}

// Bytes concatenates every chunk written so far.
func (s *SliceSink) Bytes() []byte {
	var total int
	for _, c := range s.Chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range s.Chunks {
		out = append(out, c...)
	}
	return out
}

// ChunkBytes splits b into chunks of at most size bytes each, the
// inverse of SliceSink.Bytes, used to build chunking-invariance tests.
func ChunkBytes(b []byte, size int) [][]byte {
	if size <= 0 {
		size = 1
	}
	var chunks [][]byte
	for len(b) > 0 {
		n := size
		if n > len(b) {
			n = len(b)
		}
		chunks = append(chunks, b[:n])
		b = b[n:]
	}
	return chunks
}
