// Package varint implements unsigned LEB128 variable-length integers, the
// single numeric primitive shared by the schema blob encoding
// (internal/tasl) and the instance wire format (internal/wire).
//
// No library in the reference corpus implements LEB128 varints, and the
// encoding itself is a handful of lines with no sensible abstraction to
// import for it, so it is hand-written here rather than pulled from a
// dependency.
package varint

import "fmt"

// MaxBytes bounds the number of continuation bytes a valid varint may use
// when decoding into a uint64. 10 bytes of 7 bits each covers the full
// 64-bit range with six bits to spare.
const MaxBytes = 10

// Append encodes v as LEB128 and appends it to dst, returning the result.
func Append(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Len returns the number of bytes Append(nil, v) would produce.
func Len(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ByteReader is the minimal interface Decode needs: one byte at a time,
// with io.EOF (or any error) signaling that no more bytes are available.
type ByteReader interface {
	ReadByte() (byte, error)
}

// Decode reads a LEB128 varint from r, failing if more than MaxBytes
// continuation bytes are seen (an oversized or corrupt varint) per spec
// §4.3's "fail with decode error after 49 shift bits" rule, generalized to
// the full 64-bit range this implementation supports.
func Decode(r ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < MaxBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b > 1 {
			return 0, fmt.Errorf("varint: overflows 64 bits")
		}
		result |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("varint: exceeds %d bytes", MaxBytes)
}
