package tasl

import (
	"fmt"
	"strconv"

	"github.com/jmatsushita/taslite/internal/errs"
)

// checkLiteralLexical validates that lex is a well-formed canonical lexical
// form for datatype d, failing with a *errs.TypeError on malformed text and
// a *errs.RangeError on an integer literal that is well-formed but out of
// range for d's declared bit width (spec.md §7, §9: "must fail — never
// truncate — on overflow").
func checkLiteralLexical(d Datatype, lex string) error {
	switch {
	case d.IsBoolean():
		if lex != "true" && lex != "false" {
			return &errs.TypeError{Reason: fmt.Sprintf("invalid boolean lexical form %q", lex)}
		}
		return nil
	case d.IsSignedInteger():
		return checkSignedRange(d, lex)
	case d.IsUnsignedInteger():
		return checkUnsignedRange(d, lex)
	case d.IsFloat():
		_, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			return &errs.TypeError{Reason: fmt.Sprintf("invalid %s lexical form %q: %v", d, lex, err)}
		}
		return nil
	case d.IsHexBinary():
		if len(lex)%2 != 0 {
			return &errs.TypeError{Reason: fmt.Sprintf("invalid hexBinary lexical form %q: odd length", lex)}
		}
		for _, c := range lex {
			if !isHexDigit(c) {
				return &errs.TypeError{Reason: fmt.Sprintf("invalid hexBinary lexical form %q", lex)}
			}
		}
		return nil
	default:
		// rdf:JSON and every other IRI datatype: any UTF-8 string is a
		// valid lexical form at the type-check layer. rdf:JSON's further
		// well-formedness is validated when it is actually encoded to
		// CBOR (internal/shred).
		return nil
	}
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// bitWidth returns the bit width of a fixed-width integer datatype.
func bitWidth(d Datatype) int {
	w, _ := d.FixedWidth()
	return w * 8
}

func checkSignedRange(d Datatype, lex string) error {
	n, err := strconv.ParseInt(lex, 10, 64)
	if err != nil {
		return &errs.TypeError{Reason: fmt.Sprintf("invalid %s lexical form %q: %v", d, lex, err)}
	}
	bits := bitWidth(d)
	if bits >= 64 {
		return nil
	}
	lo := -(int64(1) << (bits - 1))
	hi := int64(1)<<(bits-1) - 1
	if n < lo || n > hi {
		return &errs.RangeError{Reason: fmt.Sprintf("%d out of range for %s (%d bits)", n, d, bits)}
	}
	return nil
}

func checkUnsignedRange(d Datatype, lex string) error {
	n, err := strconv.ParseUint(lex, 10, 64)
	if err != nil {
		return &errs.TypeError{Reason: fmt.Sprintf("invalid %s lexical form %q: %v", d, lex, err)}
	}
	bits := bitWidth(d)
	if bits >= 64 {
		return nil
	}
	hi := uint64(1)<<bits - 1
	if n > hi {
		return &errs.RangeError{Reason: fmt.Sprintf("%d out of range for %s (%d bits)", n, d, bits)}
	}
	return nil
}

// LexicalToBool parses a boolean literal's canonical lexical form.
func LexicalToBool(lex string) (bool, error) {
	switch lex {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &errs.TypeError{Reason: fmt.Sprintf("invalid boolean lexical form %q", lex)}
	}
}

// BoolToLexical renders a boolean's canonical lexical form.
func BoolToLexical(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// LexicalToInt64 parses a signed-integer literal's canonical lexical form,
// checking it against d's declared bit width.
func LexicalToInt64(d Datatype, lex string) (int64, error) {
	if err := checkSignedRange(d, lex); err != nil {
		return 0, err
	}
	n, _ := strconv.ParseInt(lex, 10, 64)
	return n, nil
}

// LexicalToUint64 parses an unsigned-integer literal's canonical lexical
// form, checking it against d's declared bit width.
func LexicalToUint64(d Datatype, lex string) (uint64, error) {
	if err := checkUnsignedRange(d, lex); err != nil {
		return 0, err
	}
	n, _ := strconv.ParseUint(lex, 10, 64)
	return n, nil
}

// IntToLexical renders a signed integer's canonical lexical form.
func IntToLexical(n int64) string { return strconv.FormatInt(n, 10) }

// UintToLexical renders an unsigned integer's canonical lexical form.
func UintToLexical(n uint64) string { return strconv.FormatUint(n, 10) }

// LexicalToFloat64 parses a float/double literal's canonical lexical form.
func LexicalToFloat64(d Datatype, lex string) (float64, error) {
	f, err := strconv.ParseFloat(lex, 64)
	if err != nil {
		return 0, &errs.TypeError{Reason: fmt.Sprintf("invalid %s lexical form %q: %v", d, lex, err)}
	}
	return f, nil
}

// FloatToLexical renders a float's canonical lexical form. 32-bit floats
// are rounded through float32 first so that the lexical form matches what
// was actually stored on the wire (spec.md §4.3: float is 4 bytes).
func FloatToLexical(d Datatype, f float64) string {
	if d == DatatypeFloat {
		return strconv.FormatFloat(float64(float32(f)), 'g', -1, 32)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// HexToLexical renders bytes as lowercase hex, the canonical lexical form
// for hexBinary.
func HexToLexical(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// LexicalToHex parses a hexBinary canonical lexical form back to bytes.
func LexicalToHex(lex string) ([]byte, error) {
	if len(lex)%2 != 0 {
		return nil, &errs.TypeError{Reason: fmt.Sprintf("invalid hexBinary lexical form %q: odd length", lex)}
	}
	out := make([]byte, len(lex)/2)
	for i := range out {
		hi, ok1 := hexVal(lex[i*2])
		lo, ok2 := hexVal(lex[i*2+1])
		if !ok1 || !ok2 {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("invalid hexBinary lexical form %q", lex)}
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
