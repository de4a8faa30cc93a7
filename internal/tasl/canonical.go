package tasl

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/varint"
)

// NormalizeString NFC-normalizes s, the same normalization the teacher
// applies to every string before it participates in a content-addressed
// comparison (internal/ir/canonical.go). The strings of a schema (class
// keys, component and option keys, datatype IRIs, reference class keys)
// are normalized this way in structural schema-equality checks and when
// the schema blob is encoded, so that two byte-distinct-but-canonically-
// equal keys or IRIs compare equal. Element values (uri and literal
// lexical forms) are not normalized.
func NormalizeString(s string) string {
	return norm.NFC.String(s)
}

// EncodeSchema renders a Schema to a deterministic byte encoding using the
// same varint/length-prefix vocabulary as the instance wire format
// (internal/wire), so the whole system shares one encoding style instead of
// pulling in a separate schema-serialization dependency (spec.md §4.2's
// "schema blob" persisted in the `schemas` table).
//
// Layout: varint(classCount), then for each class in order:
// varint(len(key)) || key bytes || encodeType(class.Type).
func EncodeSchema(s *Schema) []byte {
	var buf []byte
	buf = varint.Append(buf, uint64(len(s.classes)))
	for _, c := range s.classes {
		buf = appendString(buf, c.Key)
		buf = encodeType(buf, c.Type)
	}
	return buf
}

// DecodeSchema parses the byte encoding EncodeSchema produces.
func DecodeSchema(data []byte) (*Schema, error) {
	r := bytes.NewReader(data)
	count, err := varint.Decode(r)
	if err != nil {
		return nil, &errs.DecodeError{Reason: fmt.Sprintf("schema class count: %v", err)}
	}
	s := &Schema{byKey: make(map[string]int, count)}
	for i := uint64(0); i < count; i++ {
		key, err := readString(r)
		if err != nil {
			return nil, &errs.DecodeError{Reason: fmt.Sprintf("schema class %d key: %v", i, err)}
		}
		t, err := decodeType(r)
		if err != nil {
			return nil, &errs.DecodeError{Reason: fmt.Sprintf("schema class %d (%s) type: %v", i, key, err)}
		}
		if _, exists := s.byKey[key]; exists {
			return nil, &errs.DecodeError{Reason: fmt.Sprintf("duplicate class key %q in schema blob", key)}
		}
		idx := len(s.classes)
		s.byKey[key] = idx
		s.classes = append(s.classes, Class{Key: key, Type: t, Index: idx})
	}
	if r.Len() != 0 {
		return nil, &errs.DecodeError{Reason: "trailing bytes after schema blob"}
	}
	return s, nil
}

const (
	typeTagURI       = 0
	typeTagLiteral   = 1
	typeTagProduct   = 2
	typeTagCoproduct = 3
	typeTagReference = 4
)

func appendString(buf []byte, s string) []byte {
	s = NormalizeString(s)
	buf = varint.Append(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := varint.Decode(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeType(buf []byte, t Type) []byte {
	switch tt := t.(type) {
	case URI:
		return append(buf, typeTagURI)
	case Literal:
		buf = append(buf, typeTagLiteral)
		return appendString(buf, string(tt.Datatype))
	case Reference:
		buf = append(buf, typeTagReference)
		return appendString(buf, tt.ClassKey)
	case Product:
		buf = append(buf, typeTagProduct)
		buf = varint.Append(buf, uint64(len(tt.Components)))
		for _, c := range tt.Components {
			buf = appendString(buf, c.Key)
			buf = encodeType(buf, c.Type)
		}
		return buf
	case Coproduct:
		buf = append(buf, typeTagCoproduct)
		buf = varint.Append(buf, uint64(len(tt.Options)))
		for _, c := range tt.Options {
			buf = appendString(buf, c.Key)
			buf = encodeType(buf, c.Type)
		}
		return buf
	default:
		panic(fmt.Sprintf("tasl: unhandled type node %T", t))
	}
}

func decodeType(r *bytes.Reader) (Type, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case typeTagURI:
		return URI{}, nil
	case typeTagLiteral:
		dt, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Literal{Datatype: Datatype(dt)}, nil
	case typeTagReference:
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Reference{ClassKey: key}, nil
	case typeTagProduct:
		comps, err := decodeComponents(r)
		if err != nil {
			return nil, err
		}
		return Product{Components: comps}, nil
	case typeTagCoproduct:
		comps, err := decodeComponents(r)
		if err != nil {
			return nil, err
		}
		return Coproduct{Options: comps}, nil
	default:
		return nil, fmt.Errorf("unknown type tag %d", tag)
	}
}

func decodeComponents(r *bytes.Reader) ([]Component, error) {
	n, err := varint.Decode(r)
	if err != nil {
		return nil, err
	}
	comps := make([]Component, n)
	for i := range comps {
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		t, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		comps[i] = Component{Key: key, Type: t}
	}
	return comps, nil
}
