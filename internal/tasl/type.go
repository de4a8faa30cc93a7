// Package tasl defines the algebraic schema/value/mapping AST that an
// external "tasl" library would normally supply (spec.md §1 treats parsing
// and constructing this AST as out of scope for the core). Nothing in this
// package parses schema source text: types, values, schemas, and mappings
// are always built as Go values, by a caller that already has them.
package tasl

import "fmt"

// Type is the sealed union of algebraic type constructors: uri, literal,
// product, coproduct, reference. The unexported marker method closes the
// set, mirroring the teacher's ir.IRValue sealed-interface technique.
type Type interface {
	typeNode()
}

// URI is the type of IRI-valued elements.
type URI struct{}

func (URI) typeNode() {}

// Literal is the type of a value with a fixed XSD/RDF datatype.
type Literal struct {
	Datatype Datatype
}

func (Literal) typeNode() {}

// Component is one named, ordered field of a Product or Coproduct.
type Component struct {
	Key  string
	Type Type
}

// Product is an ordered record type. Component order is canonical schema
// order and drives both column order (§4.2) and path indices (§4.1).
type Product struct {
	Components []Component
}

func (Product) typeNode() {}

// Coproduct is an ordered tagged-union type over its Options.
type Coproduct struct {
	Options []Component
}

func (Coproduct) typeNode() {}

// Reference is a typed foreign key into another class of the same schema.
type Reference struct {
	ClassKey string
}

func (Reference) typeNode() {}

// IndexOf returns the 0-based position of key among the Product's
// components, or -1 if key is not a component.
func (p Product) IndexOf(key string) int {
	for i, c := range p.Components {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Component returns the component typed key, and whether it exists.
func (p Product) Component(key string) (Type, bool) {
	if i := p.IndexOf(key); i >= 0 {
		return p.Components[i].Type, true
	}
	return nil, false
}

// IndexOf returns the 0-based option index of key, or -1 if key is not an
// option of the coproduct.
func (c Coproduct) IndexOf(key string) int {
	for i, o := range c.Options {
		if o.Key == key {
			return i
		}
	}
	return -1
}

// Option returns the type of the named option, and whether it exists.
func (c Coproduct) Option(key string) (Type, bool) {
	if i := c.IndexOf(key); i >= 0 {
		return c.Options[i].Type, true
	}
	return nil, false
}

// Datatype enumerates the closed set of XSD/RDF literal datatypes spec.md
// §3 recognizes. FixedWidth reports a byte width and true for fixed-width
// datatypes, and false for variable-width datatypes (hexBinary, rdf:JSON,
// and every other IRI).
type Datatype string

const (
	DatatypeBoolean       Datatype = "http://www.w3.org/2001/XMLSchema#boolean"
	DatatypeByte          Datatype = "http://www.w3.org/2001/XMLSchema#byte"
	DatatypeUnsignedByte  Datatype = "http://www.w3.org/2001/XMLSchema#unsignedByte"
	DatatypeShort         Datatype = "http://www.w3.org/2001/XMLSchema#short"
	DatatypeUnsignedShort Datatype = "http://www.w3.org/2001/XMLSchema#unsignedShort"
	DatatypeInt           Datatype = "http://www.w3.org/2001/XMLSchema#int"
	DatatypeUnsignedInt   Datatype = "http://www.w3.org/2001/XMLSchema#unsignedInt"
	DatatypeLong          Datatype = "http://www.w3.org/2001/XMLSchema#long"
	DatatypeUnsignedLong  Datatype = "http://www.w3.org/2001/XMLSchema#unsignedLong"
	DatatypeFloat         Datatype = "http://www.w3.org/2001/XMLSchema#float"
	DatatypeDouble        Datatype = "http://www.w3.org/2001/XMLSchema#double"
	DatatypeHexBinary     Datatype = "http://www.w3.org/2001/XMLSchema#hexBinary"
	DatatypeString        Datatype = "http://www.w3.org/2001/XMLSchema#string"
	DatatypeJSON          Datatype = "http://underlay.org/ns/rdf#JSON"
)

// fixedWidths maps fixed-width datatypes to their byte width on the wire
// and in storage. Datatypes absent from this map are variable-width.
var fixedWidths = map[Datatype]int{
	DatatypeBoolean:       1,
	DatatypeByte:          1,
	DatatypeUnsignedByte:  1,
	DatatypeShort:         2,
	DatatypeUnsignedShort: 2,
	DatatypeInt:           4,
	DatatypeUnsignedInt:   4,
	DatatypeLong:          8,
	DatatypeUnsignedLong:  8,
	DatatypeFloat:         4,
	DatatypeDouble:        8,
}

// signedIntegerDatatypes are the fixed-width datatypes whose storage representation
// is a signed integer cell (as opposed to unsigned, float, or boolean).
var signedIntegerDatatypes = map[Datatype]bool{
	DatatypeByte:  true,
	DatatypeShort: true,
	DatatypeInt:   true,
	DatatypeLong:  true,
}

var unsignedIntegerDatatypes = map[Datatype]bool{
	DatatypeUnsignedByte:  true,
	DatatypeUnsignedShort: true,
	DatatypeUnsignedInt:   true,
	DatatypeUnsignedLong:  true,
}

var floatDatatypes = map[Datatype]bool{
	DatatypeFloat:  true,
	DatatypeDouble: true,
}

// FixedWidth returns the byte width of d on the wire, and whether d is
// fixed-width at all.
func (d Datatype) FixedWidth() (int, bool) {
	w, ok := fixedWidths[d]
	return w, ok
}

// IsBoolean reports whether d is the boolean datatype.
func (d Datatype) IsBoolean() bool { return d == DatatypeBoolean }

// IsSignedInteger reports whether d stores as a signed integer cell.
func (d Datatype) IsSignedInteger() bool { return signedIntegerDatatypes[d] }

// IsUnsignedInteger reports whether d stores as an unsigned integer cell.
func (d Datatype) IsUnsignedInteger() bool { return unsignedIntegerDatatypes[d] }

// IsInteger reports whether d is any fixed-width integer datatype.
func (d Datatype) IsInteger() bool { return d.IsSignedInteger() || d.IsUnsignedInteger() }

// IsFloat reports whether d is float or double.
func (d Datatype) IsFloat() bool { return floatDatatypes[d] }

// IsHexBinary reports whether d is hexBinary (variable-width bytes).
func (d Datatype) IsHexBinary() bool { return d == DatatypeHexBinary }

// IsJSON reports whether d is rdf:JSON (CBOR-transcoded on the wire).
func (d Datatype) IsJSON() bool { return d == DatatypeJSON }

// IsVariableWidth reports whether d is not one of the fixed-width
// datatypes — hexBinary, rdf:JSON, and every other IRI are all
// variable-width strings/bytes per spec.md §3.
func (d Datatype) IsVariableWidth() bool {
	_, fixed := d.FixedWidth()
	return !fixed
}

// Equal reports whether two types are structurally identical. Class keys,
// datatype IRIs, and reference class keys are compared after NFC
// normalization (NormalizeString), the same normalization applied before
// the schema is written to storage (internal/tasl/canonical.go), so two
// byte-distinct-but-canonically-equal IRIs never spuriously compare unequal.
func Equal(a, b Type) bool {
	switch av := a.(type) {
	case URI:
		_, ok := b.(URI)
		return ok
	case Literal:
		bv, ok := b.(Literal)
		return ok && NormalizeString(string(av.Datatype)) == NormalizeString(string(bv.Datatype))
	case Reference:
		bv, ok := b.(Reference)
		return ok && NormalizeString(av.ClassKey) == NormalizeString(bv.ClassKey)
	case Product:
		bv, ok := b.(Product)
		return ok && componentsEqual(av.Components, bv.Components)
	case Coproduct:
		bv, ok := b.(Coproduct)
		return ok && componentsEqual(av.Options, bv.Options)
	default:
		panic(fmt.Sprintf("tasl: unhandled type node %T", a))
	}
}

func componentsEqual(a, b []Component) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if NormalizeString(a[i].Key) != NormalizeString(b[i].Key) || !Equal(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
