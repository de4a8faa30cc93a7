package tasl

import (
	"fmt"

	"github.com/jmatsushita/taslite/internal/errs"
)

// Value is the sealed union mirroring Type: uri, literal, product,
// coproduct, reference values (spec.md §3).
type Value interface {
	valueNode()
}

// URIValue holds an IRI string.
type URIValue struct {
	Value string
}

func (URIValue) valueNode() {}

// LiteralValue holds a literal's canonical lexical form, as a string
// regardless of datatype — numeric/boolean/float cells are converted to and
// from this canonical lexical form at the shredding boundary (spec.md §4.4).
type LiteralValue struct {
	Value string
}

func (LiteralValue) valueNode() {}

// ProductValue holds one value per component, keyed the same as the type's
// Components.
type ProductValue struct {
	Components map[string]Value
}

func (ProductValue) valueNode() {}

// CoproductValue holds the chosen option key and its value.
type CoproductValue struct {
	Option string
	Value  Value
}

func (CoproductValue) valueNode() {}

// ReferenceValue holds a target element id.
type ReferenceValue struct {
	ID uint64
}

func (ReferenceValue) valueNode() {}

// NewProductValue builds a ProductValue from key/value pairs, erroring if a
// key is duplicated.
func NewProductValue(pairs ...struct {
	Key   string
	Value Value
}) (ProductValue, error) {
	pv := ProductValue{Components: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		if _, exists := pv.Components[p.Key]; exists {
			return ProductValue{}, fmt.Errorf("tasl: duplicate product component %q", p.Key)
		}
		pv.Components[p.Key] = p.Value
	}
	return pv, nil
}

// Kind returns a short human-readable name for v's variant, used in error
// messages throughout type-checking.
func Kind(v Value) string {
	switch v.(type) {
	case URIValue:
		return "uri"
	case LiteralValue:
		return "literal"
	case ProductValue:
		return "product"
	case CoproductValue:
		return "coproduct"
	case ReferenceValue:
		return "reference"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// TypeKind returns a short human-readable name for t's variant.
func TypeKind(t Type) string {
	switch t.(type) {
	case URI:
		return "uri"
	case Literal:
		return "literal"
	case Product:
		return "product"
	case Coproduct:
		return "coproduct"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// Check reports a *TypeError if v does not conform to t, recursing through
// products/coproducts. This is the shared conformance check used before
// shredding and before accepting a mapping's constant literals.
func Check(t Type, v Value) error {
	switch tt := t.(type) {
	case URI:
		if _, ok := v.(URIValue); !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected uri value, got %s", Kind(v))}
		}
		return nil
	case Literal:
		lv, ok := v.(LiteralValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected literal(%s) value, got %s", tt.Datatype, Kind(v))}
		}
		return checkLiteralLexical(tt.Datatype, lv.Value)
	case Reference:
		if _, ok := v.(ReferenceValue); !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected reference(%s) value, got %s", tt.ClassKey, Kind(v))}
		}
		return nil
	case Product:
		pv, ok := v.(ProductValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected product value, got %s", Kind(v))}
		}
		for _, c := range tt.Components {
			cv, present := pv.Components[c.Key]
			if !present {
				return &errs.TypeError{Reason: fmt.Sprintf("missing product component %q", c.Key)}
			}
			if err := Check(c.Type, cv); err != nil {
				return fmt.Errorf("component %q: %w", c.Key, err)
			}
		}
		if len(pv.Components) != len(tt.Components) {
			return &errs.TypeError{Reason: fmt.Sprintf("product value has %d components, type declares %d", len(pv.Components), len(tt.Components))}
		}
		return nil
	case Coproduct:
		cv, ok := v.(CoproductValue)
		if !ok {
			return &errs.TypeError{Reason: fmt.Sprintf("expected coproduct value, got %s", Kind(v))}
		}
		optType, present := tt.Option(cv.Option)
		if !present {
			return &errs.TypeError{Reason: fmt.Sprintf("unknown coproduct option %q", cv.Option)}
		}
		if err := Check(optType, cv.Value); err != nil {
			return fmt.Errorf("option %q: %w", cv.Option, err)
		}
		return nil
	default:
		panic(fmt.Sprintf("tasl: unhandled type node %T", t))
	}
}
