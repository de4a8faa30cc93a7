package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmatsushita/taslite/internal/tasl"
)

// This file is CLI-only plumbing: internal/tasl deliberately has no schema
// source text parser (that is the out-of-scope "tasl library"'s job), but
// the CLI still needs *some* on-disk shape for schemas, values, and
// mappings that a user can hand it as a file. JSON (or YAML, detected by
// file extension, following the teacher's use of yaml.v3 for its own
// on-disk fixture format) is used because the pack carries no dedicated
// schema/AST serialization library for this algebraic shape, and every
// command here is argument-parsing plumbing, not core semantics.

// unmarshalFile decodes data as YAML if path ends in .yaml/.yml, JSON
// otherwise.
func unmarshalFile(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

type typeJSON struct {
	Kind       string          `json:"kind" yaml:"kind"`
	Datatype   string          `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	ClassKey   string          `json:"classKey,omitempty" yaml:"classKey,omitempty"`
	Components []componentJSON `json:"components,omitempty" yaml:"components,omitempty"`
	Options    []componentJSON `json:"options,omitempty" yaml:"options,omitempty"`
}

type componentJSON struct {
	Key  string   `json:"key" yaml:"key"`
	Type typeJSON `json:"type" yaml:"type"`
}

func encodeType(t tasl.Type) typeJSON {
	switch tt := t.(type) {
	case tasl.URI:
		return typeJSON{Kind: "uri"}
	case tasl.Literal:
		return typeJSON{Kind: "literal", Datatype: string(tt.Datatype)}
	case tasl.Reference:
		return typeJSON{Kind: "reference", ClassKey: tt.ClassKey}
	case tasl.Product:
		return typeJSON{Kind: "product", Components: encodeComponents(tt.Components)}
	case tasl.Coproduct:
		return typeJSON{Kind: "coproduct", Options: encodeComponents(tt.Options)}
	default:
		panic(fmt.Sprintf("cli: unhandled type node %T", t))
	}
}

func encodeComponents(cs []tasl.Component) []componentJSON {
	out := make([]componentJSON, len(cs))
	for i, c := range cs {
		out[i] = componentJSON{Key: c.Key, Type: encodeType(c.Type)}
	}
	return out
}

func decodeType(j typeJSON) (tasl.Type, error) {
	switch j.Kind {
	case "uri":
		return tasl.URI{}, nil
	case "literal":
		return tasl.Literal{Datatype: tasl.Datatype(j.Datatype)}, nil
	case "reference":
		return tasl.Reference{ClassKey: j.ClassKey}, nil
	case "product":
		cs, err := decodeComponents(j.Components)
		if err != nil {
			return nil, err
		}
		return tasl.Product{Components: cs}, nil
	case "coproduct":
		cs, err := decodeComponents(j.Options)
		if err != nil {
			return nil, err
		}
		return tasl.Coproduct{Options: cs}, nil
	default:
		return nil, fmt.Errorf("cli: unknown type kind %q", j.Kind)
	}
}

func decodeComponents(js []componentJSON) ([]tasl.Component, error) {
	out := make([]tasl.Component, len(js))
	for i, j := range js {
		t, err := decodeType(j.Type)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", j.Key, err)
		}
		out[i] = tasl.Component{Key: j.Key, Type: t}
	}
	return out, nil
}

type classJSON struct {
	Key  string   `json:"key" yaml:"key"`
	Type typeJSON `json:"type" yaml:"type"`
}

func encodeSchema(s *tasl.Schema) []classJSON {
	classes := s.Classes()
	out := make([]classJSON, len(classes))
	for i, c := range classes {
		out[i] = classJSON{Key: c.Key, Type: encodeType(c.Type)}
	}
	return out
}

func decodeSchema(js []classJSON) (*tasl.Schema, error) {
	entries := make([]struct {
		Key  string
		Type tasl.Type
	}, len(js))
	for i, j := range js {
		t, err := decodeType(j.Type)
		if err != nil {
			return nil, fmt.Errorf("class %q: %w", j.Key, err)
		}
		entries[i].Key = j.Key
		entries[i].Type = t
	}
	return tasl.NewSchema(entries...)
}

// ReadSchemaFile decodes a schema from data, as YAML if path ends in
// .yaml/.yml, JSON otherwise.
func ReadSchemaFile(path string, data []byte) (*tasl.Schema, error) {
	var js []classJSON
	if err := unmarshalFile(path, data, &js); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return decodeSchema(js)
}

// WriteSchemaJSON encodes schema as indented JSON.
func WriteSchemaJSON(schema *tasl.Schema) ([]byte, error) {
	return json.MarshalIndent(encodeSchema(schema), "", "  ")
}

type valueJSON struct {
	Kind        string               `json:"kind" yaml:"kind"`
	Value       string               `json:"value,omitempty" yaml:"value,omitempty"`
	ID          uint64               `json:"id,omitempty" yaml:"id,omitempty"`
	Components  map[string]valueJSON `json:"components,omitempty" yaml:"components,omitempty"`
	Option      string               `json:"option,omitempty" yaml:"option,omitempty"`
	OptionValue *valueJSON           `json:"optionValue,omitempty" yaml:"optionValue,omitempty"`
}

func encodeValue(v tasl.Value) valueJSON {
	switch vv := v.(type) {
	case tasl.URIValue:
		return valueJSON{Kind: "uri", Value: vv.Value}
	case tasl.LiteralValue:
		return valueJSON{Kind: "literal", Value: vv.Value}
	case tasl.ReferenceValue:
		return valueJSON{Kind: "reference", ID: vv.ID}
	case tasl.ProductValue:
		components := make(map[string]valueJSON, len(vv.Components))
		for k, cv := range vv.Components {
			components[k] = encodeValue(cv)
		}
		return valueJSON{Kind: "product", Components: components}
	case tasl.CoproductValue:
		optVal := encodeValue(vv.Value)
		return valueJSON{Kind: "coproduct", Option: vv.Option, OptionValue: &optVal}
	default:
		panic(fmt.Sprintf("cli: unhandled value node %T", v))
	}
}

func decodeValue(j valueJSON) (tasl.Value, error) {
	switch j.Kind {
	case "uri":
		return tasl.URIValue{Value: j.Value}, nil
	case "literal":
		return tasl.LiteralValue{Value: j.Value}, nil
	case "reference":
		return tasl.ReferenceValue{ID: j.ID}, nil
	case "product":
		components := make(map[string]tasl.Value, len(j.Components))
		for k, cj := range j.Components {
			cv, err := decodeValue(cj)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", k, err)
			}
			components[k] = cv
		}
		return tasl.ProductValue{Components: components}, nil
	case "coproduct":
		if j.OptionValue == nil {
			return nil, fmt.Errorf("cli: coproduct value missing optionValue")
		}
		ov, err := decodeValue(*j.OptionValue)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", j.Option, err)
		}
		return tasl.CoproductValue{Option: j.Option, Value: ov}, nil
	default:
		return nil, fmt.Errorf("cli: unknown value kind %q", j.Kind)
	}
}

// ReadValueFile decodes a value from data, as YAML if path ends in
// .yaml/.yml, JSON otherwise.
func ReadValueFile(path string, data []byte) (tasl.Value, error) {
	var j valueJSON
	if err := unmarshalFile(path, data, &j); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return decodeValue(j)
}

// WriteValueJSON encodes v as indented JSON.
func WriteValueJSON(v tasl.Value) ([]byte, error) {
	return json.MarshalIndent(encodeValue(v), "", "  ")
}
