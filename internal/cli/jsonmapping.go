package cli

import (
	"fmt"

	"github.com/jmatsushita/taslite/internal/tasl"
)

type segmentJSON struct {
	Kind     string `json:"kind" yaml:"kind"` // "projection" | "dereference"
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	ClassKey string `json:"classKey,omitempty" yaml:"classKey,omitempty"`
}

func decodeSegment(j segmentJSON) (tasl.Segment, error) {
	switch j.Kind {
	case "projection":
		return tasl.Projection{Key: j.Key}, nil
	case "dereference":
		return tasl.Dereference{ClassKey: j.ClassKey}, nil
	default:
		return nil, fmt.Errorf("cli: unknown path segment kind %q", j.Kind)
	}
}

func decodeSegments(js []segmentJSON) ([]tasl.Segment, error) {
	out := make([]tasl.Segment, len(js))
	for i, j := range js {
		s, err := decodeSegment(j)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

type exprJSON struct {
	Kind        string                   `json:"kind" yaml:"kind"`
	Value       string                   `json:"value,omitempty" yaml:"value,omitempty"`
	Components  map[string]exprJSON      `json:"components,omitempty" yaml:"components,omitempty"`
	Option      string                   `json:"option,omitempty" yaml:"option,omitempty"`
	OptionValue *exprJSON                `json:"optionValue,omitempty" yaml:"optionValue,omitempty"`
	ID          string                   `json:"id,omitempty" yaml:"id,omitempty"`
	Path        []segmentJSON            `json:"path,omitempty" yaml:"path,omitempty"`
	Cases       map[string]matchCaseJSON `json:"cases,omitempty" yaml:"cases,omitempty"`
}

type matchCaseJSON struct {
	ID    string   `json:"id" yaml:"id"`
	Value exprJSON `json:"value" yaml:"value"`
}

func decodeExpr(j exprJSON) (tasl.Expr, error) {
	switch j.Kind {
	case "uri":
		return tasl.URIExpr{Value: j.Value}, nil
	case "literal":
		return tasl.LiteralExpr{Value: j.Value}, nil
	case "product":
		components := make(map[string]tasl.Expr, len(j.Components))
		for k, cj := range j.Components {
			ce, err := decodeExpr(cj)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", k, err)
			}
			components[k] = ce
		}
		return tasl.ProductExpr{Components: components}, nil
	case "coproduct":
		if j.OptionValue == nil {
			return nil, fmt.Errorf("cli: coproduct expression missing optionValue")
		}
		ov, err := decodeExpr(*j.OptionValue)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", j.Option, err)
		}
		return tasl.CoproductExpr{Option: j.Option, Value: ov}, nil
	case "term":
		path, err := decodeSegments(j.Path)
		if err != nil {
			return nil, err
		}
		return tasl.TermExpr{ID: j.ID, Path: path}, nil
	case "match":
		path, err := decodeSegments(j.Path)
		if err != nil {
			return nil, err
		}
		cases := make(map[string]tasl.MatchCase, len(j.Cases))
		for k, cj := range j.Cases {
			cv, err := decodeExpr(cj.Value)
			if err != nil {
				return nil, fmt.Errorf("case %q: %w", k, err)
			}
			cases[k] = tasl.MatchCase{ID: cj.ID, Value: cv}
		}
		return tasl.MatchExpr{ID: j.ID, Path: path, Cases: cases}, nil
	default:
		return nil, fmt.Errorf("cli: unknown expression kind %q", j.Kind)
	}
}

type classRuleJSON struct {
	Target string   `json:"target" yaml:"target"`
	Source string   `json:"source" yaml:"source"`
	ID     string   `json:"id" yaml:"id"`
	Value  exprJSON `json:"value" yaml:"value"`
}

type mappingJSON struct {
	Source []classJSON     `json:"source" yaml:"source"`
	Target []classJSON     `json:"target" yaml:"target"`
	Rules  []classRuleJSON `json:"rules" yaml:"rules"`
}

// ReadMappingFile decodes a mapping from data, as YAML if path ends in
// .yaml/.yml, JSON otherwise.
func ReadMappingFile(path string, data []byte) (*tasl.Mapping, error) {
	var j mappingJSON
	if err := unmarshalFile(path, data, &j); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	source, err := decodeSchema(j.Source)
	if err != nil {
		return nil, fmt.Errorf("source schema: %w", err)
	}
	target, err := decodeSchema(j.Target)
	if err != nil {
		return nil, fmt.Errorf("target schema: %w", err)
	}
	rules := make([]tasl.ClassRule, len(j.Rules))
	for i, rj := range j.Rules {
		v, err := decodeExpr(rj.Value)
		if err != nil {
			return nil, fmt.Errorf("rule %s <= %s: %w", rj.Target, rj.Source, err)
		}
		rules[i] = tasl.ClassRule{Target: rj.Target, Source: rj.Source, ID: rj.ID, Value: v}
	}
	return &tasl.Mapping{Source: source, Target: target, Rules: rules}, nil
}
