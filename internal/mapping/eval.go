// Package mapping implements the Mapping Evaluator (spec.md §4.6) and the
// Migration Driver built on it (spec.md §4.7): evaluating a mapping's class
// rules against a source database, following term/match expressions
// through live stored elements, and replaying the results into a freshly
// created target database.
//
// The interpreter is grounded on internal/engine's type-switch expression
// walk — generalized from NYSM's action-argument binding environment to
// tasl's algebraic expression AST, dereferencing through a live handle
// instead of a static binding table.
package mapping

import (
	"context"
	"fmt"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// Getter is the subset of internal/db.DB the evaluator needs to follow
// dereference path segments: a point lookup by class key and id.
type Getter interface {
	Get(ctx context.Context, key string, id uint64) (tasl.Value, error)
}

// binding pairs a variable's bound type with its value, so path-folding
// and projection always know what type they're working with.
type binding struct {
	Type  tasl.Type
	Value tasl.Value
}

// Env binds expression variable ids (the id of a term/match expression) to
// their (type, value) pair.
type Env map[string]binding

// Eval evaluates expr against expected, the type expr's result must
// conform to. schema resolves class keys for dereference segments, and
// getter reads the live elements dereference follows.
func Eval(ctx context.Context, expr tasl.Expr, expected tasl.Type, env Env, schema *tasl.Schema, getter Getter) (tasl.Value, error) {
	switch e := expr.(type) {
	case tasl.URIExpr:
		if _, ok := expected.(tasl.URI); !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("uri expression used where %s expected", tasl.TypeKind(expected))}
		}
		v := tasl.URIValue{Value: e.Value}
		if err := tasl.Check(expected, v); err != nil {
			return nil, err
		}
		return v, nil

	case tasl.LiteralExpr:
		lt, ok := expected.(tasl.Literal)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("literal expression used where %s expected", tasl.TypeKind(expected))}
		}
		v := tasl.LiteralValue{Value: e.Value}
		if err := tasl.Check(lt, v); err != nil {
			return nil, err
		}
		return v, nil

	case tasl.ProductExpr:
		pt, ok := expected.(tasl.Product)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("product expression used where %s expected", tasl.TypeKind(expected))}
		}
		components := make(map[string]tasl.Value, len(pt.Components))
		for _, c := range pt.Components {
			ce, present := e.Components[c.Key]
			if !present {
				return nil, &errs.TypeError{Reason: fmt.Sprintf("missing product component %q", c.Key)}
			}
			cv, err := Eval(ctx, ce, c.Type, env, schema, getter)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", c.Key, err)
			}
			components[c.Key] = cv
		}
		return tasl.ProductValue{Components: components}, nil

	case tasl.CoproductExpr:
		ct, ok := expected.(tasl.Coproduct)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("coproduct expression used where %s expected", tasl.TypeKind(expected))}
		}
		optType, present := ct.Option(e.Option)
		if !present {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("unknown coproduct option %q", e.Option)}
		}
		v, err := Eval(ctx, e.Value, optType, env, schema, getter)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", e.Option, err)
		}
		return tasl.CoproductValue{Option: e.Option, Value: v}, nil

	case tasl.TermExpr:
		curType, curValue, err := foldTerm(ctx, e.ID, e.Path, env, schema, getter)
		if err != nil {
			return nil, err
		}
		return project(curType, curValue, expected)

	case tasl.MatchExpr:
		curType, curValue, err := foldTerm(ctx, e.ID, e.Path, env, schema, getter)
		if err != nil {
			return nil, err
		}
		ct, ok := curType.(tasl.Coproduct)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("match target is %s, not a coproduct", tasl.TypeKind(curType))}
		}
		cv, ok := curValue.(tasl.CoproductValue)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("match target is %s, not a coproduct value", tasl.Kind(curValue))}
		}
		armType, present := ct.Option(cv.Option)
		if !present {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("coproduct arm %q unknown to its own type", cv.Option)}
		}
		mc, present := e.Cases[cv.Option]
		if !present {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("missing match case %q", cv.Option)}
		}
		extended := make(Env, len(env)+1)
		for k, v := range env {
			extended[k] = v
		}
		extended[mc.ID] = binding{Type: armType, Value: cv.Value}
		return Eval(ctx, mc.Value, expected, extended, schema, getter)

	default:
		return nil, &errs.TypeError{Reason: fmt.Sprintf("unhandled expression node %T", expr)}
	}
}

// foldTerm resolves id in env, then walks path, folding each segment:
// projection drills into a product component, dereference follows a
// reference to a live element of the named class.
func foldTerm(ctx context.Context, id string, segments []tasl.Segment, env Env, schema *tasl.Schema, getter Getter) (tasl.Type, tasl.Value, error) {
	b, present := env[id]
	if !present {
		return nil, nil, &errs.LookupError{Reason: fmt.Sprintf("unbound variable %q", id)}
	}
	curType, curValue := b.Type, b.Value
	for _, seg := range segments {
		var err error
		curType, curValue, err = foldSegment(ctx, curType, curValue, seg, schema, getter)
		if err != nil {
			return nil, nil, err
		}
	}
	return curType, curValue, nil
}

func foldSegment(ctx context.Context, curType tasl.Type, curValue tasl.Value, seg tasl.Segment, schema *tasl.Schema, getter Getter) (tasl.Type, tasl.Value, error) {
	switch s := seg.(type) {
	case tasl.Projection:
		pt, ok := curType.(tasl.Product)
		if !ok {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("projecting %q on non-product %s", s.Key, tasl.TypeKind(curType))}
		}
		compType, present := pt.Component(s.Key)
		if !present {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("unknown projection key %q", s.Key)}
		}
		pv, ok := curValue.(tasl.ProductValue)
		if !ok {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("projecting %q on non-product value %s", s.Key, tasl.Kind(curValue))}
		}
		compValue, present := pv.Components[s.Key]
		if !present {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("missing product component %q", s.Key)}
		}
		return compType, compValue, nil

	case tasl.Dereference:
		rt, ok := curType.(tasl.Reference)
		if !ok {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("dereferencing non-reference %s", tasl.TypeKind(curType))}
		}
		if rt.ClassKey != s.ClassKey {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("dereference names class %q, reference is to %q", s.ClassKey, rt.ClassKey)}
		}
		rv, ok := curValue.(tasl.ReferenceValue)
		if !ok {
			return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("dereferencing non-reference value %s", tasl.Kind(curValue))}
		}
		target, ok := schema.Class(s.ClassKey)
		if !ok {
			return nil, nil, &errs.LookupError{Reason: fmt.Sprintf("unknown class %q", s.ClassKey)}
		}
		value, err := getter.Get(ctx, s.ClassKey, rv.ID)
		if err != nil {
			return nil, nil, err
		}
		return target.Type, value, nil

	default:
		return nil, nil, &errs.TypeError{Reason: fmt.Sprintf("unhandled path segment %T", seg)}
	}
}

// project casts (curType, curValue) down to expected, per spec.md §4.6:
// variants must match, product components are projected pointwise (extra
// source components are dropped), coproducts preserve the chosen arm, and
// literal datatypes must match exactly.
func project(curType tasl.Type, curValue tasl.Value, expected tasl.Type) (tasl.Value, error) {
	switch et := expected.(type) {
	case tasl.URI:
		if _, ok := curType.(tasl.URI); !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s is not uri", tasl.TypeKind(curType))}
		}
		return curValue, nil

	case tasl.Literal:
		lt, ok := curType.(tasl.Literal)
		if !ok || lt.Datatype != et.Datatype {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s does not match literal(%s)", tasl.TypeKind(curType), et.Datatype)}
		}
		return curValue, nil

	case tasl.Reference:
		rt, ok := curType.(tasl.Reference)
		if !ok || rt.ClassKey != et.ClassKey {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s does not match reference(%s)", tasl.TypeKind(curType), et.ClassKey)}
		}
		return curValue, nil

	case tasl.Product:
		pt, ok := curType.(tasl.Product)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s is not a product", tasl.TypeKind(curType))}
		}
		pv, ok := curValue.(tasl.ProductValue)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s is not a product value", tasl.Kind(curValue))}
		}
		components := make(map[string]tasl.Value, len(et.Components))
		for _, c := range et.Components {
			srcType, present := pt.Component(c.Key)
			if !present {
				return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: missing source component %q", c.Key)}
			}
			srcValue, present := pv.Components[c.Key]
			if !present {
				return nil, &errs.TypeError{Reason: fmt.Sprintf("missing product component %q", c.Key)}
			}
			projected, err := project(srcType, srcValue, c.Type)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", c.Key, err)
			}
			components[c.Key] = projected
		}
		return tasl.ProductValue{Components: components}, nil

	case tasl.Coproduct:
		ct, ok := curType.(tasl.Coproduct)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s is not a coproduct", tasl.TypeKind(curType))}
		}
		cv, ok := curValue.(tasl.CoproductValue)
		if !ok {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: %s is not a coproduct value", tasl.Kind(curValue))}
		}
		srcOptType, present := ct.Option(cv.Option)
		if !present {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("coproduct arm %q unknown to its own type", cv.Option)}
		}
		dstOptType, present := et.Option(cv.Option)
		if !present {
			return nil, &errs.TypeError{Reason: fmt.Sprintf("projection to incompatible type: target coproduct has no option %q", cv.Option)}
		}
		projected, err := project(srcOptType, cv.Value, dstOptType)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", cv.Option, err)
		}
		return tasl.CoproductValue{Option: cv.Option, Value: projected}, nil

	default:
		return nil, &errs.TypeError{Reason: fmt.Sprintf("unhandled type node %T", expected)}
	}
}
