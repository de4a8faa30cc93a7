package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// stubGetter resolves dereferences against a fixed in-memory table, so
// evaluator tests don't need a live database.
type stubGetter struct {
	elements map[string]map[uint64]tasl.Value
}

func (g stubGetter) Get(_ context.Context, key string, id uint64) (tasl.Value, error) {
	v, ok := g.elements[key][id]
	if !ok {
		return nil, errs.NoElementError(key, id)
	}
	return v, nil
}

func newSchema(t *testing.T, entries ...struct {
	Key  string
	Type tasl.Type
}) *tasl.Schema {
	t.Helper()
	s, err := tasl.NewSchema(entries...)
	require.NoError(t, err)
	return s
}

func TestEvalURIAndLiteral(t *testing.T) {
	ctx := context.Background()
	uriVal, err := Eval(ctx, tasl.URIExpr{Value: "http://example.org/x"}, tasl.URI{}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, tasl.URIValue{Value: "http://example.org/x"}, uriVal)

	litVal, err := Eval(ctx, tasl.LiteralExpr{Value: "42"}, tasl.Literal{Datatype: tasl.DatatypeInt}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, tasl.LiteralValue{Value: "42"}, litVal)
}

func TestEvalTermProjection(t *testing.T) {
	ctx := context.Background()
	sourceType := tasl.Product{Components: []tasl.Component{
		{Key: "name", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		{Key: "age", Type: tasl.Literal{Datatype: tasl.DatatypeUnsignedByte}},
	}}
	sourceValue := tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "ada"},
		"age":  tasl.LiteralValue{Value: "37"},
	}}
	env := Env{"x": binding{Type: sourceType, Value: sourceValue}}

	expr := tasl.TermExpr{ID: "x", Path: []tasl.Segment{tasl.Projection{Key: "name"}}}
	got, err := Eval(ctx, expr, tasl.Literal{Datatype: tasl.DatatypeString}, env, nil, nil)
	require.NoError(t, err)
	require.Equal(t, tasl.LiteralValue{Value: "ada"}, got)
}

func TestEvalTermProductProjectionDropsExtraComponents(t *testing.T) {
	ctx := context.Background()
	sourceType := tasl.Product{Components: []tasl.Component{
		{Key: "name", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		{Key: "age", Type: tasl.Literal{Datatype: tasl.DatatypeUnsignedByte}},
	}}
	sourceValue := tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "ada"},
		"age":  tasl.LiteralValue{Value: "37"},
	}}
	env := Env{"x": binding{Type: sourceType, Value: sourceValue}}

	targetType := tasl.Product{Components: []tasl.Component{
		{Key: "name", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
	}}
	expr := tasl.TermExpr{ID: "x"}
	got, err := Eval(ctx, expr, targetType, env, nil, nil)
	require.NoError(t, err)
	require.Equal(t, tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "ada"},
	}}, got)
}

func TestEvalDereference(t *testing.T) {
	ctx := context.Background()
	schema := newSchema(t, struct {
		Key  string
		Type tasl.Type
	}{Key: "org", Type: tasl.Literal{Datatype: tasl.DatatypeString}})

	getter := stubGetter{elements: map[string]map[uint64]tasl.Value{
		"org": {7: tasl.LiteralValue{Value: "Acme"}},
	}}

	sourceType := tasl.Reference{ClassKey: "org"}
	sourceValue := tasl.ReferenceValue{ID: 7}
	env := Env{"x": binding{Type: sourceType, Value: sourceValue}}

	expr := tasl.TermExpr{ID: "x", Path: []tasl.Segment{tasl.Dereference{ClassKey: "org"}}}
	got, err := Eval(ctx, expr, tasl.Literal{Datatype: tasl.DatatypeString}, env, schema, getter)
	require.NoError(t, err)
	require.Equal(t, tasl.LiteralValue{Value: "Acme"}, got)
}

func TestEvalMatch(t *testing.T) {
	ctx := context.Background()
	sourceType := tasl.Coproduct{Options: []tasl.Component{
		{Key: "male", Type: tasl.Product{}},
		{Key: "female", Type: tasl.Product{}},
		{Key: "other", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
	}}
	sourceValue := tasl.CoproductValue{Option: "female", Value: tasl.ProductValue{Components: map[string]tasl.Value{}}}
	env := Env{"g": binding{Type: sourceType, Value: sourceValue}}

	expr := tasl.MatchExpr{
		ID: "g",
		Cases: map[string]tasl.MatchCase{
			"male":   {ID: "_", Value: tasl.LiteralExpr{Value: "m"}},
			"female": {ID: "_", Value: tasl.LiteralExpr{Value: "f"}},
			"other":  {ID: "v", Value: tasl.TermExpr{ID: "v"}},
		},
	}
	got, err := Eval(ctx, expr, tasl.Literal{Datatype: tasl.DatatypeString}, env, nil, nil)
	require.NoError(t, err)
	require.Equal(t, tasl.LiteralValue{Value: "f"}, got)
}

func TestEvalMatchMissingCaseIsError(t *testing.T) {
	ctx := context.Background()
	sourceType := tasl.Coproduct{Options: []tasl.Component{
		{Key: "a", Type: tasl.Product{}},
		{Key: "b", Type: tasl.Product{}},
	}}
	sourceValue := tasl.CoproductValue{Option: "b", Value: tasl.ProductValue{Components: map[string]tasl.Value{}}}
	env := Env{"x": binding{Type: sourceType, Value: sourceValue}}

	expr := tasl.MatchExpr{
		ID: "x",
		Cases: map[string]tasl.MatchCase{
			"a": {ID: "_", Value: tasl.LiteralExpr{Value: "only-a"}},
		},
	}
	_, err := Eval(ctx, expr, tasl.Literal{Datatype: tasl.DatatypeString}, env, nil, nil)
	require.Error(t, err)
}

func TestEvalCoproductConstruction(t *testing.T) {
	ctx := context.Background()
	targetType := tasl.Coproduct{Options: []tasl.Component{
		{Key: "email", Type: tasl.URI{}},
		{Key: "none", Type: tasl.Product{}},
	}}
	expr := tasl.CoproductExpr{Option: "email", Value: tasl.URIExpr{Value: "mailto:a@b.org"}}
	got, err := Eval(ctx, expr, targetType, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, tasl.CoproductValue{Option: "email", Value: tasl.URIValue{Value: "mailto:a@b.org"}}, got)
}
