package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmatsushita/taslite/internal/db"
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
)

func personGenderSchema(t *testing.T) *tasl.Schema {
	t.Helper()
	personType := tasl.Product{Components: []tasl.Component{
		{Key: "name", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		{Key: "gender", Type: tasl.Coproduct{Options: []tasl.Component{
			{Key: "Male", Type: tasl.Product{}},
			{Key: "Female", Type: tasl.Product{}},
			{Key: "value", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		}}},
	}}
	s, err := tasl.NewSchema(struct {
		Key  string
		Type tasl.Type
	}{Key: "Person", Type: personType})
	require.NoError(t, err)
	return s
}

func flatPersonSchema(t *testing.T) *tasl.Schema {
	t.Helper()
	personType := tasl.Product{Components: []tasl.Component{
		{Key: "name", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		{Key: "gender", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
	}}
	s, err := tasl.NewSchema(struct {
		Key  string
		Type tasl.Type
	}{Key: "person", Type: personType})
	require.NoError(t, err)
	return s
}

func genderFlatteningMapping(t *testing.T, source, target *tasl.Schema) *tasl.Mapping {
	t.Helper()
	genderExpr := tasl.MatchExpr{
		ID:   "p",
		Path: []tasl.Segment{tasl.Projection{Key: "gender"}},
		Cases: map[string]tasl.MatchCase{
			"Male":   {ID: "_", Value: tasl.LiteralExpr{Value: "Male"}},
			"Female": {ID: "_", Value: tasl.LiteralExpr{Value: "Female"}},
			"value":  {ID: "v", Value: tasl.TermExpr{ID: "v"}},
		},
	}
	rule := tasl.ClassRule{
		Target: "person",
		Source: "Person",
		ID:     "p",
		Value: tasl.ProductExpr{Components: map[string]tasl.Expr{
			"name":   tasl.TermExpr{ID: "p", Path: []tasl.Segment{tasl.Projection{Key: "name"}}},
			"gender": genderExpr,
		}},
	}
	return &tasl.Mapping{Source: source, Target: target, Rules: []tasl.ClassRule{rule}}
}

func TestGenderFlatteningMigrationScenario(t *testing.T) {
	ctx := context.Background()
	sourceSchema := personGenderSchema(t)
	targetSchema := flatPersonSchema(t)

	source, err := db.Create(ctx, "", sourceSchema)
	require.NoError(t, err)
	defer source.Close()

	require.NoError(t, source.Set(ctx, "Person", 1, tasl.ProductValue{Components: map[string]tasl.Value{
		"name":   tasl.LiteralValue{Value: "Ada"},
		"gender": tasl.CoproductValue{Option: "Female", Value: tasl.ProductValue{Components: map[string]tasl.Value{}}},
	}}))
	require.NoError(t, source.Set(ctx, "Person", 2, tasl.ProductValue{Components: map[string]tasl.Value{
		"name":   tasl.LiteralValue{Value: "Bob"},
		"gender": tasl.CoproductValue{Option: "Male", Value: tasl.ProductValue{Components: map[string]tasl.Value{}}},
	}}))

	m := genderFlatteningMapping(t, sourceSchema, targetSchema)

	target, err := Migrate(ctx, source, m, "")
	require.NoError(t, err)
	defer target.Close()

	got1, err := target.Get(ctx, "person", 1)
	require.NoError(t, err)
	require.Equal(t, tasl.ProductValue{Components: map[string]tasl.Value{
		"name":   tasl.LiteralValue{Value: "Ada"},
		"gender": tasl.LiteralValue{Value: "Female"},
	}}, got1)

	got2, err := target.Get(ctx, "person", 2)
	require.NoError(t, err)
	require.Equal(t, tasl.ProductValue{Components: map[string]tasl.Value{
		"name":   tasl.LiteralValue{Value: "Bob"},
		"gender": tasl.LiteralValue{Value: "Male"},
	}}, got2)
}

func TestMigrateSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	sourceSchema := personGenderSchema(t)
	targetSchema := flatPersonSchema(t)

	source, err := db.Create(ctx, "", sourceSchema)
	require.NoError(t, err)
	defer source.Close()

	wrongSchema := flatPersonSchema(t)
	m := genderFlatteningMapping(t, wrongSchema, targetSchema)

	_, err = Migrate(ctx, source, m, "")
	require.Error(t, err)
	var mismatch *errs.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
}
