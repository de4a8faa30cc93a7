package compile

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/jmatsushita/taslite/internal/tasl"
)

func microSchema(t *testing.T) *tasl.Schema {
	t.Helper()
	aType := tasl.Product{Components: []tasl.Component{
		{Key: "n", Type: tasl.Literal{Datatype: tasl.DatatypeUnsignedByte}},
		{Key: "b", Type: tasl.Literal{Datatype: tasl.DatatypeBoolean}},
	}}
	bType := tasl.Coproduct{Options: []tasl.Component{
		{Key: "bytes", Type: tasl.Literal{Datatype: tasl.DatatypeHexBinary}},
		{Key: "unit", Type: tasl.Product{}},
		{Key: "uri", Type: tasl.URI{}},
	}}
	schema, err := tasl.NewSchema(
		struct {
			Key  string
			Type tasl.Type
		}{Key: "a", Type: aType},
		struct {
			Key  string
			Type tasl.Type
		}{Key: "b", Type: bType},
	)
	require.NoError(t, err)
	return schema
}

func TestCompileMicroColumns(t *testing.T) {
	schema := microSchema(t)
	tables, err := Compile(schema)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	a := tables[0]
	require.Equal(t, "c0", a.Name)
	require.Equal(t, []string{"e_0", "e_1"}, a.ColumnNames())
	require.False(t, a.Columns[0].Nullable)
	require.False(t, a.Columns[1].Nullable)

	b := tables[1]
	require.Equal(t, "c1", b.Name)
	require.Equal(t, []string{"e", "e_0", "e_2"}, b.ColumnNames(), "the unit option contributes no columns of its own, but bytes/uri do")
	require.Len(t, b.Coproducts, 1)
	require.Equal(t, "e", b.Coproducts[0].IndexColumn)
	require.False(t, b.Columns[0].Nullable, "the discriminant column itself is not inside any coproduct option")
	require.True(t, b.Columns[1].Nullable)
	require.True(t, b.Columns[2].Nullable)
}

func TestCompileReferenceForeignKey(t *testing.T) {
	bookType := tasl.Reference{ClassKey: "author"}
	schema, err := tasl.NewSchema(
		struct {
			Key  string
			Type tasl.Type
		}{Key: "author", Type: tasl.Product{}},
		struct {
			Key  string
			Type tasl.Type
		}{Key: "book", Type: bookType},
	)
	require.NoError(t, err)

	tables, err := Compile(schema)
	require.NoError(t, err)
	book := tables[1]
	require.Len(t, book.Columns, 1)
	require.Equal(t, "c0", book.Columns[0].RefTable)
}

func TestDDLGolden(t *testing.T) {
	schema := microSchema(t)
	tables, err := Compile(schema)
	require.NoError(t, err)

	var out string
	for _, tbl := range tables {
		out += tbl.DDL() + ";\n\n"
	}

	g := goldie.New(t)
	g.Assert(t, "micro_ddl", []byte(out))
}

func TestDDLDeterministic(t *testing.T) {
	schema := microSchema(t)
	tables1, err := Compile(schema)
	require.NoError(t, err)
	tables2, err := Compile(schema)
	require.NoError(t, err)

	for i := range tables1 {
		require.Equal(t, tables1[i].DDL(), tables2[i].DDL())
	}
}
