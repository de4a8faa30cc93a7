package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmatsushita/taslite/internal/tasl"
)

func orgSchema(t *testing.T) *tasl.Schema {
	t.Helper()
	s, err := tasl.NewSchema(struct {
		Key  string
		Type tasl.Type
	}{Key: "org", Type: tasl.Literal{Datatype: tasl.DatatypeString}})
	require.NoError(t, err)
	return s
}

func personSchema(t *testing.T) *tasl.Schema {
	t.Helper()
	personType := tasl.Product{Components: []tasl.Component{
		{Key: "name", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		{Key: "age", Type: tasl.Literal{Datatype: tasl.DatatypeUnsignedByte}},
	}}
	s, err := tasl.NewSchema(struct {
		Key  string
		Type tasl.Type
	}{Key: "person", Type: personType})
	require.NoError(t, err)
	return s
}

func TestCreateAndOpenPersistsSchema(t *testing.T) {
	ctx := context.Background()
	schema := personSchema(t)

	filePath := filepath.Join(t.TempDir(), "persist.db")
	database, err := Create(ctx, filePath, schema)
	require.NoError(t, err)
	require.True(t, schema.Equal(database.Schema()))
	require.NoError(t, database.Close())

	reopened, err := Open(ctx, filePath, OpenOptions{})
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, schema.Equal(reopened.Schema()))
}

func TestGetMissingElementIsLookupError(t *testing.T) {
	ctx := context.Background()
	database, err := Create(ctx, "", orgSchema(t))
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Get(ctx, "org", 1)
	require.Error(t, err)
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	database, err := Create(ctx, "", personSchema(t))
	require.NoError(t, err)
	defer database.Close()

	value := tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "ada"},
		"age":  tasl.LiteralValue{Value: "37"},
	}}
	require.NoError(t, database.Set(ctx, "person", 5, value))

	got, err := database.Get(ctx, "person", 5)
	require.NoError(t, err)
	require.Equal(t, value, got)

	has, err := database.Has(ctx, "person", 5)
	require.NoError(t, err)
	require.True(t, has)

	has, err = database.Has(ctx, "person", 6)
	require.NoError(t, err)
	require.False(t, has)

	count, err := database.Count(ctx, "person")
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestSetOverwritesExistingElement(t *testing.T) {
	ctx := context.Background()
	database, err := Create(ctx, "", personSchema(t))
	require.NoError(t, err)
	defer database.Close()

	first := tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "ada"},
		"age":  tasl.LiteralValue{Value: "37"},
	}}
	second := tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "ada lovelace"},
		"age":  tasl.LiteralValue{Value: "38"},
	}}
	require.NoError(t, database.Set(ctx, "person", 1, first))
	require.NoError(t, database.Set(ctx, "person", 1, second))

	got, err := database.Get(ctx, "person", 1)
	require.NoError(t, err)
	require.Equal(t, second, got)

	count, err := database.Count(ctx, "person")
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestPushAssignsAscendingIDs(t *testing.T) {
	ctx := context.Background()
	database, err := Create(ctx, "", personSchema(t))
	require.NoError(t, err)
	defer database.Close()

	id1, err := database.Push(ctx, "person", tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "a"},
		"age":  tasl.LiteralValue{Value: "1"},
	}})
	require.NoError(t, err)

	id2, err := database.Push(ctx, "person", tasl.ProductValue{Components: map[string]tasl.Value{
		"name": tasl.LiteralValue{Value: "b"},
		"age":  tasl.LiteralValue{Value: "2"},
	}})
	require.NoError(t, err)
	require.Greater(t, id2, id1)
}

func TestKeysValuesEntriesIteration(t *testing.T) {
	ctx := context.Background()
	database, err := Create(ctx, "", personSchema(t))
	require.NoError(t, err)
	defer database.Close()

	ids := []uint64{3, 1, 2}
	for _, id := range ids {
		require.NoError(t, database.Set(ctx, "person", id, tasl.ProductValue{Components: map[string]tasl.Value{
			"name": tasl.LiteralValue{Value: "p"},
			"age":  tasl.LiteralValue{Value: "1"},
		}}))
	}

	keyIter, err := database.Keys(ctx, "person")
	require.NoError(t, err)
	var gotKeys []uint64
	for {
		id, ok, err := keyIter.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		gotKeys = append(gotKeys, id)
	}
	require.NoError(t, keyIter.Close())
	require.Equal(t, []uint64{1, 2, 3}, gotKeys)

	entryIter, err := database.Entries(ctx, "person")
	require.NoError(t, err)
	var n int
	for {
		_, _, ok, err := entryIter.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		n++
	}
	require.NoError(t, entryIter.Close())
	require.Equal(t, 3, n)
}

func TestMergeWritesAcrossClassesInOneTransaction(t *testing.T) {
	ctx := context.Background()
	schema, err := tasl.NewSchema(
		struct {
			Key  string
			Type tasl.Type
		}{Key: "org", Type: tasl.Literal{Datatype: tasl.DatatypeString}},
		struct {
			Key  string
			Type tasl.Type
		}{Key: "employee", Type: tasl.Reference{ClassKey: "org"}},
	)
	require.NoError(t, err)
	database, err := Create(ctx, "", schema)
	require.NoError(t, err)
	defer database.Close()

	err = database.Merge(ctx, map[string][]Element{
		"employee": {{ID: 1, Value: tasl.ReferenceValue{ID: 9}}},
		"org":      {{ID: 9, Value: tasl.LiteralValue{Value: "Acme"}}},
	})
	require.NoError(t, err)

	got, err := database.Get(ctx, "employee", 1)
	require.NoError(t, err)
	require.Equal(t, tasl.ReferenceValue{ID: 9}, got)
}
