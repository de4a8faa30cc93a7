package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmatsushita/taslite/internal/tasl"
	"github.com/jmatsushita/taslite/internal/wire"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	schema := personSchema(t)

	source, err := Create(ctx, "", schema)
	require.NoError(t, err)
	defer source.Close()

	values := map[uint64]tasl.ProductValue{
		1: {Components: map[string]tasl.Value{"name": tasl.LiteralValue{Value: "ada"}, "age": tasl.LiteralValue{Value: "37"}}},
		2: {Components: map[string]tasl.Value{"name": tasl.LiteralValue{Value: "bob"}, "age": tasl.LiteralValue{Value: "12"}}},
		5: {Components: map[string]tasl.Value{"name": tasl.LiteralValue{Value: "carol"}, "age": tasl.LiteralValue{Value: "64"}}},
	}
	for id, v := range values {
		require.NoError(t, source.Set(ctx, "person", id, v))
	}

	sink := &wire.SliceSink{}
	require.NoError(t, source.Export(ctx, sink, ExportOptions{ChunkSize: 16}))

	chunks := wire.ChunkBytes(sink.Bytes(), 7)
	imported, err := Import(ctx, "", schema, wire.NewSliceSource(chunks))
	require.NoError(t, err)
	defer imported.Close()

	for id, want := range values {
		got, err := imported.Get(ctx, "person", id)
		require.NoError(t, err)
		require.Equal(t, tasl.Value(want), got)
	}
	count, err := imported.Count(ctx, "person")
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
}

func TestExportThenDoneAfterFullConsume(t *testing.T) {
	ctx := context.Background()
	schema := orgSchema(t)

	source, err := Create(ctx, "", schema)
	require.NoError(t, err)
	defer source.Close()
	require.NoError(t, source.Set(ctx, "org", 1, tasl.LiteralValue{Value: "Acme"}))

	sink := &wire.SliceSink{}
	require.NoError(t, source.Export(ctx, sink, ExportOptions{}))

	dec, err := wire.NewInstanceDecoder(wire.NewSliceSource(wire.ChunkBytes(sink.Bytes(), 3)), schema)
	require.NoError(t, err)
	classIter, err := dec.NextClass()
	require.NoError(t, err)
	for {
		_, _, ok, err := classIter.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.NoError(t, dec.Done())
}
