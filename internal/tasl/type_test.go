package tasl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolLiteral() Type { return Literal{Datatype: DatatypeBoolean} }

func TestTypeEqual(t *testing.T) {
	a := Product{Components: []Component{
		{Key: "x", Type: boolLiteral()},
		{Key: "y", Type: URI{}},
	}}
	b := Product{Components: []Component{
		{Key: "x", Type: boolLiteral()},
		{Key: "y", Type: URI{}},
	}}
	c := Product{Components: []Component{
		{Key: "y", Type: URI{}},
		{Key: "x", Type: boolLiteral()},
	}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c), "component order matters for structural equality")
}

func TestCheckProductMissingComponent(t *testing.T) {
	pt := Product{Components: []Component{{Key: "a", Type: boolLiteral()}}}
	pv := ProductValue{Components: map[string]Value{}}
	require.Error(t, Check(pt, pv))
}

func TestLiteralRangeChecks(t *testing.T) {
	require.NoError(t, checkLiteralLexical(DatatypeByte, "127"))
	require.NoError(t, checkLiteralLexical(DatatypeByte, "-128"))
	require.Error(t, checkLiteralLexical(DatatypeByte, "128"))
	require.Error(t, checkLiteralLexical(DatatypeUnsignedByte, "-1"))
	require.NoError(t, checkLiteralLexical(DatatypeUnsignedByte, "255"))
	require.Error(t, checkLiteralLexical(DatatypeUnsignedByte, "256"))
}

func TestSchemaEqual(t *testing.T) {
	s1, err := NewSchema(struct {
		Key  string
		Type Type
	}{Key: "http://example.com/foo", Type: boolLiteral()})
	require.NoError(t, err)

	s2, err := NewSchema(struct {
		Key  string
		Type Type
	}{Key: "http://example.com/foo", Type: boolLiteral()})
	require.NoError(t, err)

	assert.True(t, s1.Equal(s2))

	blob := EncodeSchema(s1)
	decoded, err := DecodeSchema(blob)
	require.NoError(t, err)
	assert.True(t, s1.Equal(decoded))
}

func TestEqualNormalizesUnicodeForm(t *testing.T) {
	// "café" with a precomposed é (U+00E9) versus a decomposed e + combining
	// acute accent (U+0065 U+0301) — distinct byte sequences, NFC-equal.
	precomposed := "http://example.com/café"
	decomposed := "http://example.com/café"
	require.NotEqual(t, precomposed, decomposed)

	a := Reference{ClassKey: precomposed}
	b := Reference{ClassKey: decomposed}
	assert.True(t, Equal(a, b))

	ca := Component{Key: precomposed, Type: boolLiteral()}
	cb := Component{Key: decomposed, Type: boolLiteral()}
	assert.True(t, componentsEqual([]Component{ca}, []Component{cb}))

	s1, err := NewSchema(struct {
		Key  string
		Type Type
	}{Key: precomposed, Type: boolLiteral()})
	require.NoError(t, err)
	s2, err := NewSchema(struct {
		Key  string
		Type Type
	}{Key: decomposed, Type: boolLiteral()})
	require.NoError(t, err)
	assert.True(t, s1.Equal(s2))
}
