package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnNameDeterministic(t *testing.T) {
	assert.Equal(t, "e", Path{}.ColumnName())
	assert.Equal(t, "e_0", Path{0}.ColumnName())
	assert.Equal(t, "e_1_0_2", Path{1, 0, 2}.ColumnName())
}

func TestColumnNameInjective(t *testing.T) {
	seen := map[string]bool{}
	paths := []Path{{}, {0}, {1}, {0, 0}, {0, 1}, {1, 0}, {1, 0, 2}}
	for _, p := range paths {
		name := p.ColumnName()
		assert.False(t, seen[name], "collision for %v -> %s", p, name)
		assert.NotEqual(t, ReservedColumnName, name)
		seen[name] = true
	}
}

func TestTableNameInjective(t *testing.T) {
	assert.Equal(t, "c0", TableName(0))
	assert.Equal(t, "c1", TableName(1))
	assert.NotEqual(t, TableName(0), TableName(1))
}
