// Package path implements the canonical, injective path-to-column and
// class-to-table naming scheme of spec.md §4.1. Deterministic naming is
// what lets internal/compile regenerate byte-identical DDL for a schema
// across runs.
package path

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a sequence of component/option indices describing a descent
// through a class's type: "take component/option #i at each step."
type Path []int

// Append returns a new Path with i appended, leaving p unmodified.
func (p Path) Append(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// ColumnName renders p as a column identifier: "e" for the empty path,
// else "e_i1_..._in". This mapping is injective across all valid paths:
// distinct index sequences always render to distinct strings, and no path
// can render to the reserved identifier "id".
func (p Path) ColumnName() string {
	if len(p) == 0 {
		return "e"
	}
	var b strings.Builder
	b.WriteByte('e')
	for _, i := range p {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// ReservedColumnName is the one column identifier ColumnName never
// produces and that every class table reserves for its primary key.
const ReservedColumnName = "id"

// TableName renders a class index as a table identifier: "c<k>". Distinct
// indices always render to distinct strings, and the mapping never
// collides with any other table this package names (there are none).
func TableName(classIndex int) string {
	return fmt.Sprintf("c%d", classIndex)
}
