package tasl

// Expr is the sealed union of mapping expression kinds spec.md §4.6
// defines: uri, literal, product, coproduct, term, match.
type Expr interface {
	exprNode()
}

// URIExpr is a constant uri(s) expression.
type URIExpr struct {
	Value string
}

func (URIExpr) exprNode() {}

// LiteralExpr is a constant literal(s) expression.
type LiteralExpr struct {
	Value string
}

func (LiteralExpr) exprNode() {}

// ProductExpr evaluates each component expression under the target
// product's corresponding component type.
type ProductExpr struct {
	Components map[string]Expr
}

func (ProductExpr) exprNode() {}

// CoproductExpr injects Value's evaluation result into option Option of
// the target coproduct type.
type CoproductExpr struct {
	Option string
	Value  Expr
}

func (CoproductExpr) exprNode() {}

// Segment is one step of a term path: either a product projection or a
// reference dereference.
type Segment interface {
	segmentNode()
}

// Projection drills into a product component by key.
type Projection struct {
	Key string
}

func (Projection) segmentNode() {}

// Dereference follows a reference value by reading the target element from
// the source database, live, during evaluation.
type Dereference struct {
	ClassKey string
}

func (Dereference) segmentNode() {}

// TermExpr looks up ID in the environment, then folds Path over the bound
// (type, value), projecting the result to the expression's expected type.
type TermExpr struct {
	ID   string
	Path []Segment
}

func (TermExpr) exprNode() {}

// MatchCase is one arm of a MatchExpr: binds the resolved coproduct
// payload to ID and evaluates Value under that binding.
type MatchCase struct {
	ID    string
	Value Expr
}

// MatchExpr evaluates the term at ID/Path to a coproduct value, then
// dispatches on its chosen option key to the matching Cases entry.
type MatchExpr struct {
	ID    string
	Path  []Segment
	Cases map[string]MatchCase
}

func (MatchExpr) exprNode() {}

// ClassRule is one `target <= source (id) => expression` rule of a
// Mapping: for every element of the source class, binding the element's
// id and value to ID, evaluate Value and store the result as the target
// class's element at the same id.
type ClassRule struct {
	Target string
	Source string
	ID     string
	Value  Expr
}

// Mapping is a list of class rules plus the source and target schemas it
// was compiled against (spec.md §4.6, §4.7).
type Mapping struct {
	Source *Schema
	Target *Schema
	Rules  []ClassRule
}
