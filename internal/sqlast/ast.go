// Package sqlast defines the dialect-neutral SQL-AST the Expression
// Compiler produces and the Formatter renders to SQL text plus a
// positional parameter vector.
package sqlast

// Node is one fragment of the SQL-AST. node is a marker method closing the
// sum type to this package, the same pattern internal/mbql uses for MBQL
// clauses.
type Node interface {
	node()
}

// Ident is a qualified identifier, e.g. {"orders", "created_at"} for
// orders.created_at. Each part is quoted independently by the Formatter
// and joined with ".", which is the dot-escape channel: a literal dot
// inside a column or table name survives because it never has to be
// parsed back out of a combined string, and the only dots the rendered
// SQL ever contains are the Formatter's own qualifier separators.
type Ident struct {
	Parts []string
}

// Placeholder is a value to bind as a positional SQL parameter rather than
// inline literal text.
type Placeholder struct {
	Value any
}

// FuncCall is name(args...), or name(DISTINCT args...) when Distinct is
// set (e.g. COUNT(DISTINCT x)).
type FuncCall struct {
	Name     string
	Args     []Node
	Distinct bool
}

// BinaryOp covers comparison (=, !=, <, <=, >, >=), logical (AND, OR), and
// arithmetic (+, -, *, /) binary operators, plus set-membership (IN) when
// Right is a Tuple.
type BinaryOp struct {
	Op    string
	Left  Node
	Right Node
}

// UnaryOp covers prefix operators, principally NOT and unary minus.
type UnaryOp struct {
	Op   string
	Expr Node
}

// Between is Expr BETWEEN Low AND High.
type Between struct {
	Expr Node
	Low  Node
	High Node
}

// Like is Expr LIKE Pattern, or ILIKE when CaseInsensitive.
type Like struct {
	Expr            Node
	Pattern         Node
	CaseInsensitive bool
}

// CaseWhen is one WHEN/THEN arm of a Case expression.
type CaseWhen struct {
	Cond Node
	Then Node
}

// Case is a searched CASE expression.
type Case struct {
	Whens []CaseWhen
	Else  Node
}

// List is a bare comma-separated sequence with no enclosing parens, used
// where the caller supplies its own delimiters (e.g. a SELECT list).
type List struct {
	Items []Node
}

// Tuple is a parenthesized comma-separated sequence, e.g. the right-hand
// side of IN, or a grouped sub-expression.
type Tuple struct {
	Items []Node
}

// Raw is the escape hatch: SQL text the Formatter emits verbatim, with its
// own already-ordered parameter slice spliced into the surrounding
// parameter vector at the point Raw appears. Dialect override points that
// need to emit dialect-specific syntax the rest of the AST can't express
// (e.g. a vendor-specific date truncation function) build a Raw node.
type Raw struct {
	SQL  string
	Args []any
}

// As wraps Expr with an output alias.
type As struct {
	Expr  Node
	Alias string
}

// Cast is CAST(Expr AS Type).
type Cast struct {
	Expr Node
	Type string
}

func (Ident) node()       {}
func (Placeholder) node() {}
func (FuncCall) node()    {}
func (BinaryOp) node()    {}
func (UnaryOp) node()     {}
func (Between) node()     {}
func (Like) node()        {}
func (Case) node()        {}
func (List) node()        {}
func (Tuple) node()       {}
func (Raw) node()         {}
func (As) node()          {}
func (Cast) node()        {}
