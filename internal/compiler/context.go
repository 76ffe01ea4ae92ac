// Package compiler implements the Expression Compiler, Clause Appliers,
// and Clause Orchestrator stages: it walks an MBQL query tree, asking the
// Dialect Registry to render each node, and assembles the pieces into a
// single dialect-parameterized SQL statement plus its parameter vector.
package compiler

import (
	"fmt"
	"log"

	"github.com/matthieu-foucault/metabase/internal/dialect"
	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

// Context is the compiler's explicit, per-call state: which dialect it is
// rendering for, the metadata store (with its own lexical override
// stack), and the stack of queries currently being compiled, innermost
// last. There is exactly one Context per top-level CompileNative call; it
// is never shared across calls and carries no package-level mutable
// state, per the pure-synchronous-rewrite requirement.
type Context struct {
	dialect    *dialect.Dialect
	store      *metadata.Scoped
	queryStack []*mbql.Inner
	debug      bool
}

// NewContext builds a fresh Context for one compile call.
func NewContext(d *dialect.Dialect, store metadata.Store, debug bool) *Context {
	scoped, ok := store.(*metadata.Scoped)
	if !ok {
		scoped = metadata.NewScoped(store)
	}
	return &Context{dialect: d, store: scoped, debug: debug}
}

func (c *Context) Dialect() *dialect.Dialect { return c.dialect }
func (c *Context) Store() metadata.Store     { return c.store }

// Query returns the innermost query currently being compiled, or nil
// before the first pushQuery.
func (c *Context) Query() *mbql.Inner {
	if len(c.queryStack) == 0 {
		return nil
	}
	return c.queryStack[len(c.queryStack)-1]
}

// NestingLevel is how many source-query levels deep the compiler
// currently is; the outermost query is level 0.
func (c *Context) NestingLevel() int {
	return len(c.queryStack) - 1
}

// pushQuery makes q the innermost query for the duration of the returned
// pop function, which callers invoke via defer so the stack unwinds on
// every exit path, including an error return or a panic.
func (c *Context) pushQuery(q *mbql.Inner) func() {
	c.queryStack = append(c.queryStack, q)
	return func() {
		c.queryStack = c.queryStack[:len(c.queryStack)-1]
	}
}

// ToSQLAST recursively compiles node by asking the current dialect for
// its to_sql_ast handler. This is the Expression Compiler's recursion
// point: every node handler registered in internal/dialect calls back
// into this method (via the dialect.Ctx interface Context satisfies) to
// compile its children, so a dialect override on a parent node kind still
// sees dialect overrides applied to every descendant.
func (c *Context) ToSQLAST(node mbql.Node) (sqlast.Node, error) {
	if node == nil {
		return nil, &mbqlerrors.InvalidInnerQuery{Reason: "nil expression"}
	}
	h, ok := c.dialect.NodeHandler(node)
	if !ok {
		return nil, &mbqlerrors.UnknownExpression{Name: fmt.Sprintf("%T", node)}
	}
	out, err := h(c, node)
	if c.debug {
		log.Printf("compiler: %T -> %#v (err=%v)", node, out, err)
	}
	return out, err
}

// format renders an already-compiled SQL-AST node through the current
// dialect's Formatter.
func (c *Context) format(n sqlast.Node) (string, []any, error) {
	f := sqlast.NewFormatter(c.dialect.QuoteIdent)
	sql, args, err := f.Format(n)
	if err != nil {
		return "", nil, &mbqlerrors.SqlFormatError{Node: sqlast.Sprint(n), Err: err}
	}
	return sql, args, nil
}

// compileExpr is the common compile-then-format path most clause
// appliers use.
func (c *Context) compileExpr(node mbql.Node) (string, []any, error) {
	ast, err := c.ToSQLAST(node)
	if err != nil {
		return "", nil, err
	}
	return c.format(ast)
}

// compileAliased is compileExpr plus an optional select-list alias,
// wrapped in sqlast.As before formatting so the alias is quoted through
// the same QuoteIdent the rest of the identifier went through.
func (c *Context) compileAliased(node mbql.Node, alias string, hasAlias bool) (string, []any, error) {
	ast, err := c.ToSQLAST(node)
	if err != nil {
		return "", nil, err
	}
	if hasAlias {
		ast = sqlast.As{Expr: ast, Alias: c.dialect.FormatCustomFieldName(alias)}
	}
	return c.format(ast)
}
