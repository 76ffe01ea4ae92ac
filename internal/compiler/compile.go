package compiler

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/matthieu-foucault/metabase/internal/dialect"
	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
)

// CompileNative is the Clause Orchestrator's entry point: it compiles one
// outer MBQL query to a native SQL statement and its bound parameters, for
// the named dialect. It is the only exported function most callers need;
// internal/handler wires this straight onto an HTTP endpoint.
func CompileNative(registry *dialect.Registry, dialectID string, store metadata.Store, outer *mbql.OuterQuery, debug bool) (string, []any, error) {
	if outer == nil || outer.Query == nil {
		return "", nil, &mbqlerrors.InvalidInnerQuery{Reason: "missing query"}
	}
	d, err := registry.Get(dialectID)
	if err != nil {
		return "", nil, err
	}

	ctx := NewContext(d, store, debug)
	qb, err := ctx.compileInner(outer.Query)
	if err != nil {
		return "", nil, err
	}

	sql, args, err := qb.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return "", nil, &mbqlerrors.SqlFormatError{Node: "query", Err: err}
	}
	return sql, args, nil
}

// compileInner is the Clause Orchestrator's per-level driver: it applies
// every clause of inner to a fresh squirrel.SelectBuilder in a fixed
// order (source, joins, select list, filter, order-by, limit), then hands
// off anything this decoder didn't recognize to the dialect. It pushes
// inner onto the Context's query stack for the duration of the call, so
// every clause applier and every node handler invoked transitively sees
// the right Query() and NestingLevel().
func (c *Context) compileInner(inner *mbql.Inner) (sq.SelectBuilder, error) {
	pop := c.pushQuery(inner)
	defer pop()

	qb := sq.Select()
	var err error

	switch {
	case inner.SourceQuery != nil:
		// Every remaining clause must see the nested-alias metadata
		// override, not just the FROM clause itself, since a breakout,
		// filter, or order-by at this level can reference a field that
		// only resolves correctly against the subquery's alias.
		qb, err = c.applyNestedSource(qb, inner, func(qb sq.SelectBuilder) (sq.SelectBuilder, error) {
			return c.applyRemainingClauses(qb, inner)
		})
	case inner.SourceTable != nil:
		qb, err = c.applySourceTable(qb, inner)
		if err == nil {
			qb, err = c.applyRemainingClauses(qb, inner)
		}
	default:
		err = &mbqlerrors.InvalidInnerQuery{Reason: "missing source-table and source-query"}
	}
	if err != nil {
		return qb, err
	}

	if err := c.applyUnrecognized(inner); err != nil {
		return qb, err
	}

	return qb, nil
}

// applyRemainingClauses applies every clause that comes after FROM is
// established: joins, the select list, filter, order-by, and limit/page.
func (c *Context) applyRemainingClauses(qb sq.SelectBuilder, inner *mbql.Inner) (sq.SelectBuilder, error) {
	var err error
	if qb, err = c.applyJoinTables(qb, inner); err != nil {
		return qb, err
	}
	if qb, err = c.applyBreakoutAndFields(qb, inner); err != nil {
		return qb, err
	}
	if qb, err = c.applyFilter(qb, inner); err != nil {
		return qb, err
	}
	if qb, err = c.applyOrderBy(qb, inner); err != nil {
		return qb, err
	}
	qb = c.applyLimit(qb, inner)
	return qb, nil
}
