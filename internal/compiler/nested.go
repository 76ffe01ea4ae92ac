package compiler

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
)

// compileSubquery compiles inner to a standalone SELECT, left in
// squirrel's default "?" placeholder style, for splicing into an
// enclosing JOIN clause as literal text. The enclosing ToSql() call
// renumbers every "?" in the fully assembled query exactly once, so a
// subquery must never call PlaceholderFormat itself.
func (c *Context) compileSubquery(inner *mbql.Inner) (string, []any, error) {
	qb, err := c.compileInner(inner)
	if err != nil {
		return "", nil, err
	}
	sql, args, err := qb.ToSql()
	if err != nil {
		return "", nil, &mbqlerrors.SqlFormatError{Node: "source-query", Err: err}
	}
	return sql, args, nil
}

// bottomTableID walks a chain of nested source-queries down to the base
// table they ultimately read from, so the outer level knows which real
// Table record to shadow with the nested alias.
func bottomTableID(inner *mbql.Inner) (int, error) {
	for inner.SourceQuery != nil {
		inner = inner.SourceQuery
	}
	if inner.SourceTable == nil {
		return 0, &mbqlerrors.InvalidInnerQuery{Reason: "source-query chain has no base source-table"}
	}
	return *inner.SourceTable, nil
}

// applyNestedSource compiles inner.SourceQuery as a FROM subquery and
// pushes a metadata override so FieldID lookups made while compiling the
// rest of inner resolve against the subquery's alias instead of the real
// base table — the same scoped-override mechanism fk-> uses for join
// aliasing, applied here to nesting instead of joining. fn is called with
// the override in effect and its result (and any compile error) is
// returned. compileInner pushes/pops its own argument onto the query
// stack, so by the time fn runs here the stack is back to reflecting the
// enclosing inner, not the nested one.
func (c *Context) applyNestedSource(qb sq.SelectBuilder, inner *mbql.Inner, fn func(sq.SelectBuilder) (sq.SelectBuilder, error)) (sq.SelectBuilder, error) {
	subQb, err := c.compileInner(inner.SourceQuery)
	if err != nil {
		return qb, err
	}

	baseID, err := bottomTableID(inner.SourceQuery)
	if err != nil {
		return qb, err
	}
	base, err := c.store.Table(baseID)
	if err != nil {
		return qb, err
	}

	alias := fmt.Sprintf("source_%d", c.NestingLevel()+1)
	shadow := metadata.Table{ID: base.ID, Schema: "", Name: alias}

	qb = qb.FromSelect(subQb, alias)

	var out sq.SelectBuilder
	err = c.store.WithPushedTable(shadow, func() error {
		var innerErr error
		out, innerErr = fn(qb)
		return innerErr
	})
	return out, err
}
