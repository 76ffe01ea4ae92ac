package compiler

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
)

// quotedTableName renders a table's schema-qualified, dialect-quoted name.
func quotedTableName(c *Context, t metadata.Table) string {
	q := c.dialect.QuoteIdent
	if t.Schema == "" {
		return q(t.Name)
	}
	return q(t.Schema) + "." + q(t.Name)
}

// applySourceTable sets qb's FROM clause to inner's source table.
func (c *Context) applySourceTable(qb sq.SelectBuilder, inner *mbql.Inner) (sq.SelectBuilder, error) {
	if inner.SourceTable == nil {
		return qb, &mbqlerrors.InvalidInnerQuery{Reason: "missing source-table and source-query"}
	}
	table, err := c.store.Table(*inner.SourceTable)
	if err != nil {
		return qb, err
	}
	return qb.From(quotedTableName(c, table)), nil
}

// containsNode reports whether target occurs in nodes under structural
// equality, the "already present in fields" test breakout's dedup rule
// needs.
func containsNode(nodes []mbql.Node, target mbql.Node) bool {
	for _, n := range nodes {
		if reflect.DeepEqual(n, target) {
			return true
		}
	}
	return false
}

// fieldClauseAlias implements field_clause_to_alias (§4.3): a concrete
// field-id aliases to the dialect's field_to_alias (default the field's
// own name); an expression reference aliases to its name. field-literal
// and every other field-clause kind are left unaliased, matching "not
// re-aliased: emitted without an AS clause".
func (c *Context) fieldClauseAlias(node mbql.Node) (string, bool) {
	switch n := node.(type) {
	case mbql.FieldID:
		field, err := c.store.Field(n.ID)
		if err != nil {
			return "", false
		}
		return c.dialect.FieldToAlias(field), true
	case mbql.ExpressionRef:
		return n.Name, true
	default:
		return "", false
	}
}

// aggregationAlias implements annotate.aggregation_name (§4.4): the
// aggregation's head name, except for distinct (aliased "count", matching
// aggregation(index)'s distinct rule in §4.2), arithmetic combinations
// (no single head name to derive one from), and named aggregations
// (namedAggHandler already wraps its own alias at the to_sql_ast level,
// so aliasing it again here would double the AS clause).
func (c *Context) aggregationAlias(node mbql.Node) (string, bool) {
	switch n := node.(type) {
	case mbql.SimpleAgg:
		if n.Op == "distinct" {
			return "count", true
		}
		return n.Op, true
	case mbql.SumWhereAgg:
		return "sum_where", true
	case mbql.CountWhereAgg:
		return "count_where", true
	case mbql.ShareAgg:
		return "share", true
	default:
		return "", false
	}
}

// applyBreakoutAndFields appends the SELECT list, in the fixed order
// breakout columns, then aggregation columns, then explicit fields — the
// same column order spec.md's result-shape invariant requires. Each
// column is added through squirrel's single-column Column method rather
// than Columns, since a compiled expression (a binning bucket, a named
// aggregation) can itself carry bound parameters that need to travel with
// it into the final ToSql() call.
//
// A breakout clause already present in fields (structural equality) is
// not re-added to SELECT, but still needs a GROUP BY entry at whatever
// position it lands in. GROUP BY references columns by their ordinal
// select-list position rather than re-emitting their SQL text, since
// squirrel's GroupBy takes plain strings with no way to carry a compiled
// expression's bound parameters alongside it.
func (c *Context) applyBreakoutAndFields(qb sq.SelectBuilder, inner *mbql.Inner) (sq.SelectBuilder, error) {
	hasColumns := false
	col := 0
	var groupBy []string

	add := func(node mbql.Node, alias string, hasAlias bool) error {
		sql, args, err := c.compileAliased(node, alias, hasAlias)
		if err != nil {
			return err
		}
		qb = qb.Column(sq.Expr(sql, args...))
		hasColumns = true
		col++
		return nil
	}

	for _, node := range inner.Breakout {
		if containsNode(inner.Fields, node) {
			continue
		}
		alias, ok := c.fieldClauseAlias(node)
		if err := add(node, alias, ok); err != nil {
			return qb, err
		}
		groupBy = append(groupBy, strconv.Itoa(col))
	}
	for _, node := range inner.Aggregation {
		alias, ok := c.aggregationAlias(node)
		if err := add(node, alias, ok); err != nil {
			return qb, err
		}
	}
	for _, node := range inner.Fields {
		alias, ok := c.fieldClauseAlias(node)
		if err := add(node, alias, ok); err != nil {
			return qb, err
		}
		if containsNode(inner.Breakout, node) {
			groupBy = append(groupBy, strconv.Itoa(col))
		}
	}

	if !hasColumns {
		qb = qb.Column("*")
	}
	if len(groupBy) > 0 {
		qb = qb.GroupBy(groupBy...)
	}
	return qb, nil
}

func (c *Context) applyFilter(qb sq.SelectBuilder, inner *mbql.Inner) (sq.SelectBuilder, error) {
	if inner.Filter == nil {
		return qb, nil
	}
	sql, args, err := c.compileExpr(inner.Filter)
	if err != nil {
		return qb, err
	}
	return qb.Where(sq.Expr(sql, args...)), nil
}

func (c *Context) applyOrderBy(qb sq.SelectBuilder, inner *mbql.Inner) (sq.SelectBuilder, error) {
	for _, ob := range inner.OrderBy {
		sql, args, err := c.compileExpr(ob.Field)
		if err != nil {
			return qb, err
		}
		dir := "ASC"
		if ob.Direction == "desc" {
			dir = "DESC"
		}
		if len(args) > 0 {
			// squirrel's OrderBy takes plain strings; a parameterized order
			// expression (e.g. a binning bucket) must be bound ahead of the
			// ORDER BY position, which SQL does not allow for an arbitrary
			// expression. Bucketed order-by targets are rare enough in
			// practice that falling back to a literal-inlined Sprint here
			// would silently produce wrong SQL; surface it instead.
			return qb, &mbqlerrors.SqlFormatError{
				Node: sql,
				Err:  fmt.Errorf("order-by expression requires %d bound parameters, which ORDER BY cannot carry", len(args)),
			}
		}
		qb = qb.OrderBy(fmt.Sprintf("%s %s", sql, dir))
	}
	return qb, nil
}

func (c *Context) applyLimit(qb sq.SelectBuilder, inner *mbql.Inner) sq.SelectBuilder {
	switch {
	case inner.Page != nil:
		offset := uint64((inner.Page.PageNum - 1) * inner.Page.Items)
		return qb.Limit(uint64(inner.Page.Items)).Offset(offset)
	case inner.Limit != nil:
		return qb.Limit(uint64(*inner.Limit))
	default:
		return qb
	}
}

// applyUnrecognized hands every clause this decoder didn't model
// explicitly to the dialect's apply_top_level_clause hook, in
// lexicographic order over the clause name. The hook's returned value is
// discarded and the hook never sees the SELECT being built, so every
// unrecognized clause is left out of the SQL; a hook can only stop the
// compile by returning an error.
func (c *Context) applyUnrecognized(inner *mbql.Inner) error {
	if len(inner.Unrecognized) == 0 {
		return nil
	}
	names := make([]string, 0, len(inner.Unrecognized))
	for name := range inner.Unrecognized {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := c.dialect.ApplyTopLevelClause(inner.Unrecognized[name]); err != nil {
			return fmt.Errorf("top-level clause %q: %w", name, err)
		}
	}
	return nil
}
