package compiler

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/matthieu-foucault/metabase/internal/mbql"
)

// applyJoinTables emits one LEFT JOIN per join-tables entry. The join
// target is either a base table (qualified by the join's alias) or a
// nested source-query compiled to a subquery and aliased the same way.
// The join condition always matches the destination's "id" column against
// the compiled source-fk field.
func (c *Context) applyJoinTables(qb sq.SelectBuilder, inner *mbql.Inner) (sq.SelectBuilder, error) {
	for _, join := range inner.JoinTables {
		fkSQL, fkArgs, err := c.compileExpr(join.SourceFK)
		if err != nil {
			return qb, err
		}

		var destFrom string
		var destArgs []any
		switch {
		case join.SourceQuery != nil:
			subSQL, subArgs, err := c.compileSubquery(join.SourceQuery)
			if err != nil {
				return qb, err
			}
			destFrom = fmt.Sprintf("(%s) AS %s", subSQL, c.dialect.QuoteIdent(join.Alias))
			destArgs = subArgs
		default:
			table, err := c.store.Table(join.DestTableID)
			if err != nil {
				return qb, err
			}
			destFrom = fmt.Sprintf("%s AS %s", quotedTableName(c, table), c.dialect.QuoteIdent(join.Alias))
		}

		onCond := fmt.Sprintf("%s.%s = %s", c.dialect.QuoteIdent(join.Alias), c.dialect.QuoteIdent("id"), fkSQL)
		joinSQL := destFrom + " ON " + onCond

		args := append(append([]any{}, destArgs...), fkArgs...)
		qb = qb.LeftJoin(joinSQL, args...)
	}
	return qb, nil
}
