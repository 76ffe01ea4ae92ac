package dialect

import (
	"fmt"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

func registerValueHandlers(d *Dialect) {
	d.RegisterNodeHandler(mbql.Literal{}, literalHandler)
	d.RegisterNodeHandler(mbql.Value{}, valueHandler)
	d.RegisterNodeHandler(mbql.AbsoluteDatetime{}, absoluteDatetimeHandler)
	d.RegisterNodeHandler(mbql.RelativeDatetime{}, relativeDatetimeHandler)
	d.RegisterNodeHandler(mbql.TimeValue{}, timeValueHandler)
}

func literalHandler(_ Ctx, node mbql.Node) (sqlast.Node, error) {
	lit := node.(mbql.Literal)
	return sqlast.Placeholder{Value: lit.Value}, nil
}

func valueHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	v := node.(mbql.Value)
	return ctx.ToSQLAST(v.Val)
}

func absoluteDatetimeHandler(_ Ctx, node mbql.Node) (sqlast.Node, error) {
	dt := node.(mbql.AbsoluteDatetime)
	return sqlast.Placeholder{Value: dt.Timestamp}, nil
}

// relativeDatetimeHandler anchors to either the query-provided field (the
// three-arity form) or the dialect's current-datetime expression, shifts
// by amount units when amount is nonzero, then truncates to unit.
func relativeDatetimeHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	rel := node.(mbql.RelativeDatetime)

	anchor := ctx.Dialect().CurrentDatetimeFn(ctx)
	if rel.Field != nil {
		compiled, err := ctx.ToSQLAST(rel.Field)
		if err != nil {
			return nil, fmt.Errorf("relative-datetime anchor: %w", err)
		}
		anchor = compiled
	}

	if rel.Amount == 0 {
		return ctx.Dialect().Date(ctx, rel.Unit, anchor)
	}

	shifted := sqlast.BinaryOp{
		Op:   "+",
		Left: anchor,
		Right: ctx.Dialect().DateInterval(rel.Unit, rel.Amount),
	}
	return ctx.Dialect().Date(ctx, rel.Unit, shifted)
}

func timeValueHandler(_ Ctx, node mbql.Node) (sqlast.Node, error) {
	tv := node.(mbql.TimeValue)
	return sqlast.Placeholder{Value: tv.Value}, nil
}
