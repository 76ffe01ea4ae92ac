package dialect

import (
	"fmt"
	"strings"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

func registerAggregationHandlers(d *Dialect) {
	d.RegisterNodeHandler(mbql.SimpleAgg{}, simpleAggHandler)
	d.RegisterNodeHandler(mbql.ArithAgg{}, arithAggHandler)
	d.RegisterNodeHandler(mbql.SumWhereAgg{}, sumWhereAggHandler)
	d.RegisterNodeHandler(mbql.CountWhereAgg{}, countWhereAggHandler)
	d.RegisterNodeHandler(mbql.ShareAgg{}, shareAggHandler)
	d.RegisterNodeHandler(mbql.NamedAgg{}, namedAggHandler)
	d.RegisterNodeHandler(mbql.AggregationRef{}, aggregationRefHandler)
}

func simpleAggHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	agg := node.(mbql.SimpleAgg)

	if agg.Op == "distinct" {
		if agg.Field == nil {
			return nil, fmt.Errorf("distinct: missing field")
		}
		inner, err := ctx.ToSQLAST(agg.Field)
		if err != nil {
			return nil, fmt.Errorf("distinct: %w", err)
		}
		return sqlast.FuncCall{Name: "COUNT", Args: []sqlast.Node{inner}, Distinct: true}, nil
	}

	fn := strings.ToUpper(agg.Op)
	if agg.Field == nil {
		return sqlast.FuncCall{Name: fn, Args: []sqlast.Node{sqlast.Raw{SQL: "*"}}}, nil
	}
	inner, err := ctx.ToSQLAST(agg.Field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", agg.Op, err)
	}
	return sqlast.FuncCall{Name: fn, Args: []sqlast.Node{inner}}, nil
}

// arithAggHandler folds Args left to right. Division guards against a
// zero divisor (returning SQL NULL rather than erroring the whole query)
// and promotes its numerator to double precision first so integer
// aggregations like sum(x) / count(x) don't truncate.
func arithAggHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	agg := node.(mbql.ArithAgg)
	if len(agg.Args) < 2 {
		return nil, fmt.Errorf("arithmetic %s: need at least 2 operands", agg.Op)
	}

	compiled := make([]sqlast.Node, len(agg.Args))
	for i, a := range agg.Args {
		n, err := ctx.ToSQLAST(a)
		if err != nil {
			return nil, fmt.Errorf("arithmetic %s operand %d: %w", agg.Op, i, err)
		}
		compiled[i] = n
	}

	acc := compiled[0]
	for _, next := range compiled[1:] {
		if agg.Op == "/" {
			acc = divideGuarded(acc, next)
		} else {
			acc = sqlast.BinaryOp{Op: agg.Op, Left: acc, Right: next}
		}
	}
	return acc, nil
}

func divideGuarded(num, denom sqlast.Node) sqlast.Node {
	promoted := sqlast.Cast{Expr: num, Type: "double precision"}
	return sqlast.Case{
		Whens: []sqlast.CaseWhen{{
			Cond: sqlast.BinaryOp{Op: "=", Left: denom, Right: sqlast.Placeholder{Value: 0}},
			Then: sqlast.Raw{SQL: "NULL"},
		}},
		Else: sqlast.BinaryOp{Op: "/", Left: promoted, Right: denom},
	}
}

func sumWhereAggHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	agg := node.(mbql.SumWhereAgg)
	arg, err := ctx.ToSQLAST(agg.Arg)
	if err != nil {
		return nil, fmt.Errorf("sum-where arg: %w", err)
	}
	pred, err := ctx.ToSQLAST(agg.Pred)
	if err != nil {
		return nil, fmt.Errorf("sum-where pred: %w", err)
	}
	return sqlast.FuncCall{Name: "SUM", Args: []sqlast.Node{
		sqlast.Case{Whens: []sqlast.CaseWhen{{Cond: pred, Then: arg}}, Else: sqlast.Placeholder{Value: 0}},
	}}, nil
}

// countWhereAggHandler is count-where(pred) == sum-where(1, pred) at the
// SQL-AST level, so it delegates to sumWhereAggHandler rather than
// building its own COUNT(CASE ...) tree.
func countWhereAggHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	agg := node.(mbql.CountWhereAgg)
	return sumWhereAggHandler(ctx, mbql.SumWhereAgg{Arg: mbql.Literal{Value: 1}, Pred: agg.Pred})
}

// shareAggHandler is count-where(pred) divided by the row count, built by
// delegating its numerator to countWhereAggHandler so share's AST actually
// contains the same tree count-where(pred) emits, not a hand-rolled
// lookalike.
func shareAggHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	agg := node.(mbql.ShareAgg)
	matching, err := countWhereAggHandler(ctx, mbql.CountWhereAgg{Pred: agg.Pred})
	if err != nil {
		return nil, fmt.Errorf("share pred: %w", err)
	}
	total := sqlast.FuncCall{Name: "COUNT", Args: []sqlast.Node{sqlast.Raw{SQL: "*"}}}
	return divideGuarded(matching, total), nil
}

func namedAggHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	agg := node.(mbql.NamedAgg)
	inner, err := ctx.ToSQLAST(agg.Inner)
	if err != nil {
		return nil, fmt.Errorf("named: %w", err)
	}
	return sqlast.As{Expr: inner, Alias: ctx.Dialect().FormatCustomFieldName(agg.Alias)}, nil
}

// aggregationRefHandler resolves aggregation(index) against the
// innermost query's own aggregation list. A distinct aggregation is
// referenced by the identifier "count" and any other simple aggregation by
// its bare op name (e.g. "sum"), so two aggregations of the same kind
// resolve to the same name. An arithmetic aggregation is inlined by
// compiling it again; every other kind (sum-where, count-where, share,
// named) is inlined the same way rather than referenced by name.
func aggregationRefHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	ref := node.(mbql.AggregationRef)
	query := ctx.Query()
	if query == nil || ref.Index < 0 || ref.Index >= len(query.Aggregation) {
		count := 0
		if query != nil {
			count = len(query.Aggregation)
		}
		return nil, &mbqlerrors.UnknownAggregationIndex{Index: ref.Index, Count: count}
	}
	agg := query.Aggregation[ref.Index]
	if simple, ok := agg.(mbql.SimpleAgg); ok {
		if simple.Op == "distinct" {
			return sqlast.Ident{Parts: []string{"count"}}, nil
		}
		return sqlast.Ident{Parts: []string{simple.Op}}, nil
	}
	return ctx.ToSQLAST(agg)
}
