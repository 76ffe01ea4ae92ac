package dialect

import (
	"fmt"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

func registerFilterHandlers(d *Dialect) {
	d.RegisterNodeHandler(mbql.CompareFilter{}, compareFilterHandler)
	d.RegisterNodeHandler(mbql.BetweenFilter{}, betweenFilterHandler)
	d.RegisterNodeHandler(mbql.StringFilter{}, stringFilterHandler)
	d.RegisterNodeHandler(mbql.NullFilter{}, nullFilterHandler)
	d.RegisterNodeHandler(mbql.AndFilter{}, logicalFilterHandler("AND"))
	d.RegisterNodeHandler(mbql.OrFilter{}, logicalFilterHandler("OR"))
	d.RegisterNodeHandler(mbql.NotFilter{}, notFilterHandler)
}

func compareFilterHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	f := node.(mbql.CompareFilter)
	field, err := ctx.ToSQLAST(f.Field)
	if err != nil {
		return nil, fmt.Errorf("%s field: %w", f.Op, err)
	}
	val, err := ctx.ToSQLAST(f.Value)
	if err != nil {
		return nil, fmt.Errorf("%s value: %w", f.Op, err)
	}
	return sqlast.BinaryOp{Op: f.Op, Left: field, Right: val}, nil
}

func betweenFilterHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	f := node.(mbql.BetweenFilter)
	field, err := ctx.ToSQLAST(f.Field)
	if err != nil {
		return nil, fmt.Errorf("between field: %w", err)
	}
	low, err := ctx.ToSQLAST(f.Low)
	if err != nil {
		return nil, fmt.Errorf("between low: %w", err)
	}
	high, err := ctx.ToSQLAST(f.High)
	if err != nil {
		return nil, fmt.Errorf("between high: %w", err)
	}
	return sqlast.Between{Expr: field, Low: low, High: high}, nil
}

// stringFilterHandler renders starts-with/contains/ends-with as LIKE (or
// ILIKE when the filter is case-insensitive). %/_ wildcards inside the
// matched value are deliberately left unescaped: a value containing them
// will match more broadly than a literal substring search would, which
// matches documented behavior rather than guarding against it.
func stringFilterHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	f := node.(mbql.StringFilter)
	field, err := ctx.ToSQLAST(f.Field)
	if err != nil {
		return nil, fmt.Errorf("%s field: %w", f.Op, err)
	}
	val, err := ctx.ToSQLAST(f.Value)
	if err != nil {
		return nil, fmt.Errorf("%s value: %w", f.Op, err)
	}

	var pattern sqlast.Node
	switch f.Op {
	case "starts-with":
		pattern = concatPattern("", val, "%")
	case "contains":
		pattern = concatPattern("%", val, "%")
	case "ends-with":
		pattern = concatPattern("%", val, "")
	default:
		return nil, fmt.Errorf("unknown string filter op %q", f.Op)
	}

	return sqlast.Like{Expr: field, Pattern: pattern, CaseInsensitive: !f.CaseSensitive}, nil
}

func concatPattern(prefix string, val sqlast.Node, suffix string) sqlast.Node {
	parts := []sqlast.Node{}
	if prefix != "" {
		parts = append(parts, sqlast.Raw{SQL: "'" + prefix + "'"})
	}
	parts = append(parts, val)
	if suffix != "" {
		parts = append(parts, sqlast.Raw{SQL: "'" + suffix + "'"})
	}
	if len(parts) == 1 {
		return parts[0]
	}
	acc := parts[0]
	for _, p := range parts[1:] {
		acc = sqlast.BinaryOp{Op: "||", Left: acc, Right: p}
	}
	return acc
}

func nullFilterHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	f := node.(mbql.NullFilter)
	field, err := ctx.ToSQLAST(f.Field)
	if err != nil {
		return nil, fmt.Errorf("null filter field: %w", err)
	}
	op := "IS NULL"
	if f.Not {
		op = "IS NOT NULL"
	}
	return sqlast.UnaryOp{Op: op, Expr: field}, nil
}

func logicalFilterHandler(op string) NodeHandler {
	return func(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
		var args []mbql.Node
		switch op {
		case "AND":
			args = node.(mbql.AndFilter).Args
		case "OR":
			args = node.(mbql.OrFilter).Args
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: no operands", op)
		}
		compiled := make([]sqlast.Node, len(args))
		for i, a := range args {
			n, err := ctx.ToSQLAST(a)
			if err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", op, i, err)
			}
			compiled[i] = n
		}
		acc := compiled[0]
		for _, next := range compiled[1:] {
			acc = sqlast.BinaryOp{Op: op, Left: acc, Right: next}
		}
		return acc, nil
	}
}

func notFilterHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	f := node.(mbql.NotFilter)
	inner, err := ctx.ToSQLAST(f.Arg)
	if err != nil {
		return nil, fmt.Errorf("not: %w", err)
	}
	return sqlast.UnaryOp{Op: "NOT", Expr: inner}, nil
}
