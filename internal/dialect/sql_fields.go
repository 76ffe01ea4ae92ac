package dialect

import (
	"fmt"
	"reflect"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

func registerFieldHandlers(d *Dialect) {
	d.RegisterNodeHandler(mbql.FieldID{}, fieldIDHandler)
	d.RegisterNodeHandler(mbql.FieldLiteral{}, fieldLiteralHandler)
	d.RegisterNodeHandler(mbql.FKArrow{}, fkArrowHandler)
	d.RegisterNodeHandler(mbql.DatetimeField{}, datetimeFieldHandler)
	d.RegisterNodeHandler(mbql.BinningStrategy{}, binningStrategyHandler)
	d.RegisterNodeHandler(mbql.ExpressionRef{}, expressionRefHandler)
}

func fieldIDHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	fid := node.(mbql.FieldID)
	field, err := ctx.Store().Field(fid.ID)
	if err != nil {
		return nil, err
	}
	table, err := ctx.Store().Table(field.TableID)
	if err != nil {
		return nil, err
	}
	ident := ctx.Dialect().FieldToIdentifier(ctx, table, field)
	switch field.SpecialType {
	case "UNIXTimestampSeconds":
		return ctx.Dialect().UnixTimestampToTimestamp(ctx, ident, "seconds"), nil
	case "UNIXTimestampMilliseconds":
		return ctx.Dialect().UnixTimestampToTimestamp(ctx, ident, "milliseconds"), nil
	default:
		return ident, nil
	}
}

func fieldLiteralHandler(_ Ctx, node mbql.Node) (sqlast.Node, error) {
	fl := node.(mbql.FieldLiteral)
	return sqlast.Ident{Parts: []string{fl.Name}}, nil
}

// fkArrowHandler resolves SourceFK against the innermost query's
// join-tables list to find the join alias and destination table, then
// compiles DestField with that table pushed onto the metadata store's
// override stack under the real destination table's id (for a join on a
// source-query, the id of the base table that query reads from) — so every
// FieldID lookup DestField performs resolves to the joined alias instead
// of the base table name.
func fkArrowHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	fk := node.(mbql.FKArrow)

	query := ctx.Query()
	if query == nil {
		return nil, &mbqlerrors.InvalidInnerQuery{Reason: "fk-> outside a query"}
	}

	var join *mbql.JoinInfo
	for i := range query.JoinTables {
		if reflect.DeepEqual(query.JoinTables[i].SourceFK, fk.SourceFK) {
			join = &query.JoinTables[i]
			break
		}
	}
	if join == nil {
		id := fieldIDOf(fk.SourceFK)
		return nil, &mbqlerrors.MissingJoinInfo{FieldID: id}
	}

	var shadow metadata.Table
	if join.SourceQuery != nil {
		bottom := join.SourceQuery
		for bottom.SourceQuery != nil {
			bottom = bottom.SourceQuery
		}
		if bottom.SourceTable == nil {
			return nil, &mbqlerrors.InvalidInnerQuery{Reason: "join source-query chain has no base source-table"}
		}
		shadow = metadata.Table{ID: *bottom.SourceTable, Name: join.Alias}
	} else {
		real, err := ctx.Store().Table(join.DestTableID)
		if err != nil {
			return nil, err
		}
		shadow = metadata.Table{ID: real.ID, Schema: real.Schema, Name: join.Alias}
	}

	var out sqlast.Node
	err := ctx.Store().WithPushedTable(shadow, func() error {
		compiled, err := ctx.ToSQLAST(fk.DestField)
		if err != nil {
			return err
		}
		out = compiled
		return nil
	})
	return out, err
}

func fieldIDOf(n mbql.Node) int {
	if fid, ok := n.(mbql.FieldID); ok {
		return fid.ID
	}
	return 0
}

func datetimeFieldHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	df := node.(mbql.DatetimeField)
	inner, err := ctx.ToSQLAST(df.Inner)
	if err != nil {
		return nil, fmt.Errorf("datetime-field: %w", err)
	}
	return ctx.Dialect().Date(ctx, df.Unit, inner)
}

// binningStrategyHandler buckets a numeric expression:
// floor((expr - min) / width) * width + min. num-bins strategies derive
// width from (max-min)/numBins; bin-width strategies use the declared
// width directly.
func binningStrategyHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	b := node.(mbql.BinningStrategy)
	inner, err := ctx.ToSQLAST(b.Inner)
	if err != nil {
		return nil, fmt.Errorf("binning-strategy: %w", err)
	}

	width := b.BinWidth
	if b.Kind == "num-bins" && b.NumBins > 0 {
		width = (b.MaxValue - b.MinValue) / float64(b.NumBins)
	}
	if width == 0 {
		width = 1
	}

	shifted := sqlast.BinaryOp{Op: "-", Left: inner, Right: sqlast.Placeholder{Value: b.MinValue}}
	divided := sqlast.BinaryOp{Op: "/", Left: shifted, Right: sqlast.Placeholder{Value: width}}
	bucket := sqlast.FuncCall{Name: "FLOOR", Args: []sqlast.Node{divided}}
	scaled := sqlast.BinaryOp{Op: "*", Left: bucket, Right: sqlast.Placeholder{Value: width}}
	return sqlast.BinaryOp{Op: "+", Left: scaled, Right: sqlast.Placeholder{Value: b.MinValue}}, nil
}

func expressionRefHandler(ctx Ctx, node mbql.Node) (sqlast.Node, error) {
	ref := node.(mbql.ExpressionRef)
	query := ctx.Query()
	if query == nil {
		return nil, &mbqlerrors.UnknownExpression{Name: ref.Name}
	}
	expr, ok := query.Expressions[ref.Name]
	if !ok {
		return nil, &mbqlerrors.UnknownExpression{Name: ref.Name}
	}
	return ctx.ToSQLAST(expr)
}
