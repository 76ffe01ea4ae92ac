package dialect

import (
	"fmt"

	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

// NewRootDialect builds the root "sql" dialect: ANSI-flavored defaults for
// every scalar override point, plus a to_sql_ast handler for every
// built-in MBQL node kind. Every other dialect in a Registry ultimately
// inherits from this one, so every override point and every node kind
// must resolve here even if no other dialect ever overrides them.
func NewRootDialect() *Dialect {
	d := New("sql", nil)

	d.quoteIdent = quoteDoubleQuote
	d.currentDatetimeFn = func(Ctx) sqlast.Node {
		return sqlast.Raw{SQL: "CURRENT_TIMESTAMP"}
	}
	d.date = defaultDate
	d.fieldToIdentifier = defaultFieldToIdentifier
	d.fieldToAlias = func(f metadata.Field) string { return f.Name }
	d.unixTimestampToTimestamp = defaultUnixTimestampToTimestamp
	d.dateInterval = defaultDateInterval
	d.formatCustomFieldName = func(name string) string { return name }
	d.applyTopLevelClause = func(value mbql.Node) (mbql.Node, error) { return value, nil }

	registerFieldHandlers(d)
	registerValueHandlers(d)
	registerAggregationHandlers(d)
	registerFilterHandlers(d)

	return d
}

func quoteDoubleQuote(name string) string {
	return `"` + name + `"`
}

func defaultFieldToIdentifier(_ Ctx, table metadata.Table, field metadata.Field) sqlast.Node {
	if table.Name == "" {
		return sqlast.Ident{Parts: []string{field.Name}}
	}
	return sqlast.Ident{Parts: []string{table.Name, field.Name}}
}

// defaultDate truncates expr to unit via date_trunc, the ANSI-adjacent
// form Postgres and most Postgres-family dialects share. Dialects whose
// SQL lacks date_trunc (e.g. MySQL) override this point.
func defaultDate(_ Ctx, unit string, expr sqlast.Node) (sqlast.Node, error) {
	switch unit {
	case "default", "":
		return expr, nil
	case "hour-of-day", "day-of-week", "day-of-month", "day-of-year",
		"week-of-year", "month-of-year", "quarter-of-year":
		field := extractField(unit)
		exprSQL, exprArgs, err := renderExpr(expr)
		if err != nil {
			return nil, err
		}
		return sqlast.FuncCall{Name: "EXTRACT", Args: []sqlast.Node{
			sqlast.Raw{SQL: field + " FROM " + exprSQL, Args: exprArgs},
		}}, nil
	default:
		return sqlast.FuncCall{Name: "date_trunc", Args: []sqlast.Node{
			sqlast.Placeholder{Value: unit}, expr,
		}}, nil
	}
}

// renderExpr formats n to SQL text plus its bound parameters, so a Raw
// fragment built from it (e.g. defaultDate's EXTRACT branch) carries
// those parameters forward instead of dropping them. n may itself bind
// placeholders, e.g. a UNIX-timestamp field divided by its unit's
// divisor before being extracted from.
func renderExpr(n sqlast.Node) (string, []any, error) {
	return sqlast.NewFormatter(quoteDoubleQuote).Format(n)
}

func extractField(unit string) string {
	switch unit {
	case "hour-of-day":
		return "HOUR"
	case "day-of-week":
		return "DOW"
	case "day-of-month":
		return "DAY"
	case "day-of-year":
		return "DOY"
	case "week-of-year":
		return "WEEK"
	case "month-of-year":
		return "MONTH"
	case "quarter-of-year":
		return "QUARTER"
	default:
		return "EPOCH"
	}
}

func defaultUnixTimestampToTimestamp(_ Ctx, expr sqlast.Node, unit string) sqlast.Node {
	divisor := unixUnitDivisor(unit)
	scaled := expr
	if divisor != 1 {
		scaled = sqlast.BinaryOp{Op: "/", Left: expr, Right: sqlast.Placeholder{Value: divisor}}
	}
	return sqlast.FuncCall{Name: "to_timestamp", Args: []sqlast.Node{scaled}}
}

func unixUnitDivisor(unit string) int {
	switch unit {
	case "milliseconds":
		return 1000
	case "microseconds":
		return 1000000
	default:
		return 1
	}
}

func defaultDateInterval(unit string, amount int) sqlast.Node {
	return sqlast.Raw{SQL: fmt.Sprintf("INTERVAL '%d %s'", amount, pluralUnit(unit))}
}

func pluralUnit(unit string) string {
	switch unit {
	case "day", "week", "month", "year", "hour", "minute", "second":
		return unit + "s"
	default:
		return unit
	}
}
