package dialect

import (
	"fmt"

	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

// NewMySQLDialect builds the "mysql" dialect as a child of root. MySQL
// quotes identifiers with backticks, has no date_trunc (DATE_FORMAT stands
// in for it), and writes date arithmetic as "expr + INTERVAL n UNIT" with a
// bare unit keyword.
func NewMySQLDialect(root *Dialect) *Dialect {
	d := New("mysql", root)

	d.quoteIdent = func(name string) string {
		return "`" + name + "`"
	}
	d.currentDatetimeFn = func(Ctx) sqlast.Node {
		return sqlast.Raw{SQL: "NOW()"}
	}
	d.date = mysqlDate
	d.dateInterval = func(unit string, amount int) sqlast.Node {
		// MySQL accepts "expr + INTERVAL n unit" directly, same shape as
		// Postgres, but with bare (unquoted) unit keywords and no sign
		// inside the literal — a negative amount needs "- INTERVAL n unit"
		// at the call site, which relativeDatetimeHandler always renders
		// as a "+", so fold the sign into the literal via a negative
		// interval value instead (MySQL permits INTERVAL -1 DAY).
		return sqlast.Raw{SQL: fmt.Sprintf("INTERVAL %d %s", amount, mysqlUnit(unit))}
	}
	d.fieldToAlias = func(f metadata.Field) string { return f.Name }

	return d
}

func mysqlDate(_ Ctx, unit string, expr sqlast.Node) (sqlast.Node, error) {
	switch unit {
	case "default", "":
		return expr, nil
	default:
		format, ok := mysqlDateFormats[unit]
		if !ok {
			return nil, fmt.Errorf("mysql: unsupported date unit %q", unit)
		}
		return sqlast.FuncCall{Name: "DATE_FORMAT", Args: []sqlast.Node{
			expr, sqlast.Placeholder{Value: format},
		}}, nil
	}
}

var mysqlDateFormats = map[string]string{
	"day":     "%Y-%m-%d",
	"week":    "%x-%v",
	"month":   "%Y-%m-01",
	"quarter": "%Y-%m-01",
	"year":    "%Y-01-01",
}

func mysqlUnit(unit string) string {
	switch unit {
	case "day":
		return "DAY"
	case "week":
		return "WEEK"
	case "month":
		return "MONTH"
	case "quarter":
		return "QUARTER"
	case "year":
		return "YEAR"
	default:
		return "DAY"
	}
}
