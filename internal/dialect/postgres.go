package dialect

import (
	"fmt"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

// NewPostgresDialect builds the "postgres" dialect as a child of root.
// Postgres shares ANSI quoting and date_trunc-based truncation with the
// root defaults, so it only overrides the points Postgres actually
// spells differently: now(), date_interval's addition syntax, and
// absolute-datetime's literal cast.
func NewPostgresDialect(root *Dialect) *Dialect {
	d := New("postgres", root)

	d.currentDatetimeFn = func(Ctx) sqlast.Node {
		return sqlast.Raw{SQL: "now()"}
	}
	d.dateInterval = func(unit string, amount int) sqlast.Node {
		return sqlast.Raw{SQL: fmt.Sprintf("(INTERVAL '%d %s')", amount, pluralUnit(unit))}
	}

	d.RegisterNodeHandler(mbql.AbsoluteDatetime{}, postgresAbsoluteDatetimeHandler)

	return d
}

// postgresAbsoluteDatetimeHandler casts the literal explicitly, since
// Postgres won't otherwise infer a timestamp comparison against a bare
// text parameter in every context the compiler can put one in (e.g. the
// argument position of date_trunc).
func postgresAbsoluteDatetimeHandler(_ Ctx, node mbql.Node) (sqlast.Node, error) {
	dt := node.(mbql.AbsoluteDatetime)
	return sqlast.Cast{Expr: sqlast.Placeholder{Value: dt.Timestamp}, Type: "timestamptz"}, nil
}
