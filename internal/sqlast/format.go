package sqlast

import (
	"fmt"
	"strings"
)

// QuoteFunc quotes a single identifier part per a dialect's quoting style
// (e.g. double quotes for ansi, backticks for mysql). Supplied by the
// dialect the Formatter is rendering for.
type QuoteFunc func(string) string

// Formatter renders a SQL-AST Node to SQL text plus a positional parameter
// vector. Fragments use "?" placeholders; the Clause Orchestrator splices
// them into a squirrel.SelectBuilder and lets squirrel rewrite them to the
// target placeholder style (e.g. $1, $2) exactly once, at the final
// ToSql() call, the same two-step placeholder handling the teacher's
// pg.translate.go and query.builder.go both use.
type Formatter struct {
	Quote QuoteFunc
}

// NewFormatter builds a Formatter that quotes identifiers with quote.
func NewFormatter(quote QuoteFunc) *Formatter {
	return &Formatter{Quote: quote}
}

// Format renders n to SQL text and its parameter vector, in left-to-right
// parameter order.
func (f *Formatter) Format(n Node) (string, []any, error) {
	switch v := n.(type) {
	case Ident:
		return f.formatIdent(v), nil, nil
	case Placeholder:
		return "?", []any{v.Value}, nil
	case FuncCall:
		return f.formatFuncCall(v)
	case BinaryOp:
		return f.formatBinaryOp(v)
	case UnaryOp:
		return f.formatUnaryOp(v)
	case Between:
		return f.formatBetween(v)
	case Like:
		return f.formatLike(v)
	case Case:
		return f.formatCase(v)
	case List:
		return f.formatJoined(v.Items, ", ")
	case Tuple:
		sql, args, err := f.formatJoined(v.Items, ", ")
		if err != nil {
			return "", nil, err
		}
		return "(" + sql + ")", args, nil
	case Raw:
		return v.SQL, v.Args, nil
	case As:
		sql, args, err := f.Format(v.Expr)
		if err != nil {
			return "", nil, err
		}
		return sql + " AS " + f.Quote(v.Alias), args, nil
	case Cast:
		sql, args, err := f.Format(v.Expr)
		if err != nil {
			return "", nil, err
		}
		return "CAST(" + sql + " AS " + v.Type + ")", args, nil
	default:
		return "", nil, fmt.Errorf("sqlast: unhandled node type %T", n)
	}
}

func (f *Formatter) formatIdent(v Ident) string {
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = f.Quote(p)
	}
	return strings.Join(parts, ".")
}

func (f *Formatter) formatFuncCall(v FuncCall) (string, []any, error) {
	sql, args, err := f.formatJoined(v.Args, ", ")
	if err != nil {
		return "", nil, fmt.Errorf("function %s: %w", v.Name, err)
	}
	prefix := ""
	if v.Distinct {
		prefix = "DISTINCT "
	}
	return v.Name + "(" + prefix + sql + ")", args, nil
}

func (f *Formatter) formatBinaryOp(v BinaryOp) (string, []any, error) {
	lsql, largs, err := f.Format(v.Left)
	if err != nil {
		return "", nil, fmt.Errorf("binary op %s left: %w", v.Op, err)
	}
	rsql, rargs, err := f.Format(v.Right)
	if err != nil {
		return "", nil, fmt.Errorf("binary op %s right: %w", v.Op, err)
	}
	return fmt.Sprintf("(%s %s %s)", lsql, v.Op, rsql), append(largs, rargs...), nil
}

// formatUnaryOp renders prefix operators (NOT x) normally, but treats
// "IS"-prefixed operators (IS NULL, IS NOT NULL) as postfix (x IS NULL),
// since that's the only legal position for them in SQL.
func (f *Formatter) formatUnaryOp(v UnaryOp) (string, []any, error) {
	sql, args, err := f.Format(v.Expr)
	if err != nil {
		return "", nil, fmt.Errorf("unary op %s: %w", v.Op, err)
	}
	if strings.HasPrefix(v.Op, "IS") {
		return fmt.Sprintf("(%s %s)", sql, v.Op), args, nil
	}
	return fmt.Sprintf("(%s %s)", v.Op, sql), args, nil
}

func (f *Formatter) formatBetween(v Between) (string, []any, error) {
	esql, eargs, err := f.Format(v.Expr)
	if err != nil {
		return "", nil, fmt.Errorf("between expr: %w", err)
	}
	lsql, largs, err := f.Format(v.Low)
	if err != nil {
		return "", nil, fmt.Errorf("between low: %w", err)
	}
	hsql, hargs, err := f.Format(v.High)
	if err != nil {
		return "", nil, fmt.Errorf("between high: %w", err)
	}
	sql := fmt.Sprintf("(%s BETWEEN %s AND %s)", esql, lsql, hsql)
	args := append(eargs, largs...)
	args = append(args, hargs...)
	return sql, args, nil
}

func (f *Formatter) formatLike(v Like) (string, []any, error) {
	esql, eargs, err := f.Format(v.Expr)
	if err != nil {
		return "", nil, fmt.Errorf("like expr: %w", err)
	}
	psql, pargs, err := f.Format(v.Pattern)
	if err != nil {
		return "", nil, fmt.Errorf("like pattern: %w", err)
	}
	op := "LIKE"
	if v.CaseInsensitive {
		op = "ILIKE"
	}
	return fmt.Sprintf("(%s %s %s)", esql, op, psql), append(eargs, pargs...), nil
}

func (f *Formatter) formatCase(v Case) (string, []any, error) {
	var b strings.Builder
	var args []any
	b.WriteString("CASE")
	for _, w := range v.Whens {
		csql, cargs, err := f.Format(w.Cond)
		if err != nil {
			return "", nil, fmt.Errorf("case when: %w", err)
		}
		tsql, targs, err := f.Format(w.Then)
		if err != nil {
			return "", nil, fmt.Errorf("case then: %w", err)
		}
		b.WriteString(fmt.Sprintf(" WHEN %s THEN %s", csql, tsql))
		args = append(args, cargs...)
		args = append(args, targs...)
	}
	if v.Else != nil {
		esql, eargs, err := f.Format(v.Else)
		if err != nil {
			return "", nil, fmt.Errorf("case else: %w", err)
		}
		b.WriteString(" ELSE " + esql)
		args = append(args, eargs...)
	}
	b.WriteString(" END")
	return b.String(), args, nil
}

func (f *Formatter) formatJoined(items []Node, sep string) (string, []any, error) {
	parts := make([]string, len(items))
	var args []any
	for i, item := range items {
		sql, itemArgs, err := f.Format(item)
		if err != nil {
			return "", nil, fmt.Errorf("item %d: %w", i, err)
		}
		parts[i] = sql
		args = append(args, itemArgs...)
	}
	return strings.Join(parts, sep), args, nil
}

// Sprint pretty-prints n for SqlFormatError diagnostics. It never fails:
// a node this function can't render prints as its Go type name.
func Sprint(n Node) string {
	switch v := n.(type) {
	case Ident:
		return strings.Join(v.Parts, ".")
	case Placeholder:
		return fmt.Sprintf("%v", v.Value)
	case FuncCall:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = Sprint(a)
		}
		return v.Name + "(" + strings.Join(parts, ", ") + ")"
	case BinaryOp:
		return fmt.Sprintf("(%s %s %s)", Sprint(v.Left), v.Op, Sprint(v.Right))
	case UnaryOp:
		return fmt.Sprintf("(%s %s)", v.Op, Sprint(v.Expr))
	case Raw:
		return v.SQL
	case As:
		return Sprint(v.Expr) + " AS " + v.Alias
	default:
		return fmt.Sprintf("<%T>", n)
	}
}
