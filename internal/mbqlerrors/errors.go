// Package mbqlerrors defines the error kinds the compiler can return.
//
// Each kind is a distinct Go type rather than a sentinel or a wrapped
// string, so callers (in particular the HTTP handler) can map a failure to
// a status code with a type switch instead of matching on message text.
package mbqlerrors

import "fmt"

// UnknownExpression is returned when an expression(name) clause references
// a name absent from the outer query's expressions map.
type UnknownExpression struct {
	Name string
}

func (e *UnknownExpression) Error() string {
	return fmt.Sprintf("unknown expression %q", e.Name)
}

// UnknownAggregationIndex is returned when aggregation(index) references an
// index outside the bounds of the outer query's aggregation clauses.
type UnknownAggregationIndex struct {
	Index int
	Count int
}

func (e *UnknownAggregationIndex) Error() string {
	return fmt.Sprintf("unknown aggregation index %d (query has %d aggregation(s))", e.Index, e.Count)
}

// MissingJoinInfo is returned when an fk-> clause cannot be matched to a
// join-tables record supplying its join alias and destination table.
type MissingJoinInfo struct {
	FieldID int
}

func (e *MissingJoinInfo) Error() string {
	return fmt.Sprintf("no join info for fk-> field %d", e.FieldID)
}

// InvalidInnerQuery is returned when a nested source-query fails one of the
// structural checks the Clause Orchestrator requires (non-nil, at least one
// of source-table/source-query, etc).
type InvalidInnerQuery struct {
	Reason string
}

func (e *InvalidInnerQuery) Error() string {
	return fmt.Sprintf("invalid inner query: %s", e.Reason)
}

// SqlFormatError wraps a failure in the Formatter stage, carrying the
// offending SQL-AST's pretty-printed form for diagnostics.
type SqlFormatError struct {
	Node string
	Err  error
}

func (e *SqlFormatError) Error() string {
	return fmt.Sprintf("sql format error at %s: %v", e.Node, e.Err)
}

func (e *SqlFormatError) Unwrap() error { return e.Err }

// MetadataMiss is returned when the Metadata Store has no record for a
// table or field id the compiler needs.
type MetadataMiss struct {
	Kind string // "table" or "field"
	ID   int
}

func (e *MetadataMiss) Error() string {
	return fmt.Sprintf("metadata miss: no %s with id %d", e.Kind, e.ID)
}
