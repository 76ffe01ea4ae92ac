package mbql

// JoinInfo is one entry of an inner query's join-tables list. It is
// produced upstream (by whatever assembled the query) and consumed by the
// Expression Compiler when it resolves an fk-> clause's join alias.
// Either DestTableID or SourceQuery is set, not both: a join can target a
// base table or a nested query.
type JoinInfo struct {
	Alias       string
	SourceFK    Node // the fk-> field clause this join satisfies
	DestTableID int
	SourceQuery *Inner
}

// OrderByClause is one entry of an inner query's order-by list.
type OrderByClause struct {
	Direction string // "asc" or "desc"
	Field     Node   // a field clause or an AggregationRef
}

// Page is the page-based pagination clause, an alternative to a bare Limit.
type Page struct {
	Items   int
	PageNum int
}

// Inner is one level of an MBQL query: either a source-table query or a
// nested source-query wrapping another Inner.
type Inner struct {
	SourceTable *int
	SourceQuery *Inner

	Breakout     []Node
	Aggregation  []Node
	Fields       []Node
	Filter       Node
	JoinTables   []JoinInfo
	OrderBy      []OrderByClause
	Limit        *int
	Page         *Page
	Expressions  map[string]Node

	// Unrecognized holds top-level clause keys this decoder did not model
	// explicitly, keyed by clause name. The map has no order; the Clause
	// Orchestrator sorts the names lexicographically before applying them.
	Unrecognized map[string]Node
}

// OuterQuery is the top-level envelope passed to CompileNative.
type OuterQuery struct {
	Database int
	Query    *Inner
}
