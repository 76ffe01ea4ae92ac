// Package dialect implements the Dialect Registry: a single-parent
// inheritance chain of override points a dialect author can hook into to
// customize how the compiler renders MBQL onto a particular database's
// SQL dialect, plus a per-MBQL-node-kind dispatch table (to_sql_ast) that
// a dialect can override for individual node kinds without having to
// reimplement the whole Expression Compiler.
//
// Generalizes the teacher's SourceCalls/PipeCalls name-keyed dispatch
// tables (internal/hrql/functions.go) from function names to
// (dialect, node-kind) keys, and adds the inheritance walk spec.md's
// dialect model requires that the teacher's flat maps did not need.
package dialect

import (
	"fmt"
	"reflect"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

// Ctx is the compiler-side context a node handler or override-point
// function needs: to recurse back into the Expression Compiler, to look
// up metadata, or to see the innermost query currently being compiled
// (for its join-tables, aggregation list, and expressions). internal/
// compiler's Context type satisfies this structurally; dialect never
// imports compiler.
type Ctx interface {
	Dialect() *Dialect
	Store() metadata.Store
	Query() *mbql.Inner
	NestingLevel() int
	ToSQLAST(node mbql.Node) (sqlast.Node, error)
}

// NodeHandler compiles one MBQL node kind to a SQL-AST node.
type NodeHandler func(ctx Ctx, node mbql.Node) (sqlast.Node, error)

// Dialect is one entry in the inheritance chain. A nil function field (or
// a missing nodeHandlers entry) means "not overridden here" — resolution
// walks up through Parent. The root dialect ("sql") must supply every
// scalar point and a node handler for every built-in MBQL node kind.
// Nothing checks this at registration: a missing scalar point panics (or,
// for Date, returns an error) when it is first resolved, and a missing
// node handler surfaces as an error from the compiler.
type Dialect struct {
	ID     string
	Parent *Dialect

	nodeHandlers map[reflect.Type]NodeHandler

	quoteIdent               func(name string) string
	currentDatetimeFn        func(ctx Ctx) sqlast.Node
	date                     func(ctx Ctx, unit string, expr sqlast.Node) (sqlast.Node, error)
	fieldToIdentifier        func(ctx Ctx, table metadata.Table, field metadata.Field) sqlast.Node
	fieldToAlias             func(field metadata.Field) string
	unixTimestampToTimestamp func(ctx Ctx, expr sqlast.Node, unit string) sqlast.Node
	dateInterval             func(unit string, amount int) sqlast.Node
	formatCustomFieldName    func(name string) string
	applyTopLevelClause      func(value mbql.Node) (mbql.Node, error)
}

// New creates a dialect inheriting from parent. parent is nil only for the
// root dialect.
func New(id string, parent *Dialect) *Dialect {
	return &Dialect{ID: id, Parent: parent, nodeHandlers: map[reflect.Type]NodeHandler{}}
}

// RegisterNodeHandler overrides how this dialect compiles nodes of node's
// concrete Go type. Pass a zero value of the node type, e.g.
// d.RegisterNodeHandler(mbql.FieldID{}, handler).
func (d *Dialect) RegisterNodeHandler(nodeSample mbql.Node, h NodeHandler) {
	d.nodeHandlers[reflect.TypeOf(nodeSample)] = h
}

// NodeHandler resolves the handler for node's concrete type by walking
// this dialect's inheritance chain.
func (d *Dialect) NodeHandler(node mbql.Node) (NodeHandler, bool) {
	t := reflect.TypeOf(node)
	for cur := d; cur != nil; cur = cur.Parent {
		if h, ok := cur.nodeHandlers[t]; ok {
			return h, true
		}
	}
	return nil, false
}

func (d *Dialect) QuoteIdent(name string) string {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.quoteIdent != nil {
			return cur.quoteIdent(name)
		}
	}
	panic(fmt.Sprintf("dialect %q: no quote_style override reachable", d.ID))
}

func (d *Dialect) CurrentDatetimeFn(ctx Ctx) sqlast.Node {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.currentDatetimeFn != nil {
			return cur.currentDatetimeFn(ctx)
		}
	}
	panic(fmt.Sprintf("dialect %q: no current_datetime_fn override reachable", d.ID))
}

func (d *Dialect) Date(ctx Ctx, unit string, expr sqlast.Node) (sqlast.Node, error) {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.date != nil {
			return cur.date(ctx, unit, expr)
		}
	}
	return nil, fmt.Errorf("dialect %q: no date override reachable", d.ID)
}

func (d *Dialect) FieldToIdentifier(ctx Ctx, table metadata.Table, field metadata.Field) sqlast.Node {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.fieldToIdentifier != nil {
			return cur.fieldToIdentifier(ctx, table, field)
		}
	}
	panic(fmt.Sprintf("dialect %q: no field_to_identifier override reachable", d.ID))
}

func (d *Dialect) FieldToAlias(field metadata.Field) string {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.fieldToAlias != nil {
			return cur.fieldToAlias(field)
		}
	}
	return field.Name
}

func (d *Dialect) UnixTimestampToTimestamp(ctx Ctx, expr sqlast.Node, unit string) sqlast.Node {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.unixTimestampToTimestamp != nil {
			return cur.unixTimestampToTimestamp(ctx, expr, unit)
		}
	}
	panic(fmt.Sprintf("dialect %q: no unix_timestamp_to_timestamp override reachable", d.ID))
}

func (d *Dialect) DateInterval(unit string, amount int) sqlast.Node {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.dateInterval != nil {
			return cur.dateInterval(unit, amount)
		}
	}
	panic(fmt.Sprintf("dialect %q: no date_interval override reachable", d.ID))
}

func (d *Dialect) FormatCustomFieldName(name string) string {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.formatCustomFieldName != nil {
			return cur.formatCustomFieldName(name)
		}
	}
	return name
}

// ApplyTopLevelClause is called by the Clause Orchestrator once per
// unrecognized top-level clause, in lexicographic order of clause name.
// The orchestrator discards the returned value; only a returned error has
// an effect. The root dialect's default is identity.
func (d *Dialect) ApplyTopLevelClause(value mbql.Node) (mbql.Node, error) {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.applyTopLevelClause != nil {
			return cur.applyTopLevelClause(value)
		}
	}
	return value, nil
}

// Registry is the set of known dialects, keyed by id.
type Registry struct {
	dialects map[string]*Dialect
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{dialects: map[string]*Dialect{}}
}

// Register adds d to the registry.
func (r *Registry) Register(d *Dialect) {
	r.dialects[d.ID] = d
}

// Get resolves a dialect by id.
func (r *Registry) Get(id string) (*Dialect, error) {
	d, ok := r.dialects[id]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", id)
	}
	return d, nil
}
