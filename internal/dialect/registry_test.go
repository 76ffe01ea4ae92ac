package dialect

import (
	"reflect"
	"testing"

	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/metadata"
	"github.com/matthieu-foucault/metabase/internal/sqlast"
)

// fakeCtx is a minimal Ctx used to exercise node handlers directly,
// without pulling in the full compiler.Context.
type fakeCtx struct {
	dialect *Dialect
	store   metadata.Store
	query   *mbql.Inner
}

func (c *fakeCtx) Dialect() *Dialect       { return c.dialect }
func (c *fakeCtx) Store() metadata.Store   { return c.store }
func (c *fakeCtx) Query() *mbql.Inner      { return c.query }
func (c *fakeCtx) NestingLevel() int       { return 0 }

func (c *fakeCtx) ToSQLAST(node mbql.Node) (sqlast.Node, error) {
	h, ok := c.dialect.NodeHandler(node)
	if !ok {
		panic("no handler")
	}
	return h(c, node)
}

func newFakeCtx(d *Dialect) *fakeCtx {
	store := metadata.NewScoped(metadata.NewStaticStore(
		[]metadata.Table{{ID: 1, Schema: "public", Name: "orders"}},
		[]metadata.Field{
			{ID: 10, TableID: 1, Name: "total"},
			{ID: 20, TableID: 1, Name: "placed_at", SpecialType: "UNIXTimestampSeconds"},
		},
	))
	return &fakeCtx{dialect: d, store: store, query: &mbql.Inner{}}
}

func TestRegistryUnknownDialect(t *testing.T) {
	r := NewRegistry()
	r.Register(NewRootDialect())
	if _, err := r.Get("oracle"); err == nil {
		t.Fatal("expected error for unregistered dialect")
	}
	if _, err := r.Get("sql"); err != nil {
		t.Fatalf("Get(sql) failed: %v", err)
	}
}

func TestPostgresInheritsQuoteStyleFromRoot(t *testing.T) {
	root := NewRootDialect()
	pg := NewPostgresDialect(root)
	if pg.QuoteIdent("orders") != `"orders"` {
		t.Fatalf("postgres quote = %s", pg.QuoteIdent("orders"))
	}
}

func TestMySQLOverridesQuoteStyle(t *testing.T) {
	root := NewRootDialect()
	my := NewMySQLDialect(root)
	if my.QuoteIdent("orders") != "`orders`" {
		t.Fatalf("mysql quote = %s", my.QuoteIdent("orders"))
	}
}

func TestPostgresOverridesCurrentDatetimeFn(t *testing.T) {
	root := NewRootDialect()
	pg := NewPostgresDialect(root)
	ctx := newFakeCtx(pg)

	rootNode := root.CurrentDatetimeFn(ctx)
	pgNode := pg.CurrentDatetimeFn(ctx)
	if reflect.DeepEqual(rootNode, pgNode) {
		t.Fatal("expected postgres to override current_datetime_fn")
	}
	raw, ok := pgNode.(sqlast.Raw)
	if !ok || raw.SQL != "now()" {
		t.Fatalf("postgres current_datetime_fn = %#v", pgNode)
	}
}

func TestFieldIDHandlerResolvesThroughStore(t *testing.T) {
	root := NewRootDialect()
	ctx := newFakeCtx(root)

	got, err := ctx.ToSQLAST(mbql.FieldID{ID: 10})
	if err != nil {
		t.Fatal(err)
	}
	ident, ok := got.(sqlast.Ident)
	if !ok || len(ident.Parts) != 2 || ident.Parts[0] != "orders" || ident.Parts[1] != "total" {
		t.Fatalf("got %#v", got)
	}
}

func TestFieldIDHandlerMetadataMiss(t *testing.T) {
	root := NewRootDialect()
	ctx := newFakeCtx(root)
	if _, err := ctx.ToSQLAST(mbql.FieldID{ID: 999}); err == nil {
		t.Fatal("expected metadata miss error")
	}
}

func TestFieldIDHandlerWrapsUnixTimestampField(t *testing.T) {
	root := NewRootDialect()
	ctx := newFakeCtx(root)

	got, err := ctx.ToSQLAST(mbql.FieldID{ID: 20})
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := got.(sqlast.FuncCall)
	if !ok || fn.Name != "to_timestamp" {
		t.Fatalf("expected a to_timestamp cast, got %#v", got)
	}
}

func TestPostgresOverridesAbsoluteDatetimeNodeHandler(t *testing.T) {
	root := NewRootDialect()
	pg := NewPostgresDialect(root)
	ctx := newFakeCtx(pg)

	got, err := ctx.ToSQLAST(mbql.AbsoluteDatetime{Timestamp: "2024-01-01", Unit: "day"})
	if err != nil {
		t.Fatal(err)
	}
	cast, ok := got.(sqlast.Cast)
	if !ok || cast.Type != "timestamptz" {
		t.Fatalf("got %#v", got)
	}
}
