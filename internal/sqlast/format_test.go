package sqlast

import "testing"

func ansiQuote(s string) string { return `"` + s + `"` }

func TestFormatIdentJoinsQuotedParts(t *testing.T) {
	f := NewFormatter(ansiQuote)
	sql, args, err := f.Format(Ident{Parts: []string{"orders", "created_at"}})
	if err != nil {
		t.Fatal(err)
	}
	if sql != `"orders"."created_at"` {
		t.Fatalf("got %q", sql)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestFormatBinaryOpParameterOrder(t *testing.T) {
	f := NewFormatter(ansiQuote)
	n := BinaryOp{
		Op:   "AND",
		Left: BinaryOp{Op: "=", Left: Ident{Parts: []string{"id"}}, Right: Placeholder{Value: 1}},
		Right: BinaryOp{
			Op:   "=",
			Left: Ident{Parts: []string{"status"}},
			Right: Placeholder{Value: "open"},
		},
	}
	sql, args, err := f.Format(n)
	if err != nil {
		t.Fatal(err)
	}
	want := `(("id" = ?) AND ("status" = ?))`
	if sql != want {
		t.Fatalf("got %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != 1 || args[1] != "open" {
		t.Fatalf("got args %v", args)
	}
}

func TestFormatBetweenAndLike(t *testing.T) {
	f := NewFormatter(ansiQuote)

	sql, args, err := f.Format(Between{
		Expr: Ident{Parts: []string{"total"}},
		Low:  Placeholder{Value: 0},
		High: Placeholder{Value: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sql != `("total" BETWEEN ? AND ?)` || len(args) != 2 {
		t.Fatalf("got %q %v", sql, args)
	}

	sql, _, err = f.Format(Like{
		Expr:            Ident{Parts: []string{"name"}},
		Pattern:         Placeholder{Value: "a%"},
		CaseInsensitive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sql != `("name" ILIKE ?)` {
		t.Fatalf("got %q", sql)
	}
}

func TestFormatTupleForIn(t *testing.T) {
	f := NewFormatter(ansiQuote)
	sql, args, err := f.Format(BinaryOp{
		Op:   "IN",
		Left: Ident{Parts: []string{"status"}},
		Right: Tuple{Items: []Node{
			Placeholder{Value: "open"},
			Placeholder{Value: "closed"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sql != `("status" IN (?, ?))` || len(args) != 2 {
		t.Fatalf("got %q %v", sql, args)
	}
}

func TestFormatUnhandledNodeErrors(t *testing.T) {
	f := NewFormatter(ansiQuote)
	type bogus struct{ Node }
	if _, _, err := f.Format(bogus{}); err == nil {
		t.Fatal("expected error for unhandled node type")
	}
}
