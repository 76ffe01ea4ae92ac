package metadata

import (
	"errors"
	"testing"
)

func TestScopedTablePrefersOverride(t *testing.T) {
	base := NewStaticStore([]Table{{ID: 1, Name: "orders"}}, nil)
	s := NewScoped(base)

	got, err := s.Table(1)
	if err != nil || got.Name != "orders" {
		t.Fatalf("Table(1) = %+v, %v; want orders", got, err)
	}

	err = s.WithPushedTable(Table{ID: 1, Name: "orders_alias"}, func() error {
		inner, err := s.Table(1)
		if err != nil || inner.Name != "orders_alias" {
			t.Fatalf("Table(1) inside push = %+v, %v; want orders_alias", inner, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithPushedTable returned %v", err)
	}

	after, err := s.Table(1)
	if err != nil || after.Name != "orders" {
		t.Fatalf("Table(1) after pop = %+v, %v; want orders restored", after, err)
	}
}

func TestScopedPopsOnThunkError(t *testing.T) {
	base := NewStaticStore([]Table{{ID: 1, Name: "orders"}}, nil)
	s := NewScoped(base)

	sentinel := errors.New("boom")
	err := s.WithPushedTable(Table{ID: 1, Name: "shadow"}, func() error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithPushedTable err = %v, want %v", err, sentinel)
	}

	after, err := s.Table(1)
	if err != nil || after.Name != "orders" {
		t.Fatalf("Table(1) after error exit = %+v, %v; want orders restored", after, err)
	}
}

func TestScopedPopsOnPanic(t *testing.T) {
	base := NewStaticStore([]Table{{ID: 1, Name: "orders"}}, nil)
	s := NewScoped(base)

	func() {
		defer func() {
			recover()
		}()
		s.WithPushedTable(Table{ID: 1, Name: "shadow"}, func() error {
			panic("boom")
		})
	}()

	after, err := s.Table(1)
	if err != nil || after.Name != "orders" {
		t.Fatalf("Table(1) after panic = %+v, %v; want orders restored", after, err)
	}
}

func TestScopedNestedPush(t *testing.T) {
	base := NewStaticStore([]Table{{ID: 1, Name: "orders"}}, nil)
	s := NewScoped(base)

	err := s.WithPushedTable(Table{ID: 1, Name: "outer"}, func() error {
		return s.WithPushedTable(Table{ID: 1, Name: "inner"}, func() error {
			got, _ := s.Table(1)
			if got.Name != "inner" {
				t.Fatalf("Table(1) = %s, want inner", got.Name)
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested push returned %v", err)
	}
	after, _ := s.Table(1)
	if after.Name != "orders" {
		t.Fatalf("Table(1) after nested pop = %s, want orders", after.Name)
	}
}

func TestStaticStoreMetadataMiss(t *testing.T) {
	s := NewStaticStore(nil, nil)
	if _, err := s.Table(99); err == nil {
		t.Fatal("expected MetadataMiss for unknown table")
	}
	if _, err := s.Field(99); err == nil {
		t.Fatal("expected MetadataMiss for unknown field")
	}
}
