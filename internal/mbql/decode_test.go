package mbql

import (
	"encoding/json"
	"testing"
)

func TestDecodeFieldClauses(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Node
	}{
		{"field-id", `["field-id", 10]`, FieldID{ID: 10}},
		{"field-literal", `["field-literal", "total", "type/Float"]`, FieldLiteral{Name: "total", Type: "type/Float"}},
		{
			"fk->",
			`["fk->", ["field-id", 1], ["field-id", 2]]`,
			FKArrow{SourceFK: FieldID{ID: 1}, DestField: FieldID{ID: 2}},
		},
		{
			"datetime-field",
			`["datetime-field", ["field-id", 5], "month"]`,
			DatetimeField{Inner: FieldID{ID: 5}, Unit: "month"},
		},
		{"expression", `["expression", "double_total"]`, ExpressionRef{Name: "double_total"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeField(json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("DecodeField(%s) error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("DecodeField(%s) = %#v, want %#v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestDecodeRelativeDatetimeArities(t *testing.T) {
	got, err := DecodeValue(json.RawMessage(`["relative-datetime", 0, "day"]`))
	if err != nil {
		t.Fatal(err)
	}
	if got != (RelativeDatetime{Amount: 0, Unit: "day"}) {
		t.Fatalf("2-arity relative-datetime = %#v", got)
	}

	got, err = DecodeValue(json.RawMessage(`["relative-datetime", ["field-id", 9], -1, "month"]`))
	if err != nil {
		t.Fatal(err)
	}
	want := RelativeDatetime{Amount: -1, Unit: "month", Field: FieldID{ID: 9}}
	if got != want {
		t.Fatalf("3-arity relative-datetime = %#v, want %#v", got, want)
	}
}

func TestDecodeFilterAndAggregation(t *testing.T) {
	filter, err := DecodeFilter(json.RawMessage(`["and",
		["=", ["field-id", 1], ["value", 5, {"base_type": "type/Integer"}]],
		["starts-with", ["field-id", 2], ["value", "ab"], {"case-sensitive": false}]
	]`))
	if err != nil {
		t.Fatal(err)
	}
	and, ok := filter.(AndFilter)
	if !ok || len(and.Args) != 2 {
		t.Fatalf("expected AndFilter with 2 args, got %#v", filter)
	}

	agg, err := DecodeAggregation(json.RawMessage(`["sum-where", ["sum", ["field-id", 3]], ["=", ["field-id", 4], ["value", "x"]]]`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := agg.(SumWhereAgg); !ok {
		t.Fatalf("expected SumWhereAgg, got %#v", agg)
	}
}

func TestParseInnerCollectsUnrecognizedClauses(t *testing.T) {
	inner, err := ParseInner(json.RawMessage(`{
		"source-table": 1,
		"zzz-future-clause": ["field-id", 1],
		"aaa-future-clause": ["field-id", 2]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.Unrecognized) != 2 {
		t.Fatalf("expected 2 unrecognized clauses, got %d", len(inner.Unrecognized))
	}
	if _, ok := inner.Unrecognized["aaa-future-clause"]; !ok {
		t.Fatal("missing aaa-future-clause")
	}
}

func TestParseOuterQueryWithJoinAndOrderBy(t *testing.T) {
	raw := json.RawMessage(`{
		"database": 1,
		"query": {
			"source-table": 10,
			"join-tables": [
				{"alias": "j1", "source-field": ["field-id", 7], "dest-table-id": 11}
			],
			"order-by": [["asc", ["field-id", 7]], ["desc", ["aggregation", 0]]],
			"limit": 50
		}
	}`)
	q, err := ParseOuterQuery(raw)
	if err != nil {
		t.Fatal(err)
	}
	if q.Database != 1 || *q.Query.SourceTable != 10 {
		t.Fatalf("unexpected outer query: %#v", q)
	}
	if len(q.Query.JoinTables) != 1 || q.Query.JoinTables[0].DestTableID != 11 {
		t.Fatalf("unexpected join-tables: %#v", q.Query.JoinTables)
	}
	if len(q.Query.OrderBy) != 2 {
		t.Fatalf("unexpected order-by: %#v", q.Query.OrderBy)
	}
	if _, ok := q.Query.OrderBy[1].Field.(AggregationRef); !ok {
		t.Fatalf("expected second order-by field to be an AggregationRef, got %#v", q.Query.OrderBy[1].Field)
	}
	if q.Query.Limit == nil || *q.Query.Limit != 50 {
		t.Fatalf("unexpected limit: %#v", q.Query.Limit)
	}
}
