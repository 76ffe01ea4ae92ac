package compiler

import (
	"regexp"
	"strings"
	"testing"

	"github.com/matthieu-foucault/metabase/internal/dialect"
	"github.com/matthieu-foucault/metabase/internal/mbql"
	"github.com/matthieu-foucault/metabase/internal/mbqlerrors"
	"github.com/matthieu-foucault/metabase/internal/metadata"
)

func testRegistry() *dialect.Registry {
	r := dialect.NewRegistry()
	root := dialect.NewRootDialect()
	r.Register(root)
	r.Register(dialect.NewPostgresDialect(root))
	r.Register(dialect.NewMySQLDialect(root))
	return r
}

func testStore() metadata.Store {
	return metadata.NewScoped(metadata.NewStaticStore(
		[]metadata.Table{
			{ID: 1, Schema: "public", Name: "orders"},
			{ID: 2, Schema: "public", Name: "customers"},
		},
		[]metadata.Field{
			{ID: 10, TableID: 1, Name: "total"},
			{ID: 11, TableID: 1, Name: "customer_id"},
			{ID: 12, TableID: 2, Name: "name"},
			{ID: 13, TableID: 1, Name: "created_at"},
			{ID: 14, TableID: 1, Name: "created_at_unix", SpecialType: "UNIXTimestampSeconds"},
			{ID: 15, TableID: 1, Name: "updated_at_unix_ms", SpecialType: "UNIXTimestampMilliseconds"},
		},
	))
}

func intPtr(i int) *int { return &i }

func TestCompileSimpleBreakoutAggregation(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Breakout:    []mbql.Node{mbql.FieldID{ID: 11}},
			Aggregation: []mbql.Node{mbql.SimpleAgg{Op: "count"}},
		},
	}

	sqlText, args, err := CompileNative(testRegistry(), "postgres", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 0 {
		t.Fatalf("expected no bound params, got %v", args)
	}
	if !strings.Contains(sqlText, `"orders"."customer_id"`) {
		t.Fatalf("missing breakout column: %s", sqlText)
	}
	if !strings.Contains(sqlText, "COUNT(*)") {
		t.Fatalf("missing count aggregation: %s", sqlText)
	}
	if !strings.Contains(sqlText, `AS "count"`) {
		t.Fatalf("missing aggregation alias: %s", sqlText)
	}
	if !strings.Contains(sqlText, "GROUP BY 1") {
		t.Fatalf("missing group by over the breakout column: %s", sqlText)
	}
	if !strings.HasPrefix(sqlText, "SELECT") {
		t.Fatalf("unexpected sql: %s", sqlText)
	}
}

func TestCompileFilterUsesDollarPlaceholders(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Filter: mbql.CompareFilter{
				Op:    ">",
				Field: mbql.FieldID{ID: 10},
				Value: mbql.Value{Val: mbql.Literal{Value: 100}, BaseType: "type/Integer"},
			},
		},
	}

	sqlText, args, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, "$1") {
		t.Fatalf("expected dollar placeholder, got: %s", sqlText)
	}
	if len(args) != 1 || args[0] != 100 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCompileFKArrowQualifiesWithJoinAlias(t *testing.T) {
	srcFK := mbql.FieldID{ID: 11}
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Breakout: []mbql.Node{
				mbql.FKArrow{SourceFK: srcFK, DestField: mbql.FieldID{ID: 12}},
			},
			JoinTables: []mbql.JoinInfo{
				{Alias: "customers__via__customer_id", SourceFK: srcFK, DestTableID: 2},
			},
		},
	}

	sqlText, _, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, `"customers__via__customer_id"."name"`) {
		t.Fatalf("expected join-aliased identifier, got: %s", sqlText)
	}
	if !strings.Contains(sqlText, "LEFT JOIN") {
		t.Fatalf("expected a join clause, got: %s", sqlText)
	}
}

func TestCompileFKArrowMissingJoinInfo(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Breakout: []mbql.Node{
				mbql.FKArrow{SourceFK: mbql.FieldID{ID: 11}, DestField: mbql.FieldID{ID: 12}},
			},
		},
	}

	_, _, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	var missing *mbqlerrors.MissingJoinInfo
	if err == nil {
		t.Fatal("expected MissingJoinInfo")
	}
	if !asMissingJoinInfo(err, &missing) {
		t.Fatalf("expected MissingJoinInfo, got %#v", err)
	}
}

func asMissingJoinInfo(err error, target **mbqlerrors.MissingJoinInfo) bool {
	m, ok := err.(*mbqlerrors.MissingJoinInfo)
	if ok {
		*target = m
	}
	return ok
}

func TestCompileNestedSourceQueryAliasesFields(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceQuery: &mbql.Inner{
				SourceTable: intPtr(1),
				Breakout:    []mbql.Node{mbql.FieldID{ID: 11}},
				Aggregation: []mbql.Node{mbql.SimpleAgg{Op: "sum", Field: mbql.FieldID{ID: 10}}},
			},
			Filter: mbql.CompareFilter{
				Op:    ">",
				Field: mbql.FieldID{ID: 11},
				Value: mbql.Value{Val: mbql.Literal{Value: 5}, BaseType: "type/Integer"},
			},
		},
	}

	sqlText, args, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, `"source_1"`) {
		t.Fatalf("expected nested alias source_1, got: %s", sqlText)
	}
	if !strings.Contains(sqlText, `"source_1"."customer_id"`) {
		t.Fatalf("expected outer filter qualified by nested alias, got: %s", sqlText)
	}
	if len(args) != 1 || args[0] != 5 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCompileMissingSourceIsInvalidInnerQuery(t *testing.T) {
	outer := &mbql.OuterQuery{Database: 1, Query: &mbql.Inner{}}
	_, _, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if _, ok := err.(*mbqlerrors.InvalidInnerQuery); !ok {
		t.Fatalf("expected InvalidInnerQuery, got %#v", err)
	}
}

func TestCompileUnknownDialectErrors(t *testing.T) {
	outer := &mbql.OuterQuery{Database: 1, Query: &mbql.Inner{SourceTable: intPtr(1)}}
	if _, _, err := CompileNative(testRegistry(), "oracle", testStore(), outer, false); err == nil {
		t.Fatal("expected unknown dialect error")
	}
}

func TestCompileUnixTimestampFieldIsCastToTimestamp(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Fields:      []mbql.Node{mbql.FieldID{ID: 14}},
		},
	}
	sqlText, _, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, "to_timestamp(") {
		t.Fatalf("expected unix-timestamp field to be cast, got: %s", sqlText)
	}
	if strings.Contains(sqlText, "/") {
		t.Fatalf("seconds resolution should not divide by anything: %s", sqlText)
	}
}

func TestCompileUnixTimestampMillisecondsFieldDividesFirst(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Fields:      []mbql.Node{mbql.FieldID{ID: 15}},
		},
	}
	sqlText, args, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, "to_timestamp(") {
		t.Fatalf("expected unix-timestamp field to be cast, got: %s", sqlText)
	}
	if len(args) != 1 || args[0] != 1000 {
		t.Fatalf("expected a millisecond divisor bound param, got: %v", args)
	}
}

func TestCompileDatetimeExtractOverUnixTimestampFieldKeepsDivisorBound(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Fields: []mbql.Node{
				mbql.DatetimeField{Inner: mbql.FieldID{ID: 15}, Unit: "hour-of-day"},
			},
		},
	}
	sqlText, args, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, "EXTRACT(HOUR FROM") {
		t.Fatalf("expected an EXTRACT(HOUR FROM ...), got: %s", sqlText)
	}
	placeholders := len(regexp.MustCompile(`\$\d+`).FindAllString(sqlText, -1))
	if placeholders != len(args) {
		t.Fatalf("sql has %d placeholders but %d bound args, meaning one was dropped: %s %v", placeholders, len(args), sqlText, args)
	}
	if len(args) != 1 || args[0] != 1000 {
		t.Fatalf("expected the millisecond divisor to stay bound, got: %v", args)
	}
}

func TestCompileCountWhereMatchesSumWhereOne(t *testing.T) {
	pred := mbql.CompareFilter{Op: ">", Field: mbql.FieldID{ID: 10}, Value: mbql.Value{Val: mbql.Literal{Value: 0}, BaseType: "type/Integer"}}

	// The default select-list alias differs by aggregation kind
	// ("count_where" vs "sum_where"), so both get the same explicit name
	// and the comparison covers only the compiled aggregation expression.
	countWhere := &mbql.OuterQuery{Database: 1, Query: &mbql.Inner{
		SourceTable: intPtr(1),
		Aggregation: []mbql.Node{mbql.NamedAgg{Inner: mbql.CountWhereAgg{Pred: pred}, Alias: "matching"}},
	}}
	sumWhereOne := &mbql.OuterQuery{Database: 1, Query: &mbql.Inner{
		SourceTable: intPtr(1),
		Aggregation: []mbql.Node{mbql.NamedAgg{Inner: mbql.SumWhereAgg{Arg: mbql.Literal{Value: 1}, Pred: pred}, Alias: "matching"}},
	}}

	countSQL, countArgs, err := CompileNative(testRegistry(), "sql", testStore(), countWhere, false)
	if err != nil {
		t.Fatal(err)
	}
	sumSQL, sumArgs, err := CompileNative(testRegistry(), "sql", testStore(), sumWhereOne, false)
	if err != nil {
		t.Fatal(err)
	}
	if countSQL != sumSQL {
		t.Fatalf("count-where(pred) should equal sum-where(1, pred) at the SQL level:\n%s\n%s", countSQL, sumSQL)
	}
	if len(countArgs) != len(sumArgs) {
		t.Fatalf("mismatched args: %v vs %v", countArgs, sumArgs)
	}
}

func TestCompileShareDelegatesToCountWhere(t *testing.T) {
	pred := mbql.CompareFilter{Op: "=", Field: mbql.FieldID{ID: 11}, Value: mbql.Value{Val: mbql.Literal{Value: 1}, BaseType: "type/Integer"}}
	outer := &mbql.OuterQuery{Database: 1, Query: &mbql.Inner{
		SourceTable: intPtr(1),
		Aggregation: []mbql.Node{mbql.ShareAgg{Pred: pred}},
	}}
	sqlText, _, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, "SUM(CASE WHEN") || !strings.Contains(sqlText, "COUNT(*)") {
		t.Fatalf("expected share to divide a count-where sum by a row count, got: %s", sqlText)
	}
}

func TestCompileLimitAndPage(t *testing.T) {
	outer := &mbql.OuterQuery{
		Database: 1,
		Query: &mbql.Inner{
			SourceTable: intPtr(1),
			Page:        &mbql.Page{Items: 20, PageNum: 3},
		},
	}
	sqlText, _, err := CompileNative(testRegistry(), "sql", testStore(), outer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlText, "LIMIT 20") || !strings.Contains(sqlText, "OFFSET 40") {
		t.Fatalf("unexpected pagination sql: %s", sqlText)
	}
}
