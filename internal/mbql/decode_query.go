package mbql

import (
	"encoding/json"
	"fmt"
)

// ParseOuterQuery decodes the top-level {"database": N, "query": {...}}
// envelope. This is the entry point HTTP handlers and tests use to turn a
// JSON request body into a Node tree.
func ParseOuterQuery(raw json.RawMessage) (*OuterQuery, error) {
	var wire struct {
		Database int             `json:"database"`
		Query    json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode outer query: %w", err)
	}
	inner, err := ParseInner(wire.Query)
	if err != nil {
		return nil, fmt.Errorf("decode outer query: %w", err)
	}
	return &OuterQuery{Database: wire.Database, Query: inner}, nil
}

// ParseInner decodes one level of an MBQL query, either a source-table
// query or a query nesting another Inner via source-query.
func ParseInner(raw json.RawMessage) (*Inner, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode inner query: %w", err)
	}

	inner := &Inner{
		Expressions:  map[string]Node{},
		Unrecognized: map[string]Node{},
	}

	for key, val := range fields {
		var err error
		switch key {
		case "source-table":
			var id int
			if err = json.Unmarshal(val, &id); err == nil {
				inner.SourceTable = &id
			}
		case "source-query":
			inner.SourceQuery, err = ParseInner(val)
		case "breakout":
			inner.Breakout, err = decodeClauseArray(val, DecodeField)
		case "aggregation":
			inner.Aggregation, err = decodeClauseArray(val, DecodeAggregation)
		case "fields":
			inner.Fields, err = decodeClauseArray(val, DecodeField)
		case "filter":
			inner.Filter, err = decodeFilterMaybe(val)
		case "join-tables":
			inner.JoinTables, err = decodeJoinTables(val)
		case "order-by":
			inner.OrderBy, err = decodeOrderBy(val)
		case "limit":
			var n int
			if err = json.Unmarshal(val, &n); err == nil {
				inner.Limit = &n
			}
		case "page":
			var p Page
			var wire struct {
				Items   int `json:"items"`
				PageNum int `json:"page"`
			}
			if err = json.Unmarshal(val, &wire); err == nil {
				p = Page{Items: wire.Items, PageNum: wire.PageNum}
				inner.Page = &p
			}
		case "expressions":
			inner.Expressions, err = decodeExpressionsMap(val)
		default:
			inner.Unrecognized[key], err = decodeAny(val)
		}
		if err != nil {
			return nil, fmt.Errorf("decode inner query %q: %w", key, err)
		}
	}

	return inner, nil
}

func decodeClauseArray(raw json.RawMessage, decode func(json.RawMessage) (Node, error)) ([]Node, error) {
	arr, err := unmarshalArray(raw)
	if err != nil {
		return nil, err
	}
	return decodeNodeSlice(arr, decode)
}

func decodeFilterMaybe(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return DecodeFilter(raw)
}

func decodeExpressionsMap(raw json.RawMessage) (map[string]Node, error) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("expressions: %w", err)
	}
	out := make(map[string]Node, len(wire))
	for name, val := range wire {
		n, err := decodeAny(val)
		if err != nil {
			return nil, fmt.Errorf("expression %q: %w", name, err)
		}
		out[name] = n
	}
	return out, nil
}

func decodeJoinTables(raw json.RawMessage) ([]JoinInfo, error) {
	arr, err := unmarshalArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]JoinInfo, 0, len(arr))
	for i, r := range arr {
		var wire struct {
			Alias       string          `json:"alias"`
			SourceField json.RawMessage `json:"source-field"`
			DestTableID *int            `json:"dest-table-id"`
			SourceQuery json.RawMessage `json:"source-query"`
		}
		if err := json.Unmarshal(r, &wire); err != nil {
			return nil, fmt.Errorf("join-tables[%d]: %w", i, err)
		}
		srcFK, err := DecodeField(wire.SourceField)
		if err != nil {
			return nil, fmt.Errorf("join-tables[%d] source-field: %w", i, err)
		}
		join := JoinInfo{Alias: wire.Alias, SourceFK: srcFK}
		if wire.DestTableID != nil {
			join.DestTableID = *wire.DestTableID
		}
		if len(wire.SourceQuery) > 0 && string(wire.SourceQuery) != "null" {
			join.SourceQuery, err = ParseInner(wire.SourceQuery)
			if err != nil {
				return nil, fmt.Errorf("join-tables[%d] source-query: %w", i, err)
			}
		}
		out = append(out, join)
	}
	return out, nil
}

func decodeOrderBy(raw json.RawMessage) ([]OrderByClause, error) {
	arr, err := unmarshalArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]OrderByClause, 0, len(arr))
	for i, r := range arr {
		pair, err := unmarshalArray(r)
		if err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("order-by[%d]: expected [direction, field]", i)
		}
		dir, err := decodeString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("order-by[%d] direction: %w", i, err)
		}
		field, err := decodeOrderByField(pair[1])
		if err != nil {
			return nil, fmt.Errorf("order-by[%d] field: %w", i, err)
		}
		out = append(out, OrderByClause{Direction: dir, Field: field})
	}
	return out, nil
}

// decodeOrderByField accepts either a field clause or an aggregation(index)
// reference, the two legal targets for an order-by clause.
func decodeOrderByField(raw json.RawMessage) (Node, error) {
	if tag, _, ok := tagAndArgs(raw); ok && tag == "aggregation" {
		return DecodeAggregation(raw)
	}
	return DecodeField(raw)
}
