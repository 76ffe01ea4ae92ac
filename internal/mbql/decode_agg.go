package mbql

import (
	"encoding/json"
	"fmt"
)

type aggDecodeFunc func(args []json.RawMessage) (Node, error)

var aggDecoders map[string]aggDecodeFunc

func init() {
	aggDecoders = map[string]aggDecodeFunc{
		"count":       decodeSimpleAgg("count"),
		"avg":         decodeSimpleAgg("avg"),
		"sum":         decodeSimpleAgg("sum"),
		"min":         decodeSimpleAgg("min"),
		"max":         decodeSimpleAgg("max"),
		"stddev":      decodeSimpleAgg("stddev"),
		"distinct":    decodeSimpleAgg("distinct"),
		"+":           decodeArithAgg("+"),
		"-":           decodeArithAgg("-"),
		"*":           decodeArithAgg("*"),
		"/":           decodeArithAgg("/"),
		"sum-where":   decodeSumWhereAgg,
		"count-where": decodeCountWhereAgg,
		"share":       decodeShareAgg,
		"named":       decodeNamedAgg,
		"aggregation": decodeAggregationRef,
	}
}

// DecodeAggregation decodes an aggregation clause. An arithmetic
// aggregation's operands may themselves be aggregations, field clauses
// (for e.g. (* (sum x) [field-id 9])), or bare numeric literals, so
// unknown/non-aggregation tags fall back to DecodeField and then to a
// literal.
func DecodeAggregation(raw json.RawMessage) (Node, error) {
	tag, args, ok := tagAndArgs(raw)
	if !ok {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected aggregation clause or literal, got %s: %w", raw, err)
		}
		return Literal{Value: v}, nil
	}
	if decode, known := aggDecoders[tag]; known {
		return decode(args)
	}
	if _, known := fieldDecoders[tag]; known {
		return DecodeField(raw)
	}
	return nil, fmt.Errorf("unknown aggregation clause tag %q", tag)
}

func decodeSimpleAgg(op string) aggDecodeFunc {
	return func(args []json.RawMessage) (Node, error) {
		if len(args) == 0 {
			return SimpleAgg{Op: op}, nil
		}
		field, err := DecodeField(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s field: %w", op, err)
		}
		return SimpleAgg{Op: op, Field: field}, nil
	}
}

func decodeArithAgg(op string) aggDecodeFunc {
	return func(args []json.RawMessage) (Node, error) {
		operands, err := decodeNodeSlice(args, DecodeAggregation)
		if err != nil {
			return nil, fmt.Errorf("arithmetic %s: %w", op, err)
		}
		return ArithAgg{Op: op, Args: operands}, nil
	}
}

func decodeSumWhereAgg(args []json.RawMessage) (Node, error) {
	a, err := DecodeAggregation(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("sum-where arg: %w", err)
	}
	pred, err := DecodeFilter(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("sum-where pred: %w", err)
	}
	return SumWhereAgg{Arg: a, Pred: pred}, nil
}

func decodeCountWhereAgg(args []json.RawMessage) (Node, error) {
	pred, err := DecodeFilter(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("count-where pred: %w", err)
	}
	return CountWhereAgg{Pred: pred}, nil
}

func decodeShareAgg(args []json.RawMessage) (Node, error) {
	pred, err := DecodeFilter(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("share pred: %w", err)
	}
	return ShareAgg{Pred: pred}, nil
}

func decodeNamedAgg(args []json.RawMessage) (Node, error) {
	inner, err := DecodeAggregation(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("named inner: %w", err)
	}
	alias, err := decodeString(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("named alias: %w", err)
	}
	return NamedAgg{Inner: inner, Alias: alias}, nil
}

func decodeAggregationRef(args []json.RawMessage) (Node, error) {
	idx, err := decodeInt(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("aggregation index: %w", err)
	}
	return AggregationRef{Index: idx}, nil
}
