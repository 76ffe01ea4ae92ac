package mbql

import (
	"encoding/json"
	"fmt"
)

type filterDecodeFunc func(args []json.RawMessage) (Node, error)

var filterDecoders map[string]filterDecodeFunc

func init() {
	filterDecoders = map[string]filterDecodeFunc{
		"=":           decodeCompareFilter("="),
		"!=":          decodeCompareFilter("!="),
		"<":           decodeCompareFilter("<"),
		"<=":          decodeCompareFilter("<="),
		">":           decodeCompareFilter(">"),
		">=":          decodeCompareFilter(">="),
		"between":     decodeBetweenFilter,
		"starts-with": decodeStringFilter("starts-with"),
		"contains":    decodeStringFilter("contains"),
		"ends-with":   decodeStringFilter("ends-with"),
		"is-null":     decodeNullFilter(false),
		"not-null":    decodeNullFilter(true),
		"and":         decodeLogicalFilter(func(args []Node) Node { return AndFilter{Args: args} }),
		"or":          decodeLogicalFilter(func(args []Node) Node { return OrFilter{Args: args} }),
		"not":         decodeNotFilter,
	}
}

// DecodeFilter decodes a filter predicate clause.
func DecodeFilter(raw json.RawMessage) (Node, error) {
	tag, args, ok := tagAndArgs(raw)
	if !ok {
		return nil, fmt.Errorf("expected filter clause, got %s", raw)
	}
	decode, known := filterDecoders[tag]
	if !known {
		return nil, fmt.Errorf("unknown filter clause tag %q", tag)
	}
	return decode(args)
}

func decodeCompareFilter(op string) filterDecodeFunc {
	return func(args []json.RawMessage) (Node, error) {
		field, err := DecodeField(arg(args, 0))
		if err != nil {
			return nil, fmt.Errorf("%s field: %w", op, err)
		}
		val, err := DecodeValue(arg(args, 1))
		if err != nil {
			return nil, fmt.Errorf("%s value: %w", op, err)
		}
		return CompareFilter{Op: op, Field: field, Value: val}, nil
	}
}

func decodeBetweenFilter(args []json.RawMessage) (Node, error) {
	field, err := DecodeField(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("between field: %w", err)
	}
	low, err := DecodeValue(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("between low: %w", err)
	}
	high, err := DecodeValue(arg(args, 2))
	if err != nil {
		return nil, fmt.Errorf("between high: %w", err)
	}
	return BetweenFilter{Field: field, Low: low, High: high}, nil
}

func decodeStringFilter(op string) filterDecodeFunc {
	return func(args []json.RawMessage) (Node, error) {
		field, err := DecodeField(arg(args, 0))
		if err != nil {
			return nil, fmt.Errorf("%s field: %w", op, err)
		}
		val, err := DecodeValue(arg(args, 1))
		if err != nil {
			return nil, fmt.Errorf("%s value: %w", op, err)
		}
		sf := StringFilter{Op: op, Field: field, Value: val, CaseSensitive: true}
		if len(args) > 2 {
			var opts struct {
				CaseSensitive *bool `json:"case-sensitive"`
			}
			if err := json.Unmarshal(args[2], &opts); err == nil && opts.CaseSensitive != nil {
				sf.CaseSensitive = *opts.CaseSensitive
			}
		}
		return sf, nil
	}
}

func decodeNullFilter(not bool) filterDecodeFunc {
	return func(args []json.RawMessage) (Node, error) {
		field, err := DecodeField(arg(args, 0))
		if err != nil {
			return nil, fmt.Errorf("null filter field: %w", err)
		}
		return NullFilter{Field: field, Not: not}, nil
	}
}

func decodeLogicalFilter(build func([]Node) Node) filterDecodeFunc {
	return func(args []json.RawMessage) (Node, error) {
		operands, err := decodeNodeSlice(args, DecodeFilter)
		if err != nil {
			return nil, fmt.Errorf("logical filter: %w", err)
		}
		return build(operands), nil
	}
}

func decodeNotFilter(args []json.RawMessage) (Node, error) {
	inner, err := DecodeFilter(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("not: %w", err)
	}
	return NotFilter{Arg: inner}, nil
}
