package mbql

import (
	"encoding/json"
	"fmt"
)

type valueDecodeFunc func(args []json.RawMessage) (Node, error)

var valueDecoders = map[string]valueDecodeFunc{
	"value":             decodeValueClause,
	"absolute-datetime": decodeAbsoluteDatetime,
	"relative-datetime": decodeRelativeDatetime,
	"time":              decodeTimeValue,
}

// DecodeValue decodes a value clause. Bare JSON scalars (not wrapped in a
// tagged array) are also accepted and decode directly to a Literal, since
// nested value clauses (e.g. between's low/high) sometimes omit the
// value(...) wrapper.
func DecodeValue(raw json.RawMessage) (Node, error) {
	tag, args, ok := tagAndArgs(raw)
	if !ok {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("expected value clause or literal, got %s: %w", raw, err)
		}
		return Literal{Value: v}, nil
	}
	decode, known := valueDecoders[tag]
	if !known {
		return nil, fmt.Errorf("unknown value clause tag %q", tag)
	}
	return decode(args)
}

func decodeValueClause(args []json.RawMessage) (Node, error) {
	var lit any
	if err := json.Unmarshal(arg(args, 0), &lit); err != nil {
		return nil, fmt.Errorf("value literal: %w", err)
	}
	v := Value{Val: Literal{Value: lit}}
	if len(args) > 1 {
		var typeInfo struct {
			BaseType string `json:"base_type"`
		}
		if err := json.Unmarshal(args[1], &typeInfo); err == nil {
			v.BaseType = typeInfo.BaseType
		}
	}
	return v, nil
}

func decodeAbsoluteDatetime(args []json.RawMessage) (Node, error) {
	ts, err := decodeString(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("absolute-datetime timestamp: %w", err)
	}
	unit, err := decodeString(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("absolute-datetime unit: %w", err)
	}
	return AbsoluteDatetime{Timestamp: ts, Unit: unit}, nil
}

// decodeRelativeDatetime supports all three documented arities:
// (0, unit), (amount, unit), and (field, amount, unit).
func decodeRelativeDatetime(args []json.RawMessage) (Node, error) {
	if len(args) == 3 {
		field, err := DecodeField(args[0])
		if err != nil {
			return nil, fmt.Errorf("relative-datetime field: %w", err)
		}
		amount, err := decodeInt(args[1])
		if err != nil {
			return nil, fmt.Errorf("relative-datetime amount: %w", err)
		}
		unit, err := decodeString(args[2])
		if err != nil {
			return nil, fmt.Errorf("relative-datetime unit: %w", err)
		}
		return RelativeDatetime{Amount: amount, Unit: unit, Field: field}, nil
	}
	amount, err := decodeInt(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("relative-datetime amount: %w", err)
	}
	unit, err := decodeString(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("relative-datetime unit: %w", err)
	}
	return RelativeDatetime{Amount: amount, Unit: unit}, nil
}

func decodeTimeValue(args []json.RawMessage) (Node, error) {
	v, err := decodeString(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("time value: %w", err)
	}
	unit, err := decodeString(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("time unit: %w", err)
	}
	return TimeValue{Value: v, Unit: unit}, nil
}
