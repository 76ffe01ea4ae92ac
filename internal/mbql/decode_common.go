package mbql

import (
	"encoding/json"
	"fmt"
)

// tagAndArgs splits a tagged clause ["tag", arg1, arg2, ...] into its tag
// and remaining elements. ok is false when raw is not a tagged array at
// all (a bare literal, for instance), which callers use to fall back to a
// different decoder rather than treating it as an error.
func tagAndArgs(raw json.RawMessage) (tag string, args []json.RawMessage, ok bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 {
		return "", nil, false
	}
	if err := json.Unmarshal(arr[0], &tag); err != nil {
		return "", nil, false
	}
	return tag, arr[1:], true
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string, got %s: %w", raw, err)
	}
	return s, nil
}

func decodeInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("expected integer, got %s: %w", raw, err)
	}
	return n, nil
}

func decodeFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("expected number, got %s: %w", raw, err)
	}
	return f, nil
}

func arg(args []json.RawMessage, i int) json.RawMessage {
	if i < 0 || i >= len(args) {
		return json.RawMessage("null")
	}
	return args[i]
}

// decodeAny is the fallback used for expressions map entries and
// unrecognized top-level clauses, whose shape isn't known ahead of
// decoding: try each clause family in turn, then fall back to a bare
// literal.
func decodeAny(raw json.RawMessage) (Node, error) {
	if tag, _, ok := tagAndArgs(raw); ok {
		if _, known := fieldDecoders[tag]; known {
			return DecodeField(raw)
		}
		if _, known := aggDecoders[tag]; known {
			return DecodeAggregation(raw)
		}
		if _, known := filterDecoders[tag]; known {
			return DecodeFilter(raw)
		}
		if _, known := valueDecoders[tag]; known {
			return DecodeValue(raw)
		}
		return nil, fmt.Errorf("unrecognized clause tag %q", tag)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode literal: %w", err)
	}
	return Literal{Value: v}, nil
}

func decodeNodeSlice(raws []json.RawMessage, decode func(json.RawMessage) (Node, error)) ([]Node, error) {
	out := make([]Node, 0, len(raws))
	for i, r := range raws {
		n, err := decode(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func unmarshalArray(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("expected array, got %s: %w", raw, err)
	}
	return arr, nil
}
