package mbql

import (
	"encoding/json"
	"fmt"
)

type fieldDecodeFunc func(args []json.RawMessage) (Node, error)

// fieldDecoders maps a field-clause tag to its decoder. Generalizes the
// function-name-to-handler dispatch table pattern to clause tags instead
// of call names.
var fieldDecoders map[string]fieldDecodeFunc

func init() {
	fieldDecoders = map[string]fieldDecodeFunc{
		"field-id":         decodeFieldID,
		"field-literal":    decodeFieldLiteral,
		"fk->":             decodeFKArrow,
		"datetime-field":   decodeDatetimeField,
		"binning-strategy": decodeBinningStrategy,
		"expression":       decodeExpressionRef,
	}
}

// DecodeField decodes a single field clause.
func DecodeField(raw json.RawMessage) (Node, error) {
	tag, args, ok := tagAndArgs(raw)
	if !ok {
		return nil, fmt.Errorf("expected field clause, got %s", raw)
	}
	decode, known := fieldDecoders[tag]
	if !known {
		return nil, fmt.Errorf("unknown field clause tag %q", tag)
	}
	return decode(args)
}

func decodeFieldID(args []json.RawMessage) (Node, error) {
	id, err := decodeInt(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("field-id: %w", err)
	}
	return FieldID{ID: id}, nil
}

func decodeFieldLiteral(args []json.RawMessage) (Node, error) {
	name, err := decodeString(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("field-literal name: %w", err)
	}
	typ, err := decodeString(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("field-literal type: %w", err)
	}
	return FieldLiteral{Name: name, Type: typ}, nil
}

func decodeFKArrow(args []json.RawMessage) (Node, error) {
	srcFK, err := DecodeField(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("fk-> source: %w", err)
	}
	dest, err := DecodeField(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("fk-> dest: %w", err)
	}
	return FKArrow{SourceFK: srcFK, DestField: dest}, nil
}

func decodeDatetimeField(args []json.RawMessage) (Node, error) {
	inner, err := DecodeField(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("datetime-field inner: %w", err)
	}
	unit, err := decodeString(arg(args, len(args)-1))
	if err != nil {
		return nil, fmt.Errorf("datetime-field unit: %w", err)
	}
	return DatetimeField{Inner: inner, Unit: unit}, nil
}

func decodeBinningStrategy(args []json.RawMessage) (Node, error) {
	inner, err := DecodeField(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("binning-strategy inner: %w", err)
	}
	kind, err := decodeString(arg(args, 1))
	if err != nil {
		return nil, fmt.Errorf("binning-strategy kind: %w", err)
	}
	b := BinningStrategy{Inner: inner, Kind: kind}
	switch kind {
	case "num-bins":
		n, err := decodeInt(arg(args, 2))
		if err != nil {
			return nil, fmt.Errorf("binning-strategy num-bins: %w", err)
		}
		b.NumBins = n
	case "bin-width":
		w, err := decodeFloat(arg(args, 2))
		if err != nil {
			return nil, fmt.Errorf("binning-strategy bin-width: %w", err)
		}
		b.BinWidth = w
	}
	if len(args) > 3 {
		var opts struct {
			MinValue *float64 `json:"min-value"`
			MaxValue *float64 `json:"max-value"`
		}
		if err := json.Unmarshal(args[3], &opts); err == nil {
			if opts.MinValue != nil {
				b.MinValue = *opts.MinValue
			}
			if opts.MaxValue != nil {
				b.MaxValue = *opts.MaxValue
			}
		}
	}
	return b, nil
}

func decodeExpressionRef(args []json.RawMessage) (Node, error) {
	name, err := decodeString(arg(args, 0))
	if err != nil {
		return nil, fmt.Errorf("expression: %w", err)
	}
	return ExpressionRef{Name: name}, nil
}
