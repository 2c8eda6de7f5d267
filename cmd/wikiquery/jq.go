package main

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// jqFilter is a compiled jq program applied to command output.
type jqFilter struct {
	expr string
	code *gojq.Code
}

func compileJQ(expr string) (*jqFilter, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &jqFilter{expr: expr, code: code}, nil
}

// apply runs the program against v. v is round-tripped through JSON first
// because gojq only understands the generic map/slice/float64 shapes.
func (f *jqFilter) apply(v any) ([]any, error) {
	var input any
	switch raw := v.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(raw, &input); err != nil {
			return nil, fmt.Errorf("invalid JSON data: %w", err)
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, err
		}
	}

	var out []any
	iter := f.code.Run(input)
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return out, fmt.Errorf("jq %q: %w", f.expr, err)
		}
		out = append(out, val)
	}
	return out, nil
}
