// Package dataops registers the data-shape opcode family: json.stringify,
// json.parse (returns null on failure, never an error), typeof.
package dataops

import (
	"encoding/json"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("json.stringify", "data", opcode.Eager, stringify)
	opcode.Register("json.parse", "data", opcode.Eager, parse)
	opcode.Register("typeof", "data", opcode.Eager, typeOf)
}

func stringify(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, nil
	}

	data, err := json.Marshal(args[0])
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

func parse(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, nil
	}

	text, ok := args[0].(string)
	if !ok {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, nil
	}

	return out, nil
}

func typeOf(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return "null", nil
	}

	switch args[0].(type) {
	case nil:
		return "null", nil
	case bool:
		return "boolean", nil
	case float64, int, int64:
		return "number", nil
	case string:
		return "string", nil
	case []any:
		return "list", nil
	case map[string]any:
		return "object", nil
	default:
		return "unknown", nil
	}
}
