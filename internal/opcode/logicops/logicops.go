// Package logicops registers the boolean opcode family: and, or (both
// short-circuit, hence Lazy), not (Eager).
package logicops

import (
	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("and", "logic", opcode.Lazy, andOp)
	opcode.Register("or", "logic", opcode.Lazy, orOp)
	opcode.Register("not", "logic", opcode.Eager, notOp)
}

func andOp(ctx opcode.Context, args []any) (any, error) {
	var result any = true
	for _, a := range args {
		v, err := ctx.Eval(a)
		if err != nil {
			return nil, err
		}
		result = v
		if !truthy(v) {
			return v, nil
		}
	}

	return result, nil
}

func orOp(ctx opcode.Context, args []any) (any, error) {
	var result any
	for _, a := range args {
		v, err := ctx.Eval(a)
		if err != nil {
			return nil, err
		}
		result = v
		if truthy(v) {
			return v, nil
		}
	}

	return result, nil
}

func notOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, nil
	}

	return !truthy(args[0]), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
