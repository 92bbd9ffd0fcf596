// Package list registers the list opcode family: list.new, list.push,
// list.map, list.filter, list.find, list.len, list.empty, list.get,
// list.slice, list.concat. All are Eager; map/filter/find apply a lambda
// value produced by the lambda opcode via ctx.Apply.
package list

import (
	"errors"
	"fmt"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("list.new", "list", opcode.Eager, newList)
	opcode.Register("list.push", "list", opcode.Eager, push)
	opcode.Register("list.map", "list", opcode.Eager, mapOp)
	opcode.Register("list.filter", "list", opcode.Eager, filterOp)
	opcode.Register("list.find", "list", opcode.Eager, findOp)
	opcode.Register("list.len", "list", opcode.Eager, lenOp)
	opcode.Register("list.empty", "list", opcode.Eager, emptyOp)
	opcode.Register("list.get", "list", opcode.Eager, getOp)
	opcode.Register("list.slice", "list", opcode.Eager, sliceOp)
	opcode.Register("list.concat", "list", opcode.Eager, concatOp)
}

func asList(v any) ([]any, error) {
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	return l, nil
}

func newList(_ opcode.Context, args []any) (any, error) {
	out := make([]any, len(args))
	copy(out, args)

	return out, nil
}

func push(_ opcode.Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("list.push: requires a list")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	out := append(append([]any{}, l...), args[1:]...)

	return out, nil
}

func mapOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("list.map: requires a list and a lambda")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	out := make([]any, len(l))
	for i, item := range l {
		v, err := ctx.Apply(args[1], []any{item, float64(i)})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func filterOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("list.filter: requires a list and a lambda")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(l))
	for i, item := range l {
		v, err := ctx.Apply(args[1], []any{item, float64(i)})
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			out = append(out, item)
		}
	}

	return out, nil
}

func findOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("list.find: requires a list and a lambda")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	for i, item := range l {
		v, err := ctx.Apply(args[1], []any{item, float64(i)})
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			return item, nil
		}
	}

	return nil, nil
}

func lenOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("list.len: requires a list")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	return float64(len(l)), nil
}

func emptyOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("list.empty: requires a list")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	return len(l) == 0, nil
}

func getOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("list.get: requires a list and an index")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	idx, ok := asInt(args[1])
	if !ok || idx < 0 || idx >= len(l) {
		return nil, nil
	}

	return l[idx], nil
}

func sliceOp(_ opcode.Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("list.slice: requires a list and a start index")
	}

	l, err := asList(args[0])
	if err != nil {
		return nil, err
	}

	start, _ := asInt(args[1])
	end := len(l)
	if len(args) >= 3 {
		end, _ = asInt(args[2])
	}

	if start < 0 {
		start = 0
	}
	if end > len(l) {
		end = len(l)
	}
	if start >= end {
		return []any{}, nil
	}

	out := make([]any, end-start)
	copy(out, l[start:end])

	return out, nil
}

func concatOp(_ opcode.Context, args []any) (any, error) {
	out := []any{}
	for _, a := range args {
		l, err := asList(a)
		if err != nil {
			return nil, err
		}
		out = append(out, l...)
	}

	return out, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
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
