// Package mathops registers the n-ary arithmetic opcode family: +, -, *,
// /, %, ^ (right-associative power tower), random. All are Eager.
package mathops

import (
	"errors"
	"fmt"
	"math"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("+", "math", opcode.Eager, reduce(func(a, b float64) float64 { return a + b }, 0))
	opcode.Register("-", "math", opcode.Eager, subtract)
	opcode.Register("*", "math", opcode.Eager, reduce(func(a, b float64) float64 { return a * b }, 1))
	opcode.Register("/", "math", opcode.Eager, divide)
	opcode.Register("%", "math", opcode.Eager, modulo)
	opcode.Register("^", "math", opcode.Eager, power)
	opcode.Register("random", "math", opcode.Eager, random)
}

func nums(args []any) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		n, ok := asFloat(a)
		if !ok {
			return nil, fmt.Errorf("math: argument %d (%v) is not a number", i, a)
		}
		out[i] = n
	}

	return out, nil
}

func reduce(op func(a, b float64) float64, identity float64) opcode.Handler {
	return func(_ opcode.Context, args []any) (any, error) {
		vals, err := nums(args)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return identity, nil
		}

		result := vals[0]
		for _, v := range vals[1:] {
			result = op(result, v)
		}

		return result, nil
	}
}

func subtract(_ opcode.Context, args []any) (any, error) {
	vals, err := nums(args)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, errors.New("-: requires at least 1 argument")
	}
	if len(vals) == 1 {
		return -vals[0], nil
	}

	result := vals[0]
	for _, v := range vals[1:] {
		result -= v
	}

	return result, nil
}

func divide(_ opcode.Context, args []any) (any, error) {
	vals, err := nums(args)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, errors.New("/: requires at least 2 arguments")
	}

	result := vals[0]
	for _, v := range vals[1:] {
		if v == 0 {
			return nil, errors.New("/: division by zero")
		}
		result /= v
	}

	return result, nil
}

func modulo(_ opcode.Context, args []any) (any, error) {
	vals, err := nums(args)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, errors.New("%: requires at least 2 arguments")
	}

	result := vals[0]
	for _, v := range vals[1:] {
		if v == 0 {
			return nil, errors.New("%: division by zero")
		}
		result = math.Mod(result, v)
	}

	return result, nil
}

// power is right-associative: a^b^c = a^(b^c).
func power(_ opcode.Context, args []any) (any, error) {
	vals, err := nums(args)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, errors.New("^: requires at least 2 arguments")
	}

	result := vals[len(vals)-1]
	for i := len(vals) - 2; i >= 0; i-- {
		result = math.Pow(vals[i], result)
	}

	return result, nil
}

// random(min?, max?): no args → [0,1); one arg → [0,max); two args → [min,max).
func random(ctx opcode.Context, args []any) (any, error) {
	vals, err := nums(args)
	if err != nil {
		return nil, err
	}

	switch len(vals) {
	case 0:
		return ctx.Rand().Float64(), nil
	case 1:
		return ctx.Rand().Float64() * vals[0], nil
	default:
		lo, hi := vals[0], vals[1]
		return lo + ctx.Rand().Float64()*(hi-lo), nil
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
