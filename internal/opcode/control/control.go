// Package control registers the control-flow opcode family: seq, if,
// while, for, try, throw. All handlers here are Lazy — they receive raw
// AST nodes and choose which children to evaluate and in what order.
package control

import (
	"errors"
	"fmt"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("seq", "control", opcode.Lazy, seq)
	opcode.Register("if", "control", opcode.Lazy, ifOp)
	opcode.Register("while", "control", opcode.Lazy, whileOp)
	opcode.Register("for", "control", opcode.Lazy, forOp)
	opcode.Register("try", "control", opcode.Lazy, tryOp)
	opcode.Register("throw", "control", opcode.Lazy, throwOp)
	opcode.Register("lambda", "control", opcode.Lazy, lambdaOp)
}

// thrown wraps a value raised by the throw opcode so try can distinguish
// it from an interpreter-internal error.
type thrown struct{ value any }

func (t thrown) Error() string { return fmt.Sprintf("%v", t.value) }

// seq evaluates every child in order, returning the last value.
func seq(ctx opcode.Context, args []any) (any, error) {
	var result any
	for _, a := range args {
		v, err := ctx.Eval(a)
		if err != nil {
			return nil, err
		}
		result = v
	}

	return result, nil
}

// ifOp requires 2 or 3 children: cond, then[, else].
func ifOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("if: requires condition and then-branch")
	}

	cond, err := ctx.Eval(args[0])
	if err != nil {
		return nil, err
	}

	if truthy(cond) {
		return ctx.Eval(args[1])
	}
	if len(args) >= 3 {
		return ctx.Eval(args[2])
	}

	return nil, nil
}

func whileOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("while: requires condition and body")
	}

	var result any
	for {
		cond, err := ctx.Eval(args[0])
		if err != nil {
			return nil, err
		}
		if !truthy(cond) {
			return result, nil
		}

		result, err = ctx.Eval(args[1])
		if err != nil {
			return nil, err
		}
	}
}

// forOp iterates a list bound by name: for(varName, listExpr, body).
func forOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("for: requires varName, list, body")
	}

	name, ok := args[0].(string)
	if !ok {
		return nil, errors.New("for: varName must be a literal string")
	}

	listVal, err := ctx.Eval(args[1])
	if err != nil {
		return nil, err
	}

	items, ok := listVal.([]any)
	if !ok {
		return nil, fmt.Errorf("for: %v is not a list", listVal)
	}

	var result any
	for _, item := range items {
		ctx.LetVar(name, item)

		result, err = ctx.Eval(args[2])
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// tryOp evaluates body; on error, binds the error message to errVarName
// and evaluates the catch branch instead. try(body, errVarName, catch).
func tryOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 3 {
		return nil, errors.New("try: requires body, errVarName, catch")
	}

	name, ok := args[1].(string)
	if !ok {
		return nil, errors.New("try: errVarName must be a literal string")
	}

	result, err := ctx.Eval(args[0])
	if err == nil {
		return result, nil
	}

	var t thrown
	message := err.Error()
	if errors.As(err, &t) {
		message = fmt.Sprintf("%v", t.value)
	}

	ctx.LetVar(name, message)

	return ctx.Eval(args[2])
}

func throwOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("throw: requires a value")
	}

	v, err := ctx.Eval(args[0])
	if err != nil {
		return nil, err
	}

	return nil, thrown{value: v}
}

// lambdaOp captures a closure over the current scope: lambda([argNames...], body).
func lambdaOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("lambda: requires argument-name list and body")
	}

	rawNames, ok := args[0].([]any)
	if !ok {
		return nil, errors.New("lambda: first argument must be a literal list of names")
	}

	names := make([]string, len(rawNames))
	for i, n := range rawNames {
		s, ok := n.(string)
		if !ok {
			return nil, errors.New("lambda: argument names must be strings")
		}
		names[i] = s
	}

	return ctx.NewLambda(names, args[1]), nil
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
