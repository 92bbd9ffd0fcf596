// Package vars registers the lexical-scope opcode family: let, var, set.
// All three take the variable name as a literal string first argument, so
// they are Lazy to avoid evaluating it as a call node.
package vars

import (
	"errors"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("let", "vars", opcode.Lazy, letOp)
	opcode.Register("var", "vars", opcode.Lazy, varOp)
	opcode.Register("set", "vars", opcode.Lazy, setOp)
}

func name(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", errors.New("variable name argument missing")
	}
	n, ok := args[i].(string)
	if !ok {
		return "", errors.New("variable name must be a literal string")
	}

	return n, nil
}

// letOp introduces name in the current scope, shadowing any outer binding.
func letOp(ctx opcode.Context, args []any) (any, error) {
	n, err := name(args, 0)
	if err != nil {
		return nil, err
	}

	var val any
	if len(args) > 1 {
		val, err = ctx.Eval(args[1])
		if err != nil {
			return nil, err
		}
	}

	ctx.LetVar(n, val)

	return val, nil
}

// varOp reads name, returning null if it was never bound.
func varOp(ctx opcode.Context, args []any) (any, error) {
	n, err := name(args, 0)
	if err != nil {
		return nil, err
	}

	v, _ := ctx.GetVar(n)

	return v, nil
}

// setOp mutates an existing binding; a no-op if name was never let.
func setOp(ctx opcode.Context, args []any) (any, error) {
	n, err := name(args, 0)
	if err != nil {
		return nil, err
	}

	var val any
	if len(args) > 1 {
		val, err = ctx.Eval(args[1])
		if err != nil {
			return nil, err
		}
	}

	ctx.SetVar(n, val)

	return val, nil
}
