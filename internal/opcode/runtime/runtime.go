// Package runtime registers the context-introspection opcode family:
// caller, this, arg, args, warn, log. All are Eager.
package runtime

import (
	"errors"
	"fmt"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("caller", "runtime", opcode.Eager, callerOp)
	opcode.Register("this", "runtime", opcode.Eager, thisOp)
	opcode.Register("arg", "runtime", opcode.Eager, argOp)
	opcode.Register("args", "runtime", opcode.Eager, argsOp)
	opcode.Register("warn", "runtime", opcode.Eager, warnOp)
	opcode.Register("log", "runtime", opcode.Eager, logOp)
}

func callerOp(ctx opcode.Context, _ []any) (any, error) {
	return float64(ctx.CallerID()), nil
}

func thisOp(ctx opcode.Context, _ []any) (any, error) {
	return float64(ctx.ThisID()), nil
}

func argOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("arg: requires an index")
	}

	idx, ok := asInt(args[0])
	if !ok {
		return nil, errors.New("arg: index must be a number")
	}

	v, _ := ctx.Arg(idx)

	return v, nil
}

func argsOp(ctx opcode.Context, _ []any) (any, error) {
	return append([]any{}, ctx.Args()...), nil
}

func warnOp(ctx opcode.Context, args []any) (any, error) {
	for _, a := range args {
		ctx.Warn(toString(a))
	}

	return nil, nil
}

func logOp(ctx opcode.Context, args []any) (any, error) {
	for _, a := range args {
		ctx.Log(toString(a))
	}

	return nil, nil
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

func toString(v any) string {
	s, ok := v.(string)
	if ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
