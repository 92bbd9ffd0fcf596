// Package strops registers the string opcode family: str.join, str.lower,
// str.upper, str.includes, str.concat. All are Eager.
package strops

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("str.join", "string", opcode.Eager, joinOp)
	opcode.Register("str.lower", "string", opcode.Eager, lowerOp)
	opcode.Register("str.upper", "string", opcode.Eager, upperOp)
	opcode.Register("str.includes", "string", opcode.Eager, includesOp)
	opcode.Register("str.concat", "string", opcode.Eager, concatOp)
}

// joinOp joins a list of values with a separator: str.join(list, sep).
func joinOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("str.join: requires a list and a separator")
	}

	items, ok := args[0].([]any)
	if !ok {
		return nil, errors.New("str.join: first argument must be a list")
	}
	sep, _ := args[1].(string)

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = toString(item)
	}

	return strings.Join(parts, sep), nil
}

func lowerOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("str.lower: requires one string")
	}

	return strings.ToLower(toString(args[0])), nil
}

func upperOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("str.upper: requires one string")
	}

	return strings.ToUpper(toString(args[0])), nil
}

func includesOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("str.includes: requires a haystack and a needle")
	}

	return strings.Contains(toString(args[0]), toString(args[1])), nil
}

func concatOp(_ opcode.Context, args []any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(toString(a))
	}

	return b.String(), nil
}

func toString(v any) string {
	s, ok := v.(string)
	if ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
