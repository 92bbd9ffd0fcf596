// Package compare registers the n-ary pairwise comparison opcode family:
// ==, !=, <, >, <=, >=. All are Eager.
package compare

import (
	"errors"
	"fmt"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("==", "compare", opcode.Eager, chain(equal))
	opcode.Register("!=", "compare", opcode.Eager, chain(func(a, b any) (bool, error) {
		eq, err := equal(a, b)
		return !eq, err
	}))
	opcode.Register("<", "compare", opcode.Eager, chain(lt))
	opcode.Register(">", "compare", opcode.Eager, chain(func(a, b any) (bool, error) { return lt(b, a) }))
	opcode.Register("<=", "compare", opcode.Eager, chain(func(a, b any) (bool, error) {
		gt, err := lt(b, a)
		return !gt, err
	}))
	opcode.Register(">=", "compare", opcode.Eager, chain(func(a, b any) (bool, error) {
		l, err := lt(a, b)
		return !l, err
	}))
}

type pairFn func(a, b any) (bool, error)

// chain returns a handler testing fn across every adjacent pair in args,
// all of which must hold for the result to be true.
func chain(fn pairFn) opcode.Handler {
	return func(_ opcode.Context, args []any) (any, error) {
		if len(args) < 2 {
			return nil, errors.New("comparison requires at least 2 arguments")
		}

		for i := 0; i < len(args)-1; i++ {
			ok, err := fn(args[i], args[i+1])
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
		}

		return true, nil
	}
}

func equal(a, b any) (bool, error) {
	an, aIsNum := asFloat(a)
	bn, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		return an == bn, nil
	}

	return a == b, nil
}

func lt(a, b any) (bool, error) {
	an, aOk := asFloat(a)
	bn, bOk := asFloat(b)
	if aOk && bOk {
		return an < bn, nil
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as < bs, nil
	}

	return false, fmt.Errorf("cannot compare %T and %T", a, b)
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
