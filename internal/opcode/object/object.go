// Package object registers the object opcode family: obj.new, obj.get,
// obj.set, obj.has, obj.del, obj.keys. All are Eager. Objects are plain
// map[string]any values, copied on every mutating operation so aliasing
// one verb's object into another's scope is safe.
package object

import (
	"errors"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("obj.new", "object", opcode.Eager, newObj)
	opcode.Register("obj.get", "object", opcode.Eager, getOp)
	opcode.Register("obj.set", "object", opcode.Eager, setOp)
	opcode.Register("obj.has", "object", opcode.Eager, hasOp)
	opcode.Register("obj.del", "object", opcode.Eager, delOp)
	opcode.Register("obj.keys", "object", opcode.Eager, keysOp)
}

func asObj(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("expected an object")
	}

	return m, nil
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// newObj accepts an even number of key/value arguments.
func newObj(_ opcode.Context, args []any) (any, error) {
	out := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return nil, errors.New("obj.new: keys must be strings")
		}
		out[key] = args[i+1]
	}

	return out, nil
}

func getOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("obj.get: requires an object and a key")
	}

	m, err := asObj(args[0])
	if err != nil {
		return nil, err
	}
	key, _ := args[1].(string)

	return m[key], nil
}

func setOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("obj.set: requires an object, a key, and a value")
	}

	m, err := asObj(args[0])
	if err != nil {
		return nil, err
	}
	key, ok := args[1].(string)
	if !ok {
		return nil, errors.New("obj.set: key must be a string")
	}

	out := clone(m)
	out[key] = args[2]

	return out, nil
}

func hasOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("obj.has: requires an object and a key")
	}

	m, err := asObj(args[0])
	if err != nil {
		return nil, err
	}
	key, _ := args[1].(string)
	_, ok := m[key]

	return ok, nil
}

func delOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("obj.del: requires an object and a key")
	}

	m, err := asObj(args[0])
	if err != nil {
		return nil, err
	}
	key, _ := args[1].(string)

	out := clone(m)
	delete(out, key)

	return out, nil
}

func keysOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("obj.keys: requires an object")
	}

	m, err := asObj(args[0])
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	return out, nil
}
