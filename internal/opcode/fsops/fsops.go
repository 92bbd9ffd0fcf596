// Package fsops registers the filesystem opcode family: fs.read, fs.write,
// fs.list. All are Eager and gated by fs.read/fs.write capabilities
// enforced in internal/interpreter.
package fsops

import (
	"errors"

	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("fs.read", "fs", opcode.Eager, readOp)
	opcode.Register("fs.write", "fs", opcode.Eager, writeOp)
	opcode.Register("fs.list", "fs", opcode.Eager, listOp)
}

func readOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("fs.read: requires a capability and a path")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("fs.read: capability must be a handle")
	}
	path, ok := args[1].(string)
	if !ok {
		return nil, errors.New("fs.read: path must be a string")
	}

	return ctx.FSRead(capID, path)
}

func writeOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("fs.write: requires a capability, a path, and content")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("fs.write: capability must be a handle")
	}
	path, ok := args[1].(string)
	if !ok {
		return nil, errors.New("fs.write: path must be a string")
	}
	content, ok := args[2].(string)
	if !ok {
		return nil, errors.New("fs.write: content must be a string")
	}

	return nil, ctx.FSWrite(capID, path, content)
}

func listOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("fs.list: requires a capability and a path")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("fs.list: capability must be a handle")
	}
	path, ok := args[1].(string)
	if !ok {
		return nil, errors.New("fs.list: path must be a string")
	}

	names, err := ctx.FSList(capID, path)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}

	return out, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// asCapability decodes a capability handle argument: either the entity.Handle
// a mint/delegate/get_capability call returned in-process, or the
// {"brand", "id"} object the same value decodes to once it has crossed a
// JSON boundary (stored verb source, a wire execute call). A bare number is
// not a handle and is rejected here, unlike asInt64.
func asCapability(v any) (int64, bool) {
	switch h := v.(type) {
	case entity.Handle:
		if h.Brand != entity.HandleBrand {
			return 0, false
		}
		return h.ID, true
	case map[string]any:
		if h["brand"] != entity.HandleBrand {
			return 0, false
		}
		return asInt64(h["id"])
	default:
		return 0, false
	}
}
