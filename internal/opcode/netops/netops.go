// Package netops registers the net opcode family: net.http.get,
// net.http.post. Both are Eager and gated by net.http.read/net.http.write
// capabilities enforced in internal/interpreter.
package netops

import (
	"errors"

	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("net.http.get", "net", opcode.Eager, getOp)
	opcode.Register("net.http.post", "net", opcode.Eager, postOp)
}

func getOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("net.http.get: requires a capability and a url")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("net.http.get: capability must be a handle")
	}
	url, ok := args[1].(string)
	if !ok {
		return nil, errors.New("net.http.get: url must be a string")
	}

	result, err := ctx.HTTPGet(capID, url)
	if err != nil {
		return nil, err
	}

	return toAny(result), nil
}

func postOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("net.http.post: requires a capability, a url, and a body")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("net.http.post: capability must be a handle")
	}
	url, ok := args[1].(string)
	if !ok {
		return nil, errors.New("net.http.post: url must be a string")
	}

	result, err := ctx.HTTPPost(capID, url, args[2])
	if err != nil {
		return nil, err
	}

	return toAny(result), nil
}

func toAny(m map[string]any) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
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
