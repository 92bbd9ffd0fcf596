// Package capops registers the capability-kernel opcode family:
// get_capability, mint, delegate, give_capability, has_capability. All are
// Eager.
package capops

import (
	"context"
	"errors"

	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("get_capability", "capability", opcode.Eager, getCapabilityOp)
	opcode.Register("mint", "capability", opcode.Eager, mintOp)
	opcode.Register("delegate", "capability", opcode.Eager, delegateOp)
	opcode.Register("give_capability", "capability", opcode.Eager, giveCapabilityOp)
	opcode.Register("has_capability", "capability", opcode.Eager, hasCapabilityOp)
}

// get_capability(type, filter?) — returns a handle to the first capability
// owned by this() of the given type whose params are a superset of filter.
func getCapabilityOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("get_capability: requires a type")
	}

	typ, ok := args[0].(string)
	if !ok {
		return nil, errors.New("get_capability: type must be a string")
	}

	var filter map[string]any
	if len(args) >= 2 {
		filter, _ = args[1].(map[string]any)
	}

	caps, err := ctx.Repo().GetCapabilities(context.Background(), ctx.ThisID())
	if err != nil {
		return nil, err
	}

	for _, c := range caps {
		if c.Type != typ {
			continue
		}
		if matchesFilter(c.Params, filter) {
			return entity.NewHandle(c.ID), nil
		}
	}

	return nil, nil
}

func mintOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("mint: requires an authority, a type, and a params object")
	}

	authorityID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("mint: authority must be a handle")
	}
	typ, ok := args[1].(string)
	if !ok {
		return nil, errors.New("mint: type must be a string")
	}
	params, _ := args[2].(map[string]any)

	id, err := ctx.Capability().Mint(context.Background(), ctx.ThisID(), authorityID, typ, params)
	if err != nil {
		return nil, err
	}

	return entity.NewHandle(id), nil
}

func delegateOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("delegate: requires a parent capability and a restrictions object")
	}

	parentID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("delegate: parent must be a handle")
	}
	restrictions, _ := args[1].(map[string]any)

	id, err := ctx.Capability().Delegate(context.Background(), ctx.ThisID(), parentID, restrictions)
	if err != nil {
		return nil, err
	}

	return entity.NewHandle(id), nil
}

func giveCapabilityOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("give_capability: requires a capability and a target")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("give_capability: capability must be a handle")
	}
	targetID, ok := asInt64(args[1])
	if !ok {
		return nil, errors.New("give_capability: target must be an id")
	}

	return nil, ctx.Capability().Give(context.Background(), capID, targetID)
}

// has_capability(target, type, filter?)
func hasCapabilityOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("has_capability: requires a target and a type")
	}

	targetID, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("has_capability: target must be an id")
	}
	typ, ok := args[1].(string)
	if !ok {
		return nil, errors.New("has_capability: type must be a string")
	}

	var filter map[string]any
	if len(args) >= 3 {
		filter, _ = args[2].(map[string]any)
	}

	caps, err := ctx.Repo().GetCapabilities(context.Background(), targetID)
	if err != nil {
		return nil, err
	}

	for _, c := range caps {
		if c.Type == typ && matchesFilter(c.Params, filter) {
			return true, nil
		}
	}

	return false, nil
}

func matchesFilter(params, filter map[string]any) bool {
	for k, v := range filter {
		if params[k] != v {
			return false
		}
	}

	return true
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
