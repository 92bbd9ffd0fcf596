// Package verbops registers the verb-invocation opcode family: call, sudo,
// schedule, send. All are Eager.
package verbops

import (
	"errors"

	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("call", "verb", opcode.Eager, callOp)
	opcode.Register("sudo", "verb", opcode.Eager, sudoOp)
	opcode.Register("schedule", "verb", opcode.Eager, scheduleOp)
	opcode.Register("send", "verb", opcode.Eager, sendOp)
}

// call(target, verbName, ...args)
func callOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("call: requires a target and a verb name")
	}

	targetID, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("call: target must be an id")
	}
	verbName, ok := args[1].(string)
	if !ok {
		return nil, errors.New("call: verb name must be a string")
	}

	return ctx.Call(targetID, verbName, args[2:])
}

// sudo(cap, target, verbName, argsList)
func sudoOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 4 {
		return nil, errors.New("sudo: requires a capability, a target, a verb name, and an argument list")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("sudo: capability must be a handle")
	}
	targetID, ok := asInt64(args[1])
	if !ok {
		return nil, errors.New("sudo: target must be an id")
	}
	verbName, ok := args[2].(string)
	if !ok {
		return nil, errors.New("sudo: verb name must be a string")
	}
	argList, ok := args[3].([]any)
	if !ok {
		return nil, errors.New("sudo: args must be a list")
	}

	return ctx.Sudo(capID, targetID, verbName, argList)
}

// schedule(verbName, argsList, delayMs)
func scheduleOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("schedule: requires a verb name, an argument list, and a delay")
	}

	verbName, ok := args[0].(string)
	if !ok {
		return nil, errors.New("schedule: verb name must be a string")
	}
	argList, ok := args[1].([]any)
	if !ok {
		return nil, errors.New("schedule: args must be a list")
	}
	delayMs, ok := asInt64(args[2])
	if !ok {
		return nil, errors.New("schedule: delay must be a number")
	}

	id, err := ctx.Schedule(verbName, argList, delayMs)
	if err != nil {
		return nil, err
	}

	return float64(id), nil
}

// send(notifType, payload)
func sendOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("send: requires a notification type and a payload")
	}

	notifType, ok := args[0].(string)
	if !ok {
		return nil, errors.New("send: notification type must be a string")
	}
	payload, ok := args[1].(map[string]any)
	if !ok {
		return nil, errors.New("send: payload must be an object")
	}

	ctx.Send(notifType, payload)

	return nil, nil
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
