// Package entityops registers the entity opcode family: create, destroy,
// entity, set_entity, get_prototype, set_prototype, verbs, get_verb,
// resolve_props. All are Eager.
package entityops

import (
	"context"
	"errors"
	"strings"

	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("create", "entity", opcode.Eager, createOp)
	opcode.Register("destroy", "entity", opcode.Eager, destroyOp)
	opcode.Register("entity", "entity", opcode.Eager, entityOp)
	opcode.Register("set_entity", "entity", opcode.Eager, setEntityOp)
	opcode.Register("get_prototype", "entity", opcode.Eager, getPrototypeOp)
	opcode.Register("set_prototype", "entity", opcode.Eager, setPrototypeOp)
	opcode.Register("verbs", "entity", opcode.Eager, verbsOp)
	opcode.Register("get_verb", "entity", opcode.Eager, getVerbOp)
	opcode.Register("resolve_props", "entity", opcode.Eager, resolvePropsOp)
}

// create(cap, data) — requires a sys.create capability owned by this().
func createOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("create: requires a capability and a props object")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("create: capability must be a handle")
	}
	props, ok := args[1].(map[string]any)
	if !ok {
		return nil, errors.New("create: data must be an object")
	}

	if _, err := ctx.Capability().Check(context.Background(), capID, ctx.ThisID(), capability.TypeSysCreate, nil); err != nil {
		return nil, err
	}

	id, err := ctx.Repo().CreateEntity(context.Background(), props)
	if err != nil {
		return nil, err
	}

	if _, err := ctx.Repo().CreateCapability(context.Background(), ctx.ThisID(), capability.TypeEntityControl, map[string]any{"target_id": float64(id)}); err != nil {
		return nil, err
	}

	return float64(id), nil
}

// destroy(cap, target) — requires an entity.control capability matching target.
func destroyOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("destroy: requires a capability and a target id")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("destroy: capability must be a handle")
	}
	targetID, ok := asInt64(args[1])
	if !ok {
		return nil, errors.New("destroy: target must be an id")
	}

	if _, err := ctx.Capability().Check(context.Background(), capID, ctx.ThisID(), capability.TypeEntityControl, capability.MatchEntityControl(targetID)); err != nil {
		return nil, err
	}

	return nil, ctx.Repo().DeleteEntity(context.Background(), targetID)
}

func entityOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("entity: requires an id")
	}

	id, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("entity: id must be a number")
	}

	e, err := ctx.Repo().GetEntity(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	out := map[string]any{"id": float64(e.ID), "name": e.Name, "props": e.Props}
	if e.PrototypeID != nil {
		out["prototype_id"] = float64(*e.PrototypeID)
	}
	if e.OwnerID != nil {
		out["owner_id"] = float64(*e.OwnerID)
	}

	return out, nil
}

// set_entity(cap, id, props) — requires an entity.control capability matching id.
func setEntityOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("set_entity: requires a capability, an id, and a props object")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("set_entity: capability must be a handle")
	}
	id, ok := asInt64(args[1])
	if !ok {
		return nil, errors.New("set_entity: id must be a number")
	}
	props, ok := args[2].(map[string]any)
	if !ok {
		return nil, errors.New("set_entity: props must be an object")
	}

	if _, err := ctx.Capability().Check(context.Background(), capID, ctx.ThisID(), capability.TypeEntityControl, capability.MatchEntityControl(id)); err != nil {
		return nil, err
	}

	e, err := ctx.Repo().GetEntity(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("set_entity: entity not found")
	}

	e.Props = props

	return nil, ctx.Repo().UpdateEntities(context.Background(), *e)
}

func getPrototypeOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("get_prototype: requires an id")
	}

	id, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("get_prototype: id must be a number")
	}

	protoID, err := ctx.Repo().GetPrototypeID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if protoID == nil {
		return nil, nil
	}

	return float64(*protoID), nil
}

// set_prototype(cap, e, protoId) — requires an entity.control capability matching e.
func setPrototypeOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, errors.New("set_prototype: requires a capability, an id, and a prototype id")
	}

	capID, ok := asCapability(args[0])
	if !ok {
		return nil, errors.New("set_prototype: capability must be a handle")
	}
	id, ok := asInt64(args[1])
	if !ok {
		return nil, errors.New("set_prototype: id must be a number")
	}

	if _, err := ctx.Capability().Check(context.Background(), capID, ctx.ThisID(), capability.TypeEntityControl, capability.MatchEntityControl(id)); err != nil {
		return nil, err
	}

	var protoID *int64
	if args[2] != nil {
		p, ok := asInt64(args[2])
		if !ok {
			return nil, errors.New("set_prototype: prototype id must be a number or null")
		}
		protoID = &p
	}

	return nil, ctx.Repo().SetPrototypeID(context.Background(), id, protoID)
}

func verbsOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("verbs: requires an id")
	}

	id, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("verbs: id must be a number")
	}

	list, err := ctx.Repo().GetVerbs(context.Background(), id)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v.Name
	}

	return out, nil
}

func getVerbOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("get_verb: requires an id and a name")
	}

	id, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("get_verb: id must be a number")
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, errors.New("get_verb: name must be a string")
	}

	v, err := ctx.Repo().GetVerb(context.Background(), id, name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	return v.Source, nil
}

// resolve_props(e) overlays e's stored props with the return value of every
// get_<name> verb it defines, invoked with caller=this=e. A get_* verb that
// errors contributes a warning instead of failing the whole resolution.
func resolvePropsOp(ctx opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("resolve_props: requires an id")
	}

	id, ok := asInt64(args[0])
	if !ok {
		return nil, errors.New("resolve_props: id must be a number")
	}

	e, err := ctx.Repo().GetEntity(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	out := make(map[string]any, len(e.Props))
	for k, v := range e.Props {
		out[k] = v
	}

	verbList, err := ctx.Repo().GetVerbs(context.Background(), id)
	if err != nil {
		return nil, err
	}

	for _, v := range verbList {
		if !strings.HasPrefix(v.Name, "get_") {
			continue
		}

		propName := strings.TrimPrefix(v.Name, "get_")

		val, err := ctx.InvokeVerb(id, id, v.Name, nil)
		if err != nil {
			ctx.Warn("resolve_props: " + v.Name + ": " + err.Error())
			continue
		}

		out[propName] = val
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
