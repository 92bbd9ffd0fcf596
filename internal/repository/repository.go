// Package repository provides typed CRUD over the persistence layer and
// prototype-chain resolution: verb lookup and property inheritance walk
// the chain formed by each entity's prototype_id.
package repository

import (
	"context"
	"fmt"

	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/store"
)

// MaxPrototypeHops bounds the prototype chain walk. A chain that has not
// terminated within this many hops is treated as a cycle.
const MaxPrototypeHops = 64

type Repository struct {
	store store.Storer
}

func New(s store.Storer) *Repository {
	return &Repository{store: s}
}

func (r *Repository) CreateEntity(ctx context.Context, props map[string]any) (int64, error) {
	return r.store.CreateEntity(ctx, props)
}

func (r *Repository) GetEntity(ctx context.Context, id int64) (*entity.Entity, error) {
	return r.store.GetEntity(ctx, id)
}

func (r *Repository) GetEntities(ctx context.Context, ids []int64) ([]entity.Entity, error) {
	return r.store.GetEntities(ctx, ids)
}

func (r *Repository) UpdateEntities(ctx context.Context, entities ...entity.Entity) error {
	return r.store.UpdateEntities(ctx, entities...)
}

func (r *Repository) DeleteEntity(ctx context.Context, id int64) error {
	return r.store.DeleteEntity(ctx, id)
}

func (r *Repository) GetPrototypeID(ctx context.Context, id int64) (*int64, error) {
	e, err := r.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("entity %d not found", id)
	}

	return e.PrototypeID, nil
}

// SetPrototypeID assigns a new prototype, refusing the change if it would
// introduce a cycle: walking from protoID must not reach id.
func (r *Repository) SetPrototypeID(ctx context.Context, id int64, protoID *int64) error {
	if protoID != nil {
		reached, err := r.walkReaches(ctx, *protoID, id)
		if err != nil {
			return err
		}
		if reached {
			return fmt.Errorf("setting prototype of entity %d to %d would introduce a cycle", id, *protoID)
		}
	}

	return r.store.SetPrototypeID(ctx, id, protoID)
}

// walkReaches reports whether walking the prototype chain starting at
// start ever visits target, within MaxPrototypeHops.
func (r *Repository) walkReaches(ctx context.Context, start, target int64) (bool, error) {
	current := start

	for hop := 0; hop < MaxPrototypeHops; hop++ {
		if current == target {
			return true, nil
		}

		e, err := r.store.GetEntity(ctx, current)
		if err != nil {
			return false, err
		}
		if e == nil || e.PrototypeID == nil {
			return false, nil
		}

		current = *e.PrototypeID
	}

	return false, fmt.Errorf("prototype chain from entity %d exceeds %d hops", start, MaxPrototypeHops)
}

func (r *Repository) GetVerbs(ctx context.Context, entityID int64) ([]entity.Verb, error) {
	return r.store.GetVerbs(ctx, entityID)
}

func (r *Repository) GetVerb(ctx context.Context, entityID int64, name string) (*entity.Verb, error) {
	return r.store.GetVerb(ctx, entityID, name)
}

func (r *Repository) UpdateVerb(ctx context.Context, entityID int64, name string, source any) error {
	return r.store.UpdateVerb(ctx, entityID, name, source)
}

// ResolveVerb walks entity → prototype → prototype… and returns the first
// entity (and its verb row) that defines name. A chain that doesn't
// terminate within MaxPrototypeHops is a fatal error, per spec.
func (r *Repository) ResolveVerb(ctx context.Context, startID int64, name string) (int64, *entity.Verb, error) {
	current := startID

	for hop := 0; hop < MaxPrototypeHops; hop++ {
		e, err := r.store.GetEntity(ctx, current)
		if err != nil {
			return 0, nil, err
		}
		if e == nil {
			return 0, nil, nil
		}

		v, err := r.store.GetVerb(ctx, current, name)
		if err != nil {
			return 0, nil, err
		}
		if v != nil {
			return current, v, nil
		}

		if e.PrototypeID == nil {
			return 0, nil, nil
		}

		current = *e.PrototypeID
	}

	return 0, nil, fmt.Errorf("verb resolution for %q from entity %d exceeds %d hops", name, startID, MaxPrototypeHops)
}

// ResolveProperty walks entity → prototype → prototype… and returns the
// value from the first entity whose own props contain key. Only the
// most-derived value is returned; values are never merged across levels.
func (r *Repository) ResolveProperty(ctx context.Context, startID int64, key string) (any, int64, bool, error) {
	current := startID

	for hop := 0; hop < MaxPrototypeHops; hop++ {
		e, err := r.store.GetEntity(ctx, current)
		if err != nil {
			return nil, 0, false, err
		}
		if e == nil {
			return nil, 0, false, nil
		}

		if v, ok := e.Props[key]; ok {
			return v, current, true, nil
		}

		if e.PrototypeID == nil {
			return nil, 0, false, nil
		}

		current = *e.PrototypeID
	}

	return nil, 0, false, fmt.Errorf("property resolution for %q from entity %d exceeds %d hops", key, startID, MaxPrototypeHops)
}

func (r *Repository) GetCapabilities(ctx context.Context, ownerID int64) ([]entity.Capability, error) {
	return r.store.GetCapabilities(ctx, ownerID)
}

func (r *Repository) GetCapability(ctx context.Context, id int64) (*entity.Capability, error) {
	return r.store.GetCapability(ctx, id)
}

func (r *Repository) CreateCapability(ctx context.Context, ownerID int64, typ string, params map[string]any) (int64, error) {
	return r.store.CreateCapability(ctx, ownerID, typ, params)
}

func (r *Repository) UpdateCapabilityOwner(ctx context.Context, id int64, newOwnerID int64) error {
	return r.store.UpdateCapabilityOwner(ctx, id, newOwnerID)
}

func (r *Repository) ScheduleTask(ctx context.Context, entityID int64, verb string, args []any, executeAt int64) (int64, error) {
	return r.store.ScheduleTask(ctx, entityID, verb, args, executeAt)
}

func (r *Repository) PopDueTasks(ctx context.Context, now int64) ([]entity.ScheduledTask, error) {
	return r.store.PopDueTasks(ctx, now)
}

// GetChannelMap, SetChannelMap, GetActiveSession, and SetActiveSession pass
// the bridge binding tables straight through to the store. The core treats
// their contents as opaque; only a bridge interprets them.
func (r *Repository) GetChannelMap(ctx context.Context, channelID string) (*entity.ChannelMap, error) {
	return r.store.GetChannelMap(ctx, channelID)
}

func (r *Repository) SetChannelMap(ctx context.Context, channelID string, roomID int64) error {
	return r.store.SetChannelMap(ctx, channelID, roomID)
}

func (r *Repository) GetActiveSession(ctx context.Context, discordID, channelID string) (*entity.ActiveSession, error) {
	return r.store.GetActiveSession(ctx, discordID, channelID)
}

func (r *Repository) SetActiveSession(ctx context.Context, discordID, channelID string, entityID int64) error {
	return r.store.SetActiveSession(ctx, discordID, channelID, entityID)
}
