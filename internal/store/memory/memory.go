// Package memory implements the store interfaces over plain in-process
// maps, guarded by a single mutex. It backs unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rakunlabs/moo/internal/entity"
)

type verbKey struct {
	entityID int64
	name     string
}

type Memory struct {
	mu sync.Mutex

	nextEntityID int64
	entities     map[int64]entity.Entity

	verbs map[verbKey]entity.Verb

	nextCapabilityID int64
	capabilities     map[int64]entity.Capability

	nextVerbID int64
	nextTaskID int64
	tasks      map[int64]entity.ScheduledTask

	channelMaps    map[string]entity.ChannelMap
	activeSessions map[[2]string]entity.ActiveSession
}

func New() *Memory {
	return &Memory{
		nextEntityID:     1,
		entities:         make(map[int64]entity.Entity),
		verbs:            make(map[verbKey]entity.Verb),
		nextVerbID:       1,
		nextCapabilityID: 1,
		capabilities:     make(map[int64]entity.Capability),
		nextTaskID:       1,
		tasks:            make(map[int64]entity.ScheduledTask),
		channelMaps:      make(map[string]entity.ChannelMap),
		activeSessions:   make(map[[2]string]entity.ActiveSession),
	}
}

func (m *Memory) Close() {}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}

	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}

	return out
}

// ─── Entity CRUD ───

func (m *Memory) CreateEntity(_ context.Context, props map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextEntityID
	m.nextEntityID++

	name, _ := props["name"].(string)

	m.entities[id] = entity.Entity{ID: id, Name: name, Props: cloneProps(props)}

	return id, nil
}

func (m *Memory) GetEntity(_ context.Context, id int64) (*entity.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		return nil, nil
	}

	e.Props = cloneProps(e.Props)

	return &e, nil
}

func (m *Memory) GetEntities(_ context.Context, ids []int64) ([]entity.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []entity.Entity
	for _, id := range ids {
		if e, ok := m.entities[id]; ok {
			e.Props = cloneProps(e.Props)
			result = append(result, e)
		}
	}

	return result, nil
}

func (m *Memory) UpdateEntities(_ context.Context, entities ...entity.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entities {
		if _, ok := m.entities[e.ID]; !ok {
			return fmt.Errorf("entity %d not found", e.ID)
		}

		e.Props = cloneProps(e.Props)
		m.entities[e.ID] = e
	}

	return nil
}

func (m *Memory) DeleteEntity(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entities, id)

	for k := range m.verbs {
		if k.entityID == id {
			delete(m.verbs, k)
		}
	}

	for cid, c := range m.capabilities {
		if c.OwnerID == id {
			delete(m.capabilities, cid)
		}
	}

	return nil
}

func (m *Memory) SetPrototypeID(_ context.Context, id int64, protoID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		return fmt.Errorf("entity %d not found", id)
	}

	e.PrototypeID = protoID
	m.entities[id] = e

	return nil
}

// ─── Verb CRUD ───

func (m *Memory) GetVerbs(_ context.Context, entityID int64) ([]entity.Verb, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []entity.Verb
	for k, v := range m.verbs {
		if k.entityID == entityID {
			result = append(result, v)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

func (m *Memory) GetVerb(_ context.Context, entityID int64, name string) (*entity.Verb, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.verbs[verbKey{entityID, name}]
	if !ok {
		return nil, nil
	}

	return &v, nil
}

func (m *Memory) UpdateVerb(_ context.Context, entityID int64, name string, source any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := verbKey{entityID, name}

	verbID := m.verbs[key].ID
	if verbID == 0 {
		verbID = m.nextVerbID
		m.nextVerbID++
	}

	m.verbs[key] = entity.Verb{ID: verbID, EntityID: entityID, Name: name, Source: source}

	return nil
}

// ─── Capability CRUD ───

func (m *Memory) GetCapabilities(_ context.Context, ownerID int64) ([]entity.Capability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []entity.Capability
	for _, c := range m.capabilities {
		if c.OwnerID == ownerID {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (m *Memory) GetCapability(_ context.Context, id int64) (*entity.Capability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.capabilities[id]
	if !ok {
		return nil, nil
	}

	return &c, nil
}

func (m *Memory) CreateCapability(_ context.Context, ownerID int64, typ string, params map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextCapabilityID
	m.nextCapabilityID++

	m.capabilities[id] = entity.Capability{ID: id, OwnerID: ownerID, Type: typ, Params: cloneProps(params)}

	return id, nil
}

func (m *Memory) UpdateCapabilityOwner(_ context.Context, id int64, newOwnerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.capabilities[id]
	if !ok {
		return fmt.Errorf("capability %d not found", id)
	}

	c.OwnerID = newOwnerID
	m.capabilities[id] = c

	return nil
}

// ─── Scheduled tasks ───

func (m *Memory) ScheduleTask(_ context.Context, entityID int64, verb string, args []any, executeAt int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextTaskID
	m.nextTaskID++

	m.tasks[id] = entity.ScheduledTask{ID: id, EntityID: entityID, Verb: verb, Args: args, ExecuteAt: executeAt}

	return id, nil
}

func (m *Memory) PopDueTasks(_ context.Context, now int64) ([]entity.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []entity.ScheduledTask
	for id, t := range m.tasks {
		if t.ExecuteAt <= now {
			due = append(due, t)
			delete(m.tasks, id)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })

	return due, nil
}

// ─── Bridge binding tables ───

func (m *Memory) GetChannelMap(_ context.Context, channelID string) (*entity.ChannelMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channelMaps[channelID]
	if !ok {
		return nil, nil
	}

	return &c, nil
}

func (m *Memory) SetChannelMap(_ context.Context, channelID string, roomID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.channelMaps[channelID] = entity.ChannelMap{ChannelID: channelID, RoomID: roomID}

	return nil
}

func (m *Memory) GetActiveSession(_ context.Context, discordID, channelID string) (*entity.ActiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activeSessions[[2]string{discordID, channelID}]
	if !ok {
		return nil, nil
	}

	return &a, nil
}

func (m *Memory) SetActiveSession(_ context.Context, discordID, channelID string, entityID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activeSessions[[2]string{discordID, channelID}] = entity.ActiveSession{
		DiscordID: discordID,
		ChannelID: channelID,
		EntityID:  entityID,
	}

	return nil
}
