// Package entity defines the persistent record types of the world: entities,
// verbs, capabilities, scheduled tasks, and the bridge-facing channel/session
// binding rows.
package entity


// Entity is the unit of addressable state: a room, an actor, an item, an
// exit, or a plugin. Props carry no nominal type; the interpreter
// type-checks at use sites.
type Entity struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	PrototypeID *int64         `json:"prototype_id"`
	OwnerID     *int64         `json:"owner_id"`
	Props       map[string]any `json:"props"`
}

// Verb is a named program attached to an entity, stored as an AST (a nested
// JSON array whose first element is an opcode name).
type Verb struct {
	ID          int64          `json:"id"`
	EntityID    int64          `json:"entity_id"`
	Name        string         `json:"name"`
	Source      any            `json:"source"`
	Permissions map[string]any `json:"permissions,omitempty"`
}

// Capability is an unforgeable value whose possession authorises a specific
// gated operation. Capabilities are referenced by id inside the interpreter;
// they are values, not pointers.
type Capability struct {
	ID      int64          `json:"id"`
	OwnerID int64          `json:"owner_id"`
	Type    string         `json:"type"`
	Params  map[string]any `json:"params"`
}

// ScheduledTask is a deferred verb invocation inserted by the `schedule`
// opcode. It is removed once its due time passes and it has been dispatched,
// regardless of verb success; there are no retries. ExecuteAt is a Unix
// second timestamp, comparable directly against the scheduler tick's clock.
type ScheduledTask struct {
	ID        int64  `json:"id"`
	EntityID  int64  `json:"entity_id"`
	Verb      string `json:"verb"`
	Args      []any  `json:"args"`
	ExecuteAt int64  `json:"execute_at"`
}

// ChannelMap binds a Discord channel to a room entity. Exposed by the core
// only as opaque bytes; interpreted by the bridge.
type ChannelMap struct {
	ChannelID string `json:"channel_id"`
	RoomID    int64  `json:"room_id"`
}

// ActiveSession binds a Discord user, within a channel, to a player entity.
type ActiveSession struct {
	DiscordID string `json:"discord_id"`
	ChannelID string `json:"channel_id"`
	EntityID  int64  `json:"entity_id"`
}

// Handle is the opaque `{brand, id}` capability handle referenced by
// interpreter values, per spec §9. The brand lets the interpreter
// type-check at the opcode boundary without trusting the handle's contents.
type Handle struct {
	Brand string `json:"brand"`
	ID    int64  `json:"id"`
}

const HandleBrand = "moo.capability"

// NewHandle wraps a capability id as an opaque handle.
func NewHandle(id int64) Handle {
	return Handle{Brand: HandleBrand, ID: id}
}
