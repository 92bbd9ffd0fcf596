// Package store defines the persistence interfaces over entities, verbs,
// capabilities, scheduled tasks, and the bridge binding tables.
package store

import (
	"context"
	"errors"

	"github.com/rakunlabs/moo/internal/config"
	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/store/memory"
	"github.com/rakunlabs/moo/internal/store/postgres"
	"github.com/rakunlabs/moo/internal/store/sqlite3"
)

// EntityStorer is the repository's view over entity rows.
type EntityStorer interface {
	CreateEntity(ctx context.Context, props map[string]any) (int64, error)
	GetEntity(ctx context.Context, id int64) (*entity.Entity, error)
	GetEntities(ctx context.Context, ids []int64) ([]entity.Entity, error)
	UpdateEntities(ctx context.Context, entities ...entity.Entity) error
	DeleteEntity(ctx context.Context, id int64) error
	SetPrototypeID(ctx context.Context, id int64, protoID *int64) error
}

// VerbStorer is the repository's view over verb rows.
type VerbStorer interface {
	GetVerbs(ctx context.Context, entityID int64) ([]entity.Verb, error)
	GetVerb(ctx context.Context, entityID int64, name string) (*entity.Verb, error)
	UpdateVerb(ctx context.Context, entityID int64, name string, source any) error
}

// CapabilityStorer is the repository's view over capability rows.
type CapabilityStorer interface {
	GetCapabilities(ctx context.Context, ownerID int64) ([]entity.Capability, error)
	GetCapability(ctx context.Context, id int64) (*entity.Capability, error)
	CreateCapability(ctx context.Context, ownerID int64, typ string, params map[string]any) (int64, error)
	UpdateCapabilityOwner(ctx context.Context, id int64, newOwnerID int64) error
}

// SchedulerStorer is the scheduler's view over scheduled task rows.
type SchedulerStorer interface {
	ScheduleTask(ctx context.Context, entityID int64, verb string, args []any, executeAt int64) (int64, error)
	// PopDueTasks atomically reads and deletes every row whose execute_at
	// has passed, per spec §4.6 step 1.
	PopDueTasks(ctx context.Context, now int64) ([]entity.ScheduledTask, error)
}

// BridgeStorer is the bridge's view over the channel/session binding tables,
// exposed by the core only as opaque rows.
type BridgeStorer interface {
	GetChannelMap(ctx context.Context, channelID string) (*entity.ChannelMap, error)
	SetChannelMap(ctx context.Context, channelID string, roomID int64) error
	GetActiveSession(ctx context.Context, discordID, channelID string) (*entity.ActiveSession, error)
	SetActiveSession(ctx context.Context, discordID, channelID string, entityID int64) error
}

// Storer is the full repository surface, implemented by each backend.
type Storer interface {
	EntityStorer
	VerbStorer
	CapabilityStorer
	SchedulerStorer
	BridgeStorer
	Close()
}

// New opens the store backend named by cfg: sqlite or postgres. When
// neither is configured it returns an error; NewMemory serves tests.
func New(ctx context.Context, cfg config.Store, encKey []byte) (Storer, error) {
	switch {
	case cfg.SQLite != nil:
		return sqlite3.New(ctx, cfg.SQLite, encKey)
	case cfg.Postgres != nil:
		return postgres.New(ctx, cfg.Postgres, encKey)
	default:
		return nil, errors.New("no store configured")
	}
}

// NewMemory returns an in-memory Storer for tests.
func NewMemory() Storer {
	return memory.New()
}
