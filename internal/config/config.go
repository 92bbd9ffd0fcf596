package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
	"github.com/rakunlabs/tell"
)

var Service = "moo"

// Config is the root configuration for the world server.
type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// Host is the WebSocket listen address; empty binds every interface.
	Host string `cfg:"host"`

	// Port is the WebSocket listen port.
	Port string `cfg:"port" default:"8080"`

	// GasLimit is the initial gas budget for a root verb invocation.
	GasLimit int64 `cfg:"gas_limit" default:"10000"`

	// FSRoot bounds every fs.read/fs.write opcode to this directory.
	FSRoot string `cfg:"fs_root" default:"./data"`

	// SchedulerTick is the poll interval for deferred task dispatch.
	SchedulerTick time.Duration `cfg:"scheduler_tick" default:"250ms"`

	// WellKnown holds the well-known entity ids named in the persistence
	// schema: the system entity, the Discord bot binding, the base prototype
	// for freshly-created entities, and the guest lobby.
	WellKnown WellKnown `cfg:"well_known"`

	Store     Store       `cfg:"store"`
	Discord   Discord     `cfg:"discord"`
	Telemetry tell.Config `cfg:"telemetry,noprefix"`
}

type WellKnown struct {
	SystemID     int64 `cfg:"system_id" default:"1"`
	BotID        int64 `cfg:"bot_id" default:"4"`
	EntityBaseID int64 `cfg:"entity_base_id" default:"2"`
	LobbyID      int64 `cfg:"lobby_id" default:"3"`
}

type Store struct {
	Postgres *StorePostgres `cfg:"postgres"`
	SQLite   *StoreSQLite   `cfg:"sqlite"`

	// EncryptionKey, if set, enables AES-256-GCM encryption for capability
	// params at rest. Any non-empty string is accepted; its SHA-256 digest
	// is used as the 32-byte key.
	EncryptionKey string `cfg:"encryption_key" log:"-"`
}

type StorePostgres struct {
	TablePrefix     *string        `cfg:"table_prefix"`
	Datasource      string         `cfg:"datasource" log:"-"`
	Schema          string         `cfg:"schema"`
	ConnMaxLifetime *time.Duration `cfg:"conn_max_lifetime"`
	MaxIdleConns    *int           `cfg:"max_idle_conns"`
	MaxOpenConns    *int           `cfg:"max_open_conns"`

	Migrate Migrate `cfg:"migrate"`
}

type StoreSQLite struct {
	TablePrefix *string `cfg:"table_prefix"`
	Datasource  string  `cfg:"datasource" default:"file:moo.db"`

	Migrate Migrate `cfg:"migrate"`
}

type Migrate struct {
	Datasource string            `cfg:"datasource" log:"-"`
	Schema     string            `cfg:"schema"`
	Table      string            `cfg:"table"`
	Values     map[string]string `cfg:"values"`
}

// Discord configures the reference bridge exercising the channel_maps /
// active_sessions contract fixed in §6. The bridge itself is out of core
// scope; this only wires enough to prove the contract works.
type Discord struct {
	BotToken string `cfg:"bot_token" log:"-"`
}

func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("MOO_")))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
