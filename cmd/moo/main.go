package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/moo/internal/bridge/discord"
	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/config"
	"github.com/rakunlabs/moo/internal/crypto"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/scheduler"
	"github.com/rakunlabs/moo/internal/server"
	"github.com/rakunlabs/moo/internal/session"
	"github.com/rakunlabs/moo/internal/store"

	_ "github.com/rakunlabs/moo/internal/opcode/capops"
	_ "github.com/rakunlabs/moo/internal/opcode/compare"
	_ "github.com/rakunlabs/moo/internal/opcode/control"
	_ "github.com/rakunlabs/moo/internal/opcode/dataops"
	_ "github.com/rakunlabs/moo/internal/opcode/entityops"
	_ "github.com/rakunlabs/moo/internal/opcode/fsops"
	_ "github.com/rakunlabs/moo/internal/opcode/list"
	_ "github.com/rakunlabs/moo/internal/opcode/logicops"
	_ "github.com/rakunlabs/moo/internal/opcode/mathops"
	_ "github.com/rakunlabs/moo/internal/opcode/netops"
	_ "github.com/rakunlabs/moo/internal/opcode/object"
	_ "github.com/rakunlabs/moo/internal/opcode/runtime"
	_ "github.com/rakunlabs/moo/internal/opcode/strops"
	_ "github.com/rakunlabs/moo/internal/opcode/timeops"
	_ "github.com/rakunlabs/moo/internal/opcode/vars"
	_ "github.com/rakunlabs/moo/internal/opcode/verbops"
	_ "github.com/rakunlabs/moo/internal/plugin"
)

var (
	name    = "moo"
	version = "v0.0.0"
)

func main() {
	config.Service = name + "/" + version

	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

// ///////////////////////////////////////////////////////////////////

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var encKey []byte
	if cfg.Store.EncryptionKey != "" {
		encKey, err = crypto.DeriveKey(cfg.Store.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to derive encryption key: %w", err)
		}
	}

	backend, err := store.New(ctx, cfg.Store, encKey)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer backend.Close()

	repo := repository.New(backend)
	kernel := capability.New(repo)
	d := dispatcher.New(repo, kernel, cfg.FSRoot, nil, cfg.GasLimit, cfg.WellKnown.BotID)

	hub := session.New(repo, d, session.WellKnown{
		EntityBaseID: cfg.WellKnown.EntityBaseID,
		LobbyID:      cfg.WellKnown.LobbyID,
	})

	sched := scheduler.New(repo, d, cfg.SchedulerTick, hub.Broadcast)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if cfg.Discord.BotToken != "" {
		bridge, err := discord.New(cfg.Discord.BotToken, repo, d, cfg.WellKnown)
		if err != nil {
			return fmt.Errorf("failed to create discord bridge: %w", err)
		}
		if err := bridge.Open(); err != nil {
			return fmt.Errorf("failed to open discord bridge: %w", err)
		}
		defer bridge.Close()

		slog.Info("discord bridge connected")
	}

	slog.Info("starting world server", "host", cfg.Host, "port", cfg.Port)

	srv := server.New(hub)

	return srv.Start(ctx, cfg.Host, cfg.Port)
}
