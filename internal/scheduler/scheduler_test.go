package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/scheduler"
	"github.com/rakunlabs/moo/internal/store"

	_ "github.com/rakunlabs/moo/internal/opcode/mathops"
	_ "github.com/rakunlabs/moo/internal/opcode/verbops"
)

func TestScheduler_DispatchDueRunsAndDeletesTask(t *testing.T) {
	ctx := context.Background()
	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	entityID, err := repo.CreateEntity(ctx, map[string]any{"name": "Timer"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := repo.UpdateVerb(ctx, entityID, "tick", []any{"send", "tick", map[string]any{}}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	if _, err := repo.ScheduleTask(ctx, entityID, "tick", nil, time.Now().Add(-time.Second).Unix()); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}

	d := dispatcher.New(repo, kernel, t.TempDir(), nil, 1000, 0)

	var got int
	s := scheduler.New(repo, d, 50*time.Millisecond, func(entityID int64, method string, params map[string]any) {
		got++
	})

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for got == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if got == 0 {
		t.Fatal("expected the due task to be dispatched")
	}

	remaining, err := repo.PopDueTasks(ctx, time.Now().Unix())
	if err != nil {
		t.Fatalf("PopDueTasks: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected task to be removed after dispatch, got %d remaining", len(remaining))
	}
}
