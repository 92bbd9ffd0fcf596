package discord

import (
	"context"
	"testing"

	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/config"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/store"
)

func newTestBridge(t *testing.T) (*Bridge, *repository.Repository, int64) {
	t.Helper()

	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	baseID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "EntityBase"})
	if err != nil {
		t.Fatalf("CreateEntity base: %v", err)
	}

	d := dispatcher.New(repo, kernel, t.TempDir(), nil, 1000, 0)
	b := &Bridge{repo: repo, dispatcher: d, wellKnown: config.WellKnown{EntityBaseID: baseID}}

	return b, repo, baseID
}

func TestResolveOrProvisionPlayer_CreatesGuestOnFirstMessage(t *testing.T) {
	b, repo, baseID := newTestBridge(t)

	roomID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Room"})
	if err != nil {
		t.Fatalf("CreateEntity room: %v", err)
	}

	entityID, err := b.resolveOrProvisionPlayer(context.Background(), "disc-1", "chan-1", roomID)
	if err != nil {
		t.Fatalf("resolveOrProvisionPlayer: %v", err)
	}

	got, err := repo.GetEntity(context.Background(), entityID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.PrototypeID == nil || *got.PrototypeID != baseID {
		t.Fatalf("expected prototype %d, got %v", baseID, got.PrototypeID)
	}
	if got.Props["location"] != roomID {
		t.Fatalf("expected location %d, got %v", roomID, got.Props["location"])
	}
}

func TestResolveOrProvisionPlayer_ReusesBoundEntity(t *testing.T) {
	b, repo, _ := newTestBridge(t)

	roomID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Room"})
	if err != nil {
		t.Fatalf("CreateEntity room: %v", err)
	}

	first, err := b.resolveOrProvisionPlayer(context.Background(), "disc-1", "chan-1", roomID)
	if err != nil {
		t.Fatalf("resolveOrProvisionPlayer first: %v", err)
	}

	second, err := b.resolveOrProvisionPlayer(context.Background(), "disc-1", "chan-1", roomID)
	if err != nil {
		t.Fatalf("resolveOrProvisionPlayer second: %v", err)
	}

	if first != second {
		t.Fatalf("expected same entity across messages, got %d and %d", first, second)
	}
}

func TestExtractText_Say(t *testing.T) {
	text, ok := extractText("say", map[string]any{"text": "hello"})
	if !ok || text != "hello" {
		t.Fatalf("expected hello, got %q ok=%v", text, ok)
	}
}

func TestExtractText_Forward(t *testing.T) {
	params := map[string]any{
		"target": 5.0,
		"type":   "say",
		"payload": map[string]any{
			"text": "forwarded",
		},
	}

	text, ok := extractText("forward", params)
	if !ok || text != "forwarded" {
		t.Fatalf("expected forwarded, got %q ok=%v", text, ok)
	}
}

func TestExtractText_IgnoresOtherMethods(t *testing.T) {
	if _, ok := extractText("room_id", map[string]any{"roomId": 3.0}); ok {
		t.Fatal("expected room_id notifications to be ignored")
	}
}
