package repository

import (
	"context"
	"testing"

	"github.com/rakunlabs/moo/internal/store"
)

func newTestRepo() *Repository {
	return New(store.NewMemory())
}

func TestResolveVerb_WalksPrototypeChain(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	protoID, err := repo.CreateEntity(ctx, map[string]any{"name": "Player"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := repo.UpdateVerb(ctx, protoID, "greet", []any{"send", "message", "hi"}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	childID, err := repo.CreateEntity(ctx, map[string]any{"name": "Child"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := repo.SetPrototypeID(ctx, childID, &protoID); err != nil {
		t.Fatalf("SetPrototypeID: %v", err)
	}

	ownerID, verb, err := repo.ResolveVerb(ctx, childID, "greet")
	if err != nil {
		t.Fatalf("ResolveVerb: %v", err)
	}
	if verb == nil {
		t.Fatal("expected to resolve greet via prototype chain")
	}
	if ownerID != protoID {
		t.Fatalf("expected owner %d, got %d", protoID, ownerID)
	}
}

func TestResolveVerb_MissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	id, err := repo.CreateEntity(ctx, map[string]any{"name": "Lonely"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	_, verb, err := repo.ResolveVerb(ctx, id, "nonexistent")
	if err != nil {
		t.Fatalf("ResolveVerb: %v", err)
	}
	if verb != nil {
		t.Fatal("expected nil verb for unresolved name")
	}
}

func TestSetPrototypeID_RefusesCycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	a, err := repo.CreateEntity(ctx, map[string]any{"name": "A"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	b, err := repo.CreateEntity(ctx, map[string]any{"name": "B"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := repo.SetPrototypeID(ctx, b, &a); err != nil {
		t.Fatalf("SetPrototypeID: %v", err)
	}

	if err := repo.SetPrototypeID(ctx, a, &b); err == nil {
		t.Fatal("expected cycle to be refused")
	}
}

func TestSetPrototypeID_RefusesSelfReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	a, err := repo.CreateEntity(ctx, map[string]any{"name": "A"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := repo.SetPrototypeID(ctx, a, &a); err == nil {
		t.Fatal("expected self-reference to be refused")
	}
}

func TestResolveProperty_MostDerivedWins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	protoID, err := repo.CreateEntity(ctx, map[string]any{"name": "Base", "color": "red", "size": "large"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	childID, err := repo.CreateEntity(ctx, map[string]any{"name": "Derived", "color": "blue"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := repo.SetPrototypeID(ctx, childID, &protoID); err != nil {
		t.Fatalf("SetPrototypeID: %v", err)
	}

	color, _, found, err := repo.ResolveProperty(ctx, childID, "color")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if !found || color != "blue" {
		t.Fatalf("expected most-derived color %q, got %q (found=%v)", "blue", color, found)
	}

	size, owner, found, err := repo.ResolveProperty(ctx, childID, "size")
	if err != nil {
		t.Fatalf("ResolveProperty: %v", err)
	}
	if !found || size != "large" || owner != protoID {
		t.Fatalf("expected inherited size %q from %d, got %q from %d (found=%v)", "large", protoID, size, owner, found)
	}
}

func TestDeleteEntity_CascadesVerbsAndCapabilities(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo()

	id, err := repo.CreateEntity(ctx, map[string]any{"name": "Temp"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	if err := repo.UpdateVerb(ctx, id, "noop", []any{"send"}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	if _, err := repo.CreateCapability(ctx, id, "sys.mint", map[string]any{"namespace": "*"}); err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if err := repo.DeleteEntity(ctx, id); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}

	verbs, err := repo.GetVerbs(ctx, id)
	if err != nil {
		t.Fatalf("GetVerbs: %v", err)
	}
	if len(verbs) != 0 {
		t.Fatalf("expected no verbs after delete, got %d", len(verbs))
	}

	caps, err := repo.GetCapabilities(ctx, id)
	if err != nil {
		t.Fatalf("GetCapabilities: %v", err)
	}
	if len(caps) != 0 {
		t.Fatalf("expected no capabilities after delete, got %d", len(caps))
	}
}
