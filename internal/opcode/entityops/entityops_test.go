package entityops_test

import (
	"context"
	"testing"

	"github.com/rakunlabs/moo/internal/apperr"
	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/store"

	_ "github.com/rakunlabs/moo/internal/opcode/capops"
	_ "github.com/rakunlabs/moo/internal/opcode/entityops"
	_ "github.com/rakunlabs/moo/internal/opcode/mathops"
	_ "github.com/rakunlabs/moo/internal/opcode/vars"
)

func handleLiteral(id int64) map[string]any {
	return map[string]any{"brand": entity.HandleBrand, "id": float64(id)}
}

func newTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, *repository.Repository, *capability.Kernel, int64) {
	t.Helper()

	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	entityID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Actor"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	return dispatcher.New(repo, kernel, t.TempDir(), nil, 10000, 0), repo, kernel, entityID
}

func TestCreate_GrantsCreatorEntityControl(t *testing.T) {
	d, repo, _, actorID := newTestDispatcher(t)
	ctx := context.Background()

	createCapID, err := repo.CreateCapability(ctx, actorID, capability.TypeSysCreate, nil)
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if err := repo.UpdateVerb(ctx, actorID, "make", []any{"create", handleLiteral(createCapID), map[string]any{"name": "Thing"}}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	result, err := d.Execute(ctx, actorID, "make", nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	newID, ok := result.Value.(float64)
	if !ok {
		t.Fatalf("expected create to return the new entity id, got %v", result.Value)
	}

	caps, err := repo.GetCapabilities(ctx, actorID)
	if err != nil {
		t.Fatalf("GetCapabilities: %v", err)
	}

	var controlCapID int64
	found := false
	for _, c := range caps {
		if c.Type == capability.TypeEntityControl && c.Params["target_id"] == newID {
			controlCapID = c.ID
			found = true
		}
	}
	if !found {
		t.Fatalf("expected creator to hold entity.control{target_id: %v}, got %v", newID, caps)
	}

	// The granted capability must actually authorize the creator to manage
	// the entity it just made.
	if err := repo.UpdateVerb(ctx, actorID, "wreck", []any{"destroy", handleLiteral(controlCapID), newID}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	if _, err := d.Execute(ctx, actorID, "wreck", nil, nil); err != nil {
		t.Fatalf("expected destroy to succeed with the granted capability, got %v", err)
	}

	if e, err := repo.GetEntity(ctx, int64(newID)); err != nil || e != nil {
		t.Fatalf("expected the created entity to be gone, got entity=%v err=%v", e, err)
	}
}

func TestCreate_RejectsBareNumberAsCapability(t *testing.T) {
	d, repo, _, actorID := newTestDispatcher(t)
	ctx := context.Background()

	createCapID, err := repo.CreateCapability(ctx, actorID, capability.TypeSysCreate, nil)
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if err := repo.UpdateVerb(ctx, actorID, "make", []any{"create", float64(createCapID), map[string]any{"name": "Thing"}}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	if _, err := d.Execute(ctx, actorID, "make", nil, nil); err == nil {
		t.Fatal("expected a bare capability id literal to be rejected")
	}
}

func TestDestroy_DeniedWithoutEntityControl(t *testing.T) {
	d, repo, _, actorID := newTestDispatcher(t)
	ctx := context.Background()

	otherID, err := repo.CreateEntity(ctx, map[string]any{"name": "Other"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	unrelatedCapID, err := repo.CreateCapability(ctx, actorID, capability.TypeEntityControl, map[string]any{"target_id": float64(actorID)})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if err := repo.UpdateVerb(ctx, actorID, "wreck", []any{"destroy", handleLiteral(unrelatedCapID), float64(otherID)}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	_, err = d.Execute(ctx, actorID, "wreck", nil, nil)
	if err == nil {
		t.Fatal("expected destroy to be denied for a capability scoped to a different target")
	}

	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindScriptError {
		t.Fatalf("expected a script_error, got %v", err)
	}
}
