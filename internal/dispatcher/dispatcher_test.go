package dispatcher_test

import (
	"context"
	"testing"

	"github.com/rakunlabs/moo/internal/apperr"
	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/store"

	_ "github.com/rakunlabs/moo/internal/opcode/control"
	_ "github.com/rakunlabs/moo/internal/opcode/mathops"
	_ "github.com/rakunlabs/moo/internal/opcode/object"
	_ "github.com/rakunlabs/moo/internal/opcode/runtime"
	_ "github.com/rakunlabs/moo/internal/opcode/vars"
	_ "github.com/rakunlabs/moo/internal/opcode/verbops"
)

func newTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, *repository.Repository, int64) {
	t.Helper()

	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	entityID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Actor"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	return dispatcher.New(repo, kernel, t.TempDir(), nil, 1000, 0), repo, entityID
}

func TestExecute_RunsVerbAndReturnsValue(t *testing.T) {
	d, repo, entityID := newTestDispatcher(t)

	if err := repo.UpdateVerb(context.Background(), entityID, "add_one", []any{"+", []any{"arg", 0.0}, 1.0}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	result, err := d.Execute(context.Background(), entityID, "add_one", []any{41.0}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Value != 42.0 {
		t.Fatalf("expected 42, got %v", result.Value)
	}
}

func TestExecute_MissingVerbReturnsVerbNotFound(t *testing.T) {
	d, _, entityID := newTestDispatcher(t)

	_, err := d.Execute(context.Background(), entityID, "nonexistent", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindVerbNotFound {
		t.Fatalf("expected verb_not_found, got %v", err)
	}
}

func TestExecute_GasExhaustionReturnsGasExhausted(t *testing.T) {
	d, repo, entityID := newTestDispatcher(t)
	d.GasLimit = 2

	if err := repo.UpdateVerb(context.Background(), entityID, "loopy", []any{"+", 1.0, []any{"+", 1.0, 1.0}}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	_, err := d.Execute(context.Background(), entityID, "loopy", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindGasExhausted {
		t.Fatalf("expected gas_exhausted, got %v", err)
	}
	if len(appErr.Stack) != 1 {
		t.Fatalf("expected a stack of length 1 for a root-level gas exhaustion, got %d", len(appErr.Stack))
	}
}

func TestExecute_SendInvokesCallback(t *testing.T) {
	d, repo, entityID := newTestDispatcher(t)

	if err := repo.UpdateVerb(context.Background(), entityID, "notify", []any{"send", "info", []any{"obj.new", "text", "hi"}}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	var gotMethod string
	var gotParams map[string]any

	_, err := d.Execute(context.Background(), entityID, "notify", nil, func(method string, params map[string]any) {
		gotMethod = method
		gotParams = params
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotMethod != "info" || gotParams["text"] != "hi" {
		t.Fatalf("expected send callback to receive (info, {text: hi}), got (%v, %v)", gotMethod, gotParams)
	}
}
