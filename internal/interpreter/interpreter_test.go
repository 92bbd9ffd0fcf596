package interpreter_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/interpreter"
	"github.com/rakunlabs/moo/internal/repository"
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
)

func newTestCtx(entityID int64, args []any) *interpreter.Ctx {
	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	deps := &interpreter.Deps{
		Repo:       repo,
		Capability: kernel,
		FSRoot:     ".",
		Clock:      func() time.Time { return time.Unix(1700000000, 0).UTC() },
		RNG:        rand.New(rand.NewSource(1)),
	}

	return interpreter.New(context.Background(), deps, entityID, "test", args, 10000, nil)
}

func mustEval(t *testing.T, ctx *interpreter.Ctx, node any) any {
	t.Helper()

	v, err := ctx.Eval(node)
	if err != nil {
		t.Fatalf("Eval(%v): %v", node, err)
	}

	return v
}

func TestEval_Literal(t *testing.T) {
	ctx := newTestCtx(1, nil)

	if v := mustEval(t, ctx, "hello"); v != "hello" {
		t.Fatalf("expected literal passthrough, got %v", v)
	}
}

func TestEval_Arithmetic(t *testing.T) {
	ctx := newTestCtx(1, nil)

	node := []any{"+", 1.0, 2.0, 3.0}
	if v := mustEval(t, ctx, node); v != 6.0 {
		t.Fatalf("expected 6, got %v", v)
	}
}

func TestEval_LetVarSet(t *testing.T) {
	ctx := newTestCtx(1, nil)

	mustEval(t, ctx, []any{"let", "x", 10.0})
	mustEval(t, ctx, []any{"set", "x", []any{"+", []any{"var", "x"}, 5.0}})

	if v := mustEval(t, ctx, []any{"var", "x"}); v != 15.0 {
		t.Fatalf("expected 15, got %v", v)
	}
}

func TestEval_IfShortCircuit(t *testing.T) {
	ctx := newTestCtx(1, nil)

	node := []any{"if", true, []any{"+", 1.0, 1.0}, []any{"throw", "should not evaluate"}}
	if v := mustEval(t, ctx, node); v != 2.0 {
		t.Fatalf("expected 2, got %v", v)
	}
}

func TestEval_Seq(t *testing.T) {
	ctx := newTestCtx(1, nil)

	node := []any{"seq", []any{"let", "a", 1.0}, []any{"let", "b", 2.0}, []any{"+", []any{"var", "a"}, []any{"var", "b"}}}
	if v := mustEval(t, ctx, node); v != 3.0 {
		t.Fatalf("expected 3, got %v", v)
	}
}

func TestEval_TryCatchesThrow(t *testing.T) {
	ctx := newTestCtx(1, nil)

	node := []any{"try", []any{"throw", "boom"}, "err", []any{"var", "err"}}
	if v := mustEval(t, ctx, node); v != "boom" {
		t.Fatalf("expected caught message, got %v", v)
	}
}

func TestEval_GasExhaustion(t *testing.T) {
	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	deps := &interpreter.Deps{Repo: repo, Capability: kernel, RNG: rand.New(rand.NewSource(1))}
	ctx := interpreter.New(context.Background(), deps, 1, "test", nil, 2, nil)

	node := []any{"+", 1.0, []any{"+", 1.0, 1.0}}
	if _, err := ctx.Eval(node); err == nil {
		t.Fatal("expected gas exhaustion error")
	}
}

func TestEval_ListMapWithLambda(t *testing.T) {
	ctx := newTestCtx(1, nil)

	node := []any{
		"list.map",
		[]any{"list.new", 1.0, 2.0, 3.0},
		[]any{"lambda", []any{"x", "i"}, []any{"+", []any{"var", "x"}, 1.0}},
	}

	v := mustEval(t, ctx, node)
	got, ok := v.([]any)
	if !ok {
		t.Fatalf("expected a list result, got %T", v)
	}
	if len(got) != 3 || got[0] != 2.0 || got[2] != 4.0 {
		t.Fatalf("expected [2 3 4], got %v", got)
	}
}

func TestEval_WarningsAccumulate(t *testing.T) {
	ctx := newTestCtx(1, nil)

	mustEval(t, ctx, []any{"warn", "careful"})

	if ws := ctx.Warnings(); len(ws) != 1 || ws[0] != "careful" {
		t.Fatalf("expected one warning, got %v", ws)
	}
}

func TestEval_CallInvokesVerbOnTarget(t *testing.T) {
	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	targetID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Target"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := repo.UpdateVerb(context.Background(), targetID, "greet", []any{"str.concat", "hello ", []any{"arg", 0.0}}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	deps := &interpreter.Deps{Repo: repo, Capability: kernel, RNG: rand.New(rand.NewSource(1))}
	ctx := interpreter.New(context.Background(), deps, 1, "test", nil, 10000, nil)

	node := []any{"call", float64(targetID), "greet", "world"}
	if v := mustEval(t, ctx, node); v != "hello world" {
		t.Fatalf("expected greet to read its first positional argument, got %v", v)
	}
}
