package capability

import (
	"context"
	"testing"

	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/store"
)

func newTestKernel() (*Kernel, *repository.Repository, int64) {
	repo := repository.New(store.NewMemory())
	k := New(repo)

	ownerID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Owner"})
	if err != nil {
		panic(err)
	}

	return k, repo, ownerID
}

func TestMint_RequiresMatchingNamespace(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	authorityID, err := repo.CreateCapability(ctx, ownerID, TypeSysMint, map[string]any{"namespace": "entity"})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if _, err := k.Mint(ctx, ownerID, authorityID, "entity.control", nil); err != nil {
		t.Fatalf("Mint within namespace: %v", err)
	}

	if _, err := k.Mint(ctx, ownerID, authorityID, "fs.read", nil); err == nil {
		t.Fatal("expected Mint outside namespace to be denied")
	}
}

func TestMint_WildcardNamespace(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	authorityID, err := repo.CreateCapability(ctx, ownerID, TypeSysMint, map[string]any{"namespace": "*"})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if _, err := k.Mint(ctx, ownerID, authorityID, "fs.write", nil); err != nil {
		t.Fatalf("Mint with wildcard namespace: %v", err)
	}
}

func TestMint_RequiresOwnership(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	otherID, err := repo.CreateEntity(ctx, map[string]any{"name": "Other"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	authorityID, err := repo.CreateCapability(ctx, ownerID, TypeSysMint, map[string]any{"namespace": "*"})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if _, err := k.Mint(ctx, otherID, authorityID, "fs.write", nil); err == nil {
		t.Fatal("expected Mint by non-owner to be denied")
	}
}

func TestDelegate_MergesParamsChildWins(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	parentID, err := repo.CreateCapability(ctx, ownerID, TypeFSRead, map[string]any{"path": "/data", "extra": "kept"})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	childID, err := k.Delegate(ctx, ownerID, parentID, map[string]any{"path": "/data/sub"})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	child, err := repo.GetCapability(ctx, childID)
	if err != nil {
		t.Fatalf("GetCapability: %v", err)
	}

	if child.Params["path"] != "/data/sub" {
		t.Fatalf("expected child path to override parent, got %v", child.Params["path"])
	}
	if child.Params["extra"] != "kept" {
		t.Fatalf("expected non-overridden parent param to survive, got %v", child.Params["extra"])
	}
}

func TestGive_ReassignsOwner(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	targetID, err := repo.CreateEntity(ctx, map[string]any{"name": "Target"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	capID, err := repo.CreateCapability(ctx, ownerID, TypeSysCreate, nil)
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if err := k.Give(ctx, capID, targetID); err != nil {
		t.Fatalf("Give: %v", err)
	}

	cap, err := repo.GetCapability(ctx, capID)
	if err != nil {
		t.Fatalf("GetCapability: %v", err)
	}
	if cap.OwnerID != targetID {
		t.Fatalf("expected owner %d, got %d", targetID, cap.OwnerID)
	}
}

func TestCheck_WildcardShortcut(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	capID, err := repo.CreateCapability(ctx, ownerID, TypeEntityControl, map[string]any{"*": true})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	never := func(map[string]any) bool { return false }

	if _, err := k.Check(ctx, capID, ownerID, TypeEntityControl, never); err != nil {
		t.Fatalf("expected wildcard capability to bypass match_fn: %v", err)
	}
}

func TestCheck_WrongTypeDenied(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	capID, err := repo.CreateCapability(ctx, ownerID, TypeFSRead, map[string]any{"path": "/data"})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if _, err := k.Check(ctx, capID, ownerID, TypeFSWrite, nil); err == nil {
		t.Fatal("expected type mismatch to be denied")
	}
}

func TestCheck_MatchFuncDenied(t *testing.T) {
	ctx := context.Background()
	k, repo, ownerID := newTestKernel()

	capID, err := repo.CreateCapability(ctx, ownerID, TypeFSRead, map[string]any{"path": "/data"})
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if _, err := k.Check(ctx, capID, ownerID, TypeFSRead, MatchPathPrefix("/other/file.txt")); err == nil {
		t.Fatal("expected path outside prefix to be denied")
	}

	if _, err := k.Check(ctx, capID, ownerID, TypeFSRead, MatchPathPrefix("/data/file.txt")); err != nil {
		t.Fatalf("expected path within prefix to pass: %v", err)
	}
}

func TestMatchEntityControl(t *testing.T) {
	match := MatchEntityControl(42)

	if !match(map[string]any{"target_id": int64(42)}) {
		t.Fatal("expected matching target_id to pass")
	}
	if match(map[string]any{"target_id": int64(7)}) {
		t.Fatal("expected mismatched target_id to fail")
	}
}

func TestMatchHostSuffix(t *testing.T) {
	match := MatchHostSuffix("api.example.com")

	if !match(map[string]any{"domain": "example.com"}) {
		t.Fatal("expected granted domain covering target host to pass")
	}
	if match(map[string]any{"domain": "other.org"}) {
		t.Fatal("expected unrelated domain to fail")
	}
}
