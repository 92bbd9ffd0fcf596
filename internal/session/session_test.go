package session_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
	"github.com/rakunlabs/moo/internal/session"
	"github.com/rakunlabs/moo/internal/store"

	_ "github.com/rakunlabs/moo/internal/opcode/mathops"
	_ "github.com/rakunlabs/moo/internal/opcode/runtime"
	_ "github.com/rakunlabs/moo/internal/opcode/vars"
	_ "github.com/rakunlabs/moo/internal/plugin"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.Repository) {
	t.Helper()

	repo := repository.New(store.NewMemory())
	kernel := capability.New(repo)

	lobbyID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "Lobby"})
	if err != nil {
		t.Fatalf("CreateEntity lobby: %v", err)
	}
	baseID, err := repo.CreateEntity(context.Background(), map[string]any{"name": "EntityBase"})
	if err != nil {
		t.Fatalf("CreateEntity base: %v", err)
	}

	d := dispatcher.New(repo, kernel, t.TempDir(), nil, 1000, 0)
	hub := session.New(repo, d, session.WellKnown{EntityBaseID: baseID, LobbyID: lobbyID})

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	return srv, repo
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func call(t *testing.T, conn *websocket.Conn, method string, params any) map[string]any {
	t.Helper()

	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write %s: %v", method, err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Skip any notification frames (no "id") that precede the reply, e.g.
	// login's player_id/room_id pushes.
	for {
		var resp map[string]any
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read %s response: %v", method, err)
		}
		if _, ok := resp["id"]; ok {
			return resp
		}
	}
}

func TestLogin_AutoProvisionsGuest(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	resp := call(t, conn, "login", map[string]any{})
	if resp["error"] != nil {
		t.Fatalf("login returned error: %v", resp["error"])
	}

	result, ok := resp["result"].(map[string]any)
	if !ok || result["entityId"] == nil {
		t.Fatalf("expected result.entityId, got %v", resp)
	}
}

func TestLogin_NotifiesRoomAndPlayerID(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": "login", "params": map[string]any{}}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write login: %v", err)
	}

	seen := map[string]bool{}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for i := 0; i < 3; i++ {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
		if method, ok := msg["method"].(string); ok {
			seen[method] = true
		}
	}

	if !seen["player_id"] || !seen["room_id"] {
		t.Fatalf("expected player_id and room_id notifications, got %v", seen)
	}
}

func TestExecute_RunsVerbAfterLogin(t *testing.T) {
	srv, repo := newTestServer(t)
	conn := dial(t, srv)

	loginResp := call(t, conn, "login", map[string]any{})
	entityIDFloat := loginResp["result"].(map[string]any)["entityId"].(float64)
	entityID := int64(entityIDFloat)

	if err := repo.UpdateVerb(context.Background(), entityID, "double", []any{"*", []any{"arg", 0.0}, 2.0}); err != nil {
		t.Fatalf("UpdateVerb: %v", err)
	}

	resp := call(t, conn, "execute", map[string]any{"verb": "double", "args": []any{21.0}})

	result, ok := resp["result"].(map[string]any)
	if !ok || result["value"] != 42.0 {
		t.Fatalf("expected value 42, got %v", resp)
	}
}

func TestGetOpcodes_ListsRegisteredOpcodes(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	resp := call(t, conn, "get_opcodes", nil)

	entries, ok := resp["result"].([]any)
	if !ok || len(entries) == 0 {
		t.Fatalf("expected a non-empty opcode list, got %v", resp)
	}
}

func TestPluginRPC_DispatchesRegisteredMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	resp := call(t, conn, "plugin_rpc", map[string]any{"method": "plugins.list", "params": map[string]any{}})
	if resp["error"] != nil {
		t.Fatalf("plugin_rpc returned error: %v", resp["error"])
	}
}

func TestExecute_WithoutLoginIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	resp := call(t, conn, "execute", map[string]any{"verb": "anything", "args": []any{}})
	if resp["error"] == nil {
		t.Fatal("expected an error for execute before login")
	}
}
