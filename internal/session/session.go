package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rakunlabs/moo/internal/apperr"
	"github.com/rakunlabs/moo/internal/capability"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/entity"
	"github.com/rakunlabs/moo/internal/opcode"
	"github.com/rakunlabs/moo/internal/plugin"
	"github.com/rakunlabs/moo/internal/repository"
)

// WellKnown is the subset of config.WellKnown the session layer needs to
// auto-provision guests: the prototype new entities inherit from, and the
// room they start in.
type WellKnown struct {
	EntityBaseID int64
	LobbyID      int64
}

// Hub owns every live session and routes notifications pushed by the
// dispatcher/scheduler to the sessions bound to the affected entity.
type Hub struct {
	repo       *repository.Repository
	dispatcher *dispatcher.Dispatcher
	wellKnown  WellKnown

	mu       sync.RWMutex
	byEntity map[int64]map[*Session]struct{}
}

// New builds a Hub. wellKnown.EntityBaseID/LobbyID back the login
// auto-provisioning rule: login with no matching entity always creates a
// Guest located in LobbyID; a zero EntityBaseID leaves it without a
// prototype.
func New(repo *repository.Repository, d *dispatcher.Dispatcher, wellKnown WellKnown) *Hub {
	return &Hub{
		repo:       repo,
		dispatcher: d,
		wellKnown:  wellKnown,
		byEntity:   make(map[int64]map[*Session]struct{}),
	}
}

// Session is one live WebSocket connection, optionally bound to an entity
// once login succeeds. Before login it can still call get_opcodes/ping.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	writeMu sync.Mutex

	mu        sync.RWMutex
	entityID  int64
	hasEntity bool
}

// Serve takes ownership of conn: it registers the session, reads frames
// until the connection closes or ctx is cancelled, and unregisters on
// return. One JSON-RPC message travels per text frame, per spec.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	s := &Session{id: ulid.Make().String(), hub: h, conn: conn}
	defer s.unbind()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req JSONRPCRequest
		if decodeErr := decodeJSON(data, &req); decodeErr != nil {
			s.write(h.createErrorResponse(nil, apperr.KindParseError.JSONRPCCode(), "parse error"))

			continue
		}

		resp := s.handleRequest(ctx, req)

		// Notifications (no id) get no reply.
		if req.ID == nil {
			continue
		}

		s.write(resp)
	}
}

func (s *Session) write(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(v); err != nil {
		slog.Warn("session: write failed", "session_id", s.id, "error", err)
	}
}

// notify pushes method/params as a notification frame, ignoring write
// failures beyond logging them: the dispatch that triggered it has already
// completed and has nothing left to roll back.
func (s *Session) notify(method string, params any) {
	s.write(newNotification(method, params))
}

func (s *Session) boundEntity() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entityID, s.hasEntity
}

func (s *Session) bind(entityID int64) {
	s.unbind()

	s.mu.Lock()
	s.entityID, s.hasEntity = entityID, true
	s.mu.Unlock()

	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	set, ok := s.hub.byEntity[entityID]
	if !ok {
		set = make(map[*Session]struct{})
		s.hub.byEntity[entityID] = set
	}
	set[s] = struct{}{}
}

func (s *Session) unbind() {
	entityID, ok := s.boundEntity()
	if !ok {
		return
	}

	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if set, ok := s.hub.byEntity[entityID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.hub.byEntity, entityID)
		}
	}
}

// Broadcast pushes method/params to every session bound to entityID.
func (h *Hub) Broadcast(entityID int64, method string, params map[string]any) {
	h.mu.RLock()
	set := h.byEntity[entityID]
	sessions := make([]*Session, 0, len(set))
	for sess := range set {
		sessions = append(sessions, sess)
	}
	h.mu.RUnlock()

	for _, sess := range sessions {
		sess.notify(method, params)
	}
}

// sendFor builds a dispatcher.SendFunc that fans a verb's notifications out
// via Broadcast, except forward, which per spec goes only to the caller's
// own session (the Bot impersonation case rewrites Send to forward already;
// here the caller is the session driving the request).
func (h *Hub) sendFor(callerSession *Session, entityID int64) dispatcher.SendFunc {
	return func(method string, params map[string]any) {
		if method == "forward" {
			callerSession.notify(method, params)

			return
		}

		h.Broadcast(entityID, method, params)
	}
}

func (s *Session) handleRequest(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "login":
		return s.handleLogin(ctx, req)
	case "execute":
		return s.handleExecute(ctx, req)
	case "get_opcodes":
		return s.handleGetOpcodes(req)
	case "get_entities":
		return s.handleGetEntities(ctx, req)
	case "get_verb":
		return s.handleGetVerb(ctx, req)
	case "update_verb":
		return s.handleUpdateVerb(ctx, req)
	case "plugin_rpc":
		return s.handlePluginRPC(ctx, req)
	case "ping":
		return newResult(req.ID, map[string]any{})
	default:
		return s.hub.createErrorResponse(req.ID, apperr.KindMethodNotFound.JSONRPCCode(), "method not found: "+req.Method)
	}
}

type loginParams struct {
	EntityID *int64 `json:"entityId"`
}

func (s *Session) handleLogin(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params loginParams
	if req.Params != nil {
		if err := decodeJSON(req.Params, &params); err != nil {
			return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "invalid params")
		}
	}

	entityID, err := s.hub.resolveOrProvisionEntity(ctx, params.EntityID)
	if err != nil {
		return s.errorResponse(req.ID, err)
	}

	s.bind(entityID)

	s.notify("player_id", map[string]any{"playerId": entityID})

	if loc, ok := s.roomOf(ctx, entityID); ok {
		s.notify("room_id", map[string]any{"roomId": loc})
	}

	return newResult(req.ID, map[string]any{"entityId": entityID})
}

// resolveOrProvisionEntity returns requestedID if it names a real entity,
// otherwise creates a Guest bound to the well-known prototype and lobby.
func (h *Hub) resolveOrProvisionEntity(ctx context.Context, requestedID *int64) (int64, error) {
	if requestedID != nil {
		e, err := h.repo.GetEntity(ctx, *requestedID)
		if err != nil {
			return 0, apperr.Wrap(apperr.KindInternal, "get entity", err)
		}
		if e != nil {
			return e.ID, nil
		}
	}

	props := map[string]any{"name": "Guest", "location": h.wellKnown.LobbyID}

	id, err := h.repo.CreateEntity(ctx, props)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "create guest entity", err)
	}

	if h.wellKnown.EntityBaseID != 0 {
		protoID := h.wellKnown.EntityBaseID
		if err := h.repo.SetPrototypeID(ctx, id, &protoID); err != nil {
			return 0, apperr.Wrap(apperr.KindInternal, "set guest prototype", err)
		}
	}

	return id, nil
}

func (s *Session) roomOf(ctx context.Context, entityID int64) (any, bool) {
	val, _, found, err := s.hub.repo.ResolveProperty(ctx, entityID, "location")
	if err != nil || !found {
		return nil, false
	}

	return val, true
}

type executeParams struct {
	Verb string `json:"verb"`
	Args []any  `json:"args"`
}

func (s *Session) handleExecute(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	entityID, ok := s.boundEntity()
	if !ok {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "login required")
	}

	// Unlike the rest of the protocol, args feed straight into the
	// interpreter: decode with plain json.Unmarshal so numbers land as
	// float64, matching what internal/ast produces for stored verb source.
	var params executeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "invalid params")
	}

	result, err := s.hub.dispatcher.Execute(ctx, entityID, params.Verb, params.Args, s.hub.sendFor(s, entityID))
	if err != nil {
		return s.errorResponse(req.ID, err)
	}

	return newResult(req.ID, map[string]any{"value": result.Value, "warnings": result.Warnings})
}

func (s *Session) handleGetOpcodes(req JSONRPCRequest) JSONRPCResponse {
	entries := opcode.List()

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		mode := "eager"
		if e.Mode == opcode.Lazy {
			mode = "lazy"
		}

		out = append(out, map[string]any{
			"name":     e.Name,
			"category": e.Category,
			"mode":     mode,
		})
	}

	return newResult(req.ID, out)
}

type getEntitiesParams struct {
	IDs []int64 `json:"ids"`
}

func (s *Session) handleGetEntities(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params getEntitiesParams
	if err := decodeJSON(req.Params, &params); err != nil {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "invalid params")
	}

	entities, err := s.hub.repo.GetEntities(ctx, params.IDs)
	if err != nil {
		return s.errorResponse(req.ID, apperr.Wrap(apperr.KindInternal, "get entities", err))
	}

	return newResult(req.ID, entities)
}

type getVerbParams struct {
	EntityID int64  `json:"entityId"`
	Name     string `json:"name"`
}

func (s *Session) handleGetVerb(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params getVerbParams
	if err := decodeJSON(req.Params, &params); err != nil {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "invalid params")
	}

	verb, err := s.hub.repo.GetVerb(ctx, params.EntityID, params.Name)
	if err != nil {
		return s.errorResponse(req.ID, apperr.Wrap(apperr.KindInternal, "get verb", err))
	}
	if verb == nil {
		return s.errorResponse(req.ID, apperr.New(apperr.KindVerbNotFound, params.Name))
	}

	return newResult(req.ID, verb)
}

type updateVerbParams struct {
	EntityID   int64  `json:"entityId"`
	Name       string `json:"name"`
	Source     any    `json:"source"`
	Capability any    `json:"capability"`
}

func (s *Session) handleUpdateVerb(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	callerID, ok := s.boundEntity()
	if !ok {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "login required")
	}

	// Source becomes a verb's AST: decode it the same way as execute's
	// args, so its literals are float64 like every other source of Source.
	var params updateVerbParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "invalid params")
	}

	capID, ok := asCapability(params.Capability)
	if !ok {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "capability must be a handle")
	}

	if _, err := s.hub.dispatcher.Capability.Check(ctx, capID, callerID, capability.TypeEntityControl, capability.MatchEntityControl(params.EntityID)); err != nil {
		return s.errorResponse(req.ID, err)
	}

	if err := s.hub.repo.UpdateVerb(ctx, params.EntityID, params.Name, params.Source); err != nil {
		return s.errorResponse(req.ID, apperr.Wrap(apperr.KindInternal, "update verb", err))
	}

	return newResult(req.ID, map[string]any{"ok": true})
}

type pluginRPCParams struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (s *Session) handlePluginRPC(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params pluginRPCParams
	if err := decodeJSON(req.Params, &params); err != nil {
		return s.hub.createErrorResponse(req.ID, apperr.KindInvalidRequest.JSONRPCCode(), "invalid params")
	}

	handler, ok := plugin.Lookup(params.Method)
	if !ok {
		return s.hub.createErrorResponse(req.ID, apperr.KindMethodNotFound.JSONRPCCode(), "unknown plugin method: "+params.Method)
	}

	result, err := handler(ctx, params.Params)
	if err != nil {
		return s.errorResponse(req.ID, apperr.Wrap(apperr.KindInternal, "plugin rpc", err))
	}

	return newResult(req.ID, result)
}

// asCapability decodes a capability handle sent over the wire: always the
// {"brand", "id"} object form, since a value crossing the JSON-RPC boundary
// never carries a Go entity.Handle directly.
func asCapability(v any) (int64, bool) {
	h, ok := v.(map[string]any)
	if !ok || h["brand"] != entity.HandleBrand {
		return 0, false
	}

	id, ok := h["id"].(float64)
	if !ok {
		return 0, false
	}

	return int64(id), true
}

func (s *Session) errorResponse(id any, err error) JSONRPCResponse {
	appErr, ok := apperr.As(err)
	if !ok {
		return s.hub.createErrorResponse(id, apperr.KindInternal.JSONRPCCode(), err.Error())
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    appErr.Kind.JSONRPCCode(),
			Message: appErr.Error(),
			Data:    map[string]any{"stack": appErr.Stack},
		},
	}
}

