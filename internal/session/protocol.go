// Package session implements the world's single external interface: a
// JSON-RPC 2.0 dispatch loop carried over WebSocket, one message per text
// frame. Inbound requests drive verb execution, introspection, and verb
// editing; outbound notifications carry room/entity updates back to every
// session bound to the affected entity.
package session

import (
	"bytes"
	"encoding/json"
)

// JSON-RPC 2.0 structures. See: https://www.jsonrpc.org/specification

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCNotification carries an outbound push with no id and no reply
// expected: message, update, room_id, player_id, stream_start/chunk/end,
// forward.
type JSONRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func decodeJSON(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	return decoder.Decode(v)
}

func newNotification(method string, params any) JSONRPCNotification {
	return JSONRPCNotification{JSONRPC: "2.0", Method: method, Params: params}
}

func newResult(id any, result any) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func (h *Hub) createErrorResponse(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
