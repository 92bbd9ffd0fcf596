// Package plugin is the host-side registration point for host extensions:
// extra JSON-RPC methods reachable through the session layer's plugin_rpc
// request, and extra opcodes namespaced under "plugin." reachable from verb
// source. It mirrors the teacher's Tools/ToolHandler registry (a name→
// handler map guarded by a mutex), generalized from one fixed handler shape
// to two: an RPC handler and an opcode registration helper.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rakunlabs/moo/internal/opcode"
)

// RPCHandler answers one plugin_rpc call. params is the raw JSON the caller
// sent; the handler decodes whatever shape it expects.
type RPCHandler func(ctx context.Context, params json.RawMessage) (any, error)

var (
	mu      sync.RWMutex
	methods = make(map[string]RPCHandler)
)

// RegisterRPC adds an extra JSON-RPC method under the plugin_rpc envelope.
// Panics on duplicate registration, matching opcode.Register's discipline:
// two plugins claiming the same method name is a build-time defect.
func RegisterRPC(method string, handler RPCHandler) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := methods[method]; exists {
		panic(fmt.Sprintf("plugin: duplicate RPC method %q", method))
	}

	methods[method] = handler
}

// Lookup returns the handler registered for method, if any. Used by the
// session layer's plugin_rpc dispatch.
func Lookup(method string) (RPCHandler, bool) {
	mu.RLock()
	defer mu.RUnlock()

	h, ok := methods[method]

	return h, ok
}

// Methods lists every registered RPC method name, sorted.
func Methods() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(methods))
	for name := range methods {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// RegisterOpcode registers handler under the opcode registry, enforcing the
// "plugin." namespace prefix spec reserves for host extensions.
func RegisterOpcode(name string, mode opcode.EvalMode, handler opcode.Handler) {
	if len(name) < len("plugin.") || name[:len("plugin.")] != "plugin." {
		panic(fmt.Sprintf("plugin: opcode %q must be namespaced under plugin.", name))
	}

	opcode.Register(name, "plugin", mode, handler)
}
