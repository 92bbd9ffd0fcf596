package plugin_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rakunlabs/moo/internal/opcode"
	"github.com/rakunlabs/moo/internal/plugin"
)

func TestRegisterRPC_LookupFindsHandler(t *testing.T) {
	plugin.RegisterRPC("test.echo", func(_ context.Context, params json.RawMessage) (any, error) {
		return string(params), nil
	})

	handler, ok := plugin.Lookup("test.echo")
	if !ok {
		t.Fatal("expected test.echo to be registered")
	}

	result, err := handler(context.Background(), json.RawMessage(`"hi"`))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result != `"hi"` {
		t.Fatalf("expected echoed params, got %v", result)
	}
}

func TestRegisterRPC_DuplicateNamePanics(t *testing.T) {
	plugin.RegisterRPC("test.dup", func(_ context.Context, _ json.RawMessage) (any, error) {
		return nil, nil
	})

	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()

	plugin.RegisterRPC("test.dup", func(_ context.Context, _ json.RawMessage) (any, error) {
		return nil, nil
	})
}

func TestLookup_UnknownMethodNotFound(t *testing.T) {
	if _, ok := plugin.Lookup("test.does_not_exist"); ok {
		t.Fatal("expected unknown method to be absent")
	}
}

func TestMethods_IncludesBuiltinPluginsListRPC(t *testing.T) {
	found := false
	for _, m := range plugin.Methods() {
		if m == "plugins.list" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected plugins.list to be registered by builtin.go's init")
	}
}

func TestRegisterOpcode_RequiresPluginNamespace(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected unnamespaced opcode registration to panic")
		}
	}()

	plugin.RegisterOpcode("test.not_namespaced", opcode.Eager, func(_ opcode.Context, _ []any) (any, error) {
		return nil, nil
	})
}

func TestRegisterOpcode_AcceptsPluginNamespace(t *testing.T) {
	plugin.RegisterOpcode("plugin.test_noop", opcode.Eager, func(_ opcode.Context, _ []any) (any, error) {
		return "ok", nil
	})

	found := false
	for _, e := range opcode.List() {
		if e.Name == "plugin.test_noop" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected plugin.test_noop to be registered in the opcode registry")
	}
}
