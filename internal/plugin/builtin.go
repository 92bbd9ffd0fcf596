package plugin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rakunlabs/moo/internal/opcode"
)

var started = time.Now()

func init() {
	RegisterOpcode("plugin.uptime_seconds", opcode.Eager, func(ctx opcode.Context, args []any) (any, error) {
		return ctx.Now().Sub(started).Seconds(), nil
	})

	RegisterRPC("plugins.list", func(ctx context.Context, params json.RawMessage) (any, error) {
		return Methods(), nil
	})
}
