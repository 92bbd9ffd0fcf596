// Package timeops registers the time opcode family: time.now,
// time.to_timestamp, time.format. All are Eager.
package timeops

import (
	"errors"
	"time"

	"github.com/rakunlabs/moo/internal/opcode"
)

func init() {
	opcode.Register("time.now", "time", opcode.Eager, nowOp)
	opcode.Register("time.to_timestamp", "time", opcode.Eager, toTimestampOp)
	opcode.Register("time.format", "time", opcode.Eager, formatOp)
}

// nowOp returns the current time as a Unix second timestamp.
func nowOp(ctx opcode.Context, _ []any) (any, error) {
	return float64(ctx.Now().Unix()), nil
}

// toTimestampOp converts an RFC3339 string to a Unix second timestamp.
func toTimestampOp(_ opcode.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("time.to_timestamp: requires a datetime string")
	}

	s, ok := args[0].(string)
	if !ok {
		return nil, errors.New("time.to_timestamp: argument must be a string")
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}

	return float64(t.Unix()), nil
}

// formatOp formats a Unix second timestamp under a named layout: "time"
// (15:04:05), "date" (2006-01-02), or default (RFC3339).
func formatOp(_ opcode.Context, args []any) (any, error) {
	if len(args) < 1 {
		return nil, errors.New("time.format: requires a timestamp")
	}

	ts, ok := asFloat(args[0])
	if !ok {
		return nil, errors.New("time.format: timestamp must be a number")
	}

	layoutName := ""
	if len(args) >= 2 {
		layoutName, _ = args[1].(string)
	}

	var layout string
	switch layoutName {
	case "time":
		layout = "15:04:05"
	case "date":
		layout = "2006-01-02"
	default:
		layout = time.RFC3339
	}

	return time.Unix(int64(ts), 0).UTC().Format(layout), nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
