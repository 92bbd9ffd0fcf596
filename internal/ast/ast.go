// Package ast represents verb source as decoded JSON: a node is either a
// literal value or a call, a []any whose first element is a string opcode
// name. There is no dedicated tree type — the nested-array wire format is
// its own AST once decoded through encoding/json (numbers as float64,
// objects as map[string]any, arrays as []any), matching the decoding the
// store layer already performs when it loads a verb's source column.
package ast

import "encoding/json"

// Decode parses a verb source document into the same shape the store
// layer produces for a persisted verb: numbers as float64, objects as
// map[string]any, arrays as []any.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Call returns the opcode name and argument nodes if n is a call node.
func Call(n any) (string, []any, bool) {
	arr, ok := n.([]any)
	if !ok || len(arr) == 0 {
		return "", nil, false
	}

	name, ok := arr[0].(string)
	if !ok {
		return "", nil, false
	}

	return name, arr[1:], true
}

// IsCall reports whether n is a call node (as opposed to a literal).
func IsCall(n any) bool {
	_, _, ok := Call(n)

	return ok
}
