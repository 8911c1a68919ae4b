package agentloop

import (
	"encoding/json"
	"math"
)

// Arg returns args[key] when it is present and holds a T.
func Arg[T any](args map[string]any, key string) (T, bool) {
	v, ok := args[key].(T)
	return v, ok
}

// StringArg extracts a string argument.
func StringArg(args map[string]any, key string) (string, bool) { return Arg[string](args, key) }

// BoolArg extracts a boolean argument.
func BoolArg(args map[string]any, key string) (bool, bool) { return Arg[bool](args, key) }

// StringArgOr returns the string argument, or def when it is absent or not a
// string.
func StringArgOr(args map[string]any, key, def string) string {
	if s, ok := StringArg(args, key); ok {
		return s
	}
	return def
}

// IntArg extracts an integer argument. Decoded JSON numbers are float64 and
// count only when they hold a whole value.
func IntArg(args map[string]any, key string) (int, bool) {
	switch n := args[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// IntArgOr returns the integer argument, or def when it is absent or not a
// whole number.
func IntArgOr(args map[string]any, key string, def int) int {
	if n, ok := IntArg(args, key); ok {
		return n
	}
	return def
}
