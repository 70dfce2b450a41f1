package tools

import "encoding/json"

// DecodeArgs maps loosely-typed tool arguments onto a typed struct via a
// JSON roundtrip.
func DecodeArgs(args map[string]any, v any) error {
	buf, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

// StringArg returns the named argument as a string, or "" when absent or
// not a string.
func StringArg(args map[string]any, name string) string {
	if args == nil {
		return ""
	}
	s, _ := args[name].(string)
	return s
}

// IntArg returns the named argument as an int. JSON numbers decode as
// float64, so both are accepted.
func IntArg(args map[string]any, name string, def int) int {
	if args == nil {
		return def
	}
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
