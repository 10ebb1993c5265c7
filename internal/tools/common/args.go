package common

import (
	"fmt"
	"math"
	"strings"
)

// ParticipantsFromArgs reads the "participants" argument. It accepts either a
// comma-separated string or a JSON array of strings. Blank entries are dropped.
func ParticipantsFromArgs(args map[string]interface{}) ([]string, error) {
	var raw []string
	switch v := args["participants"].(type) {
	case nil:
		return nil, fmt.Errorf("participants is required")
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("participants must be strings, got %T", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("participants must be a string or an array of strings, got %T", v)
	}

	participants := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			participants = append(participants, p)
		}
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("participants is required")
	}
	return participants, nil
}

// StringArg returns the trimmed string argument name, or "" if it is absent or not a string.
func StringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// RequiredStringArg returns the string argument name or an error if it is missing or empty.
func RequiredStringArg(args map[string]interface{}, name string) (string, error) {
	s := StringArg(args, name)
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// IntArg returns the integer argument name. JSON numbers arrive as float64 and
// must be whole. ok is false when the argument is absent.
func IntArg(args map[string]interface{}, name string) (n int, ok bool, err error) {
	switch v := args[name].(type) {
	case nil:
		return 0, false, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, true, fmt.Errorf("%s must be a whole number", name)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	default:
		return 0, true, fmt.Errorf("%s must be a number, got %T", name, v)
	}
}
