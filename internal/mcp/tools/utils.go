package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// positiveIntArgument reads args[key] as a positive integer. JSON numbers
// arrive as float64; numeric strings are accepted too.
func positiveIntArgument(args map[string]any, key string) (int, error) {
	var n int
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		n = int(v)
	case int:
		n = v
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a number: %w", key, err)
		}
		n = parsed
	case nil:
		return 0, fmt.Errorf("%s must be provided", key)
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", key, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

func stringArgument(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}
