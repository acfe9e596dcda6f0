package uazapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := readString(obj[key]); value != "" {
			return value
		}
	}
	return ""
}
