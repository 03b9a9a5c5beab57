package toolchain

import "strings"

func payloadString(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func lowerType(requestType string) string {
	return strings.ToLower(requestType)
}
