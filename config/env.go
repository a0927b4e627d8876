package config

import (
	"os"
	"strconv"
	"strings"
)

// getEnv returns the variable's value, or fallback when unset or empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseIntEnv parses the variable as an integer. Unset, empty, or
// unparseable values return fallback.
func parseIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// parseBoolEnv parses the variable as a boolean. Accepts true/1/yes/on and
// false/0/no/off, case-insensitively; anything else returns fallback.
func parseBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}
