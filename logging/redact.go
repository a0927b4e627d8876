package logging

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// RedactedPlaceholder replaces detected credentials in log output.
const RedactedPlaceholder = "[REDACTED]"

// DefaultPromptPreviewLen bounds how much of a user prompt PromptField
// puts into logs.
const DefaultPromptPreviewLen = 80

// credentialPatterns match the secrets that can plausibly reach bridge
// logs: engine API keys and bearer headers from endpoint configuration.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)(api_?key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
}

// Redact scans value and replaces anything resembling a credential.
func Redact(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range credentialPatterns {
		value = pattern.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// PromptPreview reduces a prompt to a single-line preview of at most max
// bytes, suitable for logging without spilling full user content. Newlines
// collapse to spaces; truncation is marked with an ellipsis.
func PromptPreview(prompt string, max int) string {
	if max <= 0 {
		max = DefaultPromptPreviewLen
	}
	flat := strings.Join(strings.Fields(prompt), " ")
	if len(flat) <= max {
		return flat
	}
	return flat[:max] + "..."
}

// PromptField is the standard way to attach a prompt to a log entry:
// previewed, never the full text.
func PromptField(prompt string) zap.Field {
	return zap.String("prompt_preview", PromptPreview(prompt, DefaultPromptPreviewLen))
}

// RequestField tags a log entry with an async request id.
func RequestField(id uint64) zap.Field {
	return zap.Uint64("request_id", id)
}
