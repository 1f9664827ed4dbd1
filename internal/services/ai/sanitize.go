package ai

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Context key types for logging (to avoid collisions with string keys)
type contextKey string

const (
	profileIDContextKey contextKey = "profile_id"
	requestIDContextKey contextKey = "request_id"
)

// ProfileIDContextKey returns the context key for profile ID
func ProfileIDContextKey() contextKey {
	return profileIDContextKey
}

// RequestIDContextKey returns the context key for request ID
func RequestIDContextKey() contextKey {
	return requestIDContextKey
}

const (
	// MaxPreviewLength is the maximum length for preview strings in logs
	MaxPreviewLength = 200
	// MaxDebugContentLength is the maximum length in debug mode
	MaxDebugContentLength = 10000
)

// SanitizePrompt creates a safe preview of a prompt for logging.
// Even in fullLog mode the text is sanitized to prevent log injection.
func SanitizePrompt(prompt string, fullLog bool) string {
	if prompt == "" {
		return ""
	}

	maxLen := MaxPreviewLength
	if fullLog {
		maxLen = MaxDebugContentLength
	}

	return sanitizeStringForLogging(prompt, maxLen)
}

// SanitizeResponse creates a safe preview of a response for logging
func SanitizeResponse(response string, fullLog bool) string {
	return SanitizePrompt(response, fullLog)
}

// sanitizeStringForLogging removes control characters, validates UTF-8, and truncates
func sanitizeStringForLogging(s string, maxLen int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()

	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}

	return s
}

// ExtractRequestID extracts a request ID from context if available
func ExtractRequestID(ctx context.Context) string {
	if reqID := ctx.Value(requestIDContextKey); reqID != nil {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// ExtractProfileID extracts a profile ID from context if available (handles UUID)
func ExtractProfileID(ctx context.Context) string {
	if profileID := ctx.Value(profileIDContextKey); profileID != nil {
		if id, ok := profileID.(interface{ String() string }); ok {
			return id.String()
		}
		if id, ok := profileID.(string); ok {
			return id
		}
	}
	return ""
}
