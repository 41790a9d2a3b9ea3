package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxBodyLogLength is the maximum length of a remote response body to log
	MaxBodyLogLength = 300
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Store API tokens are opaque hex strings, not only JWTs
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_.=+/]+`)

	// Media provider signing material and API keys in query strings or form bodies
	secretParamPattern = regexp.MustCompile(`(?i)(api[_-]?secret|api[_-]?key|signature|token)=[^;&\s"]+`)

	// Same, in JSON bodies echoed back by the store or the media provider
	secretJSONPattern = regexp.MustCompile(`(?i)"(api_secret|api_key|signature|token)"\s*:\s*"[^"]*"`)

	// Connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging the ledger DSN
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain credentials.
// Use this before logging any error from the store, the media provider or the ledger.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText redacts credentials from arbitrary text such as response bodies.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = secretParamPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = secretJSONPattern.ReplaceAllString(sanitized, `"${1}":"`+RedactedText+`"`)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeBody truncates and sanitizes a remote response body for logging
func SanitizeBody(body []byte) string {
	return TruncateString(SanitizeText(string(body)), MaxBodyLogLength)
}

// TruncateString truncates a string to maxLen runes and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
