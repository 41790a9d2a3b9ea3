package store

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/logging"
)

// Error is a non-success response from the store.
type Error struct {
	Op         string
	Collection string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s returned status %d: %s", e.Op, e.Collection, e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed when repeated.
func (e *Error) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Unwrap maps status codes onto the shared sentinels.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	}
	return nil
}

// newError extracts the store's error message ({"error": {"message": ...}}) or falls
// back to the sanitized, truncated body.
func newError(op, collection string, status int, body []byte) *Error {
	var envelope struct {
		Error struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
		if envelope.Error.Name != "" {
			msg = envelope.Error.Name + ": " + msg
		}
	}
	if msg == "" {
		msg = string(body)
	}
	return &Error{
		Op:         op,
		Collection: collection,
		StatusCode: status,
		Message:    logging.TruncateString(logging.SanitizeText(msg), logging.MaxBodyLogLength),
	}
}
