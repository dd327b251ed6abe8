package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a directory error into the categories the rest of the
// tool acts on. Probe and step failures carry a Kind so callers can tell a
// permission gap from a throttle without parsing message text.
type Kind string

const (
	KindPermissionDenied Kind = "permissionDenied"
	KindNotFound         Kind = "notFound"
	KindThrottled        Kind = "throttled"
	KindConflict         Kind = "conflict"
	KindValidation       Kind = "validation"
	KindUnknown          Kind = "unknown"
)

// Error is a directory API error carried as a value.
type Error struct {
	Kind       Kind   `json:"kind"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a directory error with an explicit kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FromStatus maps an HTTP status code to a classified error.
func FromStatus(status int, message string) *Error {
	return &Error{Kind: kindForStatus(status), StatusCode: status, Message: message}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusForbidden, http.StatusUnauthorized:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return KindThrottled
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest:
		return KindValidation
	default:
		return KindUnknown
	}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a classified not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a classified conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
