// Package exitcode defines the process exit codes used by entraguard.
//
// Scripts and CI pipelines key off these values, so they are stable:
//
//	0  success
//	1  generic failure
//	2  template validation failure
//	3  authentication failure
//	4  run completed with degraded probes or failed steps
//	5  fatal error before any work could start
package exitcode

import (
	"errors"
	"strings"

	"github.com/entraguard/entraguard/internal/graphauth"
	"github.com/entraguard/entraguard/internal/template"
)

const (
	OK         = 0
	Generic    = 1
	Validation = 2
	Auth       = 3
	Degraded   = 4
	Fatal      = 5
)

type Error struct {
	Code  int
	Cause error
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Cause: err}
}

func Of(err error) int {
	if err == nil {
		return OK
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	var authErr *graphauth.AuthError
	if errors.As(err, &authErr) {
		return Auth
	}

	var validationErrs template.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Validation
	}

	// Fallback: string-based classification for errors not yet wrapped with
	// typed codes. Each case here is a candidate for future replacement with
	// a typed error.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "credential"):
		return Auth
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid"):
		return Validation
	default:
		return Generic
	}
}
