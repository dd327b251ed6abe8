package output

import "fmt"

// CLIError is a user-facing error with an optional suggested fix.
type CLIError struct {
	Message string
	Cause   error
	Fix     string
}

func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewErrorWithFix creates a CLIError with a message and suggested fix.
func NewErrorWithFix(message, fix string) *CLIError {
	return &CLIError{Message: message, Fix: fix}
}

// WrapError wraps an existing error with context.
func WrapError(err error, message string) *CLIError {
	return &CLIError{Message: message, Cause: err}
}

// PrintError prints a formatted error to stderr with its fix suggestion.
// In JSON mode it emits a JSON error envelope instead.
func PrintError(err error) {
	if JSONMode {
		JSONError(err)
		return
	}
	if cliErr, ok := err.(*CLIError); ok {
		Error(cliErr.Message)
		if cliErr.Cause != nil {
			Debug("cause", "error", cliErr.Cause)
		}
		if cliErr.Fix != "" {
			if NoColor() {
				Info("Fix: " + cliErr.Fix)
			} else {
				Info("💡 " + cliErr.Fix)
			}
		}
		return
	}
	Error(err.Error())
}
