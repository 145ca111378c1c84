package supervisor

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeSpawnFailed     = "SPAWN_FAILED"
	ErrCodeUnexpectedExit  = "UNEXPECTED_EXIT"
	ErrCodeShutdownTimeout = "SHUTDOWN_TIMEOUT"
	ErrCodeRestartLimit    = "RESTART_LIMIT"
)

// ErrSupervisorStopped is returned when a request reaches a supervisor that
// has shut down or given up.
var ErrSupervisorStopped = errors.New("supervisor stopped")

// Error is a supervisor failure with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of a supervisor Error in err's chain, or "".
func ErrorCode(err error) string {
	var supErr *Error
	if errors.As(err, &supErr) {
		return supErr.Code
	}
	return ""
}
