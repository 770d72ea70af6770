package browser

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable         = errors.New("browser runtime unavailable")
	ErrSessionClosed       = errors.New("browser session closed")
	ErrNoSuchElement       = errors.New("no such element")
	ErrStaleElement        = errors.New("stale element reference")
	ErrJavaScript          = errors.New("javascript error")
	ErrScriptTimeout       = errors.New("script timeout")
	ErrOperationTimeout    = errors.New("operation timeout")
	ErrInvalidSelector     = errors.New("invalid selector")
	ErrInvalidCookie       = errors.New("invalid cookie domain")
	ErrUnableToSetCookie   = errors.New("unable to set cookie")
	ErrElementNotVisible   = errors.New("element not visible")
	ErrInvalidElementState = errors.New("invalid element state")
)

// BackendError wraps errors from an automation backend with additional context.
type BackendError struct {
	Op      string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend error [%s]: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("backend error [%s]: %s", e.Op, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a new BackendError.
func NewBackendError(op, message string) *BackendError {
	return &BackendError{Op: op, Message: message}
}

// WrapBackendError wraps an existing error with backend context.
func WrapBackendError(op, message string, err error) *BackendError {
	return &BackendError{Op: op, Message: message, Err: err}
}

// IsFatal reports whether the error means the backend can no longer be used
// and the owning session should be torn down.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrUnavailable)
}
