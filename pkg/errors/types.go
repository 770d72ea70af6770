// Package errors defines the WebDriver protocol error taxonomy. Every error a
// handler returns to the router is an *Error, which knows how to render itself
// as an HTTP status plus a JSON envelope.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
)

// Kind is the protocol error variant.
type Kind int

const (
	KindInternal Kind = iota
	KindUnknownCommand
	KindVariableResourceNotFound
	KindInvalidCommandMethod
	KindInvalidParameters
	KindBackendFailure
)

// String returns the stable variant name used in logs and the "error" field.
func (k Kind) String() string {
	switch k {
	case KindUnknownCommand:
		return "UnknownCommand"
	case KindVariableResourceNotFound:
		return "VariableResourceNotFound"
	case KindInvalidCommandMethod:
		return "InvalidCommandMethod"
	case KindInvalidParameters:
		return "InvalidParameters"
	case KindBackendFailure:
		return "BackendFailure"
	default:
		return "InternalInconsistency"
	}
}

// ErrorCode is a stable machine-readable code.
type ErrorCode string

const (
	ErrCodeUnknownCommand        ErrorCode = "unknown command"
	ErrCodeNoSuchSession         ErrorCode = "invalid session id"
	ErrCodeNoSuchElement         ErrorCode = "no such element"
	ErrCodeStaleElement          ErrorCode = "stale element reference"
	ErrCodeUnknownMethod         ErrorCode = "unknown method"
	ErrCodeInvalidArgument       ErrorCode = "invalid argument"
	ErrCodeInvalidSelector       ErrorCode = "invalid selector"
	ErrCodeJavaScript            ErrorCode = "javascript error"
	ErrCodeScriptTimeout         ErrorCode = "script timeout"
	ErrCodeTimeout               ErrorCode = "timeout"
	ErrCodeInvalidCookieDomain   ErrorCode = "invalid cookie domain"
	ErrCodeUnableToSetCookie     ErrorCode = "unable to set cookie"
	ErrCodeElementNotVisible     ErrorCode = "element not interactable"
	ErrCodeInvalidElementState   ErrorCode = "invalid element state"
	ErrCodeSessionNotCreated     ErrorCode = "session not created"
	ErrCodeUnknownError          ErrorCode = "unknown error"
	ErrCodeInternalInconsistency ErrorCode = "internal inconsistency"
)

// JSON wire protocol status codes.
const (
	StatusSuccess               = 0
	StatusNoSuchDriver          = 6
	StatusNoSuchElement         = 7
	StatusUnknownCommand        = 9
	StatusStaleElementReference = 10
	StatusElementNotVisible     = 11
	StatusInvalidElementState   = 12
	StatusUnknownError          = 13
	StatusJavaScriptError       = 17
	StatusTimeout               = 21
	StatusInvalidCookieDomain   = 24
	StatusUnableToSetCookie     = 25
	StatusScriptTimeout         = 28
	StatusInvalidSelector       = 32
	StatusSessionNotCreated     = 33
)

// Error is a protocol error.
type Error struct {
	Kind       Kind
	Code       ErrorCode
	Message    string
	HTTPStatus int
	// Status is the nonzero JSON wire status code.
	Status     int
	SessionID  string
	Request    string
	Underlying error
	Context    map[string]any
	Stack      []Frame
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

func newError(kind Kind, code ErrorCode, httpStatus, status int, message string) *Error {
	return &Error{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Status:     status,
		Context:    make(map[string]any),
		Stack:      captureStack(3),
	}
}

// UnknownCommand reports a path that matches no route.
func UnknownCommand(r *http.Request) *Error {
	return newError(KindUnknownCommand, ErrCodeUnknownCommand, http.StatusNotFound, StatusUnknownCommand,
		"Unknown command: "+describe(r)).WithRequest(r)
}

// SessionNotFound reports a session id that is not live.
func SessionNotFound(r *http.Request, id string) *Error {
	return newError(KindVariableResourceNotFound, ErrCodeNoSuchSession, http.StatusNotFound, StatusNoSuchDriver,
		fmt.Sprintf("Variable Resource Not Found: session %q not found", id)).WithRequest(r)
}

// ElementNotFound reports an element reference the session never issued.
func ElementNotFound(r *http.Request, id string) *Error {
	return newError(KindVariableResourceNotFound, ErrCodeStaleElement, http.StatusNotFound, StatusStaleElementReference,
		fmt.Sprintf("Variable Resource Not Found: element %q not found", id)).WithRequest(r)
}

// InvalidCommandMethod reports a known path requested with an unsupported method.
func InvalidCommandMethod(r *http.Request) *Error {
	return newError(KindInvalidCommandMethod, ErrCodeUnknownMethod, http.StatusMethodNotAllowed, StatusUnknownCommand,
		"Invalid Command Method: "+describe(r)).WithRequest(r)
}

// InvalidParameters reports a missing or malformed request body field.
func InvalidParameters(format string, args ...any) *Error {
	return newError(KindInvalidParameters, ErrCodeInvalidArgument, http.StatusBadRequest, StatusUnknownError,
		"Missing Command Parameters: "+fmt.Sprintf(format, args...))
}

// SessionNotCreated reports a backend that could not be started.
func SessionNotCreated(err error) *Error {
	e := newError(KindBackendFailure, ErrCodeSessionNotCreated, http.StatusInternalServerError, StatusSessionNotCreated,
		"Session Not Created")
	e.Underlying = err
	return e
}

// Internal reports a fault outside the taxonomy.
func Internal(err error) *Error {
	e := newError(KindInternal, ErrCodeInternalInconsistency, http.StatusInternalServerError, StatusUnknownError,
		"Internal Server Error")
	e.Underlying = err
	return e
}

// New creates a backend failure with an explicit code and wire status.
func New(code ErrorCode, status int, message string) *Error {
	httpStatus := http.StatusInternalServerError
	if status == StatusTimeout || status == StatusScriptTimeout {
		httpStatus = http.StatusRequestTimeout
	}
	return newError(KindBackendFailure, code, httpStatus, status, message)
}

// Wrap wraps an existing error as a backend failure.
func Wrap(err error, code ErrorCode, status int, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, status, message)
	e.Underlying = err
	e.Stack = captureStack(2)
	return e
}

// WithContext adds context key-value pairs to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithSession records the session the error belongs to.
func (e *Error) WithSession(id string) *Error {
	if e.SessionID == "" {
		e.SessionID = id
	}
	return e
}

// WithRequest attaches the originating request for diagnostics.
func (e *Error) WithRequest(r *http.Request) *Error {
	if r != nil && e.Request == "" {
		e.Request = describe(r)
	}
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, e.Context[k]))
		}
		sb.WriteString("}")
	}

	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}

	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Envelope is the JSON body of every WebDriver response.
type Envelope struct {
	SessionID *string `json:"sessionId"`
	Status    int     `json:"status"`
	Value     any     `json:"value"`
}

type failureValue struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

// Body returns the error envelope the client receives.
func (e *Error) Body() Envelope {
	msg := e.Message
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	env := Envelope{
		Status: e.Status,
		Value: failureValue{
			Message: msg,
			Error:   string(e.Code),
			Kind:    e.Kind.String(),
		},
	}
	if e.SessionID != "" {
		id := e.SessionID
		env.SessionID = &id
	}
	return env
}

// Render writes the status line, headers and JSON body.
func (e *Error) Render(w http.ResponseWriter) {
	data, err := json.Marshal(e.Body())
	if err != nil {
		// Last resort: the body above only holds strings and ints.
		http.Error(w, fmt.Sprintf("%s - %s", e.Kind, e.Message), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(e.HTTPStatus)
	_, _ = w.Write(data)
}

// StackTrace returns a formatted stack trace
func (e *Error) StackTrace() string {
	var sb strings.Builder

	sb.WriteString("Stack trace:\n")
	for i, frame := range e.Stack {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, frame.String()))
		sb.WriteString(fmt.Sprintf("     %s:%d\n", frame.File, frame.Line))
	}

	return sb.String()
}

// String formats a stack frame
func (f Frame) String() string {
	return f.Function
}

func describe(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.Method + " " + r.URL.Path
}

// captureStack captures the current call stack
func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr

	n := runtime.Callers(skip+1, pcs[:])
	frames := make([]Frame, 0, n)

	for i := 0; i < n; i++ {
		pc := pcs[i]
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		file, line := fn.FileLine(pc)

		frames = append(frames, Frame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}

// IsKind checks if an error is a protocol error of the given kind
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// As extracts the protocol error from err's chain.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
