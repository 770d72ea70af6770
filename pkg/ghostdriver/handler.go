package ghostdriver

import (
	"net/http"

	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
)

// Handler serves one WebDriver resource. It either writes exactly one
// success response and returns nil, or writes nothing and returns an error
// for the router to render.
type Handler interface {
	Handle(w http.ResponseWriter, req *Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w http.ResponseWriter, req *Request) error

// Handle calls f.
func (f HandlerFunc) Handle(w http.ResponseWriter, req *Request) error {
	return f(w, req)
}

// MethodHandler dispatches on the HTTP method.
type MethodHandler map[string]HandlerFunc

// Handle runs the function registered for the request method, or fails with
// InvalidCommandMethod.
func (m MethodHandler) Handle(w http.ResponseWriter, req *Request) error {
	fn, ok := m[req.Method()]
	if !ok {
		return apperrors.InvalidCommandMethod(req.HTTP)
	}
	return fn(w, req)
}
