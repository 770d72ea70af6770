package ghostdriver

import "net/http"

// ShutdownHandler serves GET /shutdown. It only acknowledges; the router
// signals the server loop once the response is flushed.
type ShutdownHandler struct{}

func (ShutdownHandler) Handle(w http.ResponseWriter, req *Request) error {
	return MethodHandler{
		http.MethodGet: func(w http.ResponseWriter, _ *Request) error {
			return respond(w, "", "Server is shutting down")
		},
	}.Handle(w, req)
}
