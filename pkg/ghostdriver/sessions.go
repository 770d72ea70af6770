package ghostdriver

import (
	"net/http"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
)

type newSessionBody struct {
	DesiredCapabilities  map[string]any   `json:"desiredCapabilities"`
	RequiredCapabilities map[string]any   `json:"requiredCapabilities"`
	Capabilities         *w3cCapabilities `json:"capabilities"`
}

type w3cCapabilities struct {
	AlwaysMatch map[string]any   `json:"alwaysMatch"`
	FirstMatch  []map[string]any `json:"firstMatch"`
}

// requested flattens either request shape into one capability set. W3C
// values are applied first so JSON-wire values win when both are sent.
func (b newSessionBody) requested() browser.Capabilities {
	caps := browser.Capabilities{}
	if b.Capabilities != nil {
		caps = caps.Merge(b.Capabilities.AlwaysMatch)
		if len(b.Capabilities.FirstMatch) > 0 {
			caps = caps.Merge(b.Capabilities.FirstMatch[0])
		}
	}
	caps = caps.Merge(b.DesiredCapabilities)
	return caps.Merge(b.RequiredCapabilities)
}

type sessionSummary struct {
	ID           string               `json:"id"`
	Capabilities browser.Capabilities `json:"capabilities"`
}

// sessionsHandler serves the session collection and single-session
// resources: POST /session, GET /sessions, GET and DELETE /session/:id.
type sessionsHandler struct {
	manager *SessionManager
}

func (h *sessionsHandler) Handle(w http.ResponseWriter, req *Request) error {
	switch {
	case len(req.URL.Chunks) == 1 && req.URL.Chunks[0] == "sessions":
		return MethodHandler{http.MethodGet: h.list}.Handle(w, req)
	case len(req.URL.Chunks) == 1 && req.URL.Chunks[0] == "session":
		return MethodHandler{http.MethodPost: h.create}.Handle(w, req)
	case len(req.URL.Chunks) == 2 && req.URL.Directory == "/session/":
		return MethodHandler{
			http.MethodGet:    h.get,
			http.MethodDelete: h.delete,
		}.Handle(w, req)
	}
	return apperrors.UnknownCommand(req.HTTP)
}

func (h *sessionsHandler) create(w http.ResponseWriter, req *Request) error {
	var body newSessionBody
	if err := req.Decode(&body); err != nil {
		return err
	}
	s, err := h.manager.CreateSession(req.HTTP.Context(), body.requested())
	if err != nil {
		return err
	}
	return respond(w, s.ID(), s.Capabilities())
}

func (h *sessionsHandler) list(w http.ResponseWriter, _ *Request) error {
	sessions := h.manager.Sessions()
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{ID: s.ID(), Capabilities: s.Capabilities()})
	}
	return respond(w, "", out)
}

func (h *sessionsHandler) get(w http.ResponseWriter, req *Request) error {
	id := req.URL.File
	s, ok := h.manager.Session(id)
	if !ok {
		return apperrors.SessionNotFound(req.HTTP, id)
	}
	return respond(w, id, s.Capabilities())
}

func (h *sessionsHandler) delete(w http.ResponseWriter, req *Request) error {
	id := req.URL.File
	if _, ok := h.manager.Session(id); !ok {
		return apperrors.SessionNotFound(req.HTTP, id)
	}
	if err := h.manager.DeleteSession(req.HTTP.Context(), id); err != nil {
		return err
	}
	return respond(w, id, nil)
}
