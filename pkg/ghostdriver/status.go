package ghostdriver

import (
	"net/http"
	"runtime"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Revision  string
	Time      string
	OSVersion string
}

type statusValue struct {
	Build   buildValue `json:"build"`
	OS      osValue    `json:"os"`
	Ready   bool       `json:"ready"`
	Message string     `json:"message"`
}

type buildValue struct {
	Version  string `json:"version"`
	Revision string `json:"revision"`
	Time     string `json:"time"`
}

type osValue struct {
	Name    string `json:"name"`
	Arch    string `json:"arch"`
	Version string `json:"version"`
}

// StatusHandler serves GET /status.
type StatusHandler struct {
	info    BuildInfo
	manager *SessionManager
}

// NewStatusHandler reports info; readiness comes from manager when set.
func NewStatusHandler(info BuildInfo, manager *SessionManager) *StatusHandler {
	return &StatusHandler{info: info, manager: manager}
}

func (h *StatusHandler) Handle(w http.ResponseWriter, req *Request) error {
	return MethodHandler{http.MethodGet: h.get}.Handle(w, req)
}

func (h *StatusHandler) get(w http.ResponseWriter, _ *Request) error {
	ready, message := true, "ghostdriver is ready"
	if h.manager != nil && !h.manager.Accepting() {
		ready, message = false, "ghostdriver is not accepting new sessions"
	}
	return respond(w, "", statusValue{
		Build: buildValue{
			Version:  orUnknown(h.info.Version),
			Revision: orUnknown(h.info.Revision),
			Time:     orUnknown(h.info.Time),
		},
		OS: osValue{
			Name:    runtime.GOOS,
			Arch:    runtime.GOARCH,
			Version: orUnknown(h.info.OSVersion),
		},
		Ready:   ready,
		Message: message,
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
