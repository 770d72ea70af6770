package ghostdriver

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
	"github.com/odvcencio/ghostdriver/pkg/observability"
)

// Router is the single entry point for WebDriver commands. It matches the
// top-level resource, delegates, and renders any error exactly once.
type Router struct {
	status   Handler
	shutdown Handler
	sessions Handler
	manager  *SessionManager
	logger   *zap.Logger

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewRouter wires the leaf handlers and the session manager.
func NewRouter(status, shutdown Handler, manager *SessionManager, logger *zap.Logger) *Router {
	return &Router{
		status:     status,
		shutdown:   shutdown,
		sessions:   &sessionsHandler{manager: manager},
		manager:    manager,
		logger:     observability.Component(logger, "router"),
		shutdownCh: make(chan struct{}),
	}
}

// ShutdownRequested is closed after a /shutdown response has been flushed.
func (rt *Router) ShutdownRequested() <-chan struct{} {
	return rt.shutdownCh
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tw := &trackingWriter{ResponseWriter: w}
	req := NewRequest(r)

	var shutdown bool
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				rt.logger.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()),
				)
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		shutdown, err = rt.dispatch(tw, req)
		return err
	}()

	if err != nil {
		rt.fail(tw, req, err)
		shutdown = false
	}
	observability.HTTPResponses.WithLabelValues(strconv.Itoa(tw.statusCode())).Inc()

	if shutdown {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		rt.shutdownOnce.Do(func() { close(rt.shutdownCh) })
	}
}

// Handle routes req without rendering errors, so a Router can itself be
// the target of a reroute.
func (rt *Router) Handle(w http.ResponseWriter, req *Request) error {
	_, err := rt.dispatch(w, req)
	return err
}

func (rt *Router) dispatch(w http.ResponseWriter, req *Request) (shutdown bool, err error) {
	u := req.URL
	switch {
	case len(u.Chunks) == 1 && u.Chunks[0] == "status":
		return false, rt.status.Handle(w, req)

	case len(u.Chunks) == 1 && u.Chunks[0] == "shutdown":
		if err := rt.shutdown.Handle(w, req); err != nil {
			return false, err
		}
		return true, nil

	case len(u.Chunks) == 1 && (u.Chunks[0] == "session" || u.Chunks[0] == "sessions"),
		u.Directory == "/session/":
		return false, rt.sessions.Handle(w, req)

	case len(u.Chunks) >= 2 && u.Chunks[0] == "session":
		id := u.Chunks[1]
		h, ok := rt.manager.SessionRequestHandler(id)
		if !ok {
			return false, apperrors.SessionNotFound(req.HTTP, id)
		}
		return false, Reroute(w, req, "/session/"+id, h)
	}
	return false, apperrors.UnknownCommand(req.HTTP)
}

// fail renders err. Errors outside the protocol taxonomy become internal
// errors; nothing is written if the handler already started a response.
func (rt *Router) fail(w *trackingWriter, req *Request, err error) {
	perr, ok := apperrors.As(err)
	if !ok {
		observability.InternalErrors.Inc()
		rt.logger.Error("internal inconsistency",
			zap.String("method", req.Method()),
			zap.String("path", req.HTTP.URL.Path),
			zap.Error(err),
		)
		perr = apperrors.Internal(err).WithRequest(req.HTTP)
	} else {
		rt.logger.Debug("command failed",
			zap.String("method", req.Method()),
			zap.String("path", req.HTTP.URL.Path),
			zap.String("kind", perr.Kind.String()),
			zap.Int("status", perr.Status),
			zap.Error(err),
		)
	}

	if w.wrote {
		rt.logger.Error("error after response was written",
			zap.String("path", req.HTTP.URL.Path),
			zap.Error(err),
		)
		return
	}
	perr.Render(w)
}

// trackingWriter records whether a response has been started.
type trackingWriter struct {
	http.ResponseWriter
	wrote  bool
	status int
}

func (w *trackingWriter) WriteHeader(code int) {
	if !w.wrote {
		w.wrote = true
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.wrote = true
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *trackingWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
