package ghostdriver

import (
	"context"
	stdliberrors "errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
	"github.com/odvcencio/ghostdriver/pkg/observability"
)

type timeoutKind int

const (
	timeoutCommand timeoutKind = iota
	timeoutPageLoad
	timeoutScript
	timeoutFind
)

// command is one matched sub-resource invocation.
type command struct {
	req     *Request
	params  map[string]string
	session *Session
	handler *SessionRequestHandler
}

func (c *command) param(name string) string {
	return c.params[name]
}

type commandFunc func(ctx context.Context, b browser.Backend, c *command) (any, error)

type operation struct {
	name    string
	timeout timeoutKind
	run     commandFunc
}

type route struct {
	pattern []string
	methods map[string]operation
}

func (r route) match(chunks []string) (map[string]string, bool) {
	if len(chunks) != len(r.pattern) {
		return nil, false
	}
	var params map[string]string
	for i, p := range r.pattern {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = chunks[i]
			continue
		}
		if p != chunks[i] {
			return nil, false
		}
	}
	return params, true
}

// SessionRequestHandler serves /session/:id/... for one session. Paths it
// sees are relative to the session.
type SessionRequestHandler struct {
	session *Session
	manager *SessionManager
	logger  *zap.Logger
	routes  []route

	// issued holds the element ids handed out since the last navigation;
	// retired holds those from the page before. Accessed only while holding
	// the session scope.
	issued  map[browser.ElementID]struct{}
	retired map[browser.ElementID]struct{}
}

func newSessionRequestHandler(s *Session, m *SessionManager) *SessionRequestHandler {
	return &SessionRequestHandler{
		session: s,
		manager: m,
		logger:  m.logger.With(zap.String("session_id", s.ID())),
		routes:  sessionRoutes(),
		issued:  make(map[browser.ElementID]struct{}),
	}
}

// retire is called after the page changes. Ids from the previous page keep
// answering as stale until the next navigation drops them.
func (h *SessionRequestHandler) retire() {
	h.retired = h.issued
	h.issued = make(map[browser.ElementID]struct{})
}

func (h *SessionRequestHandler) Handle(w http.ResponseWriter, req *Request) error {
	id := h.session.ID()
	var (
		op     operation
		params map[string]string
		known  bool
		found  bool
	)
	for _, rt := range h.routes {
		p, ok := rt.match(req.URL.Chunks)
		if !ok {
			continue
		}
		known = true
		if o, ok := rt.methods[req.Method()]; ok {
			op, params, found = o, p, true
			break
		}
	}
	if !known {
		return apperrors.UnknownCommand(req.HTTP).WithSession(id)
	}
	if !found {
		return apperrors.InvalidCommandMethod(req.HTTP).WithSession(id)
	}

	ctx, span := observability.StartSpan(req.HTTP.Context(), "webdriver."+op.name,
		trace.WithAttributes(
			observability.AttrSessionID.String(id),
			observability.AttrCommand.String(op.name),
			observability.AttrHTTPMethod.String(req.Method()),
			observability.AttrHTTPPath.String(req.HTTP.URL.Path),
		),
	)
	if eid := params["eid"]; eid != "" {
		span.SetAttributes(observability.AttrElementID.String(eid))
	}

	c := &command{req: req, params: params, session: h.session, handler: h}
	start := time.Now()
	var value any
	err := h.session.Do(ctx, h.timeout(op.timeout), func(ctx context.Context, b browser.Backend) error {
		v, err := op.run(ctx, b, c)
		value = v
		return err
	})
	observability.CommandLatency.WithLabelValues(op.name).Observe(time.Since(start).Seconds())

	if err != nil {
		perr := h.translate(ctx, req, err)
		span.SetAttributes(observability.AttrWireStatus.Int(perr.Status))
		observability.EndSpan(span, perr)
		observability.CommandsTotal.WithLabelValues(op.name, "failure").Inc()
		return perr
	}
	span.SetAttributes(observability.AttrWireStatus.Int(apperrors.StatusSuccess))
	observability.EndSpan(span, nil)
	observability.CommandsTotal.WithLabelValues(op.name, "success").Inc()
	return respond(w, id, value)
}

// timeout returns the deadline for an operation of the given kind. Zero
// defers to the session's command timeout.
func (h *SessionRequestHandler) timeout(kind timeoutKind) time.Duration {
	t := h.session.Timeouts()
	switch kind {
	case timeoutPageLoad:
		return t.PageLoad
	case timeoutScript:
		return t.Script
	case timeoutFind:
		if t.Implicit > 0 {
			return t.Implicit + h.session.commandTimeout
		}
	}
	return 0
}

// translate converts a command failure into a protocol error and tears the
// session down when the backend is gone for good.
func (h *SessionRequestHandler) translate(ctx context.Context, req *Request, err error) *apperrors.Error {
	id := h.session.ID()
	if stdliberrors.Is(err, errSessionGone) {
		return apperrors.SessionNotFound(req.HTTP, id).WithSession(id)
	}
	if browser.IsFatal(err) {
		observability.WithTrace(ctx, h.logger).Warn("backend lost, destroying session", zap.Error(err))
		if derr := h.manager.destroy(context.WithoutCancel(ctx), id, ReasonFatal); derr != nil {
			h.logger.Error("failed to destroy session", zap.Error(derr))
		}
	}
	return apperrors.FromBackend(err).WithSession(id).WithRequest(req.HTTP)
}
