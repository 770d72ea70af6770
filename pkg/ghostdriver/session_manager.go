package ghostdriver

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	"github.com/odvcencio/ghostdriver/pkg/bus"
	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
	"github.com/odvcencio/ghostdriver/pkg/observability"
	"github.com/odvcencio/ghostdriver/pkg/session"
)

const maxIDAttempts = 5

// Deletion reasons reported in metrics and lifecycle events.
const (
	ReasonClient   = "client"
	ReasonFatal    = "fatal"
	ReasonShutdown = "shutdown"
)

var (
	errTooManySessions = stdliberrors.New("maximum number of sessions reached")
	errManagerClosed   = stdliberrors.New("session manager is shut down")
)

// ManagerConfig configures a SessionManager.
type ManagerConfig struct {
	// MaxSessions limits concurrent sessions; zero means unlimited.
	MaxSessions    int
	Timeouts       Timeouts
	CommandTimeout time.Duration
	// Capabilities are the server defaults requested capabilities overlay.
	Capabilities browser.Capabilities
	IDs          session.IDGenerator
	Events       *bus.EventPublisher
	Logger       *zap.Logger
}

// SessionManager owns the table of live sessions.
type SessionManager struct {
	runtime browser.Runtime
	cfg     ManagerConfig
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	handlers map[string]*SessionRequestHandler
	// reserved holds ids of sessions whose backend is still starting.
	reserved map[string]struct{}
	closed   bool
}

// NewSessionManager creates a manager that starts backends on runtime.
func NewSessionManager(runtime browser.Runtime, cfg ManagerConfig) *SessionManager {
	if cfg.IDs == nil {
		cfg.IDs = session.UUIDGenerator{}
	}
	return &SessionManager{
		runtime:  runtime,
		cfg:      cfg,
		logger:   observability.Component(cfg.Logger, "session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
		handlers: make(map[string]*SessionRequestHandler),
		reserved: make(map[string]struct{}),
	}
}

// CreateSession starts a backend and registers a session for it. On failure
// nothing is added to the table.
func (m *SessionManager) CreateSession(ctx context.Context, requested browser.Capabilities) (*Session, error) {
	id, err := m.reserve()
	if err != nil {
		observability.SessionsCreated.WithLabelValues("failure").Inc()
		return nil, apperrors.SessionNotCreated(err)
	}

	caps := m.cfg.Capabilities.Merge(requested)
	backend, err := m.runtime.NewSession(ctx, caps)
	if err != nil {
		m.unreserve(id)
		observability.SessionsCreated.WithLabelValues("failure").Inc()
		m.logger.Warn("backend failed to start", zap.Error(err))
		return nil, apperrors.SessionNotCreated(err)
	}

	s := newSession(id, caps, backend, m.cfg.Timeouts, m.cfg.CommandTimeout, session.WindowHandle(id), m.now())

	m.mu.Lock()
	delete(m.reserved, id)
	if m.closed {
		m.mu.Unlock()
		_ = backend.Close()
		observability.SessionsCreated.WithLabelValues("failure").Inc()
		return nil, apperrors.SessionNotCreated(errManagerClosed)
	}
	m.sessions[id] = s
	m.mu.Unlock()

	observability.SessionsCreated.WithLabelValues("success").Inc()
	observability.SessionsActive.Inc()
	m.logger.Info("session created", zap.String("session_id", id))
	m.publish(ctx, bus.SessionEvent{Type: bus.EventSessionCreated, SessionID: id, Capabilities: caps.Clone()})
	return s, nil
}

// reserve picks an unused id and holds a slot for it.
func (m *SessionManager) reserve() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", errManagerClosed
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions)+len(m.reserved) >= m.cfg.MaxSessions {
		return "", fmt.Errorf("%w (%d)", errTooManySessions, m.cfg.MaxSessions)
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := m.cfg.IDs.NewID()
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		if id == "" {
			continue
		}
		if _, taken := m.sessions[id]; taken {
			continue
		}
		if _, taken := m.reserved[id]; taken {
			continue
		}
		m.reserved[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("no unique session id after %d attempts", maxIDAttempts)
}

func (m *SessionManager) unreserve(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, id)
}

// Session looks up a live session.
func (m *SessionManager) Session(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Sessions returns the live sessions ordered by creation time.
func (m *SessionManager) Sessions() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id < out[j].id
		}
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}

// Accepting reports whether a new session could be created right now.
func (m *SessionManager) Accepting() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	return m.cfg.MaxSessions <= 0 || len(m.sessions)+len(m.reserved) < m.cfg.MaxSessions
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SessionRequestHandler returns the handler bound to session id, creating it
// on first use.
func (m *SessionManager) SessionRequestHandler(id string) (*SessionRequestHandler, bool) {
	m.mu.RLock()
	h, ok := m.handlers[id]
	m.mu.RUnlock()
	if ok {
		return h, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if h, ok := m.handlers[id]; ok {
		return h, true
	}
	h = newSessionRequestHandler(s, m)
	m.handlers[id] = h
	return h, true
}

// DeleteSession waits for any in-flight command, then closes the backend
// and forgets the session. Deleting an unknown id is a no-op.
func (m *SessionManager) DeleteSession(ctx context.Context, id string) error {
	return m.destroy(ctx, id, ReasonClient)
}

func (m *SessionManager) destroy(ctx context.Context, id, reason string) error {
	s, ok := m.Session(id)
	if !ok {
		return nil
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return fmt.Errorf("wait for session %s: %w", id, err)
	}
	defer release()

	m.mu.Lock()
	if cur, ok := m.sessions[id]; !ok || cur != s {
		m.mu.Unlock()
		return nil
	}
	delete(m.sessions, id)
	delete(m.handlers, id)
	m.mu.Unlock()

	closeErr := s.close()
	observability.SessionsActive.Dec()
	observability.SessionsDeleted.WithLabelValues(reason).Inc()
	if closeErr != nil {
		m.logger.Warn("backend close failed", zap.String("session_id", id), zap.Error(closeErr))
	}
	m.logger.Info("session deleted", zap.String("session_id", id), zap.String("reason", reason))
	m.publish(ctx, bus.SessionEvent{Type: bus.EventSessionDeleted, SessionID: id, Reason: reason})
	return nil
}

// Close refuses new sessions and destroys every live one concurrently.
func (m *SessionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return m.destroy(ctx, id, ReasonShutdown)
		})
	}
	return g.Wait()
}

func (m *SessionManager) publish(ctx context.Context, evt bus.SessionEvent) {
	if err := m.cfg.Events.Publish(context.WithoutCancel(ctx), evt); err != nil {
		m.logger.Warn("failed to publish session event", zap.String("type", evt.Type), zap.Error(err))
	}
}
