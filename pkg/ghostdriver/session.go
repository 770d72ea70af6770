package ghostdriver

import (
	"context"
	stdliberrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

// errSessionGone is returned to commands that waited on a session which was
// destroyed before they got their turn.
var errSessionGone = stdliberrors.New("session destroyed")

// NoTimeout as a script timeout lets scripts run without a deadline.
const NoTimeout time.Duration = -1

// Timeouts are the per-session command timeouts.
type Timeouts struct {
	Script   time.Duration
	PageLoad time.Duration
	Implicit time.Duration
}

// Session is one WebDriver session bound to a browser backend it owns.
type Session struct {
	id           string
	caps         browser.Capabilities
	backend      browser.Backend
	windowHandle string
	createdAt    time.Time

	// scope serializes commands; waiters are served in arrival order.
	scope *semaphore.Weighted

	mu             sync.Mutex
	timeouts       Timeouts
	commandTimeout time.Duration
	closed         bool
	closeOnce      sync.Once
	closeErr       error
}

func newSession(id string, caps browser.Capabilities, backend browser.Backend, timeouts Timeouts, commandTimeout time.Duration, windowHandle string, now time.Time) *Session {
	return &Session{
		id:             id,
		caps:           caps,
		backend:        backend,
		windowHandle:   windowHandle,
		createdAt:      now,
		scope:          semaphore.NewWeighted(1),
		timeouts:       timeouts,
		commandTimeout: commandTimeout,
	}
}

func (s *Session) ID() string { return s.id }

// Capabilities returns a copy of the negotiated capabilities.
func (s *Session) Capabilities() browser.Capabilities { return s.caps.Clone() }

func (s *Session) WindowHandle() string { return s.windowHandle }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Timeouts returns the current timeouts.
func (s *Session) Timeouts() Timeouts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeouts
}

// UpdateTimeouts applies fn to the session timeouts.
func (s *Session) UpdateTimeouts(fn func(*Timeouts)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.timeouts)
}

// Closed reports whether the backend has been released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// acquire waits for exclusive use of the session.
func (s *Session) acquire(ctx context.Context) (func(), error) {
	if err := s.scope.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.scope.Release(1) }, nil
}

// Do runs fn against the backend while holding the session scope. The
// context handed to fn expires after timeout, or after the default command
// timeout when timeout is zero.
func (s *Session) Do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, b browser.Backend) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if s.Closed() {
		return errSessionGone
	}
	if timeout == 0 {
		timeout = s.commandTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, s.backend)
}

// close releases the backend. Callers hold the scope.
func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.backend.Close()
	})
	return s.closeErr
}
