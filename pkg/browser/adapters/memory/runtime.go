// Package memory is an in-process browser backend that serves scripted pages.
// It has no rendering engine; it exists so the server can run without a
// browser and so handlers can be exercised end to end in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

// Page is a scripted document served for a URL.
type Page struct {
	Title string
	Body  []*Node
}

// ScriptFunc evaluates a script for a backend. Returning errNoCallback from
// an async evaluation makes the script run until its deadline.
type ScriptFunc func(ctx context.Context, b *Backend, script string, args []any) (any, error)

// Runtime creates memory backends sharing one set of pages.
type Runtime struct {
	mu       sync.RWMutex
	pages    map[string]Page
	script   ScriptFunc
	latency  time.Duration
	newErr   error
	closed   bool
	sessions map[*Backend]struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithPage registers a page for url.
func WithPage(url string, page Page) Option {
	return func(r *Runtime) { r.pages[url] = page }
}

// WithScript replaces the default script evaluator.
func WithScript(fn ScriptFunc) Option {
	return func(r *Runtime) { r.script = fn }
}

// WithLatency delays every backend call by d, honoring the call's context.
func WithLatency(d time.Duration) Option {
	return func(r *Runtime) { r.latency = d }
}

// WithNewSessionError makes NewSession fail with err.
func WithNewSessionError(err error) Option {
	return func(r *Runtime) { r.newErr = err }
}

// NewRuntime creates a memory runtime.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		pages:    make(map[string]Page),
		script:   defaultScript,
		sessions: make(map[*Backend]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddPage registers or replaces the page served for url.
func (r *Runtime) AddPage(url string, page Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[url] = page
}

func (r *Runtime) page(url string) (Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[url]
	return p, ok
}

// NewSession returns a fresh backend positioned at about:blank.
func (r *Runtime) NewSession(ctx context.Context, caps browser.Capabilities) (browser.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	closed, newErr := r.closed, r.newErr
	r.mu.RUnlock()
	if closed {
		return nil, browser.ErrUnavailable
	}
	if newErr != nil {
		return nil, newErr
	}

	b := newBackend(r, caps)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, browser.ErrUnavailable
	}
	r.sessions[b] = struct{}{}
	return b, nil
}

// Sessions reports how many backends are open.
func (r *Runtime) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Runtime) release(b *Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, b)
}

// Close marks the runtime unavailable and closes any open backends.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	open := make([]*Backend, 0, len(r.sessions))
	for b := range r.sessions {
		open = append(open, b)
	}
	r.sessions = make(map[*Backend]struct{})
	r.mu.Unlock()

	for _, b := range open {
		b.markClosed()
	}
	return nil
}

var _ browser.Runtime = (*Runtime)(nil)
