// Package rod drives Chrome over the DevTools protocol with go-rod. Each
// WebDriver session gets its own incognito browser context and page.
package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/odvcencio/ghostdriver/pkg/browser"
)

// Config controls how the browser is found or launched.
type Config struct {
	// DebuggerURL attaches to a running browser instead of launching one.
	DebuggerURL    string
	Bin            string
	Headless       bool
	LaunchFlags    map[string]string
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// Runtime owns the browser process (or connection) shared by all sessions.
type Runtime struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launch   *launcher.Launcher
	closed   bool
	backends map[*Backend]struct{}
}

// NewRuntime launches or attaches to a browser and connects to it.
func NewRuntime(ctx context.Context, cfg Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		cfg:      cfg,
		logger:   logger,
		backends: make(map[*Backend]struct{}),
	}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		for name, val := range cfg.LaunchFlags {
			name = strings.TrimLeft(name, "-")
			if val == "" {
				l = l.Set(flags.Flag(name))
			} else {
				l = l.Set(flags.Flag(name), val)
			}
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, browser.WrapBackendError("launch", "start chrome", errors.Join(browser.ErrUnavailable, err))
		}
		controlURL = u
		r.launch = l
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if r.launch != nil {
			r.launch.Kill()
		}
		return nil, browser.WrapBackendError("connect", "connect to chrome", errors.Join(browser.ErrUnavailable, err))
	}
	r.browser = b
	logger.Info("browser connected", zap.String("control_url", controlURL), zap.Bool("launched", r.launch != nil))
	return r, nil
}

// NewSession opens an incognito context and a blank page for one session.
func (r *Runtime) NewSession(ctx context.Context, caps browser.Capabilities) (browser.Backend, error) {
	r.mu.Lock()
	if r.closed || r.browser == nil {
		r.mu.Unlock()
		return nil, browser.ErrUnavailable
	}
	root := r.browser
	r.mu.Unlock()

	incognito, err := root.Context(ctx).Incognito()
	if err != nil {
		return nil, translate("incognito context", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = disposeContext(incognito)
		return nil, translate("create page", err)
	}

	width, height := r.cfg.ViewportWidth, r.cfg.ViewportHeight
	if v := intCap(caps, "viewportWidth"); v > 0 {
		width = v
	}
	if v := intCap(caps, "viewportHeight"); v > 0 {
		height = v
	}
	if width > 0 && height > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             width,
			Height:            height,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			r.logger.Warn("failed to set viewport", zap.Error(err))
		}
	}

	ua := r.cfg.UserAgent
	if v := caps.String("phantomjs.page.settings.userAgent"); v != "" {
		ua = v
	}
	if ua != "" {
		if err := (proto.NetworkSetUserAgentOverride{UserAgent: ua}).Call(page); err != nil {
			r.logger.Warn("failed to set user agent", zap.Error(err))
		}
	}

	b := newBackend(r, incognito, page)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = b.close()
		return nil, browser.ErrUnavailable
	}
	r.backends[b] = struct{}{}
	return b, nil
}

func (r *Runtime) release(b *Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, b)
}

// Close closes every open page, the browser connection, and the browser
// process when it was launched here.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	open := make([]*Backend, 0, len(r.backends))
	for b := range r.backends {
		open = append(open, b)
	}
	r.backends = make(map[*Backend]struct{})
	root, l := r.browser, r.launch
	r.mu.Unlock()

	var errs []error
	for _, b := range open {
		if err := b.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if root != nil {
		if err := root.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if l != nil {
		l.Kill()
		l.Cleanup()
	}
	return errors.Join(errs...)
}

func disposeContext(b *rod.Browser) error {
	return proto.TargetDisposeBrowserContext{BrowserContextID: b.BrowserContextID}.Call(b)
}

func intCap(caps browser.Capabilities, key string) int {
	switch v := caps[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

var _ browser.Runtime = (*Runtime)(nil)
