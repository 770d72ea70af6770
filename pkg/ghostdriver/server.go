package ghostdriver

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	"github.com/odvcencio/ghostdriver/pkg/config"
	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
	"github.com/odvcencio/ghostdriver/pkg/observability"
)

// Server hosts the router over HTTP and owns the shutdown sequence.
type Server struct {
	cfg     config.ServerConfig
	router  *Router
	manager *SessionManager
	runtime browser.Runtime
	logger  *zap.Logger

	httpServer *http.Server
}

// NewServer creates a server. runtime may be nil when the caller closes it.
func NewServer(cfg config.ServerConfig, router *Router, manager *SessionManager, runtime browser.Runtime, logger *zap.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	cfg.URLPrefix = normalizePrefix(cfg.URLPrefix)
	return &Server{
		cfg:     cfg,
		router:  router,
		manager: manager,
		runtime: runtime,
		logger:  observability.Component(logger, "server"),
	}
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	return "/" + strings.Trim(p, "/")
}

// Handler returns the outer mux: request ids, access logging, /metrics and
// the WebDriver router under the URL prefix.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(s.accessLogMiddleware)

	if s.cfg.Metrics {
		mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}
	if s.cfg.URLPrefix == "" {
		mux.Handle("/*", s.router)
	} else {
		mux.Handle(s.cfg.URLPrefix+"/*", http.StripPrefix(s.cfg.URLPrefix, s.router))
	}
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.UnknownCommand(r).Render(w)
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperrors.InvalidCommandMethod(r).Render(w)
	})

	var h http.Handler = mux
	if s.cfg.H2C {
		h = h2c.NewHandler(mux, &http2.Server{})
	}
	return h
}

func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Start listens on the configured address and serves until ctx is done or a
// client requests /shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Bind, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln. On return the listener is closed, every session has
// been destroyed and the runtime released.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("serving webdriver",
			zap.String("addr", ln.Addr().String()),
			zap.String("url_prefix", s.cfg.URLPrefix),
			zap.Bool("h2c", s.cfg.H2C),
		)
		if err := s.httpServer.Serve(ln); err != nil && !stdliberrors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("stopping", zap.String("cause", "signal"))
	case <-s.router.ShutdownRequested():
		s.logger.Info("stopping", zap.String("cause", "shutdown command"))
	case err := <-serverErr:
		if err == nil {
			err = http.ErrServerClosed
		}
		return stdliberrors.Join(err, s.teardown(context.Background()))
	}
	err := s.shutdown()
	<-serverErr
	return err
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.teardown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return stdliberrors.Join(errs...)
}

// teardown destroys all sessions and releases the runtime.
func (s *Server) teardown(ctx context.Context) error {
	var errs []error
	if s.manager != nil {
		if err := s.manager.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser runtime: %w", err))
		}
	}
	s.logger.Info("stopped")
	return stdliberrors.Join(errs...)
}
