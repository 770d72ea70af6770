package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/odvcencio/ghostdriver/pkg/browser"
	"github.com/odvcencio/ghostdriver/pkg/browser/adapters/memory"
	rodadapter "github.com/odvcencio/ghostdriver/pkg/browser/adapters/rod"
	"github.com/odvcencio/ghostdriver/pkg/bus"
	"github.com/odvcencio/ghostdriver/pkg/config"
	"github.com/odvcencio/ghostdriver/pkg/ghostdriver"
	"github.com/odvcencio/ghostdriver/pkg/observability"
)

type serveOptions struct {
	configPath  string
	bind        string
	urlPrefix   string
	backend     string
	headless    bool
	maxSessions int
	logLevel    string
	h2c         bool
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.bind, "bind", config.DefaultBind, "address to listen on")
	f.StringVar(&opts.urlPrefix, "url-prefix", "", "serve WebDriver paths under this prefix (e.g. /wd/hub)")
	f.StringVar(&opts.backend, "browser", config.DefaultBackend, "browser backend: rod or memory")
	f.BoolVar(&opts.headless, "headless", true, "run the launched browser headless")
	f.IntVar(&opts.maxSessions, "max-sessions", 0, "maximum concurrent sessions (0 = unlimited)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.BoolVar(&opts.h2c, "h2c", false, "accept HTTP/2 over cleartext")
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cmd *cobra.Command, opts *serveOptions, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("bind") {
		cfg.Server.Bind = opts.bind
	}
	if f.Changed("url-prefix") {
		cfg.Server.URLPrefix = opts.urlPrefix
	}
	if f.Changed("browser") {
		cfg.Browser.Backend = strings.ToLower(opts.backend)
	}
	if f.Changed("headless") {
		cfg.Browser.Headless = opts.headless
	}
	if f.Changed("max-sessions") {
		cfg.Session.MaxSessions = opts.maxSessions
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if f.Changed("h2c") {
		cfg.Server.H2C = opts.h2c
	}
}

// newRuntimeFn allows tests to avoid launching a browser.
var newRuntimeFn = newRuntime

func newRuntime(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Runtime, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewRuntime(), nil
	case config.BackendRod:
		return rodadapter.NewRuntime(ctx, rodadapter.Config{
			DebuggerURL:    cfg.DebuggerURL,
			Bin:            cfg.Bin,
			Headless:       cfg.Headless,
			LaunchFlags:    cfg.LaunchFlags,
			ViewportWidth:  cfg.ViewportWidth,
			ViewportHeight: cfg.ViewportHeight,
			UserAgent:      cfg.UserAgent,
		}, observability.Component(logger, "rod"))
	}
	return nil, fmt.Errorf("unknown browser backend %q", cfg.Backend)
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return withExitCode(err, exitConfig)
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return withExitCode(err, exitConfig)
	}

	logger, err := observability.NewLogger(observability.LogOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return withExitCode(err, exitConfig)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := observability.NewTracerProvider(cfg.Tracing.ServiceName, version, os.Stderr)
		if err != nil {
			return withExitCode(err, exitConfig)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	busCfg := bus.DefaultConfig()
	busCfg.URL = cfg.Events.NATSURL
	if cfg.Events.ClientName != "" {
		busCfg.Name = cfg.Events.ClientName
	}
	msgBus, err := bus.New(busCfg)
	if err != nil {
		return withExitCode(fmt.Errorf("connect event bus: %w", err), exitBackend)
	}
	defer func() { _ = msgBus.Close() }()
	sub, err := bus.LogEvents(ctx, msgBus, cfg.Events.SubjectPrefix, observability.Component(logger, "events"))
	if err != nil {
		return withExitCode(fmt.Errorf("subscribe to session events: %w", err), exitBackend)
	}
	defer func() { _ = sub.Unsubscribe() }()

	rt, err := newRuntimeFn(ctx, cfg.Browser, logger)
	if err != nil {
		return withExitCode(err, exitBackend)
	}

	manager := ghostdriver.NewSessionManager(rt, ghostdriver.ManagerConfig{
		MaxSessions: cfg.Session.MaxSessions,
		Timeouts: ghostdriver.Timeouts{
			Script:   cfg.Session.ScriptTimeout,
			PageLoad: cfg.Session.PageLoadTimeout,
			Implicit: cfg.Session.ImplicitWait,
		},
		CommandTimeout: cfg.Session.CommandTimeout,
		Capabilities:   defaultCapabilities(cfg),
		Events:         bus.NewEventPublisher(msgBus, cfg.Events.SubjectPrefix),
		Logger:         logger,
	})
	router := ghostdriver.NewRouter(
		ghostdriver.NewStatusHandler(buildInfo(), manager),
		ghostdriver.ShutdownHandler{},
		manager,
		logger,
	)
	srv := ghostdriver.NewServer(cfg.Server, router, manager, rt, logger)
	if err := srv.Start(ctx); err != nil {
		return withExitCode(err, exitFailure)
	}
	return nil
}

func buildInfo() ghostdriver.BuildInfo {
	return ghostdriver.BuildInfo{
		Version:  version,
		Revision: commit,
		Time:     buildDate,
	}
}

// defaultCapabilities are reported for every session and overlaid by what
// the client requests.
func defaultCapabilities(cfg *config.Config) browser.Capabilities {
	browserName := "chrome"
	if cfg.Browser.Backend == config.BackendMemory {
		browserName = "memory"
	}
	return browser.Capabilities{
		"browserName":              browserName,
		"version":                  version,
		"driverName":               "ghostdriver",
		"driverVersion":            version,
		"platform":                 strings.ToUpper(runtime.GOOS),
		"javascriptEnabled":        true,
		"takesScreenshot":          true,
		"handlesAlerts":            false,
		"databaseEnabled":          false,
		"locationContextEnabled":   false,
		"applicationCacheEnabled":  false,
		"browserConnectionEnabled": false,
		"cssSelectorsEnabled":      true,
		"webStorageEnabled":        false,
		"rotatable":                false,
		"acceptSslCerts":           false,
		"nativeEvents":             false,
		"backend":                  cfg.Browser.Backend,
		"viewportWidth":            cfg.Browser.ViewportWidth,
		"viewportHeight":           cfg.Browser.ViewportHeight,
	}
}
