package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default configuration values exported for documentation and validation
const (
	DefaultBind            = "127.0.0.1:8910"
	DefaultBackend         = BackendRod
	DefaultScriptTimeout   = 30 * time.Second
	DefaultPageLoadTimeout = 300 * time.Second
	DefaultCommandTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSubjectPrefix   = "ghostdriver"
	DefaultViewportWidth   = 1280
	DefaultViewportHeight  = 800
)

// Browser backends.
const (
	BackendRod    = "rod"
	BackendMemory = "memory"
)

// Config represents the complete GhostDriver configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Events  EventsConfig  `yaml:"events"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Bind            string        `yaml:"bind"`
	URLPrefix       string        `yaml:"url_prefix"` // e.g. /wd/hub
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	H2C             bool          `yaml:"h2c"`
	Metrics         bool          `yaml:"metrics"`
}

// BrowserConfig selects and tunes the automation backend.
type BrowserConfig struct {
	Backend        string            `yaml:"backend"`
	Headless       bool              `yaml:"headless"`
	Bin            string            `yaml:"bin"`
	DebuggerURL    string            `yaml:"debugger_url"` // attach to an already running browser
	ViewportWidth  int               `yaml:"viewport_width"`
	ViewportHeight int               `yaml:"viewport_height"`
	UserAgent      string            `yaml:"user_agent"`
	LaunchFlags    map[string]string `yaml:"launch_flags"`
}

// SessionConfig holds per-session limits and default timeouts.
type SessionConfig struct {
	MaxSessions     int           `yaml:"max_sessions"` // 0 means unlimited
	ScriptTimeout   time.Duration `yaml:"script_timeout"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	ImplicitWait    time.Duration `yaml:"implicit_wait"`
	CommandTimeout  time.Duration `yaml:"command_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// TracingConfig toggles OpenTelemetry spans.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// EventsConfig configures session lifecycle publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"` // empty keeps events in process
	SubjectPrefix string `yaml:"subject_prefix"`
	ClientName    string `yaml:"client_name"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            DefaultBind,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    DefaultPageLoadTimeout + 30*time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: DefaultShutdownTimeout,
			Metrics:         true,
		},
		Browser: BrowserConfig{
			Backend:        DefaultBackend,
			Headless:       true,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
		},
		Session: SessionConfig{
			ScriptTimeout:   DefaultScriptTimeout,
			PageLoadTimeout: DefaultPageLoadTimeout,
			CommandTimeout:  DefaultCommandTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "ghostdriver",
		},
		Events: EventsConfig{
			SubjectPrefix: DefaultSubjectPrefix,
			ClientName:    "ghostdriver",
		},
	}
}

// Load loads configuration from default locations with proper precedence
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".ghostdriver", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	projectConfigPath := filepath.Join(".", ".ghostdriver", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies GHOSTDRIVER_* environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GHOSTDRIVER_BIND")); v != "" {
		cfg.Server.Bind = v
	}
	if v, ok := os.LookupEnv("GHOSTDRIVER_URL_PREFIX"); ok {
		cfg.Server.URLPrefix = strings.TrimSpace(v)
	}
	if v, ok := envBool("GHOSTDRIVER_H2C"); ok {
		cfg.Server.H2C = v
	}
	if v, ok := envBool("GHOSTDRIVER_METRICS"); ok {
		cfg.Server.Metrics = v
	}

	if v := strings.TrimSpace(os.Getenv("GHOSTDRIVER_BROWSER")); v != "" {
		cfg.Browser.Backend = strings.ToLower(v)
	}
	if v, ok := envBool("GHOSTDRIVER_HEADLESS"); ok {
		cfg.Browser.Headless = v
	}
	if v := os.Getenv("GHOSTDRIVER_BROWSER_BIN"); v != "" {
		cfg.Browser.Bin = v
	}
	if v := os.Getenv("GHOSTDRIVER_DEBUGGER_URL"); v != "" {
		cfg.Browser.DebuggerURL = v
	}

	if v := strings.TrimSpace(os.Getenv("GHOSTDRIVER_MAX_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxSessions = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GHOSTDRIVER_COMMAND_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.CommandTimeout = d
		}
	}

	if v := os.Getenv("GHOSTDRIVER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("GHOSTDRIVER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}

	if v, ok := envBool("GHOSTDRIVER_TRACING"); ok {
		cfg.Tracing.Enabled = v
	}

	if v := os.Getenv("GHOSTDRIVER_NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("invalid server.bind %q: %w", c.Server.Bind, err)
	}
	if p := c.Server.URLPrefix; p != "" {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("server.url_prefix must start with /: %q", p)
		}
		if p == "/" || strings.HasSuffix(p, "/") {
			return fmt.Errorf("server.url_prefix must not end with /: %q", p)
		}
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"server.idle_timeout":       c.Server.IdleTimeout,
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"session.script_timeout":    c.Session.ScriptTimeout,
		"session.page_load_timeout": c.Session.PageLoadTimeout,
		"session.implicit_wait":     c.Session.ImplicitWait,
		"session.command_timeout":   c.Session.CommandTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}

	switch c.Browser.Backend {
	case BackendRod, BackendMemory:
	default:
		return fmt.Errorf("invalid browser.backend: %s (valid: rod, memory)", c.Browser.Backend)
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return fmt.Errorf("browser viewport must be >= 0")
	}

	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions must be >= 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format: %s (valid: json, console)", c.Logging.Format)
	}

	if strings.TrimSpace(c.Events.SubjectPrefix) == "" {
		return fmt.Errorf("events.subject_prefix is required")
	}
	return nil
}
