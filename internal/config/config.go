// Package config loads the server configuration: built-in defaults, then an
// optional YAML file, then SUNCLOCK_* environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"cloudeng.io/errors"
	"gopkg.in/yaml.v3"

	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/imagery"
)

// Config is the full server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	World   WorldConfig   `yaml:"world"`
	Clock   ClockConfig   `yaml:"clock"`
	Overlay OverlayConfig `yaml:"overlay"`
	Stream  StreamConfig  `yaml:"stream"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	TrustProxy   bool          `yaml:"trust_proxy"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxImageSize int           `yaml:"max_image_size"` // Largest width or height served.
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// WorldConfig names the day and night plates. Both empty selects the
// generated placeholder plates.
type WorldConfig struct {
	Day          string `yaml:"day"`
	Night        string `yaml:"night"`
	Workers      int    `yaml:"workers"`
	Interpolator string `yaml:"interpolator"`
}

type ClockConfig struct {
	Mode     string        `yaml:"mode"`
	Start    string        `yaml:"start"` // RFC 3339; empty means now.
	Step     string        `yaml:"step"`  // e.g. "1mo", "6h".
	Interval time.Duration `yaml:"interval"`
}

// OverlayConfig configures the cloud layer. An empty SourceURL disables it.
type OverlayConfig struct {
	SourceURL string        `yaml:"source_url"`
	Mirrors   []string      `yaml:"mirrors"`
	Opacity   float64       `yaml:"opacity"`
	CacheDir  string        `yaml:"cache_dir"`
	MaxFiles  int           `yaml:"max_files"`
	MaxBytes  int64         `yaml:"max_bytes"`
	Interval  time.Duration `yaml:"interval"`
}

type StreamConfig struct {
	MaxConcurrentPerIP int           `yaml:"max_concurrent_per_ip"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration: a simulated clock that
// advances one month every three seconds starting now.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxImageSize: 4096,
		},
		World: WorldConfig{
			Workers:      runtime.NumCPU(),
			Interpolator: imagery.DefaultInterpolator,
		},
		Clock: ClockConfig{
			Mode:     string(clock.Simulated),
			Step:     "1mo",
			Interval: 3 * time.Second,
		},
		Overlay: OverlayConfig{
			Opacity:  0.4,
			CacheDir: "/tmp/sunclock/overlay",
			MaxFiles: 3,
			MaxBytes: 32 << 20,
			Interval: 3 * time.Hour,
		},
		Stream: StreamConfig{
			MaxConcurrentPerIP: 10,
			MaxConcurrent:      1000,
			KeepaliveInterval:  30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty, in which case
// SUNCLOCK_CONFIG is consulted; a missing file is an error only when a
// path was given explicitly.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("SUNCLOCK_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
			logger.Info("loaded config file", "path", path)
		case explicit || !os.IsNotExist(err):
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			logger.Warn("config file not found, using defaults", "path", path)
		}
	}

	applyEnv(&cfg, os.Getenv, logger)
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	errs := errors.M{}

	if c.HTTP.Addr == "" {
		errs.Append(fmt.Errorf("http.addr must not be empty"))
	}
	if c.HTTP.MaxImageSize < 1 {
		errs.Append(fmt.Errorf("http.max_image_size must be positive, got %d", c.HTTP.MaxImageSize))
	}
	if c.Auth.Enabled && c.Auth.Token == "" && c.Auth.JWTSecret == "" {
		errs.Append(fmt.Errorf("auth.token or auth.jwt_secret is required when auth is enabled"))
	}
	if (c.World.Day == "") != (c.World.Night == "") {
		errs.Append(fmt.Errorf("world.day and world.night must be set together"))
	}
	if c.World.Workers < 1 {
		errs.Append(fmt.Errorf("world.workers must be positive, got %d", c.World.Workers))
	}
	if _, err := imagery.ParseInterpolator(c.World.Interpolator); err != nil {
		errs.Append(fmt.Errorf("world.interpolator: %w", err))
	}
	if _, err := c.ClockConfig(); err != nil {
		errs.Append(err)
	}
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		errs.Append(fmt.Errorf("overlay.opacity must be within [0, 1], got %v", c.Overlay.Opacity))
	}
	if c.Overlay.SourceURL != "" && !imagery.IsURL(c.Overlay.SourceURL) {
		errs.Append(fmt.Errorf("overlay.source_url must be an http(s) URL, got %q", c.Overlay.SourceURL))
	}
	if c.Overlay.Interval <= 0 {
		errs.Append(fmt.Errorf("overlay.interval must be positive, got %v", c.Overlay.Interval))
	}
	if c.Stream.MaxConcurrentPerIP < 1 {
		errs.Append(fmt.Errorf("stream.max_concurrent_per_ip must be positive, got %d", c.Stream.MaxConcurrentPerIP))
	}
	if c.Stream.KeepaliveInterval <= 0 {
		errs.Append(fmt.Errorf("stream.keepalive_interval must be positive, got %v", c.Stream.KeepaliveInterval))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs.Append(err)
	}
	return errs.Err()
}

// ClockConfig converts the clock section into a clock.Config.
func (c Config) ClockConfig() (clock.Config, error) {
	mode, err := clock.ParseMode(c.Clock.Mode)
	if err != nil {
		return clock.Config{}, fmt.Errorf("clock.mode: %w", err)
	}
	out := clock.Config{Mode: mode, Interval: c.Clock.Interval}
	if c.Clock.Interval <= 0 {
		return out, fmt.Errorf("clock.interval must be positive, got %v", c.Clock.Interval)
	}
	if c.Clock.Start != "" {
		start, err := time.Parse(time.RFC3339, c.Clock.Start)
		if err != nil {
			return out, fmt.Errorf("clock.start: %w", err)
		}
		out.Start = start
	}
	if c.Clock.Step != "" {
		step, err := clock.ParseStep(c.Clock.Step)
		if err != nil {
			return out, fmt.Errorf("clock.step: %w", err)
		}
		out.Step = step
	}
	return out, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
