package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/sunclock/internal/clock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cc, err := cfg.ClockConfig()
	require.NoError(t, err)
	assert.Equal(t, clock.Simulated, cc.Mode)
	assert.Equal(t, clock.Step{Months: 1}, cc.Step)
	assert.Equal(t, 3*time.Second, cc.Interval)
	assert.True(t, cc.Start.IsZero())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sunclock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
world:
  day: day.png
  night: night.png
  interpolator: catmull-rom
clock:
  mode: realtime
  interval: 1m
overlay:
  source_url: https://example.com/clouds.jpg
  opacity: 0.25
  interval: 30m
`), 0o644))

	cfg, err := Load(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "day.png", cfg.World.Day)
	assert.Equal(t, "catmull-rom", cfg.World.Interpolator)
	assert.Equal(t, "realtime", cfg.Clock.Mode)
	assert.Equal(t, time.Minute, cfg.Clock.Interval)
	assert.Equal(t, 0.25, cfg.Overlay.Opacity)
	assert.Equal(t, 30*time.Minute, cfg.Overlay.Interval)
	// Unset keys keep their defaults.
	assert.Equal(t, 10, cfg.Stream.MaxConcurrentPerIP)
	assert.Equal(t, 3, cfg.Overlay.MaxFiles)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	require.Error(t, err)
}

func TestLoadMissingEnvFileUsesDefaults(t *testing.T) {
	t.Setenv("SUNCLOCK_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	cfg, err := Load("", testLogger())
	require.NoError(t, err)
	assert.Equal(t, Default().HTTP.Addr, cfg.HTTP.Addr)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o644))
	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()
	applyEnv(&cfg, envMap(map[string]string{
		"SUNCLOCK_HTTP_ADDR":        ":7000",
		"SUNCLOCK_TRUST_PROXY":      "true",
		"SUNCLOCK_AUTH_ENABLED":     "1",
		"SUNCLOCK_AUTH_TOKEN":       "s3cret",
		"SUNCLOCK_WORKERS":          "3",
		"SUNCLOCK_CLOCK_STEP":       "1d",
		"SUNCLOCK_CLOCK_INTERVAL":   "5",
		"SUNCLOCK_OVERLAY_MIRRORS":  " https://a.example/x.jpg, ,https://b.example/x.jpg ",
		"SUNCLOCK_OVERLAY_OPACITY":  "0.7",
		"SUNCLOCK_OVERLAY_INTERVAL": "45m",
		"SUNCLOCK_LOG_LEVEL":        "debug",
	}), testLogger())

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.TrustProxy)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.Token)
	assert.Equal(t, 3, cfg.World.Workers)
	assert.Equal(t, "1d", cfg.Clock.Step)
	assert.Equal(t, 5*time.Second, cfg.Clock.Interval)
	assert.Equal(t, []string{"https://a.example/x.jpg", "https://b.example/x.jpg"}, cfg.Overlay.Mirrors)
	assert.Equal(t, 0.7, cfg.Overlay.Opacity)
	assert.Equal(t, 45*time.Minute, cfg.Overlay.Interval)
	require.NoError(t, cfg.Validate())
}

func TestEnvInvalidValuesKeepDefaults(t *testing.T) {
	cfg := Default()
	applyEnv(&cfg, envMap(map[string]string{
		"SUNCLOCK_TRUST_PROXY":               "maybe",
		"SUNCLOCK_WORKERS":                   "-2",
		"SUNCLOCK_CLOCK_INTERVAL":            "soon",
		"SUNCLOCK_OVERLAY_OPACITY":           "1.5",
		"SUNCLOCK_OVERLAY_MAX_BYTES":         "0",
		"SUNCLOCK_STREAM_KEEPALIVE_INTERVAL": "-1s",
	}), testLogger())

	want := Default()
	assert.Equal(t, want.HTTP.TrustProxy, cfg.HTTP.TrustProxy)
	assert.Equal(t, want.World.Workers, cfg.World.Workers)
	assert.Equal(t, want.Clock.Interval, cfg.Clock.Interval)
	assert.Equal(t, want.Overlay.Opacity, cfg.Overlay.Opacity)
	assert.Equal(t, want.Overlay.MaxBytes, cfg.Overlay.MaxBytes)
	assert.Equal(t, want.Stream.KeepaliveInterval, cfg.Stream.KeepaliveInterval)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = true
	cfg.World.Day = "day.png"
	cfg.World.Interpolator = "lanczos"
	cfg.Clock.Mode = "sundial"
	cfg.Overlay.Opacity = 2
	cfg.Overlay.SourceURL = "ftp://clouds"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"auth.token",
		"world.day and world.night",
		"world.interpolator",
		"clock.mode",
		"overlay.opacity",
		"overlay.source_url",
		"log.level",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestClockConfigParsesStartAndStep(t *testing.T) {
	cfg := Default()
	cfg.Clock.Start = "2024-06-21T12:00:00Z"
	cfg.Clock.Step = "7d12h"

	cc, err := cfg.ClockConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC), cc.Start)
	assert.Equal(t, clock.Step{Days: 7, Duration: 12 * time.Hour}, cc.Step)

	cfg.Clock.Start = "yesterday"
	_, err = cfg.ClockConfig()
	assert.ErrorContains(t, err, "clock.start")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
