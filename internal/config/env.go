package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// envLoader applies SUNCLOCK_* variables. An unparseable value is logged
// and the current setting kept.
type envLoader struct {
	getenv func(string) string
	logger *slog.Logger
}

func (l envLoader) str(key string, dst *string) {
	if v := l.getenv(key); v != "" {
		*dst = v
	}
}

func (l envLoader) list(key string, dst *[]string) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func (l envLoader) boolean(key string, dst *bool) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = b
}

func (l envLoader) positiveInt(key string, dst *int) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		l.logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}

func (l envLoader) positiveInt64(key string, dst *int64) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		l.logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}

func (l envLoader) fraction(key string, dst *float64) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		l.logger.Warn("invalid "+key+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = f
}

// duration accepts Go duration syntax or a bare number of seconds.
func (l envLoader) duration(key string, dst *time.Duration) {
	v := l.getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		n, nerr := strconv.Atoi(v)
		if nerr != nil {
			l.logger.Warn("invalid "+key+" value, using default", "value", v, "default", dst.String())
			return
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		l.logger.Warn("invalid "+key+" value, using default", "value", v, "default", dst.String())
		return
	}
	*dst = d
}

func applyEnv(cfg *Config, getenv func(string) string, logger *slog.Logger) {
	l := envLoader{getenv: getenv, logger: logger}

	l.str("SUNCLOCK_HTTP_ADDR", &cfg.HTTP.Addr)
	l.boolean("SUNCLOCK_TRUST_PROXY", &cfg.HTTP.TrustProxy)
	l.duration("SUNCLOCK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	l.duration("SUNCLOCK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	l.duration("SUNCLOCK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout)
	l.positiveInt("SUNCLOCK_MAX_IMAGE_SIZE", &cfg.HTTP.MaxImageSize)

	l.boolean("SUNCLOCK_AUTH_ENABLED", &cfg.Auth.Enabled)
	l.str("SUNCLOCK_AUTH_TOKEN", &cfg.Auth.Token)
	l.str("SUNCLOCK_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	l.str("SUNCLOCK_AUTH_JWT_ISSUER", &cfg.Auth.JWTIssuer)

	l.str("SUNCLOCK_DAY_IMAGE", &cfg.World.Day)
	l.str("SUNCLOCK_NIGHT_IMAGE", &cfg.World.Night)
	l.positiveInt("SUNCLOCK_WORKERS", &cfg.World.Workers)
	l.str("SUNCLOCK_INTERPOLATOR", &cfg.World.Interpolator)

	l.str("SUNCLOCK_CLOCK_MODE", &cfg.Clock.Mode)
	l.str("SUNCLOCK_CLOCK_START", &cfg.Clock.Start)
	l.str("SUNCLOCK_CLOCK_STEP", &cfg.Clock.Step)
	l.duration("SUNCLOCK_CLOCK_INTERVAL", &cfg.Clock.Interval)

	l.str("SUNCLOCK_OVERLAY_URL", &cfg.Overlay.SourceURL)
	l.list("SUNCLOCK_OVERLAY_MIRRORS", &cfg.Overlay.Mirrors)
	l.fraction("SUNCLOCK_OVERLAY_OPACITY", &cfg.Overlay.Opacity)
	l.str("SUNCLOCK_OVERLAY_CACHE_DIR", &cfg.Overlay.CacheDir)
	l.positiveInt("SUNCLOCK_OVERLAY_MAX_FILES", &cfg.Overlay.MaxFiles)
	l.positiveInt64("SUNCLOCK_OVERLAY_MAX_BYTES", &cfg.Overlay.MaxBytes)
	l.duration("SUNCLOCK_OVERLAY_INTERVAL", &cfg.Overlay.Interval)

	l.positiveInt("SUNCLOCK_STREAM_MAX_CONCURRENT_PER_IP", &cfg.Stream.MaxConcurrentPerIP)
	l.positiveInt("SUNCLOCK_STREAM_MAX_CONCURRENT", &cfg.Stream.MaxConcurrent)
	l.duration("SUNCLOCK_STREAM_KEEPALIVE_INTERVAL", &cfg.Stream.KeepaliveInterval)

	l.str("SUNCLOCK_LOG_LEVEL", &cfg.Log.Level)
}
