// Package api wires the HTTP routes of the sunclock server.
package api

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/star/sunclock/internal/auth"
	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/composite"
	"github.com/star/sunclock/internal/health"
	"github.com/star/sunclock/internal/httputil"
	"github.com/star/sunclock/internal/metrics"
	"github.com/star/sunclock/internal/stream"
)

// Clock is the part of the clock the API drives.
type Clock interface {
	Now() time.Time
	Mode() clock.Mode
	Set(t time.Time) clock.Tick
}

// Config holds HTTP server settings.
type Config struct {
	Addr         string
	TrustProxy   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxImageSize int // Largest width or height served.
	Workers      int // Mask goroutines for /api/v1/mask.png.
	Auth         auth.Config
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	config     Config
	world      *composite.World
	clock      Clock
	overlay    atomic.Pointer[composite.Overlay]
	ready      atomic.Bool
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server. streams and static may be nil.
func NewServer(cfg Config, world *composite.World, clk Clock, streams *stream.Handler, static fs.FS, logger *slog.Logger) *Server {
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 4096
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	s := &Server{
		config: cfg,
		world:  world,
		clock:  clk,
		logger: logger,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(s.readiness))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/map.png", s.mapHandler)
	mux.HandleFunc("GET /api/v1/mask.png", s.maskHandler)
	mux.HandleFunc("GET /api/v1/sun", s.sunHandler)
	mux.HandleFunc("GET /api/v1/time", s.getTimeHandler)
	mux.HandleFunc("PUT /api/v1/time", s.putTimeHandler)
	mux.HandleFunc("GET /api/v1/daylight", s.daylightHandler)
	mux.HandleFunc("GET /api/v1/cache/stats", s.cacheStatsHandler)

	if streams != nil {
		mux.HandleFunc("GET /api/v1/stream/frames", streams.HandleFrames)
		mux.HandleFunc("GET /api/v1/ws/frames", streams.HandleWebSocket)
	}

	if static != nil {
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, static, "index.html")
		})
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// SetOverlay replaces the cloud layer drawn over the map. nil removes it.
func (s *Server) SetOverlay(o *composite.Overlay) {
	s.overlay.Store(o)
}

// SetReady marks the server ready to receive traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) readiness() error {
	if !s.ready.Load() {
		return errors.New("map not rendered yet")
	}
	return nil
}

// renderer returns the world, stacked under the cloud layer when present.
func (s *Server) renderer() composite.Renderer {
	if o := s.overlay.Load(); o != nil {
		return composite.Stack(s.world, o)
	}
	return s.world
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	sr.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
