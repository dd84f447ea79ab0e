// Package stream pushes clock ticks to browsers so a viewer can refetch the
// composite map on every frame. Clients connect via SSE at
// GET /api/v1/stream/frames or WebSocket at GET /api/v1/ws/frames.
//
// SSE message format:
//
//	data: {"type":"frame","seq":12,"t":"2026-02-06T04:00:00Z","title":"February @ 04:00:00","subsolar":{...},"map_url":"/api/v1/map.png?v=12"}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","connection_id":"...","mode":"simulated","t":"...","title":"..."}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Reconnecting clients receive a fresh metadata message on each connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/httputil"
	"github.com/star/sunclock/internal/metrics"
)

// TickSource is the clock as seen by the stream handlers.
type TickSource interface {
	Subscribe() (<-chan clock.Tick, func())
	Mode() clock.Mode
	Now() time.Time
}

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive interval (default: 30s).
	TrustProxy         bool          // Read client IPs from X-Forwarded-For.
}

// Handler manages SSE and WebSocket streaming connections.
type Handler struct {
	source   TickSource
	config   Config
	limiter  *streamLimiter
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(source TickSource, config Config, logger *slog.Logger) *Handler {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		source:  source,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// admit reserves a limiter slot for the request or writes a 429.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, transport string) (ip string, release func(), ok bool) {
	ip = httputil.ClientIP(r, h.config.TrustProxy)
	release, ok = h.limiter.acquire(ip)
	if !ok {
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"transport", transport,
			"ip_streams", h.limiter.count(ip),
			"open_streams", h.limiter.total(),
		)
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return ip, nil, false
	}
	return ip, release, true
}

// HandleFrames serves the SSE frame stream.
// GET /api/v1/stream/frames
func (h *Handler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ip, release, ok := h.admit(w, r, transportSSE)
	if !ok {
		return
	}

	id := uuid.NewString()
	metrics.StreamOpened(transportSSE)
	startTime := time.Now()
	h.logger.Info("stream connected",
		"connection_id", id,
		"transport", transportSSE,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	ticks, unsubscribe := h.source.Subscribe()
	c := &client{w: w, flusher: flusher, id: id, logger: h.logger}

	defer func() {
		unsubscribe()
		release()
		metrics.StreamClosed(transportSSE)
		h.logger.Info("stream disconnected",
			"connection_id", id,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"messages_sent", c.messagesSent,
			"bytes_sent", c.bytesSent,
		)
	}()

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	c.rc = http.NewResponseController(w)
	if err := c.rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	meta := buildMetadataMessage(id, h.source.Mode(), h.source.Now())
	if err := c.sendJSON(meta.Type, meta); err != nil {
		h.logger.Warn("stream send error (metadata)", "connection_id", id, "error", err)
		return
	}

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case tick, ok := <-ticks:
			if !ok {
				return
			}
			frame := buildFrameMessage(tick)
			if err := c.sendJSON(frame.Type, frame); err != nil {
				h.logger.Warn("stream send error", "connection_id", id, "error", err)
				return
			}
			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "connection_id", id, "error", err)
				return
			}
		}
	}
}
