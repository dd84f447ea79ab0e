package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunclock_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sunclock_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	maskComputationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sunclock_mask_computations_total",
			Help: "Total number of day/night masks computed.",
		},
	)

	maskDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sunclock_mask_duration_seconds",
			Help:    "Time spent computing one day/night mask.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunclock_cache_lookups_total",
			Help: "Composite cache lookups by slot and result (hit or rebuild).",
		},
		[]string{"slot", "result"},
	)

	clockTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunclock_clock_ticks_total",
			Help: "Total number of clock ticks by mode.",
		},
		[]string{"mode"},
	)

	imageryFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunclock_imagery_fetches_total",
			Help: "Total number of overlay image fetches by result.",
		},
		[]string{"result"},
	)

	imageryFetchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sunclock_imagery_fetch_duration_seconds",
			Help:    "Overlay image fetch duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	overlayAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sunclock_overlay_age_seconds",
			Help: "Age of the current cloud overlay image in seconds.",
		},
	)

	streamConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sunclock_stream_connections",
			Help: "Currently open frame streams by transport.",
		},
		[]string{"transport"},
	)

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunclock_stream_messages_total",
			Help: "Messages written to frame streams by transport and event.",
		},
		[]string{"transport", "event"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		maskComputationsTotal,
		maskDurationSeconds,
		cacheLookupsTotal,
		clockTicksTotal,
		imageryFetchesTotal,
		imageryFetchDurationSeconds,
		overlayAgeSeconds,
		streamConnections,
		streamMessagesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMaskComputation records one mask computation and its duration.
func RecordMaskComputation(d time.Duration) {
	maskComputationsTotal.Inc()
	maskDurationSeconds.Observe(d.Seconds())
}

// Cache slot labels.
const (
	SlotComposite = "composite"
	SlotScaled    = "scaled"
	SlotOverlay   = "overlay"
)

// RecordCacheLookup counts a cache lookup on slot as a hit or a rebuild.
func RecordCacheLookup(slot string, hit bool) {
	result := "rebuild"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(slot, result).Inc()
}

// IncClockTicks counts one clock tick.
func IncClockTicks(mode string) {
	clockTicksTotal.WithLabelValues(mode).Inc()
}

// RecordImageryFetch records an overlay fetch attempt.
func RecordImageryFetch(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	imageryFetchesTotal.WithLabelValues(result).Inc()
	imageryFetchDurationSeconds.Observe(d.Seconds())
}

// SetOverlayAge sets the overlay age gauge.
func SetOverlayAge(seconds float64) {
	overlayAgeSeconds.Set(seconds)
}

// StreamOpened increments the open stream gauge for transport.
func StreamOpened(transport string) {
	streamConnections.WithLabelValues(transport).Inc()
}

// StreamClosed decrements the open stream gauge for transport.
func StreamClosed(transport string) {
	streamConnections.WithLabelValues(transport).Dec()
}

// IncStreamMessages counts one message written to a stream.
func IncStreamMessages(transport, event string) {
	streamMessagesTotal.WithLabelValues(transport, event).Inc()
}

// knownRoutes are exact paths recorded under their own label.
var knownRoutes = map[string]bool{
	"/":                     true,
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/api/v1/map.png":       true,
	"/api/v1/mask.png":      true,
	"/api/v1/sun":           true,
	"/api/v1/time":          true,
	"/api/v1/daylight":      true,
	"/api/v1/cache/stats":   true,
	"/api/v1/stream/frames": true,
	"/api/v1/ws/frames":     true,
}

// normalizeRoute maps a request path to a bounded label set so bots and
// asset names cannot explode metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/static/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/static/{file}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE streams keep working
// behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets WebSocket upgrades take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
