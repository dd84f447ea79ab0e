package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/map.png", "/api/v1/map.png"},
		{"/api/v1/mask.png", "/api/v1/mask.png"},
		{"/api/v1/sun", "/api/v1/sun"},
		{"/api/v1/time", "/api/v1/time"},
		{"/api/v1/daylight", "/api/v1/daylight"},
		{"/api/v1/cache/stats", "/api/v1/cache/stats"},
		{"/api/v1/stream/frames", "/api/v1/stream/frames"},
		{"/api/v1/ws/frames", "/api/v1/ws/frames"},

		// Static assets collapse to one label.
		{"/static/app.js", "/static/{file}"},
		{"/static/styles.css", "/static/{file}"},

		// Unknown/bot paths collapse to "other".
		{"/static/", "other"},
		{"/static/a/b.js", "other"},
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 distinct asset names produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/static/" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".js")
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for asset paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareCapturesStatus(t *testing.T) {
	var captured int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		captured = w.(*responseWriter).statusCode
	})

	rec := httptest.NewRecorder()
	Middleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sun", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if captured != http.StatusTeapot {
		t.Errorf("captured status = %d, want %d", captured, http.StatusTeapot)
	}
}

func TestMiddlewareForwardsFlush(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer does not implement http.Flusher")
		}
		w.Write([]byte("data"))
		f.Flush()
	})

	rec := httptest.NewRecorder()
	Middleware(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stream/frames", nil))
	if !rec.Flushed {
		t.Error("expected the recorder to be flushed")
	}
}
