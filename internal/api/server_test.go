package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/star/sunclock/internal/auth"
	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/composite"
	"github.com/star/sunclock/internal/imagery"
	"github.com/star/sunclock/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var testStart = time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	server *Server
	world  *composite.World
	clock  *clock.Clock
}

func newTestEnv(t *testing.T, authCfg auth.Config) *testEnv {
	t.Helper()
	day, night := imagery.Plates(360, 180)
	world, err := composite.NewWorld(day, night,
		composite.WithTime(testStart),
		composite.WithWorkers(2),
		composite.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	clk, err := clock.New(clock.Config{Mode: clock.Simulated, Start: testStart}, world, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	streams := stream.NewHandler(clk, stream.Config{MaxConcurrentPerIP: 2, KeepaliveInterval: time.Second}, testLogger())
	static := fstest.MapFS{
		"index.html": {Data: []byte("<!doctype html><title>sunclock</title>")},
		"app.js":     {Data: []byte("// app")},
	}
	srv := NewServer(Config{Addr: ":0", MaxImageSize: 1024, Workers: 2, Auth: authCfg}, world, clk, streams, static, testLogger())
	return &testEnv{server: srv, world: world, clock: clk}
}

func (e *testEnv) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decodePNG(t *testing.T, w *httptest.ResponseRecorder) image.Image {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png (body %s)", ct, w.Body.String())
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestBadParamsReturnJSON400(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	tests := []struct {
		name   string
		target string
	}{
		{"map width zero", "/api/v1/map.png?width=0"},
		{"map width too large", "/api/v1/map.png?width=5000"},
		{"map height non-numeric", "/api/v1/map.png?height=tall"},
		{"mask bad time", "/api/v1/mask.png?t=yesterday"},
		{"mask negative width", "/api/v1/mask.png?width=-1"},
		{"sun bad time", "/api/v1/sun?t=2024-13-01"},
		{"sun lat without lon", "/api/v1/sun?lat=10"},
		{"sun lat out of range", "/api/v1/sun?lat=91&lon=0"},
		{"daylight missing lat", "/api/v1/daylight?lon=0"},
		{"daylight lon out of range", "/api/v1/daylight?lat=0&lon=200"},
		{"daylight hours too large", "/api/v1/daylight?lat=0&lon=0&hours=10000"},
		{"daylight NaN", "/api/v1/daylight?lat=NaN&lon=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("GET", tt.target, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var resp map[string]any
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp["error"] == nil {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestMapPNG(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	w := env.do("GET", "/api/v1/map.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	img := decodePNG(t, w)
	if img.Bounds().Dx() != 360 || img.Bounds().Dy() != 180 {
		t.Errorf("default size = %v, want 360x180", img.Bounds())
	}
	if got := w.Header().Get("X-Sunclock-Time"); got != "2024-06-21T12:00:00Z" {
		t.Errorf("X-Sunclock-Time = %q", got)
	}

	w = env.do("GET", "/api/v1/map.png?width=90&height=45", nil)
	img = decodePNG(t, w)
	if img.Bounds().Dx() != 90 || img.Bounds().Dy() != 45 {
		t.Errorf("scaled size = %v, want 90x45", img.Bounds())
	}

	st := env.world.Stats()
	if st.CompositeRebuilds != 1 {
		t.Errorf("composite rebuilds = %d, want 1", st.CompositeRebuilds)
	}
}

func TestMapPNGWithOverlay(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	white := image.NewNRGBA(image.Rect(0, 0, 360, 180))
	for i := range white.Pix {
		white.Pix[i] = 0xFF
	}
	overlay, err := composite.NewOverlay(white, 1)
	if err != nil {
		t.Fatal(err)
	}
	env.server.SetOverlay(overlay)

	img := decodePNG(t, env.do("GET", "/api/v1/map.png", nil))
	r, g, b, _ := img.At(200, 120).RGBA()
	if r>>8 != 0xFF || g>>8 != 0xFF || b>>8 != 0xFF {
		t.Errorf("pixel under opaque white clouds = %v, want white", img.At(200, 120))
	}

	var stats map[string]any
	json.NewDecoder(env.do("GET", "/api/v1/cache/stats", nil).Body).Decode(&stats)
	if stats["overlay"] != true || stats["overlay_opacity"].(float64) != 1 {
		t.Errorf("stats = %v, want overlay with opacity 1", stats)
	}

	env.server.SetOverlay(nil)
	img = decodePNG(t, env.do("GET", "/api/v1/map.png", nil))
	if c := color.NRGBAModel.Convert(img.At(200, 120)).(color.NRGBA); c == (color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Error("overlay still drawn after removal")
	}
}

func TestMaskPNG(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	w := env.do("GET", "/api/v1/mask.png?t=2000-01-01T12:00:00Z&width=36&height=18", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	img := decodePNG(t, w)
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("mask decoded as %T, want *image.Gray", img)
	}
	if gray.Bounds().Dx() != 36 || gray.Bounds().Dy() != 18 {
		t.Errorf("size = %v, want 36x18", gray.Bounds())
	}
	for _, v := range gray.Pix {
		if v != 0x00 && v != 0x80 && v != 0xFF {
			t.Fatalf("unexpected mask byte %#x", v)
		}
	}
}

func TestSun(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	w := env.do("GET", "/api/v1/sun?lat=0&lon=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp sunResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.T != "2024-06-21T12:00:00Z" || resp.Title != "June @ 12:00:00" {
		t.Errorf("t/title = %q/%q", resp.T, resp.Title)
	}
	if resp.DayFraction != 0.5 {
		t.Errorf("day_fraction = %v, want 0.5", resp.DayFraction)
	}
	if resp.Declination < -23.5 || resp.Declination > 23.5 {
		t.Errorf("declination = %v, out of range", resp.Declination)
	}
	if resp.Observer == nil {
		t.Fatal("observer missing")
	}
	if resp.Observer.Illumination == "" {
		t.Error("observer illumination missing")
	}
}

func TestTimeGetAndPut(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	var got timeResponse
	json.NewDecoder(env.do("GET", "/api/v1/time", nil).Body).Decode(&got)
	if got.T != "2024-06-21T12:00:00Z" || got.Mode != "simulated" {
		t.Errorf("GET time = %+v", got)
	}

	w := env.do("PUT", "/api/v1/time", strings.NewReader(`{"t":"1999-12-31T23:59:59Z"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&got)
	if got.Title != "December @ 23:59:59" {
		t.Errorf("PUT title = %q", got.Title)
	}
	if want := time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC); !env.world.Time().Equal(want) {
		t.Errorf("world time = %v, want %v", env.world.Time(), want)
	}
	if !env.clock.Now().Equal(time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("clock now = %v", env.clock.Now())
	}

	for _, body := range []string{`{"t":"soon"}`, `not json`, `{}`} {
		if w := env.do("PUT", "/api/v1/time", strings.NewReader(body)); w.Code != http.StatusBadRequest {
			t.Errorf("PUT %s status = %d, want 400", body, w.Code)
		}
	}

	if w := env.do("POST", "/api/v1/time", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", w.Code)
	}
}

func TestDaylight(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	w := env.do("GET", "/api/v1/daylight?lat=0&lon=0&hours=48&t=2024-03-20T00:00:00Z", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp daylightResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Events) != 8 {
		t.Errorf("got %d events over 48h at the equator, want 8", len(resp.Events))
	}
	if resp.Reference == nil || resp.Reference.Sunrise == "" || resp.Reference.Sunset == "" {
		t.Errorf("reference = %+v, want sunrise and sunset", resp.Reference)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	if w := env.do("GET", "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
	if w := env.do("GET", "/readyz", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before SetReady = %d, want 503", w.Code)
	}
	env.server.SetReady(true)
	if w := env.do("GET", "/readyz", nil); w.Code != http.StatusOK {
		t.Errorf("readyz after SetReady = %d, want 200", w.Code)
	}
	if w := env.do("GET", "/metrics", nil); w.Code != http.StatusOK {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t, auth.Config{})

	w := env.do("GET", "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<title>sunclock</title>") {
		t.Errorf("GET / = %d %q", w.Code, w.Body.String())
	}
	if w := env.do("GET", "/static/app.js", nil); w.Code != http.StatusOK {
		t.Errorf("GET /static/app.js = %d", w.Code)
	}
	if w := env.do("GET", "/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", w.Code)
	}
}

func TestAuthChain(t *testing.T) {
	env := newTestEnv(t, auth.Config{Enabled: true, Token: "secret"})

	if w := env.do("GET", "/api/v1/time", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated = %d, want 401", w.Code)
	}
	if w := env.do("GET", "/", nil); w.Code != http.StatusOK {
		t.Errorf("viewer = %d, want 200", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/time", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated = %d, want 200", w.Code)
	}
}

// TestStreamThroughMiddleware verifies SSE frames pass the full middleware
// chain, which must keep http.Flusher available.
func TestStreamThroughMiddleware(t *testing.T) {
	env := newTestEnv(t, auth.Config{})
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/stream/frames")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		buf := make([]byte, 4096)
		var acc string
		for {
			n, err := resp.Body.Read(buf)
			acc += string(buf[:n])
			for {
				i := strings.Index(acc, "\n")
				if i < 0 {
					break
				}
				lines <- acc[:i]
				acc = acc[i+1:]
			}
			if err != nil {
				return
			}
		}
	}()

	waitFor := func(typ string) {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %s", typ)
				}
				if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"type":"`+typ+`"`) {
					return
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %s", typ)
			}
		}
	}

	waitFor("metadata")
	env.clock.Set(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	waitFor("frame")
}
