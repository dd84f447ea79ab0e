package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s parameter, must be %d-%d", name, lo, hi)
	}
	return n, nil
}

// floatParam parses a required float query parameter within [lo, hi].
func floatParam(r *http.Request, name string, lo, hi float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || f < lo || f > hi {
		return 0, fmt.Errorf("invalid %s parameter, must be %g to %g", name, lo, hi)
	}
	return f, nil
}

// timeParam parses an optional RFC 3339 "t" parameter.
func timeParam(r *http.Request, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get("t")
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid t parameter, must be RFC 3339")
	}
	return t.UTC(), nil
}

// sizeParams reads width and height, defaulting to the given size.
func sizeParams(r *http.Request, defW, defH, max int) (int, int, error) {
	w, err := intParam(r, "width", defW, 1, max)
	if err != nil {
		return 0, 0, err
	}
	h, err := intParam(r, "height", defH, 1, max)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
