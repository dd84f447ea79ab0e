package api

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/composite"
	"github.com/star/sunclock/internal/daylight"
	"github.com/star/sunclock/internal/metrics"
	"github.com/star/sunclock/internal/solar"
)

const maxDaylightHours = 31 * 24

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

func writePNG(w http.ResponseWriter, logger *slog.Logger, img image.Image, t time.Time) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Sunclock-Time", t.UTC().Format(time.RFC3339))
	w.WriteHeader(http.StatusOK)
	if err := pngEncoder.Encode(w, img); err != nil {
		logger.Warn("png encode failed", "error", err)
	}
}

// mapHandler serves the current composite, with the cloud layer on top
// when one is loaded.
// GET /api/v1/map.png?width=&height=
func (s *Server) mapHandler(w http.ResponseWriter, r *http.Request) {
	defW, defH := s.world.Size()
	width, height, err := sizeParams(r, defW, defH, s.config.MaxImageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := s.renderer().Render(width, height)
	if err != nil {
		if errors.Is(err, composite.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("render failed", "width", width, "height", height, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	writePNG(w, s.logger, img, s.world.Time())
}

// maskHandler serves the raw day/night mask as 8-bit gray, darker classes
// brighter.
// GET /api/v1/mask.png?t=&width=&height=
func (s *Server) maskHandler(w http.ResponseWriter, r *http.Request) {
	t, err := timeParam(r, s.world.Time())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	width, height, err := sizeParams(r, 360, 180, s.config.MaxImageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	mask := solar.ComputeMaskConcurrent(t, width, height, s.config.Workers)
	metrics.RecordMaskComputation(time.Since(start))

	img := &image.Gray{
		Pix:    mask.Bytes(),
		Stride: mask.Width,
		Rect:   image.Rect(0, 0, mask.Width, mask.Height),
	}
	writePNG(w, s.logger, img, t)
}

type sunResponse struct {
	T              string      `json:"t"`
	Title          string      `json:"title"`
	JulianDay      float64     `json:"julian_day"`
	Century        float64     `json:"century"`
	RightAscension float64     `json:"right_ascension_deg"`
	Declination    float64     `json:"declination_deg"`
	SiderealTime   float64     `json:"sidereal_time_deg"`
	DayFraction    float64     `json:"day_fraction"`
	Subsolar       solar.Point `json:"subsolar"`
	Observer       *observer   `json:"observer,omitempty"`
}

type observer struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Elevation    float64 `json:"elevation_deg"`
	Illumination string  `json:"illumination"`
}

// sunHandler reports the solar position at t, and at a point when lat and
// lon are both given.
// GET /api/v1/sun?t=&lat=&lon=
func (s *Server) sunHandler(w http.ResponseWriter, r *http.Request) {
	t, err := timeParam(r, s.world.Time())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := solar.SunAt(t)
	resp := sunResponse{
		T:              t.Format(time.RFC3339),
		Title:          clock.Title(t),
		JulianDay:      p.JulianDay,
		Century:        p.Century,
		RightAscension: p.RightAscension,
		Declination:    p.Declination * 180 / math.Pi,
		SiderealTime:   p.SiderealTime,
		DayFraction:    p.DayFraction,
		Subsolar:       solar.Subsolar(t),
	}

	q := r.URL.Query()
	if q.Has("lat") || q.Has("lon") {
		lat, err := floatParam(r, "lat", -90, 90)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		lon, err := floatParam(r, "lon", -180, 180)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Observer = &observer{
			Lat:          lat,
			Lon:          lon,
			Elevation:    solar.Elevation(t, lat, lon),
			Illumination: solar.ClassifyAt(t, lat, lon).String(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type timeResponse struct {
	T     string `json:"t"`
	Title string `json:"title"`
	Mode  string `json:"mode"`
}

// GET /api/v1/time
func (s *Server) getTimeHandler(w http.ResponseWriter, r *http.Request) {
	t := s.world.Time()
	writeJSON(w, http.StatusOK, timeResponse{
		T:     t.Format(time.RFC3339),
		Title: clock.Title(t),
		Mode:  string(s.clock.Mode()),
	})
}

// putTimeHandler jumps the clock to the posted instant.
// PUT /api/v1/time {"t": "2024-06-21T12:00:00Z"}
func (s *Server) putTimeHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		T string `json:"t"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := time.Parse(time.RFC3339, body.T)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid t, must be RFC 3339")
		return
	}

	tick := s.clock.Set(t)
	s.logger.Info("clock set", "t", tick.Time.Format(time.RFC3339), "seq", tick.Seq)
	writeJSON(w, http.StatusOK, timeResponse{
		T:     tick.Time.Format(time.RFC3339),
		Title: tick.Title,
		Mode:  string(s.clock.Mode()),
	})
}

type daylightResponse struct {
	Lat       float64          `json:"lat"`
	Lon       float64          `json:"lon"`
	From      string           `json:"from"`
	Hours     int              `json:"hours"`
	Events    []daylight.Event `json:"events"`
	Reference *referenceTimes  `json:"reference,omitempty"`
}

type referenceTimes struct {
	Sunrise string `json:"sunrise,omitempty"`
	Sunset  string `json:"sunset,omitempty"`
}

// daylightHandler predicts illumination changes at a point.
// GET /api/v1/daylight?lat=&lon=&hours=&t=
func (s *Server) daylightHandler(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat", -90, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := floatParam(r, "lon", -180, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hours, err := intParam(r, "hours", 24, 1, maxDaylightHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := timeParam(r, s.world.Time())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := daylight.Predict(r.Context(), daylight.Request{
		Lat:     lat,
		Lon:     lon,
		From:    from,
		Horizon: time.Duration(hours) * time.Hour,
	})
	if err != nil {
		if errors.Is(err, daylight.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Client went away mid-scan.
		s.logger.Debug("daylight prediction aborted", "error", err)
		return
	}
	if events == nil {
		events = []daylight.Event{}
	}

	resp := daylightResponse{
		Lat:    lat,
		Lon:    lon,
		From:   from.Format(time.RFC3339),
		Hours:  hours,
		Events: events,
	}
	rise, set := daylight.Reference(lat, lon, from)
	if !rise.IsZero() || !set.IsZero() {
		resp.Reference = &referenceTimes{}
		if !rise.IsZero() {
			resp.Reference.Sunrise = rise.UTC().Format(time.RFC3339)
		}
		if !set.IsZero() {
			resp.Reference.Sunset = set.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type cacheStatsResponse struct {
	composite.Stats
	Overlay        bool    `json:"overlay"`
	OverlayOpacity float64 `json:"overlay_opacity,omitempty"`
}

// GET /api/v1/cache/stats
func (s *Server) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	resp := cacheStatsResponse{Stats: s.world.Stats()}
	if o := s.overlay.Load(); o != nil {
		resp.Overlay = true
		resp.OverlayOpacity = o.Opacity()
	}
	writeJSON(w, http.StatusOK, resp)
}
