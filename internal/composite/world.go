// Package composite blends a day image and a night image through the solar
// day/night mask and caches the result.
//
// A World keeps two slots: the full-resolution composite for the current
// millisecond timestamp and the most recent scaled copy of it. The
// composite is rebuilt only when the timestamp changes; the scaled copy
// only when the requested size or its source composite changes. Each slot
// holds an immutable entry behind an atomic.Pointer, so renders never
// observe a partially built image.
package composite

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/star/sunclock/internal/imagery"
	"github.com/star/sunclock/internal/metrics"
	"github.com/star/sunclock/internal/solar"
)

// Renderer produces an image of exactly width×height pixels.
type Renderer interface {
	Render(width, height int) (image.Image, error)
}

// compositeEntry is the blended full-resolution image for one timestamp.
// Immutable after construction.
type compositeEntry struct {
	millis int64
	img    *image.NRGBA
}

// scaledEntry is a display-sized copy of one composite entry.
// Immutable after construction.
type scaledEntry struct {
	source        *compositeEntry
	width, height int
	img           image.Image
}

// World renders the day/night composite for a settable instant.
// SetTime may be called concurrently with Render.
type World struct {
	day    *image.NRGBA
	night  *image.NRGBA // fully opaque; the mask supplies its alpha
	width  int
	height int

	workers int
	interp  xdraw.Interpolator
	logger  *slog.Logger

	millis    atomic.Int64
	composite atomic.Pointer[compositeEntry]
	scaled    atomic.Pointer[scaledEntry]
	buildMu   sync.Mutex // serializes composite rebuilds

	compositeHits     atomic.Int64
	compositeRebuilds atomic.Int64
	scaledHits        atomic.Int64
	scaledRebuilds    atomic.Int64
}

// NewWorld creates a World from equally sized day and night images.
// Mismatched or missing images fail with ErrConfiguration and nothing is
// built.
func NewWorld(day, night image.Image, opts ...Option) (*World, error) {
	if day == nil || night == nil {
		return nil, fmt.Errorf("%w: day and night images are required", ErrConfiguration)
	}
	db, nb := day.Bounds(), night.Bounds()
	if db.Dx() != nb.Dx() || db.Dy() != nb.Dy() {
		return nil, fmt.Errorf("%w: day image is %dx%d, night image is %dx%d",
			ErrConfiguration, db.Dx(), db.Dy(), nb.Dx(), nb.Dy())
	}

	w := &World{
		day:     imagery.ToNRGBA(day),
		night:   imagery.Opaque(night),
		width:   db.Dx(),
		height:  db.Dy(),
		workers: runtime.NumCPU(),
		interp:  xdraw.ApproxBiLinear,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	w.millis.Store(time.Now().UnixMilli())
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Size returns the dimensions of the source images.
func (w *World) Size() (width, height int) {
	return w.width, w.height
}

// SetTime records the instant the next render shows. It does no cache work.
func (w *World) SetTime(t time.Time) {
	w.millis.Store(t.UnixMilli())
}

// Time returns the current instant at millisecond resolution, in UTC.
func (w *World) Time() time.Time {
	return time.UnixMilli(w.millis.Load()).UTC()
}

// Render returns the composite for the current instant scaled to
// width×height. Repeated calls with an unchanged instant and size return
// the identical image value. Negative sizes fail with ErrInvalidArgument.
func (w *World) Render(width, height int) (image.Image, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: render size %dx%d", ErrInvalidArgument, width, height)
	}
	c := w.currentComposite(w.millis.Load())
	return w.scaledFrom(c, width, height)
}

// Composite returns the full-resolution composite for the current instant.
func (w *World) Composite() *image.NRGBA {
	return w.currentComposite(w.millis.Load()).img
}

// currentComposite returns the composite for millis, rebuilding it when the
// slot is empty or keyed to another timestamp (double-checked locking).
func (w *World) currentComposite(millis int64) *compositeEntry {
	if c := w.composite.Load(); c != nil && c.millis == millis {
		w.compositeHits.Add(1)
		metrics.RecordCacheLookup(metrics.SlotComposite, true)
		return c
	}

	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	if c := w.composite.Load(); c != nil && c.millis == millis {
		w.compositeHits.Add(1)
		metrics.RecordCacheLookup(metrics.SlotComposite, true)
		return c
	}

	c := &compositeEntry{millis: millis, img: w.blend(time.UnixMilli(millis))}
	w.composite.Store(c)
	w.compositeRebuilds.Add(1)
	metrics.RecordCacheLookup(metrics.SlotComposite, false)
	return c
}

// blend draws the day image, then the night image through the mask.
func (w *World) blend(t time.Time) *image.NRGBA {
	start := time.Now()
	mask := solar.ComputeMaskConcurrent(t, w.width, w.height, w.workers)
	maskDuration := time.Since(start)
	metrics.RecordMaskComputation(maskDuration)

	b := image.Rect(0, 0, w.width, w.height)
	dst := image.NewNRGBA(b)
	xdraw.Draw(dst, b, w.day, image.Point{}, xdraw.Src)
	xdraw.DrawMask(dst, b, w.night, image.Point{}, mask.Alpha(), image.Point{}, xdraw.Over)

	w.logger.Debug("composite rebuilt",
		"time", t.UTC().Format(time.RFC3339Nano),
		"width", w.width,
		"height", w.height,
		"mask_ms", maskDuration.Milliseconds(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return dst
}

// scaledFrom returns c scaled to width×height, reusing the scaled slot
// when it was built from c at that size. The source size returns c itself.
func (w *World) scaledFrom(c *compositeEntry, width, height int) (image.Image, error) {
	if width == w.width && height == w.height {
		return c.img, nil
	}

	if s := w.scaled.Load(); s != nil && s.source == c && s.width == width && s.height == height {
		w.scaledHits.Add(1)
		metrics.RecordCacheLookup(metrics.SlotScaled, true)
		return s.img, nil
	}

	img, err := imagery.Scale(c.img, width, height, w.interp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	w.scaled.Store(&scaledEntry{source: c, width: width, height: height, img: img})
	w.scaledRebuilds.Add(1)
	metrics.RecordCacheLookup(metrics.SlotScaled, false)
	return img, nil
}

// Stats reports cache activity since the World was created.
type Stats struct {
	Time              time.Time `json:"time"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	CompositeHits     int64     `json:"composite_hits"`
	CompositeRebuilds int64     `json:"composite_rebuilds"`
	ScaledHits        int64     `json:"scaled_hits"`
	ScaledRebuilds    int64     `json:"scaled_rebuilds"`
	ScaledWidth       int       `json:"scaled_width,omitempty"`
	ScaledHeight      int       `json:"scaled_height,omitempty"`
}

// Stats returns current cache statistics.
func (w *World) Stats() Stats {
	st := Stats{
		Time:              w.Time(),
		Width:             w.width,
		Height:            w.height,
		CompositeHits:     w.compositeHits.Load(),
		CompositeRebuilds: w.compositeRebuilds.Load(),
		ScaledHits:        w.scaledHits.Load(),
		ScaledRebuilds:    w.scaledRebuilds.Load(),
	}
	if s := w.scaled.Load(); s != nil {
		st.ScaledWidth, st.ScaledHeight = s.width, s.height
	}
	return st
}
