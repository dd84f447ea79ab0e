package composite

import (
	"log/slog"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Option configures a World.
type Option func(*World)

// WithTime sets the initial instant. The default is the current time.
func WithTime(t time.Time) Option {
	return func(w *World) {
		w.millis.Store(t.UnixMilli())
	}
}

// WithWorkers sets how many goroutines compute a mask. Values below 1
// compute serially.
func WithWorkers(n int) Option {
	return func(w *World) {
		w.workers = n
	}
}

// WithInterpolator sets the kernel used for display scaling.
func WithInterpolator(interp xdraw.Interpolator) Option {
	return func(w *World) {
		if interp != nil {
			w.interp = interp
		}
	}
}

// WithLogger sets the logger for rebuild events.
func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}
