// Package daylight predicts when a point on the map changes illumination
// class: sunset, dusk, dawn and sunrise as the day/night mask draws them.
package daylight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/star/sunclock/internal/solar"
)

// Event kinds.
const (
	Sunset  = "sunset"
	Dusk    = "dusk"
	Dawn    = "dawn"
	Sunrise = "sunrise"
)

const (
	defaultHorizon = 24 * time.Hour
	defaultStep    = 5 * time.Minute
	maxHorizon     = 31 * 24 * time.Hour
	resolution     = time.Second
)

// ErrInvalidRequest reports a coordinate or window outside its range.
var ErrInvalidRequest = errors.New("daylight: invalid request")

// Request describes a point and the window to scan.
type Request struct {
	Lat     float64       // degrees, north positive
	Lon     float64       // degrees, east positive
	From    time.Time     // window start
	Horizon time.Duration // window length (default: 24h)
	Step    time.Duration // coarse scan step (default: 5m)
}

// Event is one change of illumination class at the requested point.
type Event struct {
	Kind string    `json:"kind"`
	Time time.Time `json:"time"`
	From string    `json:"from"`
	To   string    `json:"to"`
}

func (r *Request) normalize() error {
	if math.IsNaN(r.Lat) || r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidRequest, r.Lat)
	}
	if math.IsNaN(r.Lon) || r.Lon < -180 || r.Lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidRequest, r.Lon)
	}
	if r.Horizon == 0 {
		r.Horizon = defaultHorizon
	}
	if r.Horizon < 0 || r.Horizon > maxHorizon {
		return fmt.Errorf("%w: horizon %v outside (0, %v]", ErrInvalidRequest, r.Horizon, maxHorizon)
	}
	if r.Step == 0 {
		r.Step = defaultStep
	}
	if r.Step < resolution || r.Step > r.Horizon {
		return fmt.Errorf("%w: step %v outside [%v, %v]", ErrInvalidRequest, r.Step, resolution, r.Horizon)
	}
	if r.From.IsZero() {
		r.From = time.Now()
	}
	r.From = r.From.UTC().Truncate(resolution)
	return nil
}

// Predict scans the window at the coarse step and refines each change of
// class by bisection to one second. Events are returned in time order.
func Predict(ctx context.Context, req Request) ([]Event, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	classify := func(t time.Time) solar.Illumination {
		return solar.ClassifyAt(t, req.Lat, req.Lon)
	}

	var events []Event
	end := req.From.Add(req.Horizon)
	a := req.From
	ca := classify(a)

	for a.Before(end) {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		b := a.Add(req.Step)
		if b.After(end) {
			b = end
		}
		cb := classify(b)

		// A step may cross more than one boundary; walk them in order.
		for ca != cb {
			t := firstChange(classify, a, b, ca)
			ct := classify(t)
			events = append(events, Event{
				Kind: kindOf(ca, ct),
				Time: t,
				From: ca.String(),
				To:   ct.String(),
			})
			a, ca = t, ct
		}
		a, ca = b, cb
	}
	return events, nil
}

// firstChange returns the earliest instant in (a, b] whose class differs
// from ca, to one-second resolution. classify(b) must differ from ca.
func firstChange(classify func(time.Time) solar.Illumination, a, b time.Time, ca solar.Illumination) time.Time {
	for b.Sub(a) > resolution {
		mid := a.Add(b.Sub(a) / 2).Truncate(resolution)
		if !mid.After(a) {
			break
		}
		if classify(mid) == ca {
			a = mid
		} else {
			b = mid
		}
	}
	return b
}

// kindOf names a transition by the direction of change and its endpoint.
func kindOf(from, to solar.Illumination) string {
	if to > from {
		if from == solar.Day {
			return Sunset
		}
		return Dusk
	}
	if to == solar.Day {
		return Sunrise
	}
	return Dawn
}

// Reference returns sunrise and sunset in UTC for the date of day at the
// point, from an independent ephemeris. Both are zero when the sun does
// not rise or does not set.
func Reference(lat, lon float64, day time.Time) (rise, set time.Time) {
	d := day.UTC()
	return sunrise.SunriseSunset(lat, lon, d.Year(), d.Month(), d.Day())
}
