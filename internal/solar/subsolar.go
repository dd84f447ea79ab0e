package solar

import (
	"math"
	"time"

	"github.com/golang/geo/s2"
)

// Point is a geographic position in degrees, longitude positive east.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LatLng converts p to an s2 coordinate.
func (p Point) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// Subsolar returns the point where the sun is at the zenith at t, using
// the same transit model as the mask: the meridian whose transit
// fraction equals the elapsed fraction of the day.
func Subsolar(t time.Time) Point {
	return subsolarFor(SunAt(t))
}

func subsolarFor(p Position) Point {
	// Mirrored (west-positive) longitude with m0 == f.
	west := 360.0*p.DayFraction - p.RightAscension + p.SiderealTime
	lon := math.Mod(-west, 360)
	switch {
	case lon > 180:
		lon -= 360
	case lon <= -180:
		lon += 360
	}
	return Point{Lat: degrees(p.Declination), Lon: lon}
}

// Elevation approximates the solar altitude in degrees at a point as 90°
// minus its great-circle distance from the sub-solar point. Refraction is
// ignored.
func Elevation(t time.Time, lat, lon float64) float64 {
	sub := Subsolar(t).LatLng()
	here := s2.LatLngFromDegrees(lat, lon)
	return 90 - here.Distance(sub).Degrees()
}
