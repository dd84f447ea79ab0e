package solar

import (
	"image"
	"math"
	"time"
)

// Horizon altitudes in degrees: the sea-level horizon including refraction
// and the twilight horizon.
const (
	HorizonSeaLevel = -50.0 / 60.0
	HorizonTwilight = -360.0 / 45.0
)

// Illumination classifies one pixel of the world raster.
type Illumination uint8

const (
	// Day means the sun is above the sea-level horizon.
	Day Illumination = iota
	// CivilNight means the sun is below the sea-level horizon.
	CivilNight
	// TwilightNight means the sun is below the twilight horizon.
	TwilightNight
)

// Alpha bytes written for each class where the mask meets an alpha channel.
const (
	alphaDay           = 0x00
	alphaCivilNight    = 0x80
	alphaTwilightNight = 0xFF
)

// Alpha returns the opacity of the night layer for l.
func (l Illumination) Alpha() uint8 {
	switch l {
	case CivilNight:
		return alphaCivilNight
	case TwilightNight:
		return alphaTwilightNight
	default:
		return alphaDay
	}
}

func (l Illumination) String() string {
	switch l {
	case Day:
		return "day"
	case CivilNight:
		return "civil_night"
	case TwilightNight:
		return "twilight_night"
	default:
		return "unknown"
	}
}

// band pairs a horizon with the class written when the sun is below it.
// Bands are evaluated in order; a later mark overwrites an earlier one.
type band struct {
	sinH0 float64
	class Illumination
}

var bands = [2]band{
	{sinH0: math.Sin(radians(HorizonSeaLevel)), class: CivilNight},
	{sinH0: math.Sin(radians(HorizonTwilight)), class: TwilightNight},
}

// Mask is a width×height grid of illumination classes stored row-major,
// top row first.
type Mask struct {
	Width  int
	Height int
	cells  []Illumination
}

func newMask(width, height int) *Mask {
	if width <= 0 || height <= 0 {
		return &Mask{}
	}
	return &Mask{
		Width:  width,
		Height: height,
		cells:  make([]Illumination, width*height),
	}
}

// At returns the class of pixel (x, y). Out-of-range coordinates are Day.
func (m *Mask) At(x, y int) Illumination {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Day
	}
	return m.cells[y*m.Width+x]
}

func (m *Mask) set(x, y int, l Illumination) {
	m.cells[y*m.Width+x] = l
}

// Bytes returns one alpha byte per pixel, row-major, top row first.
func (m *Mask) Bytes() []byte {
	out := make([]byte, len(m.cells))
	for i, c := range m.cells {
		out[i] = c.Alpha()
	}
	return out
}

// Alpha returns the mask as an alpha image anchored at the origin.
func (m *Mask) Alpha() *image.Alpha {
	return &image.Alpha{
		Pix:    m.Bytes(),
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// Counts returns how many pixels fall into each class.
func (m *Mask) Counts() map[Illumination]int {
	counts := make(map[Illumination]int, 3)
	for _, c := range m.cells {
		counts[c]++
	}
	return counts
}

// Equal reports whether both masks have the same size and classes.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height || len(m.cells) != len(o.cells) {
		return false
	}
	for i := range m.cells {
		if m.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// RowLatitude returns the latitude in degrees sampled by output row y.
// Rows are written bottom-up relative to the latitude scan, so the last
// row samples +90°.
func RowLatitude(y, height int) float64 {
	i := height - y - 1
	return 90 - float64(i)*180.0/float64(height)
}

// ColumnLongitude returns the mirrored longitude (positive west) sampled
// by column x.
func ColumnLongitude(x, width int) float64 {
	return 180.0 - float64(x)*360.0/float64(width)
}

// sunState caches the per-instant quantities shared by every pixel.
type sunState struct {
	alpha    float64
	theta    float64
	sinDelta float64
	cosDelta float64
	f        float64
}

func newSunState(p Position) sunState {
	return sunState{
		alpha:    p.RightAscension,
		theta:    p.SiderealTime,
		sinDelta: math.Sin(p.Declination),
		cosDelta: math.Cos(p.Declination),
		f:        p.DayFraction,
	}
}

// transit returns the transit fraction m0 for a mirrored longitude.
func (s *sunState) transit(longitude float64) float64 {
	return reduce((s.alpha+longitude-s.theta)/360.0, 1)
}

// classify runs both horizon bands for one point given the sine and
// cosine of its latitude and the transit fraction m0 of its longitude.
func (s *sunState) classify(sinLat, cosLat, m0 float64) Illumination {
	class := Day
	for _, b := range bands {
		cosH0 := (b.sinH0 - sinLat*s.sinDelta) / (cosLat * s.cosDelta)

		if cosH0 > 1.0 {
			// Never rises above this horizon today.
			class = b.class
			continue
		}
		// Below -1 the sun never sets below this horizon; NaN from a
		// 0/0 pole is left unmarked as well.
		if !(cosH0 >= -1.0) {
			continue
		}

		h0 := degrees(math.Acos(cosH0)) / 360.0
		m1 := reduce(m0-h0, 1) // rise
		m2 := reduce(m0+h0, 1) // set

		if (m1 < m2 && (s.f < m1 || s.f > m2)) || (m1 > m2 && s.f > m2 && s.f < m1) {
			class = b.class
		}
	}
	return class
}

// HorizonCosine returns cos(H0) for a horizon altitude and latitude in
// degrees and a declination in radians. Values above 1 mean the point
// stays below that horizon all day, values below -1 that it stays above.
// Degenerate poles follow IEEE division semantics (±Inf or NaN).
func HorizonCosine(h0Deg, latDeg, decl float64) float64 {
	lat := radians(latDeg)
	return (math.Sin(radians(h0Deg)) - math.Sin(lat)*math.Sin(decl)) / (math.Cos(lat) * math.Cos(decl))
}

// ComputeMask classifies every pixel of a width×height equirectangular
// raster for instant t. A non-positive dimension yields an empty mask.
func ComputeMask(t time.Time, width, height int) *Mask {
	m := newMask(width, height)
	if len(m.cells) == 0 {
		return m
	}
	s := newSunState(SunAt(t))
	m0 := transits(&s, width)
	fillRows(m, &s, m0, 0, height)
	return m
}

// transits precomputes m0 for every column; it depends only on longitude.
func transits(s *sunState, width int) []float64 {
	m0 := make([]float64, width)
	for j := range m0 {
		m0[j] = s.transit(ColumnLongitude(j, width))
	}
	return m0
}

// fillRows classifies latitude-scan rows [from, to).
func fillRows(m *Mask, s *sunState, m0 []float64, from, to int) {
	for i := from; i < to; i++ {
		latitude := 90 - float64(i)*180.0/float64(m.Height)
		lat := radians(latitude)
		sinLat, cosLat := math.Sin(lat), math.Cos(lat)
		y := m.Height - i - 1
		for j := 0; j < m.Width; j++ {
			if c := s.classify(sinLat, cosLat, m0[j]); c != Day {
				m.set(j, y, c)
			}
		}
	}
}

// ClassifyAt returns the illumination class of a single geographic point
// at instant t using the same test as ComputeMask. lonEast is positive
// east of Greenwich.
func ClassifyAt(t time.Time, latDeg, lonEast float64) Illumination {
	s := newSunState(SunAt(t))
	lat := radians(latDeg)
	return s.classify(math.Sin(lat), math.Cos(lat), s.transit(-lonEast))
}
