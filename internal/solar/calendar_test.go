package solar

import (
	"math"
	"testing"
	"time"
)

// TestJulianDay pins the legacy Julian Day arithmetic. The values differ
// from a modern ephemeris on purpose: they are what the reference masks
// were produced with.
func TestJulianDay(t *testing.T) {
	tests := []struct {
		name             string
		day, month, year int
		expected         float64
	}{
		{name: "J2000 date", day: 1, month: 1, year: 2000, expected: 2449591.5},
		{name: "last day of 1999", day: 31, month: 12, year: 1999, expected: 2449865.5},
		{name: "June solstice 2000", day: 21, month: 6, year: 2000, expected: 2450037.5},
		{name: "first Gregorian day", day: 15, month: 10, year: 1582, expected: 2297586.5},
		{name: "last Julian day", day: 4, month: 10, year: 1582, expected: 2297585.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDay(tt.day, tt.month, tt.year)
			if got != tt.expected {
				t.Errorf("JulianDay(%d, %d, %d) = %.1f, want %.1f", tt.day, tt.month, tt.year, got, tt.expected)
			}
		})
	}
}

// TestJulianDayCutoverContinuity verifies the Gregorian correction switches
// on exactly at 1582-10-15 so the calendar reform skips no Julian Day.
func TestJulianDayCutoverContinuity(t *testing.T) {
	before := JulianDay(4, 10, 1582)
	after := JulianDay(15, 10, 1582)
	if after-before != 1 {
		t.Errorf("JD(1582-10-15) - JD(1582-10-04) = %v, want 1", after-before)
	}

	if isGregorian(14, 10, 1582) {
		t.Error("1582-10-14 should use the Julian calendar")
	}
	if !isGregorian(15, 10, 1582) {
		t.Error("1582-10-15 should use the Gregorian calendar")
	}
	if !isGregorian(1, 1, 1583) || isGregorian(31, 12, 1581) || !isGregorian(1, 11, 1582) {
		t.Error("year/month comparison is wrong")
	}
}

func TestJulianCentury(t *testing.T) {
	if got := JulianCentury(j2000); got != 0 {
		t.Errorf("JulianCentury(J2000) = %v, want 0", got)
	}
	if got := JulianCentury(j2000 + daysPerCentury); got != 1 {
		t.Errorf("JulianCentury(J2000+36525) = %v, want 1", got)
	}
}

func TestCalendarOf(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected Calendar
	}{
		{
			name:     "modern instant",
			time:     time.Date(2024, 3, 10, 15, 30, 45, 999, time.UTC),
			expected: Calendar{Year: 2024, Month: 3, Day: 10, Hour: 15, Minute: 30, Second: 45},
		},
		{
			name:     "non-UTC location is read in UTC",
			time:     time.Date(2024, 3, 10, 23, 0, 0, 0, time.FixedZone("X", 2*3600)),
			expected: Calendar{Year: 2024, Month: 3, Day: 10, Hour: 21, Minute: 0, Second: 0},
		},
		{
			name:     "cutover day",
			time:     time.Date(1582, 10, 15, 0, 0, 0, 0, time.UTC),
			expected: Calendar{Year: 1582, Month: 10, Day: 15},
		},
		{
			// Proleptic Gregorian 1582-10-14 is Julian 1582-10-04.
			name:     "day before cutover",
			time:     time.Date(1582, 10, 14, 23, 59, 59, 0, time.UTC),
			expected: Calendar{Year: 1582, Month: 10, Day: 4, Hour: 23, Minute: 59, Second: 59},
		},
		{
			name:     "noon before cutover",
			time:     time.Date(1582, 10, 14, 12, 0, 0, 0, time.UTC),
			expected: Calendar{Year: 1582, Month: 10, Day: 4, Hour: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalendarOf(tt.time)
			if got != tt.expected {
				t.Errorf("CalendarOf(%v) = %+v, want %+v", tt.time, got, tt.expected)
			}
		})
	}
}

func TestFractionalDay(t *testing.T) {
	tests := []struct {
		h, m, s  int
		expected float64
	}{
		{0, 0, 0, 0},
		{12, 0, 0, 0.5},
		{6, 0, 0, 0.25},
		{23, 59, 59, 86399.0 / 86400.0},
	}
	for _, tt := range tests {
		got := FractionalDay(tt.h, tt.m, tt.s)
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("FractionalDay(%d, %d, %d) = %v, want %v", tt.h, tt.m, tt.s, got, tt.expected)
		}
	}
}

// loopReduce is the reference range reduction: subtract while above the
// period, then add while negative.
func loopReduce(x, period float64) float64 {
	for x > period {
		x -= period
	}
	for x < 0 {
		x += period
	}
	return x
}

func TestReduce(t *testing.T) {
	tests := []struct {
		x, period, expected float64
	}{
		{725, 360, 5},
		{720, 360, 360},
		{360, 360, 360},
		{0, 360, 0},
		{-1, 360, 359},
		{-360, 360, 0},
		{-720.5, 360, 359.5},
		{1.5, 1, 0.5},
		{2, 1, 1},
		{-0.25, 1, 0.75},
		{-3, 1, 0},
	}
	for _, tt := range tests {
		got := reduce(tt.x, tt.period)
		if got != tt.expected {
			t.Errorf("reduce(%v, %v) = %v, want %v", tt.x, tt.period, got, tt.expected)
		}
	}
}

// TestReduceMatchesLoop checks the modulo form is bit-identical to the
// loop form, including for values whose loop would run many iterations.
func TestReduceMatchesLoop(t *testing.T) {
	values := []float64{
		-1e-20, 1e-20, 359.9999999999, 360.0000000001, -359.9999999999,
		12345.678901, -12345.678901, 1934.136 * 3.7, -36000.76983 * 2.25,
		280.46646 + 36000.76983*-0.053484, 1e6 + 0.1, -1e6 - 0.1,
	}
	for _, v := range values {
		for _, period := range []float64{360, 1} {
			want := loopReduce(v, period)
			got := reduce(v, period)
			if got != want || math.Signbit(got) != math.Signbit(want) {
				t.Errorf("reduce(%v, %v) = %v, loop gives %v", v, period, got, want)
			}
		}
	}

	if !math.IsNaN(reduce(math.NaN(), 360)) {
		t.Error("NaN should pass through")
	}
}
