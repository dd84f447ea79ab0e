// Package solar computes the sun's apparent geocentric position with a
// low-precision (about 0.01°) series and classifies every pixel of an
// equirectangular world raster as day, civil night or twilight night.
//
// The Julian Day arithmetic keeps the integer truncations of the legacy
// algorithm. Masks match legacy output bit for bit, not a modern
// ephemeris.
package solar

import (
	"math"
	"time"
)

// Start of the Gregorian calendar (first day after the Julian calendar).
const (
	gregorianYear  = 1582
	gregorianMonth = 10
	gregorianDay   = 15
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// daysPerCentury is the length of a Julian century in days.
const daysPerCentury = 36525.0

// legacyYearDays is the whole-day year length used by the year term of
// JulianDay: 365.25 truncated before multiplying.
const legacyYearDays = 365

// unixEpochJDN is the Julian Day Number of 1970-01-01.
const unixEpochJDN = 2440588

// gregorianCutover is the first instant of 1582-10-15 UTC.
var gregorianCutover = time.Date(gregorianYear, gregorianMonth, gregorianDay, 0, 0, 0, 0, time.UTC)

// Calendar holds the UTC wall-clock fields of an instant.
type Calendar struct {
	Year   int
	Month  int // 1-12
	Day    int
	Hour   int
	Minute int
	Second int
}

// CalendarOf extracts calendar fields from t as read in UTC. Instants
// before 1582-10-15 are expressed in the Julian calendar, later ones in
// the Gregorian calendar.
func CalendarOf(t time.Time) Calendar {
	t = t.UTC()
	if !t.Before(gregorianCutover) {
		return Calendar{
			Year:   t.Year(),
			Month:  int(t.Month()),
			Day:    t.Day(),
			Hour:   t.Hour(),
			Minute: t.Minute(),
			Second: t.Second(),
		}
	}

	secs := t.Unix()
	days := floorDiv(secs, 86400)
	rem := secs - days*86400
	year, month, day := julianCalendarFromJDN(days + unixEpochJDN)
	return Calendar{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   int(rem / 3600),
		Minute: int(rem % 3600 / 60),
		Second: int(rem % 60),
	}
}

// julianCalendarFromJDN converts a Julian Day Number to a date in the
// Julian calendar (Richards' algorithm, valid for JDN >= 0).
func julianCalendarFromJDN(jdn int64) (year, month, day int) {
	c := jdn + 32082
	d := floorDiv(4*c+3, 1461)
	e := c - floorDiv(1461*d, 4)
	m := floorDiv(5*e+2, 153)

	day = int(e - floorDiv(153*m+2, 5) + 1)
	month = int(m + 3 - 12*floorDiv(m, 10))
	year = int(d - 4800 + floorDiv(m, 10))
	return year, month, day
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// isGregorian reports whether the date falls on or after 1582-10-15.
func isGregorian(day, month, year int) bool {
	switch {
	case year != gregorianYear:
		return year > gregorianYear
	case month != gregorianMonth:
		return month > gregorianMonth
	default:
		return day >= gregorianDay
	}
}

// JulianDay returns the Julian Day at 0h of the given civil date.
//
// January and February are shifted to month+3 of the previous year and
// the year term uses a whole-day year length. The month term is
// truncated. The Gregorian correction applies only on or after 1582-10-15.
func JulianDay(day, month, year int) float64 {
	gregorian := isGregorian(day, month, year)

	if month < 3 {
		year--
		month += 3
	}

	var b int
	if gregorian {
		a := year / 100
		b = 2 - a + a/4
	}

	return float64(legacyYearDays*(year+4716)) +
		float64(int(30.6001*float64(month+1))) +
		float64(day) + float64(b) - 1524.5
}

// JulianCentury converts a Julian Day to centuries since J2000.0.
func JulianCentury(jd float64) float64 {
	return (jd - j2000) / daysPerCentury
}

// FractionalDay returns the elapsed fraction of the UTC day.
func FractionalDay(hour, minute, second int) float64 {
	return float64(hour)/24.0 +
		float64(minute)/(24.0*60.0) +
		float64(second)/(24.0*60.0*60.0)
}

// reduce brings x into [0, period] exactly as repeatedly subtracting
// period while x > period and then adding it while x < 0 would: an exact
// multiple above the range ends at period, not zero. NaN passes through.
func reduce(x, period float64) float64 {
	switch {
	case x > period:
		x = math.Mod(x, period)
		if x == 0 {
			x = period
		}
	case x < 0:
		x = math.Mod(x, period)
		if x < 0 {
			x += period
		} else {
			x = 0
		}
	}
	return x
}
