package solar

import (
	"math"
	"time"
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

func radians(deg float64) float64 { return deg * degToRad }

func degrees(rad float64) float64 { return rad * radToDeg }

// Position is the sun's apparent place for one instant together with the
// intermediate quantities the mask engine needs.
type Position struct {
	JulianDay      float64 // at 0h of the UTC date
	Century        float64 // Julian centuries since J2000.0
	RightAscension float64 // degrees, [0, 360]
	Declination    float64 // radians
	SiderealTime   float64 // mean Greenwich sidereal time at 0h, degrees
	DayFraction    float64 // elapsed fraction of the UTC day
}

// SunAt computes the apparent solar position for t.
func SunAt(t time.Time) Position {
	cal := CalendarOf(t)

	jd := JulianDay(cal.Day, cal.Month, cal.Year)
	T := JulianCentury(jd)
	alpha, delta := PositionAt(T)

	return Position{
		JulianDay:      jd,
		Century:        T,
		RightAscension: alpha,
		Declination:    delta,
		SiderealTime:   MeanSiderealTime(T),
		DayFraction:    FractionalDay(cal.Hour, cal.Minute, cal.Second),
	}
}

// PositionAt returns the apparent right ascension (degrees) and apparent
// declination (radians) of the sun at Julian century T.
func PositionAt(T float64) (alpha, delta float64) {
	l0 := meanLongitude(T)
	m := meanAnomaly(T)
	c := centerEquation(radians(m), T)
	trueLon := l0 + c
	omega := ascendingNode(T)
	lambda := radians(apparentLongitude(trueLon, omega))
	epsilon := radians(eclipticObliquity(T))

	// Low-accuracy nutation correction of the obliquity.
	epsilon += radians(0.00256) * math.Cos(radians(omega))

	alpha = reduce(degrees(math.Atan2(math.Cos(epsilon)*math.Sin(lambda), math.Cos(lambda))), 360)
	delta = math.Asin(math.Sin(epsilon) * math.Sin(lambda))
	return alpha, delta
}

// meanLongitude is the geometric mean longitude L0 in degrees.
func meanLongitude(T float64) float64 {
	return reduce(280.46646+36000.76983*T+math.Pow(0.0003032*T, 2), 360)
}

// meanAnomaly is the mean anomaly M in degrees.
func meanAnomaly(T float64) float64 {
	return reduce(357.52911+35999.05029*T-math.Pow(0.0001537*T, 2), 360)
}

// centerEquation takes the mean anomaly in radians and returns C in degrees.
func centerEquation(m, T float64) float64 {
	return (1.914602-0.004817*T-0.000014*(T*T))*math.Sin(m) +
		(0.019993-0.000101*T)*math.Sin(2.0*m) +
		0.000289*math.Sin(3.0*m)
}

// ascendingNode is the longitude of the moon's ascending node Ω in degrees.
func ascendingNode(T float64) float64 {
	return 125.04 - 1934.136*T
}

func apparentLongitude(trueLon, omega float64) float64 {
	return trueLon - 0.00569 - 0.00478*math.Sin(radians(omega))
}

// eclipticObliquity is the mean obliquity ε0 in degrees.
func eclipticObliquity(T float64) float64 {
	return 23.0 + (26.0+((21.448-T*(46.8150+T*(0.00059-T*(0.001813))))/60.0))/60.0
}

// MeanSiderealTime returns the mean Greenwich sidereal time in degrees
// for Julian century T, reduced to [0, 360].
func MeanSiderealTime(T float64) float64 {
	theta := 100.46061837 + 36000.770053608*T + 0.000387933*(T*T) - (T*T*T)/38710000
	return reduce(theta, 360)
}
