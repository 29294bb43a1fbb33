// Package units provides shared angle and distance conversions.
package units

import "math"

// Angles are carried in degrees throughout the simulator; math functions
// take radians.
const (
	FullCircleDeg = 360.0
	HalfCircleDeg = 180.0

	MetersPerKm = 1000.0
)

// NormalizeDeg maps any angle onto [0, 360). Negative angles wrap upwards,
// so -90 becomes 270.
func NormalizeDeg(deg float64) float64 {
	d := math.Mod(deg, FullCircleDeg)
	if d < 0 {
		d += FullCircleDeg
	}
	// -1e-20 + 360 rounds to exactly 360
	if d >= FullCircleDeg {
		d -= FullCircleDeg
	}
	return d
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / HalfCircleDeg
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * HalfCircleDeg / math.Pi
}

// KmToM converts kilometres to metres.
func KmToM(km float64) float64 {
	return km * MetersPerKm
}

// Bearing returns the azimuth of (x, y) in degrees on [0, 360), measured
// counter-clockwise from the +X axis.
func Bearing(x, y float64) float64 {
	return NormalizeDeg(RadToDeg(math.Atan2(y, x)))
}
