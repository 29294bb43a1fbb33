package asterix

import (
	"encoding/binary"
	"math"

	"github.com/banshee-data/phoenix.tracksim/internal/units"
)

/*
CAT048 data item encoding used by this simulator

Every field is fixed point. Encoding rounds half to even, then clamps to the
representable step range (time of day is the exception: it wraps at 2^24).
Decoding is the plain inverse of the scale, so values outside the range come
back saturated.

	Item                 Width  Scale                          Range
	SAC/SIC              2      raw bytes                      0..255 each
	Time of day          3      1/128 s                        masked to 24 bits
	Polar (rho, theta)   2+2    2 m, 360/65535 deg             0..65535 each
	Cartesian (x, y)     2+2    4 m, two's complement          -32768..32767 each
	Track number         2      raw                            0..65535
	RCS                  2      marker byte, dBsm + 64         -64..63 dBsm

The azimuth divisor is 65535 rather than 65536; existing consumers of these
records depend on it.
*/

const (
	// Category is the ASTERIX category carried in byte 0 of every record.
	Category = 48

	RangeScaleM     = 2.0
	XYScaleM        = 4.0
	TimeOfDayPerSec = 128.0
	AzimuthSteps    = 65535.0

	// RCSFloorDBsm is the lowest encodable RCS and stands in for targets
	// with no RCS estimate or a non-positive area.
	RCSFloorDBsm = -64.0
	RCSCeilDBsm  = 63.0

	rcsMarker  = 0x40
	rcsOffset  = 64
	todMask    = 0xFFFFFF
	maxUint16  = 0xFFFF
	minInt16   = -32768
	maxInt16   = 32767
	todWidth   = 3
	pairWidth  = 4
	shortWidth = 2
)

// roundClamp rounds v half to even and saturates it to [lo, hi]. NaN encodes
// as zero.
func roundClamp(v float64, lo, hi int64) int64 {
	r := math.RoundToEven(v)
	switch {
	case math.IsNaN(r):
		r = 0
	case r < float64(lo):
		return lo
	case r > float64(hi):
		return hi
	}
	return int64(r)
}

// AppendSource appends the SAC and SIC bytes. Values above 255 are truncated
// to their low byte.
func AppendSource(b []byte, sac, sic int) []byte {
	return append(b, byte(sac&0xFF), byte(sic&0xFF))
}

// Source reads the SAC and SIC bytes.
func Source(b []byte) (sac, sic int) {
	return int(b[0]), int(b[1])
}

// AppendTimeOfDay appends the 3-byte time of day. The count of 1/128 s
// steps is masked to 24 bits, so the clock wraps rather than saturates.
func AppendTimeOfDay(b []byte, timeS float64) []byte {
	r := math.RoundToEven(timeS * TimeOfDayPerSec)
	var v int64
	if !math.IsNaN(r) && !math.IsInf(r, 0) && math.Abs(r) < 1<<62 {
		v = int64(r)
	}
	v &= todMask
	return append(b, byte(v>>16), byte(v>>8), byte(v))
}

// TimeOfDay reads a 3-byte time of day in seconds.
func TimeOfDay(b []byte) float64 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return float64(v) / TimeOfDayPerSec
}

// AppendPolar appends rho (2 m steps) and theta. The azimuth is reduced to
// [0, 360) before scaling.
func AppendPolar(b []byte, rangeM, azimuthDeg float64) []byte {
	rho := roundClamp(rangeM/RangeScaleM, 0, maxUint16)
	theta := roundClamp(units.NormalizeDeg(azimuthDeg)/units.FullCircleDeg*AzimuthSteps, 0, maxUint16)
	b = binary.BigEndian.AppendUint16(b, uint16(rho))
	return binary.BigEndian.AppendUint16(b, uint16(theta))
}

// Polar reads rho and theta as metres and degrees.
func Polar(b []byte) (rangeM, azimuthDeg float64) {
	rho := binary.BigEndian.Uint16(b[0:2])
	theta := binary.BigEndian.Uint16(b[2:4])
	return float64(rho) * RangeScaleM, float64(theta) / AzimuthSteps * units.FullCircleDeg
}

// AppendCartesian appends signed x and y in 4 m steps.
func AppendCartesian(b []byte, xM, yM float64) []byte {
	x := roundClamp(xM/XYScaleM, minInt16, maxInt16)
	y := roundClamp(yM/XYScaleM, minInt16, maxInt16)
	b = binary.BigEndian.AppendUint16(b, uint16(int16(x)))
	return binary.BigEndian.AppendUint16(b, uint16(int16(y)))
}

// Cartesian reads x and y in metres.
func Cartesian(b []byte) (xM, yM float64) {
	x := int16(binary.BigEndian.Uint16(b[0:2]))
	y := int16(binary.BigEndian.Uint16(b[2:4]))
	return float64(x) * XYScaleM, float64(y) * XYScaleM
}

// AppendTrackNumber appends the track number saturated to 16 bits.
func AppendTrackNumber(b []byte, trackNumber int) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(roundClamp(float64(trackNumber), 0, maxUint16)))
}

// TrackNumber reads a track number.
func TrackNumber(b []byte) int {
	return int(binary.BigEndian.Uint16(b))
}

// AppendRCS appends the marker byte followed by the whole-dB RCS offset by 64.
func AppendRCS(b []byte, rcsDBsm float64) []byte {
	v := roundClamp(rcsDBsm, RCSFloorDBsm, RCSCeilDBsm)
	return append(b, rcsMarker, byte(v+rcsOffset))
}

// RCS reads the RCS in dBsm. The marker byte is not checked.
func RCS(b []byte) float64 {
	return float64(int(b[1]) - rcsOffset)
}

// RCSM2ToDBsm converts a radar cross-section in square metres to dBsm.
// Non-positive areas map to the codec floor.
func RCSM2ToDBsm(rcsM2 float64) float64 {
	if rcsM2 <= 0 {
		return RCSFloorDBsm
	}
	return 10.0 * math.Log10(rcsM2)
}

// RCSDBsmToM2 converts dBsm back to square metres.
func RCSDBsmToM2(rcsDBsm float64) float64 {
	return math.Pow(10, rcsDBsm/10.0)
}
