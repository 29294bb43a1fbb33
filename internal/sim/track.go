package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/phoenix.tracksim/internal/units"
)

// PrimaryTrack is a grid-generated target. It moves only in range, along
// the fixed azimuth at the centre of its sector.
type PrimaryTrack struct {
	TargetID          string
	TrackNumber       int
	SectorDeg         float64
	AzimuthDeg        float64
	RangeM            float64
	RadialVelocityMPS float64
	RCSM2             float64
}

// XY returns the Cartesian position of the track.
func (t PrimaryTrack) XY() (x, y float64) {
	az := units.DegToRad(t.AzimuthDeg)
	return math.Cos(az) * t.RangeM, math.Sin(az) * t.RangeM
}

// CustomTrack is an operator-placed target tied to a catalog profile. It
// moves at constant speed along its heading in the XY plane.
//
// RangeM and AzimuthDeg are derived from XM and YM; use PlaceAt or the
// stepper to move a track so they stay in sync.
type CustomTrack struct {
	TrackID      int
	PlatformID   int
	PlatformName string
	ProfileName  string
	XM           float64
	YM           float64
	RangeM       float64
	AzimuthDeg   float64
	AltitudeM    float64
	HeadingDeg   float64
	SpeedMPS     float64
	RCSM2        *float64

	// CreatedTimeS is the simulation time of day when the track id first
	// appeared. Records for the track carry time relative to it.
	CreatedTimeS float64
}

// PlaceAt positions the track from polar coordinates. Negative ranges are
// treated as zero.
func (t *CustomTrack) PlaceAt(rangeM, azimuthDeg float64) {
	rangeM = math.Max(0, rangeM)
	t.setPosition(r2.Scale(rangeM, unitVec(azimuthDeg)))
}

func (t *CustomTrack) position() r2.Vec {
	return r2.Vec{X: t.XM, Y: t.YM}
}

func (t *CustomTrack) setPosition(p r2.Vec) {
	t.XM, t.YM = p.X, p.Y
	t.RangeM = r2.Norm(p)
	t.AzimuthDeg = units.Bearing(p.X, p.Y)
}

func (t *CustomTrack) finite() bool {
	for _, v := range []float64{t.XM, t.YM, t.HeadingDeg, t.SpeedMPS} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// unitVec is the unit vector pointing along deg, counter-clockwise from +X.
func unitVec(deg float64) r2.Vec {
	rad := units.DegToRad(deg)
	return r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
}
