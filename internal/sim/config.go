package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
)

const (
	// MinRangeM is the inner reflection boundary for primary tracks.
	MinRangeM = 200.0

	// MaxRadialSpeedMPS bounds the radial velocity drawn for primary tracks.
	MaxRadialSpeedMPS = 35.0

	// SAC and SIC identify the simulated sensor in every record.
	SAC = 1
	SIC = 1

	// CustomTrackNumberBase offsets custom track ids into their own band
	// of record track numbers, above every primary track number.
	CustomTrackNumberBase = 8000

	// MaxCustomTrackID is the largest custom track id whose record track
	// number still fits in 16 bits.
	MaxCustomTrackID = 0xFFFF - CustomTrackNumberBase
)

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("invalid simulator config")

// Config holds the fixed parameters of a simulation run.
type Config struct {
	ScanRateHz       int
	SectorStepDeg    int
	TargetsPerSector int
	MaxRangeM        float64
	RCSM2Min         float64
	RCSM2Max         float64
	Seed             int64

	// Clock drives the stepper. Defaults to timeutil.RealClock.
	Clock timeutil.Clock
}

// SectorCount is the number of sectors swept from 0 to 360 degrees.
func (c Config) SectorCount() int {
	if c.SectorStepDeg <= 0 {
		return 0
	}
	return (360 + c.SectorStepDeg - 1) / c.SectorStepDeg
}

// GridSize is the number of primary tracks the config produces.
func (c Config) GridSize() int {
	return c.SectorCount() * c.TargetsPerSector
}

// Validate checks that the config describes a grid the stepper can run.
func (c Config) Validate() error {
	switch {
	case c.ScanRateHz <= 0:
		return fmt.Errorf("%w: scan rate must be positive, got %d", ErrInvalidConfig, c.ScanRateHz)
	case c.SectorStepDeg <= 0 || c.SectorStepDeg > 360:
		return fmt.Errorf("%w: sector step must be in (0, 360], got %d", ErrInvalidConfig, c.SectorStepDeg)
	case c.TargetsPerSector < 0:
		return fmt.Errorf("%w: targets per sector must be non-negative, got %d", ErrInvalidConfig, c.TargetsPerSector)
	case math.IsNaN(c.MaxRangeM) || c.MaxRangeM < MinRangeM:
		return fmt.Errorf("%w: max range must be at least %.0f m, got %v", ErrInvalidConfig, MinRangeM, c.MaxRangeM)
	case c.RCSM2Min > c.RCSM2Max:
		return fmt.Errorf("%w: rcs range min %v exceeds max %v", ErrInvalidConfig, c.RCSM2Min, c.RCSM2Max)
	case c.GridSize() >= CustomTrackNumberBase:
		return fmt.Errorf("%w: %d primary tracks would overlap custom track numbers from %d",
			ErrInvalidConfig, c.GridSize(), CustomTrackNumberBase)
	}
	return nil
}
