// Package sim owns the simulated radar picture: a fixed sector-sweep grid of
// primary tracks, an operator-defined overlay of custom tracks, the stepper
// that moves both, and the snapshot builder that renders them with their
// encoded records.
//
// A Simulator is the single owner of that state. Every exported method takes
// the same lock, so stepping, custom track replacement and snapshotting each
// observe one coherent instant.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/phoenix.tracksim/internal/monitoring"
	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
	"github.com/banshee-data/phoenix.tracksim/internal/units"
)

// ErrInvalidTrack rejects a custom track batch. Nothing in the batch is
// applied.
var ErrInvalidTrack = errors.New("invalid custom track")

// Simulator holds all mutable simulation state.
type Simulator struct {
	mu sync.Mutex

	cfg   Config
	clock timeutil.Clock
	runID string

	primary []PrimaryTrack
	custom  []CustomTrack

	frameIndex    int
	timeOfDayS    float64
	lastUpdate    time.Time
	motionEnabled bool
}

// New builds the primary track grid for cfg. Motion starts disabled.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	s := &Simulator{
		cfg:   cfg,
		clock: cfg.Clock,
		runID: uuid.NewString(),
	}
	s.primary = buildGrid(cfg)
	s.lastUpdate = s.clock.Now()

	monitoring.Logf("sim %s: built %d primary tracks (%d sectors x %d), scan rate %d Hz, seed %d",
		s.runID, len(s.primary), cfg.SectorCount(), cfg.TargetsPerSector, cfg.ScanRateHz, cfg.Seed)
	return s, nil
}

// buildGrid lays out TargetsPerSector tracks per sector, spread from 10% to
// 100% of max range. The generator is consumed row-major over sectors then
// per-sector index, velocity before RCS, so a seed reproduces the grid.
func buildGrid(cfg Config) []PrimaryTrack {
	r := newRNG(cfg.Seed)
	step := cfg.SectorStepDeg
	perSector := cfg.TargetsPerSector

	tracks := make([]PrimaryTrack, 0, cfg.GridSize())
	trackNumber := 1
	for sector := 0; sector < 360; sector += step {
		for idx := 0; idx < perSector; idx++ {
			azimuth := float64(sector) + float64(step)/2.0
			rangeM := cfg.MaxRangeM * (0.1 + 0.9*float64(idx+1)/float64(perSector))
			velocity := r.Uniform(-MaxRadialSpeedMPS, MaxRadialSpeedMPS)
			rcs := r.Uniform(cfg.RCSM2Min, cfg.RCSM2Max)

			tracks = append(tracks, PrimaryTrack{
				TargetID:          fmt.Sprintf("T%04d", trackNumber),
				TrackNumber:       trackNumber,
				SectorDeg:         float64(sector),
				AzimuthDeg:        units.NormalizeDeg(azimuth),
				RangeM:            clampRange(rangeM, cfg.MaxRangeM),
				RadialVelocityMPS: velocity,
				RCSM2:             rcs,
			})
			trackNumber++
		}
	}
	return tracks
}

func clampRange(rangeM, maxRangeM float64) float64 {
	return max(MinRangeM, min(maxRangeM, rangeM))
}

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() Config {
	return s.cfg
}

// RunID identifies this simulator instance for the life of the process.
func (s *Simulator) RunID() string {
	return s.runID
}

// SetMotion enables or disables stepping.
func (s *Simulator) SetMotion(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.motionEnabled != enabled {
		monitoring.Logf("sim %s: motion enabled=%t at frame %d", s.runID, enabled, s.frameIndex)
	}
	s.motionEnabled = enabled
}

// MotionEnabled reports whether stepping is enabled.
func (s *Simulator) MotionEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motionEnabled
}

// SetCustomTracks replaces the whole custom track set. A track whose id
// matches one already present keeps that track's creation time, so its
// record clock carries on; new ids start their clock now. Tracks left out
// of the batch are dropped.
//
// Positions are re-derived from XM/YM and headings normalized to [0, 360).
// Duplicate ids, ids outside [0, MaxCustomTrackID] or non-finite
// kinematics reject the whole batch.
func (s *Simulator) SetCustomTracks(tracks []CustomTrack) error {
	seen := make(map[int]struct{}, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		if _, dup := seen[t.TrackID]; dup {
			return fmt.Errorf("%w: duplicate track id %d", ErrInvalidTrack, t.TrackID)
		}
		seen[t.TrackID] = struct{}{}
		if t.TrackID < 0 || t.TrackID > MaxCustomTrackID {
			return fmt.Errorf("%w: track id %d outside 0..%d", ErrInvalidTrack, t.TrackID, MaxCustomTrackID)
		}
		if !t.finite() {
			return fmt.Errorf("%w: track %d has non-finite kinematics", ErrInvalidTrack, t.TrackID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[int]float64, len(s.custom))
	for _, t := range s.custom {
		existing[t.TrackID] = t.CreatedTimeS
	}

	next := make([]CustomTrack, len(tracks))
	for i, t := range tracks {
		if created, ok := existing[t.TrackID]; ok {
			t.CreatedTimeS = created
		} else {
			t.CreatedTimeS = s.timeOfDayS
		}
		t.HeadingDeg = units.NormalizeDeg(t.HeadingDeg)
		if t.RCSM2 != nil {
			rcs := *t.RCSM2
			t.RCSM2 = &rcs
		}
		t.setPosition(t.position())
		next[i] = t
	}
	s.custom = next

	monitoring.Logf("sim %s: custom tracks replaced, %d active", s.runID, len(next))
	return nil
}

// PrimaryTracks returns a copy of the primary grid.
func (s *Simulator) PrimaryTracks() []PrimaryTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PrimaryTrack(nil), s.primary...)
}

// CustomTracks returns a copy of the custom track set.
func (s *Simulator) CustomTracks() []CustomTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CustomTrack, len(s.custom))
	copy(out, s.custom)
	return out
}

// Clock returns the simulation time of day in seconds and the frame counter.
func (s *Simulator) Clock() (timeOfDayS float64, frameIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeOfDayS, s.frameIndex
}
