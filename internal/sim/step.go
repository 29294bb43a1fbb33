package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/phoenix.tracksim/internal/units"
)

// Update advances the simulation by the wall-clock time elapsed since the
// previous call, quantized to whole scan ticks.
func (s *Simulator) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update()
}

// update is Update without the lock. At least one tick is taken per call.
// The frame counter counts calls, not ticks. While motion is disabled only
// the wall-clock reference moves, so re-enabling motion does not replay the
// paused interval.
func (s *Simulator) update() {
	now := s.clock.Now()
	delta := math.Max(0, now.Sub(s.lastUpdate).Seconds())
	rate := float64(s.cfg.ScanRateHz)
	ticks := max(1, int(delta*rate))
	dt := float64(ticks) / rate

	if s.motionEnabled {
		s.stepPrimary(dt)
		s.stepCustom(dt)
		s.timeOfDayS += dt
		s.frameIndex++
	}
	s.lastUpdate = now
}

// stepPrimary moves every primary track radially. A track leaving
// [MinRangeM, MaxRangeM] is clamped to the boundary and its radial velocity
// reversed.
func (s *Simulator) stepPrimary(dt float64) {
	maxRange := s.cfg.MaxRangeM
	for i := range s.primary {
		t := &s.primary[i]
		t.RangeM += t.RadialVelocityMPS * dt
		if t.RangeM < MinRangeM {
			t.RangeM = MinRangeM
			t.RadialVelocityMPS = -t.RadialVelocityMPS
		}
		if t.RangeM > maxRange {
			t.RangeM = maxRange
			t.RadialVelocityMPS = -t.RadialVelocityMPS
		}
	}
}

// stepCustom integrates custom tracks along their heading. A track that
// crosses MaxRangeM turns around and is placed on the boundary along its new
// heading.
func (s *Simulator) stepCustom(dt float64) {
	maxRange := s.cfg.MaxRangeM
	for i := range s.custom {
		t := &s.custom[i]
		p := r2.Add(t.position(), r2.Scale(t.SpeedMPS*dt, unitVec(t.HeadingDeg)))
		if r2.Norm(p) > maxRange {
			t.HeadingDeg = units.NormalizeDeg(t.HeadingDeg + units.HalfCircleDeg)
			p = r2.Scale(maxRange, unitVec(t.HeadingDeg))
		}
		t.setPosition(p)
	}
}
