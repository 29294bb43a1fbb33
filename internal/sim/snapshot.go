package sim

import (
	"encoding/base64"
	"encoding/hex"
	"math"

	"github.com/banshee-data/phoenix.tracksim/internal/asterix"
)

// Target is the kinematic view of a primary track.
type Target struct {
	TargetID          string  `json:"target_id"`
	TrackNumber       int     `json:"track_number"`
	SectorDeg         float64 `json:"sector_deg"`
	RangeM            float64 `json:"range_m"`
	AzimuthDeg        float64 `json:"azimuth_deg"`
	XM                float64 `json:"x_m"`
	YM                float64 `json:"y_m"`
	RCSM2             float64 `json:"rcs_m2"`
	RadialVelocityMPS float64 `json:"radial_velocity_mps"`
}

type Polar struct {
	RangeM     float64 `json:"range_m"`
	AzimuthDeg float64 `json:"azimuth_deg"`
}

type Cartesian struct {
	XM float64 `json:"x_m"`
	YM float64 `json:"y_m"`
}

// AsterixRecord is the encoded record of a primary track alongside the
// values it was encoded from.
type AsterixRecord struct {
	TargetID    string    `json:"target_id"`
	TrackNumber int       `json:"track_number"`
	TimeOfDayS  float64   `json:"time_of_day_s"`
	Polar       Polar     `json:"polar"`
	Cartesian   Cartesian `json:"cartesian"`
	RCSM2       float64   `json:"rcs_m2"`
	RawHex      string    `json:"raw_hex"`
	RawBase64   string    `json:"raw_base64"`

	Raw []byte `json:"-"`
}

// CustomTarget is the view of a custom track with its embedded record.
// TimeOfDayS is relative to the track's creation.
type CustomTarget struct {
	TrackID      int      `json:"track_id"`
	PlatformID   int      `json:"platform_id"`
	PlatformName string   `json:"platform_name"`
	ProfileName  string   `json:"profile_name"`
	RangeM       float64  `json:"range_m"`
	AzimuthDeg   float64  `json:"azimuth_deg"`
	XM           float64  `json:"x_m"`
	YM           float64  `json:"y_m"`
	AltitudeM    float64  `json:"altitude_m"`
	HeadingDeg   float64  `json:"heading_deg"`
	SpeedMPS     float64  `json:"speed_mps"`
	RCSM2        *float64 `json:"rcs_m2"`
	TimeOfDayS   float64  `json:"time_of_day_s"`
	RawHex       string   `json:"raw_hex"`

	Raw []byte `json:"-"`
}

// MasterTable is one consistent picture of the simulation. It is built
// fresh for every request and never modified afterwards.
type MasterTable struct {
	RunID         string          `json:"run_id"`
	ScanRateHz    int             `json:"prf_hz"`
	FrameIndex    int             `json:"frame_index"`
	TimeOfDayS    float64         `json:"time_of_day_s"`
	MotionEnabled bool            `json:"motion_enabled"`
	Targets       []Target        `json:"targets"`
	Asterix48     []AsterixRecord `json:"asterix48"`
	CustomTargets []CustomTarget  `json:"custom_targets"`
}

// Records returns every encoded record in the table, primary tracks first.
func (m *MasterTable) Records() [][]byte {
	out := make([][]byte, 0, len(m.Asterix48)+len(m.CustomTargets))
	for _, r := range m.Asterix48 {
		out = append(out, r.Raw)
	}
	for _, c := range m.CustomTargets {
		out = append(out, c.Raw)
	}
	return out
}

// Snapshot steps the simulation and renders the result. Stepping and
// rendering happen under one lock acquisition.
func (s *Simulator) Snapshot() MasterTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.update()

	table := MasterTable{
		RunID:         s.runID,
		ScanRateHz:    s.cfg.ScanRateHz,
		FrameIndex:    s.frameIndex,
		TimeOfDayS:    s.timeOfDayS,
		MotionEnabled: s.motionEnabled,
		Targets:       make([]Target, 0, len(s.primary)),
		Asterix48:     make([]AsterixRecord, 0, len(s.primary)),
		CustomTargets: make([]CustomTarget, 0, len(s.custom)),
	}

	for _, t := range s.primary {
		x, y := t.XY()
		table.Targets = append(table.Targets, Target{
			TargetID:          t.TargetID,
			TrackNumber:       t.TrackNumber,
			SectorDeg:         t.SectorDeg,
			RangeM:            t.RangeM,
			AzimuthDeg:        t.AzimuthDeg,
			XM:                x,
			YM:                y,
			RCSM2:             t.RCSM2,
			RadialVelocityMPS: t.RadialVelocityMPS,
		})

		raw := asterix.EncodeRecord(asterix.Plot{
			SAC:         SAC,
			SIC:         SIC,
			TimeOfDayS:  s.timeOfDayS,
			RangeM:      t.RangeM,
			AzimuthDeg:  t.AzimuthDeg,
			XM:          x,
			YM:          y,
			TrackNumber: t.TrackNumber,
			RCSDBsm:     asterix.RCSM2ToDBsm(t.RCSM2),
		})
		table.Asterix48 = append(table.Asterix48, AsterixRecord{
			TargetID:    t.TargetID,
			TrackNumber: t.TrackNumber,
			TimeOfDayS:  s.timeOfDayS,
			Polar:       Polar{RangeM: t.RangeM, AzimuthDeg: t.AzimuthDeg},
			Cartesian:   Cartesian{XM: x, YM: y},
			RCSM2:       t.RCSM2,
			RawHex:      hex.EncodeToString(raw),
			RawBase64:   base64.StdEncoding.EncodeToString(raw),
			Raw:         raw,
		})
	}

	for _, t := range s.custom {
		relTime := math.Max(0, s.timeOfDayS-t.CreatedTimeS)
		rcsDBsm := asterix.RCSFloorDBsm
		var rcs *float64
		if t.RCSM2 != nil {
			rcsDBsm = asterix.RCSM2ToDBsm(*t.RCSM2)
			v := *t.RCSM2
			rcs = &v
		}

		raw := asterix.EncodeRecord(asterix.Plot{
			SAC:         SAC,
			SIC:         SIC,
			TimeOfDayS:  relTime,
			RangeM:      t.RangeM,
			AzimuthDeg:  t.AzimuthDeg,
			XM:          t.XM,
			YM:          t.YM,
			TrackNumber: CustomTrackNumberBase + t.TrackID,
			RCSDBsm:     rcsDBsm,
		})
		table.CustomTargets = append(table.CustomTargets, CustomTarget{
			TrackID:      t.TrackID,
			PlatformID:   t.PlatformID,
			PlatformName: t.PlatformName,
			ProfileName:  t.ProfileName,
			RangeM:       t.RangeM,
			AzimuthDeg:   t.AzimuthDeg,
			XM:           t.XM,
			YM:           t.YM,
			AltitudeM:    t.AltitudeM,
			HeadingDeg:   t.HeadingDeg,
			SpeedMPS:     t.SpeedMPS,
			RCSM2:        rcs,
			TimeOfDayS:   relTime,
			RawHex:       hex.EncodeToString(raw),
			Raw:          raw,
		})
	}

	return table
}
