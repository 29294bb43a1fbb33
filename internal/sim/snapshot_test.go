package sim

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/phoenix.tracksim/internal/asterix"
)

func TestSnapshotPrimary(t *testing.T) {
	s, clock := newTestSim(t, defaultConfig())
	s.SetMotion(true)
	clock.Advance(3 * time.Second)

	table := s.Snapshot()
	assert.Equal(t, s.RunID(), table.RunID)
	assert.Equal(t, 250, table.ScanRateHz)
	assert.Equal(t, 1, table.FrameIndex)
	assert.InDelta(t, 3.0, table.TimeOfDayS, 1e-9)
	assert.True(t, table.MotionEnabled)
	require.Len(t, table.Targets, 720)
	require.Len(t, table.Asterix48, 720)
	assert.Empty(t, table.CustomTargets)

	for i, rec := range table.Asterix48 {
		target := table.Targets[i]
		assert.Equal(t, target.TargetID, rec.TargetID)
		assert.Equal(t, target.TrackNumber, rec.TrackNumber)
		assert.Equal(t, target.RangeM, rec.Polar.RangeM)
		assert.Equal(t, target.XM, rec.Cartesian.XM)

		raw, err := hex.DecodeString(rec.RawHex)
		require.NoError(t, err)
		assert.Equal(t, rec.Raw, raw)
		b64, err := base64.StdEncoding.DecodeString(rec.RawBase64)
		require.NoError(t, err)
		assert.Equal(t, raw, b64)

		d, err := asterix.DecodeRecord(raw)
		require.NoError(t, err)
		assert.Equal(t, SAC, *d.SAC)
		assert.Equal(t, SIC, *d.SIC)
		assert.Equal(t, target.TrackNumber, *d.TrackNumber)
		assert.InDelta(t, 3.0, *d.TimeOfDayS, 1.0/128)
		assert.InDelta(t, target.RangeM, *d.RangeM, asterix.RangeScaleM)
		assert.InDelta(t, asterix.RCSM2ToDBsm(target.RCSM2), *d.RCSDBsm, 0.5)
	}
}

func TestSnapshotStepsOncePerCall(t *testing.T) {
	s, clock := newTestSim(t, defaultConfig())

	assert.Equal(t, 0, s.Snapshot().FrameIndex)

	s.SetMotion(true)
	for i := 1; i <= 3; i++ {
		clock.Advance(time.Second)
		assert.Equal(t, i, s.Snapshot().FrameIndex)
	}
}

func TestSnapshotCustomRelativeClock(t *testing.T) {
	cfg := defaultConfig()
	cfg.TargetsPerSector = 0
	s, clock := newTestSim(t, cfg)
	s.SetMotion(true)

	clock.Advance(2 * time.Second)
	s.Update()

	first := CustomTrack{TrackID: 1, PlatformID: 3, PlatformName: "Airliner", ProfileName: "cruise", SpeedMPS: 0, RCSM2: rcsPtr(100)}
	first.PlaceAt(3000, 45)
	require.NoError(t, s.SetCustomTracks([]CustomTrack{first}))

	clock.Advance(time.Second)
	table := s.Snapshot()
	require.Len(t, table.CustomTargets, 1)
	ct := table.CustomTargets[0]
	assert.InDelta(t, 3.0, table.TimeOfDayS, 1e-9)
	assert.InDelta(t, 1.0, ct.TimeOfDayS, 1e-9)
	assert.Equal(t, "Airliner", ct.PlatformName)
	assert.Equal(t, "cruise", ct.ProfileName)
	assert.Equal(t, 100.0, *ct.RCSM2)

	d, err := asterix.DecodeRecord(ct.Raw)
	require.NoError(t, err)
	assert.Equal(t, CustomTrackNumberBase+1, *d.TrackNumber)
	assert.Equal(t, 1.0, *d.TimeOfDayS)
	assert.Equal(t, 20.0, *d.RCSDBsm)

	// resubmitting id 1 keeps its clock; id 2 starts now
	second := CustomTrack{TrackID: 2}
	second.PlaceAt(1000, 0)
	require.NoError(t, s.SetCustomTracks([]CustomTrack{first, second}))

	clock.Advance(time.Second)
	table = s.Snapshot()
	require.Len(t, table.CustomTargets, 2)
	assert.InDelta(t, 2.0, table.CustomTargets[0].TimeOfDayS, 1e-9)
	assert.InDelta(t, 1.0, table.CustomTargets[1].TimeOfDayS, 1e-9)

	// dropping a track and bringing it back restarts its clock
	require.NoError(t, s.SetCustomTracks([]CustomTrack{second}))
	require.NoError(t, s.SetCustomTracks([]CustomTrack{second, first}))
	table = s.Snapshot()
	assert.InDelta(t, 1.004, table.CustomTargets[0].TimeOfDayS, 1e-9)
	assert.InDelta(t, 0.004, table.CustomTargets[1].TimeOfDayS, 1e-9)
}

func TestSnapshotCustomWithoutRCS(t *testing.T) {
	cfg := defaultConfig()
	cfg.TargetsPerSector = 0
	s, _ := newTestSim(t, cfg)

	tr := CustomTrack{TrackID: 4}
	tr.PlaceAt(500, 180)
	require.NoError(t, s.SetCustomTracks([]CustomTrack{tr}))

	table := s.Snapshot()
	require.Len(t, table.CustomTargets, 1)
	ct := table.CustomTargets[0]
	assert.Nil(t, ct.RCSM2)

	d, err := asterix.DecodeRecord(ct.Raw)
	require.NoError(t, err)
	assert.Equal(t, asterix.RCSFloorDBsm, *d.RCSDBsm)
	assert.Equal(t, 8004, *d.TrackNumber)

	b, err := json.Marshal(ct)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"rcs_m2":null`)
	assert.NotContains(t, string(b), "Raw")
}

func TestMasterTableRecords(t *testing.T) {
	cfg := defaultConfig()
	cfg.SectorStepDeg = 90
	cfg.TargetsPerSector = 2
	s, _ := newTestSim(t, cfg)

	tr := CustomTrack{TrackID: 1}
	tr.PlaceAt(1000, 0)
	require.NoError(t, s.SetCustomTracks([]CustomTrack{tr}))

	table := s.Snapshot()
	records := table.Records()
	require.Len(t, records, 9)
	for i, rec := range table.Asterix48 {
		assert.Equal(t, rec.Raw, records[i])
	}
	assert.Equal(t, table.CustomTargets[0].Raw, records[8])
}
