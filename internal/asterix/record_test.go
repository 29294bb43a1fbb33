package asterix

import (
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

var samplePlot = Plot{
	SAC:         1,
	SIC:         2,
	TimeOfDayS:  1.0,
	RangeM:      1000,
	AzimuthDeg:  90,
	XM:          4,
	YM:          -8,
	TrackNumber: 7,
	RCSDBsm:     0,
}

const sampleHex = "3000157e" + "0102" + "000080" + "01f44000" + "0001fffe" + "0007" + "4040"

func TestEncodeRecordLayout(t *testing.T) {
	t.Parallel()

	b := EncodeRecord(samplePlot)
	assert.Equal(t, sampleHex, hex.EncodeToString(b))
	assert.Len(t, b, recordLen)
	assert.Equal(t, 21, recordLen)
	assert.Equal(t, byte(Category), b[0])
	assert.Equal(t, byte(0x7E), b[3], "all six items flagged, FX clear")
}

func TestDecodeRecord(t *testing.T) {
	t.Parallel()

	got, err := DecodeRecord(mustHex(sampleHex))
	require.NoError(t, err)

	want := Decoded{
		SAC:         intPtr(1),
		SIC:         intPtr(2),
		TimeOfDayS:  floatPtr(1.0),
		RangeM:      floatPtr(1000),
		AzimuthDeg:  floatPtr(16384.0 / 65535 * 360),
		XM:          floatPtr(4),
		YM:          floatPtr(-8),
		TrackNumber: intPtr(7),
		RCSDBsm:     floatPtr(0),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecordPartialFSPEC(t *testing.T) {
	t.Parallel()

	// SAC/SIC and track number only: 4 + 2 + 2 bytes.
	msg := []byte{Category, 0x00, 0x08, 0x44, 0x05, 0x06, 0x01, 0x02}
	got, err := DecodeRecord(msg)
	require.NoError(t, err)

	require.NotNil(t, got.SAC)
	require.NotNil(t, got.TrackNumber)
	assert.Equal(t, 5, *got.SAC)
	assert.Equal(t, 6, *got.SIC)
	assert.Equal(t, 258, *got.TrackNumber)
	assert.Nil(t, got.TimeOfDayS)
	assert.Nil(t, got.RangeM)
	assert.Nil(t, got.AzimuthDeg)
	assert.Nil(t, got.XM)
	assert.Nil(t, got.RCSDBsm)

	fields := got.Fields()
	assert.Len(t, fields, 3)
	assert.NotContains(t, fields, "range_m")
}

func TestDecodeRecordEmptyFSPEC(t *testing.T) {
	t.Parallel()

	got, err := DecodeRecord([]byte{Category, 0x00, 0x04, 0x00})
	require.NoError(t, err)
	assert.Empty(t, got.Fields())
}

func TestDecodeRecordFormatErrors(t *testing.T) {
	t.Parallel()

	valid := EncodeRecord(samplePlot)

	wrongCategory := append([]byte(nil), valid...)
	wrongCategory[0] = 62

	longer := append(append([]byte(nil), valid...), 0x00)

	tests := []struct {
		name string
		msg  []byte
		want error
	}{
		{"nil", nil, ErrTooShort},
		{"three bytes", []byte{Category, 0x00, 0x03}, ErrTooShort},
		{"wrong category", wrongCategory, ErrCategory},
		{"declared shorter than buffer", longer, ErrLength},
		{"declared longer than buffer", valid[:len(valid)-1], ErrLength},
		// header claims all six items but only carries SAC/SIC
		{"flagged item runs off the end", []byte{Category, 0x00, 0x07, 0x7E, 0x01, 0x02, 0x00}, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRecord(tt.msg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)

			var fe *FormatError
			assert.True(t, errors.As(err, &fe))
			assert.Empty(t, got.Fields(), "no partial result on error")
		})
	}
}

func TestTruncatedErrorNamesItem(t *testing.T) {
	t.Parallel()

	_, err := DecodeRecord([]byte{Category, 0x00, 0x07, 0x7E, 0x01, 0x02, 0x00})
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "I048/140", fe.Item)
	assert.Equal(t, 6, fe.Offset)
	assert.Contains(t, fe.Error(), "I048/140")
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	const (
		todTol   = 1.0 / 256
		rangeTol = 1.0
		azTol    = 360.0 / 65535 / 2
		xyTol    = 2.0
		rcsTol   = 0.5
	)

	// Walk a deterministic spread of samples inside the representable bounds.
	for i := 0; i < 500; i++ {
		f := float64(i)
		p := Plot{
			SAC:         i % 256,
			SIC:         (i * 7) % 256,
			TimeOfDayS:  math.Mod(f*263.37, 131071),
			RangeM:      math.Mod(f*251.3, 131070),
			AzimuthDeg:  math.Mod(f*7.77, 360),
			XM:          math.Mod(f*97.1, 131068) - 65534,
			YM:          65534 - math.Mod(f*113.9, 131068),
			TrackNumber: (i * 131) % 65536,
			RCSDBsm:     math.Mod(f*0.37, 127) - 64,
		}

		d, err := DecodeRecord(EncodeRecord(p))
		require.NoError(t, err, "sample %d", i)

		assert.Equal(t, p.SAC, *d.SAC)
		assert.Equal(t, p.SIC, *d.SIC)
		assert.InDelta(t, p.TimeOfDayS, *d.TimeOfDayS, todTol, "sample %d", i)
		assert.InDelta(t, p.RangeM, *d.RangeM, rangeTol, "sample %d", i)
		assert.InDelta(t, p.XM, *d.XM, xyTol, "sample %d", i)
		assert.InDelta(t, p.YM, *d.YM, xyTol, "sample %d", i)
		assert.Equal(t, p.TrackNumber, *d.TrackNumber)
		assert.InDelta(t, p.RCSDBsm, *d.RCSDBsm, rcsTol, "sample %d", i)

		// azimuth may come back as 360 for inputs just below a full turn
		azDiff := math.Abs(p.AzimuthDeg - *d.AzimuthDeg)
		azDiff = math.Min(azDiff, 360-azDiff)
		assert.LessOrEqual(t, azDiff, azTol+1e-9, "sample %d", i)
	}
}

func TestRecordClampIdempotence(t *testing.T) {
	t.Parallel()

	atBoundary := Plot{
		TimeOfDayS:  0,
		RangeM:      65535 * RangeScaleM,
		AzimuthDeg:  0,
		XM:          maxInt16 * XYScaleM,
		YM:          minInt16 * XYScaleM,
		TrackNumber: maxUint16,
		RCSDBsm:     RCSCeilDBsm,
	}
	beyond := atBoundary
	beyond.RangeM *= 10
	beyond.XM *= 10
	beyond.YM *= 10
	beyond.TrackNumber *= 10
	beyond.RCSDBsm *= 10

	first, err := DecodeRecord(EncodeRecord(atBoundary))
	require.NoError(t, err)
	saturated, err := DecodeRecord(EncodeRecord(beyond))
	require.NoError(t, err)

	if diff := cmp.Diff(first, saturated); diff != "" {
		t.Errorf("out-of-range values should saturate to the boundary (-boundary +beyond):\n%s", diff)
	}

	// re-encoding the decoded boundary gives the same bytes
	again := Plot{
		RangeM:      *first.RangeM,
		AzimuthDeg:  *first.AzimuthDeg,
		XM:          *first.XM,
		YM:          *first.YM,
		TrackNumber: *first.TrackNumber,
		RCSDBsm:     *first.RCSDBsm,
	}
	assert.Equal(t, EncodeRecord(atBoundary), EncodeRecord(again))
}
