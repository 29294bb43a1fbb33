package capture

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/phoenix.tracksim/internal/asterix"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, DefaultEndpoints())
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := [][]byte{
		asterix.EncodeRecord(asterix.Plot{SAC: 1, SIC: 1, TimeOfDayS: 1, RangeM: 1000, TrackNumber: 1}),
		asterix.EncodeRecord(asterix.Plot{SAC: 1, SIC: 1, TimeOfDayS: 2, RangeM: 2000, TrackNumber: 2}),
		{0x30, 0x00, 0x04, 0x00},
	}
	for i, rec := range want {
		require.NoError(t, w.WriteRecord(base.Add(time.Duration(i)*time.Millisecond), rec))
	}
	assert.Equal(t, 3, w.Count())

	var got [][]byte
	var stamps []time.Time
	err = ReadRecords(bytes.NewReader(buf.Bytes()), DefaultPort, func(p Packet) error {
		got = append(got, append([]byte(nil), p.Payload...))
		stamps = append(stamps, p.Timestamp)
		assert.Equal(t, DefaultPort, p.SrcPort)
		return nil
	})
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payloads mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, stamps, 3)
	for i, ts := range stamps {
		assert.True(t, ts.Equal(base.Add(time.Duration(i)*time.Millisecond)), "stamp %d = %v", i, ts)
	}
}

func TestReadRecordsFiltersPort(t *testing.T) {
	var buf bytes.Buffer
	ep := DefaultEndpoints()
	ep.DstPort = 9000
	w, err := NewWriter(&buf, ep)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(time.Unix(0, 0), []byte{1, 2, 3}))

	n := 0
	count := func(Packet) error { n++; return nil }

	require.NoError(t, ReadRecords(bytes.NewReader(buf.Bytes()), DefaultPort, count))
	assert.Equal(t, 0, n)

	require.NoError(t, ReadRecords(bytes.NewReader(buf.Bytes()), 9000, count))
	assert.Equal(t, 1, n)

	require.NoError(t, ReadRecords(bytes.NewReader(buf.Bytes()), 0, count))
	assert.Equal(t, 2, n)
}

func TestReadRecordsStopsOnCallbackError(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, DefaultEndpoints())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteRecord(time.Unix(int64(i), 0), []byte{byte(i)}))
	}

	stop := errors.New("stop")
	seen := 0
	err = ReadRecords(bytes.NewReader(buf.Bytes()), 0, func(Packet) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestReadRecordsRejectsGarbage(t *testing.T) {
	err := ReadRecords(bytes.NewReader([]byte("not a pcap file at all")), 0, func(Packet) error { return nil })
	assert.Error(t, err)
}

func TestNewWriterRequiresIPv4(t *testing.T) {
	ep := DefaultEndpoints()
	ep.DstIP = net.ParseIP("::1")
	_, err := NewWriter(&bytes.Buffer{}, ep)
	assert.Error(t, err)
}
