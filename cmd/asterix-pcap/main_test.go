package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/phoenix.tracksim/internal/asterix"
	"github.com/banshee-data/phoenix.tracksim/internal/capture"
)

func buildCapture(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := capture.NewWriter(&buf, capture.DefaultEndpoints())
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range payloads {
		if err := w.WriteRecord(ts.Add(time.Duration(i)*time.Second), p); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func quietLog(t *testing.T) {
	prev := log.Writer()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(prev) })
}

func TestDecodeCaptureText(t *testing.T) {
	a := asterix.EncodeRecord(asterix.Plot{SAC: 1, SIC: 1, TimeOfDayS: 1.5, RangeM: 1000, TrackNumber: 1, RCSDBsm: 10})
	b := asterix.EncodeRecord(asterix.Plot{SAC: 1, SIC: 1, TrackNumber: 8001})
	pcap := buildCapture(t, a, append(append([]byte(nil), a...), b...))

	var out bytes.Buffer
	st, err := decodeCapture(bytes.NewReader(pcap), capture.DefaultPort, false, &out)
	if err != nil {
		t.Fatalf("decodeCapture: %v", err)
	}
	if st.Packets != 2 || st.Records != 3 || st.Errors != 0 {
		t.Errorf("stats = %+v, want 2 packets, 3 records, 0 errors", st)
	}
	if st.PerTrack[1] != 2 || st.PerTrack[8001] != 1 {
		t.Errorf("per track = %v", st.PerTrack)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "trk=1 ") || !strings.Contains(lines[0], "tod=1.5000") || !strings.Contains(lines[0], "rcs=10dBsm") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "12:00:01.000000 #2") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestDecodeCaptureJSON(t *testing.T) {
	pcap := buildCapture(t, asterix.EncodeRecord(asterix.Plot{SAC: 3, SIC: 4, TrackNumber: 7}))

	var out bytes.Buffer
	if _, err := decodeCapture(bytes.NewReader(pcap), 0, true, &out); err != nil {
		t.Fatalf("decodeCapture: %v", err)
	}
	var got line
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", out.String(), err)
	}
	if got.Packet != 1 || got.Decoded.TrackNumber == nil || *got.Decoded.TrackNumber != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeCaptureCountsErrors(t *testing.T) {
	quietLog(t)
	good := asterix.EncodeRecord(asterix.Plot{TrackNumber: 1})
	pcap := buildCapture(t, []byte{0x22, 0x00, 0x04, 0x00}, append(append([]byte(nil), good...), 0x30))

	st, err := decodeCapture(bytes.NewReader(pcap), 0, false, nil)
	if err != nil {
		t.Fatalf("decodeCapture: %v", err)
	}
	if st.Records != 1 || st.Errors != 2 {
		t.Errorf("stats = %+v, want 1 record and 2 errors", st)
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, Stats{Packets: 2, Records: 3, PerTrack: map[int]int{8001: 1, 1: 2}})
	want := "2 packets, 3 records, 0 errors, 2 tracks\n      1  2\n   8001  1\n"
	if out.String() != want {
		t.Errorf("summary = %q, want %q", out.String(), want)
	}
}
