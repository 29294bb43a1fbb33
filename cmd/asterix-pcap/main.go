// Command asterix-pcap decodes the plot records carried in a pcap capture,
// such as one written by tracksim -feed-pcap or downloaded from
// /debug/capture.pcap, and prints one line per record.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/banshee-data/phoenix.tracksim/internal/asterix"
	"github.com/banshee-data/phoenix.tracksim/internal/capture"
)

var (
	port     = flag.Int("port", capture.DefaultPort, "UDP destination port to decode (0 for every port)")
	jsonOut  = flag.Bool("json", false, "Print records as JSON lines")
	summary  = flag.Bool("summary", false, "Print per-track record counts after the records")
	quietOut = flag.Bool("quiet", false, "Do not print individual records")
)

// Stats summarises a decoded capture.
type Stats struct {
	Packets  int         `json:"packets"`
	Records  int         `json:"records"`
	Errors   int         `json:"errors"`
	PerTrack map[int]int `json:"per_track"`
}

// line is one decoded record as printed.
type line struct {
	Packet  int             `json:"packet"`
	Time    string          `json:"time"`
	Decoded asterix.Decoded `json:"decoded"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: asterix-pcap [flags] <file.pcap>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to open capture: %v", err)
	}
	defer f.Close()

	var out io.Writer = os.Stdout
	if *quietOut {
		out = nil
	}
	st, err := decodeCapture(f, *port, *jsonOut, out)
	if err != nil {
		log.Fatalf("failed to decode capture: %v", err)
	}
	if *summary {
		printSummary(os.Stdout, st)
	}
	if st.Errors > 0 {
		os.Exit(1)
	}
}

// decodeCapture walks every datagram on port, splitting it into records and
// decoding each one. Records that fail to decode are reported and counted
// but do not stop the walk. A nil w suppresses per-record output.
func decodeCapture(r io.Reader, port int, asJSON bool, w io.Writer) (Stats, error) {
	st := Stats{PerTrack: make(map[int]int)}
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}

	err := capture.ReadRecords(r, port, func(p capture.Packet) error {
		st.Packets++
		records, splitErr := asterix.SplitRecords(p.Payload)
		if splitErr != nil {
			st.Errors++
			log.Printf("packet %d: %v", st.Packets, splitErr)
		}
		for _, rec := range records {
			d, err := asterix.DecodeRecord(rec)
			if err != nil {
				st.Errors++
				log.Printf("packet %d: %v", st.Packets, err)
				continue
			}
			st.Records++
			if d.TrackNumber != nil {
				st.PerTrack[*d.TrackNumber]++
			}
			if w == nil {
				continue
			}
			ts := p.Timestamp.UTC().Format("15:04:05.000000")
			if asJSON {
				if err := enc.Encode(line{Packet: st.Packets, Time: ts, Decoded: d}); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s #%d %s\n", ts, st.Packets, formatDecoded(d)); err != nil {
				return err
			}
		}
		return nil
	})
	return st, err
}

func formatDecoded(d asterix.Decoded) string {
	s := ""
	if d.SAC != nil && d.SIC != nil {
		s += fmt.Sprintf("src=%d/%d ", *d.SAC, *d.SIC)
	}
	if d.TrackNumber != nil {
		s += fmt.Sprintf("trk=%d ", *d.TrackNumber)
	}
	if d.TimeOfDayS != nil {
		s += fmt.Sprintf("tod=%.4f ", *d.TimeOfDayS)
	}
	if d.RangeM != nil && d.AzimuthDeg != nil {
		s += fmt.Sprintf("rng=%.0fm az=%.2f ", *d.RangeM, *d.AzimuthDeg)
	}
	if d.XM != nil && d.YM != nil {
		s += fmt.Sprintf("xy=(%.0f,%.0f) ", *d.XM, *d.YM)
	}
	if d.RCSDBsm != nil {
		s += fmt.Sprintf("rcs=%.0fdBsm", *d.RCSDBsm)
	}
	return s
}

func printSummary(w io.Writer, st Stats) {
	fmt.Fprintf(w, "%d packets, %d records, %d errors, %d tracks\n", st.Packets, st.Records, st.Errors, len(st.PerTrack))
	tracks := make([]int, 0, len(st.PerTrack))
	for trk := range st.PerTrack {
		tracks = append(tracks, trk)
	}
	sort.Ints(tracks)
	for _, trk := range tracks {
		fmt.Fprintf(w, "  %5d  %d\n", trk, st.PerTrack[trk])
	}
}
