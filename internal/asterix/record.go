// Package asterix encodes and decodes the CAT048-style plot records the
// simulator publishes for every track.
package asterix

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record layout: [category][total length, big endian uint16][FSPEC][items...].
// The length counts the whole record, header included.
const (
	headerLen = 4

	fspecFX = 0x01
)

// Format errors returned by DecodeRecord. Match with errors.Is.
var (
	ErrTooShort  = errors.New("message too short")
	ErrCategory  = errors.New("invalid category")
	ErrLength    = errors.New("length mismatch")
	ErrTruncated = errors.New("truncated data item")
)

// FormatError reports a malformed record.
type FormatError struct {
	Offset int
	Item   string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("asterix: %v: item %s at offset %d", e.Err, e.Item, e.Offset)
	}
	return fmt.Sprintf("asterix: %v at offset %d", e.Err, e.Offset)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Plot is a fully specified kinematic sample ready for encoding.
type Plot struct {
	SAC         int     `json:"sac"`
	SIC         int     `json:"sic"`
	TimeOfDayS  float64 `json:"time_of_day_s"`
	RangeM      float64 `json:"range_m"`
	AzimuthDeg  float64 `json:"azimuth_deg"`
	XM          float64 `json:"x_m"`
	YM          float64 `json:"y_m"`
	TrackNumber int     `json:"track_number"`
	RCSDBsm     float64 `json:"rcs_dbsm"`
}

// Decoded holds the items found in a record. Items whose FSPEC bit was clear
// stay nil.
type Decoded struct {
	SAC         *int     `json:"sac,omitempty"`
	SIC         *int     `json:"sic,omitempty"`
	TimeOfDayS  *float64 `json:"time_of_day_s,omitempty"`
	RangeM      *float64 `json:"range_m,omitempty"`
	AzimuthDeg  *float64 `json:"azimuth_deg,omitempty"`
	XM          *float64 `json:"x_m,omitempty"`
	YM          *float64 `json:"y_m,omitempty"`
	TrackNumber *int     `json:"track_number,omitempty"`
	RCSDBsm     *float64 `json:"rcs_dbsm,omitempty"`
}

// item is one row of the FSPEC table. The table order is the wire order and
// the bit order; encoder and decoder both walk it.
type item struct {
	name   string
	bit    uint
	width  int
	encode func(b []byte, p *Plot) []byte
	decode func(b []byte, d *Decoded)
}

var items = [...]item{
	{
		name: "I048/010", bit: 6, width: shortWidth,
		encode: func(b []byte, p *Plot) []byte { return AppendSource(b, p.SAC, p.SIC) },
		decode: func(b []byte, d *Decoded) {
			sac, sic := Source(b)
			d.SAC, d.SIC = &sac, &sic
		},
	},
	{
		name: "I048/140", bit: 5, width: todWidth,
		encode: func(b []byte, p *Plot) []byte { return AppendTimeOfDay(b, p.TimeOfDayS) },
		decode: func(b []byte, d *Decoded) {
			tod := TimeOfDay(b)
			d.TimeOfDayS = &tod
		},
	},
	{
		name: "I048/040", bit: 4, width: pairWidth,
		encode: func(b []byte, p *Plot) []byte { return AppendPolar(b, p.RangeM, p.AzimuthDeg) },
		decode: func(b []byte, d *Decoded) {
			rho, theta := Polar(b)
			d.RangeM, d.AzimuthDeg = &rho, &theta
		},
	},
	{
		name: "I048/042", bit: 3, width: pairWidth,
		encode: func(b []byte, p *Plot) []byte { return AppendCartesian(b, p.XM, p.YM) },
		decode: func(b []byte, d *Decoded) {
			x, y := Cartesian(b)
			d.XM, d.YM = &x, &y
		},
	},
	{
		name: "I048/161", bit: 2, width: shortWidth,
		encode: func(b []byte, p *Plot) []byte { return AppendTrackNumber(b, p.TrackNumber) },
		decode: func(b []byte, d *Decoded) {
			tn := TrackNumber(b)
			d.TrackNumber = &tn
		},
	},
	{
		name: "I048/130", bit: 1, width: shortWidth,
		encode: func(b []byte, p *Plot) []byte { return AppendRCS(b, p.RCSDBsm) },
		decode: func(b []byte, d *Decoded) {
			rcs := RCS(b)
			d.RCSDBsm = &rcs
		},
	},
}

// recordLen is the size of a record with every item present.
var recordLen = func() int {
	n := headerLen
	for _, it := range items {
		n += it.width
	}
	return n
}()

// EncodeRecord encodes p with every item present. The FX bit is never set.
func EncodeRecord(p Plot) []byte {
	b := make([]byte, headerLen, recordLen)
	var fspec byte
	for i := range items {
		fspec |= 1 << items[i].bit
		b = items[i].encode(b, &p)
	}
	b[0] = Category
	binary.BigEndian.PutUint16(b[1:3], uint16(len(b)))
	b[3] = fspec &^ fspecFX
	return b
}

// DecodeRecord parses a single record. It checks the minimum size, the
// category and the declared length, then walks the FSPEC table. A flagged
// item that runs past the end of msg is an error, not a short read.
func DecodeRecord(msg []byte) (Decoded, error) {
	var d Decoded
	if len(msg) < headerLen {
		return d, &FormatError{Offset: 0, Err: ErrTooShort}
	}
	if msg[0] != Category {
		return d, &FormatError{Offset: 0, Err: fmt.Errorf("%w: got %d, want %d", ErrCategory, msg[0], Category)}
	}
	if declared := int(binary.BigEndian.Uint16(msg[1:3])); declared != len(msg) {
		return d, &FormatError{Offset: 1, Err: fmt.Errorf("%w: declared %d, have %d", ErrLength, declared, len(msg))}
	}

	fspec := msg[3]
	offset := headerLen
	for i := range items {
		it := &items[i]
		if fspec&(1<<it.bit) == 0 {
			continue
		}
		if offset+it.width > len(msg) {
			return Decoded{}, &FormatError{Offset: offset, Item: it.name, Err: ErrTruncated}
		}
		it.decode(msg[offset:offset+it.width], &d)
		offset += it.width
	}
	return d, nil
}

// Fields flattens d into the name/value map served by the decode endpoint.
func (d Decoded) Fields() map[string]any {
	out := make(map[string]any, 9)
	if d.SAC != nil {
		out["sac"] = *d.SAC
	}
	if d.SIC != nil {
		out["sic"] = *d.SIC
	}
	if d.TimeOfDayS != nil {
		out["time_of_day_s"] = *d.TimeOfDayS
	}
	if d.RangeM != nil {
		out["range_m"] = *d.RangeM
	}
	if d.AzimuthDeg != nil {
		out["azimuth_deg"] = *d.AzimuthDeg
	}
	if d.XM != nil {
		out["x_m"] = *d.XM
	}
	if d.YM != nil {
		out["y_m"] = *d.YM
	}
	if d.TrackNumber != nil {
		out["track_number"] = *d.TrackNumber
	}
	if d.RCSDBsm != nil {
		out["rcs_dbsm"] = *d.RCSDBsm
	}
	return out
}
