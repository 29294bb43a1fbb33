package api

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/banshee-data/phoenix.tracksim/internal/asterix"
	"github.com/banshee-data/phoenix.tracksim/internal/httputil"
)

type encodeRequest struct {
	SAC         *int     `json:"sac"`
	SIC         *int     `json:"sic"`
	TimeOfDayS  *float64 `json:"time_of_day_s"`
	RangeM      *float64 `json:"range_m"`
	AzimuthDeg  *float64 `json:"azimuth_deg"`
	XM          *float64 `json:"x_m"`
	YM          *float64 `json:"y_m"`
	TrackNumber *int     `json:"track_number"`
	RCSM2       *float64 `json:"rcs_m2"`
}

// plot converts the request into an encodable plot, reporting the first
// missing field.
func (req encodeRequest) plot() (asterix.Plot, string) {
	fields := []struct {
		name string
		set  bool
	}{
		{"sac", req.SAC != nil},
		{"sic", req.SIC != nil},
		{"time_of_day_s", req.TimeOfDayS != nil},
		{"range_m", req.RangeM != nil},
		{"azimuth_deg", req.AzimuthDeg != nil},
		{"x_m", req.XM != nil},
		{"y_m", req.YM != nil},
		{"track_number", req.TrackNumber != nil},
		{"rcs_m2", req.RCSM2 != nil},
	}
	for _, f := range fields {
		if !f.set {
			return asterix.Plot{}, f.name
		}
	}
	return asterix.Plot{
		SAC:         *req.SAC,
		SIC:         *req.SIC,
		TimeOfDayS:  *req.TimeOfDayS,
		RangeM:      *req.RangeM,
		AzimuthDeg:  *req.AzimuthDeg,
		XM:          *req.XM,
		YM:          *req.YM,
		TrackNumber: *req.TrackNumber,
		RCSDBsm:     asterix.RCSM2ToDBsm(*req.RCSM2),
	}, ""
}

type encodeResponse struct {
	Hex    string `json:"hex"`
	Length int    `json:"length"`
}

func (s *Server) encodeRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req encodeRequest
	if err := httputil.ReadJSON(w, r, httputil.DefaultMaxBodyBytes, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, missing := req.plot()
	if missing != "" {
		httputil.BadRequest(w, "missing field: "+missing)
		return
	}

	b := asterix.EncodeRecord(p)
	httputil.WriteJSONOK(w, encodeResponse{Hex: hex.EncodeToString(b), Length: len(b)})
}

type decodeRequest struct {
	Hex *string `json:"hex"`
}

// decodeRecord returns the fields present in the record, plus rcs_m2 when
// the record carries an RCS.
func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req decodeRequest
	if err := httputil.ReadJSON(w, r, httputil.DefaultMaxBodyBytes, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Hex == nil {
		httputil.BadRequest(w, "missing field: hex")
		return
	}

	// whitespace between byte pairs is accepted
	raw, err := hex.DecodeString(strings.Join(strings.Fields(*req.Hex), ""))
	if err != nil {
		httputil.BadRequest(w, "invalid hex: "+err.Error())
		return
	}

	d, err := asterix.DecodeRecord(raw)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	fields := d.Fields()
	if d.RCSDBsm != nil {
		fields["rcs_m2"] = asterix.RCSDBsmToM2(*d.RCSDBsm)
	}
	httputil.WriteJSONOK(w, fields)
}
