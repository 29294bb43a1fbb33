package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/banshee-data/phoenix.tracksim/internal/db"
	"github.com/banshee-data/phoenix.tracksim/internal/httputil"
	"github.com/banshee-data/phoenix.tracksim/internal/sim"
	"github.com/banshee-data/phoenix.tracksim/internal/units"
)

// customTrackRequest places one catalog profile. TrackID defaults to the
// entry's 1-based position in the batch.
type customTrackRequest struct {
	TrackID     *int     `json:"track_id"`
	PlatformID  *int     `json:"platform_id"`
	ProfileName *string  `json:"profile_name"`
	RangeM      *float64 `json:"range_m"`
	AzimuthDeg  *float64 `json:"azimuth_deg"`
	HeadingDeg  *float64 `json:"heading_deg"`
}

func (req customTrackRequest) missing() string {
	switch {
	case req.PlatformID == nil:
		return "platform_id"
	case req.ProfileName == nil:
		return "profile_name"
	case req.RangeM == nil:
		return "range_m"
	case req.AzimuthDeg == nil:
		return "azimuth_deg"
	case req.HeadingDeg == nil:
		return "heading_deg"
	}
	return ""
}

type customTracksResponse struct {
	Count int `json:"count"`
}

// setCustomTracks replaces the whole custom track set. Every entry must
// name a known profile; one bad entry rejects the batch and leaves the
// current set in place.
func (s *Server) setCustomTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var reqs []customTrackRequest
	if err := httputil.ReadJSON(w, r, httputil.DefaultMaxBodyBytes, &reqs); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	tracks := make([]sim.CustomTrack, 0, len(reqs))
	for i, req := range reqs {
		if field := req.missing(); field != "" {
			httputil.BadRequest(w, fmt.Sprintf("track %d: missing field: %s", i+1, field))
			return
		}

		profile, err := s.catalog.Profile(r.Context(), *req.PlatformID, *req.ProfileName)
		if err != nil {
			if errors.Is(err, db.ErrProfileNotFound) {
				httputil.BadRequest(w, "invalid platform or profile")
				return
			}
			log.Printf("failed to look up profile: %v", err)
			httputil.InternalServerError(w, "failed to look up profile")
			return
		}

		trackID := i + 1
		if req.TrackID != nil {
			trackID = *req.TrackID
		}
		tracks = append(tracks, newCustomTrack(trackID, profile, *req.RangeM, *req.AzimuthDeg, *req.HeadingDeg))
	}

	if err := s.sim.SetCustomTracks(tracks); err != nil {
		httputil.WriteJSONError(w, statusFor(err), err.Error())
		return
	}
	httputil.WriteJSONOK(w, customTracksResponse{Count: len(tracks)})
}

// newCustomTrack combines the operator's placement with the profile's
// static attributes.
func newCustomTrack(trackID int, p db.Profile, rangeM, azimuthDeg, headingDeg float64) sim.CustomTrack {
	t := sim.CustomTrack{
		TrackID:      trackID,
		PlatformID:   p.PlatformID,
		PlatformName: p.PlatformName,
		ProfileName:  p.ProfileName,
		AltitudeM:    p.AltitudeM,
		HeadingDeg:   units.NormalizeDeg(headingDeg),
		SpeedMPS:     p.SpeedMPS,
		RCSM2:        p.RCSM2Est,
	}
	t.PlaceAt(rangeM, units.NormalizeDeg(azimuthDeg))
	return t
}
