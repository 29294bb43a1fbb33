// Package api serves the simulator over HTTP: configuration, snapshots,
// motion control, the platform catalog, custom tracks and the record
// encode/decode tools.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/banshee-data/phoenix.tracksim/internal/config"
	"github.com/banshee-data/phoenix.tracksim/internal/db"
	"github.com/banshee-data/phoenix.tracksim/internal/httputil"
	"github.com/banshee-data/phoenix.tracksim/internal/sim"
	"github.com/banshee-data/phoenix.tracksim/internal/version"
)

// Catalog is the platform lookup the custom track handler depends on.
// *db.Catalog and *db.DB both satisfy it.
type Catalog interface {
	Platforms(ctx context.Context) ([]db.Platform, error)
	Profile(ctx context.Context, platformID int, profileName string) (db.Profile, error)
}

type Server struct {
	sim      *sim.Simulator
	catalog  Catalog
	settings config.Settings
}

func NewServer(s *sim.Simulator, catalog Catalog, settings config.Settings) *Server {
	return &Server{
		sim:      s,
		catalog:  catalog,
		settings: settings,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/motion", s.setMotion)
	mux.HandleFunc("/api/platforms", s.listPlatforms)
	mux.HandleFunc("/api/custom-tracks", s.setCustomTracks)
	mux.HandleFunc("/api/asterix/encode", s.encodeRecord)
	mux.HandleFunc("/api/asterix/decode", s.decodeRecord)
	return mux
}

// Handler is ServeMux wrapped in CORS handling and request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.sim.Config().Clock, CORSMiddleware(s.settings.AllowedOrigins, s.ServeMux()))
}

type configResponse struct {
	ScanRateHz       int          `json:"prf_hz"`
	SectorStepDeg    int          `json:"sector_step_deg"`
	TargetsPerSector int          `json:"targets_per_sector"`
	MaxRangeKm       float64      `json:"max_range_km"`
	RCSM2Range       [2]float64   `json:"rcs_m2_range"`
	MotionEnabled    bool         `json:"motion_enabled"`
	RunID            string       `json:"run_id"`
	Build            version.Info `json:"build"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, configResponse{
		ScanRateHz:       s.settings.ScanRateHz,
		SectorStepDeg:    s.settings.SectorStepDeg,
		TargetsPerSector: s.settings.TargetsPerSector,
		MaxRangeKm:       s.settings.MaxRangeKm,
		RCSM2Range:       [2]float64{s.settings.RCSM2Min, s.settings.RCSM2Max},
		MotionEnabled:    s.sim.MotionEnabled(),
		RunID:            s.sim.RunID(),
		Build:            version.Current(),
	})
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteNegotiated(w, r, s.sim.Snapshot())
}

type motionRequest struct {
	Enabled *bool `json:"enabled"`
}

type motionResponse struct {
	MotionEnabled bool `json:"motion_enabled"`
}

func (s *Server) setMotion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req motionRequest
	if err := httputil.ReadJSON(w, r, httputil.DefaultMaxBodyBytes, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Enabled == nil {
		httputil.BadRequest(w, "missing field: enabled")
		return
	}
	s.sim.SetMotion(*req.Enabled)
	httputil.WriteJSONOK(w, motionResponse{MotionEnabled: s.sim.MotionEnabled()})
}

func (s *Server) listPlatforms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	platforms, err := s.catalog.Platforms(r.Context())
	if err != nil {
		log.Printf("failed to list platforms: %v", err)
		httputil.InternalServerError(w, "failed to list platforms")
		return
	}
	httputil.WriteJSONOK(w, map[string][]db.Platform{"platforms": platforms})
}

// statusFor maps domain errors to 400 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrProfileNotFound), errors.Is(err, sim.ErrInvalidTrack):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
