// Package config resolves the simulator settings from the environment and
// an optional JSON overrides file.
package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/phoenix.tracksim/internal/sim"
	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
	"github.com/banshee-data/phoenix.tracksim/internal/units"
)

// Environment variables read by FromEnv.
const (
	EnvScanRate         = "PRF_HZ"
	EnvSectorStep       = "SECTOR_STEP_DEG"
	EnvTargetsPerSector = "TARGETS_PER_SECTOR"
	EnvMaxRangeKm       = "MAX_RANGE_KM"
	EnvRCSRange         = "RCS_M2_RANGE"
	EnvAllowedOrigins   = "ALLOWED_ORIGINS"
	EnvSeed             = "SIM_SEED"
	EnvDatabasePath     = "DATABASE_PATH"
)

// AllOrigins in AllowedOrigins disables the CORS origin check.
const AllOrigins = "*"

// Settings is the resolved runtime configuration.
type Settings struct {
	ScanRateHz       int
	SectorStepDeg    int
	TargetsPerSector int
	MaxRangeKm       float64
	RCSM2Min         float64
	RCSM2Max         float64
	AllowedOrigins   []string
	Seed             int64
	DatabasePath     string
	FeedInterval     time.Duration
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ScanRateHz:       250,
		SectorStepDeg:    10,
		TargetsPerSector: 20,
		MaxRangeKm:       240,
		RCSM2Min:         0.1,
		RCSM2Max:         100,
		AllowedOrigins:   []string{"http://localhost:5173"},
		Seed:             42,
		DatabasePath:     "tracksim.db",
		FeedInterval:     time.Second,
	}
}

// FromEnv reads settings through getenv, normally os.Getenv. Unset or
// unparseable values keep their defaults.
func FromEnv(getenv func(string) string) Settings {
	s := DefaultSettings()
	s.ScanRateHz = parseInt(getenv(EnvScanRate), s.ScanRateHz)
	s.SectorStepDeg = parseInt(getenv(EnvSectorStep), s.SectorStepDeg)
	s.TargetsPerSector = parseInt(getenv(EnvTargetsPerSector), s.TargetsPerSector)
	s.MaxRangeKm = parseFloat(getenv(EnvMaxRangeKm), s.MaxRangeKm)
	s.RCSM2Min, s.RCSM2Max = parseFloatPair(getenv(EnvRCSRange), s.RCSM2Min, s.RCSM2Max)
	s.Seed = int64(parseInt(getenv(EnvSeed), int(s.Seed)))

	if v := getenv(EnvAllowedOrigins); v != "" {
		s.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(getenv(EnvDatabasePath)); v != "" {
		s.DatabasePath = v
	}
	return s
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// parseFloatPair parses "lo,hi". A malformed pair keeps both defaults; a
// malformed half keeps that half's default.
func parseFloatPair(v string, defLo, defHi float64) (float64, float64) {
	if v == "" {
		return defLo, defHi
	}
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return defLo, defHi
	}
	return parseFloat(parts[0], defLo), parseFloat(parts[1], defHi)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MaxRangeM is the max range in metres.
func (s Settings) MaxRangeM() float64 {
	return units.KmToM(s.MaxRangeKm)
}

// AllowAllOrigins reports whether CORS should accept any origin.
func (s Settings) AllowAllOrigins() bool {
	return slices.Contains(s.AllowedOrigins, AllOrigins)
}

// SimConfig converts the settings into a simulator config driven by clock.
func (s Settings) SimConfig(clock timeutil.Clock) sim.Config {
	return sim.Config{
		ScanRateHz:       s.ScanRateHz,
		SectorStepDeg:    s.SectorStepDeg,
		TargetsPerSector: s.TargetsPerSector,
		MaxRangeM:        s.MaxRangeM(),
		RCSM2Min:         s.RCSM2Min,
		RCSM2Max:         s.RCSM2Max,
		Seed:             s.Seed,
		Clock:            clock,
	}
}

// Validate checks the settings before anything is built from them.
func (s Settings) Validate() error {
	if err := s.SimConfig(nil).Validate(); err != nil {
		return err
	}
	if s.FeedInterval <= 0 {
		return fmt.Errorf("feed interval must be positive, got %s", s.FeedInterval)
	}
	if s.DatabasePath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	return nil
}
