package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Overrides is the optional JSON settings file. Fields left out keep the
// value resolved from the environment, so partial files are safe.
type Overrides struct {
	ScanRateHz       *int      `json:"prf_hz,omitempty"`
	SectorStepDeg    *int      `json:"sector_step_deg,omitempty"`
	TargetsPerSector *int      `json:"targets_per_sector,omitempty"`
	MaxRangeKm       *float64  `json:"max_range_km,omitempty"`
	RCSM2Min         *float64  `json:"rcs_m2_min,omitempty"`
	RCSM2Max         *float64  `json:"rcs_m2_max,omitempty"`
	AllowedOrigins   *[]string `json:"allowed_origins,omitempty"`
	Seed             *int64    `json:"sim_seed,omitempty"`
	DatabasePath     *string   `json:"database_path,omitempty"`

	FeedInterval *string `json:"feed_interval,omitempty"` // duration string like "500ms"
}

const maxOverridesSize = 1 * 1024 * 1024 // 1MB

// LoadOverrides loads an Overrides file. The path must have a .json
// extension and the file must be under 1MB.
func LoadOverrides(path string) (*Overrides, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxOverridesSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxOverridesSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	o := &Overrides{}
	if err := json.Unmarshal(data, o); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return o, nil
}

// Validate checks the fields that can be judged on their own. Cross-field
// checks happen in Settings.Validate after Apply.
func (o *Overrides) Validate() error {
	if o.ScanRateHz != nil && *o.ScanRateHz <= 0 {
		return fmt.Errorf("prf_hz must be positive, got %d", *o.ScanRateHz)
	}
	if o.SectorStepDeg != nil && (*o.SectorStepDeg <= 0 || *o.SectorStepDeg > 360) {
		return fmt.Errorf("sector_step_deg must be in (0, 360], got %d", *o.SectorStepDeg)
	}
	if o.TargetsPerSector != nil && *o.TargetsPerSector < 0 {
		return fmt.Errorf("targets_per_sector must be non-negative, got %d", *o.TargetsPerSector)
	}
	if o.MaxRangeKm != nil && *o.MaxRangeKm <= 0 {
		return fmt.Errorf("max_range_km must be positive, got %f", *o.MaxRangeKm)
	}
	if o.FeedInterval != nil && *o.FeedInterval != "" {
		d, err := time.ParseDuration(*o.FeedInterval)
		if err != nil {
			return fmt.Errorf("invalid feed_interval '%s': %w", *o.FeedInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("feed_interval must be positive, got %s", d)
		}
	}
	return nil
}

// Apply returns s with every set field of o replacing its counterpart.
func (o *Overrides) Apply(s Settings) Settings {
	if o == nil {
		return s
	}
	if o.ScanRateHz != nil {
		s.ScanRateHz = *o.ScanRateHz
	}
	if o.SectorStepDeg != nil {
		s.SectorStepDeg = *o.SectorStepDeg
	}
	if o.TargetsPerSector != nil {
		s.TargetsPerSector = *o.TargetsPerSector
	}
	if o.MaxRangeKm != nil {
		s.MaxRangeKm = *o.MaxRangeKm
	}
	if o.RCSM2Min != nil {
		s.RCSM2Min = *o.RCSM2Min
	}
	if o.RCSM2Max != nil {
		s.RCSM2Max = *o.RCSM2Max
	}
	if o.AllowedOrigins != nil {
		s.AllowedOrigins = append([]string(nil), *o.AllowedOrigins...)
	}
	if o.Seed != nil {
		s.Seed = *o.Seed
	}
	if o.DatabasePath != nil {
		s.DatabasePath = *o.DatabasePath
	}
	if o.FeedInterval != nil && *o.FeedInterval != "" {
		// Validate already accepted it.
		if d, err := time.ParseDuration(*o.FeedInterval); err == nil {
			s.FeedInterval = d
		}
	}
	return s
}
