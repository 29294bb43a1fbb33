package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/phoenix.tracksim/internal/config"
	"github.com/banshee-data/phoenix.tracksim/internal/timeutil"
)

func TestFlagDefaults(t *testing.T) {
	if *listen != ":8000" {
		t.Errorf("listen default = %q, want :8000", *listen)
	}
	if *feedInterval != 0 {
		t.Errorf("feed-interval default = %v, want 0", *feedInterval)
	}
	if *feedBaud != 115200 {
		t.Errorf("feed-baud default = %d, want 115200", *feedBaud)
	}
	if *cacheTTL != 5*time.Minute {
		t.Errorf("profile-cache-ttl default = %v, want 5m", *cacheTTL)
	}
}

// setFlag sets a string flag for the duration of the test.
func setFlag(t *testing.T, p *string, v string) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func TestLoadSettingsLayering(t *testing.T) {
	t.Setenv(config.EnvScanRate, "100")
	t.Setenv(config.EnvDatabasePath, "env.db")

	dir := t.TempDir()
	overrides := filepath.Join(dir, "overrides.json")
	if err := os.WriteFile(overrides, []byte(`{"sector_step_deg": 30, "database_path": "file.db"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	setFlag(t, configFile, overrides)
	setFlag(t, dbPath, filepath.Join(dir, "flag.db"))

	oldInterval := *feedInterval
	*feedInterval = 250 * time.Millisecond
	t.Cleanup(func() { *feedInterval = oldInterval })

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.ScanRateHz != 100 {
		t.Errorf("ScanRateHz = %d, want 100 from env", s.ScanRateHz)
	}
	if s.SectorStepDeg != 30 {
		t.Errorf("SectorStepDeg = %d, want 30 from overrides", s.SectorStepDeg)
	}
	if want := filepath.Join(dir, "flag.db"); s.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q from flag", s.DatabasePath, want)
	}
	if s.FeedInterval != 250*time.Millisecond {
		t.Errorf("FeedInterval = %v, want 250ms", s.FeedInterval)
	}
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	t.Setenv(config.EnvSectorStep, "0")
	if _, err := loadSettings(); err == nil {
		t.Error("expected error for zero sector step")
	}
}

func TestOpenSinks(t *testing.T) {
	sinks, err := openSinks(timeutil.RealClock{})
	if err != nil {
		t.Fatalf("openSinks with no flags: %v", err)
	}
	if len(sinks) != 0 {
		t.Errorf("got %d sinks, want 0", len(sinks))
	}

	setFlag(t, feedPcap, filepath.Join(t.TempDir(), "feed.pcap"))
	sinks, err = openSinks(timeutil.RealClock{})
	if err != nil {
		t.Fatalf("openSinks: %v", err)
	}
	if len(sinks) != 1 {
		t.Fatalf("got %d sinks, want 1", len(sinks))
	}
	if err := sinks[0].Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenSinksClosesOnFailure(t *testing.T) {
	setFlag(t, feedPcap, filepath.Join(t.TempDir(), "feed.pcap"))
	setFlag(t, feedUDP, "not-an-address")
	if _, err := openSinks(timeutil.RealClock{}); err == nil {
		t.Error("expected error for bad udp address")
	}
}
