package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrProfileNotFound is returned when no profile matches a platform id and
// profile name.
var ErrProfileNotFound = errors.New("platform profile not found")

// PlatformProfile is one operating profile of a platform.
type PlatformProfile struct {
	ID          int      `json:"id"`
	ProfileName string   `json:"profile_name"`
	SpeedMPS    float64  `json:"speed_mps"`
	AltitudeM   float64  `json:"altitude_m"`
	RCSM2Est    *float64 `json:"rcs_m2_est"`
	RCSQuality  string   `json:"rcs_quality"`
	HeadingDeg  float64  `json:"heading_deg"`
	AzimuthDeg  float64  `json:"azimuth_deg"`
	SourceURL   string   `json:"source_url"`
	Notes       string   `json:"notes"`
}

// Platform is a catalog entry with its profiles ordered by name.
type Platform struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	Role      string            `json:"role"`
	SourceURL string            `json:"source_url"`
	Profiles  []PlatformProfile `json:"profiles"`
}

// Profile is a single profile joined with its platform, as used to build a
// custom track.
type Profile struct {
	PlatformID        int      `json:"platform_id"`
	PlatformName      string   `json:"platform_name"`
	Category          string   `json:"category"`
	Role              string   `json:"role"`
	PlatformSourceURL string   `json:"platform_source_url"`
	ProfileID         int      `json:"profile_id"`
	ProfileName       string   `json:"profile_name"`
	SpeedMPS          float64  `json:"speed_mps"`
	AltitudeM         float64  `json:"altitude_m"`
	RCSM2Est          *float64 `json:"rcs_m2_est"`
	RCSQuality        string   `json:"rcs_quality"`
	ProfileSourceURL  string   `json:"profile_source_url"`
	Notes             string   `json:"notes"`
}

// Platforms lists every platform that has at least one profile, ordered by
// platform id and then profile name.
func (db *DB) Platforms(ctx context.Context) ([]Platform, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			p.id, p.name, p.category, p.role, p.source_url,
			pr.id, pr.profile_name, pr.speed_mps, pr.altitude_m, pr.rcs_m2_est,
			pr.rcs_quality, pr.heading_deg, pr.azimuth_deg, pr.source_url, pr.notes
		FROM platform p
		JOIN platform_profile pr ON pr.platform_id = p.id
		ORDER BY p.id, pr.profile_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query platforms: %w", err)
	}
	defer rows.Close()

	platforms := []Platform{}
	for rows.Next() {
		var (
			p   Platform
			pr  PlatformProfile
			rcs sql.NullFloat64
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Category, &p.Role, &p.SourceURL,
			&pr.ID, &pr.ProfileName, &pr.SpeedMPS, &pr.AltitudeM, &rcs,
			&pr.RCSQuality, &pr.HeadingDeg, &pr.AzimuthDeg, &pr.SourceURL, &pr.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan platform row: %w", err)
		}
		if rcs.Valid {
			pr.RCSM2Est = &rcs.Float64
		}

		// rows arrive grouped by platform id
		if n := len(platforms); n == 0 || platforms[n-1].ID != p.ID {
			platforms = append(platforms, p)
		}
		last := &platforms[len(platforms)-1]
		last.Profiles = append(last.Profiles, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return platforms, nil
}

// Profile looks up one profile of a platform. It returns ErrProfileNotFound
// when either the platform or the profile name is unknown.
func (db *DB) Profile(ctx context.Context, platformID int, profileName string) (Profile, error) {
	var (
		p   Profile
		rcs sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, `
		SELECT
			p.id, p.name, p.category, p.role, p.source_url,
			pr.id, pr.profile_name, pr.speed_mps, pr.altitude_m, pr.rcs_m2_est,
			pr.rcs_quality, pr.source_url, pr.notes
		FROM platform p
		JOIN platform_profile pr ON pr.platform_id = p.id
		WHERE p.id = ? AND pr.profile_name = ?
		LIMIT 1`, platformID, profileName).Scan(
		&p.PlatformID, &p.PlatformName, &p.Category, &p.Role, &p.PlatformSourceURL,
		&p.ProfileID, &p.ProfileName, &p.SpeedMPS, &p.AltitudeM, &rcs,
		&p.RCSQuality, &p.ProfileSourceURL, &p.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: platform %d profile %q", ErrProfileNotFound, platformID, profileName)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to query profile: %w", err)
	}
	if rcs.Valid {
		p.RCSM2Est = &rcs.Float64
	}
	return p, nil
}

// InsertPlatform adds a platform and its profiles in one transaction. Zero
// ids are assigned by the database and written back into p.
func (db *DB) InsertPlatform(ctx context.Context, p *Platform) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO platform (id, name, category, role, source_url) VALUES (NULLIF(?, 0), ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Role, p.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to insert platform %q: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = int(id)

	for i := range p.Profiles {
		pr := &p.Profiles[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO platform_profile
				(id, platform_id, profile_name, speed_mps, altitude_m, rcs_m2_est,
				 rcs_quality, heading_deg, azimuth_deg, source_url, notes)
			VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pr.ID, p.ID, pr.ProfileName, pr.SpeedMPS, pr.AltitudeM, pr.RCSM2Est,
			pr.RCSQuality, pr.HeadingDeg, pr.AzimuthDeg, pr.SourceURL, pr.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert profile %q: %w", pr.ProfileName, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		pr.ID = int(id)
	}
	return tx.Commit()
}

type profileKey struct {
	platformID int
	name       string
}

// Catalog serves profile lookups from an LRU in front of the database.
// Entries expire so edits made through the SQL console show up without a
// restart.
type Catalog struct {
	db    *DB
	cache *expirable.LRU[profileKey, Profile]
}

// DefaultProfileCacheTTL bounds how long a cached profile is served.
const DefaultProfileCacheTTL = 5 * time.Minute

// NewCatalog wraps db with a profile cache of the given size.
func NewCatalog(db *DB, size int, ttl time.Duration) *Catalog {
	return &Catalog{
		db:    db,
		cache: expirable.NewLRU[profileKey, Profile](size, nil, ttl),
	}
}

// Platforms is not cached; it is a listing for the UI.
func (c *Catalog) Platforms(ctx context.Context) ([]Platform, error) {
	return c.db.Platforms(ctx)
}

// Profile returns a cached profile or loads it. Misses are not cached.
func (c *Catalog) Profile(ctx context.Context, platformID int, profileName string) (Profile, error) {
	key := profileKey{platformID: platformID, name: profileName}
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}
	p, err := c.db.Profile(ctx, platformID, profileName)
	if err != nil {
		return Profile{}, err
	}
	c.cache.Add(key, p)
	return p, nil
}

// Purge drops every cached profile.
func (c *Catalog) Purge() {
	c.cache.Purge()
}
