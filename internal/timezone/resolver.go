// Package timezone maps coordinates to IANA timezone names using offline
// boundary polygons. No network access.
package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone rules for time.LoadLocation on hosts without zoneinfo

	"github.com/ringsaturn/tzf"
)

// Resolver looks up the timezone containing a coordinate. Safe for concurrent use.
type Resolver struct {
	finder tzf.F
}

// NewResolver loads the embedded boundary data. Loading takes a noticeable
// fraction of a second, so build one Resolver per process.
func NewResolver() (*Resolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone boundaries: %w", err)
	}
	return &Resolver{finder: finder}, nil
}

// Resolve returns the IANA timezone name for (lat, lon), or "" when the point
// falls outside every zone polygon (open ocean) or is out of range.
func (r *Resolver) Resolve(lat, lon float64) string {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ""
	}
	return r.finder.GetTimezoneName(lon, lat)
}

// LoadLocation returns the location for name, or UTC when name is empty or unknown.
// The boolean reports whether name was resolved.
func LoadLocation(name string) (*time.Location, bool) {
	if name == "" {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}
