package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Sector represents a rectangular geographic extent in degrees.
type Sector struct {
	MinLatitude  float64
	MinLongitude float64
	MaxLatitude  float64
	MaxLongitude float64
}

// FullSphere covers the whole globe in geographic coordinates.
var FullSphere = Sector{
	MinLatitude:  -90,
	MinLongitude: -180,
	MaxLatitude:  90,
	MaxLongitude: 180,
}

// NewSector creates a sector and validates that min <= max on both axes.
func NewSector(minLat, minLon, maxLat, maxLon float64) (Sector, error) {
	s := Sector{
		MinLatitude:  minLat,
		MinLongitude: minLon,
		MaxLatitude:  maxLat,
		MaxLongitude: maxLon,
	}
	if minLat > maxLat {
		return Sector{}, fmt.Errorf("min latitude %v greater than max latitude %v", minLat, maxLat)
	}
	if minLon > maxLon {
		return Sector{}, fmt.Errorf("min longitude %v greater than max longitude %v", minLon, maxLon)
	}
	return s, nil
}

// DeltaLatitude returns the latitudinal span in degrees.
func (s Sector) DeltaLatitude() float64 {
	return s.MaxLatitude - s.MinLatitude
}

// DeltaLongitude returns the longitudinal span in degrees.
func (s Sector) DeltaLongitude() float64 {
	return s.MaxLongitude - s.MinLongitude
}

// IsEmpty reports whether the sector spans zero area.
func (s Sector) IsEmpty() bool {
	return s.DeltaLatitude() <= 0 || s.DeltaLongitude() <= 0
}

// Bound converts the sector to an orb.Bound in lon/lat point order.
func (s Sector) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{s.MinLongitude, s.MinLatitude},
		Max: orb.Point{s.MaxLongitude, s.MaxLatitude},
	}
}

// SectorFromBound converts an orb.Bound back to a sector.
func SectorFromBound(b orb.Bound) Sector {
	return Sector{
		MinLatitude:  b.Min.Lat(),
		MinLongitude: b.Min.Lon(),
		MaxLatitude:  b.Max.Lat(),
		MaxLongitude: b.Max.Lon(),
	}
}

// Intersects reports whether the two sectors overlap.
func (s Sector) Intersects(other Sector) bool {
	return s.Bound().Intersects(other.Bound())
}

// Union returns the smallest sector containing both sectors.
func (s Sector) Union(other Sector) Sector {
	return SectorFromBound(s.Bound().Union(other.Bound()))
}
