package domain

import "fmt"

// IndexKind identifies a normalized-difference spectral index. The string
// value ("ndvi", "ndmi") appears in artifact keys, catalog item ids, and
// persisted column names.
type IndexKind string

const (
	// Vegetation is NDVI: (nir - red) / (nir + red).
	Vegetation IndexKind = "ndvi"
	// Moisture is NDMI: (nir - swir) / (nir + swir).
	Moisture IndexKind = "ndmi"
)

// AllIndexKinds lists every index the engine materializes per unit of work.
var AllIndexKinds = []IndexKind{Vegetation, Moisture}

// BandRole is a logical band position in an index formula, independent of
// the asset naming used by any particular scene processing level.
type BandRole string

const (
	RoleRed  BandRole = "red"
	RoleNIR  BandRole = "nir"
	RoleSWIR BandRole = "swir"
)

// bandPreferences maps each role to an ordered list of acceptable asset
// identifiers. Different processing levels expose the same physical band
// under different asset names, so selection takes the first name present.
var bandPreferences = map[BandRole][]string{
	RoleRed:  {"B04", "red", "visual", "B04_visual"},
	RoleNIR:  {"B08", "nir", "B08_visual"},
	RoleSWIR: {"B11", "swir16", "B12", "swir"},
}

// AssetPreferences returns the ordered acceptable asset names for a role.
func AssetPreferences(role BandRole) []string {
	return bandPreferences[role]
}

// Roles returns the two band roles of the index formula as (minuend,
// subtrahend): the returned pair (a, b) computes (a - b) / (a + b).
func (k IndexKind) Roles() (a, b BandRole, err error) {
	switch k {
	case Vegetation:
		return RoleNIR, RoleRed, nil
	case Moisture:
		return RoleNIR, RoleSWIR, nil
	default:
		return "", "", fmt.Errorf("unknown index kind %q", string(k))
	}
}

// TargetRole is the role whose grid is authoritative during alignment.
// The near-infrared band ships at the finest native resolution, so the
// other band is the one resampled up onto its grid.
func (k IndexKind) TargetRole() BandRole {
	return RoleNIR
}

// Upper returns the display form used in catalog item properties ("NDVI").
func (k IndexKind) Upper() string {
	switch k {
	case Vegetation:
		return "NDVI"
	case Moisture:
		return "NDMI"
	default:
		return string(k)
	}
}

// ParseIndexKind validates a string as a known index kind.
func ParseIndexKind(s string) (IndexKind, error) {
	switch IndexKind(s) {
	case Vegetation, Moisture:
		return IndexKind(s), nil
	default:
		return "", fmt.Errorf("unknown index kind %q", s)
	}
}
