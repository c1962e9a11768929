// Package model defines the shared data model for boundary alignment and
// vulnerability scoring.
package model

// AdminLevel is an administrative granularity tier, ADM0 (country) through
// ADM4 (finest).
type AdminLevel string

const (
	ADM0 AdminLevel = "ADM0"
	ADM1 AdminLevel = "ADM1"
	ADM2 AdminLevel = "ADM2"
	ADM3 AdminLevel = "ADM3"
	ADM4 AdminLevel = "ADM4"
)

// Depth returns the numeric level (0-4), or -1 for an unknown level.
func (l AdminLevel) Depth() int {
	switch l {
	case ADM0:
		return 0
	case ADM1:
		return 1
	case ADM2:
		return 2
	case ADM3:
		return 3
	case ADM4:
		return 4
	}
	return -1
}

// Parent returns the next coarser level, or ADM0 for ADM0.
func (l AdminLevel) Parent() AdminLevel {
	switch l {
	case ADM4:
		return ADM3
	case ADM3:
		return ADM2
	case ADM2:
		return ADM1
	default:
		return ADM0
	}
}

// BoundaryRecord is one canonical administrative boundary. The set for a
// country+level is loaded once per alignment session and shared read-only.
type BoundaryRecord struct {
	PCode       string     `json:"pcode"`
	Name        string     `json:"name"`
	Level       AdminLevel `json:"level"`
	ParentPCode string     `json:"parent_pcode,omitempty"`
	CountryISO3 string     `json:"country_iso3,omitempty"`
	Geom        []byte     `json:"-"` // EWKB, nil when the source carried no geometry
}

// HasGeometry reports whether the boundary carries geometry.
func (b *BoundaryRecord) HasGeometry() bool {
	return len(b.Geom) > 0
}
