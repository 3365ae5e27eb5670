package domain

import (
	"github.com/paulmach/orb"

	"github.com/fieldsight/spectral-etl/internal/raster"
)

// Field is one monitored agricultural field: identity, lifecycle attributes,
// geometry, and zero or more computed index statistics keyed by index kind.
//
// Fields are immutable values. Attaching a computed index produces a new
// value via WithIndex rather than mutating shared state.
type Field struct {
	ID        string
	PlantType string
	PlantDate string // canonical YYYY-MM-DD
	Geometry  orb.Geometry
	Indices   map[IndexKind]raster.Stats
}

// WithIndex returns a copy of the field with stats attached for the given
// index kind. The receiver is not modified.
func (f Field) WithIndex(kind IndexKind, stats raster.Stats) Field {
	indices := make(map[IndexKind]raster.Stats, len(f.Indices)+1)
	for k, v := range f.Indices {
		indices[k] = v
	}
	indices[kind] = stats
	f.Indices = indices
	return f
}

// Stats returns the computed stats for the given kind, if present.
func (f Field) Stats(kind IndexKind) (raster.Stats, bool) {
	s, ok := f.Indices[kind]
	return s, ok
}
