package core

import "math"

// Terrain is an elevation raster owned by the caller and only ever read by
// the core. Construction validates the geometry once so downstream code can
// trust it.
type Terrain struct {
	Elevation *Raster
}

// NewTerrain validates the elevation grid and wraps it as a Terrain.
// Infinite elevations are rejected outright; NaN cells are allowed here and
// rejected by the operations that cannot tolerate them.
func NewTerrain(elevation *Raster) (*Terrain, error) {
	if elevation == nil {
		return nil, &ConfigurationError{Param: "terrain", Reason: "elevation raster is nil"}
	}
	if elevation.DX <= 0 || elevation.DY <= 0 {
		return nil, &ConfigurationError{Param: "terrain", Reason: "cell size must be positive"}
	}
	if elevation.Rows <= 0 || elevation.Cols <= 0 || len(elevation.Values) != elevation.Rows*elevation.Cols {
		return nil, &ConfigurationError{Param: "terrain", Reason: "elevation raster shape does not match its values"}
	}
	for _, v := range elevation.Values {
		if math.IsInf(v, 0) {
			return nil, &ConfigurationError{Param: "terrain", Reason: "elevation contains infinite values"}
		}
	}
	return &Terrain{Elevation: elevation}, nil
}

// Extent returns the outer bounding box of the terrain.
func (t *Terrain) Extent() Extent { return t.Elevation.Extent() }

// HasNoData reports whether any elevation cell is marked no-data.
func (t *Terrain) HasNoData() bool {
	for _, v := range t.Elevation.Values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// ElevationAt returns the elevation of the cell containing (x, y).
func (t *Terrain) ElevationAt(x, y float64) (float64, bool) {
	row, col, ok := t.Elevation.CellIndex(x, y)
	if !ok {
		return 0, false
	}
	return t.Elevation.At(row, col), true
}
