package core

import "context"

// The core does no file, network or CRS work itself. These interfaces name
// the collaborators that sit at its boundary; implementations live with the
// caller.

// TerrainProvider supplies the elevation grid, typically parsed from a
// raster file outside the core.
type TerrainProvider interface {
	Terrain(ctx context.Context) (*Terrain, error)
}

// SignalSource supplies multi-station signal windows, typically read from
// seismic trace files outside the core.
type SignalSource interface {
	Next(ctx context.Context) (*SignalWindow, error)
}

// CoordinateConverter reprojects coordinates between reference systems.
// The core assumes stations, terrain and AOI already share one planar CRS;
// conversion happens before any core operation runs.
type CoordinateConverter interface {
	Convert(x, y float64, fromCRS, toCRS string) (float64, float64, error)
}
