package core

import "fmt"

// The core surfaces a small set of typed errors so callers can tell apart
// geometry problems, configuration problems and degenerate inputs without
// string matching. Each carries enough context (station ID, grid shape,
// parameter name) to diagnose a failure from the error value alone.

// OutOfBoundsError reports a station whose coordinates fall outside the
// usable terrain extent.
type OutOfBoundsError struct {
	StationID string
	X, Y      float64
	Extent    Extent
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("station %q at (%.3f, %.3f) outside terrain extent [%.3f, %.3f] x [%.3f, %.3f]",
		e.StationID, e.X, e.Y, e.Extent.XMin, e.Extent.XMax, e.Extent.YMin, e.Extent.YMax)
}

// GridMismatchError reports an attempt to combine rasters that do not share
// the same shape, origin and cell size.
type GridMismatchError struct {
	Context string
	Want    GridShape
	Got     GridShape
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("%s: grid mismatch: want %s, got %s", e.Context, e.Want, e.Got)
}

// GridShape summarises the geometry of a raster for error reporting.
type GridShape struct {
	Rows, Cols int
	X0, Y0     float64
	DX, DY     float64
}

func (s GridShape) String() string {
	return fmt.Sprintf("%dx%d@(%.3f,%.3f)+(%.3f,%.3f)", s.Rows, s.Cols, s.X0, s.Y0, s.DX, s.DY)
}

// UnderdeterminedError reports that too few usable stations or samples were
// available to constrain a source location.
type UnderdeterminedError struct {
	Usable   int
	Required int
	Reason   string
}

func (e *UnderdeterminedError) Error() string {
	return fmt.Sprintf("underdetermined: %d usable of %d required (%s)", e.Usable, e.Required, e.Reason)
}

// EmptySurfaceError reports a location-quality surface with no valid cells.
type EmptySurfaceError struct {
	Rows, Cols int
}

func (e *EmptySurfaceError) Error() string {
	return fmt.Sprintf("surface %dx%d has no valid cells", e.Rows, e.Cols)
}

// ConfigurationError reports an invalid parameter or parameter combination.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}
