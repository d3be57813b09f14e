package core

import (
	"math"
)

// congruencyEps is the tolerance used when comparing raster origins and
// cell sizes. Grids produced from the same terrain differ at most by
// floating-point noise.
const congruencyEps = 1e-9

// Extent is an axis-aligned bounding box in world coordinates.
type Extent struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Contains reports whether the point (x, y) lies inside the extent.
func (e Extent) Contains(x, y float64) bool {
	return x >= e.XMin && x <= e.XMax && y >= e.YMin && y <= e.YMax
}

// Within reports whether e lies fully inside other.
func (e Extent) Within(other Extent) bool {
	return e.XMin >= other.XMin && e.XMax <= other.XMax &&
		e.YMin >= other.YMin && e.YMax <= other.YMax
}

// Valid reports whether the extent spans a non-empty area.
func (e Extent) Valid() bool {
	return e.XMax > e.XMin && e.YMax > e.YMin
}

// Raster is a regular 2-D grid of float64 values in a planar CRS. Values
// are stored row-major; row 0 is the southernmost row, so y grows with the
// row index. NaN marks no-data cells.
//
// The core treats rasters handed in by the caller as read-only and returns
// fresh rasters from every operation.
type Raster struct {
	Rows, Cols int
	// X0, Y0 is the lower-left corner of the grid (not a cell center).
	X0, Y0 float64
	DX, DY float64
	// CRS is an opaque tag; the core never interprets it beyond equality.
	CRS    string
	Values []float64
}

// NewRaster allocates a raster of the given geometry with all cells zero.
func NewRaster(rows, cols int, x0, y0, dx, dy float64, crs string) (*Raster, error) {
	if rows <= 0 || cols <= 0 {
		return nil, &ConfigurationError{Param: "raster", Reason: "rows and cols must be positive"}
	}
	if dx <= 0 || dy <= 0 {
		return nil, &ConfigurationError{Param: "raster", Reason: "cell size must be positive"}
	}
	return &Raster{
		Rows: rows, Cols: cols,
		X0: x0, Y0: y0,
		DX: dx, DY: dy,
		CRS:    crs,
		Values: make([]float64, rows*cols),
	}, nil
}

// At returns the value stored at (row, col). The caller is responsible for
// staying in range, as with a plain slice.
func (r *Raster) At(row, col int) float64 { return r.Values[row*r.Cols+col] }

// Set stores v at (row, col).
func (r *Raster) Set(row, col int, v float64) { r.Values[row*r.Cols+col] = v }

// Fill sets every cell to v.
func (r *Raster) Fill(v float64) {
	for i := range r.Values {
		r.Values[i] = v
	}
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	out := *r
	out.Values = make([]float64, len(r.Values))
	copy(out.Values, r.Values)
	return &out
}

// Extent returns the outer bounding box of the grid.
func (r *Raster) Extent() Extent {
	return Extent{
		XMin: r.X0, XMax: r.X0 + float64(r.Cols)*r.DX,
		YMin: r.Y0, YMax: r.Y0 + float64(r.Rows)*r.DY,
	}
}

// Shape returns the grid geometry for error reporting.
func (r *Raster) Shape() GridShape {
	return GridShape{Rows: r.Rows, Cols: r.Cols, X0: r.X0, Y0: r.Y0, DX: r.DX, DY: r.DY}
}

// CellCenter returns the world coordinates of the center of cell (row, col).
func (r *Raster) CellCenter(row, col int) (x, y float64) {
	return r.X0 + (float64(col)+0.5)*r.DX, r.Y0 + (float64(row)+0.5)*r.DY
}

// CellIndex returns the cell containing the point (x, y), or ok=false when
// the point lies outside the grid.
func (r *Raster) CellIndex(x, y float64) (row, col int, ok bool) {
	col = int(math.Floor((x - r.X0) / r.DX))
	row = int(math.Floor((y - r.Y0) / r.DY))
	// A point exactly on the top or right edge belongs to the last cell.
	if col == r.Cols && x == r.X0+float64(r.Cols)*r.DX {
		col = r.Cols - 1
	}
	if row == r.Rows && y == r.Y0+float64(r.Rows)*r.DY {
		row = r.Rows - 1
	}
	if row < 0 || row >= r.Rows || col < 0 || col >= r.Cols {
		return 0, 0, false
	}
	return row, col, true
}

// Congruent reports whether two rasters share shape, origin and cell size
// within floating-point tolerance.
func (r *Raster) Congruent(other *Raster) bool {
	if other == nil {
		return false
	}
	return r.Rows == other.Rows && r.Cols == other.Cols &&
		math.Abs(r.X0-other.X0) <= congruencyEps &&
		math.Abs(r.Y0-other.Y0) <= congruencyEps &&
		math.Abs(r.DX-other.DX) <= congruencyEps &&
		math.Abs(r.DY-other.DY) <= congruencyEps
}

// Crop returns the sub-grid of r whose cell centers fall inside ext. The
// result keeps r's cell size and CRS; its origin snaps to r's cell lattice
// so cropped rasters from the same parent stay congruent with each other.
func (r *Raster) Crop(ext Extent) (*Raster, error) {
	if !ext.Valid() {
		return nil, &ConfigurationError{Param: "aoi", Reason: "extent spans no area"}
	}
	if !ext.Within(r.Extent()) {
		return nil, &ConfigurationError{Param: "aoi", Reason: "extent is beyond the grid extent"}
	}

	colMin := int(math.Ceil((ext.XMin - r.X0) / r.DX))
	colMax := int(math.Floor((ext.XMax-r.X0)/r.DX)) - 1
	rowMin := int(math.Ceil((ext.YMin - r.Y0) / r.DY))
	rowMax := int(math.Floor((ext.YMax-r.Y0)/r.DY)) - 1
	if colMax < colMin || rowMax < rowMin {
		return nil, &ConfigurationError{Param: "aoi", Reason: "extent covers no whole cell"}
	}

	out, err := NewRaster(rowMax-rowMin+1, colMax-colMin+1,
		r.X0+float64(colMin)*r.DX, r.Y0+float64(rowMin)*r.DY, r.DX, r.DY, r.CRS)
	if err != nil {
		return nil, err
	}
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			out.Set(row-rowMin, col-colMin, r.At(row, col))
		}
	}
	return out, nil
}

// minMax returns the smallest and largest finite values of the raster.
// ok is false when no cell is finite.
func (r *Raster) minMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range r.Values {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		ok = true
	}
	return lo, hi, ok
}

// normalizeInPlace rescales the finite cells of r into [0, 1]. A raster
// with no value spread is left unchanged.
func (r *Raster) normalizeInPlace() {
	lo, hi, ok := r.minMax()
	if !ok || hi == lo {
		return
	}
	span := hi - lo
	for i, v := range r.Values {
		if !math.IsNaN(v) {
			r.Values[i] = (v - lo) / span
		}
	}
}
