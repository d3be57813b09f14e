package core

import "math"

// peakTolerance is the relative tolerance within which two cell values are
// considered tied at the optimum.
const peakTolerance = 1e-9

// Peak is one optimal cell of a quality surface, located at its cell
// center in world coordinates.
type Peak struct {
	X, Y     float64
	Row, Col int
	Value    float64
}

// Peaks returns every cell holding the surface's optimal value, honoring
// the surface's polarity. Cells within floating-point tolerance of the
// optimum count as ties and are all returned, in row-major scan order, each
// with equal standing; resolving ties (centroid, first hit, ...) is the
// caller's choice. No-data cells never participate.
func Peaks(s *QualitySurface) ([]Peak, error) {
	if s == nil || s.Grid == nil {
		return nil, &ConfigurationError{Param: "surface", Reason: "surface is nil"}
	}

	best := s.worstValue()
	found := false
	for _, v := range s.Grid.Values {
		if math.IsNaN(v) {
			continue
		}
		found = true
		if s.better(v, best) {
			best = v
		}
	}
	if !found {
		return nil, &EmptySurfaceError{Rows: s.Grid.Rows, Cols: s.Grid.Cols}
	}

	tol := peakTolerance * math.Max(1, math.Abs(best))
	var peaks []Peak
	for row := 0; row < s.Grid.Rows; row++ {
		for col := 0; col < s.Grid.Cols; col++ {
			v := s.Grid.At(row, col)
			if math.IsNaN(v) {
				continue
			}
			if math.Abs(v-best) <= tol {
				x, y := s.Grid.CellCenter(row, col)
				peaks = append(peaks, Peak{X: x, Y: y, Row: row, Col: col, Value: v})
			}
		}
	}
	return peaks, nil
}
