package core

import (
	"math"
	"runtime"
	"sort"
	"sync"
)

// Polarity states which direction of a location-quality surface is "good".
// Residual surfaces improve downward, correlation/likelihood surfaces
// improve upward. The polarity travels with every surface so downstream
// consumers never have to guess.
type Polarity int

const (
	// LowerIsBetter marks residual-style surfaces.
	LowerIsBetter Polarity = iota
	// HigherIsBetter marks likelihood/correlation-style surfaces.
	HigherIsBetter
)

func (p Polarity) String() string {
	if p == LowerIsBetter {
		return "lower-is-better"
	}
	return "higher-is-better"
}

// QualitySurface is a per-cell location-quality metric over the distance
// field grid, tagged with its polarity.
type QualitySurface struct {
	Grid     *Raster
	Polarity Polarity
}

// better reports whether a is a strictly better quality value than b under
// the surface's polarity.
func (s *QualitySurface) better(a, b float64) bool {
	if s.Polarity == LowerIsBetter {
		return a < b
	}
	return a > b
}

// worstValue returns the sentinel that any finite value beats.
func (s *QualitySurface) worstValue() float64 {
	if s.Polarity == LowerIsBetter {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// finiteValues returns the surface's valid cell values in scan order.
func (s *QualitySurface) finiteValues() []float64 {
	vals := make([]float64, 0, len(s.Grid.Values))
	for _, v := range s.Grid.Values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

// qualityQuantile returns the value q of the way up the surface's goodness
// ordering: q=0 is the worst valid cell, q=1 the best, matching how clip
// thresholds and tracker gates are expressed. Interpolation is linear.
func (s *QualitySurface) qualityQuantile(q float64) (float64, error) {
	vals := s.finiteValues()
	if len(vals) == 0 {
		return 0, &EmptySurfaceError{Rows: s.Grid.Rows, Cols: s.Grid.Cols}
	}
	sort.Float64s(vals)
	if s.Polarity == LowerIsBetter {
		// Goodness ascends toward small values.
		q = 1 - q
	}
	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	if lo >= len(vals)-1 {
		return vals[len(vals)-1], nil
	}
	frac := pos - float64(lo)
	return vals[lo]*(1-frac) + vals[lo+1]*frac, nil
}

// forEachRowParallel runs fn for every row index on a bounded worker pool.
// Callers must only write to cells of their own row, which keeps the
// parallel result identical to the sequential one.
func forEachRowParallel(rows, workers int, fn func(row int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > rows {
		workers = rows
	}
	if workers <= 1 {
		for row := 0; row < rows; row++ {
			fn(row)
		}
		return
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range next {
				fn(row)
			}
		}()
	}
	for row := 0; row < rows; row++ {
		next <- row
	}
	close(next)
	wg.Wait()
}
