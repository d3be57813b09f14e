package core

import (
	"container/heap"
	"math"
	"runtime"
	"sync"
	"time"
)

// DistanceOptions selects what ComputeDistance produces and how.
type DistanceOptions struct {
	// Topography switches from straight-line propagation distance to the
	// least-cost path length over the elevation surface.
	Topography bool
	// Maps selects per-station distance fields.
	Maps bool
	// Matrix selects the symmetric inter-station distance matrix.
	Matrix bool
	// AOI restricts the output fields to a bounding box. The matrix and,
	// in topography mode, the path search still use the full terrain.
	AOI *Extent
	// Workers caps how many stations are solved concurrently. Zero or
	// negative uses all available CPUs.
	Workers int
	// Metrics optionally receives per-station build timings.
	Metrics DistanceRecorder
}

// DistanceRecorder receives distance-field build observations. Implemented
// by internal/observability; nil disables recording.
type DistanceRecorder interface {
	ObserveFieldBuild(stationID string, seconds float64)
}

// DistanceSet bundles the per-station distance fields and the inter-station
// distance matrix. Fields is indexed like the StationSet that produced it;
// entries are nil when Maps was off. Matrix is nil when Matrix was off.
type DistanceSet struct {
	Fields []*Raster
	Matrix [][]float64
}

// ComputeDistance derives propagation distances from every station to every
// cell of the terrain, and between stations. It is a pure function of its
// inputs: terrain and stations are only read.
//
// Station solves are independent and run on a bounded worker pool; each
// writes to its own output slot, so the parallel result is identical to the
// sequential one.
func ComputeDistance(terrain *Terrain, stations *StationSet, opts DistanceOptions) (*DistanceSet, error) {
	if terrain == nil {
		return nil, &ConfigurationError{Param: "terrain", Reason: "terrain is nil"}
	}
	if stations == nil || stations.Len() == 0 {
		return nil, &ConfigurationError{Param: "stations", Reason: "station set is empty"}
	}
	if terrain.HasNoData() {
		return nil, &ConfigurationError{Param: "terrain", Reason: "elevation grid contains no-data cells"}
	}
	if err := stations.Validate(terrain.Extent()); err != nil {
		return nil, err
	}
	if opts.AOI != nil && !opts.AOI.Within(terrain.Extent()) {
		return nil, &ConfigurationError{Param: "aoi", Reason: "extent is beyond the terrain extent"}
	}

	out := &DistanceSet{}
	if opts.Maps {
		fields, err := computeFields(terrain, stations, opts)
		if err != nil {
			return nil, err
		}
		out.Fields = fields
	}
	if opts.Matrix {
		out.Matrix = computeMatrix(terrain, stations, opts.Topography)
	}
	return out, nil
}

func computeFields(terrain *Terrain, stations *StationSet, opts DistanceOptions) ([]*Raster, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > stations.Len() {
		workers = stations.Len()
	}

	fields := make([]*Raster, stations.Len())
	errs := make([]error, stations.Len())
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < stations.Len(); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			fields[i], errs[i] = stationField(terrain, stations.At(i), opts)
			if opts.Metrics != nil {
				opts.Metrics.ObserveFieldBuild(stations.At(i).ID, time.Since(start).Seconds())
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// stationField computes the distance field of a single station over the
// full terrain, then crops it to the AOI when one was given.
func stationField(terrain *Terrain, station Station, opts DistanceOptions) (*Raster, error) {
	var field *Raster
	if opts.Topography {
		field = leastCostField(terrain, station)
	} else {
		field = chordField(terrain, station)
	}
	if opts.AOI != nil {
		return field.Crop(*opts.AOI)
	}
	return field, nil
}

// chordField fills a raster with the straight-line distance from the
// station to every cell center, including the elevation difference between
// the station's cell and the target cell. On flat terrain this reduces to
// the plain Euclidean ground distance.
func chordField(terrain *Terrain, station Station) *Raster {
	dem := terrain.Elevation
	out := dem.Clone()
	zStat, _ := terrain.ElevationAt(station.X, station.Y)
	for row := 0; row < dem.Rows; row++ {
		for col := 0; col < dem.Cols; col++ {
			cx, cy := dem.CellCenter(row, col)
			dx := cx - station.X
			dy := cy - station.Y
			dz := dem.At(row, col) - zStat
			out.Set(row, col, math.Sqrt(dx*dx+dy*dy+dz*dz))
		}
	}
	return out
}

// neighborSteps enumerates the 8-connected neighborhood in a fixed order.
// The order is part of the determinism contract: path-cost ties resolve to
// whichever cell was relaxed first.
var neighborSteps = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// leastCostField solves a single-origin shortest-path problem over the
// elevation surface. A step from a cell to one of its 8 neighbors costs the
// 3-D length of that segment: the horizontal cell step combined with the
// elevation difference along it. The resulting path length is never shorter
// than the straight-line ground distance.
func leastCostField(terrain *Terrain, station Station) *Raster {
	dem := terrain.Elevation
	out := dem.Clone()
	out.Fill(math.Inf(1))

	srcRow, srcCol, _ := dem.CellIndex(station.X, station.Y)
	src := srcRow*dem.Cols + srcCol

	dist := out.Values
	dist[src] = 0

	pq := &cellQueue{}
	heap.Init(pq)
	heap.Push(pq, cellItem{index: src, cost: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(cellItem)
		if item.cost > dist[item.index] {
			continue // stale entry
		}
		row := item.index / dem.Cols
		col := item.index % dem.Cols
		z := dem.At(row, col)

		for _, step := range neighborSteps {
			nr, nc := row+step[0], col+step[1]
			if nr < 0 || nr >= dem.Rows || nc < 0 || nc >= dem.Cols {
				continue
			}
			hx := float64(step[1]) * dem.DX
			hy := float64(step[0]) * dem.DY
			dz := dem.At(nr, nc) - z
			cost := item.cost + math.Sqrt(hx*hx+hy*hy+dz*dz)

			ni := nr*dem.Cols + nc
			if cost < dist[ni] {
				dist[ni] = cost
				heap.Push(pq, cellItem{index: ni, cost: cost})
			}
		}
	}
	return out
}

// computeMatrix derives inter-station distances from the same geometry as
// the fields so the two stay numerically consistent: in topography mode an
// entry is the least-cost path length sampled at the other station's cell;
// in flat mode it is the 3-D chord between the station points.
func computeMatrix(terrain *Terrain, stations *StationSet, topography bool) [][]float64 {
	n := stations.Len()
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}

	if topography {
		dem := terrain.Elevation
		for i := 0; i < n; i++ {
			field := leastCostField(terrain, stations.At(i))
			for j := i + 1; j < n; j++ {
				row, col, _ := dem.CellIndex(stations.At(j).X, stations.At(j).Y)
				m[i][j] = field.At(row, col)
				m[j][i] = m[i][j]
			}
		}
		return m
	}

	for i := 0; i < n; i++ {
		si := stations.At(i)
		zi, _ := terrain.ElevationAt(si.X, si.Y)
		for j := i + 1; j < n; j++ {
			sj := stations.At(j)
			zj, _ := terrain.ElevationAt(sj.X, sj.Y)
			dx := si.X - sj.X
			dy := si.Y - sj.Y
			dz := zi - zj
			m[i][j] = math.Sqrt(dx*dx + dy*dy + dz*dz)
			m[j][i] = m[i][j]
		}
	}
	return m
}

// cellItem is one pending relaxation in the least-cost search. order breaks
// cost ties by insertion sequence, keeping the search deterministic.
type cellItem struct {
	index int
	cost  float64
	order int
}

type cellQueue struct {
	items  []cellItem
	pushed int
}

func (q *cellQueue) Len() int { return len(q.items) }

func (q *cellQueue) Less(i, j int) bool {
	if q.items[i].cost != q.items[j].cost {
		return q.items[i].cost < q.items[j].cost
	}
	return q.items[i].order < q.items[j].order
}

func (q *cellQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *cellQueue) Push(x any) {
	item := x.(cellItem)
	item.order = q.pushed
	q.pushed++
	q.items = append(q.items, item)
}

func (q *cellQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
