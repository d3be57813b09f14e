package core

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func mustStations(t *testing.T, stations ...Station) *StationSet {
	t.Helper()
	set, err := NewStationSet(stations...)
	if err != nil {
		t.Fatalf("NewStationSet: %v", err)
	}
	return set
}

func mustFlatTerrain(t *testing.T, rows, cols int) *Terrain {
	t.Helper()
	terrain, err := FlatTerrain(rows, cols, 0)
	if err != nil {
		t.Fatalf("FlatTerrain: %v", err)
	}
	return terrain
}

// rampTerrain rises 2 m per cell from west to east.
func rampTerrain(t *testing.T, rows, cols int) *Terrain {
	t.Helper()
	grid, err := NewRaster(rows, cols, 0, 0, 1, 1, "local")
	if err != nil {
		t.Fatalf("NewRaster: %v", err)
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			grid.Set(row, col, 2*float64(col))
		}
	}
	terrain, err := NewTerrain(grid)
	if err != nil {
		t.Fatalf("NewTerrain: %v", err)
	}
	return terrain
}

func TestFlatFieldMatchesEuclidean(t *testing.T) {
	terrain := mustFlatTerrain(t, 20, 20)
	station := Station{ID: "ST01", X: 5.5, Y: 5.5} // a cell center
	set := mustStations(t, station)

	out, err := ComputeDistance(terrain, set, DistanceOptions{Maps: true})
	if err != nil {
		t.Fatalf("ComputeDistance: %v", err)
	}
	field := out.Fields[0]
	for row := 0; row < field.Rows; row++ {
		for col := 0; col < field.Cols; col++ {
			cx, cy := field.CellCenter(row, col)
			want := math.Hypot(cx-station.X, cy-station.Y)
			if math.Abs(field.At(row, col)-want) > 1e-12 {
				t.Fatalf("field(%d, %d) = %v, want %v", row, col, field.At(row, col), want)
			}
		}
	}
}

func TestFieldNearZeroAtStationCell(t *testing.T) {
	terrain := mustFlatTerrain(t, 20, 20)
	set := mustStations(t, Station{ID: "ST01", X: 7.2, Y: 12.8})

	for _, topo := range []bool{false, true} {
		out, err := ComputeDistance(terrain, set, DistanceOptions{Topography: topo, Maps: true})
		if err != nil {
			t.Fatalf("ComputeDistance(topo=%v): %v", topo, err)
		}
		row, col, _ := terrain.Elevation.CellIndex(7.2, 12.8)
		diagonal := math.Hypot(terrain.Elevation.DX, terrain.Elevation.DY)
		if d := out.Fields[0].At(row, col); d > diagonal {
			t.Fatalf("topo=%v: distance at station cell = %v, want at most one cell diagonal %v", topo, d, diagonal)
		}
	}
}

func TestLeastCostFieldOnFlatTerrain(t *testing.T) {
	terrain := mustFlatTerrain(t, 10, 10)
	set := mustStations(t, Station{ID: "ST01", X: 0.5, Y: 0.5}) // cell (0, 0)

	out, err := ComputeDistance(terrain, set, DistanceOptions{Topography: true, Maps: true})
	if err != nil {
		t.Fatalf("ComputeDistance: %v", err)
	}
	// On flat unit cells the least-cost path uses diagonal steps for the
	// shorter axis and straight steps for the rest.
	field := out.Fields[0]
	want := 3*math.Sqrt2 + 1 // to cell (3, 4): 3 diagonals + 1 straight
	if got := field.At(3, 4); math.Abs(got-want) > 1e-12 {
		t.Fatalf("least-cost distance to (3, 4) = %v, want %v", got, want)
	}
	if got := field.At(0, 0); got != 0 {
		t.Fatalf("distance at the source cell = %v, want 0", got)
	}
}

func TestLeastCostNeverBelowStraightLine(t *testing.T) {
	terrain := rampTerrain(t, 15, 15)
	set := mustStations(t, Station{ID: "ST01", X: 2.5, Y: 2.5}) // a cell center

	flat, err := ComputeDistance(terrain, set, DistanceOptions{Maps: true})
	if err != nil {
		t.Fatalf("ComputeDistance(flat): %v", err)
	}
	topo, err := ComputeDistance(terrain, set, DistanceOptions{Topography: true, Maps: true})
	if err != nil {
		t.Fatalf("ComputeDistance(topo): %v", err)
	}
	for i := range topo.Fields[0].Values {
		lc, chord := topo.Fields[0].Values[i], flat.Fields[0].Values[i]
		if lc < chord-1e-9 {
			t.Fatalf("cell %d: least-cost %v shorter than straight line %v", i, lc, chord)
		}
	}
}

func TestDistanceMatrix(t *testing.T) {
	terrain := mustFlatTerrain(t, 30, 30)
	set := mustStations(t,
		Station{ID: "ST01", X: 5.5, Y: 5.5},
		Station{ID: "ST02", X: 20.5, Y: 10.5},
		Station{ID: "ST03", X: 12.5, Y: 25.5},
	)

	out, err := ComputeDistance(terrain, set, DistanceOptions{Matrix: true})
	if err != nil {
		t.Fatalf("ComputeDistance: %v", err)
	}
	m := out.Matrix
	for i := 0; i < set.Len(); i++ {
		if m[i][i] != 0 {
			t.Fatalf("matrix diagonal [%d][%d] = %v, want 0", i, i, m[i][i])
		}
		for j := i + 1; j < set.Len(); j++ {
			if m[i][j] != m[j][i] {
				t.Fatalf("matrix not symmetric at (%d, %d): %v vs %v", i, j, m[i][j], m[j][i])
			}
			si, sj := set.At(i), set.At(j)
			want := math.Hypot(si.X-sj.X, si.Y-sj.Y)
			if math.Abs(m[i][j]-want) > 1e-12 {
				t.Fatalf("matrix[%d][%d] = %v, want %v", i, j, m[i][j], want)
			}
		}
	}
}

func TestTopographyMatrixConsistentWithFields(t *testing.T) {
	terrain := rampTerrain(t, 20, 20)
	set := mustStations(t,
		Station{ID: "ST01", X: 3.5, Y: 3.5},
		Station{ID: "ST02", X: 15.5, Y: 12.5},
	)

	out, err := ComputeDistance(terrain, set, DistanceOptions{Topography: true, Maps: true, Matrix: true})
	if err != nil {
		t.Fatalf("ComputeDistance: %v", err)
	}
	row, col, _ := terrain.Elevation.CellIndex(set.At(1).X, set.At(1).Y)
	if got, want := out.Matrix[0][1], out.Fields[0].At(row, col); got != want {
		t.Fatalf("matrix entry %v differs from field sample %v", got, want)
	}
}

func TestDistanceAOICropsFields(t *testing.T) {
	terrain := mustFlatTerrain(t, 20, 20)
	set := mustStations(t, Station{ID: "ST01", X: 10.5, Y: 10.5})
	aoi := Extent{XMin: 3, XMax: 8, YMin: 2, YMax: 7}

	full, err := ComputeDistance(terrain, set, DistanceOptions{Maps: true})
	if err != nil {
		t.Fatalf("ComputeDistance(full): %v", err)
	}
	cropped, err := ComputeDistance(terrain, set, DistanceOptions{Maps: true, AOI: &aoi})
	if err != nil {
		t.Fatalf("ComputeDistance(aoi): %v", err)
	}

	want, err := full.Fields[0].Crop(aoi)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	got := cropped.Fields[0]
	if !got.Congruent(want) {
		t.Fatalf("AOI field geometry %v, want %v", got.Shape(), want.Shape())
	}
	for i := range want.Values {
		if got.Values[i] != want.Values[i] {
			t.Fatalf("AOI field value %d = %v, want %v", i, got.Values[i], want.Values[i])
		}
	}
}

func TestDistanceParallelMatchesSequential(t *testing.T) {
	terrain := rampTerrain(t, 25, 25)
	set := mustStations(t,
		Station{ID: "ST01", X: 2.5, Y: 2.5},
		Station{ID: "ST02", X: 20.5, Y: 5.5},
		Station{ID: "ST03", X: 12.5, Y: 18.5},
		Station{ID: "ST04", X: 5.5, Y: 22.5},
	)

	seq, err := ComputeDistance(terrain, set, DistanceOptions{Topography: true, Maps: true, Workers: 1})
	if err != nil {
		t.Fatalf("ComputeDistance(sequential): %v", err)
	}
	par, err := ComputeDistance(terrain, set, DistanceOptions{Topography: true, Maps: true, Workers: 4})
	if err != nil {
		t.Fatalf("ComputeDistance(parallel): %v", err)
	}
	for i := range seq.Fields {
		for j := range seq.Fields[i].Values {
			if seq.Fields[i].Values[j] != par.Fields[i].Values[j] {
				t.Fatalf("field %d cell %d differs between worker counts", i, j)
			}
		}
	}
}

func TestComputeDistanceRejectsBadInput(t *testing.T) {
	terrain := mustFlatTerrain(t, 10, 10)
	inside := mustStations(t, Station{ID: "ST01", X: 5, Y: 5})

	var cfgErr *ConfigurationError
	if _, err := ComputeDistance(nil, inside, DistanceOptions{Maps: true}); !errors.As(err, &cfgErr) {
		t.Fatalf("nil terrain should yield ConfigurationError, got %v", err)
	}
	if _, err := ComputeDistance(terrain, nil, DistanceOptions{Maps: true}); !errors.As(err, &cfgErr) {
		t.Fatalf("nil stations should yield ConfigurationError, got %v", err)
	}

	outside := mustStations(t, Station{ID: "FAR", X: 50, Y: 5})
	var oob *OutOfBoundsError
	if _, err := ComputeDistance(terrain, outside, DistanceOptions{Maps: true}); !errors.As(err, &oob) {
		t.Fatalf("station outside extent should yield OutOfBoundsError, got %v", err)
	} else if oob.StationID != "FAR" {
		t.Fatalf("error names station %q, want FAR", oob.StationID)
	}

	holed := mustFlatTerrain(t, 10, 10)
	holed.Elevation.Set(4, 4, math.NaN())
	if _, err := ComputeDistance(holed, inside, DistanceOptions{Maps: true}); !errors.As(err, &cfgErr) {
		t.Fatalf("no-data terrain should yield ConfigurationError, got %v", err)
	}

	beyond := Extent{XMin: -5, XMax: 5, YMin: 0, YMax: 5}
	if _, err := ComputeDistance(terrain, inside, DistanceOptions{Maps: true, AOI: &beyond}); !errors.As(err, &cfgErr) {
		t.Fatalf("AOI beyond terrain should yield ConfigurationError, got %v", err)
	}
}

type recordingDistanceRecorder struct {
	mu     sync.Mutex
	builds map[string]int
}

func (r *recordingDistanceRecorder) ObserveFieldBuild(stationID string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builds == nil {
		r.builds = make(map[string]int)
	}
	r.builds[stationID]++
}

func TestComputeDistanceReportsBuilds(t *testing.T) {
	terrain := mustFlatTerrain(t, 10, 10)
	set := mustStations(t,
		Station{ID: "ST01", X: 2.5, Y: 2.5},
		Station{ID: "ST02", X: 7.5, Y: 7.5},
	)
	rec := &recordingDistanceRecorder{}

	if _, err := ComputeDistance(terrain, set, DistanceOptions{Maps: true, Metrics: rec}); err != nil {
		t.Fatalf("ComputeDistance: %v", err)
	}
	for _, id := range set.IDs() {
		if rec.builds[id] != 1 {
			t.Fatalf("station %s observed %d builds, want 1", id, rec.builds[id])
		}
	}
}
