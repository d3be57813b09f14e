package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Scenario bundles everything a localization run needs: the terrain, the
// station network and the physical parameters. It is what cmd/tracker and
// the tests start from.
type Scenario struct {
	Terrain     *Terrain
	Stations    *StationSet
	Attenuation AttenuationParams
}

// internal JSON shapes - kept unexported so the wire format can evolve.
type scenarioJSON struct {
	Stations    []stationJSON   `json:"stations"`
	Terrain     terrainJSON     `json:"terrain"`
	Attenuation attenuationJSON `json:"attenuation"`
}

type stationJSON struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type terrainJSON struct {
	Rows int     `json:"rows"`
	Cols int     `json:"cols"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
	CRS  string  `json:"crs"`
	// Surface selects a synthetic elevation model:
	// "flat" | "ramp" | "peak". Empty defaults to flat.
	Surface string  `json:"surface"`
	Base    float64 `json:"base"`
	Relief  float64 `json:"relief"`
}

type attenuationJSON struct {
	V         float64 `json:"v"`
	Q         float64 `json:"q"`
	F         float64 `json:"f"`
	A0        float64 `json:"a0"`
	Spreading float64 `json:"spreading"`
}

// LoadScenario reads a JSON scenario from r and materializes its terrain
// and station set. It fails on structural problems; geometric validation
// (stations inside the terrain, positive cell sizes) happens through the
// same constructors direct callers use.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	if len(payload.Stations) == 0 {
		return nil, fmt.Errorf("LoadScenario: scenario defines no stations")
	}

	terrain, err := synthesizeTerrain(payload.Terrain)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}

	stations := make([]Station, 0, len(payload.Stations))
	for _, js := range payload.Stations {
		if js.ID == "" {
			return nil, fmt.Errorf("LoadScenario: station with empty id")
		}
		stations = append(stations, Station{ID: js.ID, X: js.X, Y: js.Y})
	}
	set, err := NewStationSet(stations...)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}
	if err := set.Validate(terrain.Extent()); err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}

	return &Scenario{
		Terrain:  terrain,
		Stations: set,
		Attenuation: AttenuationParams{
			V:         payload.Attenuation.V,
			Q:         payload.Attenuation.Q,
			F:         payload.Attenuation.F,
			A0:        payload.Attenuation.A0,
			Spreading: payload.Attenuation.Spreading,
		},
	}, nil
}

// synthesizeTerrain builds an elevation grid from the scenario descriptor.
func synthesizeTerrain(js terrainJSON) (*Terrain, error) {
	rows, cols := js.Rows, js.Cols
	dx, dy := js.DX, js.DY
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	grid, err := NewRaster(rows, cols, js.X0, js.Y0, dx, dy, js.CRS)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(js.Surface)) {
	case "", "flat":
		grid.Fill(js.Base)
	case "ramp":
		// Elevation rises linearly west to east.
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				frac := float64(col) / math.Max(1, float64(cols-1))
				grid.Set(row, col, js.Base+js.Relief*frac)
			}
		}
	case "peak":
		// A Gaussian hill centered on the grid.
		ext := grid.Extent()
		cx := (ext.XMin + ext.XMax) / 2
		cy := (ext.YMin + ext.YMax) / 2
		sigma := math.Min(ext.XMax-ext.XMin, ext.YMax-ext.YMin) / 6
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				x, y := grid.CellCenter(row, col)
				r2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
				grid.Set(row, col, js.Base+js.Relief*math.Exp(-r2/(2*sigma*sigma)))
			}
		}
	default:
		return nil, fmt.Errorf("unknown terrain surface %q", js.Surface)
	}
	return NewTerrain(grid)
}
