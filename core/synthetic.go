package core

import "math"

// Synthetic inputs for tests and the demo binary: a flat terrain and
// Gaussian-envelope traces whose per-station amplitude follows the
// attenuation model for a known source.

// FlatTerrain builds a rows x cols terrain at constant elevation with unit
// cells anchored at the origin.
func FlatTerrain(rows, cols int, elevation float64) (*Terrain, error) {
	grid, err := NewRaster(rows, cols, 0, 0, 1, 1, "local")
	if err != nil {
		return nil, err
	}
	grid.Fill(elevation)
	return NewTerrain(grid)
}

// SyntheticEnvelope writes a Gaussian envelope of the given peak amplitude
// into a fresh trace of n samples, centered at sample center with the given
// width in samples.
func SyntheticEnvelope(n int, center, width, peak float64) []float64 {
	trace := make([]float64, n)
	for i := range trace {
		z := (float64(i) - center) / width
		trace[i] = peak * math.Exp(-0.5*z*z)
	}
	return trace
}

// SyntheticSignals builds one trace per station for a source at (x, y):
// each station's envelope peaks at the amplitude the attenuation model
// predicts for its distance to the source, and arrives delayed by the
// travel time at params.V. Distances are plain ground distances; pair the
// result with flat-terrain distance fields.
func SyntheticSignals(stations *StationSet, params AttenuationParams, x, y float64, n int, dt, center, width float64) ([][]float64, error) {
	if stations == nil || stations.Len() == 0 {
		return nil, &ConfigurationError{Param: "stations", Reason: "station set is empty"}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 || dt <= 0 {
		return nil, &ConfigurationError{Param: "samples", Reason: "sample count and dt must be positive"}
	}

	traces := make([][]float64, stations.Len())
	for i := 0; i < stations.Len(); i++ {
		s := stations.At(i)
		d := math.Hypot(s.X-x, s.Y-y)
		delay := d / params.V / dt // in samples
		traces[i] = SyntheticEnvelope(n, center+delay, width, params.AmplitudeAt(d))
	}
	return traces, nil
}

// SyntheticMovingSource concatenates one synthetic burst per waypoint so a
// tracker run sees a source hopping along the path. Each segment holds
// samplesPerStep samples with the burst centered in the segment.
func SyntheticMovingSource(stations *StationSet, params AttenuationParams, path [][2]float64, samplesPerStep int, dt float64) ([][]float64, error) {
	if len(path) == 0 {
		return nil, &ConfigurationError{Param: "path", Reason: "path is empty"}
	}
	total := samplesPerStep * len(path)
	traces := make([][]float64, stations.Len())
	for i := range traces {
		traces[i] = make([]float64, total)
	}
	width := float64(samplesPerStep) / 8
	for step, point := range path {
		burst, err := SyntheticSignals(stations, params, point[0], point[1],
			samplesPerStep, dt, float64(samplesPerStep)/2, width)
		if err != nil {
			return nil, err
		}
		for i := range traces {
			copy(traces[i][step*samplesPerStep:(step+1)*samplesPerStep], burst[i])
		}
	}
	return traces, nil
}
