package core

import "math"

// AmplitudeOutput selects the metric written into the quality surface by
// amplitude-residual localization.
type AmplitudeOutput int

const (
	// OutputVariance scores each cell by variance reduction,
	// 1 - rss/sum(a^2). Higher is better.
	OutputVariance AmplitudeOutput = iota
	// OutputResiduals scores each cell by the raw weighted residual sum
	// of squares. Lower is better.
	OutputResiduals
)

// AmplitudeConfig parameterizes amplitude-residual localization.
type AmplitudeConfig struct {
	// Params are the attenuation model parameters. A0 is only the
	// forward-model amplitude; the per-cell source amplitude is fitted.
	Params AttenuationParams
	// Output selects the surface metric. The default is variance
	// reduction.
	Output AmplitudeOutput
	// Normalise rescales the finite surface cells into [0, 1].
	Normalise bool
	// Weights optionally weight stations in the per-cell fit, e.g. by
	// measured coupling quality. Nil means uniform.
	Weights []float64
	// Workers caps grid-row parallelism; zero uses all CPUs.
	Workers int
}

// LocateAmplitude treats every grid cell as a candidate source: it reads
// the cell's distance to each station off the fields, fits the best source
// amplitude under the attenuation model against the window's observed peak
// amplitudes, and stores the fit quality as the cell's value.
//
// Inputs are only read; the returned surface is freshly allocated and
// congruent with the distance-field grid. Cells where any field is no-data
// stay no-data.
func LocateAmplitude(window *SignalWindow, fields *DistanceSet, cfg AmplitudeConfig) (*QualitySurface, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	grids, err := usableFields(fields, window.Stations())
	if err != nil {
		return nil, err
	}
	if cfg.Weights != nil && len(cfg.Weights) != window.Stations() {
		return nil, &ConfigurationError{Param: "weights", Reason: "length does not match trace count"}
	}

	observed := window.PeakAmplitudes()

	ref := grids[0]
	out := ref.Clone()
	out.Fill(math.NaN())

	polarity := HigherIsBetter
	if cfg.Output == OutputResiduals {
		polarity = LowerIsBetter
	}

	var totalPower float64
	for _, a := range observed {
		totalPower += a * a
	}

	forEachRowParallel(ref.Rows, cfg.Workers, func(row int) {
		distances := make([]float64, len(grids))
		for col := 0; col < ref.Cols; col++ {
			valid := true
			for i, g := range grids {
				d := g.At(row, col)
				if math.IsNaN(d) {
					valid = false
					break
				}
				distances[i] = d
			}
			if !valid {
				continue
			}

			_, rss, err := FitSourceAmplitude(distances, observed, cfg.Weights, cfg.Params)
			if err != nil {
				continue
			}
			switch cfg.Output {
			case OutputResiduals:
				out.Set(row, col, rss)
			default:
				if totalPower == 0 {
					out.Set(row, col, 0)
				} else {
					out.Set(row, col, 1-rss/totalPower)
				}
			}
		}
	})

	if cfg.Normalise {
		out.normalizeInPlace()
	}
	return &QualitySurface{Grid: out, Polarity: polarity}, nil
}

// usableFields validates that the distance set carries a per-station field
// for every trace and that all fields share one grid. It returns the
// fields in station order.
func usableFields(fields *DistanceSet, stations int) ([]*Raster, error) {
	if fields == nil || len(fields.Fields) == 0 {
		return nil, &ConfigurationError{Param: "fields", Reason: "distance fields are required (run ComputeDistance with Maps on)"}
	}
	if len(fields.Fields) != stations {
		return nil, &UnderdeterminedError{
			Usable:   len(fields.Fields),
			Required: stations,
			Reason:   "one distance field per trace is required",
		}
	}
	if stations < 2 {
		return nil, &UnderdeterminedError{Usable: stations, Required: 2, Reason: "localization needs at least two stations"}
	}
	ref := fields.Fields[0]
	for _, g := range fields.Fields {
		if g == nil {
			return nil, &ConfigurationError{Param: "fields", Reason: "distance set contains a nil field"}
		}
		if !ref.Congruent(g) {
			return nil, &GridMismatchError{Context: "distance fields", Want: ref.Shape(), Got: g.Shape()}
		}
	}
	return fields.Fields, nil
}
