package core

import "math"

// MigrateConfig parameterizes cross-correlation migration.
type MigrateConfig struct {
	// V is the reference seismic wave velocity in m/s. It bounds the
	// physically possible correlation lags and converts distances to
	// travel times.
	V float64
	// VelocityField optionally refines the per-cell travel-time model
	// with a spatially variable velocity raster congruent with the
	// distance fields. The correlation lag window still uses V.
	VelocityField *Raster
	// DT overrides the window's sampling period when positive.
	DT float64
	// SNR optionally supplies per-station signal-to-noise ratios. When
	// nil and Normalise is on, SNR is estimated from the traces.
	SNR []float64
	// Normalise down-weights noisy station pairs by their relative SNR
	// instead of discarding them.
	Normalise bool
	// Workers caps grid-row parallelism; zero uses all CPUs.
	Workers int
}

// pairShift carries the per-pair quantities needed to score a cell: the
// lag of maximum cross-correlation and the pair's reference travel time.
type pairShift struct {
	i, j   int
	tMax   float64
	tPair  float64
	weight float64
}

// LocateMigrate localizes a source by migrating station-pair
// cross-correlations over the grid. For every station pair it finds the
// empirically best time shift, then rewards cells whose modeled
// differential travel time matches it, stacking a Gaussian kernel over all
// pairs. The result is a higher-is-better coherence surface congruent with
// the distance-field grid.
func LocateMigrate(window *SignalWindow, fields *DistanceSet, cfg MigrateConfig) (*QualitySurface, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if cfg.V <= 0 {
		return nil, &ConfigurationError{Param: "v", Reason: "wave velocity must be positive"}
	}
	grids, err := usableFields(fields, window.Stations())
	if err != nil {
		return nil, err
	}
	if fields.Matrix == nil {
		return nil, &ConfigurationError{Param: "fields", Reason: "inter-station distance matrix is required (run ComputeDistance with Matrix on)"}
	}
	if len(fields.Matrix) != window.Stations() {
		return nil, &GridMismatchError{
			Context: "distance matrix",
			Want:    GridShape{Rows: window.Stations(), Cols: window.Stations()},
			Got:     GridShape{Rows: len(fields.Matrix), Cols: len(fields.Matrix)},
		}
	}
	if cfg.SNR != nil && len(cfg.SNR) != window.Stations() {
		return nil, &ConfigurationError{Param: "snr", Reason: "length does not match trace count"}
	}

	ref := grids[0]
	if cfg.VelocityField != nil && !ref.Congruent(cfg.VelocityField) {
		return nil, &GridMismatchError{Context: "velocity field", Want: ref.Shape(), Got: cfg.VelocityField.Shape()}
	}

	dt := window.DT
	if cfg.DT > 0 {
		dt = cfg.DT
	}

	// Per-station min-max normalization puts all traces on a common
	// footing before correlating.
	normalized := make([][]float64, window.Stations())
	for i, trace := range window.Samples {
		normalized[i] = minMaxNormalize(trace)
	}

	snr := cfg.SNR
	if snr == nil {
		if cfg.Normalise {
			snr = window.EstimateSNR()
		} else {
			snr = make([]float64, window.Stations())
			for i := range snr {
				snr[i] = 1
			}
		}
	}
	var snrMean float64
	for _, v := range snr {
		snrMean += v
	}
	snrMean /= float64(len(snr))

	pairs := make([]pairShift, 0, window.Stations()*(window.Stations()-1)/2)
	for i := 0; i < window.Stations(); i++ {
		for j := i + 1; j < window.Stations(); j++ {
			cc := crossCorrelate(normalized[i], normalized[j])
			n := len(normalized[i])

			// Lags beyond the pair's direct travel time cannot be
			// produced by a common source; restrict the search.
			lagLim := math.Ceil(fields.Matrix[i][j] / cfg.V)
			best := math.Inf(-1)
			tMax := 0.0
			for k, c := range cc {
				lag := float64(k-(n-1)) * dt
				if math.Abs(lag) > lagLim {
					continue
				}
				if c > best {
					best = c
					tMax = lag
				}
			}

			weight := 1.0
			if cfg.Normalise && snrMean > 0 {
				weight = ((snr[i] + snr[j]) / 2) / snrMean
			}

			tPair := fields.Matrix[i][j] / cfg.V
			if tPair <= 0 {
				// Co-located stations constrain nothing.
				continue
			}
			pairs = append(pairs, pairShift{i: i, j: j, tMax: tMax, tPair: tPair, weight: weight})
		}
	}
	if len(pairs) == 0 {
		return nil, &UnderdeterminedError{Usable: 0, Required: 1, Reason: "no usable station pairs for migration"}
	}

	out := ref.Clone()
	out.Fill(math.NaN())

	forEachRowParallel(ref.Rows, cfg.Workers, func(row int) {
		for col := 0; col < ref.Cols; col++ {
			v := cfg.V
			if cfg.VelocityField != nil {
				if cell := cfg.VelocityField.At(row, col); cell > 0 {
					v = cell
				}
			}

			sum := 0.0
			valid := true
			for _, p := range pairs {
				di := grids[p.i].At(row, col)
				dj := grids[p.j].At(row, col)
				if math.IsNaN(di) || math.IsNaN(dj) {
					valid = false
					break
				}
				lagModel := (di - dj) / v
				z := (lagModel - p.tMax) / p.tPair
				sum += math.Exp(-0.5*z*z) * p.weight
			}
			if valid {
				out.Set(row, col, sum/float64(len(pairs)))
			}
		}
	})

	return &QualitySurface{Grid: out, Polarity: HigherIsBetter}, nil
}
