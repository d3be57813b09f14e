package core

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// Strategy selects which localization engine the tracker runs per window.
type Strategy int

const (
	// StrategyAmplitude fits the amplitude attenuation model per cell.
	StrategyAmplitude Strategy = iota
	// StrategyMigrate stacks cross-correlation coherence per cell.
	StrategyMigrate
)

func (s Strategy) String() string {
	if s == StrategyMigrate {
		return "migrate"
	}
	return "amplitude"
}

// TrackConfig parameterizes a sliding-window tracking run.
type TrackConfig struct {
	// Window is the window length in samples.
	Window int
	// Overlap is the fraction of a window shared with its successor,
	// in [0, 1). The stride is Window*(1-Overlap) samples.
	Overlap float64
	// DT is the sampling period in seconds.
	DT float64
	// QT is a fit-quality quantile in (0, 1]. A window whose best cell
	// does not rise above the QT quantile of its own surface is recorded
	// as a low-confidence gap instead of a location. Zero disables the
	// gate.
	QT float64
	// Strategy selects the localization engine.
	Strategy Strategy
	// Clip applies the surface postprocessor at QT before peak
	// extraction, suppressing secondary maxima.
	Clip bool
	// PadLast zero-pads a trailing partial window to full length and
	// processes it. When off, the remainder is discarded. The choice is
	// explicit so truncation never happens silently.
	PadLast bool
	// Amplitude configures StrategyAmplitude.
	Amplitude AmplitudeConfig
	// Migrate configures StrategyMigrate.
	Migrate MigrateConfig
	// Coupling optionally scales observed amplitudes per station.
	Coupling []float64
	// Metrics optionally receives per-window observations.
	Metrics TrackerMetrics
}

// TrackerMetrics receives tracking observations. Implemented by
// internal/observability; nil disables recording.
type TrackerMetrics interface {
	ObserveWindow(strategy string, seconds float64)
	RecordEstimate(gap bool)
}

// SourceEstimate is the per-window output of the tracker: a location, the
// quality value that produced it, and any equally optimal alternates.
type SourceEstimate struct {
	X, Y    float64
	Quality float64
	// Ties holds every optimal cell of the window's surface; the first
	// one populates X/Y.
	Ties []Peak
	// WindowStart is the index of the window's first sample in the
	// input series.
	WindowStart int
	// Time is the window start in seconds from the series start.
	Time float64
	// Gap marks a window whose estimate failed the quality gate. The
	// coordinates of a gap are meaningless.
	Gap bool
}

// Trajectory is the time-ordered result of a tracking run, append-only as
// windows complete.
type Trajectory struct {
	// RunID identifies the run in logs and exported diagnostics.
	RunID string
	// Estimates holds one entry per processed window, gaps included.
	Estimates []SourceEstimate
	// Windows is the number of processed windows.
	Windows int
	// Gaps is the number of low-confidence windows.
	Gaps int
}

// Tracker slides a window across a multi-station series and localizes each
// window against a fixed set of distance fields. Windows are independent;
// the tracker only keeps the growing trajectory, never the raw windows.
type Tracker struct {
	fields *DistanceSet
	cfg    TrackConfig
	stride int
}

// NewTracker validates the configuration against the distance set.
func NewTracker(fields *DistanceSet, cfg TrackConfig) (*Tracker, error) {
	if fields == nil || len(fields.Fields) == 0 {
		return nil, &ConfigurationError{Param: "fields", Reason: "distance fields are required"}
	}
	if cfg.Window < 2 {
		return nil, &ConfigurationError{Param: "window", Reason: "window must be at least 2 samples"}
	}
	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return nil, &ConfigurationError{Param: "overlap", Reason: "overlap must be in [0, 1)"}
	}
	if cfg.DT <= 0 {
		return nil, &ConfigurationError{Param: "dt", Reason: "sampling period must be positive"}
	}
	if cfg.QT < 0 || cfg.QT > 1 {
		return nil, &ConfigurationError{Param: "qt", Reason: "quality quantile must be 0 (disabled) or in (0, 1]"}
	}
	if cfg.Clip && cfg.QT == 0 {
		return nil, &ConfigurationError{Param: "qt", Reason: "clipping requires a quality quantile"}
	}
	if cfg.Strategy == StrategyMigrate && fields.Matrix == nil {
		return nil, &ConfigurationError{Param: "fields", Reason: "migration tracking requires the inter-station distance matrix"}
	}

	stride := int(math.Round(float64(cfg.Window) * (1 - cfg.Overlap)))
	if stride < 1 {
		stride = 1
	}
	return &Tracker{fields: fields, cfg: cfg, stride: stride}, nil
}

// Stride returns the window advance in samples.
func (t *Tracker) Stride() int { return t.stride }

// WindowCount returns how many windows a series of n samples yields under
// the tracker's configuration.
func (t *Tracker) WindowCount(n int) int { return len(t.windowStarts(n)) }

// Run slides the window across the series and returns the assembled
// trajectory. series holds one trace per station, ordered like the station
// set the distance fields were built from.
//
// Cancellation is cooperative at window granularity: when ctx is done the
// partial trajectory completed so far is returned together with ctx.Err(),
// so long runs never discard finished work.
func (t *Tracker) Run(ctx context.Context, series [][]float64) (*Trajectory, error) {
	if len(series) == 0 {
		return nil, &UnderdeterminedError{Usable: 0, Required: 2, Reason: "no traces"}
	}
	n := len(series[0])
	for _, trace := range series {
		if len(trace) != n {
			return nil, &ConfigurationError{Param: "series", Reason: "traces differ in length"}
		}
	}

	trajectory := &Trajectory{RunID: uuid.NewString()}
	for _, start := range t.windowStarts(n) {
		select {
		case <-ctx.Done():
			return trajectory, ctx.Err()
		default:
		}

		began := time.Now()
		estimate, err := t.step(series, start, n)
		if err != nil {
			return trajectory, err
		}
		if t.cfg.Metrics != nil {
			t.cfg.Metrics.ObserveWindow(t.cfg.Strategy.String(), time.Since(began).Seconds())
			t.cfg.Metrics.RecordEstimate(estimate.Gap)
		}

		trajectory.Estimates = append(trajectory.Estimates, estimate)
		trajectory.Windows++
		if estimate.Gap {
			trajectory.Gaps++
		}
	}
	return trajectory, nil
}

// windowStarts enumerates the start index of every window a series of n
// samples yields: all full windows at stride spacing, plus one trailing
// padded window when PadLast is on and the full windows leave an uncovered
// tail.
func (t *Tracker) windowStarts(n int) []int {
	var starts []int
	for start := 0; start+t.cfg.Window <= n; start += t.stride {
		starts = append(starts, start)
	}
	if t.cfg.PadLast {
		if len(starts) == 0 {
			if n > 0 {
				starts = append(starts, 0)
			}
		} else if last := starts[len(starts)-1]; last+t.cfg.Window < n {
			starts = append(starts, last+t.stride)
		}
	}
	return starts
}

// step extracts one window, localizes it, and reduces the surface to a
// source estimate.
func (t *Tracker) step(series [][]float64, start, n int) (SourceEstimate, error) {
	window := t.window(series, start, n)

	var surface *QualitySurface
	var err error
	switch t.cfg.Strategy {
	case StrategyMigrate:
		surface, err = LocateMigrate(window, t.fields, t.cfg.Migrate)
	default:
		surface, err = LocateAmplitude(window, t.fields, t.cfg.Amplitude)
	}
	if err != nil {
		return SourceEstimate{}, err
	}

	estimate := SourceEstimate{
		WindowStart: start,
		Time:        float64(start) * t.cfg.DT,
	}

	// The quality gate inspects the raw surface: a window whose best
	// cell does not strictly beat the QT quantile has no dominant mode,
	// and the trajectory records a gap rather than a bogus location. At
	// qt == 1 the threshold coincides with the optimum itself, so
	// equality passes there.
	if t.cfg.QT > 0 {
		threshold, qerr := surface.qualityQuantile(t.cfg.QT)
		if qerr != nil {
			return SourceEstimate{}, qerr
		}
		peaks, perr := Peaks(surface)
		if perr != nil {
			return SourceEstimate{}, perr
		}
		pass := surface.better(peaks[0].Value, threshold)
		if !pass && t.cfg.QT == 1 {
			pass = !surface.better(threshold, peaks[0].Value)
		}
		if !pass {
			estimate.Gap = true
			estimate.Quality = peaks[0].Value
			return estimate, nil
		}
	}

	if t.cfg.Clip {
		surface, err = Clip(surface, ClipOptions{Quantile: t.cfg.QT, ReplaceNaN: true, Normalise: true})
		if err != nil {
			return SourceEstimate{}, err
		}
	}

	peaks, err := Peaks(surface)
	if err != nil {
		return SourceEstimate{}, err
	}
	estimate.X = peaks[0].X
	estimate.Y = peaks[0].Y
	estimate.Quality = peaks[0].Value
	estimate.Ties = peaks
	return estimate, nil
}

// window slices (and when configured, zero-pads) one window out of the
// series without copying more than the window itself.
func (t *Tracker) window(series [][]float64, start, n int) *SignalWindow {
	samples := make([][]float64, len(series))
	end := start + t.cfg.Window
	for i, trace := range series {
		if end <= n {
			samples[i] = trace[start:end]
			continue
		}
		padded := make([]float64, t.cfg.Window)
		copy(padded, trace[start:])
		samples[i] = padded
	}
	return &SignalWindow{Samples: samples, DT: t.cfg.DT, Coupling: t.cfg.Coupling}
}
