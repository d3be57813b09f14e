package core

import "math"

// SignalWindow is a fixed-length slice of multi-station samples plus its
// sampling period. Windows are ephemeral: the tracker creates one per step
// and drops it after producing an estimate.
type SignalWindow struct {
	// Samples holds one trace per station, all of equal length, ordered
	// like the StationSet the distance fields were built from.
	Samples [][]float64
	// DT is the sampling period in seconds.
	DT float64
	// SNR optionally holds per-station signal-to-noise ratios used to
	// down-weight noisy stations. Nil means "estimate from the traces".
	SNR []float64
	// Coupling optionally holds per-station ground-coupling factors that
	// scale observed amplitudes. Nil means unit coupling.
	Coupling []float64
}

// Validate checks the window's internal consistency.
func (w *SignalWindow) Validate() error {
	if w == nil || len(w.Samples) == 0 {
		return &ConfigurationError{Param: "window", Reason: "no traces"}
	}
	n := len(w.Samples[0])
	if n == 0 {
		return &ConfigurationError{Param: "window", Reason: "empty traces"}
	}
	for _, trace := range w.Samples {
		if len(trace) != n {
			return &ConfigurationError{Param: "window", Reason: "traces differ in length"}
		}
	}
	if w.DT <= 0 {
		return &ConfigurationError{Param: "dt", Reason: "sampling period must be positive"}
	}
	if w.SNR != nil && len(w.SNR) != len(w.Samples) {
		return &ConfigurationError{Param: "snr", Reason: "length does not match trace count"}
	}
	if w.Coupling != nil && len(w.Coupling) != len(w.Samples) {
		return &ConfigurationError{Param: "coupling", Reason: "length does not match trace count"}
	}
	return nil
}

// Stations returns the number of traces in the window.
func (w *SignalWindow) Stations() int { return len(w.Samples) }

// Len returns the number of samples per trace.
func (w *SignalWindow) Len() int {
	if len(w.Samples) == 0 {
		return 0
	}
	return len(w.Samples[0])
}

// PeakAmplitudes returns the maximum sample of each trace, divided by the
// station's coupling factor when coupling is present.
func (w *SignalWindow) PeakAmplitudes() []float64 {
	peaks := make([]float64, len(w.Samples))
	for i, trace := range w.Samples {
		peak := math.Inf(-1)
		for _, v := range trace {
			if v > peak {
				peak = v
			}
		}
		if w.Coupling != nil && w.Coupling[i] != 0 {
			peak /= w.Coupling[i]
		}
		peaks[i] = peak
	}
	return peaks
}

// EstimateSNR derives a crude per-trace signal-to-noise ratio as the ratio
// of the trace maximum to its mean, matching how migration normalizes
// stations when no measured SNR is supplied.
func (w *SignalWindow) EstimateSNR() []float64 {
	snr := make([]float64, len(w.Samples))
	for i, trace := range w.Samples {
		peak := math.Inf(-1)
		sum := 0.0
		for _, v := range trace {
			if v > peak {
				peak = v
			}
			sum += v
		}
		mean := sum / float64(len(trace))
		if mean == 0 {
			snr[i] = 1
		} else {
			snr[i] = peak / mean
		}
	}
	return snr
}

// minMaxNormalize rescales a trace into [0, 1]. A constant trace maps to
// all zeros.
func minMaxNormalize(trace []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range trace {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(trace))
	if hi == lo {
		return out
	}
	span := hi - lo
	for i, v := range trace {
		out[i] = (v - lo) / span
	}
	return out
}

// crossCorrelate computes the full discrete cross-correlation of a against
// b. The result has length 2n-1; index k corresponds to lag k-(n-1)
// samples, so a positive best lag means a arrives later than b.
func crossCorrelate(a, b []float64) []float64 {
	n := len(a)
	out := make([]float64, 2*n-1)
	for k := range out {
		lag := k - (n - 1)
		var sum float64
		for i := 0; i < n; i++ {
			j := i - lag
			if j < 0 || j >= n {
				continue
			}
			sum += a[i] * b[j]
		}
		out[k] = sum
	}
	return out
}
