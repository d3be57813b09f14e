package core

import "math"

// referenceDistance is the near-field clamp (meters) for the geometric
// spreading term. Below it the power law is held at its reference value so
// the model stays defined at the source itself; the anelastic term keeps
// the full model strictly decreasing everywhere.
const referenceDistance = 1.0

// defaultSpreading is the surface-wave geometric spreading exponent
// (amplitude ~ 1/sqrt(distance)).
const defaultSpreading = 0.5

// AttenuationParams describe how seismic amplitude decays with propagation
// distance: a power-law geometric spreading term and an exponential
// anelastic term controlled by frequency, ground quality factor and wave
// velocity.
type AttenuationParams struct {
	// V is the seismic wave velocity in m/s.
	V float64
	// Q is the dimensionless ground quality factor.
	Q float64
	// F is the frequency (Hz) for which attenuation is modeled.
	F float64
	// A0 is the source amplitude.
	A0 float64
	// Spreading is the geometric spreading exponent; zero selects the
	// surface-wave default of 0.5.
	Spreading float64
}

// Validate rejects non-physical parameter values.
func (p AttenuationParams) Validate() error {
	switch {
	case p.V <= 0:
		return &ConfigurationError{Param: "v", Reason: "wave velocity must be positive"}
	case p.Q <= 0:
		return &ConfigurationError{Param: "q", Reason: "quality factor must be positive"}
	case p.F <= 0:
		return &ConfigurationError{Param: "f", Reason: "frequency must be positive"}
	case p.Spreading < 0:
		return &ConfigurationError{Param: "spreading", Reason: "spreading exponent must not be negative"}
	case p.A0 < 0:
		return &ConfigurationError{Param: "a0", Reason: "source amplitude must not be negative"}
	}
	return nil
}

func (p AttenuationParams) spreading() float64 {
	if p.Spreading == 0 {
		return defaultSpreading
	}
	return p.Spreading
}

// decay returns the unit-amplitude attenuation factor at distance d, i.e.
// the predicted amplitude for a source of amplitude 1. It equals 1 at
// distance 0 and strictly decreases with d.
func (p AttenuationParams) decay(d float64) float64 {
	if d < 0 {
		d = 0
	}
	ref := math.Max(d, referenceDistance)
	return math.Pow(ref, -p.spreading()) * math.Exp(-(math.Pi*p.F*d)/(p.Q*p.V))
}

// AmplitudeAt forward-models the expected amplitude at the given propagation
// distance (meters).
func (p AttenuationParams) AmplitudeAt(d float64) float64 {
	return p.A0 * p.decay(d)
}

// FitSourceAmplitude solves the weighted least-squares problem for the
// source amplitude that best explains the observed per-station amplitudes
// at the given distances. The fit is closed form because the model is
// linear in a0. It returns the fitted a0 and the minimized weighted
// residual sum of squares.
//
// weights may be nil for a uniform fit; otherwise it must match the other
// slices in length.
func FitSourceAmplitude(distances, amplitudes, weights []float64, p AttenuationParams) (a0, rss float64, err error) {
	if len(distances) != len(amplitudes) {
		return 0, 0, &ConfigurationError{Param: "amplitudes", Reason: "length does not match distances"}
	}
	if weights != nil && len(weights) != len(distances) {
		return 0, 0, &ConfigurationError{Param: "weights", Reason: "length does not match distances"}
	}
	if len(distances) < 2 {
		return 0, 0, &UnderdeterminedError{Usable: len(distances), Required: 2, Reason: "amplitude fit needs at least two stations"}
	}
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}

	var num, den float64
	for i, d := range distances {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		g := p.decay(d)
		num += w * amplitudes[i] * g
		den += w * g * g
	}
	if den == 0 {
		return 0, 0, &UnderdeterminedError{Usable: 0, Required: 2, Reason: "attenuation factors vanish at all stations"}
	}
	a0 = num / den

	for i, d := range distances {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		r := amplitudes[i] - a0*p.decay(d)
		rss += w * r * r
	}
	return a0, rss, nil
}
