package core

import (
	"errors"
	"math"
	"testing"
)

func testParams() AttenuationParams {
	return AttenuationParams{V: 500, Q: 50, F: 10, A0: 100}
}

func TestAmplitudeAtSourceEqualsA0(t *testing.T) {
	p := testParams()
	if got := p.AmplitudeAt(0); got != p.A0 {
		t.Fatalf("AmplitudeAt(0) = %v, want %v", got, p.A0)
	}
}

func TestAmplitudeStrictlyDecreasing(t *testing.T) {
	p := testParams()
	distances := []float64{0, 0.25, 0.5, 1, 2, 5, 10, 50, 100, 1000}
	prev := math.Inf(1)
	for _, d := range distances {
		a := p.AmplitudeAt(d)
		if a >= prev {
			t.Fatalf("amplitude at %v m is %v, not below %v", d, a, prev)
		}
		if a <= 0 {
			t.Fatalf("amplitude at %v m is %v, want positive", d, a)
		}
		prev = a
	}
}

func TestAttenuationValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AttenuationParams)
		param  string
	}{
		{"zero velocity", func(p *AttenuationParams) { p.V = 0 }, "v"},
		{"negative quality", func(p *AttenuationParams) { p.Q = -1 }, "q"},
		{"zero frequency", func(p *AttenuationParams) { p.F = 0 }, "f"},
		{"negative spreading", func(p *AttenuationParams) { p.Spreading = -0.5 }, "spreading"},
		{"negative amplitude", func(p *AttenuationParams) { p.A0 = -1 }, "a0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			tc.mutate(&p)
			err := p.Validate()
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
			if cfgErr.Param != tc.param {
				t.Fatalf("error names param %q, want %q", cfgErr.Param, tc.param)
			}
		})
	}
	if err := testParams().Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
}

func TestFitSourceAmplitudeRecoversExactModel(t *testing.T) {
	p := testParams()
	distances := []float64{12, 27, 41, 63}
	amplitudes := make([]float64, len(distances))
	for i, d := range distances {
		amplitudes[i] = p.AmplitudeAt(d)
	}

	a0, rss, err := FitSourceAmplitude(distances, amplitudes, nil, p)
	if err != nil {
		t.Fatalf("FitSourceAmplitude: %v", err)
	}
	if math.Abs(a0-p.A0) > 1e-9*p.A0 {
		t.Fatalf("fitted a0 = %v, want %v", a0, p.A0)
	}
	if rss > 1e-12 {
		t.Fatalf("residual of an exact model = %v, want ~0", rss)
	}
}

func TestFitSourceAmplitudeWeightsSuppressOutliers(t *testing.T) {
	p := testParams()
	distances := []float64{10, 25, 40}
	amplitudes := []float64{p.AmplitudeAt(10), p.AmplitudeAt(25), 9999}
	weights := []float64{1, 1, 0}

	a0, rss, err := FitSourceAmplitude(distances, amplitudes, weights, p)
	if err != nil {
		t.Fatalf("FitSourceAmplitude: %v", err)
	}
	if math.Abs(a0-p.A0) > 1e-9*p.A0 {
		t.Fatalf("zero-weighted outlier moved the fit: a0 = %v, want %v", a0, p.A0)
	}
	if rss > 1e-12 {
		t.Fatalf("weighted residual = %v, want ~0", rss)
	}
}

func TestFitSourceAmplitudeErrors(t *testing.T) {
	p := testParams()

	_, _, err := FitSourceAmplitude([]float64{10}, []float64{5}, nil, p)
	var under *UnderdeterminedError
	if !errors.As(err, &under) {
		t.Fatalf("single station should be underdetermined, got %v", err)
	}

	var cfgErr *ConfigurationError
	_, _, err = FitSourceAmplitude([]float64{10, 20}, []float64{5}, nil, p)
	if !errors.As(err, &cfgErr) {
		t.Fatalf("length mismatch should yield ConfigurationError, got %v", err)
	}
	_, _, err = FitSourceAmplitude([]float64{10, 20}, []float64{5, 3}, []float64{1}, p)
	if !errors.As(err, &cfgErr) {
		t.Fatalf("weight length mismatch should yield ConfigurationError, got %v", err)
	}

	bad := p
	bad.Q = 0
	_, _, err = FitSourceAmplitude([]float64{10, 20}, []float64{5, 3}, nil, bad)
	if !errors.As(err, &cfgErr) {
		t.Fatalf("invalid params should yield ConfigurationError, got %v", err)
	}
}
