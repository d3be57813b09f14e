package core

import "math"

// ClipOptions govern how a quality surface is clipped before peak
// extraction.
type ClipOptions struct {
	// Quantile in (0, 1] of the goodness ordering below which cells are
	// replaced. Clipping at q leaves at least the best (1-q) fraction of
	// valid cells untouched.
	Quantile float64
	// Replace is the value written into clipped cells. NaN (the no-data
	// sentinel) when left as the zero value is expressed by ReplaceNaN.
	Replace float64
	// ReplaceNaN writes the no-data sentinel instead of Replace.
	ReplaceNaN bool
	// Normalise rescales the surviving finite cells into [0, 1].
	Normalise bool
}

// Clip suppresses the sub-optimal part of a quality surface so secondary
// maxima and background noise do not distract peak extraction. The input
// surface is not modified; the result keeps its grid geometry, polarity and
// any pre-existing no-data cells.
func Clip(s *QualitySurface, opts ClipOptions) (*QualitySurface, error) {
	if s == nil || s.Grid == nil {
		return nil, &ConfigurationError{Param: "surface", Reason: "surface is nil"}
	}
	if opts.Quantile <= 0 || opts.Quantile > 1 {
		return nil, &ConfigurationError{Param: "quantile", Reason: "must be in (0, 1]"}
	}

	threshold, err := s.qualityQuantile(opts.Quantile)
	if err != nil {
		return nil, err
	}

	replace := opts.Replace
	if opts.ReplaceNaN {
		replace = math.NaN()
	}

	out := s.Grid.Clone()
	for i, v := range out.Values {
		if math.IsNaN(v) {
			continue
		}
		if s.better(threshold, v) {
			out.Values[i] = replace
		}
	}
	if opts.Normalise {
		out.normalizeInPlace()
	}
	return &QualitySurface{Grid: out, Polarity: s.Polarity}, nil
}
