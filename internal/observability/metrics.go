package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CoreCollector bundles Prometheus metrics for the localization core and
// implements the core's recorder interfaces (core.DistanceRecorder and
// core.TrackerMetrics), so the compute packages stay free of any
// Prometheus dependency.
type CoreCollector struct {
	gatherer prometheus.Gatherer

	FieldBuilds        *prometheus.CounterVec
	FieldBuildDuration prometheus.Histogram

	WindowsProcessed *prometheus.CounterVec
	WindowDuration   *prometheus.HistogramVec
	TrajectoryGaps   prometheus.Counter
	TrajectoryLength prometheus.Gauge
}

// NewCoreCollector registers the core metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCoreCollector(reg prometheus.Registerer) (*CoreCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distance_field_builds_total",
		Help: "Distance fields computed, labeled by station.",
	}, []string{"station"})
	builds, err := registerCounterVec(reg, builds, "distance_field_builds_total")
	if err != nil {
		return nil, err
	}

	buildDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "distance_field_build_duration_seconds",
		Help:    "Wall time of a single per-station distance field solve.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}), "distance_field_build_duration_seconds")
	if err != nil {
		return nil, err
	}

	windows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_windows_total",
		Help: "Tracker windows localized, labeled by strategy.",
	}, []string{"strategy"})
	windows, err = registerCounterVec(reg, windows, "tracker_windows_total")
	if err != nil {
		return nil, err
	}

	windowDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_window_duration_seconds",
		Help:    "Wall time of a single window localization, labeled by strategy.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"strategy"})
	windowDuration, err = registerHistogramVec(reg, windowDuration, "tracker_window_duration_seconds")
	if err != nil {
		return nil, err
	}

	gaps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_gaps_total",
		Help: "Windows recorded as low-confidence gaps.",
	}), "tracker_gaps_total")
	if err != nil {
		return nil, err
	}

	length, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trajectory_length",
		Help: "Number of estimates in the most recent trajectory.",
	}), "trajectory_length")
	if err != nil {
		return nil, err
	}

	return &CoreCollector{
		gatherer:           gatherer,
		FieldBuilds:        builds,
		FieldBuildDuration: buildDuration,
		WindowsProcessed:   windows,
		WindowDuration:     windowDuration,
		TrajectoryGaps:     gaps,
		TrajectoryLength:   length,
	}, nil
}

// ObserveFieldBuild satisfies core.DistanceRecorder.
func (c *CoreCollector) ObserveFieldBuild(stationID string, seconds float64) {
	if c == nil {
		return
	}
	if c.FieldBuilds != nil {
		c.FieldBuilds.WithLabelValues(stationID).Inc()
	}
	if c.FieldBuildDuration != nil {
		c.FieldBuildDuration.Observe(seconds)
	}
}

// ObserveWindow satisfies core.TrackerMetrics.
func (c *CoreCollector) ObserveWindow(strategy string, seconds float64) {
	if c == nil {
		return
	}
	if c.WindowsProcessed != nil {
		c.WindowsProcessed.WithLabelValues(strategy).Inc()
	}
	if c.WindowDuration != nil {
		c.WindowDuration.WithLabelValues(strategy).Observe(seconds)
	}
}

// RecordEstimate satisfies core.TrackerMetrics.
func (c *CoreCollector) RecordEstimate(gap bool) {
	if c == nil {
		return
	}
	if gap && c.TrajectoryGaps != nil {
		c.TrajectoryGaps.Inc()
	}
}

// SetTrajectoryLength updates the trajectory length gauge after a run.
func (c *CoreCollector) SetTrajectoryLength(n int) {
	if c == nil || c.TrajectoryLength == nil {
		return
	}
	c.TrajectoryLength.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *CoreCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
