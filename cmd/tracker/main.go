// Command tracker runs the full localization pipeline end to end: it
// builds (or loads) a scenario, computes the distance fields, synthesizes a
// moving seismic source, tracks it across sliding windows, and prints the
// resulting trajectory.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.opentelemetry.io/otel/attribute"

	"github.com/n1az/pyseis/core"
	"github.com/n1az/pyseis/internal/config"
	"github.com/n1az/pyseis/internal/logging"
	"github.com/n1az/pyseis/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML runtime configuration file")
	scenarioPath := flag.String("scenario", "", "path to a JSON scenario file; omit for the built-in demo scenario")
	steps := flag.Int("steps", 8, "number of waypoints for the synthetic moving source")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, log = logging.WithRunLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	var collector *observability.CoreCollector
	if cfg.Metrics.Enabled {
		collector, err = observability.NewCoreCollector(nil)
		if err != nil {
			log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		go func() {
			log.Info(ctx, "serving metrics", logging.String("listen", cfg.Metrics.Listen))
			if err := http.ListenAndServe(cfg.Metrics.Listen, collector.Handler()); err != nil {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
	}

	if err := run(ctx, cfg, collector, log, *scenarioPath, *steps); err != nil {
		log.Error(ctx, "run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, collector *observability.CoreCollector, log logging.Logger, scenarioPath string, steps int) error {
	scenario, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}
	log.Info(ctx, "scenario ready",
		logging.Int("stations", scenario.Stations.Len()),
		logging.Int("rows", scenario.Terrain.Elevation.Rows),
		logging.Int("cols", scenario.Terrain.Elevation.Cols),
	)

	opts := core.DistanceOptions{
		Topography: cfg.Run.Topography,
		Maps:       true,
		Matrix:     true,
		Workers:    cfg.Run.Workers,
	}
	if collector != nil {
		opts.Metrics = collector
	}
	_, distSpan := observability.StartSpan(ctx, "distance.compute",
		attribute.Int("stations", scenario.Stations.Len()),
		attribute.Bool("topography", cfg.Run.Topography),
	)
	fields, err := core.ComputeDistance(scenario.Terrain, scenario.Stations, opts)
	if err != nil {
		distSpan.RecordError(err)
		distSpan.End()
		return fmt.Errorf("compute distance fields: %w", err)
	}
	distSpan.SetAttributes(attribute.Int("fields", len(fields.Fields)))
	distSpan.End()
	log.Info(ctx, "distance fields computed", logging.Int("fields", len(fields.Fields)))

	// Synthetic source drifting diagonally across the study area.
	ext := scenario.Terrain.Extent()
	path := make([][2]float64, steps)
	for i := range path {
		frac := 0.25 + 0.5*float64(i)/float64(max(steps-1, 1))
		path[i] = [2]float64{
			ext.XMin + frac*(ext.XMax-ext.XMin),
			ext.YMin + frac*(ext.YMax-ext.YMin),
		}
	}
	series, err := core.SyntheticMovingSource(scenario.Stations, scenario.Attenuation, path, cfg.Run.Window, cfg.Run.DT)
	if err != nil {
		return fmt.Errorf("synthesize source: %w", err)
	}

	strategy := core.StrategyAmplitude
	if cfg.Run.Strategy == "migrate" {
		strategy = core.StrategyMigrate
	}
	trackCfg := core.TrackConfig{
		Window:   cfg.Run.Window,
		Overlap:  cfg.Run.Overlap,
		DT:       cfg.Run.DT,
		QT:       cfg.Run.QT,
		Strategy: strategy,
		Clip:     cfg.Run.Clip,
		PadLast:  cfg.Run.PadLast,
		Amplitude: core.AmplitudeConfig{
			Params:  scenario.Attenuation,
			Workers: cfg.Run.Workers,
		},
		Migrate: core.MigrateConfig{
			V:         scenario.Attenuation.V,
			DT:        cfg.Run.DT,
			Normalise: true,
			Workers:   cfg.Run.Workers,
		},
	}
	if collector != nil {
		trackCfg.Metrics = collector
	}

	tracker, err := core.NewTracker(fields, trackCfg)
	if err != nil {
		return err
	}

	runCtx, runSpan := observability.StartSpan(ctx, "tracker.run",
		attribute.String("strategy", strategy.String()),
		attribute.Int("stations", scenario.Stations.Len()),
	)
	trajectory, err := tracker.Run(runCtx, series)
	if err != nil {
		runSpan.RecordError(err)
		if trajectory == nil {
			runSpan.End()
			return err
		}
		// A cancelled run still carries the completed windows.
		log.Warn(ctx, "tracking ended early",
			logging.String("error", err.Error()),
			logging.Int("windows", trajectory.Windows),
		)
	}
	runSpan.SetAttributes(
		attribute.Int("windows", trajectory.Windows),
		attribute.Int("gaps", trajectory.Gaps),
	)
	runSpan.End()
	if collector != nil {
		collector.SetTrajectoryLength(len(trajectory.Estimates))
	}
	log.Info(ctx, "tracking complete",
		logging.String("trajectory_run", trajectory.RunID),
		logging.Int("windows", trajectory.Windows),
		logging.Int("gaps", trajectory.Gaps),
	)

	renderTrajectory(trajectory)
	return nil
}

func loadScenario(path string) (*core.Scenario, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open scenario %q: %w", path, err)
		}
		defer f.Close()
		return core.LoadScenario(f)
	}

	// Built-in demo: three stations around a flat 100x100 m study area.
	terrain, err := core.FlatTerrain(100, 100, 0)
	if err != nil {
		return nil, err
	}
	stations, err := core.NewStationSet(
		core.Station{ID: "ST01", X: 25, Y: 25},
		core.Station{ID: "ST02", X: 75, Y: 75},
		core.Station{ID: "ST03", X: 50, Y: 90},
	)
	if err != nil {
		return nil, err
	}
	return &core.Scenario{
		Terrain:     terrain,
		Stations:    stations,
		Attenuation: core.AttenuationParams{V: 500, Q: 50, F: 10, A0: 100},
	}, nil
}

func renderTrajectory(trajectory *core.Trajectory) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Time [s]", "X", "Y", "Quality", "Ties", "Gap"})
	for i, e := range trajectory.Estimates {
		if e.Gap {
			t.AppendRow(table.Row{i, fmt.Sprintf("%.2f", e.Time), "-", "-", fmt.Sprintf("%.4f", e.Quality), "-", "yes"})
			continue
		}
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.2f", e.Time),
			fmt.Sprintf("%.1f", e.X),
			fmt.Sprintf("%.1f", e.Y),
			fmt.Sprintf("%.4f", e.Quality),
			len(e.Ties),
			"",
		})
	}
	t.Render()
}
