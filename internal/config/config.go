// Package config loads the tracker's runtime configuration from TOML.
// Scenario geometry (stations, terrain, physics) lives in the JSON scenario
// handled by the core; this file only covers how a run executes.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Run contains sliding-window tracking parameters.
type Run struct {
	Window     int     `toml:"window"`
	Overlap    float64 `toml:"overlap"`
	DT         float64 `toml:"dt"`
	QT         float64 `toml:"qt"`
	Strategy   string  `toml:"strategy"` // amplitude | migrate
	Clip       bool    `toml:"clip"`
	PadLast    bool    `toml:"pad_last"`
	Topography bool    `toml:"topography"`
	Workers    int     `toml:"workers"`
}

// Log contains structured-logging options.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics contains the Prometheus endpoint options.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Config is the root of the tracker TOML file.
type Config struct {
	Run     Run     `toml:"run"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Run: Run{
			Window:   250,
			Overlap:  0.5,
			DT:       0.01,
			QT:       0.99,
			Strategy: "amplitude",
			Clip:     true,
		},
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Listen: ":9464"},
	}
}

// Load reads and validates a TOML configuration file, layering it over the
// defaults so partial files work.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the core would refuse anyway, with file-oriented
// messages.
func (c Config) Validate() error {
	if c.Run.Window < 2 {
		return fmt.Errorf("run.window must be at least 2, got %d", c.Run.Window)
	}
	if c.Run.Overlap < 0 || c.Run.Overlap >= 1 {
		return fmt.Errorf("run.overlap must be in [0, 1), got %g", c.Run.Overlap)
	}
	if c.Run.DT <= 0 {
		return fmt.Errorf("run.dt must be positive, got %g", c.Run.DT)
	}
	if c.Run.QT < 0 || c.Run.QT > 1 {
		return fmt.Errorf("run.qt must be in [0, 1], got %g", c.Run.QT)
	}
	switch c.Run.Strategy {
	case "amplitude", "migrate":
	default:
		return fmt.Errorf("run.strategy must be amplitude or migrate, got %q", c.Run.Strategy)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled is true")
	}
	return nil
}
