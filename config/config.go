// SPDX-License-Identifier: MIT

// Package config loads engine settings from a TOML file and maps them onto
// likelihood options.
//
// Example file:
//
//	workers = 4
//	full_state_space = false
//	site_loglikelihoods = true
//
//	[transition]
//	condition_threshold = 1e6
//	imag_tolerance = 1e-10
//	force_pade = false
//
//	[log]
//	level = "debug"
//
//	[metrics]
//	textfile = "ctmctree.prom"
//
// Zero values mean "use the library default".
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/katalvlaran/ctmctree/likelihood"
	"github.com/katalvlaran/ctmctree/transition"
)

// ErrInvalidConfig is returned for unreadable files, unknown keys and
// out-of-range values.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config mirrors the TOML file.
type Config struct {
	Workers            int        `toml:"workers"`
	FullStateSpace     bool       `toml:"full_state_space"`
	SiteLogLikelihoods bool       `toml:"site_loglikelihoods"`
	Transition         Transition `toml:"transition"`
	Log                Log        `toml:"log"`
	Metrics            Metrics    `toml:"metrics"`
}

// Transition configures the operator cache.
type Transition struct {
	ConditionThreshold float64 `toml:"condition_threshold"`
	ImagTolerance      float64 `toml:"imag_tolerance"`
	ForcePade          bool    `toml:"force_pade"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `toml:"level"`
}

// Metrics configures metric export.
type Metrics struct {
	// Textfile, when set, receives the Prometheus text exposition after
	// each run.
	Textfile string `toml:"textfile"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Log: Log{Level: "info"}}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %v: %w", path, err, ErrInvalidConfig)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown keys %v: %w", path, undecoded, ErrInvalidConfig)
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("config: workers %d: %w", c.Workers, ErrInvalidConfig)
	}
	if t := c.Transition.ConditionThreshold; t != 0 && (math.IsNaN(t) || math.IsInf(t, 0) || t < 1) {
		return fmt.Errorf("config: transition.condition_threshold %v: %w", t, ErrInvalidConfig)
	}
	if t := c.Transition.ImagTolerance; math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("config: transition.imag_tolerance %v: %w", t, ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level parses Log.Level; empty means info.
func (c Config) Level() (log.Level, error) {
	if c.Log.Level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("config: log.level %q: %w", c.Log.Level, ErrInvalidConfig)
	}

	return lvl, nil
}

// Options maps the configuration onto likelihood options. It assumes
// Validate passed.
func (c Config) Options() []likelihood.Option {
	opts := []likelihood.Option{likelihood.WithWorkers(c.Workers)}
	if c.FullStateSpace {
		opts = append(opts, likelihood.WithFullStateSpace())
	}
	if c.SiteLogLikelihoods {
		opts = append(opts, likelihood.WithSiteLogLikelihoods())
	}
	if tops := c.TransitionOptions(); len(tops) > 0 {
		opts = append(opts, likelihood.WithTransitionOptions(tops...))
	}

	return opts
}

// TransitionOptions maps the [transition] table onto operator cache
// options; zero values are left to the cache defaults.
func (c Config) TransitionOptions() []transition.Option {
	var tops []transition.Option
	if c.Transition.ConditionThreshold != 0 {
		tops = append(tops, transition.WithConditionThreshold(c.Transition.ConditionThreshold))
	}
	if c.Transition.ImagTolerance != 0 {
		tops = append(tops, transition.WithImagTolerance(c.Transition.ImagTolerance))
	}
	if c.Transition.ForcePade {
		tops = append(tops, transition.WithForcePade())
	}

	return tops
}
