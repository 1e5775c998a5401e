// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/ctmctree/config"
	"github.com/katalvlaran/ctmctree/model"
)

// modelFlags selects the model input.
type modelFlags struct {
	path   string
	format string
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "model", "m", "-", "model file (.json, .yaml, .toml); - reads stdin")
	cmd.Flags().StringVar(&f.format, "format", "", "model format, overriding the file extension (json, yaml, toml)")
}

// load decodes and validates the model. Stdin defaults to JSON.
func (f *modelFlags) load(cmd *cobra.Command) (*model.Model, error) {
	format := model.Format(f.format)
	if f.path == "-" {
		if format == "" {
			format = model.FormatJSON
		}
		return model.Decode(cmd.InOrStdin(), format)
	}
	if format == "" {
		return model.Load(f.path)
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	defer fh.Close()

	return model.Decode(fh, format)
}

// engineFlags override the config file. Only flags set on the command line
// take effect.
type engineFlags struct {
	config     string
	workers    int
	fullSpace  bool
	forcePade  bool
	perSite    bool
	metricsOut string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "engine configuration file (TOML)")
	cmd.Flags().BoolVar(&f.fullSpace, "full-state-space", false, "use the full Cartesian state space instead of the prior's feasible states")
	cmd.Flags().BoolVar(&f.forcePade, "force-pade", false, "skip the eigendecomposition and use Padé exponentials")
}

// registerOutput adds the flags that only affect likelihood evaluation.
func (f *engineFlags) registerOutput(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent site workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.perSite, "per-site", false, "include per-site log-likelihoods in the output")
	cmd.Flags().StringVar(&f.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")
}

// resolve loads the config file, if any, applies explicitly set flags and
// validates the result.
func (f *engineFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return config.Config{}, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("full-state-space") {
		cfg.FullStateSpace = f.fullSpace
	}
	if fl.Changed("force-pade") {
		cfg.Transition.ForcePade = f.forcePade
	}
	if fl.Changed("per-site") {
		cfg.SiteLogLikelihoods = f.perSite
	}
	if fl.Changed("metrics-out") {
		cfg.Metrics.Textfile = f.metricsOut
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// commandLogger returns the context logger, with the config file's level
// applied unless --verbose is set.
func commandLogger(ctx context.Context, cfg config.Config, root *rootFlags) *log.Logger {
	logger := loggerFromContext(ctx)
	if !root.verbose {
		if lvl, err := cfg.Level(); err == nil {
			logger.SetLevel(lvl)
		}
	}

	return logger
}

// writeJSON prints v as JSON, indented when w is a terminal.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

// writeMetrics writes the text exposition of g to path; an empty path is a
// no-op.
func writeMetrics(path string, g prometheus.Gatherer, logger *log.Logger) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	logger.Debug("metrics written", "path", path)

	return nil
}
