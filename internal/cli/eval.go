// SPDX-License-Identifier: MIT

package cli

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/ctmctree/likelihood"
)

// evalOutput is the JSON document printed by eval.
type evalOutput struct {
	RunID string `json:"run_id"`
	likelihood.Result
}

func newEvalCmd(root *rootFlags) *cobra.Command {
	var (
		mf modelFlags
		ef engineFlags
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compute the weighted log-likelihood and edge derivatives of a model",
		Long: `Evaluate reads a model, computes the weighted sum of per-site log-likelihoods
and the derivatives with respect to the log scale of each requested edge,
and prints them as JSON.`,
		Example: `  ctmctree eval -m model.yaml
  ctmctree eval -c engine.toml --per-site < model.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, root, &mf, &ef)
		},
	}
	mf.register(cmd)
	ef.register(cmd)
	ef.registerOutput(cmd)

	return cmd
}

func runEval(cmd *cobra.Command, root *rootFlags, mf *modelFlags, ef *engineFlags) error {
	cfg, err := ef.resolve(cmd)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger := commandLogger(cmd.Context(), cfg, root).With("run", runID)

	m, err := mf.load(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := append(cfg.Options(),
		likelihood.WithLogger(logger),
		likelihood.WithMetrics(likelihood.NewMetrics(reg)),
	)
	start := time.Now()
	res, err := likelihood.EvaluateModel(cmd.Context(), m, opts...)
	if werr := writeMetrics(cfg.Metrics.Textfile, reg, logger); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		logger.Debug("evaluation failed", "kind", likelihood.ErrorKind(err))
		return err
	}
	logger.Info("evaluated",
		"sites", len(m.IIDObservations)-len(res.Skipped),
		"loglik", res.LogLikelihood,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return writeJSON(cmd.OutOrStdout(), evalOutput{RunID: runID, Result: res})
}
