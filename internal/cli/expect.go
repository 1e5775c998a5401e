// SPDX-License-Identifier: MIT

package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/ctmctree/likelihood"
)

// expectOutput is the JSON document printed by expect.
type expectOutput struct {
	RunID string `json:"run_id"`
	likelihood.ExpectationResult
}

func newExpectCmd(root *rootFlags) *cobra.Command {
	var (
		mf modelFlags
		ef engineFlags
	)
	cmd := &cobra.Command{
		Use:   "expect",
		Short: "Print expected labeled transition counts per site and edge",
		Long: `Expect reads a model whose processes carry an "expect" weight for every
transition and prints, for each site and edge, the conditional expectation of
the weighted number of transitions along the edge, plus the site-weighted
total per edge.`,
		Example: `  ctmctree expect -m labeled.yaml --workers 4`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			res, err := likelihood.ExpectationsModel(cmd.Context(), m, append(cfg.Options(), likelihood.WithLogger(logger))...)
			if err != nil {
				logger.Debug("expectations failed", "kind", likelihood.ErrorKind(err))
				return err
			}
			logger.Info("expectations computed", "sites", len(m.IIDObservations)-len(res.Skipped), "edges", len(res.Edges))

			return writeJSON(cmd.OutOrStdout(), expectOutput{RunID: runID, ExpectationResult: res})
		},
	}
	mf.register(cmd)
	ef.register(cmd)
	cmd.Flags().IntVar(&ef.workers, "workers", 0, "concurrent site workers (0 = GOMAXPROCS)")

	return cmd
}
