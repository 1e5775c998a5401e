// SPDX-License-Identifier: MIT

package cli

import (
	"math"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/ctmctree/likelihood"
)

// marginalsOutput is the JSON document printed by marginals. Posterior[v][s]
// is the probability that node v is in States[s].
type marginalsOutput struct {
	RunID           string      `json:"run_id"`
	Site            int         `json:"site"`
	LogLikelihood   float64     `json:"log_likelihood"`
	States          [][]int     `json:"states"`
	Posterior       [][]float64 `json:"posterior"`
	EdgeDerivatives []float64   `json:"edge_derivatives"`
}

func newMarginalsCmd(root *rootFlags) *cobra.Command {
	var (
		mf   modelFlags
		ef   engineFlags
		site int
	)
	cmd := &cobra.Command{
		Use:   "marginals",
		Short: "Print per-node posterior state distributions for one site",
		Long: `Marginals runs the upward and downward passes for a single site and prints
the posterior state distribution of every node together with the log-scale
derivative of every edge.`,
		Example: `  ctmctree marginals -m model.yaml --site 3`,
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
			in, err := likelihood.Build(m, cfg.FullStateSpace)
			if err != nil {
				return err
			}
			out, err := likelihood.Marginals(cmd.Context(), in, site,
				likelihood.WithLogger(logger),
				likelihood.WithTransitionOptions(cfg.TransitionOptions()...),
			)
			if err != nil {
				return err
			}

			states := make([][]int, in.Space.Size())
			for i := range states {
				states[i] = in.Space.State(i)
			}

			return writeJSON(cmd.OutOrStdout(), marginalsOutput{
				RunID:           runID,
				Site:            site,
				LogLikelihood:   math.Log(out.Likelihood),
				States:          states,
				Posterior:       out.Posterior,
				EdgeDerivatives: out.EdgeDerivatives,
			})
		},
	}
	mf.register(cmd)
	ef.register(cmd)
	cmd.Flags().IntVar(&site, "site", 0, "site index")

	return cmd
}
