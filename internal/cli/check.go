// SPDX-License-Identifier: MIT

package cli

import (
	"github.com/spf13/cobra"

	"github.com/katalvlaran/ctmctree/likelihood"
)

// checkOutput summarizes a built model.
type checkOutput struct {
	States       int              `json:"states"`
	Nodes        int              `json:"nodes"`
	Edges        int              `json:"edges"`
	Root         int              `json:"root"`
	Sites        int              `json:"sites"`
	SkippedSites int              `json:"skipped_sites"`
	Processes    []processSummary `json:"processes"`
}

type processSummary struct {
	Transitions int    `json:"transitions"`
	Method      string `json:"method"`
	Edges       []int  `json:"edges"`
	Labeled     bool   `json:"labeled"`
}

func newCheckCmd(root *rootFlags) *cobra.Command {
	var (
		mf modelFlags
		ef engineFlags
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a model and compute its transition operators",
		Long: `Check validates a model, builds its state space, processes and tree, and
computes the transition operator of every edge without evaluating any site.
It prints a summary as JSON, including the exponential method chosen for
each process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ef.resolve(cmd)
			if err != nil {
				return err
			}
			logger := commandLogger(cmd.Context(), cfg, root)

			m, err := mf.load(cmd)
			if err != nil {
				return err
			}
			in, err := likelihood.Build(m, cfg.FullStateSpace)
			if err != nil {
				return err
			}

			cache, err := likelihood.Prepare(in,
				likelihood.WithLogger(logger),
				likelihood.WithTransitionOptions(cfg.TransitionOptions()...),
			)
			if err != nil {
				return err
			}
			out := checkOutput{
				States:    in.Space.Size(),
				Nodes:     in.Tree.NodeCount(),
				Edges:     in.Tree.EdgeCount(),
				Root:      in.Tree.Root(),
				Sites:     len(in.Observations),
				Processes: make([]processSummary, len(in.Processes)),
			}
			for _, w := range in.Weights {
				if w == 0 {
					out.SkippedSites++
				}
			}
			for k, b := range in.Branches {
				out.Processes[b.Process].Edges = append(out.Processes[b.Process].Edges, k)
			}
			for p, proc := range in.Processes {
				method, err := cache.Method(p)
				if err != nil {
					return err
				}
				out.Processes[p].Transitions = proc.Transitions()
				out.Processes[p].Method = method.String()
				out.Processes[p].Labeled = proc.Labeled() != nil
			}
			logger.Info("model ok", "states", out.States, "edges", out.Edges, "operators", cache.Computed())

			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	mf.register(cmd)
	ef.register(cmd)

	return cmd
}
