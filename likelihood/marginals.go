// SPDX-License-Identifier: MIT

package likelihood

import (
	"context"
	"fmt"

	"github.com/katalvlaran/ctmctree/prune"
)

// Marginals runs the top-down pass for one site of in and returns its
// per-node posterior state distributions and the log-scale derivative of
// every edge. Weights and Requested are not consulted beyond validation.
//
// Errors are those of Evaluate; ErrInvalidInput also covers a site index
// outside [0, len(in.Observations)).
func Marginals(ctx context.Context, in Input, site int, opts ...Option) (prune.Outside, error) {
	o := gatherOptions(opts)
	if err := checkInput(in); err != nil {
		return prune.Outside{}, err
	}
	if site < 0 || site >= len(in.Observations) {
		return prune.Outside{}, fmt.Errorf("likelihood: site %d of %d: %w", site, len(in.Observations), ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return prune.Outside{}, err
	}

	cache, engine, err := newEngine(in, o)
	if err != nil {
		return prune.Outside{}, err
	}
	if err = checkObservations(in); err != nil {
		return prune.Outside{}, err
	}
	all := make([]int, in.Tree.EdgeCount())
	for k := range all {
		all[k] = k
	}
	if err = warm(cache, in, all, false); err != nil {
		return prune.Outside{}, err
	}
	o.logger.Debug("likelihood: marginals", "site", site, "states", in.Space.Size(), "nodes", in.Tree.NodeCount())

	return engine.Marginals(site, in.Observations[site])
}
