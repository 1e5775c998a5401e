// SPDX-License-Identifier: MIT

package likelihood

import (
	"context"
	"runtime"
	"time"

	"github.com/katalvlaran/ctmctree/model"
)

// ExpectationResult holds expected weighted counts of labeled transitions.
type ExpectationResult struct {
	// Sites[i][k] is the expectation on edge k given the observations of
	// site i; nil for skipped sites.
	Sites [][]float64 `json:"site_expectations"`
	// Edges[k] is Σ_i w_i·Sites[i][k].
	Edges []float64 `json:"edge_expectations"`
	// Skipped lists zero-weight sites, which are not evaluated.
	Skipped []int `json:"skipped_sites,omitempty"`
}

// Expectations computes, per site and edge, the conditional expectation of
// the labeled transition weight: Σ over transitions on the edge of the
// expect weight of each, given the site's observations. Every process an
// edge uses must carry expect weights. Requested is not consulted.
//
// Errors are those of Evaluate, plus transition.ErrUnlabeled naming the
// process and its edges.
func Expectations(ctx context.Context, in Input, opts ...Option) (ExpectationResult, error) {
	o := gatherOptions(opts)
	start := time.Now()
	if err := checkInput(in); err != nil {
		return ExpectationResult{}, err
	}
	cache, engine, err := newEngine(in, o)
	if err != nil {
		return ExpectationResult{}, err
	}
	if err = checkObservations(in); err != nil {
		return ExpectationResult{}, err
	}
	if err = warm(cache, in, nil, true); err != nil {
		return ExpectationResult{}, err
	}

	var res ExpectationResult
	active := make([]int, 0, len(in.Observations))
	for i, w := range in.Weights {
		if w == 0 {
			res.Skipped = append(res.Skipped, i)
			continue
		}
		active = append(active, i)
	}
	workers := o.workers
	if workers == DefaultWorkers {
		workers = runtime.GOMAXPROCS(0)
	}
	o.logger.Debug("likelihood: expectations",
		"sites", len(active), "skipped", len(res.Skipped), "edges", in.Tree.EdgeCount(), "workers", workers)

	res.Sites = make([][]float64, len(in.Observations))
	err = runSites(ctx, active, len(in.Observations), workers, func(i int) error {
		e, err := engine.Expectations(i, in.Observations[i])
		if err != nil {
			return err
		}
		res.Sites[i] = e
		return nil
	})
	if err != nil {
		return ExpectationResult{}, err
	}

	res.Edges = make([]float64, in.Tree.EdgeCount())
	for _, i := range active {
		for k, e := range res.Sites[i] {
			res.Edges[k] += in.Weights[i] * e
		}
	}
	o.logger.Debug("likelihood: expectations done", "elapsed", time.Since(start))

	return res, nil
}

// ExpectationsModel builds m (honouring WithFullStateSpace) and computes its
// labeled transition expectations.
func ExpectationsModel(ctx context.Context, m *model.Model, opts ...Option) (ExpectationResult, error) {
	in, err := Build(m, gatherOptions(opts).fullSpace)
	if err != nil {
		return ExpectationResult{}, err
	}

	return Expectations(ctx, in, opts...)
}
