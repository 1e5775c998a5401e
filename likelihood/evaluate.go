// SPDX-License-Identifier: MIT

package likelihood

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/ctmctree/model"
	"github.com/katalvlaran/ctmctree/process"
	"github.com/katalvlaran/ctmctree/prune"
	"github.com/katalvlaran/ctmctree/statespace"
	"github.com/katalvlaran/ctmctree/transition"
	"github.com/katalvlaran/ctmctree/tree"
)

// ErrInvalidInput is returned when Input fields disagree in shape or carry
// out-of-range indices or weights.
var ErrInvalidInput = errors.New("likelihood: invalid input")

// Input is a fully built evaluation.
type Input struct {
	Space     *statespace.Space
	Processes []*process.Process
	Tree      *tree.Tree
	// Branches[k] binds tree edge k to a process and scale.
	Branches []prune.Branch
	Prior    []float64
	// Observation row k is (ObservedNodes[k], ObservedAxes[k]).
	ObservedNodes []int
	ObservedAxes  []int
	// Observations[i] holds one value per observation row for site i.
	Observations [][]int
	Weights      []float64
	// Requested lists edge ids whose log-scale derivative is wanted.
	Requested []int
}

// Result is the outcome of one evaluation.
type Result struct {
	LogLikelihood float64   `json:"log_likelihood"`
	Derivatives   []float64 `json:"derivatives"`
	// SiteLogLikelihoods[i] is log L_i; filled by WithSiteLogLikelihoods.
	// Skipped sites report 0.
	SiteLogLikelihoods []float64 `json:"site_log_likelihoods,omitempty"`
	// Skipped lists zero-weight sites, which are not evaluated.
	Skipped []int `json:"skipped_sites,omitempty"`
}

// Evaluate computes the weighted log-likelihood and requested derivatives.
//
// Implementation:
//   - Stage 1: Validate weights, requested edges, process references and
//     the values of every site.
//   - Stage 2: Compute every transition operator (and derivative operator of
//     requested edges), grouped by process.
//   - Stage 3: Evaluate non-zero-weight sites in parallel.
//   - Stage 4: Reduce in ascending site order.
//
// Errors:
//   - ErrInvalidInput, prune.ErrInvalidInput, statespace.ErrInvalidState,
//     transition.ErrNumericInstability (names the process and its edges),
//     *prune.UnderflowError for the lowest failing site, or ctx.Err().
func Evaluate(ctx context.Context, in Input, opts ...Option) (res Result, err error) {
	o := gatherOptions(opts)
	start := time.Now()
	defer func() {
		if o.metrics == nil {
			return
		}
		o.metrics.duration.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = ErrorKind(err)
		}
		o.metrics.evaluations.WithLabelValues(outcome).Inc()
	}()

	if err = checkInput(in); err != nil {
		return Result{}, err
	}

	cache, engine, err := newEngine(in, o)
	if err != nil {
		return Result{}, err
	}
	if err = checkObservations(in); err != nil {
		return Result{}, err
	}
	if err = warm(cache, in, in.Requested, false); err != nil {
		return Result{}, err
	}

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
	o.logger.Debug("likelihood: evaluating",
		"sites", len(active), "skipped", len(res.Skipped), "states", in.Space.Size(),
		"nodes", in.Tree.NodeCount(), "requested", len(in.Requested), "workers", workers)

	sites, err := evaluateSites(ctx, engine, in, active, workers)
	if o.metrics != nil {
		o.metrics.sites.Add(float64(countDone(sites)))
	}
	if err != nil {
		var ue *prune.UnderflowError
		if o.metrics != nil && errors.As(err, &ue) {
			o.metrics.underflows.Inc()
		}
		return Result{}, err
	}

	// Fixed-order reduction.
	res.Derivatives = make([]float64, len(in.Requested))
	if o.perSite {
		res.SiteLogLikelihoods = make([]float64, len(in.Observations))
	}
	for _, i := range active {
		w, ll := in.Weights[i], math.Log(sites[i].Likelihood)
		res.LogLikelihood += w * ll
		for j, d := range sites[i].Derivatives {
			res.Derivatives[j] += w * d
		}
		if o.perSite {
			res.SiteLogLikelihoods[i] = ll
		}
	}
	o.logger.Debug("likelihood: done", "loglik", res.LogLikelihood, "elapsed", time.Since(start))

	return res, nil
}

// newEngine wires a transition cache configured from o into a pruning engine.
func newEngine(in Input, o Options) (*transition.Cache, *prune.Engine, error) {
	cacheOpts := append([]transition.Option{transition.WithLogger(o.logger)}, o.cacheOpts...)
	if o.metrics != nil {
		cacheOpts = append(cacheOpts, transition.WithObserver(o.metrics))
	}
	cache := transition.NewCache(in.Processes, cacheOpts...)
	engine, err := prune.NewEngine(prune.Config{
		Space:         in.Space,
		Tree:          in.Tree,
		Operators:     cache,
		Branches:      in.Branches,
		Prior:         in.Prior,
		ObservedNodes: in.ObservedNodes,
		ObservedAxes:  in.ObservedAxes,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("likelihood: %w", err)
	}

	return cache, engine, nil
}

// evaluateSites runs the pruning engine over active sites.
func evaluateSites(ctx context.Context, engine *prune.Engine, in Input, active []int, workers int) ([]*prune.SiteResult, error) {
	results := make([]*prune.SiteResult, len(in.Observations))
	err := runSites(ctx, active, len(in.Observations), workers, func(i int) error {
		r, err := engine.Site(i, in.Observations[i], in.Requested)
		if err != nil {
			return err
		}
		results[i] = &r
		return nil
	})

	return results, err
}

// runSites calls site for every index in active on at most workers
// goroutines. A failing site stops sites with a higher index from starting;
// the error of the lowest failing site is returned.
func runSites(ctx context.Context, active []int, n, workers int, site func(i int) error) error {
	errs := make([]error, n)
	var lowest atomic.Int64
	lowest.Store(math.MaxInt64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range active {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if int64(i) > lowest.Load() {
				return nil
			}
			if err := site(i); err != nil {
				errs[i] = err
				lowerTo(&lowest, int64(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("likelihood: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("likelihood: %w", err)
	}
	if i := lowest.Load(); i != math.MaxInt64 {
		return errs[i]
	}

	return nil
}

// lowerTo atomically sets v = min(v, x).
func lowerTo(v *atomic.Int64, x int64) {
	for {
		cur := v.Load()
		if x >= cur || v.CompareAndSwap(cur, x) {
			return
		}
	}
}

func countDone(results []*prune.SiteResult) int {
	n := 0
	for _, r := range results {
		if r != nil {
			n++
		}
	}

	return n
}

// checkInput validates what prune.NewEngine cannot see.
func checkInput(in Input) error {
	if in.Space == nil || in.Tree == nil {
		return fmt.Errorf("likelihood: state space and tree are required: %w", ErrInvalidInput)
	}
	if len(in.Weights) != len(in.Observations) {
		return fmt.Errorf("likelihood: %d weights for %d sites: %w", len(in.Weights), len(in.Observations), ErrInvalidInput)
	}
	for i, w := range in.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("likelihood: site %d weight %v: %w", i, w, ErrInvalidInput)
		}
	}
	for i, id := range in.Requested {
		if id < 0 || id >= in.Tree.EdgeCount() {
			return fmt.Errorf("likelihood: requested derivative %d names edge %d of %d: %w", i, id, in.Tree.EdgeCount(), ErrInvalidInput)
		}
	}
	for k, b := range in.Branches {
		if b.Process < 0 || b.Process >= len(in.Processes) || in.Processes[b.Process] == nil {
			return fmt.Errorf("likelihood: edge %d uses process %d of %d: %w", k, b.Process, len(in.Processes), ErrInvalidInput)
		}
	}

	return nil
}

// checkObservations validates every site's values, weight zero included.
// It runs after prune.NewEngine has accepted the observation rows.
func checkObservations(in Input) error {
	for i, values := range in.Observations {
		if len(values) != len(in.ObservedNodes) {
			return fmt.Errorf("likelihood: site %d has %d values for %d observation rows: %w",
				i, len(values), len(in.ObservedNodes), ErrInvalidInput)
		}
		for k, v := range values {
			if err := in.Space.CheckValue(in.ObservedAxes[k], v); err != nil {
				return fmt.Errorf("likelihood: site %d observation row %d: %w", i, k, err)
			}
		}
	}

	return nil
}

// Prepare validates in and computes the transition operator of every edge,
// process by process, without evaluating any site. The returned cache
// reports the method chosen for each process.
//
// Errors are those of Evaluate other than underflow and cancellation.
func Prepare(in Input, opts ...Option) (*transition.Cache, error) {
	o := gatherOptions(opts)
	if err := checkInput(in); err != nil {
		return nil, err
	}
	cache, _, err := newEngine(in, o)
	if err != nil {
		return nil, err
	}
	if err = checkObservations(in); err != nil {
		return nil, err
	}
	if err = warm(cache, in, nil, false); err != nil {
		return nil, err
	}

	return cache, nil
}

// warm computes every operator the sites will need, process by process, so
// a failure names the process and all of its edges. Derivative operators
// are computed for the edges in deriv, labeled operators for every edge
// when labeled is set.
func warm(cache *transition.Cache, in Input, deriv []int, labeled bool) error {
	wantDeriv := make(map[int]bool, len(deriv))
	for _, id := range deriv {
		wantDeriv[id] = true
	}
	byProc := make(map[int][]int)
	for k, b := range in.Branches {
		byProc[b.Process] = append(byProc[b.Process], k)
	}
	procs := make([]int, 0, len(byProc))
	for p := range byProc {
		procs = append(procs, p)
	}
	sort.Ints(procs)

	for _, p := range procs {
		edges := byProc[p]
		for _, k := range edges {
			scale := in.Branches[k].Scale
			_, err := cache.Transition(p, scale)
			if err == nil && wantDeriv[k] {
				_, err = cache.Derivative(p, scale)
			}
			if err == nil && labeled {
				_, err = cache.Expectation(p, scale)
			}
			if err != nil {
				return fmt.Errorf("likelihood: process %d (edges %v): %w", p, edges, err)
			}
		}
	}

	return nil
}

// ErrorKind classifies err for metrics and exit reporting.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, model.ErrInvalidModel):
		return "invalid_model"
	case errors.Is(err, process.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, statespace.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, tree.ErrInvalidTopology):
		return "invalid_topology"
	case errors.Is(err, transition.ErrNumericInstability):
		return "numeric_instability"
	case errors.Is(err, transition.ErrUnlabeled):
		return "unlabeled"
	case errors.Is(err, prune.ErrNumericUnderflow):
		return "numeric_underflow"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, prune.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
