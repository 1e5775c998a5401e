// SPDX-License-Identifier: MIT

package likelihood

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/katalvlaran/ctmctree/transition"
)

// DefaultWorkers selects runtime.GOMAXPROCS(0) site workers.
const DefaultWorkers = 0

const panicWorkersInvalid = "likelihood: WithWorkers: n must be ≥ 0"

// Option configures an evaluation.
type Option func(*Options)

// Options holds the effective evaluation settings.
type Options struct {
	workers   int
	logger    *log.Logger
	metrics   *Metrics
	perSite   bool
	fullSpace bool
	cacheOpts []transition.Option
}

func defaultOptions() Options {
	return Options{
		workers: DefaultWorkers,
		logger:  log.New(io.Discard),
	}
}

func gatherOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// WithWorkers bounds the number of concurrently evaluated sites; 0 means
// GOMAXPROCS. Panics if n is negative.
func WithWorkers(n int) Option {
	if n < 0 {
		panic(panicWorkersInvalid)
	}

	return func(o *Options) { o.workers = n }
}

// WithLogger sets the debug logger. nil is ignored.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records evaluation metrics on m. nil is ignored.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSiteLogLikelihoods fills Result.SiteLogLikelihoods.
func WithSiteLogLikelihoods() Option {
	return func(o *Options) { o.perSite = true }
}

// WithFullStateSpace makes EvaluateModel work over the whole Cartesian
// product of the state space shape instead of the prior's feasible states;
// states the prior does not list get prior mass 0.
func WithFullStateSpace() Option {
	return func(o *Options) { o.fullSpace = true }
}

// WithTransitionOptions forwards options to the transition operator cache.
func WithTransitionOptions(opts ...transition.Option) Option {
	return func(o *Options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}
