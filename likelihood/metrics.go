// SPDX-License-Identifier: MIT

package likelihood

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/katalvlaran/ctmctree/transition"
)

const metricsNamespace = "ctmctree"

// Metrics collects evaluation counters. It implements transition.Observer so
// the operator cache reports into the same registry.
type Metrics struct {
	evaluations *prometheus.CounterVec
	sites       prometheus.Counter
	underflows  prometheus.Counter
	cache       *prometheus.CounterVec
	fallbacks   prometheus.Counter
	duration    prometheus.Histogram
}

var _ transition.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Labels: outcome (ok, or an ErrorKind value)
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "evaluations_total",
			Help:      "Likelihood evaluations by outcome",
		}, []string{"outcome"}),
		sites: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sites_evaluated_total",
			Help:      "Observation sites run through the pruning engine",
		}),
		underflows: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "site_underflows_total",
			Help:      "Sites whose likelihood was zero or not representable",
		}),
		// Labels: kind (transition, derivative, expectation), result (hit, miss)
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transition",
			Name:      "cache_requests_total",
			Help:      "Transition operator cache requests",
		}, []string{"kind", "result"}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transition",
			Name:      "pade_fallbacks_total",
			Help:      "Processes evaluated by Padé instead of eigendecomposition",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one likelihood evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}
}

// CacheHit implements transition.Observer.
func (m *Metrics) CacheHit(kind transition.Kind) {
	m.cache.WithLabelValues(kind.String(), "hit").Inc()
}

// CacheMiss implements transition.Observer.
func (m *Metrics) CacheMiss(kind transition.Kind) {
	m.cache.WithLabelValues(kind.String(), "miss").Inc()
}

// Fallback implements transition.Observer.
func (m *Metrics) Fallback(int, error) { m.fallbacks.Inc() }
