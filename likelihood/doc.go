// SPDX-License-Identifier: MIT

// Package likelihood evaluates the weighted log-likelihood of i.i.d.
// observation sites under a CTMC on a tree, together with its derivatives
// with respect to the log rate-scaling factors of requested edges.
//
// What
//
//   - Evaluate takes an already-built Input (state space, processes, tree,
//     per-edge process and scale, prior, observation layout and sites).
//   - EvaluateModel builds that Input from a decoded model.Model.
//   - log-likelihood = Σ_i w_i·log L_i and
//     derivative_e = Σ_i w_i·d(log L_i)/d(log r_e), in requested order.
//   - Marginals returns one site's per-node posteriors; Expectations returns
//     per-site, per-edge expected counts of labeled transitions for
//     processes built with expect weights.
//   - Prepare validates an Input and computes its transition operators
//     without evaluating sites.
//
// Concurrency & determinism
//
//	Transition operators are computed first, one process at a time, so a
//	numerically unstable process is reported with every edge that uses it.
//	Sites are then evaluated in parallel (errgroup, bounded by WithWorkers);
//	each writes its own slot, and the reduction runs in ascending site order
//	so totals are bit-for-bit reproducible. When several sites fail, the
//	lowest site index wins. Zero-weight sites are not evaluated.
//
// Observability
//
//	WithLogger emits debug records through charmbracelet/log; WithMetrics
//	records evaluation, site, underflow and cache counters on a Prometheus
//	registerer.
package likelihood
