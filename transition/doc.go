// SPDX-License-Identifier: MIT

// Package transition computes and memoizes per-edge transition operators of
// CTMC processes: P(r) = exp(r·Q), its log-scale derivative
// dP/d(log r) = r·dP/dr and, for processes built with expect weights, the
// labeled operator K(r) = L(rQ, rE) used for expected transition counts.
//
// Paths
//
//   - Eigen: Q = V·diag(λ)·V⁻¹ is factorized once per process, then
//     P(r) = V·diag(e^{rλ})·V⁻¹ and dP/dr = V·diag(λe^{rλ})·V⁻¹.
//     K(r) = V·(Φ ⊙ V⁻¹·rE·V)·V⁻¹ with Φ[i][j] the divided difference of
//     exp at rλ_i and rλ_j.
//   - Padé: used when the eigensolver fails, the spectrum is not real, V is
//     singular, or cond₁(V) exceeds the configured threshold.
//     P(r) = expm(rQ) by scaling and squaring, and
//     r·dP/dr = L(rQ, rQ), the Fréchet derivative of expm at rQ in direction rQ.
//     K(r) = L(rQ, rE) comes from the same block-triangular exponential.
//
// Concurrency
//
//	A Cache is safe for concurrent use. Each distinct (process, scale, kind)
//	triple is computed exactly once: lookups take a read lock, misses are
//	collapsed through a singleflight group and re-checked before computing.
//	Eigen decompositions are guarded by a per-process sync.Once.
//
// Lifetime
//
//	Scales change on every optimizer step, so a Cache is meant to live for a
//	single evaluation. Returned matrices are shared and must not be modified.
package transition
