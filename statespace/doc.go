// SPDX-License-Identifier: MIT

// Package statespace enumerates the feasible joint states of a multivariate
// discrete character and assigns each a dense index.
//
// What
//
//   - A state is a tuple of per-axis integers; axis a takes values in
//     [0, shape[a]).
//   - A Space is an order-preserving bijection between a list of feasible
//     states and the indices 0..F-1.
//   - Full builds the whole Cartesian product in row-major order.
//
// Determinism
//
//	Index i always denotes the i-th feasible state as supplied, so every
//	generator, prior and likelihood vector built over the Space agrees on
//	ordering.
//
// Missing values
//
//	Observation rows may carry -1 or the axis cardinality itself to mean
//	"not observed". IsMissing recognizes both codes; CheckValue rejects any
//	other out-of-range value with ErrInvalidState.
//
// Complexity
//
//   - New:   O(F·A) time, O(F·A) memory (A = number of axes).
//   - Index: O(A) time.
package statespace
