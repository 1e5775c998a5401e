// SPDX-License-Identifier: MIT

// Package prune runs the pruning dynamic program of a CTMC over a rooted
// tree for one observation site at a time.
//
// What
//
//   - Indicator I_v: 1 on feasible states consistent with v's observed
//     (axis, value) pairs at the site, 0 elsewhere; all ones if v carries no
//     observation. Missing-value codes leave the axis free.
//   - Partial likelihood, bottom-up in post-order:
//     L_v = I_v ⊙ Π_{child edges e=(v,c)} m_e,   m_e = P_e · L_c.
//   - Site scalar: Σ_s prior[s]·L_root[s].
//   - Derivative for edge e=(v,c): replace P_e by dP_e/d(log r_e), then walk
//     the path from v to the root recomputing one vector per node and reusing
//     every sibling message m. Dividing by the scalar gives
//     d(log scalar)/d(log r_e).
//   - Marginals: a top-down pass A_root = prior,
//     A_c = P_eᵀ·(A_v ⊙ I_v ⊙ Π_{e'≠e} m_{e'}), yields the posterior state
//     distribution A_c ⊙ L_c / scalar at every node.
//   - Expectations: with B_e = A_v ⊙ I_v ⊙ Π_{e'≠e} m_{e'} from the same
//     top-down pass, the expected labeled transition weight on e=(v,c) is
//     B_e·(K_e·L_c) / scalar, K_e = L(r_e·Q, r_e·E).
//
// Errors
//
//	A scalar that is zero, negative (rounding) or not finite is reported as
//	an *UnderflowError carrying the site index and its observed values; it
//	matches ErrNumericUnderflow under errors.Is.
//
// Concurrency
//
//	An Engine is read-only after NewEngine; Site, Marginals and Expectations
//	may be called from many goroutines. Transition operators come from a shared
//	transition.Cache.
//
// Complexity (N nodes, F feasible states, D requested edges, h tree height)
//
//   - Site: O(N·F² + D·h·F²) time, O(N·F) memory.
//   - Marginals, Expectations: O(N·F²) time.
package prune
