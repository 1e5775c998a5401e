// SPDX-License-Identifier: MIT

// Package matrix provides the dense linear-algebra kernels used by the
// likelihood engine: a row-major Dense type, products, partially pivoted
// LU solves, the matrix exponential and its Fréchet derivative, and an
// adapter to a general (nonsymmetric) eigensolver.
//
// What & Why:
//
//	Generator matrices of continuous-time Markov chains are small, dense
//	and usually nonsymmetric. The engine needs exp(r·Q) for many scales r,
//	either through a one-time eigendecomposition Q = V·D·V⁻¹ or, when V is
//	ill-conditioned, through scaling-and-squaring Padé approximation.
//
// Conventions:
//
//   - All public kernels validate their inputs and return sentinel errors
//     (see errors.go) wrapped with an operation tag; nothing panics on user
//     input.
//   - Inputs are never mutated; results are freshly allocated.
//   - Loop orders are fixed (i→j→k), so results are bitwise reproducible.
//
// Complexity:
//
//	Mul, LU, Solve, Inverse: O(n³). Expm: O(n³·(m + s)) for Padé degree m
//	and s squarings. ExpmFrechet works on a 2n×2n block matrix (≈8× Expm).
package matrix
