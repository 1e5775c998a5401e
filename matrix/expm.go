// SPDX-License-Identifier: MIT

// Package matrix - matrix exponential by scaling and squaring.
//
// Purpose:
//   - Expm: exp(A) via the Higham (2005) scaling-and-squaring Padé scheme
//     with degrees m ∈ {3, 5, 7, 9, 13}.
//   - ExpmFrechet: exp(A) together with the Fréchet derivative L(A, E),
//     read off the block-triangular identity
//     exp([[A, E], [0, A]]) = [[exp(A), L(A, E)], [0, exp(A)]].
//
// Notes:
//   - The 1-norm is computed exactly; the matrices handled here are the
//     small dense generators of the likelihood engine, so a norm estimator
//     would not pay for itself.

package matrix

import (
	"fmt"
	"math"
)

// padeThetas are the largest ‖A‖₁ for which a degree-m approximant reaches
// double precision without scaling.
var padeThetas = map[int]float64{
	3:  1.495585217958292e-2,
	5:  2.539398330063230e-1,
	7:  9.504178996162932e-1,
	9:  2.097847961257068e0,
	13: 5.371920351148152e0,
}

// padeDegrees lists the unscaled approximants in increasing cost.
var padeDegrees = []int{3, 5, 7, 9}

// padeCoefficients holds b_0..b_m of the [m/m] Padé approximant of exp.
var padeCoefficients = map[int][]float64{
	3: {120, 60, 12, 1},
	5: {30240, 15120, 3360, 420, 30, 1},
	7: {17297280, 8648640, 1995840, 277200, 25200, 1512, 56, 1},
	9: {17643225600, 8821612800, 2075673600, 302702400, 30270240,
		2162160, 110880, 3960, 90, 1},
	13: {64764752532480000, 32382376266240000, 7771770303897600,
		1187353796428800, 129060195264000, 10559470521600, 670442572800,
		33522128640, 1323241920, 40840800, 960960, 16380, 182, 1},
}

// Expm computes the matrix exponential exp(A).
//
// Implementation:
//   - Stage 1: Validate square, finite input.
//   - Stage 2: If ‖A‖₁ ≤ θ_m for m ∈ {3,5,7,9}, evaluate the degree-m approximant directly.
//   - Stage 3: Otherwise scale A by 2^-s so ‖A/2^s‖₁ ≤ θ_13, evaluate degree 13,
//     and square the result s times.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrNaNInf (input or overflowing result),
//     ErrSingular (denominator Q_m(A) singular; does not occur for θ-bounded A
//     in exact arithmetic).
//
// Complexity:
//   - Time O(n³·(m/2 + s)), Space O(n²·m/2).
func Expm(a *Dense) (*Dense, error) {
	if err := ValidateSquare(a); err != nil {
		return nil, matrixErrorf(opExpm, err)
	}
	if err := ValidateFinite(a); err != nil {
		return nil, matrixErrorf(opExpm, err)
	}

	norm := Norm1(a)
	if math.IsInf(norm, 0) {
		return nil, matrixErrorf(opExpm, fmt.Errorf("‖A‖₁ overflows: %w", ErrNaNInf))
	}
	for _, m := range padeDegrees {
		if norm <= padeThetas[m] {
			x, err := padeLow(a, m)
			if err != nil {
				return nil, matrixErrorf(opExpm, err)
			}

			return x, nil
		}
	}

	// Scaling: smallest s ≥ 0 with ‖A‖₁/2^s ≤ θ_13.
	s := 0
	if norm > padeThetas[13] {
		s = int(math.Ceil(math.Log2(norm / padeThetas[13])))
	}
	x, err := pade13(scaled(a, math.Ldexp(1, -s)))
	if err != nil {
		return nil, matrixErrorf(opExpm, err)
	}
	for i := 0; i < s; i++ {
		x = mulDense(x, x)
	}
	if !x.IsFinite() {
		return nil, matrixErrorf(opExpm, fmt.Errorf("after %d squarings: %w", s, ErrNaNInf))
	}

	return x, nil
}

// padeLow evaluates the degree-m approximant for m ∈ {3,5,7,9}:
// U = A·Σ b_{2k+1}A^{2k}, V = Σ b_{2k}A^{2k}.
func padeLow(a *Dense, m int) (*Dense, error) {
	n := a.r
	b := padeCoefficients[m]
	a2 := mulDense(a, a)
	even := []*Dense{identity(n), a2} // A^0, A^2, A^4, ...
	for len(even) <= m/2 {
		even = append(even, mulDense(even[len(even)-1], a2))
	}

	uInner, v := newSquare(n), newSquare(n)
	for k := 0; k <= m/2; k++ {
		axpy(uInner, b[2*k+1], even[k])
		axpy(v, b[2*k], even[k])
	}

	return padeSolve(mulDense(a, uInner), v)
}

// pade13 evaluates the degree-13 approximant with the grouped evaluation
// scheme that needs only six matrix products.
func pade13(a *Dense) (*Dense, error) {
	n := a.r
	b := padeCoefficients[13]
	ident := identity(n)
	a2 := mulDense(a, a)
	a4 := mulDense(a2, a2)
	a6 := mulDense(a4, a2)

	// U = A·[A6·(b13·A6 + b11·A4 + b9·A2) + b7·A6 + b5·A4 + b3·A2 + b1·I]
	w1 := newSquare(n)
	axpy(w1, b[13], a6)
	axpy(w1, b[11], a4)
	axpy(w1, b[9], a2)
	w := mulDense(a6, w1)
	axpy(w, b[7], a6)
	axpy(w, b[5], a4)
	axpy(w, b[3], a2)
	axpy(w, b[1], ident)
	u := mulDense(a, w)

	// V = A6·(b12·A6 + b10·A4 + b8·A2) + b6·A6 + b4·A4 + b2·A2 + b0·I
	z1 := newSquare(n)
	axpy(z1, b[12], a6)
	axpy(z1, b[10], a4)
	axpy(z1, b[8], a2)
	v := mulDense(a6, z1)
	axpy(v, b[6], a6)
	axpy(v, b[4], a4)
	axpy(v, b[2], a2)
	axpy(v, b[0], ident)

	return padeSolve(u, v)
}

// padeSolve returns (V − U)⁻¹·(V + U).
func padeSolve(u, v *Dense) (*Dense, error) {
	p := v.Clone()
	q := v.Clone()
	axpy(p, 1, u)
	axpy(q, -1, u)

	return Solve(q, p)
}

// ExpmFrechet computes exp(A) and the Fréchet derivative L(A, E) of the
// exponential at A in direction E.
//
// Implementation:
//   - Stage 1: Validate square A, E of equal shape.
//   - Stage 2: Build the 2n×2n block matrix [[A, E], [0, A]] and exponentiate it.
//   - Stage 3: Read exp(A) from the top-left block and L(A, E) from the top-right.
//
// Behavior highlights:
//   - For E = A (or any E commuting with A) L(A, E) = E·exp(A); for
//     A = r·Q and E = Q this is dP/dr.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch, plus Expm errors.
//
// Complexity:
//   - Time O((2n)³·(m/2 + s)), Space O(n²).
func ExpmFrechet(a, e *Dense) (*Dense, *Dense, error) {
	if err := ValidateSquare(a); err != nil {
		return nil, nil, matrixErrorf(opFrechet, err)
	}
	if err := ValidateSameShape(a, e); err != nil {
		return nil, nil, matrixErrorf(opFrechet, err)
	}
	n := a.r
	big := newSquare(2 * n)
	for i := 0; i < n; i++ {
		copy(big.data[i*2*n:i*2*n+n], a.data[i*n:(i+1)*n])           // top-left A
		copy(big.data[i*2*n+n:(i+1)*2*n], e.data[i*n:(i+1)*n])       // top-right E
		copy(big.data[(n+i)*2*n+n:(n+i+1)*2*n], a.data[i*n:(i+1)*n]) // bottom-right A
	}
	x, err := Expm(big)
	if err != nil {
		return nil, nil, matrixErrorf(opFrechet, err)
	}
	p, err := x.Block(0, 0, n, n)
	if err != nil {
		return nil, nil, matrixErrorf(opFrechet, err)
	}
	l, err := x.Block(0, n, n, n)
	if err != nil {
		return nil, nil, matrixErrorf(opFrechet, err)
	}

	return p, l, nil
}
