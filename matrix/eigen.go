// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// DefaultImagTolerance bounds |Im λ| / max(1, |λ|) for an eigenvalue to be
// treated as real by EigenReal.
const DefaultImagTolerance = 1e-10

// EigenReal computes the right eigendecomposition A = V·diag(λ)·V⁻¹ of a
// general (nonsymmetric) real matrix whose spectrum is real.
//
// Implementation:
//   - Stage 1: Validate square, finite input and hand a copy to gonum's
//     LAPACK-backed general eigensolver (balancing + Hessenberg QR).
//   - Stage 2: Reject the result when any eigenvalue has a relative imaginary
//     part above imagTol.
//   - Stage 3: Return the real parts of the eigenvalues and of the
//     eigenvector matrix (columns are eigenvectors).
//
// Behavior highlights:
//   - V is returned even when it is ill-conditioned; callers decide whether
//     cond₁(V) is acceptable (see Cond1).
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrEigenFailed (no convergence),
//     ErrComplexSpectrum.
//
// Complexity:
//   - Time O(n³), Space O(n²).
//
// AI-Hints:
//   - Generators of reversible chains always have a real spectrum; a complex
//     spectrum is a signal to switch to Expm instead.
func EigenReal(a *Dense, imagTol float64) ([]float64, *Dense, error) {
	if err := ValidateSquare(a); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	if err := ValidateFinite(a); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	if imagTol < 0 || isNonFinite(imagTol) {
		imagTol = DefaultImagTolerance
	}
	n := a.r

	var eig mat.Eigen
	if ok := eig.Factorize(toGonum(a), mat.EigenRight); !ok {
		return nil, nil, matrixErrorf(opEigen, ErrEigenFailed)
	}

	values := eig.Values(nil)
	vals := make([]float64, n)
	for i, lambda := range values {
		if math.Abs(imag(lambda)) > imagTol*math.Max(1, cmplx.Abs(lambda)) {
			return nil, nil, matrixErrorf(opEigen, fmt.Errorf("eigenvalue %d = %v: %w", i, lambda, ErrComplexSpectrum))
		}
		vals[i] = real(lambda)
	}

	var vecs mat.CDense
	eig.VectorsTo(&vecs)
	v := newSquare(n)
	var i, j int
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			v.data[i*n+j] = real(vecs.At(i, j))
		}
	}
	if !v.IsFinite() {
		return nil, nil, matrixErrorf(opEigen, ErrNaNInf)
	}

	return vals, v, nil
}

// toGonum copies m into a gonum dense matrix.
func toGonum(m *Dense) *mat.Dense {
	buf := make([]float64, len(m.data))
	copy(buf, m.data)

	return mat.NewDense(m.r, m.c, buf)
}
