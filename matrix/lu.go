// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// ZeroPivot is the sentinel for detecting a zero pivot after row exchange.
const ZeroPivot = 0.0

// LUFactors holds a partially pivoted factorization P·A = L·U packed into a
// single matrix: the strict lower triangle stores L (unit diagonal implied),
// the upper triangle stores U, and piv[i] is the original row now at row i.
type LUFactors struct {
	lu  *Dense
	piv []int
}

// LU computes the Doolittle factorization with partial (row) pivoting.
//
// Implementation:
//   - Stage 1: Validate square input; copy it into the working buffer.
//   - Stage 2: For each column k pick the row with the largest |a[i,k]| (i ≥ k),
//     swap it into place, then eliminate below the pivot.
//
// Behavior highlights:
//   - Ties in the pivot search keep the lowest row index, so the result is
//     deterministic for identical inputs.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrSingular (exact zero pivot).
//
// Complexity:
//   - Time O(n³), Space O(n²).
func LU(m *Dense) (*LUFactors, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, matrixErrorf(opLU, err)
	}
	if !m.IsFinite() {
		return nil, matrixErrorf(opLU, ErrNaNInf)
	}
	n := m.r
	w := m.Clone()
	piv := make([]int, n)
	for i := range piv {
		piv[i] = i
	}

	var i, j, k, p int
	var best, v, f float64
	for k = 0; k < n; k++ {
		// Pivot search in column k.
		p, best = k, math.Abs(w.data[k*n+k])
		for i = k + 1; i < n; i++ {
			if v = math.Abs(w.data[i*n+k]); v > best {
				p, best = i, v
			}
		}
		if best == ZeroPivot {
			return nil, matrixErrorf(opLU, fmt.Errorf("column %d: %w", k, ErrSingular))
		}
		if p != k {
			for j = 0; j < n; j++ {
				w.data[k*n+j], w.data[p*n+j] = w.data[p*n+j], w.data[k*n+j]
			}
			piv[k], piv[p] = piv[p], piv[k]
		}
		// Eliminate below the pivot.
		for i = k + 1; i < n; i++ {
			f = w.data[i*n+k] / w.data[k*n+k]
			w.data[i*n+k] = f
			if f == 0 {
				continue
			}
			for j = k + 1; j < n; j++ {
				w.data[i*n+j] -= f * w.data[k*n+j]
			}
		}
	}

	return &LUFactors{lu: w, piv: piv}, nil
}

// Solve returns X with A·X = B using the stored factors.
// Errors: ErrNilMatrix, ErrDimensionMismatch (B.Rows != n).
// Complexity: Time O(n²·c) for c right-hand sides.
func (f *LUFactors) Solve(b *Dense) (*Dense, error) {
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	n := f.lu.r
	if b.r != n {
		return nil, matrixErrorf(opSolve, ErrDimensionMismatch)
	}
	cols := b.c
	x := &Dense{r: n, c: cols, data: make([]float64, n*cols)}
	// Apply the row permutation.
	for i := 0; i < n; i++ {
		copy(x.data[i*cols:(i+1)*cols], b.data[f.piv[i]*cols:(f.piv[i]+1)*cols])
	}

	var i, k, j int
	var lik, ukk float64
	// Forward substitution with unit-lower L.
	for i = 1; i < n; i++ {
		for k = 0; k < i; k++ {
			lik = f.lu.data[i*n+k]
			if lik == 0 {
				continue
			}
			for j = 0; j < cols; j++ {
				x.data[i*cols+j] -= lik * x.data[k*cols+j]
			}
		}
	}
	// Backward substitution with U.
	for i = n - 1; i >= 0; i-- {
		for k = i + 1; k < n; k++ {
			lik = f.lu.data[i*n+k]
			if lik == 0 {
				continue
			}
			for j = 0; j < cols; j++ {
				x.data[i*cols+j] -= lik * x.data[k*cols+j]
			}
		}
		ukk = f.lu.data[i*n+i]
		for j = 0; j < cols; j++ {
			x.data[i*cols+j] /= ukk
		}
	}

	return x, nil
}

// Solve returns X with A·X = B.
// Errors: see LU and LUFactors.Solve.
func Solve(a, b *Dense) (*Dense, error) {
	f, err := LU(a)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}

	return f.Solve(b)
}

// Inverse computes A⁻¹ by solving A·X = I with partial pivoting.
// Errors: ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrSingular.
// Complexity: Time O(n³), Space O(n²).
//
// AI-Hints:
//   - If you only need A⁻¹·b, call Solve instead of forming the inverse.
func Inverse(m *Dense) (*Dense, error) {
	f, err := LU(m)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}
	inv, err := f.Solve(identity(m.r))
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}

	return inv, nil
}

// Cond1 returns the 1-norm condition number ‖A‖₁·‖A⁻¹‖₁ together with A⁻¹.
// Errors: propagated from Inverse (ErrSingular for singular A).
func Cond1(m *Dense) (float64, *Dense, error) {
	inv, err := Inverse(m)
	if err != nil {
		return math.Inf(1), nil, matrixErrorf(opCond, err)
	}

	return Norm1(m) * Norm1(inv), inv, nil
}
