// SPDX-License-Identifier: MIT

// Package matrix - elementwise and product kernels.
//
// Purpose:
//   - Public, validated facades (Add, Scale, Hadamard, Mul, MatVec, VecMat,
//     Norm1, RowSums).
//   - Unchecked internal twins (mulDense, axpy) for kernels that already
//     validated their operands (Expm, LU).

package matrix

import "math"

// ZeroSum is the initial value for accumulations.
const ZeroSum = 0.0

// Add computes the element-wise sum C = A + B and returns a fresh Dense result.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func Add(a, b *Dense) (*Dense, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return nil, matrixErrorf(opAdd, err)
	}
	res := &Dense{r: a.r, c: a.c, data: make([]float64, len(a.data))}
	for idx := range a.data { // deterministic 0..n-1
		res.data[idx] = a.data[idx] + b.data[idx]
	}

	return res, nil
}

// Scale returns a new matrix whose elements are alpha * m[i,j].
// Errors: ErrNilMatrix.
func Scale(m *Dense, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}

	return scaled(m, alpha), nil
}

// scaled is the unchecked twin of Scale.
func scaled(m *Dense, alpha float64) *Dense {
	res := &Dense{r: m.r, c: m.c, data: make([]float64, len(m.data))}
	for idx, v := range m.data {
		res.data[idx] = alpha * v
	}

	return res
}

// Hadamard returns the element-wise product C[i,j] = A[i,j]·B[i,j].
// Errors: ErrNilMatrix, ErrDimensionMismatch.
func Hadamard(a, b *Dense) (*Dense, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return nil, matrixErrorf(opHad, err)
	}
	res := &Dense{r: a.r, c: a.c, data: make([]float64, len(a.data))}
	for idx := range a.data {
		res.data[idx] = a.data[idx] * b.data[idx]
	}

	return res, nil
}

// Mul performs standard matrix multiplication C = A × B (no aliasing).
//
// Implementation:
//   - Stage 1: ValidateMulCompatible(a, b).
//   - Stage 2: i→k→j loop so the innermost walk is contiguous in both b and c.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch.
//
// Complexity:
//   - Time O(r*k*c), Space O(r*c).
func Mul(a, b *Dense) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	return mulDense(a, b), nil
}

// mulDense multiplies already-validated operands.
func mulDense(a, b *Dense) *Dense {
	res := &Dense{r: a.r, c: b.c, data: make([]float64, a.r*b.c)}
	var i, k, j int
	var aik float64
	var rowA, rowB, rowC []float64
	for i = 0; i < a.r; i++ {
		rowA = a.data[i*a.c : (i+1)*a.c]
		rowC = res.data[i*b.c : (i+1)*b.c]
		for k = 0; k < a.c; k++ {
			aik = rowA[k]
			if aik == 0 { // sparse generators make this worthwhile
				continue
			}
			rowB = b.data[k*b.c : (k+1)*b.c]
			for j = 0; j < b.c; j++ {
				rowC[j] += aik * rowB[j]
			}
		}
	}

	return res
}

// axpy performs y += alpha*x in place on same-shaped matrices.
func axpy(y *Dense, alpha float64, x *Dense) {
	if alpha == 0 {
		return
	}
	for idx, v := range x.data {
		y.data[idx] += alpha * v
	}
}

// MatVec computes y = m * x for a column vector x.
//
// Contract: m non-nil; len(x) == m.Cols().
// Determinism: fixed i→j loop order.
// Complexity: Time O(r*c), Space O(r) for y.
func MatVec(m *Dense, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.c); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, m.r)
	var i, j, base int
	var acc float64
	for i = 0; i < m.r; i++ {
		acc = ZeroSum
		base = i * m.c
		for j = 0; j < m.c; j++ {
			acc += m.data[base+j] * x[j]
		}
		y[i] = acc
	}

	return y, nil
}

// VecMat computes the row-vector product y = xᵀ * m, i.e. mᵀ·x.
//
// Contract: m non-nil; len(x) == m.Rows().
// Complexity: Time O(r*c), Space O(c) for y.
func VecMat(x []float64, m *Dense) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opVecMat, err)
	}
	if err := ValidateVecLen(x, m.r); err != nil {
		return nil, matrixErrorf(opVecMat, err)
	}
	y := make([]float64, m.c)
	var i, j, base int
	var xi float64
	for i = 0; i < m.r; i++ {
		xi = x[i]
		if xi == 0 {
			continue
		}
		base = i * m.c
		for j = 0; j < m.c; j++ {
			y[j] += xi * m.data[base+j]
		}
	}

	return y, nil
}

// Norm1 returns the maximum absolute column sum ‖m‖₁.
// A nil matrix has norm 0.
func Norm1(m *Dense) float64 {
	if m == nil {
		return 0
	}
	sums := make([]float64, m.c)
	var i, j int
	for i = 0; i < m.r; i++ {
		for j = 0; j < m.c; j++ {
			sums[j] += math.Abs(m.data[i*m.c+j])
		}
	}
	best := 0.0
	for _, s := range sums {
		if s > best {
			best = s
		}
	}

	return best
}

// RowSums returns the sum of each row of m.
func RowSums(m *Dense) []float64 {
	if m == nil {
		return nil
	}
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		acc := ZeroSum
		for _, v := range m.data[i*m.c : (i+1)*m.c] {
			acc += v
		}
		out[i] = acc
	}

	return out
}

// ScaleColumns returns m·diag(d): column j of m multiplied by d[j].
//
// Contract: m non-nil; len(d) == m.Cols().
// Complexity: Time O(r*c), Space O(r*c).
func ScaleColumns(m *Dense, d []float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	if err := ValidateVecLen(d, m.c); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	out := m.Clone()
	var i, j int
	for i = 0; i < m.r; i++ {
		for j = 0; j < m.c; j++ {
			out.data[i*m.c+j] *= d[j]
		}
	}

	return out, nil
}
