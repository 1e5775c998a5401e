// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// All kernels return these sentinels (possibly wrapped with an operation tag)
// and tests check them via errors.Is. No kernel panics on user-triggered
// error conditions.

package matrix

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "matrix: ..." for consistency. Kernels wrap
// these sentinels with matrixErrorf(op, err); callers match with errors.Is.

var (
	// ErrInvalidDimensions indicates that requested matrix dimensions are non-positive.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrOutOfRange indicates that an index (row or column) is outside valid bounds.
	// Public indexers (At/Set) MUST return this, not panic.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between operands,
	// e.g., Add with different shapes, or Mul where a.Cols != b.Rows.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required but the input wasn't.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil *Dense (receiver or argument) was used.
	ErrNilMatrix = errors.New("matrix: nil receiver")

	// ErrSingular is returned when an exactly zero pivot survives partial pivoting.
	ErrSingular = errors.New("matrix: singular matrix")

	// ErrEigenFailed indicates that the eigensolver did not converge.
	ErrEigenFailed = errors.New("matrix: eigen decomposition failed")

	// ErrComplexSpectrum indicates that a real eigendecomposition was requested
	// but at least one eigenvalue has a non-negligible imaginary part.
	ErrComplexSpectrum = errors.New("matrix: spectrum is not real")
)

// Operation name constants for unified error wrapping.
const (
	opAdd     = "Add"
	opMul     = "Mul"
	opScale   = "Scale"
	opHad     = "Hadamard"
	opMatVec  = "MatVec"
	opVecMat  = "VecMat"
	opLU      = "LU"
	opSolve   = "Solve"
	opInverse = "Inverse"
	opCond    = "Cond1"
	opExpm    = "Expm"
	opFrechet = "ExpmFrechet"
	opEigen   = "EigenReal"
	opFrom    = "NewDenseFrom"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
//
// AI-Hints:
//   - Always gate calls with `if err != nil { return nil, matrixErrorf(tag, err) }`.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
