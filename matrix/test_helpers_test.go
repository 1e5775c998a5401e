// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers
//
// Purpose:
//   • Provide small, deterministic fixtures and comparison utilities for kernels.

package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ctmctree/matrix"
)

// MustFrom builds a Dense from literal rows or fails the test.
func MustFrom(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows)
	require.NoError(t, err)

	return m
}

// MustAt reads (i, j) or fails the test.
func MustAt(t *testing.T, m *matrix.Dense, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	require.NoError(t, err)

	return v
}

// AllClose asserts |want[i][j] - got(i,j)| ≤ tol for every entry.
func AllClose(t *testing.T, want [][]float64, got *matrix.Dense, tol float64) {
	t.Helper()
	require.Equal(t, len(want), got.Rows(), "row count")
	for i := range want {
		require.Equal(t, len(want[i]), got.Cols(), "col count")
		for j := range want[i] {
			v := MustAt(t, got, i, j)
			require.InDeltaf(t, want[i][j], v, tol, "entry [%d,%d]", i, j)
		}
	}
}

// twoStateGenerator returns Q = [[-a, a], [b, -b]].
func twoStateGenerator(t *testing.T, a, b float64) *matrix.Dense {
	t.Helper()

	return MustFrom(t, [][]float64{{-a, a}, {b, -b}})
}

// twoStateExp is the closed form of exp(r·Q) for twoStateGenerator.
func twoStateExp(a, b, r float64) [][]float64 {
	s := a + b
	e := math.Exp(-s * r)

	return [][]float64{
		{(b + a*e) / s, a * (1 - e) / s},
		{b * (1 - e) / s, (a + b*e) / s},
	}
}
