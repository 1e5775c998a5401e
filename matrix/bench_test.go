// SPDX-License-Identifier: MIT
package matrix_test

import (
	"math/rand"
	"testing"

	"github.com/katalvlaran/ctmctree/matrix"
)

// randomGenerator returns an n×n generator with off-diagonal rates in
// [0, 1) and zero row sums.
func randomGenerator(b *testing.B, n int, seed int64) *matrix.Dense {
	b.Helper()
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = rng.Float64()
				rows[i][i] -= rows[i][j]
			}
		}
	}
	m, err := matrix.NewDenseFrom(rows)
	if err != nil {
		b.Fatal(err)
	}

	return m
}

// BenchmarkExpm_Generator20 exponentiates a dense 20-state generator; its
// norm forces the scaled degree-13 branch.
func BenchmarkExpm_Generator20(b *testing.B) {
	q := randomGenerator(b, 20, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = matrix.Expm(q)
	}
}

// BenchmarkEigenReal_Generator20 decomposes the same generator.
func BenchmarkEigenReal_Generator20(b *testing.B) {
	q := randomGenerator(b, 20, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = matrix.EigenReal(q, matrix.DefaultImagTolerance)
	}
}
