// SPDX-License-Identifier: MIT
package process_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ctmctree/process"
	"github.com/katalvlaran/ctmctree/statespace"
)

func binarySpace(t *testing.T) *statespace.Space {
	t.Helper()
	s, err := statespace.Full([]int{2, 2})
	require.NoError(t, err)

	return s
}

func TestBuild_RowSumsZero(t *testing.T) {
	s := binarySpace(t)
	p, err := process.Build(s,
		[][]int{{0, 0}, {0, 0}, {0, 1}, {1, 0}, {1, 1}},
		[][]int{{0, 1}, {1, 0}, {1, 1}, {1, 1}, {0, 0}},
		[]float64{0.5, 1.25, 2, 0.1, 3.5},
	)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Size())
	for i, sum := range p.RowSums() {
		assert.InDeltaf(t, 0, sum, 1e-15, "row %d", i)
	}
	assert.InDelta(t, 1.75, p.ExitRate(0), 1e-15)
	assert.InDelta(t, 3.5, p.ExitRate(3), 1e-15)
	assert.Equal(t, 0.0, p.ExitRate(9))
}

func TestBuild_DuplicatesAccumulate(t *testing.T) {
	s := binarySpace(t)
	p, err := process.Build(s,
		[][]int{{0, 0}, {0, 0}, {0, 0}},
		[][]int{{1, 1}, {1, 1}, {1, 1}},
		[]float64{0.25, 0.5, 1},
	)
	require.NoError(t, err)
	q := p.Generator()
	v, err := q.At(0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, v, 1e-15)
	d, err := q.At(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, -1.75, d, 1e-15)
	assert.Equal(t, 3, p.Transitions())
}

func TestBuild_SelfTransitionIgnored(t *testing.T) {
	s := binarySpace(t)
	p, err := process.Build(s, [][]int{{1, 0}}, [][]int{{1, 0}}, []float64{4})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Transitions())
	assert.Equal(t, 0.0, p.ExitRate(2))
}

func TestBuild_GeneratorIsCopy(t *testing.T) {
	s := binarySpace(t)
	p, err := process.Build(s, [][]int{{0, 0}}, [][]int{{0, 1}}, []float64{1})
	require.NoError(t, err)
	q := p.Generator()
	require.NoError(t, q.Set(0, 1, 9))
	again, err := p.Generator().At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again)
}

func TestBuild_Invalid(t *testing.T) {
	restricted, err := statespace.New([]int{2, 2}, [][]int{{0, 0}, {1, 1}})
	require.NoError(t, err)

	cases := []struct {
		name  string
		rows  [][]int
		cols  [][]int
		rates []float64
	}{
		{"length", [][]int{{0, 0}}, [][]int{{1, 1}}, nil},
		{"zero-rate", [][]int{{0, 0}}, [][]int{{1, 1}}, []float64{0}},
		{"negative-rate", [][]int{{0, 0}}, [][]int{{1, 1}}, []float64{-1}},
		{"nan-rate", [][]int{{0, 0}}, [][]int{{1, 1}}, []float64{math.NaN()}},
		{"inf-rate", [][]int{{0, 0}}, [][]int{{1, 1}}, []float64{math.Inf(1)}},
		{"infeasible-target", [][]int{{0, 0}}, [][]int{{0, 1}}, []float64{1}},
		{"infeasible-source", [][]int{{1, 0}}, [][]int{{1, 1}}, []float64{1}},
		{"malformed", [][]int{{0, 0, 0}}, [][]int{{1, 1}}, []float64{1}},
		{"out-of-range", [][]int{{0, 0}}, [][]int{{2, 1}}, []float64{1}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := process.Build(restricted, tc.rows, tc.cols, tc.rates)
			assert.ErrorIs(t, err, process.ErrInvalidTransition)
		})
	}

	_, err = process.Build(nil, nil, nil, nil)
	assert.ErrorIs(t, err, process.ErrInvalidTransition)
}

func TestBuildLabeled_WeightsAccumulate(t *testing.T) {
	s := binarySpace(t)
	p, err := process.BuildLabeled(s,
		[][]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}},
		[][]int{{1, 1}, {1, 1}, {0, 0}, {1, 1}},
		[]float64{0.25, 0.5, 2, 7},
		[]float64{1, -2, 0.5, 3},
	)
	require.NoError(t, err)
	e := p.Labeled()
	require.NotNil(t, e)
	v, err := e.At(0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.25-1, v, 1e-15)
	v, err = e.At(3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-15)
	for i := 0; i < p.Size(); i++ {
		d, err := e.At(i, i)
		require.NoError(t, err)
		assert.Equalf(t, 0.0, d, "diagonal %d", i)
	}

	// The generator is the same as without weights.
	plain, err := process.Build(s,
		[][]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}},
		[][]int{{1, 1}, {1, 1}, {0, 0}, {1, 1}},
		[]float64{0.25, 0.5, 2, 7},
	)
	require.NoError(t, err)
	assert.Equal(t, plain.Generator(), p.Generator())
	assert.Nil(t, plain.Labeled())
}

func TestBuildLabeled_Invalid(t *testing.T) {
	s := binarySpace(t)
	_, err := process.BuildLabeled(s, [][]int{{0, 0}}, [][]int{{0, 1}}, []float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, process.ErrInvalidTransition)
	_, err = process.BuildLabeled(s, [][]int{{0, 0}}, [][]int{{0, 1}}, []float64{1}, []float64{math.Inf(-1)})
	assert.ErrorIs(t, err, process.ErrInvalidTransition)
}
