// SPDX-License-Identifier: MIT
package transition_test

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ctmctree/matrix"
	"github.com/katalvlaran/ctmctree/process"
	"github.com/katalvlaran/ctmctree/statespace"
	"github.com/katalvlaran/ctmctree/transition"
)

// build returns a single-axis process over n states from (from, to, rate)
// triples.
func build(t *testing.T, n int, triples [][3]float64) *process.Process {
	t.Helper()
	s, err := statespace.Full([]int{n})
	require.NoError(t, err)
	rows := make([][]int, len(triples))
	cols := make([][]int, len(triples))
	rates := make([]float64, len(triples))
	for k, tr := range triples {
		rows[k] = []int{int(tr[0])}
		cols[k] = []int{int(tr[1])}
		rates[k] = tr[2]
	}
	p, err := process.Build(s, rows, cols, rates)
	require.NoError(t, err)

	return p
}

func twoState(t *testing.T, a, b float64) *process.Process {
	return build(t, 2, [][3]float64{{0, 1, a}, {1, 0, b}})
}

// pureBirth has a single Jordan block at -1 and cannot be diagonalized.
func pureBirth(t *testing.T) *process.Process {
	return build(t, 3, [][3]float64{{0, 1, 1}, {1, 2, 1}})
}

// reversible is a 4-state birth-death chain (real spectrum).
func reversible(t *testing.T) *process.Process {
	return build(t, 4, [][3]float64{
		{0, 1, 0.7}, {1, 0, 0.3}, {1, 2, 1.1}, {2, 1, 0.4}, {2, 3, 0.9}, {3, 2, 1.6},
	})
}

func assertClose(t *testing.T, want, got *matrix.Dense, tol float64) {
	t.Helper()
	require.Equal(t, want.Rows(), got.Rows())
	for i, row := range want.ToRows() {
		for j, w := range row {
			g, err := got.At(i, j)
			require.NoError(t, err)
			assert.InDeltaf(t, w, g, tol, "entry [%d,%d]", i, j)
		}
	}
}

func TestTransition_TwoStateClosedForm(t *testing.T) {
	a, b := 1.3, 0.4
	c := transition.NewCache([]*process.Process{twoState(t, a, b)})
	m, err := c.Method(0)
	require.NoError(t, err)
	assert.Equal(t, transition.MethodEigen, m)

	for _, r := range []float64{0.01, 0.5, 2, 10} {
		p, err := c.Transition(0, r)
		require.NoError(t, err)
		s, e := a+b, math.Exp(-(a+b)*r)
		want, err := matrix.NewDenseFrom([][]float64{
			{(b + a*e) / s, a * (1 - e) / s},
			{b * (1 - e) / s, (a + b*e) / s},
		})
		require.NoError(t, err)
		assertClose(t, want, p, 1e-12)

		// For a single generator dP/dr = Q·P, so dP/dlog r = r·Q·P.
		d, err := c.Derivative(0, r)
		require.NoError(t, err)
		qp, err := matrix.Mul(twoState(t, a, b).Generator(), p)
		require.NoError(t, err)
		rqp, err := matrix.Scale(qp, r)
		require.NoError(t, err)
		assertClose(t, rqp, d, 1e-12)
	}
}

func TestTransition_RowStochasticAndIdentityLimit(t *testing.T) {
	for name, opts := range map[string][]transition.Option{
		"eigen": nil,
		"pade":  {transition.WithForcePade()},
	} {
		opts := opts
		t.Run(name, func(t *testing.T) {
			c := transition.NewCache([]*process.Process{reversible(t)}, opts...)
			for _, r := range []float64{0, 1e-9, 0.2, 1, 7.5} {
				p, err := c.Transition(0, r)
				require.NoError(t, err)
				for i, sum := range matrix.RowSums(p) {
					assert.InDeltaf(t, 1, sum, 1e-12, "r=%g row %d", r, i)
				}
				for _, row := range p.ToRows() {
					for _, v := range row {
						assert.GreaterOrEqual(t, v, -1e-12)
					}
				}
			}
			p, err := c.Transition(0, 0)
			require.NoError(t, err)
			ident, err := matrix.Identity(4)
			require.NoError(t, err)
			assertClose(t, ident, p, 1e-12)

			d, err := c.Derivative(0, 0)
			require.NoError(t, err)
			for _, row := range d.ToRows() {
				for _, v := range row {
					assert.InDelta(t, 0, v, 1e-15)
				}
			}
		})
	}
}

// TestDerivative_FiniteDifference checks the central difference of P
// converges to dP/dr with error shrinking like h².
func TestDerivative_FiniteDifference(t *testing.T) {
	c := transition.NewCache([]*process.Process{reversible(t)})
	r := 0.8
	d, err := c.Derivative(0, r)
	require.NoError(t, err)

	errAt := func(h float64) float64 {
		hi, err := c.Transition(0, r+h)
		require.NoError(t, err)
		lo, err := c.Transition(0, r-h)
		require.NoError(t, err)
		worst := 0.0
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				a, _ := hi.At(i, j)
				b, _ := lo.At(i, j)
				g, _ := d.At(i, j)
				fd := r * (a - b) / (2 * h)
				worst = math.Max(worst, math.Abs(fd-g))
			}
		}

		return worst
	}
	e1, e2 := errAt(1e-2), errAt(5e-3)
	assert.Less(t, e1, 1e-2)
	assert.Less(t, e2, e1/3, "central difference error should fall roughly fourfold when h halves")
}

func TestEigenAndPadeAgree(t *testing.T) {
	eig := transition.NewCache([]*process.Process{reversible(t)})
	pade := transition.NewCache([]*process.Process{reversible(t)}, transition.WithForcePade())

	m, err := pade.Method(0)
	require.NoError(t, err)
	assert.Equal(t, transition.MethodPade, m)

	for _, r := range []float64{0.05, 0.6, 3} {
		pe, err := eig.Transition(0, r)
		require.NoError(t, err)
		pp, err := pade.Transition(0, r)
		require.NoError(t, err)
		assertClose(t, pe, pp, 1e-11)

		de, err := eig.Derivative(0, r)
		require.NoError(t, err)
		dp, err := pade.Derivative(0, r)
		require.NoError(t, err)
		assertClose(t, de, dp, 1e-11)
	}
}

type countingObserver struct {
	hits, misses, fallbacks atomic.Int64
}

func (o *countingObserver) CacheHit(transition.Kind)  { o.hits.Add(1) }
func (o *countingObserver) CacheMiss(transition.Kind) { o.misses.Add(1) }
func (o *countingObserver) Fallback(int, error)       { o.fallbacks.Add(1) }

func TestDefectiveGenerator_UsesPadeFallback(t *testing.T) {
	obs := &countingObserver{}
	c := transition.NewCache([]*process.Process{pureBirth(t)}, transition.WithObserver(obs))
	m, err := c.Method(0)
	require.NoError(t, err)
	assert.Equal(t, transition.MethodPade, m)
	assert.EqualValues(t, 1, obs.fallbacks.Load())

	r := 0.7
	e := math.Exp(-r)
	p, err := c.Transition(0, r)
	require.NoError(t, err)
	want, err := matrix.NewDenseFrom([][]float64{
		{e, r * e, 1 - e - r*e},
		{0, e, 1 - e},
		{0, 0, 1},
	})
	require.NoError(t, err)
	assertClose(t, want, p, 1e-12)

	d, err := c.Derivative(0, r)
	require.NoError(t, err)
	wantD, err := matrix.NewDenseFrom([][]float64{
		{-r * e, r * e * (1 - r), r * r * e},
		{0, -r * e, r * e},
		{0, 0, 0},
	})
	require.NoError(t, err)
	assertClose(t, wantD, d, 1e-12)

	_, err = c.Method(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, obs.fallbacks.Load(), "decision is made once per process")
}

func TestCache_ComputesExactlyOnce(t *testing.T) {
	obs := &countingObserver{}
	c := transition.NewCache([]*process.Process{reversible(t), twoState(t, 1, 1)}, transition.WithObserver(obs))

	const workers = 64
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]*matrix.Dense, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			p, err := c.Transition(0, 1.25)
			assert.NoError(t, err)
			results[w] = p
		}(w)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, c.Computed())
	assert.EqualValues(t, 1, obs.misses.Load())
	assert.EqualValues(t, workers-1, obs.hits.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}

	// A different kind, scale or process is a separate entry.
	_, err := c.Derivative(0, 1.25)
	require.NoError(t, err)
	_, err = c.Transition(0, 1.5)
	require.NoError(t, err)
	_, err = c.Transition(1, 1.25)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Computed())
}

func TestCache_InvalidRequests(t *testing.T) {
	c := transition.NewCache([]*process.Process{twoState(t, 1, 2)})
	for _, r := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := c.Transition(0, r)
		assert.ErrorIs(t, err, transition.ErrInvalidScale)
	}
	_, err := c.Derivative(3, 1)
	assert.ErrorIs(t, err, transition.ErrUnknownProcess)
	_, err = c.Method(-1)
	assert.ErrorIs(t, err, transition.ErrUnknownProcess)
}

func TestOptions_PanicOnNonsense(t *testing.T) {
	assert.Panics(t, func() { transition.WithConditionThreshold(0.5) })
	assert.Panics(t, func() { transition.WithConditionThreshold(math.Inf(1)) })
	assert.Panics(t, func() { transition.WithImagTolerance(-1) })
	assert.NotPanics(t, func() { transition.WithConditionThreshold(1e3) })
}

func TestConditionThreshold_ForcesFallback(t *testing.T) {
	// Every non-orthogonal V has cond₁ > 1 so a threshold of 1 rejects it.
	c := transition.NewCache([]*process.Process{reversible(t)}, transition.WithConditionThreshold(1))
	m, err := c.Method(0)
	require.NoError(t, err)
	assert.Equal(t, transition.MethodPade, m)
}

// labeled returns a single-axis process from (from, to, rate, expect) rows.
func labeled(t *testing.T, n int, rows [][4]float64) *process.Process {
	t.Helper()
	s, err := statespace.Full([]int{n})
	require.NoError(t, err)
	from := make([][]int, len(rows))
	to := make([][]int, len(rows))
	rates := make([]float64, len(rows))
	expect := make([]float64, len(rows))
	for k, r := range rows {
		from[k], to[k] = []int{int(r[0])}, []int{int(r[1])}
		rates[k], expect[k] = r[2], r[3]
	}
	p, err := process.BuildLabeled(s, from, to, rates, expect)
	require.NoError(t, err)

	return p
}

func TestExpectation_SymmetricClosedForm(t *testing.T) {
	p := labeled(t, 2, [][4]float64{{0, 1, 1, 1}, {1, 0, 1, 1}})
	for _, opts := range [][]transition.Option{nil, {transition.WithForcePade()}} {
		c := transition.NewCache([]*process.Process{p}, opts...)
		for _, r := range []float64{0.1, 0.7, 4} {
			k, err := c.Expectation(0, r)
			require.NoError(t, err)
			e := math.Exp(-2 * r)
			same, diff := (1+e)/2, (1-e)/2
			want, err := matrix.NewDenseFrom([][]float64{{r * diff, r * same}, {r * same, r * diff}})
			require.NoError(t, err)
			assertClose(t, want, k, 1e-12)
		}
	}
}

func TestExpectation_FiniteDifference(t *testing.T) {
	procs := []*process.Process{
		labeled(t, 4, [][4]float64{
			{0, 1, 0.7, 1}, {1, 0, 0.3, -0.5}, {1, 2, 1.1, 2}, {2, 1, 0.4, 0}, {2, 3, 0.9, 1}, {3, 2, 1.6, 0.25},
		}),
		labeled(t, 3, [][4]float64{{0, 1, 1, 1}, {1, 2, 1, 3}}), // defective
	}
	c := transition.NewCache(procs)
	m, err := c.Method(1)
	require.NoError(t, err)
	assert.Equal(t, transition.MethodPade, m)

	r, h := 0.9, 1e-5
	for proc, p := range procs {
		k, err := c.Expectation(proc, r)
		require.NoError(t, err)

		shifted := func(eps float64) *matrix.Dense {
			a, err := matrix.Add(p.Generator(), mustScale(t, p.Labeled(), eps))
			require.NoError(t, err)
			x, err := matrix.Expm(mustScale(t, a, r))
			require.NoError(t, err)
			return x
		}
		hi, lo := shifted(h), shifted(-h)
		n := p.Size()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a, _ := hi.At(i, j)
				b, _ := lo.At(i, j)
				g, _ := k.At(i, j)
				assert.InDeltaf(t, (a-b)/(2*h), g, 1e-8, "process %d entry [%d,%d]", proc, i, j)
			}
		}
	}
}

func TestExpectation_Unlabeled(t *testing.T) {
	c := transition.NewCache([]*process.Process{twoState(t, 1, 2)})
	_, err := c.Expectation(0, 1)
	assert.ErrorIs(t, err, transition.ErrUnlabeled)
	assert.NotErrorIs(t, err, transition.ErrNumericInstability)
	_, err = c.Expectation(0, -1)
	assert.ErrorIs(t, err, transition.ErrInvalidScale)
	assert.Equal(t, "expectation", transition.KindExpectation.String())
}

func mustScale(t *testing.T, m *matrix.Dense, alpha float64) *matrix.Dense {
	t.Helper()
	s, err := matrix.Scale(m, alpha)
	require.NoError(t, err)

	return s
}
