// SPDX-License-Identifier: MIT
package prune_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ctmctree/matrix"
	"github.com/katalvlaran/ctmctree/process"
	"github.com/katalvlaran/ctmctree/prune"
	"github.com/katalvlaran/ctmctree/statespace"
	"github.com/katalvlaran/ctmctree/transition"
	"github.com/katalvlaran/ctmctree/tree"
)

// fixture is a fully specified single-evaluation model.
type fixture struct {
	space    *statespace.Space
	procs    []*process.Process
	tree     *tree.Tree
	branches []prune.Branch
	prior    []float64
	obsNodes []int
	obsAxes  []int
}

func (f fixture) engine(t *testing.T, opts ...transition.Option) *prune.Engine {
	t.Helper()
	e, err := prune.NewEngine(prune.Config{
		Space:         f.space,
		Tree:          f.tree,
		Operators:     transition.NewCache(f.procs, opts...),
		Branches:      f.branches,
		Prior:         f.prior,
		ObservedNodes: f.obsNodes,
		ObservedAxes:  f.obsAxes,
	})
	require.NoError(t, err)

	return e
}

// withScale returns a copy of f with edge id rescaled.
func (f fixture) withScale(id int, scale float64) fixture {
	f.branches = append([]prune.Branch(nil), f.branches...)
	f.branches[id].Scale = scale

	return f
}

// star is the two-leaf, two-state symmetric model: root 0, leaves 1 and 2,
// both leaves observed on axis 0.
func star(t *testing.T, r1, r2 float64) fixture {
	t.Helper()
	s, err := statespace.Full([]int{2})
	require.NoError(t, err)
	p, err := process.Build(s, [][]int{{0}, {1}}, [][]int{{1}, {0}}, []float64{1, 1})
	require.NoError(t, err)
	tr, err := tree.New(3, []int{0, 0}, []int{1, 2})
	require.NoError(t, err)

	return fixture{
		space:    s,
		procs:    []*process.Process{p},
		tree:     tr,
		branches: []prune.Branch{{Process: 0, Scale: r1}, {Process: 0, Scale: r2}},
		prior:    []float64{0.5, 0.5},
		obsNodes: []int{1, 2},
		obsAxes:  []int{0, 0},
	}
}

// randomFixture draws a tree over n nodes, a 2×2 joint state space, two
// processes and observations of both axes at every non-root node.
func randomFixture(t *testing.T, rng *rand.Rand, n int) fixture {
	t.Helper()
	s, err := statespace.Full([]int{2, 2})
	require.NoError(t, err)

	procs := make([]*process.Process, 2)
	for k := range procs {
		var rows, cols [][]int
		var rates []float64
		for i := 0; i < s.Size(); i++ {
			for j := 0; j < s.Size(); j++ {
				// The cycle i→i+1 is always kept so every chain is irreducible.
				if i == j || (j != (i+1)%s.Size() && rng.Float64() < 0.2) {
					continue
				}
				rows = append(rows, s.State(i))
				cols = append(cols, s.State(j))
				rates = append(rates, 0.1+rng.Float64())
			}
		}
		procs[k], err = process.Build(s, rows, cols, rates)
		require.NoError(t, err)
	}

	// Random labels so the root is not always node 0, and shuffled edge order.
	label := rng.Perm(n)
	rows := make([]int, 0, n-1)
	cols := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		rows = append(rows, label[rng.Intn(i)])
		cols = append(cols, label[i])
	}
	rng.Shuffle(len(rows), func(a, b int) {
		rows[a], rows[b] = rows[b], rows[a]
		cols[a], cols[b] = cols[b], cols[a]
	})
	tr, err := tree.New(n, rows, cols)
	require.NoError(t, err)

	branches := make([]prune.Branch, n-1)
	for k := range branches {
		branches[k] = prune.Branch{Process: rng.Intn(len(procs)), Scale: 0.05 + 1.5*rng.Float64()}
	}

	prior := make([]float64, s.Size())
	total := 0.0
	for i := range prior {
		prior[i] = 0.2 + rng.Float64()
		total += prior[i]
	}
	for i := range prior {
		prior[i] /= total
	}

	var obsNodes, obsAxes []int
	for v := 0; v < n; v++ {
		if v == tr.Root() {
			continue
		}
		obsNodes = append(obsNodes, v, v)
		obsAxes = append(obsAxes, 0, 1)
	}

	return fixture{space: s, procs: procs, tree: tr, branches: branches, prior: prior, obsNodes: obsNodes, obsAxes: obsAxes}
}

// randomValues draws one site, leaving roughly a quarter of the rows missing.
func randomValues(rng *rand.Rand, f fixture) []int {
	vals := make([]int, len(f.obsNodes))
	for k := range vals {
		if rng.Float64() < 0.25 {
			vals[k] = statespace.MissingValue
			continue
		}
		vals[k] = rng.Intn(f.space.Shape()[f.obsAxes[k]])
	}

	return vals
}

// bruteForce sums prior·Π P·Π I over every assignment of states to nodes.
func bruteForce(t *testing.T, f fixture, values []int) float64 {
	t.Helper()
	n, states := f.tree.NodeCount(), f.space.Size()
	mats := make([]*matrix.Dense, len(f.branches))
	for k, b := range f.branches {
		q, err := matrix.Scale(f.procs[b.Process].Generator(), b.Scale)
		require.NoError(t, err)
		mats[k], err = matrix.Expm(q)
		require.NoError(t, err)
	}

	assign := make([]int, n)
	total := 0.0
	for code := 0; code < int(math.Pow(float64(states), float64(n))); code++ {
		c := code
		for v := range assign {
			assign[v] = c % states
			c /= states
		}
		w := f.prior[assign[f.tree.Root()]]
		for k, val := range values {
			if f.space.IsMissing(f.obsAxes[k], val) {
				continue
			}
			if !f.space.Consistent(assign[f.obsNodes[k]], f.obsAxes[k], val) {
				w = 0
			}
		}
		for id := range f.branches {
			e, _ := f.tree.Edge(id)
			p, err := mats[id].At(assign[e.Parent], assign[e.Child])
			require.NoError(t, err)
			w *= p
		}
		total += w
	}

	return total
}
