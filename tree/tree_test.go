// SPDX-License-Identifier: MIT
package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ctmctree/tree"
)

// Edges listed leaf-first to make sure input order is not assumed to be
// root-to-leaf:
//
//	    2
//	  /   \
//	 0     4
//	      / \
//	     1   3
func sample(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.New(5, []int{4, 2, 4, 2}, []int{3, 0, 1, 4})
	require.NoError(t, err)

	return tr
}

func TestNew_Adjacency(t *testing.T) {
	tr := sample(t)
	assert.Equal(t, 2, tr.Root())
	assert.Equal(t, 5, tr.NodeCount())
	assert.Equal(t, 4, tr.EdgeCount())

	assert.Equal(t, tree.NoEdge, tr.ParentEdge(2))
	assert.Equal(t, 1, tr.ParentEdge(0))
	assert.Equal(t, 0, tr.ParentEdge(3))
	assert.Equal(t, tree.NoEdge, tr.ParentEdge(7))

	assert.Equal(t, []int{1, 3}, tr.ChildEdges(2))
	assert.Equal(t, []int{0, 2}, tr.ChildEdges(4))
	assert.Empty(t, tr.ChildEdges(0))

	e, ok := tr.Edge(3)
	require.True(t, ok)
	assert.Equal(t, tree.Edge{ID: 3, Parent: 2, Child: 4}, e)
	_, ok = tr.Edge(4)
	assert.False(t, ok)
}

func TestOrders_FollowEdgeOrder(t *testing.T) {
	tr := sample(t)
	assert.Equal(t, []int{0, 3, 1, 4, 2}, tr.PostOrder())
	assert.Equal(t, []int{2, 0, 4, 3, 1}, tr.PreOrder())

	// Children always precede their parent in post-order.
	pos := make(map[int]int)
	for i, v := range tr.PostOrder() {
		pos[v] = i
	}
	for id := 0; id < tr.EdgeCount(); id++ {
		e, _ := tr.Edge(id)
		assert.Less(t, pos[e.Child], pos[e.Parent])
	}
}

func TestPathToRoot(t *testing.T) {
	tr := sample(t)
	p, err := tr.PathToRoot(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, p)

	p, err = tr.PathToRoot(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, p)

	_, err = tr.PathToRoot(9)
	assert.ErrorIs(t, err, tree.ErrInvalidTopology)
}

func TestNew_SingleNode(t *testing.T) {
	tr, err := tree.New(1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Root())
	assert.Equal(t, []int{0}, tr.PostOrder())
}

func TestNew_InvalidTopology(t *testing.T) {
	cases := []struct {
		name       string
		n          int
		rows, cols []int
	}{
		{"no-nodes", 0, nil, nil},
		{"length", 3, []int{0, 0}, []int{1}},
		{"out-of-range", 3, []int{0, 0}, []int{1, 3}},
		{"negative", 3, []int{-1, 0}, []int{1, 2}},
		{"self-loop", 2, []int{0, 1}, []int{1, 1}},
		{"two-parents", 3, []int{0, 1}, []int{2, 2}},
		{"two-roots", 3, []int{0}, []int{1}},
		{"no-root", 2, []int{0, 1}, []int{1, 0}},
		// 0 is the only parentless node; 1→2→3→1 is detached from it.
		{"cycle", 4, []int{1, 2, 3}, []int{2, 3, 1}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := tree.New(tc.n, tc.rows, tc.cols)
			assert.ErrorIs(t, err, tree.ErrInvalidTopology)
		})
	}
}
