// SPDX-License-Identifier: MIT

package tree

import (
	"errors"
	"fmt"
)

// ErrInvalidTopology is returned when the edge arrays do not describe a
// single rooted tree over [0, nodeCount).
var ErrInvalidTopology = errors.New("tree: invalid topology")

// NoEdge marks the missing parent edge of the root.
const NoEdge = -1

// Edge is a directed parent→child link identified by its input position.
type Edge struct {
	ID     int
	Parent int
	Child  int
}

// Tree is an immutable rooted tree.
type Tree struct {
	edges    []Edge
	parent   []int   // node → parent edge id, NoEdge for the root
	children [][]int // node → child edge ids, input order
	root     int
	post     []int
	pre      []int
}

// New validates rows/cols and returns the rooted tree they describe.
//
// Implementation:
//   - Stage 1: Range-check every endpoint, reject self-loops and second
//     parent edges.
//   - Stage 2: Locate the unique root.
//   - Stage 3: Kahn ordering from the root; every node must be reached.
//   - Stage 4: Record depth-first pre- and post-orders with siblings in edge
//     order.
func New(nodeCount int, rows, cols []int) (*Tree, error) {
	if nodeCount <= 0 {
		return nil, fmt.Errorf("tree: New: node count %d: %w", nodeCount, ErrInvalidTopology)
	}
	if len(rows) != len(cols) {
		return nil, fmt.Errorf("tree: New: %d rows vs %d cols: %w", len(rows), len(cols), ErrInvalidTopology)
	}

	t := &Tree{
		edges:    make([]Edge, len(rows)),
		parent:   make([]int, nodeCount),
		children: make([][]int, nodeCount),
		root:     NoEdge,
	}
	for v := range t.parent {
		t.parent[v] = NoEdge
	}

	// 1. Endpoints and parent uniqueness
	for k := range rows {
		u, v := rows[k], cols[k]
		if u < 0 || u >= nodeCount || v < 0 || v >= nodeCount {
			return nil, fmt.Errorf("tree: New: edge %d (%d→%d) outside [0,%d): %w", k, u, v, nodeCount, ErrInvalidTopology)
		}
		if u == v {
			return nil, fmt.Errorf("tree: New: edge %d is a self-loop on node %d: %w", k, u, ErrInvalidTopology)
		}
		if prev := t.parent[v]; prev != NoEdge {
			return nil, fmt.Errorf("tree: New: node %d has parent edges %d and %d: %w", v, prev, k, ErrInvalidTopology)
		}
		t.parent[v] = k
		t.children[u] = append(t.children[u], k)
		t.edges[k] = Edge{ID: k, Parent: u, Child: v}
	}

	// 2. Unique root
	for v, e := range t.parent {
		if e != NoEdge {
			continue
		}
		if t.root != NoEdge {
			return nil, fmt.Errorf("tree: New: nodes %d and %d both lack a parent: %w", t.root, v, ErrInvalidTopology)
		}
		t.root = v
	}
	if t.root == NoEdge {
		return nil, fmt.Errorf("tree: New: every node has a parent: %w", ErrInvalidTopology)
	}

	// 3. Kahn: each non-root node has in-degree 1, released when its parent is dequeued.
	indeg := make([]int, nodeCount)
	for _, e := range t.edges {
		indeg[e.Child]++
	}
	queue := []int{t.root}
	reached := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		reached++
		for _, k := range t.children[u] {
			c := t.edges[k].Child
			indeg[c]--
			if indeg[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	if reached != nodeCount {
		return nil, fmt.Errorf("tree: New: %d of %d nodes unreachable from root %d (cycle): %w",
			nodeCount-reached, nodeCount, t.root, ErrInvalidTopology)
	}

	// 4. Orders
	t.pre, t.post = t.walk()

	return t, nil
}

// walk performs an iterative depth-first traversal from the root.
func (t *Tree) walk() (pre, post []int) {
	n := len(t.parent)
	pre = make([]int, 0, n)
	post = make([]int, 0, n)

	type frame struct{ node, next int }
	stack := []frame{{node: t.root}}
	pre = append(pre, t.root)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(t.children[top.node]) {
			c := t.edges[t.children[top.node][top.next]].Child
			top.next++
			pre = append(pre, c)
			stack = append(stack, frame{node: c})
			continue
		}
		post = append(post, top.node)
		stack = stack[:len(stack)-1]
	}

	return pre, post
}

// NodeCount returns the number of nodes.
func (t *Tree) NodeCount() int { return len(t.parent) }

// EdgeCount returns the number of edges (NodeCount()-1).
func (t *Tree) EdgeCount() int { return len(t.edges) }

// Root returns the root node.
func (t *Tree) Root() int { return t.root }

// ParentEdge returns the parent edge id of v, or NoEdge for the root or an
// out-of-range node.
func (t *Tree) ParentEdge(v int) int {
	if v < 0 || v >= len(t.parent) {
		return NoEdge
	}

	return t.parent[v]
}

// ChildEdges returns a copy of v's child edge ids in input order.
func (t *Tree) ChildEdges(v int) []int {
	if v < 0 || v >= len(t.children) {
		return nil
	}

	return append([]int(nil), t.children[v]...)
}

// Edge returns edge id and whether it exists.
func (t *Tree) Edge(id int) (Edge, bool) {
	if id < 0 || id >= len(t.edges) {
		return Edge{}, false
	}

	return t.edges[id], true
}

// PostOrder returns every node with children before their parent.
func (t *Tree) PostOrder() []int { return append([]int(nil), t.post...) }

// PreOrder returns every node with parents before their children.
func (t *Tree) PreOrder() []int { return append([]int(nil), t.pre...) }

// PathToRoot returns the edge ids from id up to the root, id first.
func (t *Tree) PathToRoot(id int) ([]int, error) {
	if id < 0 || id >= len(t.edges) {
		return nil, fmt.Errorf("tree: PathToRoot: edge %d not in [0,%d): %w", id, len(t.edges), ErrInvalidTopology)
	}
	path := []int{id}
	for e := t.parent[t.edges[id].Parent]; e != NoEdge; e = t.parent[t.edges[e].Parent] {
		path = append(path, e)
	}

	return path, nil
}
