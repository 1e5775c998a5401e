// SPDX-License-Identifier: MIT

package prune

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/ctmctree/matrix"
	"github.com/katalvlaran/ctmctree/statespace"
	"github.com/katalvlaran/ctmctree/tree"
)

// Operators supplies per-edge transition operators; *transition.Cache
// implements it.
type Operators interface {
	Transition(proc int, scale float64) (*matrix.Dense, error)
	Derivative(proc int, scale float64) (*matrix.Dense, error)
}

// Branch binds a tree edge to a process and its rate-scaling factor.
type Branch struct {
	Process int
	Scale   float64
}

// Config collects the read-only inputs of an Engine.
type Config struct {
	Space     *statespace.Space
	Tree      *tree.Tree
	Operators Operators
	// Branches[k] parameterizes tree edge k.
	Branches []Branch
	// Prior over the feasible states of Space.
	Prior []float64
	// Observation row k is the (ObservedNodes[k], ObservedAxes[k]) pair.
	ObservedNodes []int
	ObservedAxes  []int
}

// Engine evaluates single sites. It is safe for concurrent use.
type Engine struct {
	space    *statespace.Space
	tree     *tree.Tree
	ops      Operators
	branches []Branch
	prior    []float64
	obsNodes []int
	obsAxes  []int

	edges    []tree.Edge
	children [][]int
	post     []int
	pre      []int
}

// SiteResult holds one site's likelihood and requested log-derivatives.
type SiteResult struct {
	// Likelihood is the site scalar Σ prior·L_root (> 0).
	Likelihood float64
	// Derivatives[i] is d(log Likelihood)/d(log r) for the i-th requested edge.
	Derivatives []float64
}

// pass is the retained state of one forward sweep.
type pass struct {
	ind    [][]float64 // node → indicator, nil when unobserved
	l      [][]float64 // node → partial likelihood
	msg    [][]float64 // edge → P_e·L_child
	scalar float64
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Space == nil || cfg.Tree == nil || cfg.Operators == nil {
		return nil, fmt.Errorf("prune: NewEngine: space, tree and operators are required: %w", ErrInvalidInput)
	}
	n, f := cfg.Tree.NodeCount(), cfg.Space.Size()
	if len(cfg.Branches) != cfg.Tree.EdgeCount() {
		return nil, fmt.Errorf("prune: NewEngine: %d branches for %d edges: %w",
			len(cfg.Branches), cfg.Tree.EdgeCount(), ErrInvalidInput)
	}
	for k, b := range cfg.Branches {
		if math.IsNaN(b.Scale) || math.IsInf(b.Scale, 0) || b.Scale <= 0 {
			return nil, fmt.Errorf("prune: NewEngine: edge %d scale %v: %w", k, b.Scale, ErrInvalidInput)
		}
	}
	if len(cfg.Prior) != f {
		return nil, fmt.Errorf("prune: NewEngine: prior has %d entries for %d states: %w", len(cfg.Prior), f, ErrInvalidInput)
	}
	for s, p := range cfg.Prior {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return nil, fmt.Errorf("prune: NewEngine: prior[%d] = %v: %w", s, p, ErrInvalidInput)
		}
	}
	if len(cfg.ObservedNodes) != len(cfg.ObservedAxes) {
		return nil, fmt.Errorf("prune: NewEngine: %d observed nodes vs %d axes: %w",
			len(cfg.ObservedNodes), len(cfg.ObservedAxes), ErrInvalidInput)
	}
	for k := range cfg.ObservedNodes {
		if v := cfg.ObservedNodes[k]; v < 0 || v >= n {
			return nil, fmt.Errorf("prune: NewEngine: observation row %d node %d: %w", k, v, ErrInvalidInput)
		}
		if a := cfg.ObservedAxes[k]; a < 0 || a >= cfg.Space.Axes() {
			return nil, fmt.Errorf("prune: NewEngine: observation row %d axis %d: %w", k, a, ErrInvalidInput)
		}
	}

	e := &Engine{
		space:    cfg.Space,
		tree:     cfg.Tree,
		ops:      cfg.Operators,
		branches: append([]Branch(nil), cfg.Branches...),
		prior:    append([]float64(nil), cfg.Prior...),
		obsNodes: append([]int(nil), cfg.ObservedNodes...),
		obsAxes:  append([]int(nil), cfg.ObservedAxes...),
		edges:    make([]tree.Edge, cfg.Tree.EdgeCount()),
		children: make([][]int, n),
		post:     cfg.Tree.PostOrder(),
		pre:      cfg.Tree.PreOrder(),
	}
	for id := range e.edges {
		e.edges[id], _ = cfg.Tree.Edge(id)
	}
	for v := range e.children {
		e.children[v] = cfg.Tree.ChildEdges(v)
	}

	return e, nil
}

// Site evaluates one observation site.
//
// Implementation:
//   - Stage 1: Build indicators from values (one entry per observation row).
//   - Stage 2: Forward pass in post-order, retaining every L_v and message.
//   - Stage 3: For each requested edge, one directional pass along its path
//     to the root.
//
// Errors:
//   - ErrInvalidInput (row count, unknown edge), statespace.ErrInvalidState
//     (out-of-range value), operator errors, *UnderflowError.
func (e *Engine) Site(site int, values []int, requested []int) (SiteResult, error) {
	ps, err := e.forward(site, values)
	if err != nil {
		return SiteResult{}, err
	}
	res := SiteResult{Likelihood: ps.scalar, Derivatives: make([]float64, len(requested))}
	for i, id := range requested {
		d, err := e.pathDerivative(ps, id)
		if err != nil {
			return SiteResult{}, fmt.Errorf("prune: site %d: %w", site, err)
		}
		res.Derivatives[i] = d / ps.scalar
	}

	return res, nil
}

// forward runs the bottom-up sweep and checks the site scalar.
func (e *Engine) forward(site int, values []int) (*pass, error) {
	ind, err := e.indicators(values)
	if err != nil {
		return nil, fmt.Errorf("prune: site %d: %w", site, err)
	}
	n := len(e.children)
	ps := &pass{ind: ind, l: make([][]float64, n), msg: make([][]float64, len(e.edges))}
	for _, v := range e.post {
		lv := e.base(ps, v)
		for _, id := range e.children[v] {
			p, err := e.transition(id)
			if err != nil {
				return nil, fmt.Errorf("prune: site %d: %w", site, err)
			}
			m, err := matrix.MatVec(p, ps.l[e.edges[id].Child])
			if err != nil {
				return nil, fmt.Errorf("prune: site %d edge %d: %w", site, id, err)
			}
			ps.msg[id] = m
			hadamard(lv, m)
		}
		ps.l[v] = lv
	}

	ps.scalar = dot(e.prior, ps.l[e.tree.Root()])
	if !(ps.scalar > 0) || math.IsInf(ps.scalar, 0) {
		return nil, &UnderflowError{Site: site, Values: append([]int(nil), values...), Scalar: ps.scalar}
	}

	return ps, nil
}

// indicators maps one site's observation row values onto per-node
// indicator vectors.
func (e *Engine) indicators(values []int) ([][]float64, error) {
	if len(values) != len(e.obsNodes) {
		return nil, fmt.Errorf("%d observed values for %d observation rows: %w", len(values), len(e.obsNodes), ErrInvalidInput)
	}
	f := e.space.Size()
	ind := make([][]float64, len(e.children))
	for k, val := range values {
		v, axis := e.obsNodes[k], e.obsAxes[k]
		if err := e.space.CheckValue(axis, val); err != nil {
			return nil, fmt.Errorf("observation row %d (node %d): %w", k, v, err)
		}
		if e.space.IsMissing(axis, val) {
			continue
		}
		if ind[v] == nil {
			ind[v] = ones(f)
		}
		for s := 0; s < f; s++ {
			if !e.space.Consistent(s, axis, val) {
				ind[v][s] = 0
			}
		}
	}

	return ind, nil
}

// pathDerivative returns d(scalar)/d(log r_id) by propagating the
// differentiated message of edge id up to the root.
func (e *Engine) pathDerivative(ps *pass, id int) (float64, error) {
	path, err := e.tree.PathToRoot(id)
	if err != nil {
		return 0, errors.Join(ErrInvalidInput, err)
	}
	b := e.branches[id]
	d, err := e.ops.Derivative(b.Process, b.Scale)
	if err != nil {
		return 0, fmt.Errorf("edge %d: %w", id, err)
	}
	vec, err := matrix.MatVec(d, ps.l[e.edges[id].Child])
	if err != nil {
		return 0, fmt.Errorf("edge %d: %w", id, err)
	}

	var dv []float64
	for i, cur := range path {
		dv = e.combine(ps, e.edges[cur].Parent, cur, vec)
		if i+1 == len(path) {
			break
		}
		up := path[i+1]
		p, err := e.transition(up)
		if err != nil {
			return 0, err
		}
		if vec, err = matrix.MatVec(p, dv); err != nil {
			return 0, fmt.Errorf("edge %d: %w", up, err)
		}
	}

	return dot(e.prior, dv), nil
}

// combine returns I_v ⊙ vec ⊙ Π_{child edges e'≠skip} m_{e'}.
func (e *Engine) combine(ps *pass, v, skip int, vec []float64) []float64 {
	out := e.base(ps, v)
	hadamard(out, vec)
	for _, id := range e.children[v] {
		if id != skip {
			hadamard(out, ps.msg[id])
		}
	}

	return out
}

// base returns a fresh copy of I_v, or ones when v is unobserved.
func (e *Engine) base(ps *pass, v int) []float64 {
	if ps.ind[v] == nil {
		return ones(e.space.Size())
	}

	return append([]float64(nil), ps.ind[v]...)
}

func (e *Engine) transition(id int) (*matrix.Dense, error) {
	b := e.branches[id]
	p, err := e.ops.Transition(b.Process, b.Scale)
	if err != nil {
		return nil, fmt.Errorf("edge %d: %w", id, err)
	}

	return p, nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}

	return v
}

// hadamard sets dst[i] *= src[i].
func hadamard(dst, src []float64) {
	for i := range dst {
		dst[i] *= src[i]
	}
}

func dot(a, b []float64) float64 {
	acc := matrix.ZeroSum
	for i := range a {
		acc += a[i] * b[i]
	}

	return acc
}
