// SPDX-License-Identifier: MIT

package prune

import (
	"fmt"

	"github.com/katalvlaran/ctmctree/matrix"
)

// Labeled supplies the labeled Fréchet operator of an edge;
// *transition.Cache implements it.
type Labeled interface {
	Expectation(proc int, scale float64) (*matrix.Dense, error)
}

// Outside is the result of a full top-down pass for one site.
type Outside struct {
	// Likelihood is the site scalar.
	Likelihood float64
	// Posterior[v][s] is P(state of v = s | site observations).
	Posterior [][]float64
	// EdgeDerivatives[k] is d(log Likelihood)/d(log r_k) for every edge k.
	EdgeDerivatives []float64
}

// Marginals runs the forward sweep and a top-down sweep for one site and
// returns per-node posterior distributions together with the log-derivative
// of every edge.
//
// Implementation:
//   - Stage 1: Forward pass as in Site.
//   - Stage 2: Pre-order; for child edge k=(v,c) form the outside vector
//     B_k = A_v ⊙ I_v ⊙ Π_{k'≠k} m_{k'} and push A_c = P_kᵀ·B_k.
//   - Stage 3: posterior_v = A_v ⊙ L_v / scalar and
//     derivative_k = B_k·(dP_k·L_c) / scalar.
//
// Each posterior sums to one up to rounding.
func (e *Engine) Marginals(site int, values []int) (Outside, error) {
	ps, err := e.forward(site, values)
	if err != nil {
		return Outside{}, err
	}
	n := len(e.children)
	out := Outside{
		Likelihood:      ps.scalar,
		Posterior:       make([][]float64, n),
		EdgeDerivatives: make([]float64, len(e.edges)),
	}

	above, err := e.down(ps, site, func(id int, b []float64) error {
		br := e.branches[id]
		d, err := e.ops.Derivative(br.Process, br.Scale)
		if err != nil {
			return err
		}
		dm, err := matrix.MatVec(d, ps.l[e.edges[id].Child])
		if err != nil {
			return err
		}
		out.EdgeDerivatives[id] = dot(b, dm) / ps.scalar

		return nil
	})
	if err != nil {
		return Outside{}, err
	}
	for v := range out.Posterior {
		post := make([]float64, len(ps.l[v]))
		for s := range post {
			post[s] = above[v][s] * ps.l[v][s] / ps.scalar
		}
		out.Posterior[v] = post
	}

	return out, nil
}

// Expectations returns, for every edge k=(v,c), the expected weighted count
// of labeled transitions on k given the site's observations:
// B_k·(K_k·L_c) / scalar with K_k the labeled operator of the edge.
//
// Errors:
//   - ErrInvalidInput when the engine's operators do not implement Labeled,
//     plus the errors of Marginals and of the labeled operators.
func (e *Engine) Expectations(site int, values []int) ([]float64, error) {
	lab, ok := e.ops.(Labeled)
	if !ok {
		return nil, fmt.Errorf("prune: site %d: operators %T have no labeled rates: %w", site, e.ops, ErrInvalidInput)
	}
	ps, err := e.forward(site, values)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(e.edges))
	_, err = e.down(ps, site, func(id int, b []float64) error {
		br := e.branches[id]
		k, err := lab.Expectation(br.Process, br.Scale)
		if err != nil {
			return err
		}
		km, err := matrix.MatVec(k, ps.l[e.edges[id].Child])
		if err != nil {
			return err
		}
		out[id] = dot(b, km) / ps.scalar

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// down walks the tree in pre-order, hands each edge's outside vector B_k to
// visit and returns A_v for every node.
func (e *Engine) down(ps *pass, site int, visit func(id int, b []float64) error) ([][]float64, error) {
	above := make([][]float64, len(e.children))
	above[e.tree.Root()] = append([]float64(nil), e.prior...)
	for _, v := range e.pre {
		for _, id := range e.children[v] {
			b := e.combine(ps, v, id, above[v])
			p, err := e.transition(id)
			if err != nil {
				return nil, fmt.Errorf("prune: site %d: %w", site, err)
			}
			c := e.edges[id].Child
			if above[c], err = matrix.VecMat(b, p); err != nil {
				return nil, fmt.Errorf("prune: site %d edge %d: %w", site, id, err)
			}
			if err = visit(id, b); err != nil {
				return nil, fmt.Errorf("prune: site %d edge %d: %w", site, id, err)
			}
		}
	}

	return above, nil
}
