// SPDX-License-Identifier: MIT

// Package process assembles CTMC generator matrices from sparse transition
// triples over a statespace.Space.
//
// Policy:
//   - Repeated (row, col) pairs accumulate by summation.
//   - Self-transitions (row == col) are accepted and ignored.
//   - Rates must be finite and > 0.
//   - Q[i][i] = -Σ_{j≠i} Q[i][j], so every row sums to zero by construction.
package process

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/ctmctree/matrix"
	"github.com/katalvlaran/ctmctree/statespace"
)

// ErrInvalidTransition is returned for a transition that references an
// infeasible or malformed state, a non-positive or non-finite rate, or
// mismatched triple lengths.
var ErrInvalidTransition = errors.New("process: invalid transition")

// Process owns one generator matrix and, optionally, a labeled-rate
// matrix. It is immutable after Build.
type Process struct {
	q       *matrix.Dense
	labeled *matrix.Dense // nil unless built with expect weights
	exit    []float64
	count   int // accepted off-diagonal triples
}

// Build maps every (rows[k], cols[k], rates[k]) triple through space and
// returns the assembled Process.
//
// Implementation:
//   - Stage 1: Check the three slices have equal length.
//   - Stage 2: Resolve both endpoints to dense indices; reject infeasible ones.
//   - Stage 3: Accumulate off-diagonal rates, then set each diagonal entry to
//     the negated exit rate.
//
// Errors:
//   - ErrInvalidTransition, wrapping statespace.ErrInvalidState for a
//     malformed endpoint.
//
// Complexity:
//   - Time O(F² + K·A), Space O(F²) (K triples, A axes).
func Build(space *statespace.Space, rows, cols [][]int, rates []float64) (*Process, error) {
	return BuildLabeled(space, rows, cols, rates, nil)
}

// BuildLabeled is Build with one expect weight per triple. The labeled-rate
// matrix E accumulates rates[k]·expect[k] off the diagonal and keeps a zero
// diagonal. A nil expect builds an unlabeled Process.
//
// Errors:
//   - ErrInvalidTransition as for Build, and for an expect slice of the
//     wrong length or a non-finite weight.
func BuildLabeled(space *statespace.Space, rows, cols [][]int, rates, expect []float64) (*Process, error) {
	if space == nil {
		return nil, fmt.Errorf("process: Build: nil state space: %w", ErrInvalidTransition)
	}
	if len(rows) != len(cols) || len(rows) != len(rates) {
		return nil, fmt.Errorf("process: Build: %d rows, %d cols, %d rates: %w",
			len(rows), len(cols), len(rates), ErrInvalidTransition)
	}
	if expect != nil && len(expect) != len(rates) {
		return nil, fmt.Errorf("process: Build: %d expect weights for %d rates: %w",
			len(expect), len(rates), ErrInvalidTransition)
	}
	n := space.Size()
	q, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("process: Build: %w", err)
	}

	p := &Process{q: q, exit: make([]float64, n)}
	if expect != nil {
		if p.labeled, err = matrix.NewDense(n, n); err != nil {
			return nil, fmt.Errorf("process: Build: %w", err)
		}
	}
	for k := range rows {
		r := rates[k]
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return nil, fmt.Errorf("process: Build: transition %d rate %v: %w", k, r, ErrInvalidTransition)
		}
		i, err := resolve(space, rows[k])
		if err != nil {
			return nil, fmt.Errorf("process: Build: transition %d source: %w", k, err)
		}
		j, err := resolve(space, cols[k])
		if err != nil {
			return nil, fmt.Errorf("process: Build: transition %d target: %w", k, err)
		}
		if i == j {
			continue
		}
		cur, _ := q.At(i, j)
		if err = q.Set(i, j, cur+r); err != nil {
			return nil, fmt.Errorf("process: Build: transition %d: %w", k, errors.Join(ErrInvalidTransition, err))
		}
		p.exit[i] += r
		p.count++
		if p.labeled != nil {
			w := expect[k]
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("process: Build: transition %d expect %v: %w", k, w, ErrInvalidTransition)
			}
			cur, _ = p.labeled.At(i, j)
			if err = p.labeled.Set(i, j, cur+r*w); err != nil {
				return nil, fmt.Errorf("process: Build: transition %d: %w", k, errors.Join(ErrInvalidTransition, err))
			}
		}
	}
	for i := 0; i < n; i++ {
		if err = q.Set(i, i, -p.exit[i]); err != nil {
			return nil, fmt.Errorf("process: Build: row %d: %w", i, errors.Join(ErrInvalidTransition, err))
		}
	}

	return p, nil
}

// resolve maps a state to its dense index, rejecting infeasible states.
func resolve(space *statespace.Space, state []int) (int, error) {
	idx, ok, err := space.Index(state)
	if err != nil {
		return 0, errors.Join(ErrInvalidTransition, err)
	}
	if !ok {
		return 0, fmt.Errorf("state %v is not feasible: %w", state, ErrInvalidTransition)
	}

	return idx, nil
}

// Generator returns a copy of Q.
func (p *Process) Generator() *matrix.Dense { return p.q.Clone() }

// Labeled returns a copy of the labeled-rate matrix E, or nil when the
// Process carries no expect weights.
func (p *Process) Labeled() *matrix.Dense {
	if p.labeled == nil {
		return nil
	}

	return p.labeled.Clone()
}

// Size returns the number of feasible states F.
func (p *Process) Size() int { return p.q.Rows() }

// ExitRate returns -Q[i][i], or 0 when i is out of range.
func (p *Process) ExitRate(i int) float64 {
	if i < 0 || i >= len(p.exit) {
		return 0
	}

	return p.exit[i]
}

// Transitions returns the number of accepted off-diagonal triples,
// duplicates included.
func (p *Process) Transitions() int { return p.count }

// RowSums returns the row sums of Q; each is zero up to rounding.
func (p *Process) RowSums() []float64 { return matrix.RowSums(p.q) }
