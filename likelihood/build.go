// SPDX-License-Identifier: MIT

package likelihood

import (
	"context"
	"fmt"

	"github.com/katalvlaran/ctmctree/model"
	"github.com/katalvlaran/ctmctree/process"
	"github.com/katalvlaran/ctmctree/prune"
	"github.com/katalvlaran/ctmctree/statespace"
	"github.com/katalvlaran/ctmctree/tree"
)

// Build validates m and constructs the evaluation Input. With full set, the
// state space is the whole Cartesian product of m.StateSpaceShape and the
// prior is scattered onto it; otherwise it is exactly the prior's feasible
// states, in the listed order.
func Build(m *model.Model, full bool) (Input, error) {
	if err := m.Validate(); err != nil {
		return Input{}, err
	}

	var (
		space *statespace.Space
		prior []float64
		err   error
	)
	if full {
		if space, err = statespace.Full(m.StateSpaceShape); err != nil {
			return Input{}, fmt.Errorf("likelihood: %w", err)
		}
		// Validates the listed states (ranges, duplicates) the same way the
		// feasible-only mode does.
		if _, err = statespace.New(m.StateSpaceShape, m.PriorFeasibleStates); err != nil {
			return Input{}, fmt.Errorf("likelihood: prior: %w", err)
		}
		prior = make([]float64, space.Size())
		for k, st := range m.PriorFeasibleStates {
			idx, _, _ := space.Index(st)
			prior[idx] = m.PriorDistribution[k]
		}
	} else {
		if space, err = statespace.New(m.StateSpaceShape, m.PriorFeasibleStates); err != nil {
			return Input{}, fmt.Errorf("likelihood: prior: %w", err)
		}
		prior = append([]float64(nil), m.PriorDistribution...)
	}

	procs := make([]*process.Process, len(m.Processes))
	for i, p := range m.Processes {
		if procs[i], err = process.BuildLabeled(space, p.Row, p.Col, p.Rate, p.Expect); err != nil {
			return Input{}, fmt.Errorf("likelihood: process %d: %w", i, err)
		}
	}

	tr, err := tree.New(m.NodeCount, m.Tree.Row, m.Tree.Col)
	if err != nil {
		return Input{}, fmt.Errorf("likelihood: %w", err)
	}
	branches := make([]prune.Branch, len(m.Tree.Row))
	for k := range branches {
		branches[k] = prune.Branch{Process: m.Tree.Process[k], Scale: m.Tree.Rate[k]}
	}

	return Input{
		Space:         space,
		Processes:     procs,
		Tree:          tr,
		Branches:      branches,
		Prior:         prior,
		ObservedNodes: append([]int(nil), m.ObservableNodes...),
		ObservedAxes:  append([]int(nil), m.ObservableAxes...),
		Observations:  m.IIDObservations,
		Weights:       m.Weights(),
		Requested:     append([]int(nil), m.RequestedDerivatives...),
	}, nil
}

// EvaluateModel builds m (honouring WithFullStateSpace) and evaluates it.
func EvaluateModel(ctx context.Context, m *model.Model, opts ...Option) (Result, error) {
	o := gatherOptions(opts)
	in, err := Build(m, o.fullSpace)
	if err != nil {
		if o.metrics != nil {
			o.metrics.evaluations.WithLabelValues(ErrorKind(err)).Inc()
		}
		return Result{}, err
	}

	return Evaluate(ctx, in, opts...)
}
