// SPDX-License-Identifier: MIT

package statespace

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidState is returned for a malformed shape, a state with the wrong
// axis count, an out-of-range axis value, or a repeated feasible state.
var ErrInvalidState = errors.New("statespace: invalid state")

// MissingValue is the canonical "not observed" code.
const MissingValue = -1

// Space maps feasible states to dense indices and back.
// A Space is immutable after construction and safe for concurrent reads.
type Space struct {
	shape   []int
	strides []int       // row-major strides over shape
	states  [][]int     // dense index → state
	index   map[int]int // ravelled state → dense index
}

// New validates shape and feasible and returns the Space whose i-th state is
// feasible[i]. Input slices are copied.
func New(shape []int, feasible [][]int) (*Space, error) {
	strides, err := validateShape(shape)
	if err != nil {
		return nil, err
	}
	if len(feasible) == 0 {
		return nil, fmt.Errorf("statespace: New: no feasible states: %w", ErrInvalidState)
	}

	s := &Space{
		shape:   append([]int(nil), shape...),
		strides: strides,
		states:  make([][]int, 0, len(feasible)),
		index:   make(map[int]int, len(feasible)),
	}
	for i, st := range feasible {
		flat, err := s.Ravel(st)
		if err != nil {
			return nil, fmt.Errorf("statespace: New: feasible state %d: %w", i, err)
		}
		if prev, dup := s.index[flat]; dup {
			return nil, fmt.Errorf("statespace: New: feasible state %d repeats state %d %v: %w",
				i, prev, st, ErrInvalidState)
		}
		s.index[flat] = i
		s.states = append(s.states, append([]int(nil), st...))
	}

	return s, nil
}

// Full returns the Space of every state in the Cartesian product of shape,
// enumerated in row-major order (last axis fastest).
func Full(shape []int) (*Space, error) {
	strides, err := validateShape(shape)
	if err != nil {
		return nil, err
	}
	total := strides[0] * shape[0]
	feasible := make([][]int, total)
	for flat := 0; flat < total; flat++ {
		st := make([]int, len(shape))
		rem := flat
		for a := range shape {
			st[a] = rem / strides[a]
			rem %= strides[a]
		}
		feasible[flat] = st
	}

	return New(shape, feasible)
}

// validateShape checks every axis is positive and the product fits in an
// int, and returns the row-major strides.
func validateShape(shape []int) ([]int, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("statespace: empty shape: %w", ErrInvalidState)
	}
	strides := make([]int, len(shape))
	prod := 1
	for a := len(shape) - 1; a >= 0; a-- {
		if shape[a] <= 0 {
			return nil, fmt.Errorf("statespace: axis %d has cardinality %d: %w", a, shape[a], ErrInvalidState)
		}
		strides[a] = prod
		if prod > math.MaxInt32/shape[a] {
			return nil, fmt.Errorf("statespace: shape %v too large: %w", shape, ErrInvalidState)
		}
		prod *= shape[a]
	}

	return strides, nil
}

// Size returns the number of feasible states F.
func (s *Space) Size() int { return len(s.states) }

// Axes returns the number of axes.
func (s *Space) Axes() int { return len(s.shape) }

// Shape returns a copy of the per-axis cardinalities.
func (s *Space) Shape() []int { return append([]int(nil), s.shape...) }

// State returns a copy of the state with dense index i, or nil if i is out
// of range.
func (s *Space) State(i int) []int {
	if i < 0 || i >= len(s.states) {
		return nil
	}

	return append([]int(nil), s.states[i]...)
}

// Ravel returns the row-major position of state in the full Cartesian
// product, regardless of feasibility.
func (s *Space) Ravel(state []int) (int, error) {
	if len(state) != len(s.shape) {
		return 0, fmt.Errorf("statespace: state %v has %d axes, want %d: %w",
			state, len(state), len(s.shape), ErrInvalidState)
	}
	flat := 0
	for a, v := range state {
		if v < 0 || v >= s.shape[a] {
			return 0, fmt.Errorf("statespace: state %v: axis %d value %d not in [0,%d): %w",
				state, a, v, s.shape[a], ErrInvalidState)
		}
		flat += v * s.strides[a]
	}

	return flat, nil
}

// Index returns the dense index of state. A well-formed state that is not
// feasible yields ok=false with a nil error.
func (s *Space) Index(state []int) (idx int, ok bool, err error) {
	flat, err := s.Ravel(state)
	if err != nil {
		return 0, false, err
	}
	idx, ok = s.index[flat]

	return idx, ok, nil
}

// Consistent reports whether feasible state i has value on axis.
func (s *Space) Consistent(i, axis, value int) bool {
	if i < 0 || i >= len(s.states) || axis < 0 || axis >= len(s.shape) {
		return false
	}

	return s.states[i][axis] == value
}

// IsMissing reports whether value is a "not observed" code for axis:
// MissingValue or the axis cardinality.
func (s *Space) IsMissing(axis, value int) bool {
	if axis < 0 || axis >= len(s.shape) {
		return false
	}

	return value == MissingValue || value == s.shape[axis]
}

// CheckValue validates an observed value on axis; missing codes pass.
func (s *Space) CheckValue(axis, value int) error {
	if axis < 0 || axis >= len(s.shape) {
		return fmt.Errorf("statespace: axis %d not in [0,%d): %w", axis, len(s.shape), ErrInvalidState)
	}
	if s.IsMissing(axis, value) {
		return nil
	}
	if value < 0 || value >= s.shape[axis] {
		return fmt.Errorf("statespace: axis %d value %d not in [0,%d): %w",
			axis, value, s.shape[axis], ErrInvalidState)
	}

	return nil
}
