// SPDX-License-Identifier: MIT

// Package model defines the typed input record of a likelihood evaluation
// and its decoding and validation.
//
// Field names follow the interchange format (snake_case) in JSON, YAML and
// TOML alike. Validate enforces per-field constraints through struct tags
// and the cross-field length relations the engine relies on; semantic
// checks (state ranges, topology, feasibility) belong to the engine
// packages.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidModel is returned when a record violates a field constraint or
// a cross-field length relation.
var ErrInvalidModel = errors.New("model: invalid model")

// Model is one evaluation request.
type Model struct {
	NodeCount            int       `json:"node_count" yaml:"node_count" toml:"node_count" validate:"gte=1"`
	ProcessCount         int       `json:"process_count" yaml:"process_count" toml:"process_count" validate:"gte=1"`
	StateSpaceShape      []int     `json:"state_space_shape" yaml:"state_space_shape" toml:"state_space_shape" validate:"min=1,dive,gte=1"`
	PriorFeasibleStates  [][]int   `json:"prior_feasible_states" yaml:"prior_feasible_states" toml:"prior_feasible_states" validate:"min=1"`
	PriorDistribution    []float64 `json:"prior_distribution" yaml:"prior_distribution" toml:"prior_distribution" validate:"min=1,dive,finite,gte=0"`
	Tree                 Tree      `json:"tree" yaml:"tree" toml:"tree"`
	RequestedDerivatives []int     `json:"requested_derivatives" yaml:"requested_derivatives" toml:"requested_derivatives" validate:"dive,gte=0"`
	Processes            []Process `json:"processes" yaml:"processes" toml:"processes" validate:"min=1,dive"`
	ObservableNodes      []int     `json:"observable_nodes" yaml:"observable_nodes" toml:"observable_nodes" validate:"dive,gte=0"`
	ObservableAxes       []int     `json:"observable_axes" yaml:"observable_axes" toml:"observable_axes" validate:"dive,gte=0"`
	SiteWeights          []float64 `json:"site_weights,omitempty" yaml:"site_weights,omitempty" toml:"site_weights,omitempty" validate:"omitempty,dive,finite,gte=0"`
	IIDObservations      [][]int   `json:"iid_observations" yaml:"iid_observations" toml:"iid_observations" validate:"min=1"`
}

// Tree lists edges as parallel arrays; edge k is (Row[k] → Col[k]).
type Tree struct {
	Row     []int     `json:"row" yaml:"row" toml:"row" validate:"dive,gte=0"`
	Col     []int     `json:"col" yaml:"col" toml:"col" validate:"dive,gte=0"`
	Rate    []float64 `json:"rate" yaml:"rate" toml:"rate" validate:"dive,finite,gt=0"`
	Process []int     `json:"process" yaml:"process" toml:"process" validate:"dive,gte=0"`
}

// Process lists sparse generator entries; Row[k] → Col[k] at Rate[k].
// Expect, when present, weights each transition for labeled expectations.
type Process struct {
	Row    [][]int   `json:"row" yaml:"row" toml:"row"`
	Col    [][]int   `json:"col" yaml:"col" toml:"col"`
	Rate   []float64 `json:"rate" yaml:"rate" toml:"rate" validate:"dive,finite"`
	Expect []float64 `json:"expect,omitempty" yaml:"expect,omitempty" toml:"expect,omitempty" validate:"omitempty,dive,finite"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("finite", finite); err != nil {
		panic("model: registering finite validation: " + err.Error())
	}
}

func finite(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate checks field constraints and cross-field lengths.
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("model: nil model: %w", ErrInvalidModel)
	}
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("model: %s: %w", strings.Join(msgs, "; "), ErrInvalidModel)
		}
		return fmt.Errorf("model: %v: %w", err, ErrInvalidModel)
	}

	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	if len(m.Processes) != m.ProcessCount {
		add("process_count %d but %d processes", m.ProcessCount, len(m.Processes))
	}
	if len(m.PriorFeasibleStates) != len(m.PriorDistribution) {
		add("%d prior_feasible_states but %d prior_distribution entries",
			len(m.PriorFeasibleStates), len(m.PriorDistribution))
	}
	t := m.Tree
	if len(t.Row) != len(t.Col) || len(t.Row) != len(t.Rate) || len(t.Row) != len(t.Process) {
		add("tree arrays differ in length: row %d, col %d, rate %d, process %d",
			len(t.Row), len(t.Col), len(t.Rate), len(t.Process))
	}
	for k, p := range t.Process {
		if p >= m.ProcessCount {
			add("tree.process[%d] = %d not below process_count %d", k, p, m.ProcessCount)
		}
	}
	for i, id := range m.RequestedDerivatives {
		if id >= len(t.Row) {
			add("requested_derivatives[%d] = %d but tree has %d edges", i, id, len(t.Row))
		}
	}
	for i, p := range m.Processes {
		if len(p.Row) != len(p.Col) || len(p.Row) != len(p.Rate) {
			add("processes[%d] arrays differ in length: row %d, col %d, rate %d", i, len(p.Row), len(p.Col), len(p.Rate))
		}
		if p.Expect != nil && len(p.Expect) != len(p.Rate) {
			add("processes[%d] has %d expect weights for %d rates", i, len(p.Expect), len(p.Rate))
		}
	}
	if len(m.ObservableNodes) != len(m.ObservableAxes) {
		add("%d observable_nodes but %d observable_axes", len(m.ObservableNodes), len(m.ObservableAxes))
	}
	for i, v := range m.ObservableNodes {
		if v >= m.NodeCount {
			add("observable_nodes[%d] = %d not below node_count %d", i, v, m.NodeCount)
		}
	}
	for i, a := range m.ObservableAxes {
		if a >= len(m.StateSpaceShape) {
			add("observable_axes[%d] = %d but state space has %d axes", i, a, len(m.StateSpaceShape))
		}
	}
	for i, row := range m.IIDObservations {
		if len(row) != len(m.ObservableNodes) {
			add("iid_observations[%d] has %d values, want %d", i, len(row), len(m.ObservableNodes))
		}
	}
	if m.SiteWeights != nil && len(m.SiteWeights) != len(m.IIDObservations) {
		add("%d site_weights for %d sites", len(m.SiteWeights), len(m.IIDObservations))
	}
	if len(problems) > 0 {
		return fmt.Errorf("model: %s: %w", strings.Join(problems, "; "), ErrInvalidModel)
	}

	return nil
}

// Weights returns SiteWeights, or all ones when the record omits them.
func (m *Model) Weights() []float64 {
	if m.SiteWeights != nil {
		return append([]float64(nil), m.SiteWeights...)
	}
	w := make([]float64, len(m.IIDObservations))
	for i := range w {
		w[i] = 1
	}

	return w
}
