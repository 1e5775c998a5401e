// SPDX-License-Identifier: MIT
package model_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ctmctree/model"
)

func TestLoad_AllFormatsAgree(t *testing.T) {
	var decoded []*model.Model
	for _, path := range []string{"testdata/star.json", "testdata/star.yaml", "testdata/star.toml"} {
		m, err := model.Load(path)
		require.NoError(t, err, path)
		decoded = append(decoded, m)
	}
	m := decoded[0]
	assert.Equal(t, 3, m.NodeCount)
	assert.Equal(t, []int{2}, m.StateSpaceShape)
	assert.Equal(t, [][]int{{0}, {1}}, m.Processes[0].Row)
	assert.Equal(t, []float64{0.3, 1.1}, m.Tree.Rate)
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {1, -1}}, m.IIDObservations)
	for _, other := range decoded[1:] {
		assert.Equal(t, m, other)
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, model.FormatYAML, model.FormatFromPath("a/b.YML"))
	assert.Equal(t, model.FormatYAML, model.FormatFromPath("m.yaml"))
	assert.Equal(t, model.FormatTOML, model.FormatFromPath("m.toml"))
	assert.Equal(t, model.FormatJSON, model.FormatFromPath("m.json"))
	assert.Equal(t, model.FormatJSON, model.FormatFromPath("stdin"))
}

func TestWeights_DefaultOnes(t *testing.T) {
	m, err := model.Load("testdata/star.json")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0}, m.Weights())

	m.SiteWeights = nil
	require.NoError(t, m.Validate())
	assert.Equal(t, []float64{1, 1, 1}, m.Weights())
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := model.Decode(strings.NewReader(`{"node_count": 1, "bogus": true}`), model.FormatJSON)
	assert.ErrorIs(t, err, model.ErrInvalidModel)

	_, err = model.Decode(strings.NewReader("node_count: 1\nbogus: true\n"), model.FormatYAML)
	assert.ErrorIs(t, err, model.ErrInvalidModel)

	_, err = model.Decode(strings.NewReader("node_count = 1\nbogus = true\n"), model.FormatTOML)
	assert.ErrorIs(t, err, model.ErrInvalidModel)

	_, err = model.Decode(strings.NewReader(""), model.FormatYAML)
	assert.ErrorIs(t, err, model.ErrInvalidModel)

	_, err = model.Decode(strings.NewReader("{}"), model.Format("xml"))
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestValidate_Violations(t *testing.T) {
	cases := map[string]func(m *model.Model){
		"node-count":         func(m *model.Model) { m.NodeCount = 0 },
		"shape-axis":         func(m *model.Model) { m.StateSpaceShape = []int{0} },
		"process-count":      func(m *model.Model) { m.ProcessCount = 2 },
		"prior-length":       func(m *model.Model) { m.PriorDistribution = []float64{1} },
		"prior-negative":     func(m *model.Model) { m.PriorDistribution = []float64{-0.5, 1.5} },
		"tree-length":        func(m *model.Model) { m.Tree.Rate = []float64{1} },
		"tree-rate":          func(m *model.Model) { m.Tree.Rate = []float64{0, 1} },
		"tree-process":       func(m *model.Model) { m.Tree.Process = []int{0, 1} },
		"requested":          func(m *model.Model) { m.RequestedDerivatives = []int{2} },
		"process-arrays":     func(m *model.Model) { m.Processes[0].Rate = []float64{1} },
		"observable-lengths": func(m *model.Model) { m.ObservableAxes = []int{0} },
		"observable-node":    func(m *model.Model) { m.ObservableNodes = []int{1, 3} },
		"observable-axis":    func(m *model.Model) { m.ObservableAxes = []int{0, 1} },
		"observation-row":    func(m *model.Model) { m.IIDObservations[1] = []int{0} },
		"weights-length":     func(m *model.Model) { m.SiteWeights = []float64{1} },
		"weights-negative":   func(m *model.Model) { m.SiteWeights = []float64{1, -1, 0} },
		"no-observations":    func(m *model.Model) { m.IIDObservations = nil; m.SiteWeights = nil },
		"no-feasible-states": func(m *model.Model) { m.PriorFeasibleStates = nil },
		"no-processes":       func(m *model.Model) { m.Processes = nil; m.ProcessCount = 0 },
		"process-rate-nan":   func(m *model.Model) { m.Processes[0].Rate = []float64{math.NaN(), 1} },
		"prior-inf":          func(m *model.Model) { m.PriorDistribution = []float64{math.Inf(1), 0} },
		"expect-length":      func(m *model.Model) { m.Processes[0].Expect = []float64{1} },
		"expect-nan":         func(m *model.Model) { m.Processes[0].Expect = []float64{1, math.NaN()} },
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			m, err := model.Load("testdata/star.json")
			require.NoError(t, err)
			mutate(m)
			assert.ErrorIs(t, m.Validate(), model.ErrInvalidModel)
		})
	}

	labeled, err := model.Load("testdata/star.json")
	require.NoError(t, err)
	labeled.Processes[0].Expect = []float64{1, -0.5}
	assert.NoError(t, labeled.Validate())

	var nilModel *model.Model
	assert.ErrorIs(t, nilModel.Validate(), model.ErrInvalidModel)
}
