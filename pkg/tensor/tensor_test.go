package tensor_test

import (
	"math"
	"testing"

	"github.com/absmach/colearn/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() tensor.Weights {
	return tensor.Weights{
		"dense":  tensor.FromVector([]float64{1, 2, 3}),
		"bias":   tensor.FromScalar(0.5),
		"kernel": tensor.FromMatrix([][]float64{{1, 0}, {0, 1}}),
	}
}

func TestFlattenOrder(t *testing.T) {
	w := sample()
	// Layers flatten in lexical order: bias, dense, kernel.
	assert.Equal(t, []float64{0.5, 1, 2, 3, 1, 0, 0, 1}, w.Flatten())
}

func TestHashStable(t *testing.T) {
	a := sample()
	b := sample()
	assert.Equal(t, a.Hash(), b.Hash())

	c := sample()
	c["bias"] = tensor.FromScalar(0.500001)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestWeightedSum(t *testing.T) {
	a := tensor.Weights{"w": tensor.FromVector([]float64{1, 1})}
	b := tensor.Weights{"w": tensor.FromVector([]float64{3, 5})}

	out, err := tensor.WeightedSum([]tensor.Weights{a, b}, []float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, out["w"].Vector)
}

func TestWeightedSumShapeMismatch(t *testing.T) {
	a := tensor.Weights{"w": tensor.FromVector([]float64{1, 1})}
	b := tensor.Weights{"w": tensor.FromVector([]float64{1, 1, 1})}

	_, err := tensor.WeightedSum([]tensor.Weights{a, b}, []float64{0.5, 0.5})
	assert.Error(t, err)
}

func TestMedian(t *testing.T) {
	ws := []tensor.Weights{
		{"w": tensor.FromVector([]float64{1, 10})},
		{"w": tensor.FromVector([]float64{2, 20})},
		{"w": tensor.FromVector([]float64{100, 30})},
	}

	out, err := tensor.Median(ws)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 20}, out["w"].Vector)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, tensor.CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, tensor.CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, tensor.CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, tensor.CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func TestNormsAndStats(t *testing.T) {
	assert.InDelta(t, 5.0, tensor.L2Norm([]float64{3, 4}), 1e-9)
	assert.InDelta(t, 5.0, tensor.EuclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.True(t, math.IsInf(tensor.EuclideanDistance([]float64{1}, []float64{1, 2}), 1))
	assert.Equal(t, 0.5, tensor.Mean(nil, 0.5))
	assert.InDelta(t, 2.0, tensor.StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}
