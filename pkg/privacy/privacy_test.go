package privacy_test

import (
	"math/rand"
	"testing"

	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/privacy"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerturbDeterministic(t *testing.T) {
	w := tensor.Weights{"w": tensor.FromVector([]float64{1, 2, 3})}

	m1 := privacy.NewGaussian(1.0, rand.New(rand.NewSource(42)))
	m2 := privacy.NewGaussian(1.0, rand.New(rand.NewSource(42)))

	out1, mag1 := m1.Perturb(w, 0.5)
	out2, mag2 := m2.Perturb(w, 0.5)

	assert.Equal(t, out1, out2)
	assert.Equal(t, mag1, mag2)
	assert.Positive(t, mag1)
	// Input is untouched.
	assert.Equal(t, []float64{1, 2, 3}, w["w"].Vector)
}

func TestPerturbZeroEpsilon(t *testing.T) {
	w := tensor.Weights{"w": tensor.FromScalar(1)}
	m := privacy.NewGaussian(1.0, rand.New(rand.NewSource(1)))

	out, mag := m.Perturb(w, 0)
	assert.Equal(t, 0.0, mag)
	assert.Equal(t, w, out)
}

func TestScale(t *testing.T) {
	m := privacy.NewGaussian(1.0, rand.New(rand.NewSource(1)))
	assert.Equal(t, 2.0, m.Scale(0.5))
	assert.Equal(t, 0.0, m.Scale(0))
}

func TestCharge(t *testing.T) {
	left, err := privacy.Charge(1.0, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, left, 1e-9)

	_, err = privacy.Charge(0.1, 0.3)
	assert.ErrorIs(t, err, errors.ErrBudgetExhausted)

	left, err = privacy.Charge(0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, left)
}
