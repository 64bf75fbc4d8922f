// Package privacy implements the Gaussian mechanism used to perturb model
// updates in differential-private rounds, and the per-agent epsilon ledger.
package privacy

import (
	"math/rand"
	"sync"

	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/tensor"
)

const DefaultSensitivity = 1.0

// Mechanism injects Gaussian noise scaled by sensitivity/epsilon. The noise
// source is injected so tests can run against a fixed seed.
type Mechanism struct {
	sensitivity float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGaussian(sensitivity float64, rng *rand.Rand) *Mechanism {
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}

	return &Mechanism{
		sensitivity: sensitivity,
		rng:         rng,
	}
}

// Scale returns the noise scale the mechanism applies for a given epsilon.
func (m *Mechanism) Scale(epsilon float64) float64 {
	if epsilon <= 0 {
		return 0
	}

	return m.sensitivity / epsilon
}

// Perturb adds independent Gaussian noise to every scalar leaf and returns
// the perturbed structure together with the total noise magnitude applied
// (sum of absolute per-leaf noise).
func (m *Mechanism) Perturb(w tensor.Weights, epsilon float64) (tensor.Weights, float64) {
	scale := m.Scale(epsilon)
	if scale == 0 {
		return w.Clone(), 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	magnitude := 0.0
	out := w.Map(func(v float64) float64 {
		noise := m.rng.NormFloat64() * scale
		if noise < 0 {
			magnitude -= noise
		} else {
			magnitude += noise
		}

		return v + noise
	})

	return out, magnitude
}

// Noise draws a single Gaussian sample with the given scale. Used by the
// secure aggregation strategy for its per-element masking noise.
func (m *Mechanism) Noise(scale float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rng.NormFloat64() * scale
}

// Charge debits epsilon from the remaining budget. A submission to a
// differential-private round costs the round's epsilon, which keeps the
// ledger in epsilon units rather than subtracting a raw noise scale.
func Charge(remaining, epsilon float64) (float64, error) {
	if epsilon <= 0 {
		return remaining, nil
	}
	if remaining < epsilon {
		return remaining, errors.ErrBudgetExhausted
	}

	return remaining - epsilon, nil
}
